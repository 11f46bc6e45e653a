package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewUser(t *testing.T) {
	u, err := NewUser("buyer@example.com", 30*24*time.Hour, testNow)

	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "buyer@example.com", u.Email())
	assert.Empty(t, u.BoundIP())
	require.NotNil(t, u.TrialWindowEndsAt())
	assert.Equal(t, testNow.Add(30*24*time.Hour), *u.TrialWindowEndsAt())
}

func TestNewUser_NoTrialWindow(t *testing.T) {
	u, err := NewUser("buyer@example.com", 0, testNow)

	require.NoError(t, err)
	assert.Nil(t, u.TrialWindowEndsAt(), "zero window means always open")
	assert.True(t, u.TrialWindowOpenAt(testNow.AddDate(10, 0, 0)))
}

func TestTrialWindowOpenAt(t *testing.T) {
	u, err := NewUser("buyer@example.com", time.Hour, testNow)
	require.NoError(t, err)

	assert.True(t, u.TrialWindowOpenAt(testNow))
	assert.True(t, u.TrialWindowOpenAt(testNow.Add(time.Hour)), "window closes after, not at, the boundary")
	assert.False(t, u.TrialWindowOpenAt(testNow.Add(time.Hour+time.Second)))
}

func TestBindIP(t *testing.T) {
	u, err := NewUser("buyer@example.com", 0, testNow)
	require.NoError(t, err)

	require.NoError(t, u.BindIP("1.2.3.4", testNow))
	assert.Equal(t, "1.2.3.4", u.BoundIP())
	require.NotNil(t, u.BoundAt())

	// Rebinding overwrites.
	later := testNow.Add(time.Minute)
	require.NoError(t, u.BindIP("2001:db8::1", later))
	assert.Equal(t, "2001:db8::1", u.BoundIP())
	assert.Equal(t, later, *u.BoundAt())
}

func TestBindIP_Malformed(t *testing.T) {
	u, err := NewUser("buyer@example.com", 0, testNow)
	require.NoError(t, err)

	err = u.BindIP("not-an-ip", testNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedIP)
	assert.Empty(t, u.BoundIP(), "failed bind must not partially apply")
}
