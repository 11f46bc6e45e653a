package script

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewScript_ValidInput(t *testing.T) {
	s, err := NewScript("AutoFarm Pro", "autofarm-pro", true, 48, testNow)

	require.NoError(t, err)
	require.NotNil(t, s)
	assert.True(t, strings.HasPrefix(s.SID(), "scr_"))
	assert.Equal(t, "AutoFarm Pro", s.Name())
	assert.Equal(t, "autofarm-pro", s.Slug())
	assert.True(t, s.TrialAvailable())
	assert.True(t, s.Active())
}

func TestNewScript_MissingName(t *testing.T) {
	s, err := NewScript("  ", "slug", false, 0, testNow)

	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestNewScript_NegativeTrialDuration(t *testing.T) {
	s, err := NewScript("Name", "slug", true, -1, testNow)

	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestTrialDuration(t *testing.T) {
	fallback := 72 * time.Hour

	withOverride, err := NewScript("A", "a", true, 48, testNow)
	require.NoError(t, err)
	assert.Equal(t, 48*time.Hour, withOverride.TrialDuration(fallback))

	withDefault, err := NewScript("B", "b", true, 0, testNow)
	require.NoError(t, err)
	assert.Equal(t, fallback, withDefault.TrialDuration(fallback))
}

func TestReconstruct(t *testing.T) {
	s, err := Reconstruct(3, "scr_abc", "Name", "name", true, 24, false, testNow, testNow)

	require.NoError(t, err)
	assert.Equal(t, uint(3), s.ID())
	assert.False(t, s.Active())

	_, err = Reconstruct(0, "scr_abc", "Name", "name", true, 24, true, testNow, testNow)
	assert.Error(t, err)
}
