package usecases

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scripthub-inc/scripthub/internal/domain/license"
	apperrors "github.com/scripthub-inc/scripthub/internal/shared/errors"
)

func TestIssuePaid_Lifetime(t *testing.T) {
	f := newEngineFixture(t)
	u := seedUser(t, f.userRepo, 1, nil, "", f.clk.Now())
	s := seedScript(t, f.scriptRepo, 10, false, 0, f.clk.Now())

	issued, err := f.issuePaid.Execute(context.Background(), IssuePaidCommand{
		UserSID:     u.SID(),
		ScriptSID:   s.SID(),
		LicenseType: "lifetime",
	})
	require.NoError(t, err)

	assert.False(t, issued.IsTrial)
	assert.True(t, issued.IsActive)
	assert.Nil(t, issued.ExpiresAt, "lifetime license is perpetual")
}

func TestIssuePaid_Timed(t *testing.T) {
	f := newEngineFixture(t)
	u := seedUser(t, f.userRepo, 1, nil, "", f.clk.Now())
	s := seedScript(t, f.scriptRepo, 10, false, 0, f.clk.Now())

	issued, err := f.issuePaid.Execute(context.Background(), IssuePaidCommand{
		UserSID:       u.SID(),
		ScriptSID:     s.SID(),
		LicenseType:   "timed",
		DurationHours: 24 * 365,
	})
	require.NoError(t, err)
	require.NotNil(t, issued.ExpiresAt)
	assert.Equal(t, f.clk.Now().Add(365*24*time.Hour), *issued.ExpiresAt)
}

func TestIssuePaid_InvalidType(t *testing.T) {
	f := newEngineFixture(t)
	u := seedUser(t, f.userRepo, 1, nil, "", f.clk.Now())
	s := seedScript(t, f.scriptRepo, 10, false, 0, f.clk.Now())

	_, err := f.issuePaid.Execute(context.Background(), IssuePaidCommand{
		UserSID:     u.SID(),
		ScriptSID:   s.SID(),
		LicenseType: "weekly",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestIssuePaid_UpgradeRevokesTrial(t *testing.T) {
	f := newEngineFixture(t)
	u := seedUser(t, f.userRepo, 1, nil, "", f.clk.Now())
	s := seedScript(t, f.scriptRepo, 10, true, 0, f.clk.Now())

	trial, err := f.issueTrial.Execute(context.Background(), IssueTrialCommand{
		UserSID:   u.SID(),
		ScriptSID: s.SID(),
	})
	require.NoError(t, err)

	paid, err := f.issuePaid.Execute(context.Background(), IssuePaidCommand{
		UserSID:     u.SID(),
		ScriptSID:   s.SID(),
		LicenseType: "lifetime",
	})
	require.NoError(t, err)

	// Exactly one non-revoked license remains, and it is the paid one.
	assert.Equal(t, 1, f.licenseRepo.nonRevokedCount(u.ID(), s.ID()))

	oldTrial, err := f.licenseRepo.GetBySID(context.Background(), trial.ID)
	require.NoError(t, err)
	assert.True(t, oldTrial.IsRevoked())
	assert.Equal(t, license.RevokeReasonUpgrade, oldTrial.RevokeReason())

	newPaid, err := f.licenseRepo.GetBySID(context.Background(), paid.ID)
	require.NoError(t, err)
	assert.False(t, newPaid.IsRevoked())
	assert.False(t, newPaid.IsTrial())
}

func TestIssuePaid_AlreadyEntitledWithPaid(t *testing.T) {
	f := newEngineFixture(t)
	u := seedUser(t, f.userRepo, 1, nil, "", f.clk.Now())
	s := seedScript(t, f.scriptRepo, 10, false, 0, f.clk.Now())

	cmd := IssuePaidCommand{UserSID: u.SID(), ScriptSID: s.SID(), LicenseType: "lifetime"}

	_, err := f.issuePaid.Execute(context.Background(), cmd)
	require.NoError(t, err)

	_, err = f.issuePaid.Execute(context.Background(), cmd)
	require.Error(t, err)
	assert.True(t, apperrors.IsAlreadyEntitledError(err))
}

func TestIssuePaid_ConcurrentOneWinner(t *testing.T) {
	f := newEngineFixture(t)
	u := seedUser(t, f.userRepo, 1, nil, "", f.clk.Now())
	s := seedScript(t, f.scriptRepo, 10, false, 0, f.clk.Now())

	cmd := IssuePaidCommand{UserSID: u.SID(), ScriptSID: s.SID(), LicenseType: "lifetime"}

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.issuePaid.Execute(context.Background(), cmd)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.True(t, apperrors.IsAlreadyEntitledError(err), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, successes, "exactly one concurrent issuance wins")
	assert.Equal(t, 1, f.licenseRepo.nonRevokedCount(u.ID(), s.ID()))
}
