package usecases

import (
	"testing"
	"time"

	"github.com/scripthub-inc/scripthub/internal/infrastructure/keygen"
	"github.com/scripthub-inc/scripthub/internal/shared/clock"
	"github.com/scripthub-inc/scripthub/internal/shared/logger"
)

// engineFixture wires the full set of license usecases over in-memory fakes
// and a controllable clock.
type engineFixture struct {
	clk         *clock.Fake
	licenseRepo *fakeLicenseRepo
	scriptRepo  *fakeScriptRepo
	userRepo    *fakeUserRepo

	issueTrial *IssueTrialUseCase
	issuePaid  *IssuePaidUseCase
	validate   *ValidateLicenseUseCase
	revoke     *RevokeLicenseUseCase
	bindIP     *BindIPUseCase
	list       *ListUserLicensesUseCase
	purge      *PurgeRevokedUseCase
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	licenseRepo := newFakeLicenseRepo()
	scriptRepo := newFakeScriptRepo()
	userRepo := newFakeUserRepo()
	keyGen := keygen.NewGenerator()
	tx := passthroughTx{}
	log := logger.NewNop()

	return &engineFixture{
		clk:         clk,
		licenseRepo: licenseRepo,
		scriptRepo:  scriptRepo,
		userRepo:    userRepo,
		issueTrial:  NewIssueTrialUseCase(licenseRepo, scriptRepo, userRepo, keyGen, tx, clk, 72*time.Hour, log),
		issuePaid:   NewIssuePaidUseCase(licenseRepo, scriptRepo, userRepo, keyGen, tx, clk, log),
		validate:    NewValidateLicenseUseCase(licenseRepo, userRepo, clk, log),
		revoke:      NewRevokeLicenseUseCase(licenseRepo, tx, clk, log),
		bindIP:      NewBindIPUseCase(userRepo, clk, log),
		list:        NewListUserLicensesUseCase(licenseRepo, userRepo, log),
		purge:       NewPurgeRevokedUseCase(licenseRepo, log),
	}
}
