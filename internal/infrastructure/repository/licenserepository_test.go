package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	licenseusecases "github.com/scripthub-inc/scripthub/internal/application/license/usecases"
	"github.com/scripthub-inc/scripthub/internal/domain/license"
	"github.com/scripthub-inc/scripthub/internal/infrastructure/keygen"
	"github.com/scripthub-inc/scripthub/internal/infrastructure/migration"
	"github.com/scripthub-inc/scripthub/internal/infrastructure/persistence/models"
	"github.com/scripthub-inc/scripthub/internal/shared/clock"
	"github.com/scripthub-inc/scripthub/internal/shared/db"
	apperrors "github.com/scripthub-inc/scripthub/internal/shared/errors"
	"github.com/scripthub-inc/scripthub/internal/shared/id"
	"github.com/scripthub-inc/scripthub/internal/shared/logger"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// openTestDB opens a file-backed SQLite database with the production schema.
// The pool is capped at one connection, matching the server's SQLite setup,
// so concurrent transactions queue instead of failing on the write lock.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "scripthub.db") + "?_busy_timeout=10000"
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, gormDB.AutoMigrate(migration.AutoMigrateModels()...))
	return gormDB
}

func newTestLicenseRepo(t *testing.T, gormDB *gorm.DB) license.Repository {
	t.Helper()
	return NewLicenseRepository(gormDB, fastRetryConfig(), logger.NewNop())
}

func seedStoredUser(t *testing.T, gormDB *gorm.DB) *models.UserModel {
	t.Helper()

	sid, err := id.NewUserID()
	require.NoError(t, err)

	u := &models.UserModel{
		SID:       sid,
		Email:     sid + "@example.com",
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
	require.NoError(t, gormDB.Create(u).Error)
	return u
}

func seedStoredScript(t *testing.T, gormDB *gorm.DB) *models.ScriptModel {
	t.Helper()

	sid, err := id.NewScriptID()
	require.NoError(t, err)

	s := &models.ScriptModel{
		SID:                sid,
		Name:               "Test Script",
		Slug:               sid,
		TrialAvailable:     true,
		TrialDurationHours: 72,
		Active:             true,
		CreatedAt:          testNow,
		UpdatedAt:          testNow,
	}
	require.NoError(t, gormDB.Create(s).Error)
	return s
}

func newPaidLicense(t *testing.T, userID, scriptID uint) *license.License {
	t.Helper()

	key, err := keygen.NewGenerator().GenerateKey()
	require.NoError(t, err)

	l, err := license.NewPaidLicense(userID, scriptID, key, license.LicenseTypeLifetime, testNow, 0)
	require.NoError(t, err)
	return l
}

func TestLicenseRepository_CreateAndGet(t *testing.T) {
	gormDB := openTestDB(t)
	repo := newTestLicenseRepo(t, gormDB)
	ctx := context.Background()

	u := seedStoredUser(t, gormDB)
	s := seedStoredScript(t, gormDB)
	l := newPaidLicense(t, u.ID, s.ID)

	require.NoError(t, repo.Create(ctx, l))
	require.NotZero(t, l.ID())

	bySID, err := repo.GetBySID(ctx, l.SID())
	require.NoError(t, err)
	require.NotNil(t, bySID, "stored license must be findable by its sid")
	assert.Equal(t, l.ID(), bySID.ID())
	assert.Equal(t, l.PrivateKey(), bySID.PrivateKey())
	assert.False(t, bySID.IsTrial())

	byKey, err := repo.GetByPrivateKey(ctx, l.PrivateKey())
	require.NoError(t, err)
	require.NotNil(t, byKey)
	assert.Equal(t, l.SID(), byKey.SID())

	byID, err := repo.GetByID(ctx, l.ID())
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, l.SID(), byID.SID())

	missing, err := repo.GetBySID(ctx, "lic_missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestLicenseRepository_SecondNonRevokedRejected(t *testing.T) {
	gormDB := openTestDB(t)
	repo := newTestLicenseRepo(t, gormDB)
	ctx := context.Background()

	u := seedStoredUser(t, gormDB)
	s := seedStoredScript(t, gormDB)

	require.NoError(t, repo.Create(ctx, newPaidLicense(t, u.ID, s.ID)))

	err := repo.Create(ctx, newPaidLicense(t, u.ID, s.ID))
	require.ErrorIs(t, err, license.ErrAlreadyEntitled)
}

func TestLicenseRepository_UpdatePersistsRevocation(t *testing.T) {
	gormDB := openTestDB(t)
	repo := newTestLicenseRepo(t, gormDB)
	ctx := context.Background()

	u := seedStoredUser(t, gormDB)
	s := seedStoredScript(t, gormDB)
	l := newPaidLicense(t, u.ID, s.ID)
	require.NoError(t, repo.Create(ctx, l))

	l.Revoke("refund", testNow.Add(time.Hour))
	require.NoError(t, repo.Update(ctx, l))

	stored, err := repo.GetByID(ctx, l.ID())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.IsRevoked())
	assert.Equal(t, "refund", stored.RevokeReason())
	assert.Equal(t, l.Version(), stored.Version())

	// Writing the same version again is a stale write: the optimistic lock
	// rejects it.
	err = repo.Update(ctx, l)
	require.ErrorIs(t, err, license.ErrLicenseNotFound)
}

func TestLicenseRepository_TouchUsage(t *testing.T) {
	gormDB := openTestDB(t)
	repo := newTestLicenseRepo(t, gormDB)
	ctx := context.Background()

	u := seedStoredUser(t, gormDB)
	s := seedStoredScript(t, gormDB)
	l := newPaidLicense(t, u.ID, s.ID)
	require.NoError(t, repo.Create(ctx, l))

	usedAt := testNow.Add(30 * time.Minute)
	require.NoError(t, repo.TouchUsage(ctx, l.ID(), "203.0.113.7", usedAt))

	stored, err := repo.GetByID(ctx, l.ID())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "203.0.113.7", stored.LastUsedIP())
	require.NotNil(t, stored.LastUsedAt())
	assert.Equal(t, l.Version(), stored.Version(), "telemetry writes must not bump the version")
}

func TestLicenseRepository_DeleteRevoked(t *testing.T) {
	gormDB := openTestDB(t)
	repo := newTestLicenseRepo(t, gormDB)
	ctx := context.Background()

	u := seedStoredUser(t, gormDB)
	s1 := seedStoredScript(t, gormDB)
	s2 := seedStoredScript(t, gormDB)

	revoked := newPaidLicense(t, u.ID, s1.ID)
	require.NoError(t, repo.Create(ctx, revoked))
	revoked.Revoke("refund", testNow)
	require.NoError(t, repo.Update(ctx, revoked))

	kept := newPaidLicense(t, u.ID, s2.ID)
	require.NoError(t, repo.Create(ctx, kept))

	deleted, err := repo.DeleteRevoked(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := repo.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, kept.ID(), remaining[0].ID())
}

// Two buyers racing to issue a paid license for the same subject must end
// with exactly one non-revoked license: one issuance wins, the other is told
// it is already entitled.
func TestLicenseRepository_ConcurrentPaidIssuance(t *testing.T) {
	gormDB := openTestDB(t)
	ctx := context.Background()

	u := seedStoredUser(t, gormDB)
	s := seedStoredScript(t, gormDB)

	log := logger.NewNop()
	clk := clock.NewFake(testNow)
	txMgr := db.NewTransactionManager(gormDB)
	licenseRepo := NewLicenseRepository(gormDB, fastRetryConfig(), log)
	scriptRepo := NewScriptRepository(gormDB, fastRetryConfig(), log)
	userRepo := NewUserRepository(gormDB, fastRetryConfig(), log)

	issuePaid := licenseusecases.NewIssuePaidUseCase(
		licenseRepo, scriptRepo, userRepo, keygen.NewGenerator(), txMgr, clk, log)

	cmd := licenseusecases.IssuePaidCommand{
		UserSID:     u.SID,
		ScriptSID:   s.SID,
		LicenseType: "lifetime",
	}

	start := make(chan struct{})
	results := make([]error, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, results[i] = issuePaid.Execute(ctx, cmd)
		}(i)
	}
	close(start)
	wg.Wait()

	var succeeded, rejected int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case apperrors.IsAlreadyEntitledError(err):
			rejected++
		default:
			t.Fatalf("unexpected issuance error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one issuance must win")
	assert.Equal(t, 1, rejected, "the loser must see already-entitled")

	var nonRevoked int64
	require.NoError(t, gormDB.Model(&models.LicenseModel{}).
		Where("user_id = ? AND script_id = ? AND is_revoked = ?", u.ID, s.ID, false).
		Count(&nonRevoked).Error)
	assert.Equal(t, int64(1), nonRevoked)
}
