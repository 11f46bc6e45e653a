package usecases

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scripthub-inc/scripthub/internal/domain/license"
	"github.com/scripthub-inc/scripthub/internal/domain/script"
	"github.com/scripthub-inc/scripthub/internal/domain/user"
	"github.com/scripthub-inc/scripthub/internal/shared/id"
)

// passthroughTx runs the function directly; the fakes do their own locking.
type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeLicenseRepo is an in-memory license.Repository that enforces the same
// invariants as the real store: per-subject uniqueness of non-revoked
// licenses and global private-key uniqueness.
type fakeLicenseRepo struct {
	mu       sync.Mutex
	licenses map[uint]*license.License
	nextID   uint
}

func newFakeLicenseRepo() *fakeLicenseRepo {
	return &fakeLicenseRepo{licenses: make(map[uint]*license.License)}
}

func cloneLicense(l *license.License) *license.License {
	c, err := license.Reconstruct(license.ReconstructParams{
		ID:           l.ID(),
		SID:          l.SID(),
		UserID:       l.UserID(),
		ScriptID:     l.ScriptID(),
		PrivateKey:   l.PrivateKey(),
		IsTrial:      l.IsTrial(),
		IsActive:     l.IsActive(),
		IsRevoked:    l.IsRevoked(),
		RevokeReason: l.RevokeReason(),
		ExpiresAt:    l.ExpiresAt(),
		LastUsedIP:   l.LastUsedIP(),
		LastUsedAt:   l.LastUsedAt(),
		CreatedAt:    l.CreatedAt(),
		UpdatedAt:    l.UpdatedAt(),
		Version:      l.Version(),
	})
	if err != nil {
		panic(err)
	}
	return c
}

func (r *fakeLicenseRepo) Create(_ context.Context, l *license.License) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.licenses {
		if existing.UserID() == l.UserID() && existing.ScriptID() == l.ScriptID() && !existing.IsRevoked() {
			return license.ErrAlreadyEntitled
		}
		if existing.PrivateKey() == l.PrivateKey() {
			return license.ErrDuplicateKey
		}
	}

	r.nextID++
	if err := l.SetID(r.nextID); err != nil {
		return err
	}
	r.licenses[l.ID()] = cloneLicense(l)
	return nil
}

func (r *fakeLicenseRepo) Update(_ context.Context, l *license.License) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.licenses[l.ID()]; !ok {
		return license.ErrLicenseNotFound
	}
	r.licenses[l.ID()] = cloneLicense(l)
	return nil
}

func (r *fakeLicenseRepo) GetByID(_ context.Context, licenseID uint) (*license.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.licenses[licenseID]; ok {
		return cloneLicense(l), nil
	}
	return nil, nil
}

func (r *fakeLicenseRepo) GetBySID(_ context.Context, sid string) (*license.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range r.licenses {
		if l.SID() == sid {
			return cloneLicense(l), nil
		}
	}
	return nil, nil
}

func (r *fakeLicenseRepo) GetByPrivateKey(_ context.Context, key string) (*license.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range r.licenses {
		if l.PrivateKey() == key {
			return cloneLicense(l), nil
		}
	}
	return nil, nil
}

func (r *fakeLicenseRepo) GetNonRevokedBySubject(_ context.Context, userID, scriptID uint) (*license.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range r.licenses {
		if l.UserID() == userID && l.ScriptID() == scriptID && !l.IsRevoked() {
			return cloneLicense(l), nil
		}
	}
	return nil, nil
}

func (r *fakeLicenseRepo) ListByUser(_ context.Context, userID uint) ([]*license.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*license.License
	for _, l := range r.licenses {
		if l.UserID() == userID {
			out = append(out, cloneLicense(l))
		}
	}
	return out, nil
}

func (r *fakeLicenseRepo) TouchUsage(_ context.Context, licenseID uint, observedIP string, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.licenses[licenseID]; ok {
		l.Touch(observedIP, usedAt)
	}
	return nil
}

func (r *fakeLicenseRepo) DeleteRevoked(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for licenseID, l := range r.licenses {
		if l.IsRevoked() {
			delete(r.licenses, licenseID)
			deleted++
		}
	}
	return deleted, nil
}

// nonRevokedCount reports how many non-revoked licenses exist for a subject.
func (r *fakeLicenseRepo) nonRevokedCount(userID, scriptID uint) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, l := range r.licenses {
		if l.UserID() == userID && l.ScriptID() == scriptID && !l.IsRevoked() {
			count++
		}
	}
	return count
}

type fakeScriptRepo struct {
	mu      sync.Mutex
	scripts map[string]*script.Script
}

func newFakeScriptRepo() *fakeScriptRepo {
	return &fakeScriptRepo{scripts: make(map[string]*script.Script)}
}

func (r *fakeScriptRepo) Create(_ context.Context, s *script.Script) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scripts[s.SID()] = s
	return nil
}

func (r *fakeScriptRepo) GetByID(_ context.Context, scriptID uint) (*script.Script, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.scripts {
		if s.ID() == scriptID {
			return s, nil
		}
	}
	return nil, nil
}

func (r *fakeScriptRepo) GetBySID(_ context.Context, sid string) (*script.Script, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scripts[sid], nil
}

func (r *fakeScriptRepo) GetBySlug(_ context.Context, slug string) (*script.Script, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.scripts {
		if s.Slug() == slug {
			return s, nil
		}
	}
	return nil, nil
}

func (r *fakeScriptRepo) List(_ context.Context) ([]*script.Script, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*script.Script
	for _, s := range r.scripts {
		out = append(out, s)
	}
	return out, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*user.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.SID()] = u
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, userID uint) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID() == userID {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) GetBySID(_ context.Context, sid string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[sid], nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email() == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) UpdateBoundIP(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.SID()]; !ok {
		return user.ErrUserNotFound
	}
	r.users[u.SID()] = u
	return nil
}

// ===========================================================================
// Seed helpers
// ===========================================================================

func seedUser(t *testing.T, repo *fakeUserRepo, userID uint, trialEnd *time.Time, boundIP string, now time.Time) *user.User {
	t.Helper()

	sid, err := id.NewUserID()
	require.NoError(t, err)

	var boundAt *time.Time
	if boundIP != "" {
		boundAt = &now
	}
	u, err := user.Reconstruct(userID, sid, sid+"@example.com", boundIP, boundAt, trialEnd, now, now)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func seedScript(t *testing.T, repo *fakeScriptRepo, scriptID uint, trialAvailable bool, trialHours int, now time.Time) *script.Script {
	t.Helper()

	sid, err := id.NewScriptID()
	require.NoError(t, err)

	s, err := script.Reconstruct(scriptID, sid, "Test Script", sid, trialAvailable, trialHours, true, now, now)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), s))
	return s
}
