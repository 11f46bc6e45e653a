package usecases

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scripthub-inc/scripthub/internal/domain/license"
	"github.com/scripthub-inc/scripthub/internal/domain/payment"
	"github.com/scripthub-inc/scripthub/internal/domain/script"
	"github.com/scripthub-inc/scripthub/internal/domain/user"
	"github.com/scripthub-inc/scripthub/internal/shared/id"
)

type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[uint]*payment.Payment
	nextID   uint
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[uint]*payment.Payment)}
}

func (r *fakePaymentRepo) Create(_ context.Context, p *payment.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.payments {
		if existing.TransactionID() == p.TransactionID() {
			return payment.ErrDuplicateTransaction
		}
	}

	r.nextID++
	if err := p.SetID(r.nextID); err != nil {
		return err
	}
	r.payments[p.ID()] = p
	return nil
}

func (r *fakePaymentRepo) Update(_ context.Context, p *payment.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.payments[p.ID()]; !ok {
		return payment.ErrPaymentNotFound
	}
	r.payments[p.ID()] = p
	return nil
}

func (r *fakePaymentRepo) GetByID(_ context.Context, paymentID uint) (*payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.payments[paymentID]; ok {
		return p, nil
	}
	return nil, nil
}

func (r *fakePaymentRepo) GetByTransactionID(_ context.Context, transactionID string) (*payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.payments {
		if p.TransactionID() == transactionID {
			return p, nil
		}
	}
	return nil, nil
}

func (r *fakePaymentRepo) ListByUser(_ context.Context, userID uint) ([]*payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*payment.Payment
	for _, p := range r.payments {
		if p.UserID() == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeLicenseRepo struct {
	mu       sync.Mutex
	licenses map[uint]*license.License
	nextID   uint
}

func newFakeLicenseRepo() *fakeLicenseRepo {
	return &fakeLicenseRepo{licenses: make(map[uint]*license.License)}
}

func (r *fakeLicenseRepo) Create(_ context.Context, l *license.License) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.licenses {
		if existing.UserID() == l.UserID() && existing.ScriptID() == l.ScriptID() && !existing.IsRevoked() {
			return license.ErrAlreadyEntitled
		}
	}

	r.nextID++
	if err := l.SetID(r.nextID); err != nil {
		return err
	}
	r.licenses[l.ID()] = l
	return nil
}

func (r *fakeLicenseRepo) Update(_ context.Context, l *license.License) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.licenses[l.ID()]; !ok {
		return license.ErrLicenseNotFound
	}
	r.licenses[l.ID()] = l
	return nil
}

func (r *fakeLicenseRepo) GetByID(_ context.Context, licenseID uint) (*license.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.licenses[licenseID]; ok {
		return l, nil
	}
	return nil, nil
}

func (r *fakeLicenseRepo) GetBySID(_ context.Context, sid string) (*license.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range r.licenses {
		if l.SID() == sid {
			return l, nil
		}
	}
	return nil, nil
}

func (r *fakeLicenseRepo) GetByPrivateKey(_ context.Context, key string) (*license.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range r.licenses {
		if l.PrivateKey() == key {
			return l, nil
		}
	}
	return nil, nil
}

func (r *fakeLicenseRepo) GetNonRevokedBySubject(_ context.Context, userID, scriptID uint) (*license.License, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range r.licenses {
		if l.UserID() == userID && l.ScriptID() == scriptID && !l.IsRevoked() {
			return l, nil
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
			out = append(out, l)
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

// delete removes a license directly, simulating a dangling payment reference.
func (r *fakeLicenseRepo) delete(licenseID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.licenses, licenseID)
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

func seedUser(t *testing.T, repo *fakeUserRepo, userID uint, now time.Time) *user.User {
	t.Helper()

	sid, err := id.NewUserID()
	require.NoError(t, err)

	u, err := user.Reconstruct(userID, sid, sid+"@example.com", "", nil, nil, now, now)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func seedScript(t *testing.T, repo *fakeScriptRepo, scriptID uint, now time.Time) *script.Script {
	t.Helper()

	sid, err := id.NewScriptID()
	require.NoError(t, err)

	s, err := script.Reconstruct(scriptID, sid, "Test Script", sid, false, 0, true, now, now)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), s))
	return s
}
