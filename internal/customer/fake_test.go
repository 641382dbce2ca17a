package customer

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/bimerz/portal-service/internal/customer/entity"
)

type fakeRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*entity.Customer
	now    func() time.Time
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[int64]*entity.Customer{}, now: time.Now}
}

func (f *fakeRepo) Create(_ context.Context, c *entity.Customer) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.NationalCode == c.NationalCode {
			return 0, &pq.Error{Code: "23505"}
		}
	}
	f.nextID++
	c.ID = f.nextID
	c.CreatedAt = f.now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	f.rows[c.ID] = &cp
	return c.ID, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (*entity.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRepo) GetByNationalCode(_ context.Context, code string) (*entity.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.NationalCode == code {
			cp := *r
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRepo) List(context.Context) ([]entity.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entity.Customer, 0, len(f.rows))
	for _, r := range f.rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) Update(_ context.Context, c *entity.Customer) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[c.ID]; !ok {
		return 0, nil
	}
	cp := *c
	f.rows[c.ID] = &cp
	return 1, nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return 0, nil
	}
	delete(f.rows, id)
	return 1, nil
}

func (f *fakeRepo) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.rows {
		if r.Role == entity.RoleCustomer {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) IncrementFailedLogin(_ context.Context, id int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[id].LoginFailedAttempts++
	return f.rows[id].LoginFailedAttempts, nil
}

func (f *fakeRepo) LockIfThreshold(_ context.Context, id int64, threshold int, lockMinutes int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.rows[id]
	if r.LoginFailedAttempts < threshold {
		return false, nil
	}
	until := f.now().Add(time.Duration(lockMinutes) * time.Minute)
	r.LockedUntil = &until
	return true, nil
}

func (f *fakeRepo) ResetLoginSuccess(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.rows[id]
	r.LoginFailedAttempts = 0
	r.LockedUntil = nil
	now := f.now()
	r.LastLoginAt = &now
	return nil
}

func (f *fakeRepo) SetTOTP(_ context.Context, id int64, secret string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[id].TOTPSecret = secret
	f.rows[id].TOTPEnabled = enabled
	return nil
}

func (f *fakeRepo) HasAdmin(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.Role == entity.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

// plainHasher keeps tests fast; bcrypt is covered separately.
type plainHasher struct{}

func (plainHasher) Hash(pw string) (string, error) { return "plain:" + pw, nil }
func (plainHasher) Verify(hash, pw string) bool    { return strings.TrimPrefix(hash, "plain:") == pw }
