package auth

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/bimerz/portal-service/internal/customer"
	centity "github.com/bimerz/portal-service/internal/customer/entity"
)

// fakeCustomers accepts insurance code "secret" for every known customer.
type fakeCustomers struct {
	mu   sync.Mutex
	rows map[string]*centity.Customer
}

func newFakeCustomers(cs ...centity.Customer) *fakeCustomers {
	f := &fakeCustomers{rows: map[string]*centity.Customer{}}
	for _, c := range cs {
		c := c
		f.rows[c.NationalCode] = &c
	}
	return f
}

func (f *fakeCustomers) Authenticate(_ context.Context, nationalCode, insuranceCode string) (*centity.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[nationalCode]
	if !ok || insuranceCode != "secret" {
		return nil, customer.ErrBadCredentials
	}
	return &centity.Principal{ID: c.ID, FullName: c.FullName, Role: c.Role, TOTPEnabled: c.TOTPEnabled}, nil
}

func (f *fakeCustomers) Get(_ context.Context, id int64) (*centity.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.rows {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, customer.ErrNotFound
}

func (f *fakeCustomers) SetTOTP(_ context.Context, id int64, secret string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.rows {
		if c.ID == id {
			c.TOTPSecret, c.TOTPEnabled = secret, enabled
			return nil
		}
	}
	return customer.ErrNotFound
}

type fakeSessions struct {
	mu   sync.Mutex
	rows map[string]struct {
		customerID int64
		expiresAt  time.Time
	}
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{rows: map[string]struct {
		customerID int64
		expiresAt  time.Time
	}{}}
}

func (f *fakeSessions) Save(_ context.Context, id string, customerID int64, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[id] = struct {
		customerID int64
		expiresAt  time.Time
	}{customerID, expiresAt}
	return nil
}

func (f *fakeSessions) Get(_ context.Context, id string) (int64, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok {
		return 0, time.Time{}, sql.ErrNoRows
	}
	return s.customerID, s.expiresAt, nil
}

func (f *fakeSessions) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) bool { return false }
