package policy

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/lib/pq"

	instentity "github.com/bimerz/portal-service/internal/installment/entity"
	"github.com/bimerz/portal-service/internal/policy/entity"
)

type fakeRepo struct {
	mu        sync.Mutex
	nextID    int64
	rows      map[int64]*entity.Policy
	items     map[int64][]instentity.Installment
	customers map[string]int64
	names     map[int64]string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		rows:      map[int64]*entity.Policy{},
		items:     map[int64][]instentity.Installment{},
		customers: map[string]int64{"0012345678": 7},
		names:     map[int64]string{7: "مریم احمدی"},
	}
}

func (f *fakeRepo) Create(_ context.Context, p *entity.Policy, items []instentity.Installment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.names[p.CustomerID]; !ok {
		return &pq.Error{Code: "23503"}
	}
	for _, r := range f.rows {
		if r.PolicyNumber == p.PolicyNumber {
			return &pq.Error{Code: "23505"}
		}
	}
	f.nextID++
	p.ID = f.nextID
	cp := *p
	cp.Customer.FullName = f.names[p.CustomerID]
	f.rows[p.ID] = &cp
	f.items[p.ID] = items
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (*entity.Policy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRepo) List(context.Context) ([]entity.Policy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []entity.Policy{}
	for _, r := range f.rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) ListByCustomer(ctx context.Context, customerID int64) ([]entity.Policy, error) {
	all, _ := f.List(ctx)
	out := []entity.Policy{}
	for _, p := range all {
		if p.CustomerID == customerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) Update(_ context.Context, p *entity.Policy) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[p.ID]; !ok {
		return 0, nil
	}
	cp := *p
	f.rows[p.ID] = &cp
	return 1, nil
}

func (f *fakeRepo) SetPDF(_ context.Context, id int64, path string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return 0, nil
	}
	r.PDFPath = path
	return 1, nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return 0, nil
	}
	delete(f.rows, id)
	delete(f.items, id)
	return 1, nil
}

func (f *fakeRepo) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows), nil
}

func (f *fakeRepo) CustomerIDByNationalCode(_ context.Context, code string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.customers[code]
	if !ok {
		return 0, sql.ErrNoRows
	}
	return id, nil
}

// countingCache records invalidations and computes counts directly.
type countingCache struct {
	computed    int
	invalidated int
}

func (c *countingCache) Count(ctx context.Context, _ string, compute func(context.Context) (int, error)) (int, error) {
	c.computed++
	return compute(ctx)
}

func (c *countingCache) Invalidate(context.Context, ...string) { c.invalidated++ }
