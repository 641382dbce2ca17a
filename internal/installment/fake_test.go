package installment

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/lib/pq"

	"github.com/bimerz/portal-service/internal/installment/entity"
)

type fakeRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*entity.Installment
	// policies maps known policy ids to their owner and type.
	policies map[int64]entity.Installment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		rows: map[int64]*entity.Installment{},
		policies: map[int64]entity.Installment{
			1: {Customer: entity.CustomerRef{ID: 7, FullName: "مریم احمدی", NationalCode: "0012345678"}, Policy: entity.PolicyRef{InsuranceType: "بدنه", PolicyNumber: "1001"}},
			2: {Customer: entity.CustomerRef{ID: 8, FullName: "رضا کریمی", NationalCode: "0087654321"}, Policy: entity.PolicyRef{InsuranceType: "ثالث", PolicyNumber: "1002"}},
		},
	}
}

// seed stores rows as given, bypassing validation.
func (f *fakeRepo) seed(items ...entity.Installment) {
	for _, it := range items {
		it := it
		_ = f.Create(context.Background(), &it)
	}
}

func (f *fakeRepo) Create(_ context.Context, it *entity.Installment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	owner, ok := f.policies[it.PolicyID]
	if !ok {
		return &pq.Error{Code: "23503"}
	}
	for _, r := range f.rows {
		if r.PolicyID == it.PolicyID && r.InstallmentNumber == it.InstallmentNumber {
			return &pq.Error{Code: "23505"}
		}
	}
	f.nextID++
	it.ID = f.nextID
	it.Customer, it.Policy = owner.Customer, owner.Policy
	cp := *it
	f.rows[it.ID] = &cp
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (*entity.Installment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRepo) List(context.Context) ([]entity.Installment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []entity.Installment{}
	for _, r := range f.rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) ListByCustomer(ctx context.Context, customerID int64) ([]entity.Installment, error) {
	all, _ := f.List(ctx)
	out := []entity.Installment{}
	for _, r := range all {
		if r.Customer.ID == customerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) Update(_ context.Context, it *entity.Installment) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[it.ID]; !ok {
		return 0, nil
	}
	cp := *it
	f.rows[it.ID] = &cp
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

type countingCache struct {
	invalidated [][]string
}

func (c *countingCache) Count(ctx context.Context, _ string, compute func(context.Context) (int, error)) (int, error) {
	return compute(ctx)
}

func (c *countingCache) Invalidate(_ context.Context, names ...string) {
	c.invalidated = append(c.invalidated, names)
}
