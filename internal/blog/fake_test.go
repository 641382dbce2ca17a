package blog

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/bimerz/portal-service/internal/blog/entity"
)

type fakeRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*entity.Blog
	now    time.Time
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[int64]*entity.Blog{}, now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeRepo) Create(_ context.Context, b *entity.Blog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	b.ID = f.nextID
	// one day apart so date ordering is observable
	b.CreatedAt = f.now.AddDate(0, 0, int(b.ID))
	b.UpdatedAt = b.CreatedAt
	cp := *b
	f.rows[b.ID] = &cp
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (*entity.Blog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

func (f *fakeRepo) List(context.Context) ([]entity.Blog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []entity.Blog{}
	for _, b := range f.rows {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeRepo) Update(_ context.Context, b *entity.Blog) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[b.ID]; !ok {
		return 0, nil
	}
	cp := *b
	f.rows[b.ID] = &cp
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
