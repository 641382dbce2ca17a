package blog

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/bimerz/portal-service/internal/blog/entity"
	"github.com/bimerz/portal-service/internal/blog/repo"
	"github.com/bimerz/portal-service/internal/engine"
	"github.com/bimerz/portal-service/internal/jalali"
	"github.com/bimerz/portal-service/internal/validate"
)

var (
	ErrNotFound = errors.New("blog not found")
	ErrNoImage  = errors.New("blog has no image")
)

type Repository interface {
	Create(ctx context.Context, b *entity.Blog) error
	GetByID(ctx context.Context, id int64) (*entity.Blog, error)
	List(ctx context.Context) ([]entity.Blog, error)
	Update(ctx context.Context, b *entity.Blog) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

// Files stores blog images.
type Files interface {
	Save(r io.Reader, ext string) (string, error)
	Open(name string) (*os.File, error)
	Remove(name string) error
}

// Table is the public blog list: newest/oldest by publish day, title and category sortable.
var Table = engine.NewTable(
	func(b entity.Blog) (jalali.Date, bool) { return jalali.Today(b.CreatedAt, nil), !b.CreatedAt.IsZero() },
	engine.Directional("title", func(a, b entity.Blog) int { return engine.CompareText(a.Title, b.Title) }, false),
	engine.Directional("category", func(a, b entity.Blog) int { return engine.CompareText(a.Category, b.Category) }, false),
)

// Service encapsulates business logic for blogs and depends on a repo.
type Service struct {
	repo   Repository
	files  Files
	logger *zap.SugaredLogger
}

func NewService(db *sqlx.DB, r Repository, files Files, logger *zap.SugaredLogger) *Service {
	if r == nil {
		r = repo.NewRepo(db)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{repo: r, files: files, logger: logger}
}

// List returns one page of blogs whose title or category matches q.
func (s *Service) List(ctx context.Context, q string, v engine.View) (engine.Page[entity.Blog], error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return engine.Page[entity.Blog]{}, err
	}
	for i := range all {
		all[i].HasImage = all[i].ImagePath != ""
	}
	match := engine.TextMatch(q,
		func(b entity.Blog) string { return b.Title },
		func(b entity.Blog) string { return b.Category },
	)
	return engine.Apply(Table, all, match, v)
}

// All returns every blog as stored.
func (s *Service) All(ctx context.Context) ([]entity.Blog, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (*entity.Blog, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	b.HasImage = b.ImagePath != ""
	return b, nil
}

func (s *Service) Create(ctx context.Context, in entity.Input) (*entity.Blog, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	b := &entity.Blog{
		Title:    strings.TrimSpace(in.Title),
		Summary:  strings.TrimSpace(in.Summary),
		Content:  in.Content,
		Category: strings.TrimSpace(in.Category),
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) Update(ctx context.Context, id int64, in entity.Input) (*entity.Blog, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Title = strings.TrimSpace(in.Title)
	b.Summary = strings.TrimSpace(in.Summary)
	b.Content = in.Content
	b.Category = strings.TrimSpace(in.Category)
	rows, err := s.repo.Update(ctx, b)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrNotFound
	}
	return b, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	b, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	rows, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	if b.HasImage {
		s.removeImage(b)
	}
	return nil
}

// SetImage stores r as the blog image; ext keeps the uploaded file's type.
func (s *Service) SetImage(ctx context.Context, id int64, r io.Reader, ext string) (*entity.Blog, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	name, err := s.files.Save(r, ext)
	if err != nil {
		return nil, err
	}
	old := *b
	b.ImagePath, b.HasImage = name, true
	if _, err := s.repo.Update(ctx, b); err != nil {
		_ = s.files.Remove(name)
		return nil, err
	}
	if old.HasImage {
		s.removeImage(&old)
	}
	return b, nil
}

func (s *Service) OpenImage(ctx context.Context, id int64) (*os.File, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.HasImage {
		return nil, ErrNoImage
	}
	return s.files.Open(b.ImagePath)
}

func (s *Service) removeImage(b *entity.Blog) {
	if err := s.files.Remove(b.ImagePath); err != nil {
		s.logger.Warnw("remove blog image failed", "blog_id", b.ID, "file", b.ImagePath, "err", err)
	}
}
