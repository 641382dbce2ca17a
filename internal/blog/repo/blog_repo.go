package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/bimerz/portal-service/internal/blog/entity"
)

// Repo is the repository for blogs backed by PostgreSQL.
type Repo struct {
	db *sqlx.DB
}

func NewRepo(db *sqlx.DB) *Repo {
	return &Repo{db: db}
}

const selectBlog = `SELECT id, title, summary, content, category, image_path, created_at, updated_at FROM blogs`

func (r *Repo) Create(ctx context.Context, b *entity.Blog) error {
	const q = `INSERT INTO blogs (title, summary, content, category, image_path)
		VALUES (:title, :summary, :content, :category, :image_path)
		RETURNING id, created_at, updated_at`
	rows, err := r.db.NamedQueryContext(ctx, q, b)
	if err != nil {
		return err
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return err
		}
	}
	return rows.Err()
}

// GetByID returns the blog or sql.ErrNoRows.
func (r *Repo) GetByID(ctx context.Context, id int64) (*entity.Blog, error) {
	var b entity.Blog
	if err := r.db.GetContext(ctx, &b, selectBlog+` WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &b, nil
}

// List returns all blogs, newest first.
func (r *Repo) List(ctx context.Context) ([]entity.Blog, error) {
	out := []entity.Blog{}
	if err := r.db.SelectContext(ctx, &out, selectBlog+` ORDER BY created_at DESC, id DESC`); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) Update(ctx context.Context, b *entity.Blog) (int64, error) {
	const q = `UPDATE blogs SET title=:title, summary=:summary, content=:content, category=:category,
		image_path=:image_path, updated_at=NOW() WHERE id=:id`
	res, err := r.db.NamedExecContext(ctx, q, b)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Repo) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blogs WHERE id=$1`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
