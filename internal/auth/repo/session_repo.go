package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type SessionRepo struct {
	db *sqlx.DB
}

func NewSessionRepo(db *sqlx.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Save(ctx context.Context, id string, customerID int64, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO sessions (id, customer_id, expires_at) VALUES ($1, $2, $3)`, id, customerID, expiresAt)
	return err
}

// Get returns the customer and expiry of a session, or sql.ErrNoRows.
func (r *SessionRepo) Get(ctx context.Context, id string) (int64, time.Time, error) {
	var row struct {
		CustomerID int64     `db:"customer_id"`
		ExpiresAt  time.Time `db:"expires_at"`
	}
	if err := r.db.GetContext(ctx, &row, `SELECT customer_id, expires_at FROM sessions WHERE id = $1`, id); err != nil {
		return 0, time.Time{}, err
	}
	return row.CustomerID, row.ExpiresAt, nil
}

func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// DeleteExpired prunes sessions that ended before now.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
