package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/bimerz/portal-service/internal/customer/entity"
)

// CustomerRepo provides data access for the customers table using sqlx.
type CustomerRepo struct {
	db *sqlx.DB
}

func NewCustomerRepo(db *sqlx.DB) *CustomerRepo { return &CustomerRepo{db: db} }

// active_policies counts policies whose stored status is not expired.
const selectCustomer = `SELECT c.id, c.full_name, c.national_code, c.insurance_code_hash, c.phone, c.email,
		c.birth_date, c.score, c.role, c.status, c.totp_secret, c.totp_enabled,
		c.login_failed_attempts, c.locked_until, c.last_login_at, c.created_at, c.updated_at,
		(SELECT COUNT(*) FROM policies p WHERE p.customer_id = c.id AND p.status <> 'منقضی') AS active_policies
	FROM customers c`

// Create inserts a new customer row. Returns new ID.
func (r *CustomerRepo) Create(ctx context.Context, c *entity.Customer) (int64, error) {
	const q = `INSERT INTO customers (full_name, national_code, insurance_code_hash, phone, email, birth_date, score, role, status)
		VALUES (:full_name, :national_code, :insurance_code_hash, :phone, :email, :birth_date, :score, :role, :status) RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, q, c)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&c.ID); err != nil {
			return 0, err
		}
		return c.ID, nil
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	return 0, errors.New("no id returned")
}

// GetByID returns the customer or sql.ErrNoRows.
func (r *CustomerRepo) GetByID(ctx context.Context, id int64) (*entity.Customer, error) {
	var c entity.Customer
	if err := r.db.GetContext(ctx, &c, selectCustomer+` WHERE c.id = $1`, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByNationalCode returns the customer or sql.ErrNoRows.
func (r *CustomerRepo) GetByNationalCode(ctx context.Context, code string) (*entity.Customer, error) {
	var c entity.Customer
	if err := r.db.GetContext(ctx, &c, selectCustomer+` WHERE c.national_code = $1`, code); err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns every customer in id order; filtering and sorting happen in the service.
func (r *CustomerRepo) List(ctx context.Context) ([]entity.Customer, error) {
	out := []entity.Customer{}
	if err := r.db.SelectContext(ctx, &out, selectCustomer+` ORDER BY c.id`); err != nil {
		return nil, err
	}
	return out, nil
}

// Update writes the editable profile fields and returns the affected row count.
func (r *CustomerRepo) Update(ctx context.Context, c *entity.Customer) (int64, error) {
	const q = `UPDATE customers SET full_name=:full_name, national_code=:national_code, insurance_code_hash=:insurance_code_hash,
		phone=:phone, email=:email, birth_date=:birth_date, score=:score, role=:role, status=:status, updated_at=NOW()
		WHERE id=:id`
	res, err := r.db.NamedExecContext(ctx, q, c)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *CustomerRepo) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id=$1`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Count returns the number of customer accounts (staff excluded).
func (r *CustomerRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM customers WHERE role = 'customer'`)
	return n, err
}

// IncrementFailedLogin increments the failure counter atomically and returns new value.
func (r *CustomerRepo) IncrementFailedLogin(ctx context.Context, id int64) (int, error) {
	const q = `UPDATE customers SET login_failed_attempts = login_failed_attempts + 1, updated_at=NOW() WHERE id=$1 RETURNING login_failed_attempts`
	var v int
	if err := r.db.GetContext(ctx, &v, q, id); err != nil {
		return 0, err
	}
	return v, nil
}

// LockIfThreshold locks the account for lockMinutes once attempts reach threshold.
func (r *CustomerRepo) LockIfThreshold(ctx context.Context, id int64, threshold int, lockMinutes int) (bool, error) {
	const q = `UPDATE customers SET locked_until = NOW() + make_interval(mins => $2), updated_at=NOW()
		WHERE id=$1 AND login_failed_attempts >= $3 RETURNING 1`
	var one int
	err := r.db.GetContext(ctx, &one, q, id, lockMinutes, threshold)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ResetLoginSuccess resets failure metrics on successful authentication.
func (r *CustomerRepo) ResetLoginSuccess(ctx context.Context, id int64) error {
	const q = `UPDATE customers SET login_failed_attempts=0, last_login_at=NOW(), locked_until=NULL, updated_at=NOW() WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// SetTOTP stores the shared secret and whether second-factor checks are on.
func (r *CustomerRepo) SetTOTP(ctx context.Context, id int64, secret string, enabled bool) error {
	const q = `UPDATE customers SET totp_secret=$2, totp_enabled=$3, updated_at=NOW() WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, id, secret, enabled)
	return err
}

// HasAdmin reports whether any full admin account exists.
func (r *CustomerRepo) HasAdmin(ctx context.Context) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok, `SELECT EXISTS (SELECT 1 FROM customers WHERE role = 'admin')`)
	return ok, err
}
