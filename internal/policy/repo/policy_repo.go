package repo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	instentity "github.com/bimerz/portal-service/internal/installment/entity"
	"github.com/bimerz/portal-service/internal/policy/entity"
)

// PolicyRepo provides data access for the policies table using sqlx.
type PolicyRepo struct {
	db *sqlx.DB
}

func NewPolicyRepo(db *sqlx.DB) *PolicyRepo { return &PolicyRepo{db: db} }

const selectPolicy = `SELECT p.id, p.customer_id, p.policy_number, p.insurance_type, p.details, p.start_date, p.end_date,
		p.premium, p.status, p.payment_type, p.payment_id, p.payment_link, p.installment_count, p.installment_type,
		p.first_installment_amount, p.pdf_path, p.created_at, p.updated_at,
		c.full_name AS "customer.full_name", c.national_code AS "customer.national_code"
	FROM policies p JOIN customers c ON c.id = p.customer_id`

// Create inserts the policy and its generated installments in one transaction.
func (r *PolicyRepo) Create(ctx context.Context, p *entity.Policy, items []instentity.Installment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const q = `INSERT INTO policies (customer_id, policy_number, insurance_type, details, start_date, end_date, premium, status,
			payment_type, payment_id, payment_link, installment_count, installment_type, first_installment_amount)
		VALUES (:customer_id, :policy_number, :insurance_type, :details, :start_date, :end_date, :premium, :status,
			:payment_type, :payment_id, :payment_link, :installment_count, :installment_type, :first_installment_amount)
		RETURNING id, created_at, updated_at`
	rows, err := sqlx.NamedQueryContext(ctx, tx, q, p)
	if err != nil {
		return err
	}
	if !rows.Next() {
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		return fmt.Errorf("no id returned")
	}
	if err := rows.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	const qi = `INSERT INTO installments (policy_id, installment_number, amount, due_date, status, pay_link)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, it := range items {
		if _, err := tx.ExecContext(ctx, qi, p.ID, it.InstallmentNumber, it.Amount, it.DueDate, it.Status, it.PayLink); err != nil {
			return fmt.Errorf("insert installment %d: %w", it.InstallmentNumber, err)
		}
	}
	return tx.Commit()
}

// GetByID returns the policy or sql.ErrNoRows.
func (r *PolicyRepo) GetByID(ctx context.Context, id int64) (*entity.Policy, error) {
	var p entity.Policy
	if err := r.db.GetContext(ctx, &p, selectPolicy+` WHERE p.id = $1`, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PolicyRepo) List(ctx context.Context) ([]entity.Policy, error) {
	out := []entity.Policy{}
	if err := r.db.SelectContext(ctx, &out, selectPolicy+` ORDER BY p.id`); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PolicyRepo) ListByCustomer(ctx context.Context, customerID int64) ([]entity.Policy, error) {
	out := []entity.Policy{}
	if err := r.db.SelectContext(ctx, &out, selectPolicy+` WHERE p.customer_id = $1 ORDER BY p.id`, customerID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PolicyRepo) Update(ctx context.Context, p *entity.Policy) (int64, error) {
	const q = `UPDATE policies SET customer_id=:customer_id, policy_number=:policy_number, insurance_type=:insurance_type,
		details=:details, start_date=:start_date, end_date=:end_date, premium=:premium, status=:status,
		payment_type=:payment_type, payment_id=:payment_id, payment_link=:payment_link,
		installment_count=:installment_count, installment_type=:installment_type,
		first_installment_amount=:first_installment_amount, updated_at=NOW()
		WHERE id=:id`
	res, err := r.db.NamedExecContext(ctx, q, p)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PolicyRepo) SetPDF(ctx context.Context, id int64, path string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE policies SET pdf_path=$2, updated_at=NOW() WHERE id=$1`, id, path)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PolicyRepo) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM policies WHERE id=$1`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PolicyRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM policies`)
	return n, err
}

// CustomerIDByNationalCode resolves a customer reference given by national code.
func (r *PolicyRepo) CustomerIDByNationalCode(ctx context.Context, code string) (int64, error) {
	var id int64
	err := r.db.GetContext(ctx, &id, `SELECT id FROM customers WHERE national_code = $1`, code)
	return id, err
}
