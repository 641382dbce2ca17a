package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/bimerz/portal-service/internal/installment/entity"
)

// InstallmentRepo provides data access for the installments table using sqlx.
type InstallmentRepo struct {
	db *sqlx.DB
}

func NewInstallmentRepo(db *sqlx.DB) *InstallmentRepo { return &InstallmentRepo{db: db} }

const selectInstallment = `SELECT i.id, i.policy_id, i.installment_number, i.amount, i.due_date, i.status, i.pay_link,
		i.created_at, i.updated_at,
		c.id AS "customer.id", c.full_name AS "customer.full_name", c.national_code AS "customer.national_code",
		p.insurance_type AS "policy.insurance_type", p.policy_number AS "policy.policy_number"
	FROM installments i
	JOIN policies p ON p.id = i.policy_id
	JOIN customers c ON c.id = p.customer_id`

func (r *InstallmentRepo) Create(ctx context.Context, it *entity.Installment) error {
	const q = `INSERT INTO installments (policy_id, installment_number, amount, due_date, status, pay_link)
		VALUES (:policy_id, :installment_number, :amount, :due_date, :status, :pay_link)
		RETURNING id, created_at, updated_at`
	rows, err := r.db.NamedQueryContext(ctx, q, it)
	if err != nil {
		return err
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&it.ID, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return err
		}
	}
	return rows.Err()
}

// GetByID returns the installment or sql.ErrNoRows.
func (r *InstallmentRepo) GetByID(ctx context.Context, id int64) (*entity.Installment, error) {
	var it entity.Installment
	if err := r.db.GetContext(ctx, &it, selectInstallment+` WHERE i.id = $1`, id); err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *InstallmentRepo) List(ctx context.Context) ([]entity.Installment, error) {
	out := []entity.Installment{}
	if err := r.db.SelectContext(ctx, &out, selectInstallment+` ORDER BY i.policy_id, i.installment_number`); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *InstallmentRepo) ListByCustomer(ctx context.Context, customerID int64) ([]entity.Installment, error) {
	out := []entity.Installment{}
	q := selectInstallment + ` WHERE c.id = $1 ORDER BY i.policy_id, i.installment_number`
	if err := r.db.SelectContext(ctx, &out, q, customerID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *InstallmentRepo) Update(ctx context.Context, it *entity.Installment) (int64, error) {
	const q = `UPDATE installments SET amount=:amount, due_date=:due_date, status=:status, pay_link=:pay_link, updated_at=NOW()
		WHERE id=:id`
	res, err := r.db.NamedExecContext(ctx, q, it)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *InstallmentRepo) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM installments WHERE id=$1`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
