package entity

import (
	"time"

	"github.com/bimerz/portal-service/internal/money"
)

// Installment is a row of the `installments` table joined with the owning
// policy and customer. Amount and DueDate are kept as entered; they are parsed
// when the row is mapped for display, and a value that does not parse is
// flagged there rather than rejected here.
type Installment struct {
	ID                int64       `db:"id" json:"id"`
	PolicyID          int64       `db:"policy_id" json:"policy_id"`
	InstallmentNumber int         `db:"installment_number" json:"installment_number"`
	Amount            string      `db:"amount" json:"amount"`
	DueDate           string      `db:"due_date" json:"due_date"`
	Status            string      `db:"status" json:"status"`
	PayLink           string      `db:"pay_link" json:"pay_link,omitempty"`
	Customer          CustomerRef `db:"customer" json:"customer"`
	Policy            PolicyRef   `db:"policy" json:"policy"`
	CreatedAt         time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at" json:"updated_at"`
}

type CustomerRef struct {
	ID           int64  `db:"id" json:"-"`
	FullName     string `db:"full_name" json:"full_name"`
	NationalCode string `db:"national_code" json:"national_code"`
}

type PolicyRef struct {
	InsuranceType string `db:"insurance_type" json:"insurance_type"`
	PolicyNumber  string `db:"policy_number" json:"policy_number,omitempty"`
}

// Input creates one installment by hand.
type Input struct {
	PolicyID          int64        `json:"policy_id" validate:"required,gt=0"`
	InstallmentNumber int          `json:"installment_number" validate:"required,gte=1"`
	Amount            money.Amount `json:"amount" validate:"required,money"`
	DueDate           string       `json:"due_date" validate:"required,jalali"`
	Status            string       `json:"status"`
	PayLink           string       `json:"pay_link" validate:"omitempty,url"`
}

// Patch is a partial update; nil fields are left alone. Marking an
// installment paid is a Patch with only Status set.
type Patch struct {
	Amount  *money.Amount `json:"amount" validate:"omitempty,money"`
	DueDate *string       `json:"due_date" validate:"omitempty,jalali"`
	Status  *string       `json:"status"`
	PayLink *string       `json:"pay_link" validate:"omitempty,url"`
}
