package entity

import (
	"time"

	"github.com/bimerz/portal-service/internal/money"
)

const (
	PaymentCash        = "نقدی"
	PaymentInstallment = "اقساطی"

	PlanPrepayment = "پیش پرداخت"
	PlanAllInstall = "تمام قسط"
)

// Types lists the insurance lines the portal sells.
var Types = []string{"ثالث", "بدنه", "آتش سوزی", "حوادث", "زندگی", "مسئولیت"}

// Policy is a row of the `policies` table joined with its customer. Dates are
// Jalaali text; Premium and FirstInstallmentAmount are kept as entered.
type Policy struct {
	ID                     int64       `db:"id" json:"id"`
	CustomerID             int64       `db:"customer_id" json:"customer_id"`
	PolicyNumber           string      `db:"policy_number" json:"policy_number"`
	InsuranceType          string      `db:"insurance_type" json:"insurance_type"`
	Details                string      `db:"details" json:"details"`
	StartDate              string      `db:"start_date" json:"start_date"`
	EndDate                string      `db:"end_date" json:"end_date"`
	Premium                string      `db:"premium" json:"premium"`
	Status                 string      `db:"status" json:"status"`
	PaymentType            string      `db:"payment_type" json:"payment_type"`
	PaymentID              string      `db:"payment_id" json:"payment_id,omitempty"`
	PaymentLink            string      `db:"payment_link" json:"payment_link,omitempty"`
	InstallmentCount       int         `db:"installment_count" json:"installment_count,omitempty"`
	InstallmentType        string      `db:"installment_type" json:"installment_type,omitempty"`
	FirstInstallmentAmount string      `db:"first_installment_amount" json:"first_installment_amount,omitempty"`
	PDFPath                string      `db:"pdf_path" json:"-"`
	Customer               CustomerRef `db:"customer" json:"customer"`
	CreatedAt              time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time   `db:"updated_at" json:"updated_at"`
}

func (p *Policy) HasPDF() bool { return p.PDFPath != "" }

type CustomerRef struct {
	FullName     string `db:"full_name" json:"full_name"`
	NationalCode string `db:"national_code" json:"national_code"`
}

// Input is the create/update payload. The customer is given by id or by
// national code; a missing policy number is generated.
type Input struct {
	CustomerID             int64        `json:"customer_id" validate:"required_without=CustomerNationalCode"`
	CustomerNationalCode   string       `json:"customer_national_code" validate:"omitempty,len=10,numeric"`
	PolicyNumber           string       `json:"policy_number" validate:"omitempty,max=64"`
	InsuranceType          string       `json:"insurance_type" validate:"required,max=64"`
	Details                string       `json:"details" validate:"max=500"`
	StartDate              string       `json:"start_date" validate:"required,jalali"`
	EndDate                string       `json:"end_date" validate:"omitempty,jalali"`
	Premium                money.Amount `json:"premium" validate:"required,money"`
	Status                 string       `json:"status" validate:"max=64"`
	PaymentType            string       `json:"payment_type" validate:"required,oneof=نقدی اقساطی"`
	PaymentID              string       `json:"payment_id"`
	PaymentLink            string       `json:"payment_link" validate:"omitempty,url"`
	InstallmentCount       int          `json:"installment_count" validate:"gte=0,lte=120"`
	InstallmentType        string       `json:"installment_type"`
	FirstInstallmentAmount money.Amount `json:"first_installment_amount" validate:"omitempty,money"`
}
