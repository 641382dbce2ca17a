package installment

import (
	"errors"
	"time"

	"github.com/bimerz/portal-service/internal/engine"
	"github.com/bimerz/portal-service/internal/installment/entity"
	"github.com/bimerz/portal-service/internal/jalali"
	"github.com/bimerz/portal-service/internal/money"
)

// ToRow maps a stored installment to its display row with the status derived
// against now. A due date or amount that does not parse still yields a row,
// flagged through DueOK/AmountOK, and the parse problems are returned.
func ToRow(rec entity.Installment, now time.Time, loc *time.Location) (engine.Installment, error) {
	row := engine.Installment{
		ID:           rec.ID,
		PolicyID:     rec.PolicyID,
		Number:       rec.InstallmentNumber,
		CustomerName: rec.Customer.FullName,
		NationalCode: rec.Customer.NationalCode,
		PolicyType:   rec.Policy.InsuranceType,
		PolicyNumber: rec.Policy.PolicyNumber,
		StoredStatus: rec.Status,
		PayLink:      rec.PayLink,
	}
	var errs []error

	amount, err := money.Parse(rec.Amount)
	if err != nil {
		errs = append(errs, &engine.ParseError{Field: "amount", Value: rec.Amount, Err: err})
	} else {
		row.Amount, row.AmountOK = amount, true
	}

	if due, err := jalali.Parse(rec.DueDate); err == nil {
		row.DueDate, row.DueOK = due, true
	}
	d, err := engine.DeriveRaw(rec.DueDate, rec.Status, now, loc)
	if err != nil {
		errs = append(errs, err)
	}
	row.Status, row.DaysOverdue = d.Status, d.DaysOverdue
	return row, errors.Join(errs...)
}
