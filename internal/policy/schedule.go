package policy

import (
	"fmt"

	"github.com/bimerz/portal-service/internal/jalali"
	"github.com/bimerz/portal-service/internal/money"
	"github.com/bimerz/portal-service/internal/policy/entity"
)

// Due is one generated installment of a plan.
type Due struct {
	Number int
	Amount int64
	Date   jalali.Date
}

// Schedule lays out count monthly installments starting on start.
//
// With the all-installment plan the premium is split evenly. With the
// prepayment plan the first installment is the prepayment and the rest of the
// premium is split over the remaining ones. Either way the rounding remainder
// lands on the last installment, so the amounts always sum to the premium.
func Schedule(start jalali.Date, premium int64, count int, plan string, first int64) ([]Due, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: installment count must be positive", ErrInvalidPlan)
	}
	var amounts []int64
	switch plan {
	case entity.PlanAllInstall:
		amounts = money.Split(premium, count)
	case entity.PlanPrepayment:
		if first <= 0 || first > premium {
			return nil, fmt.Errorf("%w: prepayment must be between 1 and the premium", ErrInvalidPlan)
		}
		if count == 1 {
			amounts = []int64{premium}
			break
		}
		amounts = append([]int64{first}, money.Split(premium-first, count-1)...)
	default:
		return nil, fmt.Errorf("%w: unknown plan %q", ErrInvalidPlan, plan)
	}
	out := make([]Due, count)
	for i, a := range amounts {
		out[i] = Due{Number: i + 1, Amount: a, Date: start.AddMonths(i)}
	}
	return out, nil
}
