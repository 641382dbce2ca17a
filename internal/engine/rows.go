package engine

import (
	"strconv"
	"strings"
	"time"

	"github.com/bimerz/portal-service/internal/jalali"
)

// Installment is the display row of an installment: the stored fields plus
// the derived status. AmountOK and DueOK are false when the source value
// could not be read; such rows are kept and flagged rather than dropped.
type Installment struct {
	ID           int64       `json:"id"`
	PolicyID     int64       `json:"policy_id"`
	Number       int         `json:"installment_number"`
	CustomerName string      `json:"customer_name"`
	NationalCode string      `json:"customer_national_code"`
	PolicyType   string      `json:"policy_type"`
	PolicyNumber string      `json:"policy_number,omitempty"`
	Amount       int64       `json:"amount"`
	AmountOK     bool        `json:"amount_ok"`
	DueDate      jalali.Date `json:"due_date"`
	DueOK        bool        `json:"due_ok"`
	StoredStatus string      `json:"stored_status"`
	Status       Status      `json:"status"`
	DaysOverdue  int         `json:"days_overdue"`
	PayLink      string      `json:"pay_link,omitempty"`
}

// Rederive recomputes Status and DaysOverdue against now, as a client does
// with its own clock after fetching rows.
func (i Installment) Rederive(now time.Time, loc *time.Location) Installment {
	switch {
	case IsPaid(i.StoredStatus):
		i.Status, i.DaysOverdue = StatusPaid, 0
	case !i.DueOK:
		i.Status, i.DaysOverdue = StatusUnknown, 0
	default:
		d := Derive(i.DueDate, i.StoredStatus, now, loc)
		i.Status, i.DaysOverdue = d.Status, d.DaysOverdue
	}
	return i
}

var statusRankings = map[Mode][]string{
	OverdueFirst:  {LabelOverdue, LabelUpcoming, LabelPaid},
	UpcomingFirst: {LabelUpcoming, LabelOverdue, LabelPaid},
	PaidFirst:     {LabelPaid, LabelOverdue, LabelUpcoming},
}

// InstallmentTable is the installments grid: status cycles through three
// priority orderings, amount starts large-first, the rest start ascending.
var InstallmentTable = NewTable(
	func(i Installment) (jalali.Date, bool) { return i.DueDate, i.DueOK },
	Priority("status",
		func(i Installment) string { return i.Status.Label() },
		[]Mode{OverdueFirst, UpcomingFirst, PaidFirst},
		statusRankings,
		[]string{LabelUnknown},
	),
	Directional("dueDate", func(a, b Installment) int { return compareDate(validDate(a.DueDate, a.DueOK), validDate(b.DueDate, b.DueOK)) }, false),
	Directional("amount", func(a, b Installment) int { return compareInt(a.Amount, b.Amount) }, true),
	Directional("policyType", func(a, b Installment) int { return CompareText(a.PolicyType, b.PolicyType) }, false),
	Directional("customerName", func(a, b Installment) int { return CompareText(a.CustomerName, b.CustomerName) }, false),
	Directional("number", func(a, b Installment) int { return compareInt(int64(a.Number), int64(b.Number)) }, false),
)

// InstallmentCriteria are the installment filters; zero values do not narrow.
type InstallmentCriteria struct {
	Search     string
	MinAmount  *int64
	MaxAmount  *int64
	PolicyType string
	Status     string
}

func (c InstallmentCriteria) Predicate() Predicate[Installment] {
	return All(
		TextMatch(c.Search,
			func(i Installment) string { return i.CustomerName },
			func(i Installment) string { return i.PolicyType },
			func(i Installment) string { return i.NationalCode },
		),
		Range(c.MinAmount, c.MaxAmount, func(i Installment) (int64, bool) { return i.Amount, i.AmountOK }),
		Equals(c.PolicyType, func(i Installment) string { return i.PolicyType }),
		statusIs(c.Status),
	)
}

// statusIs accepts either the label or the English name of a status.
func statusIs(selected string) Predicate[Installment] {
	if IsAll(selected) {
		return nil
	}
	want, ok := ParseStatus(selected)
	if !ok {
		return func(Installment) bool { return false }
	}
	return func(i Installment) bool { return i.Status == want }
}

// Policy is the display row of a policy.
type Policy struct {
	ID               int64       `json:"id"`
	PolicyNumber     string      `json:"policy_number"`
	CustomerName     string      `json:"customer_name"`
	NationalCode     string      `json:"customer_national_code"`
	Type             string      `json:"type"`
	Vehicle          string      `json:"vehicle"`
	StartDate        jalali.Date `json:"start_date"`
	EndDate          jalali.Date `json:"end_date"`
	Premium          int64       `json:"premium"`
	Status           string      `json:"status"`
	PaymentType      string      `json:"payment_type"`
	PayID            string      `json:"pay_id,omitempty"`
	PayLink          string      `json:"payment_link,omitempty"`
	InstallmentCount int         `json:"installments_count,omitempty"`
	InstallmentType  string      `json:"installment_type,omitempty"`
	FirstInstallment int64       `json:"first_installment_amount,omitempty"`
	HasPDF           bool        `json:"has_pdf"`
}

var PolicyTable = NewTable(
	func(p Policy) (jalali.Date, bool) { return p.StartDate, !p.StartDate.IsZero() },
	Directional("startDate", func(a, b Policy) int { return compareDate(a.StartDate, b.StartDate) }, false),
	Directional("endDate", func(a, b Policy) int { return compareDate(a.EndDate, b.EndDate) }, false),
	Directional("policyNumber", comparePolicyNumber, false),
	Directional("customerName", func(a, b Policy) int { return CompareText(a.CustomerName, b.CustomerName) }, false),
	Directional("type", func(a, b Policy) int { return CompareText(a.Type, b.Type) }, false),
	Directional("status", func(a, b Policy) int { return CompareText(a.Status, b.Status) }, false),
	Directional("premium", func(a, b Policy) int { return compareInt(a.Premium, b.Premium) }, true),
)

// Policy numbers compare numerically when both are numeric.
func comparePolicyNumber(a, b Policy) int {
	na, errA := strconv.ParseInt(strings.TrimSpace(a.PolicyNumber), 10, 64)
	nb, errB := strconv.ParseInt(strings.TrimSpace(b.PolicyNumber), 10, 64)
	if errA == nil && errB == nil {
		return compareInt(na, nb)
	}
	return CompareText(a.PolicyNumber, b.PolicyNumber)
}

type PolicyCriteria struct {
	Search      string
	Type        string
	Status      string
	PaymentType string
}

func (c PolicyCriteria) Predicate() Predicate[Policy] {
	return All(
		TextMatch(c.Search,
			func(p Policy) string { return p.PolicyNumber },
			func(p Policy) string { return p.CustomerName },
			func(p Policy) string { return p.NationalCode },
		),
		Equals(c.Type, func(p Policy) string { return p.Type }),
		Equals(c.Status, func(p Policy) string { return p.Status }),
		Equals(c.PaymentType, func(p Policy) string { return p.PaymentType }),
	)
}

// Customer is the display row of a customer.
type Customer struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	NationalCode   string      `json:"national_code"`
	Phone          string      `json:"phone"`
	Email          string      `json:"email,omitempty"`
	BirthDate      jalali.Date `json:"birth_date"`
	JoinDate       jalali.Date `json:"join_date"`
	ActivePolicies int         `json:"active_policies"`
	Status         string      `json:"status"`
	Score          string      `json:"score"`
	Role           string      `json:"role"`
}

var scoreOrder = []string{"A", "B", "C", "D"}

var CustomerTable = NewTable(
	func(c Customer) (jalali.Date, bool) { return c.JoinDate, !c.JoinDate.IsZero() },
	Directional("name", func(a, b Customer) int { return CompareText(strings.ToLower(a.Name), strings.ToLower(b.Name)) }, false),
	Directional("score", func(a, b Customer) int { return scoreRank(a.Score) - scoreRank(b.Score) }, false),
	Directional("joinDate", func(a, b Customer) int { return compareDate(a.JoinDate, b.JoinDate) }, false),
	Directional("activePolicies", func(a, b Customer) int { return compareInt(int64(a.ActivePolicies), int64(b.ActivePolicies)) }, false),
)

// Unknown scores rank after D.
func scoreRank(s string) int {
	for i, v := range scoreOrder {
		if v == s {
			return i
		}
	}
	return len(scoreOrder)
}

type CustomerCriteria struct {
	Search string
	Score  string
	Status string
	Role   string
}

func (c CustomerCriteria) Predicate() Predicate[Customer] {
	return All(
		TextMatch(c.Search,
			func(v Customer) string { return v.Name },
			func(v Customer) string { return v.NationalCode },
			func(v Customer) string { return v.Phone },
		),
		Equals(c.Score, func(v Customer) string { return v.Score }),
		Equals(c.Status, func(v Customer) string { return v.Status }),
		Equals(c.Role, func(v Customer) string { return v.Role }),
	)
}

func validDate(d jalali.Date, ok bool) jalali.Date {
	if !ok {
		return jalali.Date{}
	}
	return d
}
