package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bimerz/portal-service/internal/jalali"
)

func inst(id int64, amount int64, due string, status Status) Installment {
	return Installment{
		ID:       id,
		Amount:   amount,
		AmountOK: true,
		DueDate:  jalali.MustParse(due),
		DueOK:    true,
		Status:   status,
	}
}

func ids(rows []Installment) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func amounts(rows []Installment) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.Amount
	}
	return out
}

func TestAmountSortCycle(t *testing.T) {
	rows := []Installment{
		inst(1, 100000, "1403/02/01", StatusUpcoming),
		inst(2, 500000, "1403/02/02", StatusUpcoming),
		inst(3, 250000, "1403/02/03", StatusUpcoming),
	}
	var s SortState
	s, err := InstallmentTable.Activate(s, "amount")
	require.NoError(t, err)
	assert.Equal(t, []int64{500000, 250000, 100000}, amounts(InstallmentTable.Sort(rows, s, DateNone)))

	s, err = InstallmentTable.Activate(s, "amount")
	require.NoError(t, err)
	assert.Equal(t, []int64{100000, 250000, 500000}, amounts(InstallmentTable.Sort(rows, s, DateNone)))

	// input untouched
	assert.Equal(t, []int64{1, 2, 3}, ids(rows))
}

func TestModeCycleLengths(t *testing.T) {
	cases := map[string]int{
		"status":       3,
		"amount":       2,
		"dueDate":      2,
		"customerName": 2,
		"policyType":   2,
	}
	for key, n := range cases {
		t.Run(key, func(t *testing.T) {
			col, ok := InstallmentTable.Column(key)
			require.True(t, ok)
			require.Len(t, col.Modes, n)

			var s SortState
			var err error
			s, err = InstallmentTable.Activate(s, key)
			require.NoError(t, err)
			first := s.Mode(key)
			assert.Equal(t, col.Modes[0], first)

			seen := map[Mode]bool{first: true}
			for i := 0; i < n; i++ {
				s, err = InstallmentTable.Activate(s, key)
				require.NoError(t, err)
				if i < n-1 {
					seen[s.Mode(key)] = true
				}
			}
			assert.Len(t, seen, n)
			assert.Equal(t, first, s.Mode(key), "N+1 activations return to the first mode")
		})
	}
}

func TestCycle(t *testing.T) {
	col, _ := InstallmentTable.Column("status")
	assert.Equal(t, OverdueFirst, Cycle(SortState{}, col, 4).Mode("status"))
	assert.Equal(t, PaidFirst, Cycle(SortState{}, col, 3).Mode("status"))
	assert.Equal(t, SortState{}, Cycle(SortState{}, col, 0))
}

func TestActivateOtherColumnResets(t *testing.T) {
	var s SortState
	s, _ = InstallmentTable.Activate(s, "amount")
	s, _ = InstallmentTable.Activate(s, "amount")
	require.Equal(t, Ascending, s.Mode("amount"))

	s, _ = InstallmentTable.Activate(s, "customerName")
	assert.Equal(t, "customerName", s.Active)
	assert.Equal(t, Ascending, s.Mode("customerName"))

	s, _ = InstallmentTable.Activate(s, "amount")
	assert.Equal(t, Descending, s.Mode("amount"), "re-activating resets to the first mode")
}

func TestActivateDoesNotMutateInput(t *testing.T) {
	s0, _ := InstallmentTable.Activate(SortState{}, "amount")
	s1, _ := InstallmentTable.Activate(s0, "amount")
	assert.Equal(t, Descending, s0.Mode("amount"))
	assert.Equal(t, Ascending, s1.Mode("amount"))
}

func TestActivateUnknownColumn(t *testing.T) {
	_, err := InstallmentTable.Activate(SortState{}, "color")
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestSelect(t *testing.T) {
	s, err := InstallmentTable.Select(SortState{}, "status", PaidFirst)
	require.NoError(t, err)
	assert.Equal(t, PaidFirst, s.Mode("status"))

	_, err = InstallmentTable.Select(SortState{}, "amount", PaidFirst)
	assert.ErrorIs(t, err, ErrUnknownMode)

	s, err = InstallmentTable.Select(SortState{}, "amount", "")
	require.NoError(t, err)
	assert.Equal(t, Descending, s.Mode("amount"))
}

func TestStatusPriorityModes(t *testing.T) {
	rows := []Installment{
		inst(1, 1, "1403/02/01", StatusPaid),
		inst(2, 1, "1403/02/01", StatusUpcoming),
		inst(3, 1, "1403/02/01", StatusUnknown),
		inst(4, 1, "1403/02/01", StatusOverdue),
		inst(5, 1, "1403/02/01", StatusUpcoming),
	}
	var s SortState
	s, _ = InstallmentTable.Activate(s, "status")
	assert.Equal(t, []int64{4, 2, 5, 1, 3}, ids(InstallmentTable.Sort(rows, s, DateNone)))

	s, _ = InstallmentTable.Activate(s, "status")
	assert.Equal(t, []int64{2, 5, 4, 1, 3}, ids(InstallmentTable.Sort(rows, s, DateNone)))

	s, _ = InstallmentTable.Activate(s, "status")
	assert.Equal(t, []int64{1, 4, 2, 5, 3}, ids(InstallmentTable.Sort(rows, s, DateNone)))
}

func TestSortStableOnTies(t *testing.T) {
	rows := []Installment{
		inst(7, 100, "1403/02/01", StatusUpcoming),
		inst(3, 100, "1403/02/01", StatusUpcoming),
		inst(9, 100, "1403/02/01", StatusUpcoming),
		inst(1, 100, "1403/02/01", StatusUpcoming),
	}
	for _, key := range InstallmentTable.Keys() {
		s, err := InstallmentTable.Activate(SortState{}, key)
		require.NoError(t, err)
		assert.Equal(t, []int64{7, 3, 9, 1}, ids(InstallmentTable.Sort(rows, s, DateNone)), key)
		assert.Equal(t, []int64{7, 3, 9, 1}, ids(InstallmentTable.Sort(rows, s, DateNewest)), key)
	}
	assert.Equal(t, []int64{7, 3, 9, 1}, ids(InstallmentTable.Sort(rows, SortState{}, DateNone)))
}

func TestDateOrderOverridesColumn(t *testing.T) {
	rows := []Installment{
		inst(1, 900, "1403/01/10", StatusOverdue),
		inst(2, 100, "1403/03/01", StatusUpcoming),
		inst(3, 500, "1403/02/05", StatusUpcoming),
		inst(4, 700, "1403/03/01", StatusUpcoming),
	}
	s, _ := InstallmentTable.Activate(SortState{}, "amount") // large first

	assert.Equal(t, []int64{4, 2, 3, 1}, ids(InstallmentTable.Sort(rows, s, DateNewest)),
		"newest first, amount only breaks the 1403/03/01 tie")
	assert.Equal(t, []int64{1, 3, 4, 2}, ids(InstallmentTable.Sort(rows, s, DateOldest)))

	// without an active column, tied dates keep input order
	assert.Equal(t, []int64{2, 4, 3, 1}, ids(InstallmentTable.Sort(rows, SortState{}, DateNewest)))
}

func TestDateOrderPutsUnknownDatesLast(t *testing.T) {
	bad := Installment{ID: 9, Status: StatusUnknown}
	rows := []Installment{bad, inst(1, 1, "1403/01/01", StatusOverdue), inst(2, 1, "1403/05/01", StatusUpcoming)}
	assert.Equal(t, []int64{2, 1, 9}, ids(InstallmentTable.Sort(rows, SortState{}, DateNewest)))
	assert.Equal(t, []int64{1, 2, 9}, ids(InstallmentTable.Sort(rows, SortState{}, DateOldest)))
}

func TestTextColumnUsesCollation(t *testing.T) {
	rows := []Installment{
		{ID: 1, CustomerName: "محمد"},
		{ID: 2, CustomerName: "آرش"},
		{ID: 3, CustomerName: "بهرام"},
	}
	s, _ := InstallmentTable.Activate(SortState{}, "customerName")
	assert.Equal(t, []int64{2, 3, 1}, ids(InstallmentTable.Sort(rows, s, DateNone)))
	s, _ = InstallmentTable.Activate(s, "customerName")
	assert.Equal(t, []int64{1, 3, 2}, ids(InstallmentTable.Sort(rows, s, DateNone)))
}

func TestPolicyNumberSortsNumerically(t *testing.T) {
	rows := []Policy{{ID: 1, PolicyNumber: "100"}, {ID: 2, PolicyNumber: "20"}, {ID: 3, PolicyNumber: "3"}}
	s, _ := PolicyTable.Activate(SortState{}, "policyNumber")
	sorted := PolicyTable.Sort(rows, s, DateNone)
	assert.Equal(t, int64(3), sorted[0].ID)
	assert.Equal(t, int64(1), sorted[2].ID)
}

func TestCustomerScoreOrder(t *testing.T) {
	rows := []Customer{{ID: 1, Score: "C"}, {ID: 2, Score: "A"}, {ID: 3, Score: "D"}, {ID: 4, Score: "B"}}
	s, _ := CustomerTable.Activate(SortState{}, "score")
	sorted := CustomerTable.Sort(rows, s, DateNone)
	got := []string{sorted[0].Score, sorted[1].Score, sorted[2].Score, sorted[3].Score}
	assert.Equal(t, []string{"A", "B", "C", "D"}, got)
}

func TestPaginate(t *testing.T) {
	rows := []int{1, 2, 3, 4, 5, 6, 7}
	page, pages := Paginate(rows, 2, 3)
	assert.Equal(t, []int{4, 5, 6}, page)
	assert.Equal(t, 3, pages)

	page, _ = Paginate(rows, 3, 3)
	assert.Equal(t, []int{7}, page)

	page, _ = Paginate(rows, 9, 3)
	assert.Empty(t, page)

	page, pages = Paginate([]int{}, 1, 10)
	assert.Empty(t, page)
	assert.Equal(t, 1, pages)

	page, _ = Paginate(rows, 1, 0)
	assert.Len(t, page, 7)
}

func TestSortIsIdempotent(t *testing.T) {
	rows := []Installment{
		inst(1, 300, "1403/02/01", StatusOverdue),
		inst(2, 100, "1403/02/03", StatusUpcoming),
		inst(3, 200, "1403/02/02", StatusPaid),
	}
	s, _ := InstallmentTable.Activate(SortState{}, "status")
	a := InstallmentTable.Sort(rows, s, DateOldest)
	b := InstallmentTable.Sort(rows, s, DateOldest)
	assert.Equal(t, a, b)
}

func TestApply(t *testing.T) {
	rows := []Installment{
		inst(1, 300, "1403/02/01", StatusOverdue),
		inst(2, 100, "1403/02/03", StatusUpcoming),
		inst(3, 200, "1403/02/02", StatusPaid),
		inst(4, 400, "1403/02/04", StatusUpcoming),
	}
	p, err := Apply(InstallmentTable, rows, InstallmentCriteria{Status: "all"}.Predicate(), View{Sort: "amount", Size: 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 1, 3}, ids(p.Items))
	assert.Equal(t, 4, p.Total)
	assert.Equal(t, 2, p.Pages)
	assert.Equal(t, Descending, p.Mode)
	assert.Equal(t, DateNone, p.Date)

	p, err = Apply(InstallmentTable, rows, nil, View{Sort: "amount", Mode: Ascending, Date: DateNewest})
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 2, 3, 1}, ids(p.Items))

	_, err = Apply(InstallmentTable, rows, nil, View{Sort: "nope"})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestApplyStateUsesHeldSort(t *testing.T) {
	rows := []Installment{
		inst(1, 300, "1403/02/01", StatusOverdue),
		inst(2, 100, "1403/02/03", StatusUpcoming),
		inst(3, 200, "1403/02/02", StatusPaid),
	}
	s, err := InstallmentTable.Activate(SortState{}, "amount")
	require.NoError(t, err)
	s, err = InstallmentTable.Activate(s, "amount")
	require.NoError(t, err)

	p := ApplyState(InstallmentTable, rows, nil, s, "", 0, 2)
	assert.Equal(t, []int64{2, 3}, ids(p.Items))
	assert.Equal(t, Ascending, p.Mode)
	assert.Equal(t, "amount", p.Sort)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 2, p.Pages)
	assert.Equal(t, DateNone, p.Date)

	v, err := Apply(InstallmentTable, rows, nil, View{Sort: "amount", Mode: Ascending, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, p, v)
}
