package installment

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/bimerz/portal-service/internal/engine"
	"github.com/bimerz/portal-service/internal/money"
)

const exportSheet = "اقساط"

var exportHeadings = []any{"شماره قسط", "نام مشتری", "کد ملی", "نوع بیمه", "شماره بیمه نامه", "مبلغ (ریال)", "سررسید", "وضعیت", "روزهای معوق"}

// Export writes the filtered and sorted installments, every page, as an xlsx workbook.
func (s *Service) Export(ctx context.Context, w io.Writer, c engine.InstallmentCriteria, v engine.View) error {
	v.Page, v.Size = 1, 0
	page, err := s.AdminList(ctx, c, v)
	if err != nil {
		return err
	}
	f, err := workbook(page.Items)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

func workbook(rows []engine.Installment) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}
	rtl := true
	if err := f.SetSheetView(exportSheet, 0, &excelize.ViewOptions{RightToLeft: &rtl}); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeadings); err != nil {
		return nil, err
	}
	for i, r := range rows {
		amount := ""
		if r.AmountOK {
			amount = money.Group(r.Amount)
		}
		due := ""
		if r.DueOK {
			due = r.DueDate.String()
		}
		values := []any{r.Number, r.CustomerName, r.NationalCode, r.PolicyType, r.PolicyNumber, amount, due, r.Status.Label(), r.DaysOverdue}
		if err := f.SetSheetRow(exportSheet, fmt.Sprintf("A%d", i+2), &values); err != nil {
			return nil, err
		}
	}
	return f, nil
}
