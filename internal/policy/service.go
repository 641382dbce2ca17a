package policy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/bimerz/portal-service/internal/engine"
	instentity "github.com/bimerz/portal-service/internal/installment/entity"
	"github.com/bimerz/portal-service/internal/jalali"
	"github.com/bimerz/portal-service/internal/money"
	"github.com/bimerz/portal-service/internal/policy/entity"
	policyrepo "github.com/bimerz/portal-service/internal/policy/repo"
	"github.com/bimerz/portal-service/internal/validate"
	"github.com/bimerz/portal-service/pkg/database"
	"github.com/bimerz/portal-service/pkg/utilities"
)

var (
	ErrNotFound         = errors.New("policy not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrDuplicate        = errors.New("policy number already exists")
	ErrInvalidPlan      = errors.New("invalid installment plan")
	ErrNoPDF            = errors.New("policy has no document")
)

// Count names shared with the count cache.
const (
	CountPolicies   = "policies"
	CountNearExpiry = "policies:near-expiry"
)

type Repository interface {
	Create(ctx context.Context, p *entity.Policy, items []instentity.Installment) error
	GetByID(ctx context.Context, id int64) (*entity.Policy, error)
	List(ctx context.Context) ([]entity.Policy, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]entity.Policy, error)
	Update(ctx context.Context, p *entity.Policy) (int64, error)
	SetPDF(ctx context.Context, id int64, path string) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
	Count(ctx context.Context) (int, error)
	CustomerIDByNationalCode(ctx context.Context, code string) (int64, error)
}

// Files stores policy documents.
type Files interface {
	Save(r io.Reader, ext string) (string, error)
	Open(name string) (*os.File, error)
	Remove(name string) error
}

// Counter caches aggregate counts; *cache.Cache implements it, nil included.
type Counter interface {
	Count(ctx context.Context, name string, compute func(context.Context) (int, error)) (int, error)
	Invalidate(ctx context.Context, names ...string)
}

type uncached struct{}

func (uncached) Count(ctx context.Context, _ string, compute func(context.Context) (int, error)) (int, error) {
	return compute(ctx)
}

func (uncached) Invalidate(context.Context, ...string) {}

type Service struct {
	repo   Repository
	files  Files
	counts Counter
	logger *zap.SugaredLogger
	// NearExpiryDays is the window, in days, in which an active policy shows as near expiry.
	NearExpiryDays int
	Location       *time.Location
	Now            func() time.Time
}

func NewService(db *sqlx.DB, r Repository, files Files, counts Counter, logger *zap.SugaredLogger) *Service {
	if r == nil {
		r = policyrepo.NewPolicyRepo(db)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if counts == nil {
		counts = uncached{}
	}
	return &Service{
		repo:           r,
		files:          files,
		counts:         counts,
		logger:         logger,
		NearExpiryDays: 30,
		Location:       jalali.LoadLocation(""),
		Now:            time.Now,
	}
}

// Create stores a policy. Installment policies get their schedule generated
// in the same transaction.
func (s *Service) Create(ctx context.Context, in entity.Input) (*entity.Policy, error) {
	p, plan, err := s.build(ctx, in)
	if err != nil {
		return nil, err
	}
	if p.PolicyNumber == "" {
		p.PolicyNumber = utilities.NewSnowflakeID()
	}
	var items []instentity.Installment
	for _, d := range plan {
		items = append(items, instentity.Installment{
			InstallmentNumber: d.Number,
			Amount:            fmt.Sprint(d.Amount),
			DueDate:           d.Date.String(),
			Status:            engine.LabelUpcoming,
		})
	}
	if err := s.repo.Create(ctx, p, items); err != nil {
		return nil, s.mapWriteErr("create policy", err)
	}
	s.invalidate(ctx)
	return p, nil
}

// Update replaces the policy fields. The installment schedule is left as is.
func (s *Service) Update(ctx context.Context, id int64, in entity.Input) (*entity.Policy, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p, _, err := s.build(ctx, in)
	if err != nil {
		return nil, err
	}
	p.ID = id
	p.PDFPath = cur.PDFPath
	p.CreatedAt = cur.CreatedAt
	if p.PolicyNumber == "" {
		p.PolicyNumber = cur.PolicyNumber
	}
	n, err := s.repo.Update(ctx, p)
	if err != nil {
		return nil, s.mapWriteErr("update policy", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	s.invalidate(ctx)
	return p, nil
}

// build validates in and resolves it to a row plus, for installment
// policies, the payment schedule.
func (s *Service) build(ctx context.Context, in entity.Input) (*entity.Policy, []Due, error) {
	in.CustomerNationalCode = jalali.ToLatinDigits(strings.TrimSpace(in.CustomerNationalCode))
	in.PolicyNumber = strings.TrimSpace(in.PolicyNumber)
	in.InstallmentType = strings.TrimSpace(in.InstallmentType)
	if err := validate.Struct(in); err != nil {
		return nil, nil, err
	}
	start, _ := jalali.Parse(in.StartDate)
	end := start.AddYears(1)
	if in.EndDate != "" {
		end, _ = jalali.Parse(in.EndDate)
		if end.Before(start) {
			return nil, nil, fmt.Errorf("%w: end date before start date", ErrInvalidPlan)
		}
	}
	premium, _ := in.Premium.Int()

	customerID := in.CustomerID
	if customerID == 0 {
		id, err := s.repo.CustomerIDByNationalCode(ctx, in.CustomerNationalCode)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil, ErrCustomerNotFound
			}
			return nil, nil, err
		}
		customerID = id
	}

	p := &entity.Policy{
		CustomerID:    customerID,
		PolicyNumber:  in.PolicyNumber,
		InsuranceType: strings.TrimSpace(in.InsuranceType),
		Details:       strings.TrimSpace(in.Details),
		StartDate:     start.String(),
		EndDate:       end.String(),
		Premium:       fmt.Sprint(premium),
		Status:        strings.TrimSpace(in.Status),
		PaymentType:   in.PaymentType,
		PaymentID:     in.PaymentID,
		PaymentLink:   in.PaymentLink,
	}
	if p.Status == "" {
		p.Status = engine.DerivePolicyStatus(end, "", s.Now(), s.Location, s.NearExpiryDays)
	}
	if in.PaymentType != entity.PaymentInstallment {
		return p, nil, nil
	}

	var first int64
	if in.InstallmentType == entity.PlanPrepayment {
		first, _ = in.FirstInstallmentAmount.Int()
	}
	plan, err := Schedule(start, premium, in.InstallmentCount, in.InstallmentType, first)
	if err != nil {
		return nil, nil, err
	}
	p.InstallmentCount = in.InstallmentCount
	p.InstallmentType = in.InstallmentType
	if first > 0 {
		p.FirstInstallmentAmount = fmt.Sprint(first)
	}
	return p, plan, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*entity.Policy, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// Delete removes the policy, its installments (by cascade) and its document.
func (s *Service) Delete(ctx context.Context, id int64) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	if p.HasPDF() && s.files != nil {
		if err := s.files.Remove(p.PDFPath); err != nil {
			s.logger.Warnw("remove policy document failed", "policy_id", id, "file", p.PDFPath, "err", err)
		}
	}
	s.invalidate(ctx)
	return nil
}

// All returns every policy record.
func (s *Service) All(ctx context.Context) ([]entity.Policy, error) {
	return s.repo.List(ctx)
}

// List returns one page of the policies table.
func (s *Service) List(ctx context.Context, c engine.PolicyCriteria, v engine.View) (engine.Page[engine.Policy], error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return engine.Page[engine.Policy]{}, err
	}
	return engine.Apply(engine.PolicyTable, s.Rows(all), c.Predicate(), v)
}

// ForCustomer returns the display rows of one customer's policies.
func (s *Service) ForCustomer(ctx context.Context, customerID int64) ([]engine.Policy, error) {
	all, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return s.Rows(all), nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.counts.Count(ctx, CountPolicies, s.repo.Count)
}

// NearExpiryCount counts policies whose derived status is near expiry.
func (s *Service) NearExpiryCount(ctx context.Context) (int, error) {
	return s.counts.Count(ctx, CountNearExpiry, func(ctx context.Context) (int, error) {
		all, err := s.repo.List(ctx)
		if err != nil {
			return 0, err
		}
		return engine.CountPolicyStatus(s.Rows(all), engine.PolicyNearExpiry), nil
	})
}

// AttachPDF stores r as the policy document, replacing any previous one.
func (s *Service) AttachPDF(ctx context.Context, id int64, r io.Reader) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	name, err := s.files.Save(r, ".pdf")
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	if _, err := s.repo.SetPDF(ctx, id, name); err != nil {
		_ = s.files.Remove(name)
		return err
	}
	if p.HasPDF() {
		if err := s.files.Remove(p.PDFPath); err != nil {
			s.logger.Warnw("remove replaced document failed", "policy_id", id, "file", p.PDFPath, "err", err)
		}
	}
	return nil
}

// OpenPDF opens the policy document. When customerID is non-zero the policy
// must belong to that customer, otherwise it reports ErrNotFound.
func (s *Service) OpenPDF(ctx context.Context, id, customerID int64) (*entity.Policy, *os.File, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if customerID != 0 && p.CustomerID != customerID {
		return nil, nil, ErrNotFound
	}
	if !p.HasPDF() {
		return nil, nil, ErrNoPDF
	}
	f, err := s.files.Open(p.PDFPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open document: %w", err)
	}
	return p, f, nil
}

// Rows maps records to display rows, deriving the status from the end date.
func (s *Service) Rows(all []entity.Policy) []engine.Policy {
	now := s.Now()
	out := make([]engine.Policy, 0, len(all))
	for _, p := range all {
		row := engine.Policy{
			ID:               p.ID,
			PolicyNumber:     p.PolicyNumber,
			CustomerName:     p.Customer.FullName,
			NationalCode:     p.Customer.NationalCode,
			Type:             p.InsuranceType,
			Vehicle:          p.Details,
			PaymentType:      p.PaymentType,
			PayID:            p.PaymentID,
			PayLink:          p.PaymentLink,
			InstallmentCount: p.InstallmentCount,
			InstallmentType:  p.InstallmentType,
			HasPDF:           p.HasPDF(),
		}
		var err error
		if row.StartDate, err = parseDate(p.StartDate); err != nil {
			s.logger.Debugw("unreadable policy start date", "policy_id", p.ID, "value", p.StartDate)
		}
		if row.EndDate, err = parseDate(p.EndDate); err != nil {
			s.logger.Debugw("unreadable policy end date", "policy_id", p.ID, "value", p.EndDate)
		}
		if row.Premium, err = money.Parse(p.Premium); err != nil {
			s.logger.Debugw("unreadable premium", "policy_id", p.ID, "value", p.Premium)
		}
		if p.FirstInstallmentAmount != "" {
			row.FirstInstallment, _ = money.Parse(p.FirstInstallmentAmount)
		}
		row.Status = engine.DerivePolicyStatus(row.EndDate, p.Status, now, s.Location, s.NearExpiryDays)
		out = append(out, row)
	}
	return out
}

func parseDate(v string) (jalali.Date, error) {
	if strings.TrimSpace(v) == "" {
		return jalali.Date{}, nil
	}
	return jalali.Parse(v)
}

func (s *Service) mapWriteErr(op string, err error) error {
	switch {
	case database.IsUniqueViolation(err):
		return ErrDuplicate
	case database.IsForeignKeyViolation(err):
		return ErrCustomerNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// invalidate drops every cached count: a policy change moves policy and installment counts alike.
func (s *Service) invalidate(ctx context.Context) {
	s.counts.Invalidate(ctx)
}
