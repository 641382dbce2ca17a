package installment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/bimerz/portal-service/internal/engine"
	"github.com/bimerz/portal-service/internal/installment/entity"
	instrepo "github.com/bimerz/portal-service/internal/installment/repo"
	"github.com/bimerz/portal-service/internal/jalali"
	"github.com/bimerz/portal-service/internal/validate"
	"github.com/bimerz/portal-service/pkg/database"
)

var (
	ErrNotFound       = errors.New("installment not found")
	ErrPolicyNotFound = errors.New("policy not found")
	ErrDuplicate      = errors.New("installment number already used for this policy")
)

// Count names shared with the count cache.
const (
	CountOverdue = "installments:overdue"
	CountNearDue = "installments:near-due"
)

type Repository interface {
	Create(ctx context.Context, it *entity.Installment) error
	GetByID(ctx context.Context, id int64) (*entity.Installment, error)
	List(ctx context.Context) ([]entity.Installment, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]entity.Installment, error)
	Update(ctx context.Context, it *entity.Installment) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
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
	counts Counter
	logger *zap.SugaredLogger
	// NearDueDays is the window, in days, counted by NearDueCount.
	NearDueDays int
	Location    *time.Location
	Now         func() time.Time
}

func NewService(db *sqlx.DB, r Repository, counts Counter, logger *zap.SugaredLogger) *Service {
	if r == nil {
		r = instrepo.NewInstallmentRepo(db)
	}
	if counts == nil {
		counts = uncached{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{
		repo:        r,
		counts:      counts,
		logger:      logger,
		NearDueDays: 7,
		Location:    jalali.LoadLocation(""),
		Now:         time.Now,
	}
}

// Rows maps records to display rows. Records with unreadable fields are kept
// and logged.
func (s *Service) Rows(recs []entity.Installment) []engine.Installment {
	now := s.Now()
	out := make([]engine.Installment, 0, len(recs))
	for _, rec := range recs {
		row, err := ToRow(rec, now, s.Location)
		if err != nil {
			s.logger.Warnw("installment has unreadable fields", "installment_id", rec.ID, "err", err)
		}
		out = append(out, row)
	}
	return out
}

// AdminList derives, filters, sorts and paginates every installment.
func (s *Service) AdminList(ctx context.Context, c engine.InstallmentCriteria, v engine.View) (engine.Page[engine.Installment], error) {
	recs, err := s.repo.List(ctx)
	if err != nil {
		return engine.Page[engine.Installment]{}, err
	}
	return engine.Apply(engine.InstallmentTable, s.Rows(recs), c.Predicate(), v)
}

// CustomerList is AdminList restricted to one customer's installments.
func (s *Service) CustomerList(ctx context.Context, customerID int64, c engine.InstallmentCriteria, v engine.View) (engine.Page[engine.Installment], error) {
	recs, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return engine.Page[engine.Installment]{}, err
	}
	return engine.Apply(engine.InstallmentTable, s.Rows(recs), c.Predicate(), v)
}

// All returns every installment record as stored.
func (s *Service) All(ctx context.Context) ([]entity.Installment, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (*entity.Installment, error) {
	it, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return it, nil
}

func (s *Service) Create(ctx context.Context, in entity.Input) (*entity.Installment, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	status, err := storedStatus(in.Status)
	if err != nil {
		return nil, err
	}
	amount, _ := in.Amount.Int()
	due, _ := jalali.Parse(in.DueDate)
	it := &entity.Installment{
		PolicyID:          in.PolicyID,
		InstallmentNumber: in.InstallmentNumber,
		Amount:            fmt.Sprint(amount),
		DueDate:           due.String(),
		Status:            status,
		PayLink:           strings.TrimSpace(in.PayLink),
	}
	if err := s.repo.Create(ctx, it); err != nil {
		return nil, s.mapWriteErr("create installment", err)
	}
	s.invalidate(ctx)
	return it, nil
}

// Update applies p. Marking an installment paid is a Patch carrying only the
// paid status.
func (s *Service) Update(ctx context.Context, id int64, p entity.Patch) (*entity.Installment, error) {
	if err := validate.Struct(p); err != nil {
		return nil, err
	}
	it, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Amount != nil {
		amount, _ := p.Amount.Int()
		it.Amount = fmt.Sprint(amount)
	}
	if p.DueDate != nil {
		due, _ := jalali.Parse(*p.DueDate)
		it.DueDate = due.String()
	}
	if p.Status != nil {
		if it.Status, err = storedStatus(*p.Status); err != nil {
			return nil, err
		}
	}
	if p.PayLink != nil {
		it.PayLink = strings.TrimSpace(*p.PayLink)
	}
	n, err := s.repo.Update(ctx, it)
	if err != nil {
		return nil, s.mapWriteErr("update installment", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	s.invalidate(ctx)
	return it, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	n, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	s.invalidate(ctx)
	return nil
}

// OverdueCount counts installments whose derived status is overdue.
func (s *Service) OverdueCount(ctx context.Context) (int, error) {
	return s.counts.Count(ctx, CountOverdue, func(ctx context.Context) (int, error) {
		recs, err := s.repo.List(ctx)
		if err != nil {
			return 0, err
		}
		return engine.CountStatus(s.Rows(recs), engine.StatusOverdue), nil
	})
}

// NearDueCount counts upcoming installments due within NearDueDays.
func (s *Service) NearDueCount(ctx context.Context) (int, error) {
	return s.counts.Count(ctx, CountNearDue, func(ctx context.Context) (int, error) {
		recs, err := s.repo.List(ctx)
		if err != nil {
			return 0, err
		}
		return engine.CountDueWithin(s.Rows(recs), s.Now(), s.Location, s.NearDueDays), nil
	})
}

// storedStatus maps a status given as label or English name to what is
// stored: the paid label, or the upcoming label for everything unpaid.
func storedStatus(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return engine.LabelUpcoming, nil
	}
	st, ok := engine.ParseStatus(v)
	if !ok || st == engine.StatusUnknown {
		return "", &validate.Error{Fields: map[string]string{"status": "oneof"}}
	}
	// overdue and upcoming are derived from the due date; only paid is stored
	if st == engine.StatusPaid {
		return engine.LabelPaid, nil
	}
	return engine.LabelUpcoming, nil
}

func (s *Service) mapWriteErr(op string, err error) error {
	switch {
	case database.IsUniqueViolation(err):
		return ErrDuplicate
	case database.IsForeignKeyViolation(err):
		return ErrPolicyNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Overdue and near-due counts move with every write; policy counts do not.
func (s *Service) invalidate(ctx context.Context) {
	s.counts.Invalidate(ctx, CountOverdue, CountNearDue)
}
