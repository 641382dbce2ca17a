package customer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/bimerz/portal-service/internal/customer/entity"
	customerrepo "github.com/bimerz/portal-service/internal/customer/repo"
	"github.com/bimerz/portal-service/internal/engine"
	"github.com/bimerz/portal-service/internal/jalali"
	"github.com/bimerz/portal-service/internal/principal"
	"github.com/bimerz/portal-service/internal/validate"
	"github.com/bimerz/portal-service/pkg/database"
)

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Repository is the persistence the service needs; *repo.CustomerRepo implements it.
type Repository interface {
	Create(ctx context.Context, c *entity.Customer) (int64, error)
	GetByID(ctx context.Context, id int64) (*entity.Customer, error)
	GetByNationalCode(ctx context.Context, code string) (*entity.Customer, error)
	List(ctx context.Context) ([]entity.Customer, error)
	Update(ctx context.Context, c *entity.Customer) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
	Count(ctx context.Context) (int, error)
	IncrementFailedLogin(ctx context.Context, id int64) (int, error)
	LockIfThreshold(ctx context.Context, id int64, threshold int, lockMinutes int) (bool, error)
	ResetLoginSuccess(ctx context.Context, id int64) error
	SetTOTP(ctx context.Context, id int64, secret string, enabled bool) error
	HasAdmin(ctx context.Context) (bool, error)
}

var (
	ErrNotFound       = errors.New("customer not found")
	ErrDuplicate      = errors.New("national code already registered")
	ErrLocked         = errors.New("customer locked")
	ErrDisabled       = errors.New("customer disabled")
	ErrBadCredentials = errors.New("invalid credentials")
	ErrForbiddenRole  = errors.New("only an admin may manage staff accounts")
)

// CustomerService owns customer records and password (insurance code) authentication.
type CustomerService struct {
	repo   Repository
	hasher PasswordHasher
	logger *zap.SugaredLogger
	// configuration knobs
	MaxFailed   int
	LockMinutes int
	Location    *time.Location
	Now         func() time.Time
}

func NewCustomerService(db *sqlx.DB, r Repository, hasher PasswordHasher, logger *zap.SugaredLogger) *CustomerService {
	if r == nil {
		r = customerrepo.NewCustomerRepo(db)
	}
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &CustomerService{
		repo:        r,
		hasher:      hasher,
		logger:      logger,
		MaxFailed:   6,
		LockMinutes: 15,
		Location:    jalali.LoadLocation(""),
		Now:         time.Now,
	}
}

// Authenticate checks a national code / insurance code pair. Unknown codes
// and wrong secrets both yield ErrBadCredentials.
func (s *CustomerService) Authenticate(ctx context.Context, nationalCode, insuranceCode string) (*entity.Principal, error) {
	nationalCode = jalali.ToLatinDigits(strings.TrimSpace(nationalCode))
	if nationalCode == "" || insuranceCode == "" {
		return nil, ErrBadCredentials
	}
	c, err := s.repo.GetByNationalCode(ctx, nationalCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if c.LockedUntil != nil && c.LockedUntil.After(s.Now()) {
		return nil, ErrLocked
	}
	if c.Status == entity.StatusInactive {
		return nil, ErrDisabled
	}
	if !s.hasher.Verify(c.InsuranceCodeHash, jalali.ToLatinDigits(insuranceCode)) {
		if _, incErr := s.repo.IncrementFailedLogin(ctx, c.ID); incErr == nil {
			if locked, _ := s.repo.LockIfThreshold(ctx, c.ID, s.MaxFailed, s.LockMinutes); locked {
				s.logger.Warnw("customer locked after failed logins", "customer_id", c.ID)
			}
		}
		return nil, ErrBadCredentials
	}
	if err := s.repo.ResetLoginSuccess(ctx, c.ID); err != nil {
		return nil, err
	}
	return &entity.Principal{ID: c.ID, FullName: c.FullName, Role: c.Role, TOTPEnabled: c.TOTPEnabled}, nil
}

// mayManage reports whether actor may give an account role or edit an
// account that holds it. Staff roles are reserved to admin.
func mayManage(actor principal.Principal, role string) bool {
	return role == entity.RoleCustomer || actor.Role == entity.RoleAdmin
}

// Create validates and stores a new customer on behalf of actor. Without an
// insurance code the phone number's digits become the initial one.
func (s *CustomerService) Create(ctx context.Context, actor principal.Principal, in entity.Input) (*entity.Customer, error) {
	in = normalizeInput(in)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if !mayManage(actor, withDefault(in.Role, entity.RoleCustomer)) {
		s.logger.Warnw("staff role assignment refused", "actor", actor.CustomerID, "actor_role", actor.Role, "role", in.Role)
		return nil, ErrForbiddenRole
	}
	phone, err := validate.NormalizePhone(in.Phone)
	if err != nil {
		return nil, err
	}
	code := in.InsuranceCode
	if code == "" {
		code = in.Phone
	}
	hash, err := s.hasher.Hash(code)
	if err != nil {
		return nil, err
	}
	c := &entity.Customer{
		FullName:          in.FullName,
		NationalCode:      in.NationalCode,
		InsuranceCodeHash: hash,
		Phone:             phone,
		Email:             in.Email,
		BirthDate:         canonicalDate(in.BirthDate),
		Score:             withDefault(in.Score, "A"),
		Role:              withDefault(in.Role, entity.RoleCustomer),
		Status:            withDefault(in.Status, entity.StatusActive),
	}
	if _, err := s.repo.Create(ctx, c); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return c, nil
}

func (s *CustomerService) Get(ctx context.Context, id int64) (*entity.Customer, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *CustomerService) GetByNationalCode(ctx context.Context, code string) (*entity.Customer, error) {
	c, err := s.repo.GetByNationalCode(ctx, jalali.ToLatinDigits(strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// Update replaces the profile of customer id. An empty insurance code keeps the current one.
func (s *CustomerService) Update(ctx context.Context, actor principal.Principal, id int64, in entity.Input) (*entity.Customer, error) {
	in = normalizeInput(in)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !mayManage(actor, c.Role) || !mayManage(actor, withDefault(in.Role, c.Role)) {
		s.logger.Warnw("staff account change refused", "actor", actor.CustomerID, "actor_role", actor.Role, "customer_id", id)
		return nil, ErrForbiddenRole
	}
	phone, err := validate.NormalizePhone(in.Phone)
	if err != nil {
		return nil, err
	}
	if in.InsuranceCode != "" {
		if c.InsuranceCodeHash, err = s.hasher.Hash(in.InsuranceCode); err != nil {
			return nil, err
		}
	}
	c.FullName = in.FullName
	c.NationalCode = in.NationalCode
	c.Phone = phone
	c.Email = in.Email
	c.BirthDate = canonicalDate(in.BirthDate)
	c.Score = withDefault(in.Score, c.Score)
	c.Role = withDefault(in.Role, c.Role)
	c.Status = withDefault(in.Status, c.Status)
	n, err := s.repo.Update(ctx, c)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("update customer: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *CustomerService) Delete(ctx context.Context, actor principal.Principal, id int64) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !mayManage(actor, c.Role) {
		return ErrForbiddenRole
	}
	n, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *CustomerService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// All returns every customer record.
func (s *CustomerService) All(ctx context.Context) ([]entity.Customer, error) {
	return s.repo.List(ctx)
}

// List returns one page of the customers table after filtering and sorting.
func (s *CustomerService) List(ctx context.Context, c engine.CustomerCriteria, v engine.View) (engine.Page[engine.Customer], error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return engine.Page[engine.Customer]{}, err
	}
	return engine.Apply(engine.CustomerTable, s.rows(all), c.Predicate(), v)
}

// Birthdays returns customers whose Jalaali birthday is today.
func (s *CustomerService) Birthdays(ctx context.Context) ([]engine.Customer, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	tm, td := jalali.Today(s.Now(), s.Location).MonthDay()
	out := []engine.Customer{}
	for _, r := range s.rows(all) {
		if r.BirthDate.IsZero() {
			continue
		}
		if m, d := r.BirthDate.MonthDay(); m == tm && d == td {
			out = append(out, r)
		}
	}
	return out, nil
}

// SetTOTP stores the second-factor secret for customer id.
func (s *CustomerService) SetTOTP(ctx context.Context, id int64, secret string, enabled bool) error {
	return s.repo.SetTOTP(ctx, id, secret, enabled)
}

// EnsureAdmin creates the first admin account unless one already exists.
// It reports whether an account was created.
func (s *CustomerService) EnsureAdmin(ctx context.Context, in entity.Input) (bool, error) {
	ok, err := s.repo.HasAdmin(ctx)
	if err != nil || ok {
		return false, err
	}
	in.Role = entity.RoleAdmin
	if _, err := s.Create(ctx, principal.Principal{Role: entity.RoleAdmin}, in); err != nil {
		return false, err
	}
	return true, nil
}

func (s *CustomerService) rows(all []entity.Customer) []engine.Customer {
	out := make([]engine.Customer, 0, len(all))
	for _, c := range all {
		out = append(out, s.Row(c))
	}
	return out
}

// Row maps a record to the display row. Unreadable birth dates are logged and left empty.
func (s *CustomerService) Row(c entity.Customer) engine.Customer {
	r := engine.Customer{
		ID:             c.ID,
		Name:           c.FullName,
		NationalCode:   c.NationalCode,
		Phone:          c.Phone,
		Email:          c.Email,
		JoinDate:       jalali.FromTime(c.CreatedAt.In(s.Location)),
		ActivePolicies: c.ActivePolicies,
		Status:         c.Status,
		Score:          c.Score,
		Role:           c.Role,
	}
	if c.CreatedAt.IsZero() {
		r.JoinDate = jalali.Date{}
	}
	if c.BirthDate != "" {
		d, err := jalali.Parse(c.BirthDate)
		if err != nil {
			s.logger.Debugw("unreadable birth date", "customer_id", c.ID, "value", c.BirthDate)
		} else {
			r.BirthDate = d
		}
	}
	return r
}

func normalizeInput(in entity.Input) entity.Input {
	in.FullName = strings.TrimSpace(in.FullName)
	in.NationalCode = jalali.ToLatinDigits(strings.TrimSpace(in.NationalCode))
	in.Phone = jalali.ToLatinDigits(strings.TrimSpace(in.Phone))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.BirthDate = strings.TrimSpace(in.BirthDate)
	in.Score = strings.ToUpper(strings.TrimSpace(in.Score))
	return in
}

// canonicalDate rewrites a valid date as YYYY/MM/DD; validation has already run.
func canonicalDate(v string) string {
	if d, err := jalali.Parse(v); err == nil {
		return d.String()
	}
	return ""
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
