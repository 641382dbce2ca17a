package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"

	sessionrepo "github.com/bimerz/portal-service/internal/auth/repo"
	"github.com/bimerz/portal-service/internal/customer"
	centity "github.com/bimerz/portal-service/internal/customer/entity"
	"github.com/bimerz/portal-service/internal/principal"
	"github.com/bimerz/portal-service/pkg/utilities"
)

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidCode   = errors.New("invalid verification code")
	ErrTOTPNotSetUp  = errors.New("two-factor authentication is not set up")
	ErrTOTPEnabled   = errors.New("two-factor authentication is already enabled")
	ErrMissingSecret = errors.New("JWT_SECRET is not set")
)

// Customers is the part of the customer service that auth relies on.
type Customers interface {
	Authenticate(ctx context.Context, nationalCode, insuranceCode string) (*centity.Principal, error)
	Get(ctx context.Context, id int64) (*centity.Customer, error)
	SetTOTP(ctx context.Context, id int64, secret string, enabled bool) error
}

type Sessions interface {
	Save(ctx context.Context, id string, customerID int64, expiresAt time.Time) error
	Get(ctx context.Context, id string) (int64, time.Time, error)
	Delete(ctx context.Context, id string) error
}

type claims struct {
	Role string `json:"role,omitempty"`
	SID  string `json:"sid,omitempty"`
	Kind string `json:"typ"`
	jwt.RegisteredClaims
}

// AuthService issues and checks HS256 tokens backed by persisted sessions.
type AuthService struct {
	cfg       Config
	customers Customers
	sessions  Sessions
	logger    *zap.SugaredLogger
	Now       func() time.Time
}

func NewAuthService(db *sqlx.DB, cfg Config, customers Customers, sessions Sessions, logger *zap.SugaredLogger) (*AuthService, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	if sessions == nil {
		sessions = sessionrepo.NewSessionRepo(db)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &AuthService{cfg: cfg, customers: customers, sessions: sessions, logger: logger, Now: time.Now}, nil
}

// Login checks the national code / insurance code pair. Customers with TOTP
// enabled get a pending token to exchange in VerifyTOTP.
func (s *AuthService) Login(ctx context.Context, nationalCode, insuranceCode string) (*LoginResult, error) {
	p, err := s.customers.Authenticate(ctx, nationalCode, insuranceCode)
	if err != nil {
		return nil, err
	}
	if p.TOTPEnabled {
		tok, err := s.sign(claims{Kind: kindPending}, p.ID, s.cfg.PendingTTL)
		if err != nil {
			return nil, err
		}
		return &LoginResult{RequiresTOTP: true, PendingToken: tok}, nil
	}
	return s.issue(ctx, p)
}

// VerifyTOTP completes a two-step login.
func (s *AuthService) VerifyTOTP(ctx context.Context, pendingToken, code string) (*LoginResult, error) {
	c, err := s.parse(pendingToken, kindPending)
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return nil, ErrUnauthorized
	}
	cust, err := s.customers.Get(ctx, id)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if !cust.TOTPEnabled || cust.TOTPSecret == "" {
		return nil, ErrTOTPNotSetUp
	}
	if !s.validCode(code, cust.TOTPSecret) {
		return nil, ErrInvalidCode
	}
	return s.issue(ctx, &centity.Principal{ID: cust.ID, FullName: cust.FullName, Role: cust.Role, TOTPEnabled: true})
}

// SetupTOTP stores a fresh, not yet enabled secret and returns it with its
// otpauth:// URL for authenticator apps.
func (s *AuthService) SetupTOTP(ctx context.Context, customerID int64) (secret, url string, err error) {
	cust, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return "", "", err
	}
	if cust.TOTPEnabled {
		return "", "", ErrTOTPEnabled
	}
	key, err := totp.Generate(totp.GenerateOpts{Issuer: s.cfg.Issuer, AccountName: cust.NationalCode})
	if err != nil {
		return "", "", fmt.Errorf("generate totp key: %w", err)
	}
	if err := s.customers.SetTOTP(ctx, customerID, key.Secret(), false); err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// EnableTOTP turns on the secret from SetupTOTP once code proves the app has it.
func (s *AuthService) EnableTOTP(ctx context.Context, customerID int64, code string) error {
	cust, err := s.customers.Get(ctx, customerID)
	if err != nil {
		return err
	}
	if cust.TOTPEnabled {
		return ErrTOTPEnabled
	}
	if cust.TOTPSecret == "" {
		return ErrTOTPNotSetUp
	}
	if !s.validCode(code, cust.TOTPSecret) {
		return ErrInvalidCode
	}
	return s.customers.SetTOTP(ctx, customerID, cust.TOTPSecret, true)
}

// Verify checks an access token, its session and that the account still
// holds the token's role. A demoted or deactivated account loses the session.
func (s *AuthService) Verify(ctx context.Context, token string) (principal.Principal, error) {
	c, err := s.parse(token, kindAccess)
	if err != nil {
		return principal.Principal{}, err
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || c.SID == "" {
		return principal.Principal{}, ErrUnauthorized
	}
	owner, expiresAt, err := s.sessions.Get(ctx, c.SID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return principal.Principal{}, ErrUnauthorized
		}
		return principal.Principal{}, err
	}
	if owner != id || !expiresAt.After(s.Now()) {
		return principal.Principal{}, ErrUnauthorized
	}
	// the role claim is only good while the account still has that role
	cust, err := s.customers.Get(ctx, id)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return principal.Principal{}, ErrUnauthorized
		}
		return principal.Principal{}, err
	}
	if cust.Role != c.Role || cust.Status == centity.StatusInactive {
		s.logger.Debugw("session revoked after account change", "customer_id", id, "token_role", c.Role, "role", cust.Role, "status", cust.Status)
		if err := s.sessions.Delete(ctx, c.SID); err != nil {
			return principal.Principal{}, err
		}
		return principal.Principal{}, ErrUnauthorized
	}
	return principal.Principal{CustomerID: id, Role: c.Role, SessionID: c.SID}, nil
}

// Logout deletes the session; tokens naming it stop verifying.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

func (s *AuthService) issue(ctx context.Context, p *centity.Principal) (*LoginResult, error) {
	sid := utilities.NewKSUID()
	if err := s.sessions.Save(ctx, sid, p.ID, s.Now().Add(s.cfg.AccessTTL)); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	tok, err := s.sign(claims{Kind: kindAccess, Role: p.Role, SID: sid}, p.ID, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	s.logger.Debugw("session issued", "customer_id", p.ID, "role", p.Role)
	return &LoginResult{
		AccessToken: tok,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.cfg.AccessTTL.Seconds()),
		Role:        p.Role,
		FullName:    p.FullName,
	}, nil
}

func (s *AuthService) sign(c claims, customerID int64, ttl time.Duration) (string, error) {
	now := s.Now()
	c.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    s.cfg.Issuer,
		Subject:   strconv.FormatInt(customerID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(s.cfg.Secret))
}

func (s *AuthService) parse(token, kind string) (*claims, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return []byte(s.cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.Now),
	)
	if err != nil || c.Kind != kind {
		return nil, ErrUnauthorized
	}
	return &c, nil
}

func (s *AuthService) validCode(code, secret string) bool {
	ok, err := totp.ValidateCustom(code, secret, s.Now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
