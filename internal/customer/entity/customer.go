package entity

import "time"

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
	RoleAdmin2   = "admin-2"
	RoleAdmin3   = "admin-3"

	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Customer is a row of the `customers` table. Staff accounts live here too and
// are told apart by Role. The insurance code is the login secret and is only
// kept as a bcrypt hash.
type Customer struct {
	ID                  int64      `db:"id" json:"id"`
	FullName            string     `db:"full_name" json:"full_name"`
	NationalCode        string     `db:"national_code" json:"national_code"`
	InsuranceCodeHash   string     `db:"insurance_code_hash" json:"-"`
	Phone               string     `db:"phone" json:"phone"`
	Email               string     `db:"email" json:"email,omitempty"`
	BirthDate           string     `db:"birth_date" json:"birth_date,omitempty"`
	Score               string     `db:"score" json:"score"`
	Role                string     `db:"role" json:"role"`
	Status              string     `db:"status" json:"status"`
	TOTPSecret          string     `db:"totp_secret" json:"-"`
	TOTPEnabled         bool       `db:"totp_enabled" json:"totp_enabled"`
	LoginFailedAttempts int        `db:"login_failed_attempts" json:"-"`
	LockedUntil         *time.Time `db:"locked_until" json:"-"`
	LastLoginAt         *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	ActivePolicies      int        `db:"active_policies" json:"active_policies"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

func (c *Customer) IsStaff() bool { return c.Role != RoleCustomer }

// Input is the create/update payload. On update an empty InsuranceCode keeps
// the current one.
type Input struct {
	FullName      string `json:"full_name" validate:"required,max=200"`
	NationalCode  string `json:"national_code" validate:"required,len=10,numeric"`
	InsuranceCode string `json:"insurance_code" validate:"omitempty,min=4,max=64"`
	Phone         string `json:"phone" validate:"required,irphone"`
	Email         string `json:"email" validate:"omitempty,email"`
	BirthDate     string `json:"birth_date" validate:"omitempty,jalali"`
	Score         string `json:"score" validate:"omitempty,oneof=A B C D"`
	Role          string `json:"role" validate:"omitempty,oneof=customer admin admin-2 admin-3"`
	Status        string `json:"status" validate:"omitempty,oneof=active inactive"`
}

// Principal is the minimal projection needed to issue a token.
type Principal struct {
	ID          int64  `db:"id" json:"id"`
	FullName    string `db:"full_name" json:"full_name"`
	Role        string `db:"role" json:"role"`
	TOTPEnabled bool   `db:"totp_enabled" json:"totp_enabled"`
}
