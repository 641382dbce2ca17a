package auth

// Token kinds carried in the "typ" claim.
const (
	kindAccess  = "access"
	kindPending = "2fa"
)

// LoginResult is the body of a successful login step. Exactly one of
// AccessToken and PendingToken is set.
type LoginResult struct {
	AccessToken  string `json:"access_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	Role         string `json:"role,omitempty"`
	FullName     string `json:"full_name,omitempty"`
	RequiresTOTP bool   `json:"requires_2fa"`
	PendingToken string `json:"pending_token,omitempty"`
}
