// Package client talks to the portal API on behalf of one signed-in user.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bimerz/portal-service/internal/engine"
)

var (
	// ErrUnauthorized means the server rejected the session; it has been cleared.
	ErrUnauthorized = errors.New("session expired or not permitted, please log in again")
	ErrNotSignedIn  = errors.New("not signed in")
)

// APIError is a non-2xx answer other than 401/403.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type Client struct {
	base    string
	http    *http.Client
	session *Session
}

func New(baseURL string, s *Session) *Client {
	return &Client{
		base:    strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		session: s,
	}
}

func (c *Client) Session() *Session { return c.session }

// LoginResult mirrors the login response.
type LoginResult struct {
	AccessToken  string `json:"access_token"`
	Role         string `json:"role"`
	FullName     string `json:"full_name"`
	RequiresTOTP bool   `json:"requires_2fa"`
	PendingToken string `json:"pending_token"`
}

// Login signs in. When the account has two-factor enabled the result carries
// a pending token for Verify2FA and the session stays signed out.
func (c *Client) Login(ctx context.Context, nationalCode, insuranceCode string) (*LoginResult, error) {
	var res LoginResult
	body := map[string]string{"national_code": nationalCode, "insurance_code": insuranceCode}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &res); err != nil {
		return nil, err
	}
	if res.RequiresTOTP {
		return &res, nil
	}
	return &res, c.session.Save(res.AccessToken, res.Role, res.FullName)
}

func (c *Client) Verify2FA(ctx context.Context, pendingToken, code string) (*LoginResult, error) {
	var res LoginResult
	body := map[string]string{"pending_token": pendingToken, "code": code}
	if err := c.do(ctx, http.MethodPost, "/auth/verify-2fa", body, &res); err != nil {
		return nil, err
	}
	return &res, c.session.Save(res.AccessToken, res.Role, res.FullName)
}

// Logout ends the server session and clears the local one either way.
func (c *Client) Logout(ctx context.Context) error {
	if !c.session.SignedIn() {
		return nil
	}
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	if cerr := c.session.Clear(); err == nil {
		err = cerr
	}
	if errors.Is(err, ErrUnauthorized) {
		return nil
	}
	return err
}

type Identity struct {
	Valid      bool   `json:"valid"`
	CustomerID int64  `json:"customer_id"`
	Role       string `json:"role"`
}

func (c *Client) WhoAmI(ctx context.Context) (*Identity, error) {
	var id Identity
	if err := c.do(ctx, http.MethodGet, "/auth/verify", nil, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

func (c *Client) staff() bool {
	return c.session.Role() != "" && c.session.Role() != "customer"
}

// Installments fetches every installment visible to the session, unsorted.
func (c *Client) Installments(ctx context.Context) ([]engine.Installment, error) {
	path := "/installments/customer?size=0"
	if c.staff() {
		path = "/installments/admin?size=0"
	}
	var page engine.Page[engine.Installment]
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Policies fetches every policy visible to the session.
func (c *Client) Policies(ctx context.Context) ([]engine.Policy, error) {
	if !c.staff() {
		var rows []engine.Policy
		err := c.do(ctx, http.MethodGet, "/customer/policies", nil, &rows)
		return rows, err
	}
	var page engine.Page[engine.Policy]
	if err := c.do(ctx, http.MethodGet, "/admin/policies?size=0", nil, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// DownloadPolicy saves the policy document into dir and returns its path.
func (c *Client) DownloadPolicy(ctx context.Context, id int64, dir string) (string, error) {
	path := fmt.Sprintf("/customer/policies/%d/download", id)
	if c.staff() {
		path = fmt.Sprintf("/admin/policies/%d/pdf", id)
	}
	return c.download(ctx, path, dir, fmt.Sprintf("policy-%d.pdf", id))
}

// Backup saves the admin backup document into dir and returns its path.
func (c *Client) Backup(ctx context.Context, dir string) (string, error) {
	return c.download(ctx, "/admin/backup", dir, fmt.Sprintf("backup-%s.json", time.Now().Format("20060102-150405")))
}

func (c *Client) download(ctx context.Context, path, dir, fallback string) (string, error) {
	resp, err := c.send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	name := fallback
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		name = filepath.Base(params["filename"])
	}
	dest := filepath.Join(dir, name)
	f, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(dest)
		return "", err
	}
	return dest, f.Close()
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// send performs the request and turns error statuses into errors. 401 and
// 403 clear the session.
func (c *Client) send(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	u, err := url.Parse(c.base + path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if tok := c.session.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		// login failures are reported as they are; the session was never set
		if path == "/auth/login" || path == "/auth/verify-2fa" {
			return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(resp.Body)}
		}
		_ = c.session.Clear()
		return nil, ErrUnauthorized
	}
	return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(resp.Body)}
}

func errorMessage(r io.Reader) string {
	var e struct {
		Error string `json:"error"`
	}
	b, _ := io.ReadAll(io.LimitReader(r, 64<<10))
	if json.Unmarshal(b, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(b))
}
