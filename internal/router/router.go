package router

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/bimerz/portal-service/internal/auth"
	"github.com/bimerz/portal-service/internal/backup"
	"github.com/bimerz/portal-service/internal/blog"
	"github.com/bimerz/portal-service/internal/customer"
	"github.com/bimerz/portal-service/internal/httpx"
	"github.com/bimerz/portal-service/internal/installment"
	"github.com/bimerz/portal-service/internal/policy"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware logs every request at debug level, and server errors at warn.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			log := logger.Debugw
			if status >= http.StatusInternalServerError {
				log = logger.Warnw
			}
			log("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			// HSTS only over TLS; 30 days.
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Pinger reports database health; *sqlx.DB implements it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the mounted handlers. Verifier gates every non-public route.
type Deps struct {
	Logger       *zap.SugaredLogger
	DB           Pinger
	Verifier     auth.Verifier
	Auth         *auth.Handler
	Customers    *customer.Handler
	Policies     *policy.Handler
	Installments *installment.Handler
	Blogs        *blog.Handler
	Backup       *backup.Handler
}

// RegisterRoutes mounts HTTP handlers on the standard library's http.ServeMux.
func RegisterRoutes(d Deps) http.Handler {
	mux := http.NewServeMux()
	gate := func(roles []string, h http.HandlerFunc) http.Handler {
		return auth.Require(d.Verifier, roles...)(h)
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if d.DB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.DB.PingContext(ctx); err != nil {
				d.Logger.Warnw("health check: database unreachable", "err", err)
				httpx.WriteError(w, http.StatusServiceUnavailable, "database unreachable")
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// auth
	mux.HandleFunc("POST /auth/login", d.Auth.Login)
	mux.HandleFunc("POST /auth/verify-2fa", d.Auth.Verify2FA)
	mux.Handle("POST /auth/2fa/setup", gate(nil, d.Auth.Setup2FA))
	mux.Handle("POST /auth/2fa/enable", gate(nil, d.Auth.Enable2FA))
	mux.Handle("GET /auth/verify", gate(nil, d.Auth.Verify))
	mux.Handle("POST /auth/logout", gate(nil, d.Auth.Logout))

	// customers
	cr := auth.CustomerAreaRoles
	mux.Handle("GET /admin/customers", gate(cr, d.Customers.List))
	mux.Handle("POST /admin/customers", gate(cr, d.Customers.Create))
	mux.Handle("GET /admin/customers/count", gate(cr, d.Customers.Count))
	mux.Handle("GET /admin/customers/birthdays", gate(cr, d.Customers.Birthdays))
	mux.Handle("GET /admin/customers/by-national/{code}", gate(cr, d.Customers.ByNationalCode))
	mux.Handle("GET /admin/customers/{id}", gate(cr, d.Customers.Get))
	mux.Handle("PUT /admin/customers/{id}", gate(cr, d.Customers.Update))
	mux.Handle("DELETE /admin/customers/{id}", gate(cr, d.Customers.Delete))

	// policies
	pr := auth.PolicyAreaRoles
	mux.Handle("GET /admin/policies", gate(pr, d.Policies.List))
	mux.Handle("POST /admin/policies", gate(pr, d.Policies.Create))
	mux.Handle("GET /admin/policies/near-expiry/count", gate(pr, d.Policies.NearExpiryCount))
	mux.Handle("GET /admin/policies/{id}", gate(pr, d.Policies.Get))
	mux.Handle("PUT /admin/policies/{id}", gate(pr, d.Policies.Update))
	mux.Handle("DELETE /admin/policies/{id}", gate(pr, d.Policies.Delete))
	mux.Handle("POST /admin/policies/{id}/pdf", gate(pr, d.Policies.UploadPDF))
	mux.Handle("GET /admin/policies/{id}/pdf", gate(pr, d.Policies.DownloadPDF))
	mux.Handle("GET /count", gate(pr, d.Policies.Count))

	// installments
	ir := auth.InstallmentAreaRoles
	mux.Handle("GET /installments/admin", gate(ir, d.Installments.AdminList))
	mux.Handle("POST /installments", gate(ir, d.Installments.Create))
	mux.Handle("PUT /installments/{id}", gate(ir, d.Installments.Update))
	mux.Handle("DELETE /installments/{id}", gate(ir, d.Installments.Delete))
	mux.Handle("GET /installments/overdue/count", gate(ir, d.Installments.OverdueCount))
	mux.Handle("GET /installments/near-expiry/count", gate(ir, d.Installments.NearDueCount))
	mux.Handle("GET /admin/installments/export", gate(ir, d.Installments.Export))

	// customer self-service
	sr := auth.SelfServiceRoles
	mux.Handle("GET /customer/profile", gate(sr, d.Customers.Profile))
	mux.Handle("GET /customer/policies", gate(sr, d.Policies.Mine))
	mux.Handle("GET /customer/policies/{id}/download", gate(sr, d.Policies.MineDownload))
	mux.Handle("GET /installments/customer", gate(sr, d.Installments.CustomerList))

	// blogs
	br := auth.BlogAreaRoles
	mux.HandleFunc("GET /blogs", d.Blogs.List)
	mux.HandleFunc("GET /blogs/{id}", d.Blogs.Get)
	mux.HandleFunc("GET /blogs/{id}/image", d.Blogs.Image)
	mux.Handle("POST /admin/blogs", gate(br, d.Blogs.Create))
	mux.Handle("PUT /admin/blogs/{id}", gate(br, d.Blogs.Update))
	mux.Handle("DELETE /admin/blogs/{id}", gate(br, d.Blogs.Delete))
	mux.Handle("POST /admin/blogs/{id}/image", gate(br, d.Blogs.UploadImage))

	// backup
	mux.Handle("GET /admin/backup", gate(auth.AdminOnlyRoles, d.Backup.Download))

	return LoggingMiddleware(d.Logger)(SecurityHeadersMiddleware()(mux))
}
