// Package backup assembles the admin data export.
package backup

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	bentity "github.com/bimerz/portal-service/internal/blog/entity"
	centity "github.com/bimerz/portal-service/internal/customer/entity"
	"github.com/bimerz/portal-service/internal/httpx"
	ientity "github.com/bimerz/portal-service/internal/installment/entity"
	pentity "github.com/bimerz/portal-service/internal/policy/entity"
)

// Sources lists every table the export covers; the domain services satisfy
// each function.
type Sources struct {
	Customers    func(context.Context) ([]centity.Customer, error)
	Policies     func(context.Context) ([]pentity.Policy, error)
	Installments func(context.Context) ([]ientity.Installment, error)
	Blogs        func(context.Context) ([]bentity.Blog, error)
}

// Document is the export. Customer secrets are excluded by the entities'
// json tags.
type Document struct {
	GeneratedAt  time.Time             `json:"generated_at"`
	Customers    []centity.Customer    `json:"customers"`
	Policies     []pentity.Policy      `json:"policies"`
	Installments []ientity.Installment `json:"installments"`
	Blogs        []bentity.Blog        `json:"blogs"`
}

type Service struct {
	src Sources
	Now func() time.Time
}

func NewService(src Sources) *Service {
	return &Service{src: src, Now: time.Now}
}

func (s *Service) Build(ctx context.Context) (*Document, error) {
	doc := &Document{GeneratedAt: s.Now().UTC()}
	var err error
	if doc.Customers, err = s.src.Customers(ctx); err != nil {
		return nil, fmt.Errorf("customers: %w", err)
	}
	if doc.Policies, err = s.src.Policies(ctx); err != nil {
		return nil, fmt.Errorf("policies: %w", err)
	}
	if doc.Installments, err = s.src.Installments(ctx); err != nil {
		return nil, fmt.Errorf("installments: %w", err)
	}
	if doc.Blogs, err = s.src.Blogs(ctx); err != nil {
		return nil, fmt.Errorf("blogs: %w", err)
	}
	return doc, nil
}

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Build(r.Context())
	if err != nil {
		h.logger.Warnw("backup failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "backup failed")
		return
	}
	name := fmt.Sprintf("backup-%s.json", doc.GeneratedAt.Format("20060102-150405"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	httpx.WriteJSON(w, http.StatusOK, doc)
	h.logger.Infow("backup downloaded", "customers", len(doc.Customers), "policies", len(doc.Policies),
		"installments", len(doc.Installments), "blogs", len(doc.Blogs))
}
