package installment

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/bimerz/portal-service/internal/engine"
	"github.com/bimerz/portal-service/internal/httpx"
	"github.com/bimerz/portal-service/internal/installment/entity"
	"github.com/bimerz/portal-service/internal/money"
	"github.com/bimerz/portal-service/internal/principal"
)

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// criteria reads q, type, status, min and max.
func criteria(q url.Values) (engine.InstallmentCriteria, error) {
	lo, err := httpx.OptionalInt64(q.Get("min"), money.Parse)
	if err != nil {
		return engine.InstallmentCriteria{}, fmt.Errorf("min: %w", err)
	}
	hi, err := httpx.OptionalInt64(q.Get("max"), money.Parse)
	if err != nil {
		return engine.InstallmentCriteria{}, fmt.Errorf("max: %w", err)
	}
	return engine.InstallmentCriteria{
		Search:     q.Get("q"),
		MinAmount:  lo,
		MaxAmount:  hi,
		PolicyType: q.Get("type"),
		Status:     q.Get("status"),
	}, nil
}

func request(r *http.Request) (engine.InstallmentCriteria, engine.View, error) {
	q := r.URL.Query()
	view, err := httpx.ParseView(q)
	if err != nil {
		return engine.InstallmentCriteria{}, engine.View{}, err
	}
	crit, err := criteria(q)
	return crit, view, err
}

func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	crit, view, err := request(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := h.svc.AdminList(r.Context(), crit, view)
	if err != nil {
		h.writeErr(w, "list installments", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

// CustomerList serves the signed-in customer's installments.
func (h *Handler) CustomerList(w http.ResponseWriter, r *http.Request) {
	p, ok := principal.FromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	crit, view, err := request(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := h.svc.CustomerList(r.Context(), p.CustomerID, crit, view)
	if err != nil {
		h.writeErr(w, "list customer installments", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in entity.Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.logger.Debugw("invalid installment payload", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	it, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.writeErr(w, "create installment", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, it)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	var p entity.Patch
	if err := httpx.DecodeJSON(r, &p); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	it, err := h.svc.Update(r.Context(), id, p)
	if err != nil {
		h.writeErr(w, "update installment", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, it)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeErr(w, "delete installment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) OverdueCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.OverdueCount(r.Context())
	if err != nil {
		h.writeErr(w, "count overdue installments", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (h *Handler) NearDueCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.NearDueCount(r.Context())
	if err != nil {
		h.writeErr(w, "count near-due installments", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int{"count": n})
}

// Export takes the same filters and sort as AdminList and ignores paging.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	crit, view, err := request(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	// The sort is checked before any header goes out.
	if view.Sort != "" {
		if _, err := engine.InstallmentTable.Select(engine.SortState{}, view.Sort, view.Mode); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	name := fmt.Sprintf("installments-%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	if err := h.svc.Export(r.Context(), w, crit, view); err != nil {
		h.logger.Warnw("export installments failed", "err", err)
	}
}

func (h *Handler) writeErr(w http.ResponseWriter, op string, err error) {
	if httpx.WriteValidation(w, err) {
		return
	}
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "installment not found")
	case errors.Is(err, ErrPolicyNotFound):
		httpx.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrDuplicate):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrUnknownColumn), errors.Is(err, engine.ErrUnknownMode):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Warnw(op+" failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, op+" failed")
	}
}
