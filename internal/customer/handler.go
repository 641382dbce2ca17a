package customer

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/bimerz/portal-service/internal/customer/entity"
	"github.com/bimerz/portal-service/internal/engine"
	"github.com/bimerz/portal-service/internal/httpx"
	"github.com/bimerz/portal-service/internal/principal"
)

// Handler exposes the admin customer endpoints and the customer's own profile.
type Handler struct {
	svc    *CustomerService
	logger *zap.SugaredLogger
}

func NewHandler(svc *CustomerService, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view, err := httpx.ParseView(q)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	crit := engine.CustomerCriteria{
		Search: q.Get("q"),
		Score:  q.Get("score"),
		Status: q.Get("status"),
		Role:   q.Get("role"),
	}
	page, err := h.svc.List(r.Context(), crit, view)
	if err != nil {
		h.writeErr(w, "list customers", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in entity.Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.logger.Debugw("invalid customer payload", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	actor, _ := principal.FromContext(r.Context())
	c, err := h.svc.Create(r.Context(), actor, in)
	if err != nil {
		h.writeErr(w, "create customer", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeErr(w, "get customer", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in entity.Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	actor, _ := principal.FromContext(r.Context())
	c, err := h.svc.Update(r.Context(), actor, id, in)
	if err != nil {
		h.writeErr(w, "update customer", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	actor, _ := principal.FromContext(r.Context())
	if err := h.svc.Delete(r.Context(), actor, id); err != nil {
		h.writeErr(w, "delete customer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Count(r.Context())
	if err != nil {
		h.writeErr(w, "count customers", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (h *Handler) ByNationalCode(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetByNationalCode(r.Context(), r.PathValue("code"))
	if err != nil {
		h.writeErr(w, "customer by national code", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) Birthdays(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.Birthdays(r.Context())
	if err != nil {
		h.writeErr(w, "birthdays", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rows)
}

// Profile returns the signed-in customer's own record.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	p, ok := principal.FromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	c, err := h.svc.Get(r.Context(), p.CustomerID)
	if err != nil {
		h.writeErr(w, "profile", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) writeErr(w http.ResponseWriter, op string, err error) {
	if httpx.WriteValidation(w, err) {
		return
	}
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "customer not found")
	case errors.Is(err, ErrDuplicate):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrForbiddenRole):
		httpx.WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, engine.ErrUnknownColumn), errors.Is(err, engine.ErrUnknownMode):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Warnw(op+" failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, op+" failed")
	}
}
