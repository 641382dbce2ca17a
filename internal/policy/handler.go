package policy

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/bimerz/portal-service/internal/engine"
	"github.com/bimerz/portal-service/internal/httpx"
	"github.com/bimerz/portal-service/internal/policy/entity"
	"github.com/bimerz/portal-service/internal/principal"
	"github.com/bimerz/portal-service/internal/storage"
)

const maxUploadMemory = 8 << 20

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view, err := httpx.ParseView(q)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	crit := engine.PolicyCriteria{
		Search:      q.Get("q"),
		Type:        q.Get("type"),
		Status:      q.Get("status"),
		PaymentType: q.Get("payment_type"),
	}
	page, err := h.svc.List(r.Context(), crit, view)
	if err != nil {
		h.writeErr(w, "list policies", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in entity.Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.logger.Debugw("invalid policy payload", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	p, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.writeErr(w, "create policy", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeErr(w, "get policy", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
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
	p, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		h.writeErr(w, "update policy", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeErr(w, "delete policy", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadPDF accepts the policy document as the multipart field "pdf".
func (h *Handler) UploadPDF(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	f, hdr, err := r.FormFile("pdf")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "missing pdf file")
		return
	}
	defer f.Close()
	if ct := hdr.Header.Get("Content-Type"); ct != "" && ct != "application/pdf" && ct != "application/octet-stream" {
		httpx.WriteError(w, http.StatusUnsupportedMediaType, "only pdf documents are accepted")
		return
	}
	if err := h.svc.AttachPDF(r.Context(), id, f); err != nil {
		h.writeErr(w, "upload policy document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DownloadPDF serves the document to staff.
func (h *Handler) DownloadPDF(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, 0)
}

func (h *Handler) NearExpiryCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.NearExpiryCount(r.Context())
	if err != nil {
		h.writeErr(w, "count near-expiry policies", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Count(r.Context())
	if err != nil {
		h.writeErr(w, "count policies", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int{"count": n})
}

// Mine lists the signed-in customer's policies.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	p, ok := principal.FromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rows, err := h.svc.ForCustomer(r.Context(), p.CustomerID)
	if err != nil {
		h.writeErr(w, "customer policies", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rows)
}

// MineDownload serves one of the signed-in customer's documents.
func (h *Handler) MineDownload(w http.ResponseWriter, r *http.Request) {
	p, ok := principal.FromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.download(w, r, p.CustomerID)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request, customerID int64) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, f, err := h.svc.OpenPDF(r.Context(), id, customerID)
	if err != nil {
		h.writeErr(w, "download policy document", err)
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		h.writeErr(w, "download policy document", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="policy-%s.pdf"`, p.PolicyNumber))
	http.ServeContent(w, r, "", st.ModTime(), f)
}

func (h *Handler) writeErr(w http.ResponseWriter, op string, err error) {
	if httpx.WriteValidation(w, err) {
		return
	}
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "policy not found")
	case errors.Is(err, ErrNoPDF):
		httpx.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrCustomerNotFound):
		httpx.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrDuplicate):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidPlan):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrTooLarge):
		httpx.WriteError(w, http.StatusRequestEntityTooLarge, "document too large")
	case errors.Is(err, engine.ErrUnknownColumn), errors.Is(err, engine.ErrUnknownMode):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Warnw(op+" failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, op+" failed")
	}
}
