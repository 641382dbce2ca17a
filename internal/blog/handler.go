package blog

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/bimerz/portal-service/internal/blog/entity"
	"github.com/bimerz/portal-service/internal/engine"
	"github.com/bimerz/portal-service/internal/httpx"
	"github.com/bimerz/portal-service/internal/storage"
)

var imageTypes = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true}

// Handler contains dependencies for handling blog endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// List is public; q searches title and category.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	view, err := httpx.ParseView(r.URL.Query())
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := h.svc.List(r.Context(), r.URL.Query().Get("q"), view)
	if err != nil {
		h.writeErr(w, "list blogs", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeErr(w, "get blog", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in entity.Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	b, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.writeErr(w, "create blog", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, b)
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
	b, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		h.writeErr(w, "update blog", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeErr(w, "delete blog", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage takes the multipart field "image".
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	f, hdr, err := r.FormFile("image")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "missing image file")
		return
	}
	defer f.Close()
	ext := strings.ToLower(filepath.Ext(hdr.Filename))
	if !imageTypes[ext] {
		httpx.WriteError(w, http.StatusUnsupportedMediaType, "unsupported image type")
		return
	}
	b, err := h.svc.SetImage(r.Context(), id, f, ext)
	if err != nil {
		h.writeErr(w, "upload blog image", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	f, err := h.svc.OpenImage(r.Context(), id)
	if err != nil {
		h.writeErr(w, "blog image", err)
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		h.writeErr(w, "blog image", err)
		return
	}
	http.ServeContent(w, r, st.Name(), st.ModTime(), f)
}

func (h *Handler) writeErr(w http.ResponseWriter, op string, err error) {
	if httpx.WriteValidation(w, err) {
		return
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoImage), errors.Is(err, storage.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrTooLarge):
		httpx.WriteError(w, http.StatusRequestEntityTooLarge, "image too large")
	case errors.Is(err, engine.ErrUnknownColumn), errors.Is(err, engine.ErrUnknownMode):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Warnw(op+" failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, op+" failed")
	}
}
