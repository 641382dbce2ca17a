package blog

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bimerz/portal-service/internal/blog/entity"
	"github.com/bimerz/portal-service/internal/engine"
	"github.com/bimerz/portal-service/internal/storage"
	"github.com/bimerz/portal-service/internal/validate"
)

func newService(t *testing.T) *Service {
	t.Helper()
	files, err := storage.NewLocal(storage.Config{Dir: t.TempDir(), MaxSize: 1 << 20})
	require.NoError(t, err)
	return NewService(nil, newFakeRepo(), files, nil)
}

func seed(t *testing.T, svc *Service) {
	t.Helper()
	for _, in := range []entity.Input{
		{Title: "راهنمای بیمه بدنه", Content: "...", Category: "خودرو"},
		{Title: "بیمه عمر چیست", Content: "...", Category: "زندگی"},
		{Title: "آتش سوزی منزل", Content: "...", Category: "اموال"},
	} {
		_, err := svc.Create(context.Background(), in)
		require.NoError(t, err)
	}
}

func titles(p engine.Page[entity.Blog]) []string {
	out := make([]string, len(p.Items))
	for i, b := range p.Items {
		out[i] = b.Title
	}
	return out
}

func TestListSearchAndOrder(t *testing.T) {
	svc := newService(t)
	seed(t, svc)

	page, err := svc.List(context.Background(), "خودرو", engine.View{})
	require.NoError(t, err)
	assert.Equal(t, []string{"راهنمای بیمه بدنه"}, titles(page))

	page, err = svc.List(context.Background(), "", engine.View{Date: engine.DateOldest})
	require.NoError(t, err)
	assert.Equal(t, []string{"راهنمای بیمه بدنه", "بیمه عمر چیست", "آتش سوزی منزل"}, titles(page))

	page, err = svc.List(context.Background(), "", engine.View{Sort: "title"})
	require.NoError(t, err)
	assert.Equal(t, "آتش سوزی منزل", page.Items[0].Title)
}

func TestCreateValidates(t *testing.T) {
	svc := newService(t)
	_, err := svc.Create(context.Background(), entity.Input{Title: "x"})
	var ve *validate.Error
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "required", ve.Fields["content"])
}

func TestImageReplaceAndDelete(t *testing.T) {
	svc := newService(t)
	seed(t, svc)

	_, err := svc.OpenImage(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoImage)

	b, err := svc.SetImage(context.Background(), 1, strings.NewReader("png-1"), ".png")
	require.NoError(t, err)
	first := b.ImagePath
	_, err = svc.SetImage(context.Background(), 1, strings.NewReader("png-2"), ".png")
	require.NoError(t, err)
	_, err = svc.files.Open(first)
	assert.ErrorIs(t, err, storage.ErrNotFound, "replaced image is removed")

	f, err := svc.OpenImage(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, svc.Delete(context.Background(), 1))
	assert.ErrorIs(t, svc.Delete(context.Background(), 1), ErrNotFound)
}

func TestHandlers(t *testing.T) {
	svc := newService(t)
	h := NewHandler(svc, zap.NewNop().Sugar())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /blogs", h.List)
	mux.HandleFunc("GET /blogs/{id}", h.Get)
	mux.HandleFunc("GET /blogs/{id}/image", h.Image)
	mux.HandleFunc("POST /admin/blogs", h.Create)
	mux.HandleFunc("PUT /admin/blogs/{id}", h.Update)
	mux.HandleFunc("DELETE /admin/blogs/{id}", h.Delete)
	mux.HandleFunc("POST /admin/blogs/{id}/image", h.UploadImage)
	do := func(method, path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
		return rec
	}

	rec := do(http.MethodPost, "/admin/blogs", `{"title":"Claims 101","content":"body","category":"guide"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/admin/blogs", `{"title":""}`).Code)

	rec = do(http.MethodGet, "/blogs?q=guide", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = do(http.MethodPut, "/admin/blogs/1", `{"title":"Claims 102","content":"body"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Claims 102")

	assert.Equal(t, http.StatusNotFound, do(http.MethodGet, "/blogs/1/image", "").Code)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "cover.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("\x89PNG\r\n\x1a\nrest"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/admin/blogs/1/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"has_image":true`)

	rec = do(http.MethodGet, "/blogs/1/image", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusNoContent, do(http.MethodDelete, "/admin/blogs/1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(http.MethodGet, "/blogs/1", "").Code)
}
