package httpx

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bimerz/portal-service/internal/engine"
	"github.com/bimerz/portal-service/internal/money"
	"github.com/bimerz/portal-service/internal/validate"
)

func TestParseView(t *testing.T) {
	v, err := ParseView(url.Values{"sort": {"amount"}, "mode": {"asc"}, "date": {"newest"}, "page": {"3"}, "size": {"0"}})
	require.NoError(t, err)
	assert.Equal(t, engine.View{Sort: "amount", Mode: engine.Ascending, Date: engine.DateNewest, Page: 3, Size: 0}, v)

	v, err = ParseView(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, engine.DateNone, v.Date)
	assert.Equal(t, 1, v.Page)
	assert.Equal(t, 20, v.Size)

	_, err = ParseView(url.Values{"date": {"sideways"}})
	assert.Error(t, err)
	_, err = ParseView(url.Values{"page": {"-1"}})
	assert.Error(t, err)
}

func TestPathID(t *testing.T) {
	mux := http.NewServeMux()
	var got int64
	var gotErr error
	mux.HandleFunc("GET /x/{id}", func(w http.ResponseWriter, r *http.Request) {
		got, gotErr = PathID(r, "id")
	})
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x/42", nil))
	require.NoError(t, gotErr)
	assert.Equal(t, int64(42), got)

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x/abc", nil))
	assert.ErrorIs(t, gotErr, ErrBadID)
}

func TestWriteValidation(t *testing.T) {
	rec := httptest.NewRecorder()
	ok := WriteValidation(rec, &validate.Error{Fields: map[string]string{"phone": "irphone"}})
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"validation failed","fields":{"phone":"irphone"}}`, rec.Body.String())

	assert.False(t, WriteValidation(httptest.NewRecorder(), assert.AnError))
}

func TestOptionalInt64(t *testing.T) {
	n, err := OptionalInt64("", money.Parse)
	require.NoError(t, err)
	assert.Nil(t, n)
	n, err = OptionalInt64("1,000", money.Parse)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), *n)
	_, err = OptionalInt64("abc", money.Parse)
	assert.Error(t, err)
}
