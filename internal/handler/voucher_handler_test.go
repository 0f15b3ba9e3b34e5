package handler

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVoucherList_ForwardsPagination(t *testing.T) {
	var gotPath, gotQuery string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"data":[{"id":"1","paid_to":"ACME"}],"current_page":3,"per_page":10,"total":21,"last_page":3,"from":21,"to":21}`))
	}))
	defer upstream.Close()

	handler, _ := setupRouter(t, upstream.URL)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/vouchers/cash?page=3&per_page=10", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "/api/cash-vouchers", gotPath)
	require.Contains(t, gotQuery, "page=3")
	require.Contains(t, rec.Body.String(), `"current_page":3`)
}

func TestVoucherList_RejectsUnknownKind(t *testing.T) {
	handler, _ := setupRouter(t, "http://record-store.test")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/vouchers/bond", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVoucherUpdate_ForwardsStatusChange(t *testing.T) {
	var gotMethod string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		_, _ = w.Write([]byte(`{"message":"updated"}`))
	}))
	defer upstream.Close()

	handler, _ := setupRouter(t, upstream.URL)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/vouchers/cheque/5", nil)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, http.MethodPut, gotMethod)
}

func TestVoucherUpdateMultipart_UpstreamCanParseForm(t *testing.T) {
	var formErr error
	var gotMethodOverride, gotAmount string
	var gotFile []byte
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		formErr = r.ParseMultipartForm(1 << 20)
		if formErr != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message":"bad form"}`))
			return
		}
		gotMethodOverride = r.FormValue("_method")
		gotAmount = r.FormValue("amount")
		if file, _, err := r.FormFile("attachment"); err == nil {
			gotFile, _ = io.ReadAll(file)
			_ = file.Close()
		}
		_, _ = w.Write([]byte(`{"message":"updated"}`))
	}))
	defer upstream.Close()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("_method", "PUT"))
	require.NoError(t, form.WriteField("amount", "150.00"))
	part, err := form.CreateFormFile("attachment", "receipt.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	handler, _ := setupRouter(t, upstream.URL)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vouchers/cheque/5", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// the boundary parameter must survive the hop or the form is unreadable
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, formErr)
	require.Equal(t, "PUT", gotMethodOverride)
	require.Equal(t, "150.00", gotAmount)
	require.Equal(t, []byte("png-bytes"), gotFile)
}

func TestImageProxy_RequiresURL(t *testing.T) {
	handler, _ := setupRouter(t, "http://record-store.test")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/images/proxy", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Image URL is missing")
}

func TestImageProxy_ServesAndCaches(t *testing.T) {
	hits := 0
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer remote.Close()

	handler, _ := setupRouter(t, "http://record-store.test")
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/images/proxy?url="+remote.URL+"/sig.png", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		require.Equal(t, "png-bytes", rec.Body.String())
		require.Contains(t, rec.Header().Get("Cache-Control"), "immutable")
	}
	require.Equal(t, 1, hits)
}
