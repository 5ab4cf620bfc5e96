package localapi_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leca/cfimages/internal/localapi"
	"github.com/leca/cfimages/internal/localapi/store"
)

const (
	testToken   = "test-token"
	testAccount = "test-account"
)

// testServer creates a test HTTP server backed by a fresh SQLite file
// and a temporary blob directory.
func testServer(t *testing.T, allowance int64) *httptest.Server {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "images.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	blobs := store.NewFileBlobs(t.TempDir())

	srv := localapi.New(st, blobs, localapi.Config{
		AuthToken:      testToken,
		BaseURL:        "http://localhost:8080",
		ImageAllowance: allowance,
	})
	ts := httptest.NewServer(srv.Router)
	t.Cleanup(ts.Close)
	return ts
}

func apiBase(ts *httptest.Server) string {
	return ts.URL + "/accounts/" + testAccount + "/images/v1"
}

func authReq(t *testing.T, method, url string, body io.Reader) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}

// multipartUpload builds a multipart body with a file field plus extra
// form fields.
func multipartUpload(t *testing.T, fileName string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

type envelope struct {
	Success bool `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	Result json.RawMessage `json:"result"`
}

func doUpload(t *testing.T, ts *httptest.Server, fileName string, content []byte, fields map[string]string) (int, envelope) {
	t.Helper()
	body, contentType := multipartUpload(t, fileName, content, fields)
	req := authReq(t, http.MethodPost, apiBase(ts), body)
	req.Header.Set("Content-Type", contentType)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func makePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestUploadHonorsClientID(t *testing.T) {
	ts := testServer(t, 1000)

	status, env := doUpload(t, ts, "a.png", []byte("data"), map[string]string{"id": "my-image"})
	require.Equal(t, http.StatusOK, status)
	require.True(t, env.Success)

	var result struct {
		ID       string `json:"id"`
		Filename string `json:"filename"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &result))
	assert.Equal(t, "my-image", result.ID)
	assert.Equal(t, "a.png", result.Filename)
}

func TestUploadGeneratesIDWhenAbsent(t *testing.T) {
	ts := testServer(t, 1000)

	status, env := doUpload(t, ts, "a.png", []byte("data"), nil)
	require.Equal(t, http.StatusOK, status)
	require.True(t, env.Success)

	var result struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &result))
	assert.NotEmpty(t, result.ID)
}

func TestUploadDuplicateIDConflicts(t *testing.T) {
	ts := testServer(t, 1000)

	status, _ := doUpload(t, ts, "a.png", []byte("data"), map[string]string{"id": "dup"})
	require.Equal(t, http.StatusOK, status)

	status, env := doUpload(t, ts, "b.png", []byte("data"), map[string]string{"id": "dup"})
	assert.Equal(t, http.StatusConflict, status)
	assert.False(t, env.Success)
	require.NotEmpty(t, env.Errors)
	assert.Equal(t, 9409, env.Errors[0].Code)
}

func TestUploadRejectsLongID(t *testing.T) {
	ts := testServer(t, 1000)

	status, env := doUpload(t, ts, "a.png", []byte("data"),
		map[string]string{"id": strings.Repeat("x", 33)})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Success)
}

func TestUploadEnforcesAllowance(t *testing.T) {
	ts := testServer(t, 1)

	status, _ := doUpload(t, ts, "a.png", []byte("data"), map[string]string{"id": "first"})
	require.Equal(t, http.StatusOK, status)

	status, env := doUpload(t, ts, "b.png", []byte("data"), map[string]string{"id": "second"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.False(t, env.Success)
	require.NotEmpty(t, env.Errors)
	assert.Equal(t, 9422, env.Errors[0].Code)
}

func TestUploadRejectsOversizedBody(t *testing.T) {
	ts := testServer(t, 1000)

	status, env := doUpload(t, ts, "big.png", make([]byte, 10<<20+1024), map[string]string{"id": "big"})
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)
	assert.False(t, env.Success)
	require.NotEmpty(t, env.Errors)
	assert.Equal(t, 9413, env.Errors[0].Code)
}

func TestListRejectsBadPagination(t *testing.T) {
	ts := testServer(t, 1000)

	for _, q := range []string{"?page=0", "?per_page=5", "?per_page=101", "?page=abc"} {
		resp, err := http.DefaultClient.Do(authReq(t, http.MethodGet, apiBase(ts)+q, nil))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "query %s", q)
	}
}

func TestMissingAuth(t *testing.T) {
	ts := testServer(t, 1000)

	req, err := http.NewRequest(http.MethodGet, apiBase(ts)+"/stats", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Errors)
}

func createVariant(t *testing.T, ts *httptest.Server, id, fit string, w, h int) {
	t.Helper()
	body := fmt.Sprintf(`{"id":%q,"options":{"fit":%q,"width":%d,"height":%d,"metadata":"none"}}`, id, fit, w, h)
	req := authReq(t, http.MethodPost, apiBase(ts)+"/variants", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func fetchRendered(t *testing.T, ts *httptest.Server, imageID, variantID string) (int, int) {
	t.Helper()
	resp, err := http.Get(ts.URL + "/cdn/" + testAccount + "/" + imageID + "/" + variantID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	img, _, err := image.Decode(resp.Body)
	require.NoError(t, err)
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestDeliveryRendersVariant(t *testing.T) {
	ts := testServer(t, 1000)

	status, _ := doUpload(t, ts, "photo.png", makePNG(t, 400, 200), map[string]string{"id": "photo"})
	require.Equal(t, http.StatusOK, status)
	createVariant(t, ts, "thumb", "cover", 100, 100)

	w, h := fetchRendered(t, ts, "photo", "thumb")
	assert.Equal(t, 100, w)
	assert.Equal(t, 100, h)
}

func TestVariantUpdatePurgesRenderings(t *testing.T) {
	ts := testServer(t, 1000)

	status, _ := doUpload(t, ts, "photo.png", makePNG(t, 400, 200), map[string]string{"id": "photo"})
	require.Equal(t, http.StatusOK, status)
	createVariant(t, ts, "thumb", "cover", 100, 100)

	// Prime the rendering cache.
	w, h := fetchRendered(t, ts, "photo", "thumb")
	require.Equal(t, 100, w)
	require.Equal(t, 100, h)

	// Changing the variant must invalidate the cached rendering.
	body := `{"options":{"fit":"cover","width":50,"height":50}}`
	req := authReq(t, http.MethodPatch, apiBase(ts)+"/variants/thumb", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	w, h = fetchRendered(t, ts, "photo", "thumb")
	assert.Equal(t, 50, w)
	assert.Equal(t, 50, h)
}

func TestRejectedUploadLeavesStoredImageIntact(t *testing.T) {
	ts := testServer(t, 1000)

	status, _ := doUpload(t, ts, "photo.png", makePNG(t, 400, 200), map[string]string{"id": "photo"})
	require.Equal(t, http.StatusOK, status)
	createVariant(t, ts, "orig", "scale-down", 1000, 1000)

	w, h := fetchRendered(t, ts, "photo", "orig")
	require.Equal(t, 400, w)
	require.Equal(t, 200, h)

	// A conflicting upload must not replace the stored original.
	status, env := doUpload(t, ts, "other.png", makePNG(t, 100, 100), map[string]string{"id": "photo"})
	require.Equal(t, http.StatusConflict, status)
	require.False(t, env.Success)

	w, h = fetchRendered(t, ts, "photo", "orig")
	assert.Equal(t, 400, w)
	assert.Equal(t, 200, h)
}

func TestStatsAllowanceDefaultsWhenUnset(t *testing.T) {
	ts := testServer(t, 0)

	status, _ := doUpload(t, ts, "a.png", []byte("data"), map[string]string{"id": "one"})
	require.Equal(t, http.StatusOK, status)

	req := authReq(t, http.MethodGet, apiBase(ts)+"/stats", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.True(t, env.Success)

	var result struct {
		Count struct {
			Current int64 `json:"current"`
			Allowed int64 `json:"allowed"`
		} `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &result))
	assert.Equal(t, int64(1), result.Count.Current)
	assert.Equal(t, int64(localapi.DefaultImageAllowance), result.Count.Allowed)
	assert.LessOrEqual(t, result.Count.Current, result.Count.Allowed)
}

func TestDeliveryUnknownVariant(t *testing.T) {
	ts := testServer(t, 1000)

	status, _ := doUpload(t, ts, "photo.png", makePNG(t, 10, 10), map[string]string{"id": "photo"})
	require.Equal(t, http.StatusOK, status)

	resp, err := http.Get(ts.URL + "/cdn/" + testAccount + "/photo/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
