package cfimages_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leca/cfimages"
	"github.com/leca/cfimages/internal/localapi"
	"github.com/leca/cfimages/internal/localapi/store"
)

const (
	testAPIKey    = "test-api-key"
	testAccountID = "test-account"
	testAllowance = 100000
)

// startLocalAPI spins up the in-repo API stand-in on a fresh SQLite
// file and temp blob directory.
func startLocalAPI(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "images.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	blobs := store.NewFileBlobs(t.TempDir())

	srv := localapi.New(st, blobs, localapi.Config{
		AuthToken:      testAPIKey,
		ImageAllowance: testAllowance,
	})
	ts := httptest.NewServer(srv.Router)
	t.Cleanup(ts.Close)
	return ts
}

// newClient builds a client pointed at the stand-in.
func newClient(t *testing.T, ts *httptest.Server) *cfimages.Client {
	t.Helper()
	c, err := cfimages.New(cfimages.ClientOptions{
		APIKey:    testAPIKey,
		AccountID: testAccountID,
		BaseURL:   ts.URL,
	})
	require.NoError(t, err)
	return c
}

// recordLogger captures log calls for side-channel assertions.
type recordLogger struct {
	mu     sync.Mutex
	debugs []string
	errors []string
}

func (r *recordLogger) Trace(msg string, args ...any) {}
func (r *recordLogger) Debug(msg string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.debugs = append(r.debugs, msg)
}
func (r *recordLogger) Info(msg string, args ...any) {}
func (r *recordLogger) Warn(msg string, args ...any) {}
func (r *recordLogger) Error(msg string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := cfimages.New(cfimages.ClientOptions{AccountID: testAccountID})
	assert.ErrorIs(t, err, cfimages.ErrInvalidRequest)

	_, err = cfimages.New(cfimages.ClientOptions{APIKey: testAPIKey})
	assert.ErrorIs(t, err, cfimages.ErrInvalidRequest)

	c, err := cfimages.New(cfimages.ClientOptions{APIKey: testAPIKey, AccountID: testAccountID})
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestBadAPIKeyReturnsErrorEnvelope(t *testing.T) {
	ts := startLocalAPI(t)

	c, err := cfimages.New(cfimages.ClientOptions{
		APIKey:    "wrong-key",
		AccountID: testAccountID,
		BaseURL:   ts.URL,
	})
	require.NoError(t, err)

	resp, err := c.GetStats(context.Background())
	require.NoError(t, err)
	assert.False(t, resp.Success)
	require.NotEmpty(t, resp.Errors)
	assert.Equal(t, 9401, resp.FirstError().Code)
}

func TestTransportFailureReturnsError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	ts.Close() // connection refused from here on

	c, err := cfimages.New(cfimages.ClientOptions{
		APIKey:    testAPIKey,
		AccountID: testAccountID,
		BaseURL:   ts.URL,
	})
	require.NoError(t, err)

	resp, err := c.GetStats(context.Background())
	assert.Error(t, err)
	assert.Nil(t, resp)
}

func TestNonEnvelopeBodyIsTransportFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	t.Cleanup(ts.Close)

	c, err := cfimages.New(cfimages.ClientOptions{
		APIKey:    testAPIKey,
		AccountID: testAccountID,
		BaseURL:   ts.URL,
	})
	require.NoError(t, err)

	resp, err := c.GetStats(context.Background())
	assert.Error(t, err)
	assert.Nil(t, resp)
}

func TestContextCancellation(t *testing.T) {
	ts := startLocalAPI(t)
	c := newClient(t, ts)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetStats(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBearerTokenIsSent(t *testing.T) {
	var gotAuth atomic.Value
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":null,"success":true,"errors":[],"messages":[]}`))
	}))
	t.Cleanup(ts.Close)

	c, err := cfimages.New(cfimages.ClientOptions{
		APIKey:    testAPIKey,
		AccountID: testAccountID,
		BaseURL:   ts.URL,
	})
	require.NoError(t, err)

	_, err = c.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer "+testAPIKey, gotAuth.Load())
}

func TestRequestAndErrorLogging(t *testing.T) {
	ts := startLocalAPI(t)

	log := &recordLogger{}
	c, err := cfimages.New(cfimages.ClientOptions{
		APIKey:      testAPIKey,
		AccountID:   testAccountID,
		BaseURL:     ts.URL,
		Logger:      log,
		LogRequests: true,
		LogErrors:   true,
	})
	require.NoError(t, err)

	// Successful call: request logged, no error logged.
	resp, err := c.GetStats(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Len(t, log.debugs, 1)
	assert.Empty(t, log.errors)

	// Remote rejection: still a normal return value, error logged.
	resp2, err := c.GetImage(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.False(t, resp2.Success)
	assert.Len(t, log.debugs, 2)
	assert.Len(t, log.errors, 1)
}

func TestLoggingDisabledByDefault(t *testing.T) {
	ts := startLocalAPI(t)

	log := &recordLogger{}
	c, err := cfimages.New(cfimages.ClientOptions{
		APIKey:    testAPIKey,
		AccountID: testAccountID,
		BaseURL:   ts.URL,
		Logger:    log,
	})
	require.NoError(t, err)

	_, err = c.GetImage(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.Empty(t, log.debugs)
	assert.Empty(t, log.errors)
}
