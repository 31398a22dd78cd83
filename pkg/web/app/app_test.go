package app

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/compressed-wallet/pkg/web/headers"
)

type testApp struct {
	shutdownCh chan struct{}
}

func (a *testApp) Init(_ Config, _ *newrelic.Application) error { return nil }

func (a *testApp) RegisterWithRouter(router chi.Router) {
	router.Get("/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})
	router.Get("/v1/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
}

func (a *testApp) ShutdownChan() <-chan struct{} { return a.shutdownCh }

func (a *testApp) Stop() {}

func serve(handler http.Handler, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "10.0.0.1:1234"
	for k, v := range header {
		req.Header[k] = v
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestNewRouter(t *testing.T) {
	config := defaultConfig
	config.RequestsPerMinute = 0

	handler := NewRouter(config, &testApp{}, nil)

	rec := serve(handler, http.MethodGet, healthCheckPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(headers.RequestIDHeaderName))

	rec = serve(handler, http.MethodGet, "/v1/ping", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())

	rec = serve(handler, http.MethodGet, metricsPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "compressed_wallet_http_requests_total")

	rec = serve(handler, http.MethodGet, "/v1/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = serve(handler, http.MethodGet, "/v1/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewRouter_RateLimit(t *testing.T) {
	config := defaultConfig
	config.RequestsPerMinute = 2

	handler := NewRouter(config, &testApp{}, nil)

	for i := 0; i < 2; i++ {
		rec := serve(handler, http.MethodGet, "/v1/ping", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := serve(handler, http.MethodGet, "/v1/ping", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Limits are per client
	rec = serve(handler, http.MethodGet, "/v1/ping", http.Header{"X-Forwarded-For": []string{"203.0.113.7"}})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewRouter_CORS(t *testing.T) {
	config := defaultConfig
	config.AllowedOrigins = []string{"https://wallet.example.com"}

	handler := NewRouter(config, &testApp{}, nil)

	preflight := http.Header{
		"Origin":                        []string{"https://wallet.example.com"},
		"Access-Control-Request-Method": []string{http.MethodDelete},
	}
	rec := serve(handler, http.MethodOptions, "/v1/ping", preflight)
	assert.Equal(t, "https://wallet.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = serve(handler, http.MethodGet, "/v1/ping", http.Header{"Origin": []string{"https://evil.example.com"}})
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	handler = NewRouter(defaultConfig, &testApp{}, nil)
	rec = serve(handler, http.MethodGet, "/v1/ping", http.Header{"Origin": []string{"https://any.example.com"}})
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWithMiddleware(t *testing.T) {
	config := defaultConfig
	config.RequestsPerMinute = 0

	handler := NewRouter(config, &testApp{}, nil, WithMiddleware(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Custom", "1")
			next.ServeHTTP(w, r)
		})
	}))

	rec := serve(handler, http.MethodGet, "/v1/ping", nil)
	assert.Equal(t, "1", rec.Header().Get("X-Custom"))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cert.pem")
	require.NoError(t, os.WriteFile(path, []byte("contents"), 0600))

	for _, fileURL := range []string{path, "file://" + path} {
		data, err := LoadFile(fileURL)
		require.NoError(t, err)
		assert.Equal(t, "contents", string(data))
	}

	_, err := LoadFile("s3://bucket/cert.pem")
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.pem"))
	assert.Error(t, err)
}

func TestLoadTLSConfig(t *testing.T) {
	tlsConfig, err := loadTLSConfig(defaultConfig)
	require.NoError(t, err)
	assert.Nil(t, tlsConfig)

	config := defaultConfig
	config.TLSCertificate = "cert.pem"
	_, err = loadTLSConfig(config)
	assert.Error(t, err)
}
