package carjam

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldotspots/zuco-motors/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(cfg config.CarJamConfig) *gin.Engine {
	r := gin.New()
	Register(r, "/carjam", NewClient(cfg), zerolog.Nop())
	return r
}

func get(r http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func assertCORS(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
}

func TestNormalizePlate(t *testing.T) {
	assert.Equal(t, "ABC123", NormalizePlate("  abc 1\t23 "))
	assert.Equal(t, "", NormalizePlate("   "))
}

func TestForwardsNormalizedPlate(t *testing.T) {
	var got *http.Request
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`{"plate":"ABC123","make":"TOYOTA"}`))
	}))
	defer upstream.Close()

	r := newRouter(config.CarJamConfig{APIKey: "k&y", BaseURL: upstream.URL + "/api/car/"})
	w := get(r, http.MethodGet, "/carjam?plate=%20abc%20123")

	require.Equal(t, http.StatusOK, w.Code)
	assertCORS(t, w)
	assert.JSONEq(t, `{"plate":"ABC123","make":"TOYOTA"}`, w.Body.String())

	require.NotNil(t, got)
	assert.Equal(t, "/api/car/", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "k&y", q.Get("key"))
	assert.Equal(t, "ABC123", q.Get("plate"))
	assert.Equal(t, "1", q.Get("basic"))
	assert.Equal(t, "json", q.Get("f"))
	assert.Equal(t, "1", q.Get("translate"))
}

func TestUpstreamErrorStatusBecomes502(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"no such plate"}`))
	}))
	defer upstream.Close()

	w := get(newRouter(config.CarJamConfig{APIKey: "key", BaseURL: upstream.URL + "/"}), http.MethodGet, "/carjam?plate=zzz999")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"error":"no such plate"}`, w.Body.String())
}

func TestUndecodableUpstreamBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer upstream.Close()

	w := get(newRouter(config.CarJamConfig{APIKey: "key", BaseURL: upstream.URL + "/"}), http.MethodGet, "/carjam?plate=abc123")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "CarJam request failed", body["error"])
	assert.NotEmpty(t, body["details"])
}

func TestUnreachableUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := upstream.URL + "/"
	upstream.Close()

	w := get(newRouter(config.CarJamConfig{APIKey: "secret-key", BaseURL: base, Timeout: time.Second}), http.MethodGet, "/carjam?plate=abc123")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, w.Body.String(), "secret-key")
}

func TestRequestValidation(t *testing.T) {
	r := newRouter(config.CarJamConfig{})

	w := get(r, http.MethodGet, "/carjam?plate=%20%20")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Missing plate parameter"}`, w.Body.String())
	assertCORS(t, w)

	w = get(r, http.MethodGet, "/carjam?plate=abc123")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"CARJAM_API_KEY not configured"}`, w.Body.String())

	w = get(r, http.MethodOptions, "/carjam")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assertCORS(t, w)
	assert.Empty(t, w.Body.String())
}
