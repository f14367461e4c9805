package monitor

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"medialift/internal/catalog"
	"medialift/internal/logging"
	"medialift/internal/metrics"
	"medialift/internal/models"
	"medialift/internal/test"
)

// one instance per test binary; promauto registers on the default registry
var testMetrics = metrics.InitializeMetrics()

type stubPinger struct {
	reachable bool
}

func (p *stubPinger) Ping(ctx context.Context) bool {
	return p.reachable
}

func newTestServer(t *testing.T, pinger Pinger) (*Server, *gorm.DB) {
	t.Helper()

	manager, tearDown := test.GetTestManager(t)
	t.Cleanup(tearDown)

	logger := logging.NewLogger(logging.ErrorLevel, io.Discard)
	store := catalog.NewStore(manager, nil)
	return NewServer(manager, store, pinger, testMetrics, logger), manager.GetGormDB()
}

func TestServer_Healthz_AllDependenciesUp(t *testing.T) {
	server, _ := newTestServer(t, &stubPinger{reachable: true})

	resp, err := server.App().Test(httptest.NewRequest("GET", "/healthz", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "ok", health.DB.Status)
	assert.Equal(t, "ok", health.Remote.Status)
	assert.GreaterOrEqual(t, health.DB.LatencyMs, int64(0))
}

func TestServer_Healthz_RemoteDown(t *testing.T) {
	server, _ := newTestServer(t, &stubPinger{reachable: false})

	resp, err := server.App().Test(httptest.NewRequest("GET", "/healthz", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 503, resp.StatusCode)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "down", health.Status)
	assert.Equal(t, "down", health.Remote.Status)
	assert.Equal(t, "ok", health.DB.Status, "the catalog stays healthy on its own")
}

func TestServer_Healthz_NilPingerIsDisabled(t *testing.T) {
	server, _ := newTestServer(t, nil)

	resp, err := server.App().Test(httptest.NewRequest("GET", "/healthz", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status, "a disabled remote check never degrades the endpoint")
	assert.Equal(t, "disabled", health.Remote.Status)
}

func TestServer_Stats_ReturnsCatalogCounts(t *testing.T) {
	server, db := newTestServer(t, nil)

	test.CreateTestFile(t, db, "/photos/a.jpg", models.StatusPending)
	test.CreateTestFile(t, db, "/photos/b.jpg", models.StatusSuccess)
	test.CreateTestFile(t, db, "/photos/c.jpg", models.StatusError)

	resp, err := server.App().Test(httptest.NewRequest("GET", "/api/stats", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)

	var stats catalog.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.PendingUpload)
	assert.Equal(t, int64(1), stats.ByStatus[models.StatusSuccess])
}

func TestServer_Metrics_ServesPrometheusExposition(t *testing.T) {
	server, _ := newTestServer(t, &stubPinger{reachable: true})

	// a health probe first, so the gauge carries values
	healthResp, err := server.App().Test(httptest.NewRequest("GET", "/healthz", nil), -1)
	require.NoError(t, err)
	healthResp.Body.Close()

	resp, err := server.App().Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "# HELP")
	assert.Contains(t, string(body), "medialift_health_status")
}
