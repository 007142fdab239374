package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	alertrepo "github.com/trillectric/gridpulse/internal/alert/repository"
	alertservice "github.com/trillectric/gridpulse/internal/alert/service"
	"github.com/trillectric/gridpulse/internal/clock"
	"github.com/trillectric/gridpulse/internal/config"
	"github.com/trillectric/gridpulse/internal/migration"
	"github.com/trillectric/gridpulse/internal/observability"
	"github.com/trillectric/gridpulse/internal/server"
	telemetryrepo "github.com/trillectric/gridpulse/internal/telemetry/repository"
	telemetryservice "github.com/trillectric/gridpulse/internal/telemetry/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

type env struct {
	db     *gorm.DB
	server *httptest.Server
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, migration.AutoMigrate(db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := config.Config{
		AppName:     "gridpulse",
		Environment: "test",
		StaticDir:   t.TempDir(),
	}
	obsCfg := observability.LoadConfig(cfg)
	sysClock := clock.NewSystem()
	telemetryRepo := telemetryrepo.Provide()

	alertSvc := alertservice.NewService(alertservice.ServiceParam{
		DB:            db,
		Log:           zap.NewNop(),
		GenID:         node,
		Clock:         sysClock,
		Repo:          alertrepo.Provide(),
		TelemetryRepo: telemetryRepo,
	})
	telemetrySvc := telemetryservice.NewService(telemetryservice.ServiceParam{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    sysClock,
		Repo:     telemetryRepo,
		AlertSvc: alertSvc,
	})

	srv := server.NewServer(server.ServerParams{
		Gin:          server.NewEngine(obsCfg),
		Cfg:          cfg,
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        sysClock,
		Telemetrysvc: telemetrySvc,
		Alertsvc:     alertSvc,
	})

	ts := httptest.NewServer(srv.Engine())
	t.Cleanup(ts.Close)

	return &env{db: db, server: ts}
}

func (e *env) post(t *testing.T, path string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(e.server.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func (e *env) get(t *testing.T, path string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(e.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.Unmarshal(raw, out))
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func readingPayload(deviceID string, ts time.Time, voltage, current, power float64) map[string]any {
	return map[string]any{
		"device_id": deviceID,
		"timestamp": ts.UTC().Format(time.RFC3339),
		"voltage":   voltage,
		"current":   current,
		"power":     power,
	}
}

func TestE2E_IngestLifecycle(t *testing.T) {
	e := newEnv(t)

	base := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	// Accept a healthy reading.
	resp, body := e.post(t, "/ingest", readingPayload("SOL-E2E", base, 230.5, 5.2, 1197.6))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "success", body["status"])

	// Replay inside the 5-second window: reported as duplicate, not stored.
	resp, body = e.post(t, "/ingest", readingPayload("SOL-E2E", base.Add(3*time.Second), 230.5, 5.2, 1197.6))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "duplicate", body["status"])

	// An over-voltage reading outside the window raises an alert.
	resp, body = e.post(t, "/ingest", readingPayload("SOL-E2E", base.Add(time.Minute), 300, 5.2, 1560))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "success", body["status"])

	var alerts []map[string]any
	alertResp := e.get(t, "/alerts/SOL-E2E", &alerts)
	require.Equal(t, http.StatusOK, alertResp.StatusCode)
	require.Len(t, alerts, 1)
	assert.Equal(t, "high_voltage", alerts[0]["alert_type"])

	// Garbage timestamp is rejected and counted as a discard.
	resp, body = e.post(t, "/ingest", map[string]any{
		"device_id": "SOL-E2E",
		"timestamp": "yesterday",
		"voltage":   230.0,
		"current":   5.0,
		"power":     1100.0,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid timestamp format", body["detail"])

	var stats map[string]any
	statsResp := e.get(t, "/stats/SOL-E2E", &stats)
	require.Equal(t, http.StatusOK, statsResp.StatusCode)
	assert.Equal(t, 2.0, stats["total_entries"])
	assert.Equal(t, 1.0, stats["duplicates_count"])
	assert.Equal(t, 1.0, stats["discarded_count"])
	require.Len(t, stats["active_alerts"], 1)

	// Accepted plus duplicates plus discards accounts for every attempt.
	attempts := stats["total_entries"].(float64) + stats["duplicates_count"].(float64) + stats["discarded_count"].(float64)
	assert.Equal(t, 4.0, attempts)
}

func TestE2E_LowPowerAlertFlow(t *testing.T) {
	e := newEnv(t)

	base := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		resp, _ := e.post(t, "/ingest", readingPayload("SOL-LP", base.Add(time.Duration(i)*10*time.Second), 230, 0.02, 4.6))
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	var alerts []map[string]any
	resp := e.get(t, "/alerts/SOL-LP", &alerts)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, alerts, 1)
	assert.Equal(t, "low_power", alerts[0]["alert_type"])
	assert.Equal(t, "Power below 10W for 6 consecutive readings (last reading: 4.6W)", alerts[0]["details"])

	// Readings for the listing endpoint come back oldest first.
	var records []map[string]any
	resp = e.get(t, "/telemetry/SOL-LP", &records)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, records, 6)
	for i := 0; i < len(records)-1; i++ {
		assert.LessOrEqual(t,
			fmt.Sprint(records[i]["timestamp"]),
			fmt.Sprint(records[i+1]["timestamp"]))
	}
}

func TestE2E_HealthAndMetrics(t *testing.T) {
	e := newEnv(t)

	var health map[string]any
	resp := e.get(t, "/health", &health)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health["status"])

	resp = e.get(t, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
