package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
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

func newTestServer(t *testing.T, cfg config.Config) *Server {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, migration.AutoMigrate(db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	telemetryRepo := telemetryrepo.Provide()

	alertSvc := alertservice.NewService(alertservice.ServiceParam{
		DB:            db,
		Log:           zap.NewNop(),
		GenID:         node,
		Clock:         fakeClock,
		Repo:          alertrepo.Provide(),
		TelemetryRepo: telemetryRepo,
	})
	telemetrySvc := telemetryservice.NewService(telemetryservice.ServiceParam{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fakeClock,
		Repo:     telemetryRepo,
		AlertSvc: alertSvc,
	})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	if cfg.StaticDir == "" {
		cfg.StaticDir = t.TempDir()
	}

	return NewServer(ServerParams{
		Gin:          engine,
		Cfg:          cfg,
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        fakeClock,
		Telemetrysvc: telemetrySvc,
		Alertsvc:     alertSvc,
	})
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func TestIngestEndpoint_Accepted(t *testing.T) {
	s := newTestServer(t, config.Config{Environment: "test"})

	w := doRequest(t, s, http.MethodPost, "/ingest",
		`{"device_id":"SOL-1","timestamp":"2025-03-10T10:00:00Z","voltage":230.5,"current":5.2,"power":1197.6}`)

	require.Equal(t, http.StatusCreated, w.Code)
	var body map[string]string
	decodeJSON(t, w, &body)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Data ingested successfully", body["message"])
}

func TestIngestEndpoint_Duplicate(t *testing.T) {
	s := newTestServer(t, config.Config{Environment: "test"})

	first := doRequest(t, s, http.MethodPost, "/ingest",
		`{"device_id":"SOL-2","timestamp":"2025-03-10T10:00:00Z","voltage":230,"current":5,"power":1100}`)
	require.Equal(t, http.StatusCreated, first.Code)

	second := doRequest(t, s, http.MethodPost, "/ingest",
		`{"device_id":"SOL-2","timestamp":"2025-03-10T10:00:03Z","voltage":230,"current":5,"power":1100}`)
	require.Equal(t, http.StatusOK, second.Code)

	var body map[string]string
	decodeJSON(t, second, &body)
	assert.Equal(t, "duplicate", body["status"])
	assert.Equal(t, "Data already exists within 5-second window", body["message"])
}

func TestIngestEndpoint_InvalidTimestamp(t *testing.T) {
	s := newTestServer(t, config.Config{Environment: "test"})

	w := doRequest(t, s, http.MethodPost, "/ingest",
		`{"device_id":"SOL-3","timestamp":"10-03-2025","voltage":230,"current":5,"power":1100}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]string
	decodeJSON(t, w, &body)
	assert.Equal(t, "Invalid timestamp format", body["detail"])
}

func TestIngestEndpoint_MissingField(t *testing.T) {
	s := newTestServer(t, config.Config{Environment: "test"})

	w := doRequest(t, s, http.MethodPost, "/ingest",
		`{"device_id":"SOL-4","timestamp":"2025-03-10T10:00:00Z","voltage":230,"current":5}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]string
	decodeJSON(t, w, &body)
	assert.Equal(t, "Payload is missing required fields", body["detail"])
}

func TestIngestEndpoint_MalformedBody(t *testing.T) {
	s := newTestServer(t, config.Config{Environment: "test"})

	w := doRequest(t, s, http.MethodPost, "/ingest", `{"device_id":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListTelemetryEndpoint(t *testing.T) {
	s := newTestServer(t, config.Config{Environment: "test"})

	doRequest(t, s, http.MethodPost, "/ingest",
		`{"device_id":"SOL-5","timestamp":"2025-03-10T10:00:00Z","voltage":230,"current":5,"power":1100}`)
	doRequest(t, s, http.MethodPost, "/ingest",
		`{"device_id":"SOL-5","timestamp":"2025-03-10T10:00:10Z","voltage":231,"current":5,"power":1105}`)

	w := doRequest(t, s, http.MethodGet, "/telemetry/SOL-5", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body []map[string]any
	decodeJSON(t, w, &body)
	require.Len(t, body, 2)
	assert.Equal(t, "SOL-5", body[0]["device_id"])
	assert.Equal(t, "2025-03-10T10:00:00Z", body[0]["timestamp"])
	assert.Equal(t, 230.0, body[0]["voltage"])
}

func TestAlertsEndpoint(t *testing.T) {
	s := newTestServer(t, config.Config{Environment: "test"})

	w := doRequest(t, s, http.MethodPost, "/ingest",
		`{"device_id":"SOL-6","timestamp":"2025-03-10T10:00:00Z","voltage":300,"current":5,"power":1500}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(t, s, http.MethodGet, "/alerts/SOL-6", "")
	require.Equal(t, http.StatusOK, w.Code)

	var alerts []map[string]any
	decodeJSON(t, w, &alerts)
	require.Len(t, alerts, 1)
	assert.Equal(t, "SOL-6", alerts[0]["device_id"])
	assert.Equal(t, "high_voltage", alerts[0]["alert_type"])
	assert.Equal(t, true, alerts[0]["is_active"])
	assert.Nil(t, alerts[0]["resolved_at"])
	assert.Equal(t, "Voltage exceeded 270V (current: 300V)", alerts[0]["details"])
}

func TestAlertsEndpoint_ActiveOnlyFilter(t *testing.T) {
	s := newTestServer(t, config.Config{Environment: "test"})

	// No alerts yet: both filters return empty lists, and a bad filter
	// value is a 400.
	w := doRequest(t, s, http.MethodGet, "/alerts/SOL-7?active_only=false", "")
	require.Equal(t, http.StatusOK, w.Code)
	var alerts []map[string]any
	decodeJSON(t, w, &alerts)
	assert.Empty(t, alerts)

	w = doRequest(t, s, http.MethodGet, "/alerts/SOL-7?active_only=maybe", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatsEndpoint(t *testing.T) {
	s := newTestServer(t, config.Config{Environment: "test"})

	doRequest(t, s, http.MethodPost, "/ingest",
		`{"device_id":"SOL-8","timestamp":"2025-03-10T10:00:00Z","voltage":230,"current":5,"power":1100}`)
	doRequest(t, s, http.MethodPost, "/ingest",
		`{"device_id":"SOL-8","timestamp":"2025-03-10T10:00:02Z","voltage":230,"current":5,"power":1100}`)
	doRequest(t, s, http.MethodPost, "/ingest",
		`{"device_id":"SOL-8","timestamp":"bogus","voltage":230,"current":5,"power":1100}`)

	w := doRequest(t, s, http.MethodGet, "/stats/SOL-8", "")
	require.Equal(t, http.StatusOK, w.Code)

	var stats map[string]any
	decodeJSON(t, w, &stats)
	assert.Equal(t, "SOL-8", stats["device_id"])
	assert.Equal(t, 1.0, stats["total_entries"])
	assert.Equal(t, 1.0, stats["duplicates_count"])
	assert.Equal(t, 1.0, stats["discarded_count"])
	assert.Equal(t, []any{}, stats["active_alerts"])
}

func TestInsertSampleDataEndpoint(t *testing.T) {
	s := newTestServer(t, config.Config{Environment: "test"})

	w := doRequest(t, s, http.MethodPost, "/insert", "")
	require.Equal(t, http.StatusOK, w.Code)

	stats := doRequest(t, s, http.MethodGet, "/stats/SOL-XL1001", "")
	require.Equal(t, http.StatusOK, stats.Code)

	var body map[string]any
	decodeJSON(t, stats, &body)
	assert.Equal(t, 2.0, body["total_entries"])
	assert.Equal(t, 1.0, body["duplicates_count"])
	assert.Equal(t, 0.0, body["discarded_count"])
	require.Len(t, body["active_alerts"], 1)
}

func TestInsertSampleDataEndpoint_HiddenInProduction(t *testing.T) {
	s := newTestServer(t, config.Config{Environment: "production"})

	w := doRequest(t, s, http.MethodPost, "/insert", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPingEndpoint(t *testing.T) {
	s := newTestServer(t, config.Config{Environment: "test"})

	w := doRequest(t, s, http.MethodGet, "/ping", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	decodeJSON(t, w, &body)
	assert.Equal(t, "pong", body["message"])
}
