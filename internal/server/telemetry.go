package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/trillectric/gridpulse/internal/observability/obscontext"
	telemetrydomain "github.com/trillectric/gridpulse/internal/telemetry/domain"
)

const duplicateMessage = "Data already exists within 5-second window"

func (s *Server) IngestTelemetry(c *gin.Context) {
	var req telemetrydomain.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	if req.DeviceID != nil && strings.TrimSpace(*req.DeviceID) != "" {
		c.Set("device_id", *req.DeviceID)
		ctx = obscontext.WithDeviceID(ctx, *req.DeviceID)

		if s.limiter.Enabled() {
			allowed, err := s.limiter.AllowDevice(ctx, *req.DeviceID)
			if err != nil {
				AbortWithError(c, err)
				return
			}
			if !allowed {
				c.JSON(http.StatusTooManyRequests, gin.H{"detail": "rate limit exceeded"})
				return
			}
		}
	}

	result, err := s.telemetrysvc.Ingest(ctx, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	switch result.Status {
	case telemetrydomain.IngestStatusDuplicate:
		c.JSON(http.StatusOK, gin.H{
			"status":  "duplicate",
			"message": duplicateMessage,
		})
	case telemetrydomain.IngestStatusRejected:
		c.JSON(http.StatusBadRequest, gin.H{"detail": rejectionDetail(result.Reason)})
	default:
		c.JSON(http.StatusCreated, gin.H{
			"status":  "success",
			"message": "Data ingested successfully",
		})
	}
}

func rejectionDetail(reason telemetrydomain.DiscardReason) string {
	switch reason {
	case telemetrydomain.DiscardReasonInvalidTimestamp:
		return "Invalid timestamp format"
	case telemetrydomain.DiscardReasonMalformed:
		return "Payload is missing required fields"
	default:
		return "Reading rejected"
	}
}

type telemetryResponse struct {
	DeviceID    string  `json:"device_id"`
	Timestamp   string  `json:"timestamp"`
	Voltage     float64 `json:"voltage"`
	Current     float64 `json:"current"`
	Power       float64 `json:"power"`
	IsDuplicate bool    `json:"is_duplicate"`
}

func (s *Server) ListTelemetry(c *gin.Context) {
	deviceID := c.Param("device_id")

	records, err := s.telemetrysvc.List(c.Request.Context(), deviceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := make([]telemetryResponse, 0, len(records))
	for _, record := range records {
		out = append(out, telemetryResponse{
			DeviceID:    record.DeviceID,
			Timestamp:   record.Timestamp.UTC().Format(time.RFC3339Nano),
			Voltage:     record.Voltage,
			Current:     record.Current,
			Power:       record.Power,
			IsDuplicate: record.IsDuplicate,
		})
	}
	c.JSON(http.StatusOK, out)
}

type deviceStatsResponse struct {
	DeviceID        string          `json:"device_id"`
	TotalEntries    int64           `json:"total_entries"`
	DuplicatesCount int64           `json:"duplicates_count"`
	DiscardedCount  int64           `json:"discarded_count"`
	ActiveAlerts    []alertResponse `json:"active_alerts"`
}

func (s *Server) DeviceStats(c *gin.Context) {
	deviceID := c.Param("device_id")

	stats, err := s.telemetrysvc.Stats(c.Request.Context(), deviceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, deviceStatsResponse{
		DeviceID:        stats.DeviceID,
		TotalEntries:    stats.TotalEntries,
		DuplicatesCount: stats.DuplicatesCount,
		DiscardedCount:  stats.DiscardedCount,
		ActiveAlerts:    toAlertResponses(stats.ActiveAlerts),
	})
}

func (s *Server) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":    "pong",
		"origin":     c.GetHeader("Origin"),
		"host":       c.Request.Host,
		"referer":    c.GetHeader("Referer"),
		"user-agent": c.Request.UserAgent(),
		"client":     c.ClientIP(),
	})
}
