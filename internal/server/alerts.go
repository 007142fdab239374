package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	alertdomain "github.com/trillectric/gridpulse/internal/alert/domain"
)

type alertResponse struct {
	ID          string  `json:"id"`
	DeviceID    string  `json:"device_id"`
	AlertType   string  `json:"alert_type"`
	TriggeredAt string  `json:"triggered_at"`
	IsActive    bool    `json:"is_active"`
	ResolvedAt  *string `json:"resolved_at"`
	Details     string  `json:"details"`
}

func (s *Server) ListAlerts(c *gin.Context) {
	deviceID := c.Param("device_id")

	activeOnly := true
	if raw := c.Query("active_only"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		activeOnly = parsed
	}

	alerts, err := s.alertsvc.List(c.Request.Context(), alertdomain.ListRequest{
		DeviceID:   deviceID,
		ActiveOnly: activeOnly,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAlertResponses(alerts))
}

func toAlertResponses(alerts []alertdomain.Alert) []alertResponse {
	out := make([]alertResponse, 0, len(alerts))
	for _, alert := range alerts {
		resp := alertResponse{
			ID:          alert.ID.String(),
			DeviceID:    alert.DeviceID,
			AlertType:   string(alert.Type),
			TriggeredAt: alert.TriggeredAt.UTC().Format(time.RFC3339Nano),
			IsActive:    alert.IsActive,
			Details:     alert.Details,
		}
		if alert.ResolvedAt != nil {
			resolvedAt := alert.ResolvedAt.UTC().Format(time.RFC3339Nano)
			resp.ResolvedAt = &resolvedAt
		}
		out = append(out, resp)
	}
	return out
}
