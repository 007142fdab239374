package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/trillectric/gridpulse/internal/seed"
)

// InsertSampleData seeds demo telemetry, an alert and a discard for local
// development. Hidden in production.
func (s *Server) InsertSampleData(c *gin.Context) {
	if s.cfg.IsProduction() {
		AbortWithError(c, ErrNotFound)
		return
	}

	if err := seed.InsertSampleData(c.Request.Context(), s.db, s.genID, s.clock.Now()); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "Dummy data inserted"})
}
