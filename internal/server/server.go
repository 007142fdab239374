package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/trillectric/gridpulse/internal/alert"
	alertdomain "github.com/trillectric/gridpulse/internal/alert/domain"
	"github.com/trillectric/gridpulse/internal/clock"
	"github.com/trillectric/gridpulse/internal/config"
	"github.com/trillectric/gridpulse/internal/observability"
	obslogger "github.com/trillectric/gridpulse/internal/observability/logger"
	"github.com/trillectric/gridpulse/internal/ratelimit"
	"github.com/trillectric/gridpulse/internal/telemetry"
	telemetrydomain "github.com/trillectric/gridpulse/internal/telemetry/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	telemetry.Module,
	alert.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug: obsCfg.Debug(),
	}))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	telemetrysvc telemetrydomain.Service
	alertsvc     alertdomain.Service
	limiter      *ratelimit.IngestLimiter
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Telemetrysvc telemetrydomain.Service
	Alertsvc     alertdomain.Service
	Limiter      *ratelimit.IngestLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		log:          p.Log.Named("server"),
		genID:        p.GenID,
		clock:        p.Clock,
		telemetrysvc: p.Telemetrysvc,
		alertsvc:     p.Alertsvc,
		limiter:      p.Limiter,
	}

	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.POST("/ingest", s.IngestTelemetry)
	s.engine.GET("/telemetry/:device_id", s.ListTelemetry)
	s.engine.GET("/alerts/:device_id", s.ListAlerts)
	s.engine.GET("/stats/:device_id", s.DeviceStats)
	s.engine.GET("/ping", s.Ping)
	s.engine.POST("/insert", s.InsertSampleData)
	s.engine.Static("/static", s.cfg.StaticDir)
}
