package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/trillectric/gridpulse/internal/alert/domain"
	"github.com/trillectric/gridpulse/internal/clock"
	obsmetrics "github.com/trillectric/gridpulse/internal/observability/metrics"
	telemetrydomain "github.com/trillectric/gridpulse/internal/telemetry/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Repo          alertdomain.Repository
	TelemetryRepo telemetrydomain.Repository
	Metrics       *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	repo          alertdomain.Repository
	telemetryRepo telemetrydomain.Repository
	metrics       *obsmetrics.Metrics
}

func NewService(p ServiceParam) alertdomain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("alert.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		telemetryRepo: p.TelemetryRepo,
		metrics:       p.Metrics,
	}
}

func (s *Service) Evaluate(ctx context.Context, req alertdomain.EvaluateRequest) error {
	if err := s.evaluateLowPower(ctx, req); err != nil {
		return err
	}
	return s.evaluateHighVoltage(ctx, req)
}

// evaluateLowPower raises when the device's six most-recent readings are
// all below the power threshold. With fewer than six readings the rule does
// not evaluate; there is no partial-window triggering.
func (s *Service) evaluateLowPower(ctx context.Context, req alertdomain.EvaluateRequest) error {
	recent, err := s.telemetryRepo.RecentByDevice(ctx, s.db, req.DeviceID, alertdomain.LowPowerWindow)
	if err != nil {
		return err
	}
	if len(recent) < alertdomain.LowPowerWindow {
		return nil
	}
	for _, record := range recent {
		if record.Power >= alertdomain.LowPowerThreshold {
			return nil
		}
	}

	details := fmt.Sprintf("Power below 10W for 6 consecutive readings (last reading: %vW)", req.Power)
	return s.raise(ctx, req, alertdomain.TypeLowPower, details)
}

func (s *Service) evaluateHighVoltage(ctx context.Context, req alertdomain.EvaluateRequest) error {
	if req.Voltage <= alertdomain.HighVoltageThreshold {
		return nil
	}

	details := fmt.Sprintf("Voltage exceeded 270V (current: %vV)", req.Voltage)
	return s.raise(ctx, req, alertdomain.TypeHighVoltage, details)
}

// raise creates an active alert unless one of the same type is already
// active for the device. The pre-check keeps the common path cheap; the
// conditional insert closes the race between concurrent evaluators.
func (s *Service) raise(ctx context.Context, req alertdomain.EvaluateRequest, alertType alertdomain.Type, details string) error {
	existing, err := s.repo.FindActive(ctx, s.db, req.DeviceID, alertType)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	telemetryID := req.TelemetryID
	alert := &alertdomain.Alert{
		ID:          s.genID.Generate(),
		TelemetryID: &telemetryID,
		DeviceID:    req.DeviceID,
		Type:        alertType,
		TriggeredAt: s.clock.Now().UTC(),
		IsActive:    true,
		Details:     details,
	}

	inserted, err := s.repo.InsertIfNoActive(ctx, s.db, alert)
	if err != nil {
		return err
	}
	if !inserted {
		return nil
	}

	if s.metrics != nil {
		s.metrics.RecordAlertRaised(string(alertType))
	}
	s.log.Info("alert raised",
		zap.String("device_id", req.DeviceID),
		zap.String("alert_type", string(alertType)),
		zap.String("details", details),
	)
	return nil
}

func (s *Service) List(ctx context.Context, req alertdomain.ListRequest) ([]alertdomain.Alert, error) {
	return s.repo.ListByDevice(ctx, s.db, req.DeviceID, req.ActiveOnly)
}

func (s *Service) Resolve(ctx context.Context, id snowflake.ID) error {
	resolved, err := s.repo.Resolve(ctx, s.db, id, s.clock.Now().UTC())
	if err != nil {
		return err
	}
	if !resolved {
		return alertdomain.ErrAlertNotFound
	}
	return nil
}
