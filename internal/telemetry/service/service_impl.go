package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/trillectric/gridpulse/internal/alert/domain"
	"github.com/trillectric/gridpulse/internal/clock"
	obsmetrics "github.com/trillectric/gridpulse/internal/observability/metrics"
	"github.com/trillectric/gridpulse/internal/ratelimit"
	telemetrydomain "github.com/trillectric/gridpulse/internal/telemetry/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     telemetrydomain.Repository
	AlertSvc alertdomain.Service
	Metrics  *obsmetrics.Metrics      `optional:"true"`
	Limiter  *ratelimit.IngestLimiter `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     telemetrydomain.Repository
	alertSvc alertdomain.Service
	metrics  *obsmetrics.Metrics
	limiter  *ratelimit.IngestLimiter

	locks keyedMutex
}

func NewService(p ServiceParam) telemetrydomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("telemetry.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		alertSvc: p.AlertSvc,
		metrics:  p.Metrics,
		limiter:  p.Limiter,
	}
}

// Ingest runs the pipeline for one reading: validate, detect duplicates,
// persist, evaluate alerts. Validation and duplicate outcomes come back as
// results; only storage failures return an error. Every rejection writes
// its discard record before the outcome is reported, so a failed discard
// write fails the whole request.
func (s *Service) Ingest(ctx context.Context, req telemetrydomain.IngestRequest) (telemetrydomain.IngestResult, error) {
	start := time.Now()
	payload, err := json.Marshal(req)
	if err != nil {
		return telemetrydomain.IngestResult{}, err
	}

	deviceID := ""
	if req.DeviceID != nil {
		deviceID = *req.DeviceID
	}

	ts, ok := parseTimestamp(req.Timestamp)
	if !ok {
		if err := s.discard(ctx, deviceID, nil, nil, payload, telemetrydomain.DiscardReasonInvalidTimestamp); err != nil {
			return telemetrydomain.IngestResult{}, err
		}
		s.recordOutcome(string(telemetrydomain.DiscardReasonInvalidTimestamp), start)
		return rejected(telemetrydomain.DiscardReasonInvalidTimestamp), nil
	}

	if req.DeviceID == nil || req.Voltage == nil || req.Current == nil || req.Power == nil {
		if err := s.discard(ctx, deviceID, &ts, nil, payload, telemetrydomain.DiscardReasonMalformed); err != nil {
			return telemetrydomain.IngestResult{}, err
		}
		s.recordOutcome(string(telemetrydomain.DiscardReasonMalformed), start)
		return rejected(telemetrydomain.DiscardReasonMalformed), nil
	}

	// Serialize duplicate-detection and insert per device so two readings
	// in the same window cannot both pass the check. Readings for
	// different devices proceed concurrently.
	unlock := s.locks.lock(deviceID)
	defer unlock()

	if locker := s.limiter.Locker(); locker != nil {
		key := ratelimit.DeviceLockKey(deviceID)
		token, err := locker.Acquire(ctx, key, s.limiter.LockTTL())
		if err != nil {
			return telemetrydomain.IngestResult{}, err
		}
		defer func() {
			_ = locker.Release(ctx, key, token)
		}()
	}

	window := telemetrydomain.DuplicateWindowSeconds * time.Second
	colliding, err := s.repo.FindWithin(ctx, s.db, deviceID, ts.Add(-window), ts.Add(window))
	if err != nil {
		return telemetrydomain.IngestResult{}, err
	}
	if colliding != nil {
		collidingID := colliding.ID
		if err := s.discard(ctx, deviceID, &ts, &collidingID, payload, telemetrydomain.DiscardReasonDuplicate); err != nil {
			return telemetrydomain.IngestResult{}, err
		}
		s.recordOutcome("duplicate", start)
		return telemetrydomain.IngestResult{Status: telemetrydomain.IngestStatusDuplicate}, nil
	}

	record := &telemetrydomain.Record{
		ID:          s.genID.Generate(),
		DeviceID:    deviceID,
		Timestamp:   ts,
		Voltage:     *req.Voltage,
		Current:     *req.Current,
		Power:       *req.Power,
		IsDuplicate: false,
		CreatedAt:   s.clock.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		return telemetrydomain.IngestResult{}, err
	}

	if err := s.alertSvc.Evaluate(ctx, alertdomain.EvaluateRequest{
		DeviceID:    deviceID,
		TelemetryID: record.ID,
		Power:       record.Power,
		Voltage:     record.Voltage,
	}); err != nil {
		return telemetrydomain.IngestResult{}, err
	}

	s.recordOutcome("accepted", start)
	return telemetrydomain.IngestResult{
		Status: telemetrydomain.IngestStatusAccepted,
		Record: record,
	}, nil
}

func (s *Service) List(ctx context.Context, deviceID string) ([]telemetrydomain.Record, error) {
	return s.repo.ListByDevice(ctx, s.db, deviceID)
}

func (s *Service) Stats(ctx context.Context, deviceID string) (telemetrydomain.DeviceStats, error) {
	total, err := s.repo.CountByDevice(ctx, s.db, deviceID)
	if err != nil {
		return telemetrydomain.DeviceStats{}, err
	}
	duplicates, err := s.repo.CountDiscarded(ctx, s.db, deviceID, telemetrydomain.DiscardReasonDuplicate)
	if err != nil {
		return telemetrydomain.DeviceStats{}, err
	}
	discarded, err := s.repo.CountDiscardedOther(ctx, s.db, deviceID, telemetrydomain.DiscardReasonDuplicate)
	if err != nil {
		return telemetrydomain.DeviceStats{}, err
	}
	activeAlerts, err := s.alertSvc.List(ctx, alertdomain.ListRequest{DeviceID: deviceID, ActiveOnly: true})
	if err != nil {
		return telemetrydomain.DeviceStats{}, err
	}

	return telemetrydomain.DeviceStats{
		DeviceID:        deviceID,
		TotalEntries:    total,
		DuplicatesCount: duplicates,
		DiscardedCount:  discarded,
		ActiveAlerts:    activeAlerts,
	}, nil
}

func (s *Service) discard(
	ctx context.Context,
	deviceID string,
	ts *time.Time,
	telemetryID *snowflake.ID,
	payload []byte,
	reason telemetrydomain.DiscardReason,
) error {
	discarded := &telemetrydomain.Discarded{
		ID:          s.genID.Generate(),
		TelemetryID: telemetryID,
		DeviceID:    deviceID,
		Timestamp:   ts,
		Data:        payload,
		Reason:      reason,
		CreatedAt:   s.clock.Now().UTC(),
	}
	if err := s.repo.InsertDiscarded(ctx, s.db, discarded); err != nil {
		return err
	}

	s.log.Info("reading discarded",
		zap.String("device_id", deviceID),
		zap.String("reason", string(reason)),
	)
	return nil
}

func (s *Service) recordOutcome(outcome string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordIngest(outcome)
	s.metrics.ObserveIngestDuration(time.Since(start).Seconds())
}

func rejected(reason telemetrydomain.DiscardReason) telemetrydomain.IngestResult {
	return telemetrydomain.IngestResult{
		Status: telemetrydomain.IngestStatusRejected,
		Reason: reason,
	}
}
