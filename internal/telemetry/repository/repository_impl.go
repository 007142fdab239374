package repository

import (
	"context"
	"errors"
	"time"

	telemetrydomain "github.com/trillectric/gridpulse/internal/telemetry/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() telemetrydomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *telemetrydomain.Record) error {
	return db.WithContext(ctx).Create(record).Error
}

func (r *repo) FindWithin(ctx context.Context, db *gorm.DB, deviceID string, from, to time.Time) (*telemetrydomain.Record, error) {
	var record telemetrydomain.Record
	err := db.WithContext(ctx).
		Where("device_id = ? AND timestamp BETWEEN ? AND ?", deviceID, from, to).
		Order("timestamp ASC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repo) ListByDevice(ctx context.Context, db *gorm.DB, deviceID string) ([]telemetrydomain.Record, error) {
	var records []telemetrydomain.Record
	err := db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("timestamp ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) RecentByDevice(ctx context.Context, db *gorm.DB, deviceID string, limit int) ([]telemetrydomain.Record, error) {
	var records []telemetrydomain.Record
	err := db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) CountByDevice(ctx context.Context, db *gorm.DB, deviceID string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&telemetrydomain.Record{}).
		Where("device_id = ?", deviceID).
		Count(&count).Error
	return count, err
}

func (r *repo) InsertDiscarded(ctx context.Context, db *gorm.DB, discarded *telemetrydomain.Discarded) error {
	return db.WithContext(ctx).Create(discarded).Error
}

func (r *repo) CountDiscarded(ctx context.Context, db *gorm.DB, deviceID string, reason telemetrydomain.DiscardReason) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&telemetrydomain.Discarded{}).
		Where("device_id = ? AND reason = ?", deviceID, reason).
		Count(&count).Error
	return count, err
}

func (r *repo) CountDiscardedOther(ctx context.Context, db *gorm.DB, deviceID string, excludeReason telemetrydomain.DiscardReason) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&telemetrydomain.Discarded{}).
		Where("device_id = ? AND reason <> ?", deviceID, excludeReason).
		Count(&count).Error
	return count, err
}
