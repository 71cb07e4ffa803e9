package store

import (
	"context"
	"time"

	"github.com/arall/sigint/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

// UpsertLog records one observation. The (device_id, timestamp) pair is the
// identity of a log row: a replay of the same observation updates the signal
// on the existing row instead of inserting a duplicate.
func (r *Repo) UpsertLog(ctx context.Context, deviceID uuid.UUID, ts time.Time, signal *int, stationID *uuid.UUID, raw []byte) (*model.Log, error) {
	ts = ts.UTC().Truncate(time.Second)
	entry := model.Log{
		ID:        uuid.New(),
		DeviceID:  deviceID,
		StationID: stationID,
		Signal:    signal,
		Timestamp: ts,
	}
	if len(raw) > 0 {
		entry.Raw = datatypes.JSON(raw)
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "device_id"}, {Name: "timestamp"}},
			DoNothing: true,
		}).
		Create(&entry)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected > 0 {
		return &entry, nil
	}

	// Replay: fetch the canonical row and refresh its signal reading.
	if err := r.db.WithContext(ctx).
		Where("device_id = ? AND timestamp = ?", deviceID, ts).
		First(&entry).Error; err != nil {
		return nil, err
	}
	if signal != nil {
		if err := r.db.WithContext(ctx).
			Model(&model.Log{}).
			Where("id = ?", entry.ID).
			Update("signal", signal).Error; err != nil {
			return nil, err
		}
		entry.Signal = signal
	}
	return &entry, nil
}

// SetLogSession links a log row to the session it was folded into.
func (r *Repo) SetLogSession(ctx context.Context, logID, sessionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Log{}).
		Where("id = ?", logID).
		Update("session_id", sessionID).Error
}

// LogFilter narrows ListLogs. Zero values mean unbounded.
type LogFilter struct {
	From  time.Time
	To    time.Time
	Limit int
}

func (r *Repo) ListLogs(ctx context.Context, deviceID uuid.UUID, f LogFilter) ([]model.Log, error) {
	q := r.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("timestamp DESC")
	if !f.From.IsZero() {
		q = q.Where("timestamp >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		q = q.Where("timestamp <= ?", f.To.UTC())
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var logs []model.Log
	err := q.Find(&logs).Error
	return logs, err
}
