package store

import (
	"context"
	"errors"
	"time"

	"github.com/arall/sigint/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttachSession folds an observation into the device's current session, or
// opens a new one when the silence since the last observation exceeds the
// session gap. Returns the session the observation belongs to.
func (r *Repo) AttachSession(ctx context.Context, deviceID uuid.UUID, ts time.Time) (*model.Session, error) {
	ts = ts.UTC().Truncate(time.Second)
	gap := r.SessionGap
	if gap <= 0 {
		gap = defaultSessionGap
	}

	var session model.Session
	err := r.db.WithContext(ctx).
		Where("device_id = ? AND finished_at >= ?", deviceID, ts.Add(-gap)).
		Order("finished_at DESC").
		First(&session).Error
	switch {
	case err == nil:
		updates := map[string]any{}
		if ts.After(session.FinishedAt) {
			session.FinishedAt = ts
			updates["finished_at"] = ts
		}
		if ts.Before(session.StartedAt) {
			session.StartedAt = ts
			updates["started_at"] = ts
		}
		if len(updates) == 0 {
			return &session, nil
		}
		if err := r.db.WithContext(ctx).
			Model(&model.Session{}).
			Where("id = ?", session.ID).
			Updates(updates).Error; err != nil {
			return nil, err
		}
		return &session, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		session = model.Session{
			ID:         uuid.New(),
			DeviceID:   deviceID,
			StartedAt:  ts,
			FinishedAt: ts,
		}
		if err := r.db.WithContext(ctx).Create(&session).Error; err != nil {
			return nil, err
		}
		return &session, nil
	default:
		return nil, err
	}
}

func (r *Repo) ListSessions(ctx context.Context, deviceID uuid.UUID) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("started_at DESC").
		Find(&sessions).Error
	return sessions, err
}
