package store

import (
	"context"
	"errors"
	"time"

	"github.com/arall/sigint/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

// EnsureSsid returns the SSID row for a network name, creating it on first
// sight. SSID names are compared exactly, case included.
func (r *Repo) EnsureSsid(ctx context.Context, name string) (*model.Ssid, error) {
	if name == "" {
		return nil, errors.New("empty ssid name")
	}
	ssid := model.Ssid{ID: uuid.New(), Name: name}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).
		Create(&ssid)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if err := r.db.WithContext(ctx).Where("name = ?", name).First(&ssid).Error; err != nil {
			return nil, err
		}
	}
	return &ssid, nil
}

// RecordProbe links a device to an SSID it probed for. The first observation
// creates the pair, repeats only advance UpdatedAt.
func (r *Repo) RecordProbe(ctx context.Context, deviceID, ssidID uuid.UUID) error {
	now := time.Now().UTC()
	probe := model.Probe{
		ID:        uuid.New(),
		DeviceID:  deviceID,
		SsidID:    ssidID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return r.db.WithContext(ctx).
		Omit("Ssid").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "device_id"}, {Name: "ssid_id"}},
			DoUpdates: clause.Assignments(map[string]any{"updated_at": now}),
		}).
		Create(&probe).Error
}

func (r *Repo) ListProbes(ctx context.Context, deviceID uuid.UUID) ([]model.Probe, error) {
	var probes []model.Probe
	err := r.db.WithContext(ctx).
		Preload("Ssid").
		Where("device_id = ?", deviceID).
		Order("updated_at DESC").
		Find(&probes).Error
	return probes, err
}
