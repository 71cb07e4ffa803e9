package store

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/arall/sigint/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NormalizeIdentifier maps the many shapes scanners emit a MAC in
// (lowercase, mixed case) onto the canonical stored form.
func NormalizeIdentifier(identifier string) string {
	return strings.ToUpper(strings.TrimSpace(identifier))
}

// ResolveDevice returns the canonical device row for an identifier within a
// device type, creating it on first sight. The vendor is looked up once, at
// creation; existing devices are returned untouched. Concurrent creators are
// resolved through the unique index: the insert is ON CONFLICT DO NOTHING and
// a zero-row result falls back to re-selecting the winner.
func (r *Repo) ResolveDevice(ctx context.Context, identifier string, typeID uint) (*model.Device, bool, error) {
	identifier = NormalizeIdentifier(identifier)
	if identifier == "" {
		return nil, false, errors.New("empty device identifier")
	}

	var dev model.Device
	err := r.db.WithContext(ctx).
		Where(&model.Device{TypeID: typeID, Identifier: identifier}).
		First(&dev).Error
	if err == nil {
		return &dev, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	dev = model.Device{
		ID:         uuid.New(),
		TypeID:     typeID,
		Identifier: identifier,
	}
	vendor, err := r.LookupVendor(ctx, identifier)
	if err != nil {
		return nil, false, err
	}
	if vendor != nil {
		dev.VendorID = &vendor.ID
	}

	res := r.db.WithContext(ctx).
		Omit("Type", "Vendor").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "type_id"}, {Name: "identifier"}},
			DoNothing: true,
		}).
		Create(&dev)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		// Lost the race: another writer inserted the same identifier first.
		if err := r.db.WithContext(ctx).
			Where(&model.Device{TypeID: typeID, Identifier: identifier}).
			First(&dev).Error; err != nil {
			return nil, false, err
		}
		return &dev, false, nil
	}
	return &dev, true, nil
}

// SetDeviceName overwrites the display name, last write wins.
func (r *Repo) SetDeviceName(ctx context.Context, deviceID uuid.UUID, name string) error {
	return r.db.WithContext(ctx).
		Model(&model.Device{}).
		Where("id = ?", deviceID).
		Update("name", name).Error
}

// TouchDevice marks the device online and advances its last-seen time.
// Out-of-order observations never move last_seen backwards.
func (r *Repo) TouchDevice(ctx context.Context, deviceID uuid.UUID, seenAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Device{}).
		Where("id = ?", deviceID).
		Where("last_seen < ?", seenAt).
		Updates(map[string]any{"online": true, "last_seen": seenAt.UTC()}).Error
}

// SetOfflineOlderThan flips devices that have not been observed within the
// window back to offline. Runs from the periodic sweep in serve mode.
func (r *Repo) SetOfflineOlderThan(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().UTC().Add(-olderThan)
	res := r.db.WithContext(ctx).
		Model(&model.Device{}).
		Where(clause.Lt{Column: clause.Column{Name: "last_seen"}, Value: cutoff}).
		Where(map[string]any{"online": true}).
		Update("online", false)
	if res.Error != nil {
		slog.Error("offline sweep failed", "error", res.Error)
	}
	return res.Error
}

func (r *Repo) DeviceTypeByID(ctx context.Context, id uint) (*model.DeviceType, error) {
	var dt model.DeviceType
	if err := r.db.WithContext(ctx).First(&dt, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &dt, nil
}

func (r *Repo) ListDevices(ctx context.Context) ([]model.Device, error) {
	var devices []model.Device
	err := r.db.WithContext(ctx).
		Preload("Type").
		Preload("Vendor").
		Order("last_seen DESC").
		Find(&devices).Error
	return devices, err
}

func (r *Repo) DeviceByID(ctx context.Context, id uuid.UUID) (*model.Device, error) {
	var dev model.Device
	err := r.db.WithContext(ctx).
		Preload("Type").
		Preload("Vendor").
		First(&dev, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &dev, nil
}
