package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Device type IDs are stable: remote stations reference them by integer
// in POST /api/logs payloads, so the seed order must never change.
const (
	TypeBluetooth uint = 1
	TypeWiFi      uint = 2
	TypeGSM       uint = 3
)

type DeviceType struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

// Device is one observed radio endpoint, keyed by its MAC identifier within
// a device type. The identifier is stored uppercase; a WiFi and a Bluetooth
// device may legitimately share an identifier.
type Device struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TypeID     uint       `gorm:"uniqueIndex:idx_devices_type_identifier;not null" json:"type_id"`
	Type       DeviceType `gorm:"foreignKey:TypeID" json:"type,omitempty"`
	Identifier string     `gorm:"uniqueIndex:idx_devices_type_identifier;not null" json:"identifier"`
	Name       string     `json:"name,omitempty"`
	VendorID   *uuid.UUID `gorm:"type:uuid;index" json:"vendor_id,omitempty"`
	Vendor     *Vendor    `json:"vendor,omitempty"`
	IdentityID *uuid.UUID `gorm:"type:uuid;index" json:"identity_id,omitempty"`
	Online     bool       `json:"online"`
	LastSeen   time.Time  `json:"last_seen"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (d *Device) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

type Vendor struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"uniqueIndex;not null" json:"name"`
}

func (v *Vendor) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// VendorMac is one OUI registration from the vendor reference import.
// Prefixes come in mixed granularities (8 to 13 characters in colon form),
// which is why device resolution does a shortening prefix search.
type VendorMac struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	VendorID uuid.UUID `gorm:"type:uuid;not null" json:"vendor_id"`
	Mac      string    `gorm:"uniqueIndex;not null" json:"mac"`
}

func (m *VendorMac) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type Ssid struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"uniqueIndex;not null" json:"name"`
}

func (s *Ssid) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Probe links a device to an SSID it has probed for. CreatedAt is the first
// observation of the pair, UpdatedAt the most recent one.
type Probe struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DeviceID  uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_probes_device_ssid;not null" json:"device_id"`
	SsidID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_probes_device_ssid;not null" json:"ssid_id"`
	Ssid      Ssid      `json:"ssid,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Probe) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Log is one signal observation. The (device_id, timestamp) pair is the
// de-duplication key for the whole pipeline: replays overwrite Signal instead
// of inserting a second row. StationID is set only for remote submissions.
type Log struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DeviceID  uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_logs_device_ts;not null" json:"device_id"`
	StationID *uuid.UUID     `gorm:"type:uuid;index" json:"station_id,omitempty"`
	SessionID *uuid.UUID     `gorm:"type:uuid;index" json:"session_id,omitempty"`
	Signal    *int           `json:"signal,omitempty"`
	Timestamp time.Time      `gorm:"uniqueIndex:idx_logs_device_ts;not null" json:"timestamp"`
	Raw       datatypes.JSON `json:"raw,omitempty"`
}

func (l *Log) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Station is a registered remote scanning agent. The token is generated once
// at creation and acts as the bearer credential for POST /api/logs.
type Station struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Station) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Session groups consecutive observations of a device: logs within the
// session gap of the previous one extend the session, a longer silence
// starts a new one.
type Session struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DeviceID   uuid.UUID `gorm:"type:uuid;index;not null" json:"device_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `gorm:"index" json:"finished_at"`
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Identity is an optional human owner a device can be attributed to.
// Assignment happens through the admin surface, never by ingestion.
type Identity struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"not null" json:"name"`
}

func (i *Identity) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
