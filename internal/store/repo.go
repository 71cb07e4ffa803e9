package store

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/arall/sigint/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type Repo struct {
	db *gorm.DB

	// SessionGap is the maximum silence between two observations of a device
	// that still belongs to the same session.
	SessionGap time.Duration
}

const defaultSessionGap = 30 * time.Minute

func OpenPostgres(user, password, dbName, host, port, sslMode string) (*gorm.DB, error) {
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC", host, user, password, dbName, port, sslMode)
	// Record-not-found is an expected outcome in every find-or-create path,
	// so keep it out of the GORM log output.
	gormLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	return gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
}

func New(db *gorm.DB) (*Repo, error) {
	if err := db.AutoMigrate(
		&model.DeviceType{},
		&model.Vendor{},
		&model.VendorMac{},
		&model.Identity{},
		&model.Device{},
		&model.Ssid{},
		&model.Probe{},
		&model.Station{},
		&model.Session{},
		&model.Log{},
	); err != nil {
		return nil, err
	}
	if err := seedDeviceTypes(db); err != nil {
		return nil, err
	}
	return &Repo{db: db, SessionGap: defaultSessionGap}, nil
}

func seedDeviceTypes(db *gorm.DB) error {
	types := []model.DeviceType{
		{ID: model.TypeBluetooth, Name: "Bluetooth"},
		{ID: model.TypeWiFi, Name: "WiFi"},
		{ID: model.TypeGSM, Name: "GSM"},
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&types).Error
}
