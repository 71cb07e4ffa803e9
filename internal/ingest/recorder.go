package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/arall/sigint/internal/metrics"
	"github.com/arall/sigint/internal/model"
	"github.com/arall/sigint/internal/mqtt"
	"github.com/arall/sigint/internal/store"

	"github.com/google/uuid"
)

// Recorder persists scan events. Device resolution and the log write are the
// hard core of an ingestion; enrichment steps (name, probes, sessions,
// presence, event publishing) log their failures and move on so one flaky
// side channel never loses an observation.
type Recorder struct {
	Repo     *store.Repo
	Events   mqtt.Publisher
	Presence *store.PresenceCache
	Topic    string
}

const defaultEventTopic = "sigint/observations"

// observation is the shape published to the broker and the presence cache.
type observation struct {
	DeviceID   uuid.UUID `json:"device_id"`
	Identifier string    `json:"identifier"`
	TypeID     uint      `json:"type_id"`
	Signal     *int      `json:"signal,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Ingest records one event under a device type. StationID is nil for local
// scanner batches. Returns the log row the event landed on.
func (rec *Recorder) Ingest(ctx context.Context, typeID uint, ev ScanEvent, stationID *uuid.UUID) (*model.Log, error) {
	device, created, err := rec.Repo.ResolveDevice(ctx, ev.MAC, typeID)
	if err != nil {
		return nil, err
	}
	if created {
		metrics.DevicesCreated.Inc()
		slog.Info("new device", "identifier", device.Identifier, "type_id", typeID)
	}

	if ev.Name != "" && ev.Name != device.Name {
		if err := rec.Repo.SetDeviceName(ctx, device.ID, ev.Name); err != nil {
			slog.Warn("device name update failed", "device_id", device.ID, "error", err)
		}
	}

	entry, err := rec.Repo.UpsertLog(ctx, device.ID, ev.Timestamp, ev.Signal, stationID, ev.Raw)
	if err != nil {
		return nil, err
	}
	metrics.LogsRecorded.Inc()

	if ev.SSID != "" {
		if ssid, err := rec.Repo.EnsureSsid(ctx, ev.SSID); err != nil {
			slog.Warn("ssid upsert failed", "ssid", ev.SSID, "error", err)
		} else if err := rec.Repo.RecordProbe(ctx, device.ID, ssid.ID); err != nil {
			slog.Warn("probe upsert failed", "device_id", device.ID, "error", err)
		}
	}

	if session, err := rec.Repo.AttachSession(ctx, device.ID, ev.Timestamp); err != nil {
		slog.Warn("session attach failed", "device_id", device.ID, "error", err)
	} else if entry.SessionID == nil || *entry.SessionID != session.ID {
		if err := rec.Repo.SetLogSession(ctx, entry.ID, session.ID); err != nil {
			slog.Warn("log session update failed", "log_id", entry.ID, "error", err)
		} else {
			entry.SessionID = &session.ID
		}
	}

	if err := rec.Repo.TouchDevice(ctx, device.ID, ev.Timestamp); err != nil {
		slog.Warn("last seen update failed", "device_id", device.ID, "error", err)
	}

	rec.announce(ctx, device, ev)
	return entry, nil
}

// IngestBatch runs a parsed scanner batch and returns how many events landed.
func (rec *Recorder) IngestBatch(ctx context.Context, typeID uint, events []ScanEvent) (int, error) {
	recorded := 0
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return recorded, err
		}
		if _, err := rec.Ingest(ctx, typeID, ev, nil); err != nil {
			slog.Error("event ingest failed", "mac", ev.MAC, "error", err)
			continue
		}
		recorded++
	}
	return recorded, nil
}

func (rec *Recorder) announce(ctx context.Context, device *model.Device, ev ScanEvent) {
	payload, err := json.Marshal(observation{
		DeviceID:   device.ID,
		Identifier: device.Identifier,
		TypeID:     device.TypeID,
		Signal:     ev.Signal,
		Timestamp:  ev.Timestamp.UTC().Truncate(time.Second),
	})
	if err != nil {
		return
	}
	if rec.Presence != nil {
		if err := rec.Presence.Set(ctx, device.ID.String(), payload); err != nil {
			slog.Warn("presence cache update failed", "device_id", device.ID, "error", err)
		}
	}
	if rec.Events != nil {
		topic := rec.Topic
		if topic == "" {
			topic = defaultEventTopic
		}
		if err := rec.Events.Publish(topic, payload); err != nil {
			slog.Warn("event publish failed", "topic", topic, "error", err)
		}
	}
}
