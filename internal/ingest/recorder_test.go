package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/arall/sigint/internal/model"
	"github.com/arall/sigint/internal/store"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestRepo(t *testing.T) *store.Repo {
	t.Helper()
	dsn := "file:ingest_" + strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	repo, err := store.New(db)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo
}

type fakePublisher struct {
	topics   []string
	payloads [][]byte
}

func (f *fakePublisher) Publish(topic string, payload []byte) error {
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload)
	return nil
}

func TestIngestWifiObservation(t *testing.T) {
	repo := openTestRepo(t)
	pub := &fakePublisher{}
	rec := &Recorder{Repo: repo, Events: pub}
	ctx := context.Background()

	events := Parse("wifi", []byte("{'mac': 'aa:bb:cc:dd:ee:ff', 'signal': -70, 'time': 1700000000, 'ssid': 'HomeNet'}\n"))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	entry, err := rec.Ingest(ctx, model.TypeWiFi, events[0], nil)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if entry.Signal == nil || *entry.Signal != -70 {
		t.Fatalf("signal: %v", entry.Signal)
	}
	if entry.SessionID == nil {
		t.Fatalf("expected log attached to a session")
	}

	device, err := repo.DeviceByID(ctx, entry.DeviceID)
	if err != nil {
		t.Fatalf("device: %v", err)
	}
	if device.Identifier != "AA:BB:CC:DD:EE:FF" {
		t.Fatalf("identifier: %q", device.Identifier)
	}
	if !device.Online {
		t.Fatalf("expected device online")
	}

	probes, err := repo.ListProbes(ctx, device.ID)
	if err != nil {
		t.Fatalf("probes: %v", err)
	}
	if len(probes) != 1 || probes[0].Ssid.Name != "HomeNet" {
		t.Fatalf("expected HomeNet probe, got %+v", probes)
	}

	if len(pub.topics) != 1 || pub.topics[0] != "sigint/observations" {
		t.Fatalf("expected one published observation, got %v", pub.topics)
	}
}

func TestIngestReplayUpdatesInPlace(t *testing.T) {
	repo := openTestRepo(t)
	rec := &Recorder{Repo: repo}
	ctx := context.Background()

	first := Parse("wifi", []byte("{'mac': 'aa:bb:cc:dd:ee:ff', 'signal': -70, 'time': 1700000000, 'ssid': 'HomeNet'}"))
	replay := Parse("wifi", []byte("{'mac': 'aa:bb:cc:dd:ee:ff', 'signal': -65, 'time': 1700000000, 'ssid': 'HomeNet'}"))

	e1, err := rec.Ingest(ctx, model.TypeWiFi, first[0], nil)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	e2, err := rec.Ingest(ctx, model.TypeWiFi, replay[0], nil)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if e2.ID != e1.ID {
		t.Fatalf("replay created a new log row")
	}
	if e2.Signal == nil || *e2.Signal != -65 {
		t.Fatalf("expected refreshed signal, got %v", e2.Signal)
	}

	logs, err := repo.ListLogs(ctx, e1.DeviceID, store.LogFilter{})
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 log after replay, got %d", len(logs))
	}

	probes, err := repo.ListProbes(ctx, e1.DeviceID)
	if err != nil {
		t.Fatalf("probes: %v", err)
	}
	if len(probes) != 1 {
		t.Fatalf("expected 1 probe after replay, got %d", len(probes))
	}
}

func TestIngestBluetoothNameOverwrite(t *testing.T) {
	repo := openTestRepo(t)
	rec := &Recorder{Repo: repo}
	ctx := context.Background()

	ev1 := Parse("bluetooth", []byte("{'mac': '11:22:33:44:55:66', 'rssi': -50, 'name': 'Old Name', 'time': 1700000000}"))
	ev2 := Parse("bluetooth", []byte("{'mac': '11:22:33:44:55:66', 'rssi': -48, 'name': 'New Name', 'time': 1700000100}"))

	e1, err := rec.Ingest(ctx, model.TypeBluetooth, ev1[0], nil)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if _, err := rec.Ingest(ctx, model.TypeBluetooth, ev2[0], nil); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	device, err := repo.DeviceByID(ctx, e1.DeviceID)
	if err != nil {
		t.Fatalf("device: %v", err)
	}
	if device.Name != "New Name" {
		t.Fatalf("expected name overwritten, got %q", device.Name)
	}
}

func TestIngestSessionContinuity(t *testing.T) {
	repo := openTestRepo(t)
	repo.SessionGap = 10 * time.Minute
	rec := &Recorder{Repo: repo}
	ctx := context.Background()

	mk := func(unix int64) ScanEvent {
		return ScanEvent{MAC: "aa:bb:cc:dd:ee:ff", Timestamp: time.Unix(unix, 0).UTC()}
	}

	e1, err := rec.Ingest(ctx, model.TypeWiFi, mk(1700000000), nil)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	e2, err := rec.Ingest(ctx, model.TypeWiFi, mk(1700000300), nil)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	e3, err := rec.Ingest(ctx, model.TypeWiFi, mk(1700003600), nil)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if e1.SessionID == nil || e2.SessionID == nil || e3.SessionID == nil {
		t.Fatalf("expected all logs attached to sessions")
	}
	if *e1.SessionID != *e2.SessionID {
		t.Fatalf("expected close observations in the same session")
	}
	if *e3.SessionID == *e1.SessionID {
		t.Fatalf("expected a new session after long silence")
	}
}

func TestIngestBatchContinuesPastFailures(t *testing.T) {
	repo := openTestRepo(t)
	rec := &Recorder{Repo: repo}
	ctx := context.Background()

	events := []ScanEvent{
		{MAC: "aa:bb:cc:dd:ee:ff", Timestamp: time.Unix(1700000000, 0).UTC()},
		{MAC: "", Timestamp: time.Unix(1700000001, 0).UTC()},
		{MAC: "11:22:33:44:55:66", Timestamp: time.Unix(1700000002, 0).UTC()},
	}

	recorded, err := rec.IngestBatch(ctx, model.TypeWiFi, events)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if recorded != 2 {
		t.Fatalf("expected 2 recorded, got %d", recorded)
	}

	devices, err := repo.ListDevices(ctx)
	if err != nil {
		t.Fatalf("devices: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(devices))
	}
}
