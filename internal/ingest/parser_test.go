package ingest

import (
	"testing"
	"time"
)

func TestParseWifiOutput(t *testing.T) {
	output := []byte("Scanning on wlan0...\n" +
		"{'mac': 'aa:bb:cc:dd:ee:ff', 'signal': -70, 'time': 1700000000, 'ssid': 'HomeNet'}\n" +
		"{'mac': '11:22:33:44:55:66', 'signal': '-55', 'time': '1700000010'}\n" +
		"interface went down\n")

	events := Parse("wifi", output)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	ev := events[0]
	if ev.MAC != "aa:bb:cc:dd:ee:ff" {
		t.Fatalf("mac: %q", ev.MAC)
	}
	if ev.Signal == nil || *ev.Signal != -70 {
		t.Fatalf("signal: %v", ev.Signal)
	}
	if !ev.Timestamp.Equal(time.Unix(1700000000, 0).UTC()) {
		t.Fatalf("time: %v", ev.Timestamp)
	}
	if ev.SSID != "HomeNet" {
		t.Fatalf("ssid: %q", ev.SSID)
	}

	// Numeric strings decode the same as numbers.
	ev = events[1]
	if ev.Signal == nil || *ev.Signal != -55 {
		t.Fatalf("string signal: %v", ev.Signal)
	}
	if !ev.Timestamp.Equal(time.Unix(1700000010, 0).UTC()) {
		t.Fatalf("string time: %v", ev.Timestamp)
	}
}

func TestParseBluetoothOutput(t *testing.T) {
	output := []byte("{'mac': 'AA:BB:CC:DD:EE:FF', 'rssi': -60, 'name': 'My Phone', 'time': 1700000000}\r\n" +
		"{'name': 'no mac here'}\r\n")

	events := Parse("bluetooth", output)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Signal == nil || *events[0].Signal != -60 {
		t.Fatalf("rssi: %v", events[0].Signal)
	}
	if events[0].Name != "My Phone" {
		t.Fatalf("name: %q", events[0].Name)
	}
}

func TestParseMalformedLinesAreSkipped(t *testing.T) {
	output := []byte("{'mac': 'aa:bb:cc:dd:ee:ff', 'signal': 'strong'}\n" +
		"{broken json\n" +
		"\n" +
		"{'mac': 'aa:bb:cc:dd:ee:ff', 'signal': -40, 'time': 1700000000}\n")

	events := Parse("wifi", output)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if *events[0].Signal != -40 {
		t.Fatalf("signal: %v", events[0].Signal)
	}
}

func TestParseEmptyOutput(t *testing.T) {
	if events := Parse("wifi", nil); len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
	if events := Parse("wifi", []byte("\n\r\n  \n")); len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestDecodeEventDefaultsTime(t *testing.T) {
	before := time.Now().UTC().Add(-time.Second)
	ev, err := DecodeEvent([]byte(`{"mac":"aa:bb:cc:dd:ee:ff"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Timestamp.Before(before) {
		t.Fatalf("expected current time default, got %v", ev.Timestamp)
	}
	if ev.Signal != nil {
		t.Fatalf("expected nil signal when absent")
	}
}

func TestParseKeepsLiteralDoubleQuotedJSON(t *testing.T) {
	// A line that already uses double quotes must not have its apostrophes
	// rewritten.
	output := []byte(`{"mac": "aa:bb:cc:dd:ee:ff", "name": "Bob's Phone", "time": 1700000000}`)
	events := Parse("bluetooth", output)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Name != "Bob's Phone" {
		t.Fatalf("name: %q", events[0].Name)
	}
}
