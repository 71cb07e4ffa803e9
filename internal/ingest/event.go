// Package ingest turns raw scanner output and station submissions into
// device, log, probe and session rows.
package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ScanEvent is one observation of a device, normalized from whichever shape
// the producer emitted. Raw keeps the original line for auditing.
type ScanEvent struct {
	MAC       string
	Timestamp time.Time
	Signal    *int
	SSID      string
	Name      string
	Raw       []byte
}

// wireEvent tolerates the loose field types scanners produce: signal as an
// integer or a numeric string, time as unix seconds in either form, and the
// bluetooth scanner calling its signal "rssi".
type wireEvent struct {
	Mac    string          `json:"mac"`
	Signal json.RawMessage `json:"signal"`
	Rssi   json.RawMessage `json:"rssi"`
	Time   json.RawMessage `json:"time"`
	Ssid   string          `json:"ssid"`
	Name   string          `json:"name"`
}

// DecodeEvent parses one JSON observation. Events without a mac are rejected.
// A missing time field defaults to the current time.
func DecodeEvent(line []byte) (ScanEvent, error) {
	var w wireEvent
	if err := json.Unmarshal(line, &w); err != nil {
		return ScanEvent{}, err
	}
	if strings.TrimSpace(w.Mac) == "" {
		return ScanEvent{}, fmt.Errorf("missing mac")
	}

	ev := ScanEvent{
		MAC:  w.Mac,
		SSID: w.Ssid,
		Name: w.Name,
		Raw:  append([]byte(nil), line...),
	}

	sig := nonNull(w.Signal)
	if sig == nil {
		sig = nonNull(w.Rssi)
	}
	if sig != nil {
		n, err := decodeInt(sig)
		if err != nil {
			return ScanEvent{}, fmt.Errorf("bad signal: %w", err)
		}
		ev.Signal = &n
	}

	if t := nonNull(w.Time); t != nil {
		unix, err := decodeInt64(t)
		if err != nil {
			return ScanEvent{}, fmt.Errorf("bad time: %w", err)
		}
		ev.Timestamp = time.Unix(unix, 0).UTC()
	} else {
		ev.Timestamp = time.Now().UTC().Truncate(time.Second)
	}
	return ev, nil
}

// nonNull collapses absent and explicit null fields to nil.
func nonNull(raw json.RawMessage) json.RawMessage {
	if raw == nil || strings.TrimSpace(string(raw)) == "null" {
		return nil
	}
	return raw
}

func decodeInt(raw json.RawMessage) (int, error) {
	n, err := decodeInt64(raw)
	return int(n), err
}

func decodeInt64(raw json.RawMessage) (int64, error) {
	s := strings.TrimSpace(string(raw))
	s = strings.Trim(s, `"`)
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	// Some producers emit floats for unix time.
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f), nil
	}
	return strconv.ParseInt(s, 10, 64)
}
