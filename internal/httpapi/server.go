// Package httpapi exposes the station submission endpoint and the read
// surface over the collected observations.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/arall/sigint/internal/ingest"
	"github.com/arall/sigint/internal/model"
	"github.com/arall/sigint/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Server struct {
	repo *store.Repo
	rec  *ingest.Recorder
}

func NewServer(repo *store.Repo, rec *ingest.Recorder) *Server {
	return &Server{repo: repo, rec: rec}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(s.StationAuth)
		r.Post("/logs", s.handleCreateLog)
	})
	r.Get("/devices", s.handleListDevices)
	r.Get("/devices/{id}", s.handleGetDevice)
	r.Get("/devices/{id}/logs", s.handleDeviceLogs)
	r.Get("/devices/{id}/probes", s.handleDeviceProbes)
	r.Get("/devices/{id}/sessions", s.handleDeviceSessions)
	r.Get("/stations", s.handleListStations)
}

type ctxKey int

const stationKey ctxKey = 0

// StationAuth resolves the bearer token to a station and rejects everything
// else. The 401 body is a bare JSON string for compatibility with existing
// station agents.
func (s *Server) StationAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		station, err := s.repo.StationByToken(r.Context(), token)
		if err != nil {
			slog.Error("station lookup failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
			return
		}
		if station == nil {
			writeJSON(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		ctx := withStation(r.Context(), station)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// createLogRequest is a station submission. Signal and time arrive as
// strings from form-posting agents and as numbers from JSON ones.
type createLogRequest struct {
	TypeID     string
	Identifier string
	Time       string
	Signal     string
	Ssid       string
	Name       string
}

func (s *Server) handleCreateLog(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCreateLog(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "malformed request body"})
		return
	}

	// All validation happens before any write so a rejected submission
	// leaves no partial rows behind.
	errs := map[string]string{}
	if req.Identifier == "" {
		errs["identifier"] = "required"
	}
	if req.Time == "" {
		errs["time"] = "required"
	}
	if req.Signal == "" {
		errs["signal"] = "required"
	}
	var typeID uint
	if req.TypeID == "" {
		errs["type_id"] = "required"
	} else if n, err := strconv.ParseUint(req.TypeID, 10, 32); err != nil || n == 0 {
		errs["type_id"] = "must be a positive integer"
	} else {
		typeID = uint(n)
	}
	var ts time.Time
	if req.Time != "" {
		unix, err := strconv.ParseInt(req.Time, 10, 64)
		if err != nil {
			errs["time"] = "must be a unix timestamp"
		} else {
			ts = time.Unix(unix, 0).UTC()
		}
	}
	var signal *int
	if req.Signal != "" {
		n, err := strconv.Atoi(req.Signal)
		if err != nil {
			errs["signal"] = "must be an integer"
		} else {
			signal = &n
		}
	}
	if typeID != 0 {
		dt, err := s.repo.DeviceTypeByID(r.Context(), typeID)
		if err != nil {
			slog.Error("device type lookup failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
			return
		}
		if dt == nil {
			errs["type_id"] = "unknown device type"
		}
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": errs})
		return
	}

	station := stationFrom(r.Context())
	raw, _ := json.Marshal(map[string]any{
		"type_id":    typeID,
		"identifier": req.Identifier,
		"time":       ts.Unix(),
		"signal":     signal,
		"ssid":       req.Ssid,
		"name":       req.Name,
	})
	ev := ingest.ScanEvent{
		MAC:       req.Identifier,
		Timestamp: ts,
		Signal:    signal,
		SSID:      req.Ssid,
		Name:      req.Name,
		Raw:       raw,
	}
	entry, err := s.rec.Ingest(r.Context(), typeID, ev, &station.ID)
	if err != nil {
		slog.Error("log submission failed", "station", station.Name, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "could not record log"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": entry.ID})
}

// decodeCreateLog accepts either a JSON body or a classic form post.
func decodeCreateLog(r *http.Request) (createLogRequest, error) {
	var req createLogRequest
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		var body struct {
			TypeID     json.RawMessage `json:"type_id"`
			Identifier string          `json:"identifier"`
			Time       json.RawMessage `json:"time"`
			Signal     json.RawMessage `json:"signal"`
			Ssid       string          `json:"ssid"`
			Name       string          `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return req, err
		}
		req = createLogRequest{
			TypeID:     rawString(body.TypeID),
			Identifier: strings.TrimSpace(body.Identifier),
			Time:       rawString(body.Time),
			Signal:     rawString(body.Signal),
			Ssid:       body.Ssid,
			Name:       body.Name,
		}
		return req, nil
	}
	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req = createLogRequest{
		TypeID:     strings.TrimSpace(r.PostFormValue("type_id")),
		Identifier: strings.TrimSpace(r.PostFormValue("identifier")),
		Time:       strings.TrimSpace(r.PostFormValue("time")),
		Signal:     strings.TrimSpace(r.PostFormValue("signal")),
		Ssid:       r.PostFormValue("ssid"),
		Name:       r.PostFormValue("name"),
	}
	return req, nil
}

// rawString flattens a JSON number or string field to its string form.
func rawString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	s = strings.Trim(s, `"`)
	if s == "null" {
		return ""
	}
	return s
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.repo.ListDevices(r.Context())
	if err != nil {
		slog.Error("device list failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "could not list devices"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices})
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	device, ok := s.deviceFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, device)
}

func (s *Server) handleDeviceLogs(w http.ResponseWriter, r *http.Request) {
	device, ok := s.deviceFromPath(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	var filter store.LogFilter
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid from"})
			return
		}
		filter.From = t
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid to"})
			return
		}
		filter.To = t
	}
	filter.Limit = 1000
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	logs, err := s.repo.ListLogs(r.Context(), device.ID, filter)
	if err != nil {
		slog.Error("log list failed", "device_id", device.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "could not list logs"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"device_id": device.ID, "logs": logs})
}

func (s *Server) handleDeviceProbes(w http.ResponseWriter, r *http.Request) {
	device, ok := s.deviceFromPath(w, r)
	if !ok {
		return
	}
	probes, err := s.repo.ListProbes(r.Context(), device.ID)
	if err != nil {
		slog.Error("probe list failed", "device_id", device.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "could not list probes"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"device_id": device.ID, "probes": probes})
}

func (s *Server) handleDeviceSessions(w http.ResponseWriter, r *http.Request) {
	device, ok := s.deviceFromPath(w, r)
	if !ok {
		return
	}
	sessions, err := s.repo.ListSessions(r.Context(), device.ID)
	if err != nil {
		slog.Error("session list failed", "device_id", device.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "could not list sessions"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"device_id": device.ID, "sessions": sessions})
}

func (s *Server) handleListStations(w http.ResponseWriter, r *http.Request) {
	stations, err := s.repo.ListStations(r.Context())
	if err != nil {
		slog.Error("station list failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "could not list stations"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stations": stations})
}

func (s *Server) deviceFromPath(w http.ResponseWriter, r *http.Request) (*model.Device, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid device id"})
		return nil, false
	}
	device, err := s.repo.DeviceByID(r.Context(), id)
	if err != nil {
		slog.Error("device lookup failed", "device_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		return nil, false
	}
	if device == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "device not found"})
		return nil, false
	}
	return device, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
