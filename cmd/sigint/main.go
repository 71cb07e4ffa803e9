package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/arall/sigint/internal/config"
	"github.com/arall/sigint/internal/httpapi"
	"github.com/arall/sigint/internal/ingest"
	"github.com/arall/sigint/internal/metrics"
	"github.com/arall/sigint/internal/model"
	"github.com/arall/sigint/internal/mqtt"
	"github.com/arall/sigint/internal/oui"
	"github.com/arall/sigint/internal/scanner"
	"github.com/arall/sigint/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

const usage = `usage: sigint <command> [args]

commands:
  serve                     run the HTTP API
  daemon [interface]        run the local scan loop
  scan-wifi [interface]     run one wifi survey and record it
  scan-bluetooth            run one bluetooth survey and record it
  import-vendors <file>     import vendor reference data
  station-create <name>     register a station and print its token
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load(os.Getenv("SIGINT_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "serve":
		err = runServe(ctx, cfg)
	case "daemon":
		err = runDaemon(ctx, cfg, os.Args[2:])
	case "scan-wifi":
		err = runScanOnce(ctx, cfg, "wifi", os.Args[2:])
	case "scan-bluetooth":
		err = runScanOnce(ctx, cfg, "bluetooth", nil)
	case "import-vendors":
		if len(os.Args) < 3 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		err = runImportVendors(ctx, cfg, os.Args[2])
	case "station-create":
		if len(os.Args) < 3 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		err = runStationCreate(ctx, cfg, os.Args[2])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil && err != context.Canceled {
		slog.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openRepo(cfg *config.Config) (*store.Repo, error) {
	db, err := store.OpenPostgres(cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.Host, cfg.DB.Port, cfg.DB.SSLMode)
	if err != nil {
		return nil, err
	}
	repo, err := store.New(db)
	if err != nil {
		return nil, err
	}
	repo.SessionGap = cfg.SessionGap
	return repo, nil
}

// newRecorder assembles the ingestion pipeline, with the broker and the
// presence cache plugged in only when configured.
func newRecorder(cfg *config.Config, repo *store.Repo) (*ingest.Recorder, func()) {
	rec := &ingest.Recorder{Repo: repo, Topic: cfg.MQTT.Topic}
	cleanup := func() {}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		rec.Presence = store.NewPresenceCache(rdb, cfg.Redis.PresenceTTL)
	}
	if cfg.MQTT.BrokerURL != "" {
		client, err := mqtt.New(cfg.MQTT.BrokerURL)
		if err != nil {
			slog.Error("mqtt connect failed, events disabled", "error", err)
		} else {
			rec.Events = client
			cleanup = client.Disconnect
		}
	}
	return rec, cleanup
}

func runServe(ctx context.Context, cfg *config.Config) error {
	repo, err := openRepo(cfg)
	if err != nil {
		return err
	}
	rec, cleanup := newRecorder(cfg, repo)
	defer cleanup()

	srv := httpapi.NewServer(repo, rec)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.RequestCounter)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())
	r.Route("/api", func(r chi.Router) {
		srv.RegisterRoutes(r)
	})

	// Devices that go quiet are flipped offline on a schedule.
	c := cron.New()
	if _, err := c.AddFunc("@every 1m", func() {
		_ = repo.SetOfflineOlderThan(context.Background(), cfg.OfflineAfter)
	}); err != nil {
		return err
	}
	c.Start()
	defer c.Stop()

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("sigint api started", "addr", cfg.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func scanners(cfg *config.Config, wifiArgs []string) []scanner.Scanner {
	wifiCmd := append([]string(nil), cfg.Scan.WifiCommand...)
	wifiCmd = append(wifiCmd, wifiArgs...)
	return []scanner.Scanner{
		{
			Source:  "wifi",
			TypeID:  model.TypeWiFi,
			Command: wifiCmd,
			Timeout: cfg.Scan.WifiTimeout,
		},
		{
			Source:  "bluetooth",
			TypeID:  model.TypeBluetooth,
			Command: append([]string(nil), cfg.Scan.BluetoothCommand...),
			Timeout: cfg.Scan.BluetoothTimeout,
		},
	}
}

func runDaemon(ctx context.Context, cfg *config.Config, wifiArgs []string) error {
	repo, err := openRepo(cfg)
	if err != nil {
		return err
	}
	rec, cleanup := newRecorder(cfg, repo)
	defer cleanup()

	d := &scanner.Daemon{
		Scanners: scanners(cfg, wifiArgs),
		Recorder: rec,
		Interval: cfg.Scan.Interval,
	}
	slog.Info("scan daemon started", "interval", cfg.Scan.Interval)
	return d.Run(ctx)
}

func runScanOnce(ctx context.Context, cfg *config.Config, source string, args []string) error {
	repo, err := openRepo(cfg)
	if err != nil {
		return err
	}
	rec, cleanup := newRecorder(cfg, repo)
	defer cleanup()

	for _, s := range scanners(cfg, args) {
		if s.Source != source {
			continue
		}
		events, err := s.Run(ctx)
		if err != nil {
			slog.Error("scan failed", "source", source, "error", err, "events", len(events))
		}
		recorded, err := rec.IngestBatch(ctx, s.TypeID, events)
		if err != nil {
			return err
		}
		slog.Info("scan recorded", "source", source, "events", len(events), "recorded", recorded)
		return nil
	}
	return fmt.Errorf("unknown scan source %q", source)
}

func runImportVendors(ctx context.Context, cfg *config.Config, path string) error {
	repo, err := openRepo(cfg)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	stats, err := oui.Import(ctx, f, repo)
	if err != nil {
		return err
	}
	slog.Info("vendor import complete", "imported", stats.Imported, "skipped", stats.Skipped)
	return nil
}

func runStationCreate(ctx context.Context, cfg *config.Config, name string) error {
	repo, err := openRepo(cfg)
	if err != nil {
		return err
	}
	station, err := repo.CreateStation(ctx, name)
	if err != nil {
		return err
	}
	fmt.Printf("station %s created\nid:    %s\ntoken: %s\n", station.Name, station.ID, station.Token)
	return nil
}
