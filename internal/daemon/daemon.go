package daemon

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hellobible/hellobible/internal/api"
	"github.com/hellobible/hellobible/internal/app/gamification"
	"github.com/hellobible/hellobible/internal/app/lessons"
	"github.com/hellobible/hellobible/internal/app/study"
	"github.com/hellobible/hellobible/internal/health"
	"github.com/hellobible/hellobible/internal/infra/catalog"
	"github.com/hellobible/hellobible/internal/infra/identity"
	_ "github.com/hellobible/hellobible/internal/infra/metrics" // Register Prometheus metrics
	"github.com/hellobible/hellobible/internal/infra/postgres"
	"github.com/hellobible/hellobible/internal/infra/scheduler"
	"github.com/hellobible/hellobible/internal/infra/sqlite"
)

// limiterIdle is how long an IP may stay quiet before its bucket is dropped.
const limiterIdle = 3 * time.Minute

// Daemon is the HelloBible runtime. It wires together all services.
type Daemon struct {
	Config  Config
	DB      *sqlite.DB
	Remote  *postgres.Store // nil when remote sync is off or unreachable
	Session *identity.Session
	Catalog *catalog.Catalog
	Engine  *gamification.Engine
	Lessons *lessons.Tracker
	Study   *study.Service
	Resync  *scheduler.ResyncQueue
	Health  *health.Checker
	Server  *api.Server

	jobs    *scheduler.Jobs
	logFile *os.File
	cancel  context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration. The
// engine is not initialized yet; Serve and the CLI commands do that.
func NewWithConfig(cfg Config) (*Daemon, error) {
	d := &Daemon{Config: cfg}

	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		d.logFile = f
		log.SetOutput(io.MultiWriter(os.Stderr, f))
	}

	loc, err := cfg.Engine.Location()
	if err != nil {
		d.Close()
		return nil, err
	}

	// Open SQLite
	dataDir := cfg.Storage.Dir
	if dataDir == "" {
		dataDir = helloBibleHome()
	}
	db, err := sqlite.Open(dataDir)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	d.DB = db

	remoteTimeout := parseDuration(cfg.Remote.Timeout, postgres.DefaultTimeout)
	if cfg.Remote.Enabled {
		d.Remote = connectRemote(cfg.Remote, remoteTimeout)
	}

	d.Session = identity.NewSession(db, []byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer)
	d.Catalog = catalog.Default()

	d.Resync = scheduler.NewResyncQueue(scheduler.ResyncConfig{
		MaxAttempts: cfg.Resync.MaxAttempts,
		BaseDelay:   parseDuration(cfg.Resync.BaseDelay, 30*time.Second),
		MaxDelay:    parseDuration(cfg.Resync.MaxDelay, 30*time.Minute),
	})

	opts := []gamification.Option{
		gamification.WithLocation(loc),
		gamification.WithResyncTracker(d.Resync),
	}
	if d.Remote != nil {
		opts = append(opts, gamification.WithRemote(d.Remote, remoteTimeout))
	}
	d.Engine = gamification.New(db, d.Session, opts...)
	d.Lessons = lessons.New(db, d.Catalog)
	d.Study = study.NewService(d.Lessons, d.Engine)

	// Health checker
	var remotePing health.RemotePinger
	if d.Remote != nil {
		remotePing = d.Remote
	}
	d.Health = health.NewChecker(db, dataDir, remotePing)

	// Initialize API server
	srv := api.NewServer(api.Config{
		AllowedOrigins: cfg.API.CORSOrigins,
		RequestTimeout: parseDuration(cfg.API.RequestTimeout, 30*time.Second),
		RateLimit:      cfg.API.RateLimit,
		RateBurst:      cfg.API.RateBurst,
		Metrics:        cfg.Telemetry.Prometheus,
	}, d.Engine, d.Lessons, d.Catalog, d.Study)
	srv.SetSessions(d.Session)
	srv.SetHealthChecker(d.Health)
	d.Server = srv

	return d, nil
}

// connectRemote opens the remote store. A failure leaves the daemon
// local-only for this run instead of refusing to start.
func connectRemote(cfg RemoteConfig, timeout time.Duration) *postgres.Store {
	ctx, cancel := context.WithTimeout(context.Background(), 2*timeout)
	defer cancel()

	store, err := postgres.Connect(ctx, postgres.Config{
		DatabaseURL: cfg.DatabaseURL,
		Timeout:     timeout,
		MaxConns:    cfg.MaxConns,
	})
	if err != nil {
		log.Printf("[daemon] WARNING: remote store unavailable, running local-only: %v", err)
		return nil
	}
	if cfg.Migrate {
		if err := store.Migrate(ctx); err != nil {
			log.Printf("[daemon] WARNING: remote migration failed: %v", err)
		}
	}
	log.Printf("[daemon] remote progress store connected")
	return store
}

// Serve starts the HTTP server and background jobs and blocks until
// shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if _, err := d.Engine.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}

	// Health checker (always runs)
	go d.Health.Run(ctx)

	if err := d.startJobs(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		_ = httpServer.Shutdown(shutdownCtx)
	}()

	fmt.Printf("HelloBible serving on http://%s\n", addr)
	if d.Remote != nil {
		fmt.Printf("  Remote sync: enabled\n")
	}
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	err := httpServer.ListenAndServe()
	d.Close()
	if err != http.ErrServerClosed {
		return err
	}
	return nil
}

// startJobs schedules the resync drain and the rate limiter sweep.
func (d *Daemon) startJobs() error {
	jobs, err := scheduler.NewJobs()
	if err != nil {
		return err
	}

	if d.Remote != nil {
		interval := parseDuration(d.Config.Resync.Interval, time.Minute)
		timeout := 4 * parseDuration(d.Config.Remote.Timeout, postgres.DefaultTimeout)
		if err := jobs.Every("resync", interval, scheduler.ResyncTask(d.Resync, d.Engine, timeout)); err != nil {
			return err
		}
	}

	limiter := d.Server.Limiter()
	if err := jobs.Every("rate-limiter-sweep", time.Minute, func() {
		if n := limiter.Sweep(limiterIdle); n > 0 {
			log.Printf("[daemon] dropped %d idle rate limiter entries", n)
		}
	}); err != nil {
		return err
	}

	jobs.Start()
	d.jobs = jobs
	return nil
}

// Close shuts down all daemon resources. It is safe to call twice.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.jobs != nil {
		if err := d.jobs.Shutdown(); err != nil {
			log.Printf("[daemon] scheduler shutdown: %v", err)
		}
		d.jobs = nil
	}
	if d.Remote != nil {
		d.Remote.Close()
		d.Remote = nil
	}
	if d.DB != nil {
		_ = d.DB.Close()
		d.DB = nil
	}
	if d.logFile != nil {
		log.SetOutput(os.Stderr)
		_ = d.logFile.Close()
		d.logFile = nil
	}
}
