package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hackgods/carehome-allocation/internal/audit"
	"github.com/hackgods/carehome-allocation/internal/auth"
	"github.com/hackgods/carehome-allocation/internal/beds"
	"github.com/hackgods/carehome-allocation/internal/carehome"
	"github.com/hackgods/carehome-allocation/internal/config"
	"github.com/hackgods/carehome-allocation/internal/db"
	"github.com/hackgods/carehome-allocation/internal/facility"
	"github.com/hackgods/carehome-allocation/internal/logger"
	"github.com/hackgods/carehome-allocation/internal/metrics"
	redisclient "github.com/hackgods/carehome-allocation/internal/redis"
	"github.com/hackgods/carehome-allocation/internal/shifts"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	log := logger.Must(cfg.LogLevel, cfg.LogFormat, "census-worker")
	defer func() { _ = log.Sync() }()

	if cfg.StoreDriver != config.StorePostgres {
		log.Fatal("census worker needs the postgres store", zap.String("store", cfg.StoreDriver))
	}

	log.Info("census worker starting up", zap.String("env", cfg.Env), zap.Duration("interval", cfg.WorkerInterval))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	specs, err := facility.ParseLayout(cfg.FacilityLayout)
	if err != nil {
		log.Fatal("facility layout error", zap.Error(err))
	}
	fac, err := facility.New(specs)
	if err != nil {
		log.Fatal("facility build error", zap.Error(err))
	}
	policy := beds.DefaultIsolationPolicy()
	if len(cfg.ReservedBeds) > 0 {
		if policy, err = beds.NewIsolationPolicy(beds.ModeReservedOnly, cfg.ReservedBeds); err != nil {
			log.Fatal("isolation policy error", zap.Error(err))
		}
	}

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	alloc, err := beds.NewAllocator(fac, policy)
	if err != nil {
		log.Fatal("allocator setup error", zap.Error(err))
	}

	// The sweep only reads, so a local lock and log-only audit are enough.
	svc := carehome.NewService(
		carehome.NewPgRepository(pgPool),
		alloc,
		shifts.NewScheduler(),
		redisclient.NewLocalLocker(cfg.LockTTL),
		auth.NewContextAuthorizer(),
		audit.NewLogRecorder(log),
		carehome.WithMetrics(m),
		carehome.WithLogger(log.Named("carehome")),
	)

	metricsSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server error", zap.Error(err))
		}
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = metricsSrv.Shutdown(ctx)
	}()

	// Run once at startup
	runOnce(rootCtx, svc, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info("shutdown signal received, stopping census worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, log)
		}
	}
}

func runOnce(ctx context.Context, svc *carehome.Service, log *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	violations, err := svc.ComplianceSweep(runCtx)
	if err != nil {
		log.Error("census run error", zap.Error(err))
		return
	}
	occ := svc.Occupancy()
	log.Info("census run complete",
		zap.Int("occupied", occ.Occupied),
		zap.Int("available", occ.Available),
		zap.Int("violations", len(violations)),
		zap.Duration("took", time.Since(start)),
	)
}
