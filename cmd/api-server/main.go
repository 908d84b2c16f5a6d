package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/carehome-allocation/internal/api"
	"github.com/hackgods/carehome-allocation/internal/audit"
	"github.com/hackgods/carehome-allocation/internal/auth"
	"github.com/hackgods/carehome-allocation/internal/beds"
	"github.com/hackgods/carehome-allocation/internal/care"
	"github.com/hackgods/carehome-allocation/internal/carehome"
	"github.com/hackgods/carehome-allocation/internal/config"
	"github.com/hackgods/carehome-allocation/internal/db"
	"github.com/hackgods/carehome-allocation/internal/facility"
	"github.com/hackgods/carehome-allocation/internal/logger"
	"github.com/hackgods/carehome-allocation/internal/metrics"
	redisclient "github.com/hackgods/carehome-allocation/internal/redis"
	"github.com/hackgods/carehome-allocation/internal/shifts"
)

const version = "0.3.0"

// store is what the api server needs from either repository.
type store interface {
	carehome.Repository
	api.StaffDirectory
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	log := logger.Must(cfg.LogLevel, cfg.LogFormat, "api-server")
	defer func() { _ = log.Sync() }()

	log.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("store", cfg.StoreDriver),
	)

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
		policy, err = beds.NewIsolationPolicy(beds.ModeReservedOnly, cfg.ReservedBeds)
		if err != nil {
			log.Fatal("isolation policy error", zap.Error(err))
		}
	}

	var (
		repo     store
		postgres api.Pinger
	)
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		if err == nil {
			err = db.Migrate(pgCtx, pgPool)
		}
		if err != nil {
			cancelPg()
			log.Fatal("postgres setup error", zap.Error(err))
		}
		defer pgPool.Close()

		pg := carehome.NewPgRepository(pgPool)
		err = pg.EnsureBeds(pgCtx, fac)
		cancelPg()
		if err != nil {
			log.Fatal("bed table setup error", zap.Error(err))
		}
		log.Info("connected to Postgres", zap.Int("beds", fac.BedCount()))
		repo, postgres = pg, pg
	default:
		mem := carehome.NewMemoryRepository()
		for _, s := range demoStaff() {
			mem.AddStaff(s)
		}
		repo = mem
		log.Warn("using in-memory store, state is lost on restart")
	}

	var (
		rdb    *redis.Client
		locker redisclient.Locker
	)
	if cfg.RedisAddr != "" {
		rdb, err = redisclient.NewRedisClient(redisclient.Options{
			Addr:         cfg.RedisAddr,
			Username:     cfg.RedisUsername,
			Password:     cfg.RedisPassword,
			PoolSize:     cfg.RedisPoolSize,
			MinIdleConns: cfg.RedisMinIdle,
			Timeout:      cfg.RedisTimeout,
		})
		if err != nil {
			log.Fatal("redis connection error", zap.Error(err))
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Warn("error closing redis", zap.Error(err))
			}
		}()
		locker = redisclient.NewRedisLocker(rdb, cfg.LockTTL)
		log.Info("connected to Redis")
	} else {
		locker = redisclient.NewLocalLocker(cfg.LockTTL)
		log.Warn("REDIS_ADDR not set, locks are process-local")
	}

	recorders := audit.Multi{audit.NewLogRecorder(log)}
	if cfg.AMQPURL != "" {
		pub, err := audit.DialPublisher(cfg.AMQPURL, cfg.AuditQueue, log)
		if err != nil {
			log.Fatal("amqp connection error", zap.Error(err))
		}
		defer func() {
			if err := pub.Close(); err != nil {
				log.Warn("error closing amqp publisher", zap.Error(err))
			}
		}()
		recorders = append(recorders, pub)
		log.Info("publishing audit entries", zap.String("queue", cfg.AuditQueue))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	alloc, err := beds.NewAllocator(fac, policy)
	if err != nil {
		log.Fatal("allocator setup error", zap.Error(err))
	}

	svc := carehome.NewService(
		repo,
		alloc,
		shifts.NewScheduler(),
		locker,
		auth.NewContextAuthorizer(),
		recorders,
		carehome.WithMetrics(m),
		carehome.WithLogger(log.Named("carehome")),
	)

	// warm the allocator and gauges before serving
	if _, err := svc.ComplianceSweep(rootCtx); err != nil {
		log.Warn("initial compliance sweep failed", zap.Error(err))
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	if cfg.StoreDriver == config.StoreMemory {
		for _, s := range demoStaff() {
			tok, _, err := tokens.Issue(s)
			if err != nil {
				log.Fatal("token issue error", zap.Error(err))
			}
			log.Info("demo token", zap.String("username", s.Username), zap.String("role", string(s.Role)), zap.String("token", tok))
		}
	}

	router := api.NewRouter(api.RouterConfig{
		Service:  svc,
		Tokens:   tokens,
		Staff:    repo,
		Postgres: postgres,
		Redis:    rdb,
		Metrics:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Logger:   log,
		Env:      cfg.Env,
		Version:  version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server error", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	log.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

// demoStaff backs the in-memory store so the API can be tried without Postgres.
func demoStaff() []care.Staff {
	return []care.Staff{
		{ID: "MGR01", FirstName: "Cara", LastName: "Lind", Gender: care.GenderFemale, Age: 48, Role: care.RoleManager, Username: "manager"},
		{ID: "DOC01", FirstName: "Ben", LastName: "Okafor", Gender: care.GenderMale, Age: 41, Role: care.RoleDoctor, Username: "doctor"},
		{ID: "NUR01", FirstName: "Ana", LastName: "Reyes", Gender: care.GenderFemale, Age: 33, Role: care.RoleNurse, Username: "nurse"},
	}
}
