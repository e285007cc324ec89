package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/hrms-lite/internal/adapters/directory"
	"github.com/ogurasousui/hrms-lite/internal/adapters/http/router"
	"github.com/ogurasousui/hrms-lite/internal/adapters/idempotency"
	"github.com/ogurasousui/hrms-lite/internal/adapters/repository/postgres"
	"github.com/ogurasousui/hrms-lite/internal/core/attendance"
	"github.com/ogurasousui/hrms-lite/internal/core/employee"
	"github.com/ogurasousui/hrms-lite/internal/platform/config"
	pg "github.com/ogurasousui/hrms-lite/internal/platform/db/postgres"
	"github.com/ogurasousui/hrms-lite/internal/platform/logger"
	"github.com/ogurasousui/hrms-lite/internal/platform/server"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Error("server stopped with error", zap.Error(err))
		_ = lg.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, lg *zap.Logger) error {
	if !cfg.Server.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.Database.AutoMigrate {
		status, err := pg.Migrate(cfg.Database.DSN(), pg.MigrateUp)
		if err != nil {
			return err
		}
		lg.Info("database migrated", zap.Uint("version", status.Version), zap.Bool("dirty", status.Dirty))
	}

	dbPool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	txManager := pg.NewTransactionManager(dbPool, pg.WithTxLogger(lg))
	employeeRepo := postgres.NewEmployeeRepository(dbPool)
	attendanceRepo := postgres.NewAttendanceRepository(dbPool)

	employeeSvc := employee.NewService(employeeRepo, nil, txManager, lg)
	dir := directory.New(employeeRepo)
	attendanceSvc := attendance.NewService(attendanceRepo, dir, nil, txManager, lg, cfg.Server.Location)

	store, closeStore, err := newIdempotencyStore(ctx, cfg.Redis, lg)
	if err != nil {
		return err
	}
	defer closeStore()

	engine, err := router.New(router.Dependencies{
		Employees:   employeeSvc,
		Attendance:  attendanceSvc,
		Loaders:     dir,
		DB:          dbPool,
		Idempotency: store,
	}, router.Options{
		Logger:         lg,
		Development:    cfg.Server.IsDevelopment(),
		CORSOrigins:    cfg.Server.CORSOrigins,
		IdempotencyTTL: cfg.Redis.IdempotencyTTL,
		LockTTL:        cfg.Redis.LockTTL,
	})
	if err != nil {
		return err
	}

	srv := server.New(server.Options{
		ListenAddr:       cfg.Server.ListenAddr,
		HealthListenAddr: cfg.Server.HealthListenAddr,
	}, engine, dbPool, lg)

	lg.Info("starting HRMS API",
		zap.String("environment", cfg.Server.Environment),
		zap.String("timezone", cfg.Server.TimezoneName),
		zap.Bool("redis", cfg.Redis.Enabled),
	)
	return srv.Run(ctx)
}

func newIdempotencyStore(ctx context.Context, cfg config.RedisConfig, lg *zap.Logger) (idempotency.Store, func(), error) {
	if !cfg.Enabled {
		lg.Info("idempotency keys kept in memory")
		return idempotency.NewMemoryStore(time.Now), func() {}, nil
	}

	rdb, err := idempotency.NewRedisClient(ctx, cfg.Addr, cfg.Password, cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	return idempotency.NewRedisStore(rdb), func() { _ = rdb.Close() }, nil
}
