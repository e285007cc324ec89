// Package router は HTTP のルーティングとミドルウェアの構成を組み立てます。
package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/hrms-lite/internal/adapters/http/handler"
	"github.com/ogurasousui/hrms-lite/internal/adapters/http/middleware"
	"github.com/ogurasousui/hrms-lite/internal/adapters/http/validation"
	"github.com/ogurasousui/hrms-lite/internal/adapters/idempotency"
	"github.com/ogurasousui/hrms-lite/internal/core/attendance"
	"github.com/ogurasousui/hrms-lite/internal/core/employee"
	"go.uber.org/zap"
)

const (
	apiPrefix = "/api/v1"

	defaultIdempotencyTTL = 24 * time.Hour
	defaultLockTTL        = 30 * time.Second
)

// Dependencies はルーターが利用するユースケースと基盤です。
type Dependencies struct {
	Employees  employee.UseCase
	Attendance attendance.UseCase
	Loaders    middleware.LoaderProvider
	DB         handler.Pinger
	// Idempotency が nil の場合はプロセス内ストアを利用します。
	Idempotency idempotency.Store
}

// Options はルーターの挙動に関する設定です。
type Options struct {
	Logger         *zap.Logger
	Development    bool
	CORSOrigins    []string
	IdempotencyTTL time.Duration
	LockTTL        time.Duration
	Now            func() time.Time
}

// New は gin エンジンを構築します。
func New(deps Dependencies, opts Options) (*gin.Engine, error) {
	if err := validation.Setup(); err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = defaultIdempotencyTTL
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultLockTTL
	}
	store := deps.Idempotency
	if store == nil {
		store = idempotency.NewMemoryStore(opts.Now)
	}

	r := gin.New()
	r.Use(middleware.Recovery(logger, opts.Development))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))
	if deps.Loaders != nil {
		r.Use(middleware.Loaders(deps.Loaders))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": fmt.Sprintf("Cannot %s %s", c.Request.Method, c.Request.URL.Path),
		})
	})

	errs := handler.NewErrorWriter(logger, opts.Development)
	handler.NewHealthHandler(deps.DB, opts.Now, logger).Register(r)

	guard := middleware.Idempotency(store, middleware.IdempotencyOptions{
		TTL:     opts.IdempotencyTTL,
		LockTTL: opts.LockTTL,
		Logger:  logger,
	})

	v1 := r.Group(apiPrefix)
	handler.NewEmployeeHandler(deps.Employees, errs).Register(v1, guard)
	handler.NewAttendanceHandler(deps.Attendance, errs, logger).Register(v1, guard)

	return r, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	cfg.AddAllowHeaders(middleware.RequestIDHeader, middleware.IdempotencyHeader)
	cfg.AddExposeHeaders(middleware.RequestIDHeader, middleware.ReplayedHeader, "Content-Disposition")
	return cfg
}
