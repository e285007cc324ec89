package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	serviceName    = "HRMS API"
	serviceVersion = "1.0.0"
	pingTimeout    = 2 * time.Second
)

// Pinger は依存先の疎通確認を行います。
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler は死活監視とルートの案内を返します。
type HealthHandler struct {
	db     Pinger
	now    func() time.Time
	logger *zap.Logger
}

// NewHealthHandler は HealthHandler を生成します。db が nil の場合は常に healthy を返します。
func NewHealthHandler(db Pinger, now func() time.Time, logger *zap.Logger) *HealthHandler {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{db: db, now: now, logger: logger}
}

// Register はルート直下のエンドポイントを登録します。
func (h *HealthHandler) Register(r gin.IRoutes) {
	r.GET("/health", h.Health)
	r.GET("/", h.Welcome)
}

// Health はデータベースへの疎通を含めた稼働状態を返します。
func (h *HealthHandler) Health(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("database ping failed", zap.Error(err))
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
	}

	c.JSON(code, gin.H{
		"status":    status,
		"service":   serviceName,
		"timestamp": h.now().UTC().Format(time.RFC3339Nano),
	})
}

// Welcome は API の案内を返します。
func (h *HealthHandler) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to " + serviceName,
		"health":  "/health",
		"version": serviceVersion,
	})
}
