package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/hrms-lite/internal/adapters/idempotency"
	"go.uber.org/zap"
)

const (
	// IdempotencyHeader は冪等性キーを受け取るヘッダーです。
	IdempotencyHeader = "Idempotency-Key"
	// ReplayedHeader は保存済み応答を再生したことを示すヘッダーです。
	ReplayedHeader = "Idempotent-Replayed"

	idempotencyKeyMaxLen = 255
)

// IdempotencyOptions は Idempotency ミドルウェアの設定です。
type IdempotencyOptions struct {
	TTL     time.Duration
	LockTTL time.Duration
	Logger  *zap.Logger
}

// Idempotency は Idempotency-Key 付きの書き込みについて、最初の応答を保存して再送時に再生します。
// 同じキーのリクエストが処理中の間は 409、異なるボディでキーが再利用された場合は 422 を返します。ストアの障害時は冪等性を諦めて処理を継続します。
func Idempotency(store idempotency.Store, opts IdempotencyOptions) gin.HandlerFunc {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(IdempotencyHeader))
		if key == "" {
			c.Next()
			return
		}
		if len(key) > idempotencyKeyMaxLen {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "ValidationError",
				"message": "Idempotency-Key must not exceed 255 characters",
			})
			return
		}

		hash, err := hashRequestBody(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "ValidationError",
				"message": "Request body could not be read",
			})
			return
		}

		ctx := c.Request.Context()
		scoped := c.Request.Method + ":" + c.FullPath() + ":" + key
		log := logger.With(zap.String("idempotency_key", key), zap.String("request_id", c.GetString(RequestIDKey)))

		if replayed := replay(c, store, scoped, hash, log); replayed {
			return
		}

		release, err := store.Acquire(ctx, scoped, opts.LockTTL)
		if err != nil {
			if errors.Is(err, idempotency.ErrInFlight) {
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{
					"error":   "ConflictError",
					"message": "A request with the same Idempotency-Key is already being processed",
				})
				return
			}
			log.Warn("idempotency lock unavailable", zap.Error(err))
			c.Next()
			return
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("idempotency lock release failed", zap.Error(err))
			}
		}()

		// ロック取得までの間に先行リクエストが完了している場合がある
		if replayed := replay(c, store, scoped, hash, log); replayed {
			return
		}

		recorder := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder

		c.Next()

		status := recorder.Status()
		if status >= http.StatusInternalServerError {
			return
		}
		resp := &idempotency.Response{
			Status:      status,
			ContentType: recorder.Header().Get("Content-Type"),
			Body:        recorder.body.Bytes(),
			RequestHash: hash,
		}
		if err := store.Save(context.WithoutCancel(ctx), scoped, resp, opts.TTL); err != nil {
			log.Warn("idempotency response not saved", zap.Error(err))
		}
	}
}

// hashRequestBody はボディの SHA-256 を返し、ハンドラが再度読めるようにボディを差し戻します。
func hashRequestBody(req *http.Request) (string, error) {
	if req.Body == nil {
		sum := sha256.Sum256(nil)
		return hex.EncodeToString(sum[:]), nil
	}
	b, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return "", err
	}
	req.Body = io.NopCloser(bytes.NewReader(b))

	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

func replay(c *gin.Context, store idempotency.Store, key, hash string, log *zap.Logger) bool {
	resp, ok, err := store.Get(c.Request.Context(), key)
	if err != nil {
		log.Warn("idempotency lookup failed", zap.Error(err))
		return false
	}
	if !ok {
		return false
	}

	if resp.RequestHash != hash {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "ValidationError",
			"message": "Idempotency-Key has already been used with a different request body",
		})
		return true
	}

	c.Header(ReplayedHeader, "true")
	c.Data(resp.Status, resp.ContentType, resp.Body)
	c.Abort()
	return true
}

type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
