package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
)

// LoaderProvider はリクエスト単位の dataloader を context に格納します。
type LoaderProvider interface {
	WithLoaders(ctx context.Context) context.Context
}

// Loaders はリクエストごとに新しい dataloader を用意します。
func Loaders(provider LoaderProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(provider.WithLoaders(c.Request.Context()))
		c.Next()
	}
}
