package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDKey は gin.Context に格納するリクエスト ID のキーです。
	RequestIDKey = "request_id"
	// RequestIDHeader はリクエスト ID を受け渡すヘッダーです。
	RequestIDHeader = "X-Request-ID"

	requestIDMaxLen = 64
)

// RequestID は X-Request-ID ヘッダーの値、なければ生成した UUID をリクエスト ID として設定します。
// 長すぎる値はログへの注入を避けるため採用しません。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" || len(rid) > requestIDMaxLen {
			rid = uuid.New().String()
		}

		c.Set(RequestIDKey, rid)
		c.Header(RequestIDHeader, rid)

		c.Next()
	}
}
