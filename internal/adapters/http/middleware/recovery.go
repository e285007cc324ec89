package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery はハンドラ内の panic を 500 応答に変換します。development が true の場合はスタックを応答に含めます。
func Recovery(logger *zap.Logger, development bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			stack := debug.Stack()
			logger.Error("panic recovered",
				zap.Any("panic", rec),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetString(RequestIDKey)),
				zap.ByteString("stack", stack),
			)

			body := gin.H{
				"error":   "InternalServerError",
				"message": "An unexpected error occurred",
			}
			if development {
				body["message"] = fmt.Sprint(rec)
				body["stack"] = string(stack)
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, body)
		}()

		c.Next()
	}
}
