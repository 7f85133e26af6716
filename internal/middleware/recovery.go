package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					zap.String("request_id", c.GetString("request_id")),
					zap.Any("panic", err),
				)

				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error.",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}
