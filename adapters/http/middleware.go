package http

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoahotran/town-notes/pkg/apperror"
	"github.com/khoahotran/town-notes/pkg/auth"
	"github.com/khoahotran/town-notes/pkg/envelope"
	"github.com/khoahotran/town-notes/pkg/logger"
)

const (
	GinContextKeyCallerEmail = "callerEmail"
)

// AuthMiddleware reads the caller identity from the bearer token. The token
// has been verified upstream; a token that does not parse is still rejected.
func AuthMiddleware(jwtSvc *auth.JWTService, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Error(apperror.NewUnauthorized("authorization header is required", nil))
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.Error(apperror.NewUnauthorized("invalid token format", nil))
			c.Abort()
			return
		}

		claims, err := jwtSvc.ValidateToken(tokenString)
		if err != nil {
			log.Warn("Rejected bearer token", zap.String("path", c.Request.URL.Path), zap.Error(err))
			c.Error(apperror.NewUnauthorized("invalid or expired token", err))
			c.Abort()
			return
		}

		c.Set(GinContextKeyCallerEmail, claims.Email)
		c.Next()
	}
}

func GetCallerEmailFromGinContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(GinContextKeyCallerEmail)
	if !ok {
		return "", false
	}
	email, ok := v.(string)
	return email, ok && email != ""
}

// ErrorMiddleware turns the last error attached by a handler into a failed
// envelope with the matching status code.
func ErrorMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := apperror.ToHTTPStatus(err)

		switch {
		case errors.Is(err, apperror.ErrNotFound):
			log.Info("Resource not found", zap.String("path", c.Request.URL.Path))
		case status >= 500:
			log.Error("Request failed", err, zap.String("method", c.Request.Method), zap.String("path", c.Request.URL.Path))
		default:
			log.Warn("Request rejected", zap.String("path", c.Request.URL.Path), zap.Int("status", status), zap.Error(err))
		}

		c.JSON(status, envelope.FromError[envelope.Ack](err))
	}
}

// RecoveryMiddleware answers a panicking handler with a failed envelope.
func RecoveryMiddleware(log logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("Handler panicked", nil, zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(500, envelope.Fail[envelope.Ack](apperror.ErrInternal.Error()))
	})
}

func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
