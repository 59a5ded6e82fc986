package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/goalline/clubpay/internal/actorctx"
	"go.uber.org/zap"
)

const HeaderUserID = "X-User-ID"

func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	logger := log.Named("http.request")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// ActorContext resolves the authenticated club member from the gateway-set
// identity header. Authentication itself happens upstream; an absent header
// means an unauthenticated caller.
func (s *Server) ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if raw == "" {
			c.Next()
			return
		}

		userID, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := actorctx.WithUserID(c.Request.Context(), userID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ReminderThrottle caps how often one actor can trigger reminder dispatch,
// independent of the per-recipient 24h window.
func (s *Server) ReminderThrottle() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, ok := actorctx.UserIDFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		allowed, err := s.reminderLimiter.AllowEndpoint(c.Request.Context(), actorID.String())
		if err != nil {
			s.log.Warn("reminder throttle check failed", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: errorPayload{
				Type:    "rate_limited",
				Message: "too many reminder requests",
			}})
			return
		}
		c.Next()
	}
}
