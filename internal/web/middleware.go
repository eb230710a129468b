package web

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nikolayk812/bakery-cart/internal/cartstore"
	"github.com/nikolayk812/bakery-cart/internal/metrics"
	"go.uber.org/zap"
	"net/http"
	"strings"
	"time"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
	storeKey        = "cart_store"

	sessionCookie = "cart_session"
	sessionMaxAge = 30 * 24 * 60 * 60
)

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.L()
	}
	sugar := logger.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log := sugar.With(
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if len(c.Errors) > 0 {
			log.Errorw("request", "errors", c.Errors.String())
			return
		}
		log.Infow("request")
	}
}

// SessionMiddleware resolves the shopper's cart store from the session cookie,
// issuing a new session id when the cookie is missing or malformed.
func SessionMiddleware(sessions *cartstore.Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, err := c.Cookie(sessionCookie)
		if err != nil || uuid.Validate(ownerID) != nil {
			ownerID = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(sessionCookie, ownerID, sessionMaxAge, "/", "", false, true)
		}

		store, err := sessions.Get(c.Request.Context(), ownerID)
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		metrics.SetActiveSessions(sessions.Len())

		c.Set(storeKey, store)
		c.Next()
	}
}

func storeFrom(c *gin.Context) *cartstore.Store {
	return c.MustGet(storeKey).(*cartstore.Store)
}
