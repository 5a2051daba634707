package middleware

import (
	"net/http"
	"time"

	"github.com/facturacion/backend/internal/domain/shared"
	"github.com/facturacion/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IdempotencyHeaderKey carries the client-chosen key for retry-safe writes.
const IdempotencyHeaderKey = "Idempotency-Key"

// MaxIdempotencyKeyLength bounds the accepted key size.
const MaxIdempotencyKeyLength = 128

// IdempotencyConfig holds configuration for the idempotency middleware
type IdempotencyConfig struct {
	Store shared.IdempotencyStore
	// TTL is how long a processed key stays reserved
	TTL time.Duration
	// Logger for middleware logging
	Logger *zap.Logger
}

// Idempotency returns a middleware that rejects replays of mutating requests.
// Clients declaring collections or payments send an Idempotency-Key header;
// a key that was already processed gets a 409 instead of a duplicate record.
// Requests without the header pass through unchanged.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut {
			c.Next()
			return
		}

		key := c.GetHeader(IdempotencyHeaderKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > MaxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ERR_BAD_REQUEST",
					"message": "Idempotency key exceeds maximum length",
				},
			})
			return
		}

		// Keys are scoped per company so different workspaces cannot
		// collide on client-chosen values.
		scopedKey := key
		if companyID := GetCompanyID(c); companyID != "" {
			scopedKey = companyID + ":" + key
		}

		fresh, err := cfg.Store.MarkProcessed(c.Request.Context(), scopedKey, cfg.TTL)
		if err != nil {
			// Store failures must not block business traffic
			log := cfg.Logger
			if log == nil {
				log = logger.FromContext(c.Request.Context())
			}
			log.Warn("Idempotency store unavailable, processing without replay protection",
				zap.String("idempotency_key", key),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if !fresh {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ERR_CONFLICT",
					"message": "Request with this idempotency key was already processed",
				},
			})
			return
		}

		c.Next()
	}
}
