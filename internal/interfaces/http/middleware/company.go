package middleware

import (
	"net/http"
	"strings"

	"github.com/facturacion/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Keys used to store company information in gin.Context
const (
	CompanyIDKey     = "company_id"
	CompanyHeaderKey = "X-Company-ID"
)

// CompanyMiddlewareConfig holds configuration for company scoping middleware
type CompanyMiddlewareConfig struct {
	// SkipPaths are paths that don't require a company context (e.g., health check)
	SkipPaths []string
	// Required determines if the company header is mandatory
	Required bool
	// Logger for middleware logging
	Logger *zap.Logger
}

// DefaultCompanyConfig returns default company middleware configuration
func DefaultCompanyConfig() CompanyMiddlewareConfig {
	return CompanyMiddlewareConfig{
		SkipPaths: []string{"/health", "/healthz", "/ready", "/api/v1/health"},
		Required:  true,
		Logger:    nil,
	}
}

// CompanyMiddleware extracts the workspace company from the X-Company-ID header.
// Every business route is scoped to exactly one company.
func CompanyMiddleware() gin.HandlerFunc {
	return CompanyMiddlewareWithConfig(DefaultCompanyConfig())
}

// CompanyMiddlewareWithConfig returns company middleware with custom configuration
func CompanyMiddlewareWithConfig(cfg CompanyMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath || strings.HasPrefix(path, skipPath+"/") {
				c.Next()
				return
			}
		}

		companyID := c.GetHeader(CompanyHeaderKey)

		if companyID != "" {
			if _, err := uuid.Parse(companyID); err != nil {
				respondCompanyError(c, "Invalid company ID format")
				return
			}
		}

		if companyID == "" && cfg.Required {
			respondCompanyError(c, "Company identification required")
			return
		}

		if companyID != "" {
			c.Set(CompanyIDKey, companyID)

			// Propagate into the request context for the service layer
			ctx := c.Request.Context()
			log := logger.FromContext(ctx)
			ctx, _ = logger.WithCompanyID(ctx, log, companyID)
			c.Request = c.Request.WithContext(ctx)

			if cfg.Logger != nil {
				cfg.Logger.Debug("Company identified",
					zap.String("company_id", companyID),
				)
			}
		}

		c.Next()
	}
}

func respondCompanyError(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "ERR_BAD_REQUEST",
			"message": message,
		},
	})
}

// GetCompanyID retrieves the company ID from gin.Context
func GetCompanyID(c *gin.Context) string {
	if companyID, exists := c.Get(CompanyIDKey); exists {
		if id, ok := companyID.(string); ok {
			return id
		}
	}
	return ""
}
