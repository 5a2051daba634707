package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/facturacion/backend/internal/infrastructure/cache"
	"github.com/facturacion/backend/internal/infrastructure/logger"
)

// FiscalHandler exposes the fiscal authority integration status
type FiscalHandler struct {
	BaseHandler
	certStatus *cache.CertificateStatusCache
	logger     *zap.Logger
}

// NewFiscalHandler creates a new FiscalHandler
func NewFiscalHandler(certStatus *cache.CertificateStatusCache, log *zap.Logger) *FiscalHandler {
	return &FiscalHandler{certStatus: certStatus, logger: log}
}

// CertificateStatusResponse represents the certificate status response
type CertificateStatusResponse struct {
	CompanyID  string `json:"company_id"`
	Active     bool   `json:"active"`
	Authority  string `json:"authority"`
	ValidUntil string `json:"valid_until"`
	Detail     string `json:"detail,omitempty"`
}

// GetCertificateStatus returns the current e-invoicing certificate status for
// the requesting company. Answers are cached; a fresh cache hit does not reach
// the fiscal authority.
func (h *FiscalHandler) GetCertificateStatus(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Company ID is required")
		return
	}

	status, err := h.certStatus.Get(c.Request.Context(), companyID)
	if err != nil {
		logger.GetGinLogger(c).Warn("certificate status lookup failed",
			zap.String("company_id", companyID.String()),
			zap.Error(err))
		h.Error(c, http.StatusBadGateway, "ERR_UPSTREAM", "Certificate status is unavailable")
		return
	}

	h.Success(c, CertificateStatusResponse{
		CompanyID:  companyID.String(),
		Active:     status.Active,
		Authority:  status.Authority,
		ValidUntil: status.ValidUntil.Format("2006-01-02"),
		Detail:     status.Detail,
	})
}

// RefreshCertificateStatus drops the cached answer so the next read refetches.
// Called after the company uploads a new certificate.
func (h *FiscalHandler) RefreshCertificateStatus(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Company ID is required")
		return
	}

	h.certStatus.Invalidate(companyID)
	h.NoContent(c)
}

// RegisterRoutes registers fiscal routes
func (h *FiscalHandler) RegisterRoutes(rg *gin.RouterGroup) {
	fiscal := rg.Group("/fiscal")
	{
		fiscal.GET("/certificate-status", h.GetCertificateStatus)
		fiscal.POST("/certificate-status/refresh", h.RefreshCertificateStatus)
	}
}
