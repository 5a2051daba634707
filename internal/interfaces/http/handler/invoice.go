package handler

import (
	"context"
	"time"

	billingapp "github.com/facturacion/backend/internal/application/billing"
	"github.com/facturacion/backend/internal/domain/billing"
	"github.com/facturacion/backend/internal/domain/shared/valueobject"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceHandler handles invoice-related API endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService *billingapp.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *billingapp.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
	}
}

// CounterpartyRequest names the client or supplier on a voucher
type CounterpartyRequest struct {
	Kind         string `json:"kind" binding:"required,oneof=ORGANIZATION PERSON"`
	BusinessName string `json:"business_name" binding:"max=200"`
	FirstName    string `json:"first_name" binding:"max=100"`
	LastName     string `json:"last_name" binding:"max=100"`
	TaxID        string `json:"tax_id" binding:"max=13"`
}

// TotalsRequest carries the monetary breakdown of a voucher
type TotalsRequest struct {
	Currency         string  `json:"currency" binding:"required,len=3"`
	Subtotal         float64 `json:"subtotal" binding:"gte=0"`
	TotalTaxes       float64 `json:"total_taxes" binding:"gte=0"`
	TotalPerceptions float64 `json:"total_perceptions" binding:"gte=0"`
	TotalAmount      float64 `json:"total_amount" binding:"required,gt=0"`
}

// CreateInvoiceRequest represents a request to register a voucher
type CreateInvoiceRequest struct {
	VoucherTypeCode  string              `json:"voucher_type_code" binding:"required"`
	Direction        string              `json:"direction" binding:"required,oneof=SALE PURCHASE"`
	SalesPoint       int                 `json:"sales_point" binding:"required,min=1,max=9999"`
	VoucherNumber    int64               `json:"voucher_number" binding:"required,min=1"`
	Counterparty     CounterpartyRequest `json:"counterparty" binding:"required"`
	IssueDate        string              `json:"issue_date" binding:"required"`
	DueDate          string              `json:"due_date"`
	Totals           TotalsRequest       `json:"totals" binding:"required"`
	RelatedInvoiceID string              `json:"related_invoice_id" binding:"omitempty,uuid"`
}

// Create registers a voucher for the company
func (h *InvoiceHandler) Create(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	userID, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return
	}

	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	counterparty, err := counterpartyFromRequest(req.Counterparty)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	issueDate, err := time.Parse("2006-01-02", req.IssueDate)
	if err != nil {
		h.BadRequest(c, "Invalid issue date, expected YYYY-MM-DD")
		return
	}

	var dueDate *time.Time
	if req.DueDate != "" {
		parsed, err := time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			h.BadRequest(c, "Invalid due date, expected YYYY-MM-DD")
			return
		}
		dueDate = &parsed
	}

	var relatedID *uuid.UUID
	if req.RelatedInvoiceID != "" {
		parsed, err := uuid.Parse(req.RelatedInvoiceID)
		if err != nil {
			h.BadRequest(c, "Invalid related invoice ID format")
			return
		}
		relatedID = &parsed
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), billingapp.CreateInvoiceRequest{
		CompanyID:       companyID,
		VoucherTypeCode: req.VoucherTypeCode,
		Direction:       billing.InvoiceDirection(req.Direction),
		SalesPoint:      req.SalesPoint,
		VoucherNumber:   req.VoucherNumber,
		Counterparty:    counterparty,
		IssueDate:       issueDate,
		DueDate:         dueDate,
		Totals: billing.InvoiceTotals{
			Currency:         valueobject.Currency(req.Totals.Currency),
			Subtotal:         decimal.NewFromFloat(req.Totals.Subtotal),
			TotalTaxes:       decimal.NewFromFloat(req.Totals.TotalTaxes),
			TotalPerceptions: decimal.NewFromFloat(req.Totals.TotalPerceptions),
			TotalAmount:      decimal.NewFromFloat(req.Totals.TotalAmount),
		},
		RelatedInvoiceID: relatedID,
		CreatedBy:        userID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, invoice)
}

// Approve moves a pending invoice to approved
func (h *InvoiceHandler) Approve(c *gin.Context) {
	h.lifecycle(c, h.invoiceService.Approve)
}

// RejectApproval rejects a pending invoice
func (h *InvoiceHandler) RejectApproval(c *gin.Context) {
	h.lifecycle(c, h.invoiceService.RejectApproval)
}

// Issue marks an approved invoice as issued, opening its balance
func (h *InvoiceHandler) Issue(c *gin.Context) {
	h.lifecycle(c, h.invoiceService.Issue)
}

// Cancel voids an invoice that has no confirmed settlements
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	h.lifecycle(c, h.invoiceService.Cancel)
}

func (h *InvoiceHandler) lifecycle(c *gin.Context, op func(ctx context.Context, companyID, invoiceID uuid.UUID) (*billing.Invoice, error)) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	invoice, err := op(c.Request.Context(), companyID, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// GetBreakdown returns the adjusted balance breakdown for an invoice
func (h *InvoiceHandler) GetBreakdown(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	breakdown, err := h.invoiceService.GetBreakdown(c.Request.Context(), companyID, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, breakdown)
}

// GetResolvedState returns the single display state of an invoice
func (h *InvoiceHandler) GetResolvedState(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	state, err := h.invoiceService.GetResolvedState(c.Request.Context(), companyID, invoiceID, time.Now())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"invoice_id": invoiceID, "state": state})
}

// DueBucketQuery filters outstanding invoices by due-date bucket
type DueBucketQuery struct {
	Direction string `form:"direction" binding:"required,oneof=SALE PURCHASE"`
	Bucket    string `form:"bucket" binding:"required,oneof=CURRENT UPCOMING OVERDUE EXCLUDED"`
}

// ListByDueBucket lists outstanding invoices in one due-date bucket
func (h *InvoiceHandler) ListByDueBucket(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	var query DueBucketQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	invoices, err := h.invoiceService.ListByDueBucket(
		c.Request.Context(),
		companyID,
		billing.InvoiceDirection(query.Direction),
		billing.DueBucket(query.Bucket),
		time.Now(),
	)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoices)
}

// SummaryQuery selects the direction and currency of the dashboard summary
type SummaryQuery struct {
	Direction string `form:"direction" binding:"required,oneof=SALE PURCHASE"`
	Currency  string `form:"currency" binding:"required,len=3"`
}

// GetSummary returns per-currency dashboard totals for outstanding invoices
func (h *InvoiceHandler) GetSummary(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	var query SummaryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	summary, err := h.invoiceService.GetSummary(
		c.Request.Context(),
		companyID,
		billing.InvoiceDirection(query.Direction),
		valueobject.Currency(query.Currency),
		time.Now(),
	)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}

// RegisterRoutes registers invoice routes
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	{
		invoices.POST("", h.Create)
		invoices.GET("", h.ListByDueBucket)
		invoices.GET("/summary", h.GetSummary)
		invoices.GET("/:id/breakdown", h.GetBreakdown)
		invoices.GET("/:id/state", h.GetResolvedState)
		invoices.POST("/:id/approve", h.Approve)
		invoices.POST("/:id/reject", h.RejectApproval)
		invoices.POST("/:id/issue", h.Issue)
		invoices.POST("/:id/cancel", h.Cancel)
	}
}

func counterpartyFromRequest(req CounterpartyRequest) (billing.Counterparty, error) {
	if req.Kind == string(billing.CounterpartyPerson) {
		return billing.NewPerson(req.FirstName, req.LastName, req.TaxID)
	}
	return billing.NewOrganization(req.BusinessName, req.TaxID)
}
