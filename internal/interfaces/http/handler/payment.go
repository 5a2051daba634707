package handler

import (
	"time"

	treasuryapp "github.com/facturacion/backend/internal/application/treasury"
	"github.com/facturacion/backend/internal/domain/shared/valueobject"
	"github.com/facturacion/backend/internal/domain/treasury"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentHandler handles payment-related API endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService *treasuryapp.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *treasuryapp.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// RegisterPaymentRequest represents a request to declare money sent
// against a purchase invoice. Amount is the gross figure; retention
// lines are computed server-side from the company's agent configuration.
type RegisterPaymentRequest struct {
	InvoiceID       string  `json:"invoice_id" binding:"required,uuid"`
	Amount          float64 `json:"amount" binding:"required,gt=0"`
	Currency        string  `json:"currency" binding:"required,len=3"`
	MovementDate    string  `json:"movement_date" binding:"required"`
	Method          string  `json:"method" binding:"required,oneof=TRANSFER CHECK CASH CARD OTHER"`
	ReferenceNumber string  `json:"reference_number" binding:"max=100"`
	AttachmentRef   string  `json:"attachment_ref" binding:"max=500"`
	Notes           string  `json:"notes" binding:"max=500"`
}

// RejectPaymentRequest carries the reason for rejecting a declared payment
type RejectPaymentRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// Register declares a payment by the paying company
func (h *PaymentHandler) Register(c *gin.Context) {
	req, ok := h.bindRegister(c)
	if !ok {
		return
	}

	payment, err := h.paymentService.Register(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, payment)
}

// DeclareFromNetwork records a supplier's claim that this invoice was paid
func (h *PaymentHandler) DeclareFromNetwork(c *gin.Context) {
	req, ok := h.bindRegister(c)
	if !ok {
		return
	}

	payment, err := h.paymentService.DeclareFromNetwork(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, payment)
}

// StartProcessing moves a pending payment into in-process
func (h *PaymentHandler) StartProcessing(c *gin.Context) {
	companyID, paymentID, _, ok := h.bindTransition(c)
	if !ok {
		return
	}

	payment, err := h.paymentService.StartProcessing(c.Request.Context(), companyID, paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payment)
}

// Confirm settles the invoice balance with the payment's net amount
func (h *PaymentHandler) Confirm(c *gin.Context) {
	companyID, paymentID, userID, ok := h.bindTransition(c)
	if !ok {
		return
	}

	payment, err := h.paymentService.Confirm(c.Request.Context(), companyID, paymentID, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payment)
}

// Cancel withdraws a payment that has not been confirmed
func (h *PaymentHandler) Cancel(c *gin.Context) {
	companyID, paymentID, userID, ok := h.bindTransition(c)
	if !ok {
		return
	}

	payment, err := h.paymentService.Cancel(c.Request.Context(), companyID, paymentID, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payment)
}

// Reject declines a network-declared payment
func (h *PaymentHandler) Reject(c *gin.Context) {
	companyID, paymentID, userID, ok := h.bindTransition(c)
	if !ok {
		return
	}

	var req RejectPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	payment, err := h.paymentService.Reject(c.Request.Context(), companyID, paymentID, userID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payment)
}

// ListByInvoice lists all payments declared against one invoice
func (h *PaymentHandler) ListByInvoice(c *gin.Context) {
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

	payments, err := h.paymentService.ListByInvoice(c.Request.Context(), companyID, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payments)
}

// RegisterRoutes registers payment routes
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	payments := rg.Group("/payments")
	{
		payments.POST("", h.Register)
		payments.POST("/network", h.DeclareFromNetwork)
		payments.POST("/:id/process", h.StartProcessing)
		payments.POST("/:id/confirm", h.Confirm)
		payments.POST("/:id/cancel", h.Cancel)
		payments.POST("/:id/reject", h.Reject)
	}

	rg.GET("/invoices/:id/payments", h.ListByInvoice)
}

func (h *PaymentHandler) bindRegister(c *gin.Context) (treasuryapp.RegisterPaymentRequest, bool) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return treasuryapp.RegisterPaymentRequest{}, false
	}

	userID, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return treasuryapp.RegisterPaymentRequest{}, false
	}

	var req RegisterPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return treasuryapp.RegisterPaymentRequest{}, false
	}

	invoiceID, err := uuid.Parse(req.InvoiceID)
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return treasuryapp.RegisterPaymentRequest{}, false
	}

	movementDate, err := time.Parse("2006-01-02", req.MovementDate)
	if err != nil {
		h.BadRequest(c, "Invalid movement date, expected YYYY-MM-DD")
		return treasuryapp.RegisterPaymentRequest{}, false
	}

	amount, err := valueobject.NewMoney(decimal.NewFromFloat(req.Amount), valueobject.Currency(req.Currency))
	if err != nil {
		h.HandleError(c, err)
		return treasuryapp.RegisterPaymentRequest{}, false
	}

	return treasuryapp.RegisterPaymentRequest{
		CompanyID:       companyID,
		InvoiceID:       invoiceID,
		Amount:          amount,
		MovementDate:    movementDate,
		Method:          treasury.SettlementMethod(req.Method),
		ReferenceNumber: req.ReferenceNumber,
		AttachmentRef:   req.AttachmentRef,
		Notes:           req.Notes,
		DeclaredBy:      userID,
	}, true
}
