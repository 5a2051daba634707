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

// CollectionHandler handles collection-related API endpoints
type CollectionHandler struct {
	BaseHandler
	collectionService *treasuryapp.CollectionService
}

// NewCollectionHandler creates a new CollectionHandler
func NewCollectionHandler(collectionService *treasuryapp.CollectionService) *CollectionHandler {
	return &CollectionHandler{
		collectionService: collectionService,
	}
}

// RegisterCollectionRequest represents a request to declare money received
// against a sale invoice
type RegisterCollectionRequest struct {
	InvoiceID       string  `json:"invoice_id" binding:"required,uuid"`
	Amount          float64 `json:"amount" binding:"required,gt=0"`
	Currency        string  `json:"currency" binding:"required,len=3"`
	MovementDate    string  `json:"movement_date" binding:"required"`
	Method          string  `json:"method" binding:"required,oneof=TRANSFER CHECK CASH CARD OTHER"`
	ReferenceNumber string  `json:"reference_number" binding:"max=100"`
	AttachmentRef   string  `json:"attachment_ref" binding:"max=500"`
	Notes           string  `json:"notes" binding:"max=500"`
}

// RejectCollectionRequest carries the reason for rejecting a declared collection
type RejectCollectionRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// Register declares a collection by the invoice owner. The record is
// confirmed immediately and settles the invoice balance.
func (h *CollectionHandler) Register(c *gin.Context) {
	req, ok := h.bindRegister(c)
	if !ok {
		return
	}

	collection, err := h.collectionService.Register(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, collection)
}

// DeclareFromNetwork records a counterparty's claim that it paid this
// invoice. The record stays pending until the owner confirms or rejects it.
func (h *CollectionHandler) DeclareFromNetwork(c *gin.Context) {
	req, ok := h.bindRegister(c)
	if !ok {
		return
	}

	collection, err := h.collectionService.DeclareFromNetwork(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, collection)
}

// Confirm accepts a pending network-declared collection
func (h *CollectionHandler) Confirm(c *gin.Context) {
	companyID, collectionID, userID, ok := h.bindTransition(c)
	if !ok {
		return
	}

	collection, err := h.collectionService.Confirm(c.Request.Context(), companyID, collectionID, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, collection)
}

// Reject declines a pending network-declared collection
func (h *CollectionHandler) Reject(c *gin.Context) {
	companyID, collectionID, userID, ok := h.bindTransition(c)
	if !ok {
		return
	}

	var req RejectCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	collection, err := h.collectionService.Reject(c.Request.Context(), companyID, collectionID, userID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, collection)
}

// ListByInvoice lists all collections declared against one invoice
func (h *CollectionHandler) ListByInvoice(c *gin.Context) {
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

	collections, err := h.collectionService.ListByInvoice(c.Request.Context(), companyID, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, collections)
}

// RegisterRoutes registers collection routes
func (h *CollectionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	collections := rg.Group("/collections")
	{
		collections.POST("", h.Register)
		collections.POST("/network", h.DeclareFromNetwork)
		collections.POST("/:id/confirm", h.Confirm)
		collections.POST("/:id/reject", h.Reject)
	}

	rg.GET("/invoices/:id/collections", h.ListByInvoice)
}

func (h *CollectionHandler) bindRegister(c *gin.Context) (treasuryapp.RegisterCollectionRequest, bool) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return treasuryapp.RegisterCollectionRequest{}, false
	}

	userID, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, "Invalid user ID")
		return treasuryapp.RegisterCollectionRequest{}, false
	}

	var req RegisterCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return treasuryapp.RegisterCollectionRequest{}, false
	}

	invoiceID, err := uuid.Parse(req.InvoiceID)
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return treasuryapp.RegisterCollectionRequest{}, false
	}

	movementDate, err := time.Parse("2006-01-02", req.MovementDate)
	if err != nil {
		h.BadRequest(c, "Invalid movement date, expected YYYY-MM-DD")
		return treasuryapp.RegisterCollectionRequest{}, false
	}

	amount, err := valueobject.NewMoney(decimal.NewFromFloat(req.Amount), valueobject.Currency(req.Currency))
	if err != nil {
		h.HandleError(c, err)
		return treasuryapp.RegisterCollectionRequest{}, false
	}

	return treasuryapp.RegisterCollectionRequest{
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
