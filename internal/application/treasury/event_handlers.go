package treasury

import (
	"context"

	"github.com/facturacion/backend/internal/domain/billing"
	"github.com/facturacion/backend/internal/domain/shared"
	"github.com/facturacion/backend/internal/domain/treasury"
	"go.uber.org/zap"
)

// SettlementAuditHandler writes an audit trail for every settlement-affecting
// event. Money movements against fiscal documents need a reconstructible
// history even when the HTTP access log rotates away.
type SettlementAuditHandler struct {
	logger *zap.Logger
}

// NewSettlementAuditHandler creates a new SettlementAuditHandler
func NewSettlementAuditHandler(logger *zap.Logger) *SettlementAuditHandler {
	return &SettlementAuditHandler{logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *SettlementAuditHandler) EventTypes() []string {
	return []string{
		treasury.EventTypeCollectionDeclared,
		treasury.EventTypeCollectionConfirmed,
		treasury.EventTypeCollectionRejected,
		treasury.EventTypePaymentDeclared,
		treasury.EventTypePaymentConfirmed,
		treasury.EventTypePaymentCancelled,
		treasury.EventTypePaymentRejected,
		billing.EventTypeInvoiceSettled,
		billing.EventTypeInvoiceCancelled,
	}
}

// Handle logs the event with its aggregate coordinates
func (h *SettlementAuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.logger.Info("settlement event",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.String("company_id", event.CompanyID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	)
	return nil
}

var _ shared.EventHandler = (*SettlementAuditHandler)(nil)
