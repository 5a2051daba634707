package notification

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/facturacion/backend/internal/domain/treasury"
	"github.com/facturacion/backend/internal/infrastructure/logger"
)

// LogNotifier records network declarations in the application log. It stands
// in for a real delivery channel (email, push, webhook) until one exists.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: log}
}

// request-scoped logger when available, service logger otherwise
func (n *LogNotifier) log(ctx context.Context) *zap.Logger {
	if _, ok := ctx.Value(logger.LoggerKey).(*zap.Logger); ok {
		return logger.FromContext(ctx)
	}
	return n.logger
}

func (n *LogNotifier) CollectionDeclared(ctx context.Context, ownerCompanyID uuid.UUID, collection *treasury.Collection) {
	n.log(ctx).Info("collection declared through network",
		zap.String("owner_company_id", ownerCompanyID.String()),
		zap.String("collection_id", collection.ID.String()),
		zap.String("invoice_id", collection.InvoiceID.String()),
		zap.String("declaring_company_id", collection.CompanyID.String()),
		zap.String("amount", collection.Amount.String()),
		zap.String("currency", string(collection.Currency)),
	)
}

func (n *LogNotifier) PaymentDeclared(ctx context.Context, ownerCompanyID uuid.UUID, payment *treasury.Payment) {
	n.log(ctx).Info("payment declared through network",
		zap.String("owner_company_id", ownerCompanyID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("invoice_id", payment.InvoiceID.String()),
		zap.String("declaring_company_id", payment.CompanyID.String()),
		zap.String("amount", payment.Amount.String()),
		zap.String("currency", string(payment.Currency)),
	)
}
