package treasury

import (
	"context"

	"github.com/facturacion/backend/internal/domain/treasury"
	"github.com/google/uuid"
)

// Notifier tells the balance-owning company that a counterparty declared a
// settlement through the network and is waiting for confirmation. Delivery
// failures must not fail the declaration; implementations log and move on.
type Notifier interface {
	CollectionDeclared(ctx context.Context, ownerCompanyID uuid.UUID, collection *treasury.Collection)
	PaymentDeclared(ctx context.Context, ownerCompanyID uuid.UUID, payment *treasury.Payment)
}

// NopNotifier discards all notifications
type NopNotifier struct{}

func (NopNotifier) CollectionDeclared(context.Context, uuid.UUID, *treasury.Collection) {}
func (NopNotifier) PaymentDeclared(context.Context, uuid.UUID, *treasury.Payment)       {}
