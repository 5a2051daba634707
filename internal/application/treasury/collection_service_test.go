package treasury

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturacion/backend/internal/domain/billing"
	"github.com/facturacion/backend/internal/domain/shared"
	"github.com/facturacion/backend/internal/domain/shared/valueobject"
	"github.com/facturacion/backend/internal/domain/treasury"
)

type collectionFixture struct {
	service     *CollectionService
	invoices    *fakeInvoiceRepo
	collections *fakeCollectionRepo
	notifier    *recordingNotifier
	publisher   *recordingPublisher
	companyID   uuid.UUID
	invoice     *billing.Invoice
}

func newCollectionFixture(t *testing.T, total float64) *collectionFixture {
	t.Helper()
	companyID := uuid.New()
	invoices := newFakeInvoiceRepo()
	collections := newFakeCollectionRepo()
	notifier := &recordingNotifier{}
	publisher := &recordingPublisher{}

	invoice := issuedInvoiceFor(t, companyID, billing.DirectionSale, total)
	invoices.put(invoice)

	service := NewCollectionService(invoices, collections, notifier)
	service.SetEventPublisher(publisher)

	return &collectionFixture{
		service:     service,
		invoices:    invoices,
		collections: collections,
		notifier:    notifier,
		publisher:   publisher,
		companyID:   companyID,
		invoice:     invoice,
	}
}

func (f *collectionFixture) registerRequest(amount float64) RegisterCollectionRequest {
	return RegisterCollectionRequest{
		CompanyID:    f.companyID,
		InvoiceID:    f.invoice.ID,
		Amount:       valueobject.NewMoneyARSFromFloat(amount),
		MovementDate: time.Now(),
		Method:       treasury.MethodTransfer,
		DeclaredBy:   uuid.New(),
	}
}

// ============================================
// Register Tests
// ============================================

func TestCollectionService_RegisterFullAmount(t *testing.T) {
	f := newCollectionFixture(t, 1000)

	collection, err := f.service.Register(context.Background(), f.registerRequest(1000))
	require.NoError(t, err)

	assert.Equal(t, treasury.CollectionStatusConfirmed, collection.Status)
	assert.Equal(t, billing.PaymentStatusCollected, f.invoice.PaymentStatus)
	assert.Contains(t, f.publisher.eventTypes(), treasury.EventTypeCollectionConfirmed)
	assert.Contains(t, f.publisher.eventTypes(), billing.EventTypeInvoiceSettled)
}

func TestCollectionService_RegisterPartialAmount(t *testing.T) {
	f := newCollectionFixture(t, 1000)

	_, err := f.service.Register(context.Background(), f.registerRequest(400))
	require.NoError(t, err)

	assert.Equal(t, billing.PaymentStatusPending, f.invoice.PaymentStatus)
	assert.Nil(t, f.invoice.SettledAt)
	assert.Equal(t, 1, f.invoices.lockSaves)
}

func TestCollectionService_RegisterExceedsBalance(t *testing.T) {
	f := newCollectionFixture(t, 1000)

	_, err := f.service.Register(context.Background(), f.registerRequest(1500))
	assert.True(t, shared.IsCode(err, shared.CodeExceedsBalance))
	assert.Empty(t, f.collections.records)
}

func TestCollectionService_RegisterCurrencyMismatch(t *testing.T) {
	f := newCollectionFixture(t, 1000)

	req := f.registerRequest(100)
	usd, err := valueobject.NewMoney(decimal.NewFromInt(100), valueobject.USD)
	require.NoError(t, err)
	req.Amount = usd

	_, err = f.service.Register(context.Background(), req)
	assert.True(t, shared.IsCode(err, shared.CodeCurrencyMismatch))
}

func TestCollectionService_RegisterInvoiceNotFound(t *testing.T) {
	f := newCollectionFixture(t, 1000)

	req := f.registerRequest(100)
	req.InvoiceID = uuid.New()

	_, err := f.service.Register(context.Background(), req)
	assert.True(t, shared.IsCode(err, shared.CodeNotFound))
}

func TestCollectionService_RegisterPurchaseInvoiceRejected(t *testing.T) {
	f := newCollectionFixture(t, 1000)
	purchase := issuedInvoiceFor(t, f.companyID, billing.DirectionPurchase, 500)
	f.invoices.put(purchase)

	req := f.registerRequest(100)
	req.InvoiceID = purchase.ID

	_, err := f.service.Register(context.Background(), req)
	assert.True(t, shared.IsCode(err, shared.CodeInvalidState))
}

func TestCollectionService_RegisterSettledInvoiceRejected(t *testing.T) {
	f := newCollectionFixture(t, 1000)
	require.NoError(t, f.invoice.MarkSettled())

	_, err := f.service.Register(context.Background(), f.registerRequest(100))
	assert.True(t, shared.IsCode(err, shared.CodeInvalidState))
}

func TestCollectionService_RegisterStaleBalancePassedThrough(t *testing.T) {
	f := newCollectionFixture(t, 1000)
	f.invoices.saveLockErr = shared.ErrStaleBalance

	_, err := f.service.Register(context.Background(), f.registerRequest(1000))
	assert.True(t, shared.IsCode(err, shared.CodeStaleBalance))
}

// ============================================
// Network Declaration Tests
// ============================================

func TestCollectionService_DeclareFromNetwork(t *testing.T) {
	f := newCollectionFixture(t, 1000)

	collection, err := f.service.DeclareFromNetwork(context.Background(), f.registerRequest(600))
	require.NoError(t, err)

	assert.Equal(t, treasury.CollectionStatusPendingConfirmation, collection.Status)
	assert.True(t, collection.FromNetwork)
	assert.Equal(t, 1, f.notifier.collections)
	assert.Contains(t, f.publisher.eventTypes(), treasury.EventTypeCollectionDeclared)

	// the invoice is untouched until the owner confirms
	assert.Equal(t, billing.PaymentStatusPending, f.invoice.PaymentStatus)
	assert.Equal(t, 0, f.invoices.lockSaves)
}

func TestCollectionService_DeclareFromNetworkSkipsBalanceCap(t *testing.T) {
	f := newCollectionFixture(t, 1000)

	// a pending declaration above the balance is accepted and resolved at
	// confirmation time
	collection, err := f.service.DeclareFromNetwork(context.Background(), f.registerRequest(1500))
	require.NoError(t, err)
	assert.Equal(t, treasury.CollectionStatusPendingConfirmation, collection.Status)
}

func TestCollectionService_Confirm(t *testing.T) {
	f := newCollectionFixture(t, 1000)

	collection, err := f.service.DeclareFromNetwork(context.Background(), f.registerRequest(1000))
	require.NoError(t, err)

	confirmed, err := f.service.Confirm(context.Background(), f.companyID, collection.ID, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, treasury.CollectionStatusConfirmed, confirmed.Status)
	assert.Equal(t, billing.PaymentStatusCollected, f.invoice.PaymentStatus)
}

func TestCollectionService_ConfirmRevalidatesBalance(t *testing.T) {
	f := newCollectionFixture(t, 1000)

	collection, err := f.service.DeclareFromNetwork(context.Background(), f.registerRequest(1500))
	require.NoError(t, err)

	// declared above the balance: the cap bites at confirmation
	_, err = f.service.Confirm(context.Background(), f.companyID, collection.ID, uuid.New())
	assert.True(t, shared.IsCode(err, shared.CodeExceedsBalance))
	assert.Equal(t, treasury.CollectionStatusPendingConfirmation, collection.Status)
}

func TestCollectionService_ConfirmNotFound(t *testing.T) {
	f := newCollectionFixture(t, 1000)

	_, err := f.service.Confirm(context.Background(), f.companyID, uuid.New(), uuid.New())
	assert.True(t, shared.IsCode(err, shared.CodeNotFound))
}

func TestCollectionService_Reject(t *testing.T) {
	f := newCollectionFixture(t, 1000)

	collection, err := f.service.DeclareFromNetwork(context.Background(), f.registerRequest(600))
	require.NoError(t, err)

	rejected, err := f.service.Reject(context.Background(), f.companyID, collection.ID, uuid.New(), "duplicate declaration")
	require.NoError(t, err)

	assert.Equal(t, treasury.CollectionStatusRejected, rejected.Status)
	assert.Equal(t, billing.PaymentStatusPending, f.invoice.PaymentStatus)
	assert.Contains(t, f.publisher.eventTypes(), treasury.EventTypeCollectionRejected)
}

func TestCollectionService_RejectAlreadyConfirmed(t *testing.T) {
	f := newCollectionFixture(t, 1000)

	collection, err := f.service.DeclareFromNetwork(context.Background(), f.registerRequest(500))
	require.NoError(t, err)
	_, err = f.service.Confirm(context.Background(), f.companyID, collection.ID, uuid.New())
	require.NoError(t, err)

	_, err = f.service.Reject(context.Background(), f.companyID, collection.ID, uuid.New(), "changed my mind")
	assert.True(t, shared.IsCode(err, shared.CodeInvalidTransition))
}

func TestCollectionService_ListByInvoice(t *testing.T) {
	f := newCollectionFixture(t, 1000)

	_, err := f.service.DeclareFromNetwork(context.Background(), f.registerRequest(200))
	require.NoError(t, err)
	_, err = f.service.DeclareFromNetwork(context.Background(), f.registerRequest(300))
	require.NoError(t, err)

	records, err := f.service.ListByInvoice(context.Background(), f.companyID, f.invoice.ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
