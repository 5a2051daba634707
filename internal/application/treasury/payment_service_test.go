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

type paymentFixture struct {
	service   *PaymentService
	invoices  *fakeInvoiceRepo
	payments  *fakePaymentRepo
	agent     *fakeAgentConfig
	notifier  *recordingNotifier
	publisher *recordingPublisher
	companyID uuid.UUID
	invoice   *billing.Invoice
}

func newPaymentFixture(t *testing.T, total float64) *paymentFixture {
	t.Helper()
	companyID := uuid.New()
	invoices := newFakeInvoiceRepo()
	payments := newFakePaymentRepo()
	agent := &fakeAgentConfig{}
	notifier := &recordingNotifier{}
	publisher := &recordingPublisher{}

	invoice := issuedInvoiceFor(t, companyID, billing.DirectionPurchase, total)
	invoices.put(invoice)

	service := NewPaymentService(invoices, payments, agent, notifier)
	service.SetEventPublisher(publisher)

	return &paymentFixture{
		service:   service,
		invoices:  invoices,
		payments:  payments,
		agent:     agent,
		notifier:  notifier,
		publisher: publisher,
		companyID: companyID,
		invoice:   invoice,
	}
}

func (f *paymentFixture) registerRequest(amount float64) RegisterPaymentRequest {
	return RegisterPaymentRequest{
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

func TestPaymentService_Register(t *testing.T) {
	f := newPaymentFixture(t, 1000)

	payment, err := f.service.Register(context.Background(), f.registerRequest(1000))
	require.NoError(t, err)

	assert.Equal(t, treasury.PaymentStatusPending, payment.Status)
	assert.False(t, payment.FromNetwork)
	assert.Empty(t, payment.Retentions)
	assert.Contains(t, f.publisher.eventTypes(), treasury.EventTypePaymentDeclared)

	// pending payments settle nothing
	assert.Equal(t, billing.PaymentStatusPending, f.invoice.PaymentStatus)
}

func TestPaymentService_RegisterComputesRetentions(t *testing.T) {
	f := newPaymentFixture(t, 1000)
	f.agent.cfg = treasury.AgentConfig{
		IsRetentionAgent: true,
		Rules: []treasury.RetentionRule{{
			TaxCode:  "IIBB",
			Name:     "Ingresos Brutos",
			Rate:     decimal.NewFromFloat(0.02),
			BaseType: treasury.BaseGrossPayment,
		}},
	}

	payment, err := f.service.Register(context.Background(), f.registerRequest(1000))
	require.NoError(t, err)

	require.Len(t, payment.Retentions, 1)
	assert.True(t, payment.RetentionTotal.Equal(decimal.NewFromInt(20)))
	assert.True(t, payment.NetAmount.Equal(decimal.NewFromInt(980)))
}

func TestPaymentService_RegisterExceedsBalance(t *testing.T) {
	f := newPaymentFixture(t, 1000)

	_, err := f.service.Register(context.Background(), f.registerRequest(1200))
	assert.True(t, shared.IsCode(err, shared.CodeExceedsBalance))
	assert.Empty(t, f.payments.records)
}

func TestPaymentService_RegisterSaleInvoiceRejected(t *testing.T) {
	f := newPaymentFixture(t, 1000)
	sale := issuedInvoiceFor(t, f.companyID, billing.DirectionSale, 500)
	f.invoices.put(sale)

	req := f.registerRequest(100)
	req.InvoiceID = sale.ID

	_, err := f.service.Register(context.Background(), req)
	assert.True(t, shared.IsCode(err, shared.CodeInvalidState))
}

func TestPaymentService_RegisterInvoiceNotFound(t *testing.T) {
	f := newPaymentFixture(t, 1000)

	req := f.registerRequest(100)
	req.InvoiceID = uuid.New()

	_, err := f.service.Register(context.Background(), req)
	assert.True(t, shared.IsCode(err, shared.CodeNotFound))
}

// ============================================
// Network Declaration Tests
// ============================================

func TestPaymentService_DeclareFromNetwork(t *testing.T) {
	f := newPaymentFixture(t, 1000)
	f.agent.cfg = treasury.AgentConfig{
		IsRetentionAgent: true,
		Rules: []treasury.RetentionRule{{
			TaxCode:  "IIBB",
			Rate:     decimal.NewFromFloat(0.02),
			BaseType: treasury.BaseGrossPayment,
		}},
	}

	payment, err := f.service.DeclareFromNetwork(context.Background(), f.registerRequest(600))
	require.NoError(t, err)

	assert.Equal(t, treasury.PaymentStatusPending, payment.Status)
	assert.True(t, payment.FromNetwork)
	// network declarations never carry retentions
	assert.Empty(t, payment.Retentions)
	assert.Equal(t, 1, f.notifier.payments)
}

func TestPaymentService_DeclareFromNetworkSkipsBalanceCap(t *testing.T) {
	f := newPaymentFixture(t, 1000)

	payment, err := f.service.DeclareFromNetwork(context.Background(), f.registerRequest(1500))
	require.NoError(t, err)
	assert.Equal(t, treasury.PaymentStatusPending, payment.Status)
}

// ============================================
// Lifecycle Tests
// ============================================

func TestPaymentService_ConfirmSettlesInvoice(t *testing.T) {
	f := newPaymentFixture(t, 1000)

	payment, err := f.service.Register(context.Background(), f.registerRequest(1000))
	require.NoError(t, err)

	confirmed, err := f.service.Confirm(context.Background(), f.companyID, payment.ID, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, treasury.PaymentStatusConfirmed, confirmed.Status)
	assert.Equal(t, billing.PaymentStatusPaid, f.invoice.PaymentStatus)
	assert.Contains(t, f.publisher.eventTypes(), treasury.EventTypePaymentConfirmed)
	assert.Contains(t, f.publisher.eventTypes(), billing.EventTypeInvoiceSettled)
}

func TestPaymentService_ConfirmPartialKeepsInvoicePending(t *testing.T) {
	f := newPaymentFixture(t, 1000)

	payment, err := f.service.Register(context.Background(), f.registerRequest(400))
	require.NoError(t, err)

	_, err = f.service.Confirm(context.Background(), f.companyID, payment.ID, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, billing.PaymentStatusPending, f.invoice.PaymentStatus)
	assert.Nil(t, f.invoice.SettledAt)
}

func TestPaymentService_ConfirmRevalidatesNetAgainstBalance(t *testing.T) {
	f := newPaymentFixture(t, 1000)

	first, err := f.service.Register(context.Background(), f.registerRequest(700))
	require.NoError(t, err)
	second, err := f.service.Register(context.Background(), f.registerRequest(700))
	require.NoError(t, err)

	_, err = f.service.Confirm(context.Background(), f.companyID, first.ID, uuid.New())
	require.NoError(t, err)

	// the first confirmation shrank the balance below the second declaration
	_, err = f.service.Confirm(context.Background(), f.companyID, second.ID, uuid.New())
	assert.True(t, shared.IsCode(err, shared.CodeExceedsBalance))
	assert.Equal(t, treasury.PaymentStatusPending, second.Status)
}

func TestPaymentService_StartProcessing(t *testing.T) {
	f := newPaymentFixture(t, 1000)

	payment, err := f.service.Register(context.Background(), f.registerRequest(500))
	require.NoError(t, err)

	processing, err := f.service.StartProcessing(context.Background(), f.companyID, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, treasury.PaymentStatusInProcess, processing.Status)

	// in-process payments still settle nothing
	assert.Equal(t, billing.PaymentStatusPending, f.invoice.PaymentStatus)

	_, err = f.service.Confirm(context.Background(), f.companyID, payment.ID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, treasury.PaymentStatusConfirmed, payment.Status)
}

func TestPaymentService_Cancel(t *testing.T) {
	f := newPaymentFixture(t, 1000)

	payment, err := f.service.Register(context.Background(), f.registerRequest(500))
	require.NoError(t, err)

	cancelled, err := f.service.Cancel(context.Background(), f.companyID, payment.ID, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, treasury.PaymentStatusCancelled, cancelled.Status)
	assert.Contains(t, f.publisher.eventTypes(), treasury.EventTypePaymentCancelled)
}

func TestPaymentService_CancelConfirmedFails(t *testing.T) {
	f := newPaymentFixture(t, 1000)

	payment, err := f.service.Register(context.Background(), f.registerRequest(500))
	require.NoError(t, err)
	_, err = f.service.Confirm(context.Background(), f.companyID, payment.ID, uuid.New())
	require.NoError(t, err)

	_, err = f.service.Cancel(context.Background(), f.companyID, payment.ID, uuid.New())
	assert.True(t, shared.IsCode(err, shared.CodeInvalidTransition))
}

func TestPaymentService_RejectSelfDeclaredFails(t *testing.T) {
	f := newPaymentFixture(t, 1000)

	payment, err := f.service.Register(context.Background(), f.registerRequest(500))
	require.NoError(t, err)

	_, err = f.service.Reject(context.Background(), f.companyID, payment.ID, uuid.New(), "not ours")
	assert.True(t, shared.IsCode(err, shared.CodeInvalidState))
}

func TestPaymentService_RejectNetworkDeclared(t *testing.T) {
	f := newPaymentFixture(t, 1000)

	payment, err := f.service.DeclareFromNetwork(context.Background(), f.registerRequest(500))
	require.NoError(t, err)

	rejected, err := f.service.Reject(context.Background(), f.companyID, payment.ID, uuid.New(), "never received")
	require.NoError(t, err)

	assert.Equal(t, treasury.PaymentStatusRejected, rejected.Status)
	assert.Equal(t, billing.PaymentStatusPending, f.invoice.PaymentStatus)
}

func TestPaymentService_NotFound(t *testing.T) {
	f := newPaymentFixture(t, 1000)

	_, err := f.service.Confirm(context.Background(), f.companyID, uuid.New(), uuid.New())
	assert.True(t, shared.IsCode(err, shared.CodeNotFound))
}

func TestPaymentService_ListByInvoice(t *testing.T) {
	f := newPaymentFixture(t, 1000)

	_, err := f.service.Register(context.Background(), f.registerRequest(200))
	require.NoError(t, err)
	_, err = f.service.Register(context.Background(), f.registerRequest(300))
	require.NoError(t, err)

	records, err := f.service.ListByInvoice(context.Background(), f.companyID, f.invoice.ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
