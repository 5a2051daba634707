package billing

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

// ============================================
// In-Memory Fakes
// ============================================

type stubInvoiceRepo struct {
	invoices    map[uuid.UUID]*billing.Invoice
	notes       map[uuid.UUID][]billing.Invoice
	takenNumber bool
	saveLockErr error
}

func newStubInvoiceRepo() *stubInvoiceRepo {
	return &stubInvoiceRepo{
		invoices: make(map[uuid.UUID]*billing.Invoice),
		notes:    make(map[uuid.UUID][]billing.Invoice),
	}
}

func (r *stubInvoiceRepo) put(inv *billing.Invoice) {
	r.invoices[inv.ID] = inv
}

func (r *stubInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Invoice, error) {
	return r.invoices[id], nil
}

func (r *stubInvoiceRepo) FindByIDForCompany(_ context.Context, companyID, id uuid.UUID) (*billing.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok || inv.CompanyID != companyID {
		return nil, nil
	}
	return inv, nil
}

func (r *stubInvoiceRepo) FindByNumber(context.Context, uuid.UUID, string, int, int64) (*billing.Invoice, error) {
	return nil, nil
}

func (r *stubInvoiceRepo) FindAdjustmentNotes(_ context.Context, _, relatedInvoiceID uuid.UUID) ([]billing.Invoice, error) {
	return r.notes[relatedInvoiceID], nil
}

func (r *stubInvoiceRepo) FindAllForCompany(context.Context, uuid.UUID, billing.InvoiceFilter) ([]billing.Invoice, error) {
	return nil, nil
}

func (r *stubInvoiceRepo) FindOutstanding(_ context.Context, companyID uuid.UUID, direction billing.InvoiceDirection) ([]billing.Invoice, error) {
	var out []billing.Invoice
	for _, inv := range r.invoices {
		if inv.CompanyID != companyID || inv.Direction != direction {
			continue
		}
		if inv.Status != billing.StatusIssued || inv.PaymentStatus.IsSettledOrCancelled() || inv.IsAdjustmentNote() {
			continue
		}
		out = append(out, *inv)
	}
	return out, nil
}

func (r *stubInvoiceRepo) Save(_ context.Context, inv *billing.Invoice) error {
	r.invoices[inv.ID] = inv
	return nil
}

func (r *stubInvoiceRepo) SaveWithLock(_ context.Context, inv *billing.Invoice) error {
	if r.saveLockErr != nil {
		return r.saveLockErr
	}
	r.invoices[inv.ID] = inv
	return nil
}

func (r *stubInvoiceRepo) CountForCompany(context.Context, uuid.UUID, billing.InvoiceFilter) (int64, error) {
	return 0, nil
}

func (r *stubInvoiceRepo) ExistsByNumber(context.Context, uuid.UUID, string, int, int64) (bool, error) {
	return r.takenNumber, nil
}

type stubCollectionRepo struct {
	treasury.CollectionRepository
	confirmedSum decimal.Decimal
}

func (r *stubCollectionRepo) SumConfirmedByInvoice(context.Context, uuid.UUID, uuid.UUID) (decimal.Decimal, error) {
	return r.confirmedSum, nil
}

type stubPaymentRepo struct {
	treasury.PaymentRepository
	confirmedNet decimal.Decimal
}

func (r *stubPaymentRepo) SumConfirmedNetByInvoice(context.Context, uuid.UUID, uuid.UUID) (decimal.Decimal, error) {
	return r.confirmedNet, nil
}

type capturingPublisher struct {
	events []shared.DomainEvent
}

func (p *capturingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func (p *capturingPublisher) eventTypes() []string {
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.EventType())
	}
	return types
}

// ============================================
// Fixture
// ============================================

type invoiceFixture struct {
	service     *InvoiceService
	invoices    *stubInvoiceRepo
	collections *stubCollectionRepo
	payments    *stubPaymentRepo
	publisher   *capturingPublisher
	companyID   uuid.UUID
}

func newInvoiceFixture(t *testing.T) *invoiceFixture {
	t.Helper()
	invoices := newStubInvoiceRepo()
	collections := &stubCollectionRepo{}
	payments := &stubPaymentRepo{}
	publisher := &capturingPublisher{}

	service := NewInvoiceService(invoices, collections, payments)
	service.SetEventPublisher(publisher)

	return &invoiceFixture{
		service:     service,
		invoices:    invoices,
		collections: collections,
		payments:    payments,
		publisher:   publisher,
		companyID:   uuid.New(),
	}
}

func (f *invoiceFixture) createRequest(t *testing.T, total float64) CreateInvoiceRequest {
	t.Helper()
	cp, err := billing.NewOrganization("Distribuidora Norte SA", "30-33333333-4")
	require.NoError(t, err)

	amount := decimal.NewFromFloat(total)
	due := time.Now().AddDate(0, 0, 15)
	return CreateInvoiceRequest{
		CompanyID:       f.companyID,
		VoucherTypeCode: "FC_A",
		Direction:       billing.DirectionSale,
		SalesPoint:      1,
		VoucherNumber:   501,
		Counterparty:    cp,
		IssueDate:       time.Now(),
		DueDate:         &due,
		Totals: billing.InvoiceTotals{
			Currency:    valueobject.ARS,
			Subtotal:    amount,
			TotalAmount: amount,
		},
		CreatedBy: uuid.New(),
	}
}

func (f *invoiceFixture) createIssued(t *testing.T, total float64) *billing.Invoice {
	t.Helper()
	inv, err := f.service.CreateInvoice(context.Background(), f.createRequest(t, total))
	require.NoError(t, err)
	issued, err := f.service.Issue(context.Background(), f.companyID, inv.ID)
	require.NoError(t, err)
	return issued
}

// ============================================
// CreateInvoice Tests
// ============================================

func TestInvoiceService_CreateInvoice(t *testing.T) {
	f := newInvoiceFixture(t)

	inv, err := f.service.CreateInvoice(context.Background(), f.createRequest(t, 1000))
	require.NoError(t, err)

	assert.Equal(t, billing.StatusPendingApproval, inv.Status)
	assert.Equal(t, "0001-00000501", inv.FormattedNumber())
	assert.Contains(t, f.publisher.eventTypes(), billing.EventTypeInvoiceCreated)
}

func TestInvoiceService_CreateInvoice_DuplicateNumber(t *testing.T) {
	f := newInvoiceFixture(t)
	f.invoices.takenNumber = true

	_, err := f.service.CreateInvoice(context.Background(), f.createRequest(t, 1000))
	assert.True(t, shared.IsCode(err, shared.CodeAlreadyExists))
}

func TestInvoiceService_CreateNote(t *testing.T) {
	f := newInvoiceFixture(t)
	parent := f.createIssued(t, 1000)

	req := f.createRequest(t, 200)
	req.VoucherTypeCode = "NC_A"
	req.VoucherNumber = 502
	req.RelatedInvoiceID = &parent.ID

	note, err := f.service.CreateInvoice(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, note.IsAdjustmentNote())
}

func TestInvoiceService_CreateNote_ParentNotFound(t *testing.T) {
	f := newInvoiceFixture(t)

	missing := uuid.New()
	req := f.createRequest(t, 200)
	req.VoucherTypeCode = "NC_A"
	req.RelatedInvoiceID = &missing

	_, err := f.service.CreateInvoice(context.Background(), req)
	assert.True(t, shared.IsCode(err, shared.CodeNotFound))
}

func TestInvoiceService_CreateNote_CurrencyMismatch(t *testing.T) {
	f := newInvoiceFixture(t)
	parent := f.createIssued(t, 1000)

	req := f.createRequest(t, 200)
	req.VoucherTypeCode = "NC_A"
	req.RelatedInvoiceID = &parent.ID
	req.Totals.Currency = valueobject.USD

	_, err := f.service.CreateInvoice(context.Background(), req)
	assert.True(t, shared.IsCode(err, shared.CodeCurrencyMismatch))
}

// ============================================
// Lifecycle Tests
// ============================================

func TestInvoiceService_ApproveThenIssue(t *testing.T) {
	f := newInvoiceFixture(t)

	inv, err := f.service.CreateInvoice(context.Background(), f.createRequest(t, 1000))
	require.NoError(t, err)

	approved, err := f.service.Approve(context.Background(), f.companyID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusApproved, approved.Status)

	issued, err := f.service.Issue(context.Background(), f.companyID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusIssued, issued.Status)
	assert.Contains(t, f.publisher.eventTypes(), billing.EventTypeInvoiceIssued)
}

func TestInvoiceService_RejectApproval(t *testing.T) {
	f := newInvoiceFixture(t)

	inv, err := f.service.CreateInvoice(context.Background(), f.createRequest(t, 1000))
	require.NoError(t, err)

	rejected, err := f.service.RejectApproval(context.Background(), f.companyID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusRejected, rejected.Status)

	_, err = f.service.Issue(context.Background(), f.companyID, inv.ID)
	assert.True(t, shared.IsCode(err, shared.CodeInvalidState))
}

func TestInvoiceService_LifecycleNotFound(t *testing.T) {
	f := newInvoiceFixture(t)

	_, err := f.service.Approve(context.Background(), f.companyID, uuid.New())
	assert.True(t, shared.IsCode(err, shared.CodeNotFound))
}

func TestInvoiceService_LifecycleStaleBalance(t *testing.T) {
	f := newInvoiceFixture(t)

	inv, err := f.service.CreateInvoice(context.Background(), f.createRequest(t, 1000))
	require.NoError(t, err)

	f.invoices.saveLockErr = shared.ErrStaleBalance
	_, err = f.service.Approve(context.Background(), f.companyID, inv.ID)
	assert.True(t, shared.IsCode(err, shared.CodeStaleBalance))
}

func TestInvoiceService_Cancel(t *testing.T) {
	f := newInvoiceFixture(t)
	inv := f.createIssued(t, 1000)

	cancelled, err := f.service.Cancel(context.Background(), f.companyID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusCancelled, cancelled.Status)
}

func TestInvoiceService_CancelWithSettlementsFails(t *testing.T) {
	f := newInvoiceFixture(t)
	inv := f.createIssued(t, 1000)
	f.collections.confirmedSum = decimal.NewFromInt(300)

	_, err := f.service.Cancel(context.Background(), f.companyID, inv.ID)
	assert.True(t, shared.IsCode(err, shared.CodeInvalidState))
	assert.Equal(t, billing.StatusIssued, inv.Status)
}

// ============================================
// Breakdown and Summary Tests
// ============================================

func TestInvoiceService_GetBreakdown(t *testing.T) {
	f := newInvoiceFixture(t)
	inv := f.createIssued(t, 1000)

	req := f.createRequest(t, 200)
	req.VoucherTypeCode = "NC_A"
	req.VoucherNumber = 502
	req.RelatedInvoiceID = &inv.ID
	note, err := f.service.CreateInvoice(context.Background(), req)
	require.NoError(t, err)
	_, err = f.service.Issue(context.Background(), f.companyID, note.ID)
	require.NoError(t, err)
	f.invoices.notes[inv.ID] = []billing.Invoice{*note}

	f.collections.confirmedSum = decimal.NewFromInt(300)

	breakdown, err := f.service.GetBreakdown(context.Background(), f.companyID, inv.ID)
	require.NoError(t, err)

	assert.True(t, breakdown.TotalCreditNotes.Equal(decimal.NewFromInt(200)))
	assert.True(t, breakdown.TotalSettled.Equal(decimal.NewFromInt(300)))
	assert.True(t, breakdown.BalancePending.Equal(decimal.NewFromInt(500)))
}

func TestInvoiceService_ListByDueBucket(t *testing.T) {
	f := newInvoiceFixture(t)

	overdue := f.createRequest(t, 800)
	past := time.Now().AddDate(0, 0, -10)
	overdue.DueDate = &past
	inv, err := f.service.CreateInvoice(context.Background(), overdue)
	require.NoError(t, err)
	_, err = f.service.Issue(context.Background(), f.companyID, inv.ID)
	require.NoError(t, err)

	upcoming := f.createRequest(t, 500)
	upcoming.VoucherNumber = 502
	inv2, err := f.service.CreateInvoice(context.Background(), upcoming)
	require.NoError(t, err)
	_, err = f.service.Issue(context.Background(), f.companyID, inv2.ID)
	require.NoError(t, err)

	matched, err := f.service.ListByDueBucket(
		context.Background(), f.companyID, billing.DirectionSale, billing.BucketOverdue, time.Now())
	require.NoError(t, err)

	require.Len(t, matched, 1)
	assert.Equal(t, inv.ID, matched[0].ID)
}

func TestInvoiceService_GetSummary(t *testing.T) {
	f := newInvoiceFixture(t)
	f.createIssued(t, 1000)

	second := f.createRequest(t, 500)
	second.VoucherNumber = 502
	past := time.Now().AddDate(0, 0, -5)
	second.DueDate = &past
	inv2, err := f.service.CreateInvoice(context.Background(), second)
	require.NoError(t, err)
	_, err = f.service.Issue(context.Background(), f.companyID, inv2.ID)
	require.NoError(t, err)

	summary, err := f.service.GetSummary(
		context.Background(), f.companyID, billing.DirectionSale, valueobject.ARS, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.InvoiceCount)
	assert.True(t, summary.TotalPending.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, 1, summary.OverdueCount)
	assert.True(t, summary.OverdueAmount.Equal(decimal.NewFromInt(500)))
}

func TestInvoiceService_GetResolvedState(t *testing.T) {
	f := newInvoiceFixture(t)
	inv := f.createIssued(t, 1000)

	state, err := f.service.GetResolvedState(context.Background(), f.companyID, inv.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, billing.ResolvedOutstanding, state)
}
