package treasury

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/facturacion/backend/internal/domain/billing"
	"github.com/facturacion/backend/internal/domain/shared"
	"github.com/facturacion/backend/internal/domain/shared/valueobject"
	"github.com/facturacion/backend/internal/domain/treasury"
)

// ============================================
// In-Memory Fakes
// ============================================

type fakeInvoiceRepo struct {
	invoices    map[uuid.UUID]*billing.Invoice
	notes       map[uuid.UUID][]billing.Invoice
	saveLockErr error
	lockSaves   int
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{
		invoices: make(map[uuid.UUID]*billing.Invoice),
		notes:    make(map[uuid.UUID][]billing.Invoice),
	}
}

func (r *fakeInvoiceRepo) put(inv *billing.Invoice) {
	r.invoices[inv.ID] = inv
}

func (r *fakeInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Invoice, error) {
	return r.invoices[id], nil
}

func (r *fakeInvoiceRepo) FindByIDForCompany(_ context.Context, companyID, id uuid.UUID) (*billing.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok || inv.CompanyID != companyID {
		return nil, nil
	}
	return inv, nil
}

func (r *fakeInvoiceRepo) FindByNumber(context.Context, uuid.UUID, string, int, int64) (*billing.Invoice, error) {
	return nil, nil
}

func (r *fakeInvoiceRepo) FindAdjustmentNotes(_ context.Context, _, relatedInvoiceID uuid.UUID) ([]billing.Invoice, error) {
	return r.notes[relatedInvoiceID], nil
}

func (r *fakeInvoiceRepo) FindAllForCompany(context.Context, uuid.UUID, billing.InvoiceFilter) ([]billing.Invoice, error) {
	return nil, nil
}

func (r *fakeInvoiceRepo) FindOutstanding(context.Context, uuid.UUID, billing.InvoiceDirection) ([]billing.Invoice, error) {
	return nil, nil
}

func (r *fakeInvoiceRepo) Save(_ context.Context, inv *billing.Invoice) error {
	r.invoices[inv.ID] = inv
	return nil
}

func (r *fakeInvoiceRepo) SaveWithLock(_ context.Context, inv *billing.Invoice) error {
	if r.saveLockErr != nil {
		return r.saveLockErr
	}
	r.lockSaves++
	r.invoices[inv.ID] = inv
	return nil
}

func (r *fakeInvoiceRepo) CountForCompany(context.Context, uuid.UUID, billing.InvoiceFilter) (int64, error) {
	return 0, nil
}

func (r *fakeInvoiceRepo) ExistsByNumber(context.Context, uuid.UUID, string, int, int64) (bool, error) {
	return false, nil
}

type fakeCollectionRepo struct {
	records     map[uuid.UUID]*treasury.Collection
	saveLockErr error
}

func newFakeCollectionRepo() *fakeCollectionRepo {
	return &fakeCollectionRepo{records: make(map[uuid.UUID]*treasury.Collection)}
}

func (r *fakeCollectionRepo) put(c *treasury.Collection) {
	r.records[c.ID] = c
}

func (r *fakeCollectionRepo) FindByID(_ context.Context, id uuid.UUID) (*treasury.Collection, error) {
	return r.records[id], nil
}

func (r *fakeCollectionRepo) FindByIDForCompany(_ context.Context, companyID, id uuid.UUID) (*treasury.Collection, error) {
	c, ok := r.records[id]
	if !ok || c.CompanyID != companyID {
		return nil, nil
	}
	return c, nil
}

func (r *fakeCollectionRepo) FindByInvoice(_ context.Context, _, invoiceID uuid.UUID) ([]*treasury.Collection, error) {
	var out []*treasury.Collection
	for _, c := range r.records {
		if c.InvoiceID == invoiceID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCollectionRepo) FindAllForCompany(context.Context, uuid.UUID, treasury.CollectionFilter) (*shared.Paginated[*treasury.Collection], error) {
	return nil, nil
}

func (r *fakeCollectionRepo) Save(_ context.Context, c *treasury.Collection) error {
	r.records[c.ID] = c
	return nil
}

func (r *fakeCollectionRepo) SaveWithLock(_ context.Context, c *treasury.Collection) error {
	if r.saveLockErr != nil {
		return r.saveLockErr
	}
	r.records[c.ID] = c
	return nil
}

func (r *fakeCollectionRepo) SumConfirmedByInvoice(_ context.Context, _, invoiceID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, c := range r.records {
		if c.InvoiceID == invoiceID && c.Status == treasury.CollectionStatusConfirmed {
			sum = sum.Add(c.Amount)
		}
	}
	return sum, nil
}

type fakePaymentRepo struct {
	records     map[uuid.UUID]*treasury.Payment
	saveLockErr error
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{records: make(map[uuid.UUID]*treasury.Payment)}
}

func (r *fakePaymentRepo) put(p *treasury.Payment) {
	r.records[p.ID] = p
}

func (r *fakePaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*treasury.Payment, error) {
	return r.records[id], nil
}

func (r *fakePaymentRepo) FindByIDForCompany(_ context.Context, companyID, id uuid.UUID) (*treasury.Payment, error) {
	p, ok := r.records[id]
	if !ok || p.CompanyID != companyID {
		return nil, nil
	}
	return p, nil
}

func (r *fakePaymentRepo) FindByInvoice(_ context.Context, _, invoiceID uuid.UUID) ([]*treasury.Payment, error) {
	var out []*treasury.Payment
	for _, p := range r.records {
		if p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) FindAllForCompany(context.Context, uuid.UUID, treasury.PaymentFilter) (*shared.Paginated[*treasury.Payment], error) {
	return nil, nil
}

func (r *fakePaymentRepo) Save(_ context.Context, p *treasury.Payment) error {
	r.records[p.ID] = p
	return nil
}

func (r *fakePaymentRepo) SaveWithLock(_ context.Context, p *treasury.Payment) error {
	if r.saveLockErr != nil {
		return r.saveLockErr
	}
	r.records[p.ID] = p
	return nil
}

func (r *fakePaymentRepo) SumConfirmedNetByInvoice(_ context.Context, _, invoiceID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range r.records {
		if p.InvoiceID == invoiceID && p.Status == treasury.PaymentStatusConfirmed {
			sum = sum.Add(p.NetAmount)
		}
	}
	return sum, nil
}

type recordingNotifier struct {
	collections int
	payments    int
}

func (n *recordingNotifier) CollectionDeclared(context.Context, uuid.UUID, *treasury.Collection) {
	n.collections++
}

func (n *recordingNotifier) PaymentDeclared(context.Context, uuid.UUID, *treasury.Payment) {
	n.payments++
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.EventType())
	}
	return types
}

type fakeAgentConfig struct {
	cfg treasury.AgentConfig
}

func (f *fakeAgentConfig) RetentionConfig(context.Context, uuid.UUID) (treasury.AgentConfig, error) {
	return f.cfg, nil
}

// ============================================
// Builders
// ============================================

func issuedInvoiceFor(t *testing.T, companyID uuid.UUID, direction billing.InvoiceDirection, total float64) *billing.Invoice {
	t.Helper()
	cp, err := billing.NewOrganization("Proveedora del Sur SA", "30-22222222-3")
	require.NoError(t, err)

	amount := decimal.NewFromFloat(total)
	due := time.Now().AddDate(0, 0, 30)
	inv, err := billing.NewInvoice(
		companyID, "FC_A", direction, 1, 100, cp,
		time.Now(), &due,
		billing.InvoiceTotals{
			Currency:    valueobject.ARS,
			Subtotal:    amount,
			TotalAmount: amount,
		},
		nil,
	)
	require.NoError(t, err)
	require.NoError(t, inv.MarkIssued())
	inv.ClearDomainEvents()
	return inv
}
