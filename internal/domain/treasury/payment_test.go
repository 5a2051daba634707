package treasury

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturacion/backend/internal/domain/shared"
	"github.com/facturacion/backend/internal/domain/shared/valueobject"
)

func declaredPayment(t *testing.T, fromNetwork bool) *Payment {
	p, err := NewPayment(
		uuid.New(), uuid.New(), valueobject.NewMoneyARSFromFloat(1000),
		nil, time.Now(), MethodTransfer, uuid.New(), fromNetwork,
	)
	require.NoError(t, err)
	return p
}

// ============================================
// Transition Table Tests
// ============================================

func TestNextPaymentStatus(t *testing.T) {
	tests := []struct {
		from   PaymentStatus
		action PaymentAction
		to     PaymentStatus
		ok     bool
	}{
		{PaymentStatusPending, PaymentActionStartProcessing, PaymentStatusInProcess, true},
		{PaymentStatusPending, PaymentActionConfirm, PaymentStatusConfirmed, true},
		{PaymentStatusPending, PaymentActionCancel, PaymentStatusCancelled, true},
		{PaymentStatusPending, PaymentActionReject, PaymentStatusRejected, true},
		{PaymentStatusInProcess, PaymentActionConfirm, PaymentStatusConfirmed, true},
		{PaymentStatusInProcess, PaymentActionCancel, PaymentStatusCancelled, true},
		{PaymentStatusInProcess, PaymentActionReject, PaymentStatusRejected, true},
		{PaymentStatusInProcess, PaymentActionStartProcessing, "", false},
		{PaymentStatusConfirmed, PaymentActionCancel, "", false},
		{PaymentStatusCancelled, PaymentActionConfirm, "", false},
		{PaymentStatusRejected, PaymentActionReject, "", false},
		{PaymentStatus("BOGUS"), PaymentActionConfirm, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.action), func(t *testing.T) {
			next, err := nextPaymentStatus(tt.from, tt.action)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.to, next)
			} else {
				assert.True(t, shared.IsCode(err, shared.CodeInvalidTransition))
			}
		})
	}
}

// ============================================
// Construction Tests
// ============================================

func TestNewPayment(t *testing.T) {
	p := declaredPayment(t, false)

	assert.Equal(t, PaymentStatusPending, p.Status)
	assert.False(t, p.FromNetwork)
	assert.True(t, p.NetAmount.Equal(p.Amount))
	assert.True(t, p.RetentionTotal.IsZero())
	assert.NotNil(t, p.Retentions)

	events := p.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypePaymentDeclared, events[0].EventType())
}

func TestNewPayment_NetIsGrossMinusRetentions(t *testing.T) {
	retentions := RetentionLines{
		{TaxCode: "GAN", Rate: decimal.NewFromFloat(0.02), BaseAmount: decimal.NewFromInt(1000), Amount: decimal.NewFromInt(20)},
		{TaxCode: "IIBB", Rate: decimal.NewFromFloat(0.0175), BaseAmount: decimal.NewFromInt(1000), Amount: decimal.NewFromFloat(17.5)},
	}

	p, err := NewPayment(
		uuid.New(), uuid.New(), valueobject.NewMoneyARSFromFloat(1000),
		retentions, time.Now(), MethodTransfer, uuid.New(), false,
	)
	require.NoError(t, err)

	assert.True(t, p.RetentionTotal.Equal(decimal.NewFromFloat(37.5)))
	assert.True(t, p.NetAmount.Equal(decimal.NewFromFloat(962.5)))
}

func TestNewPayment_RetentionsConsumeWholeAmount(t *testing.T) {
	retentions := RetentionLines{
		{TaxCode: "GAN", Amount: decimal.NewFromInt(1000)},
	}

	_, err := NewPayment(
		uuid.New(), uuid.New(), valueobject.NewMoneyARSFromFloat(1000),
		retentions, time.Now(), MethodTransfer, uuid.New(), false,
	)
	assert.True(t, shared.IsCode(err, shared.CodeValidation))
}

func TestNewPayment_Validation(t *testing.T) {
	now := time.Now()
	actor := uuid.New()
	amount := valueobject.NewMoneyARSFromFloat(1000)

	_, err := NewPayment(uuid.New(), uuid.Nil, amount, nil, now, MethodTransfer, actor, false)
	assert.True(t, shared.IsCode(err, shared.CodeValidation))

	_, err = NewPayment(uuid.New(), uuid.New(), valueobject.ZeroARS(), nil, now, MethodTransfer, actor, false)
	assert.True(t, shared.IsCode(err, shared.CodeValidation))

	_, err = NewPayment(uuid.New(), uuid.New(), amount, nil, time.Time{}, MethodTransfer, actor, false)
	assert.True(t, shared.IsCode(err, shared.CodeValidation))

	_, err = NewPayment(uuid.New(), uuid.New(), amount, nil, now, SettlementMethod("WIRE"), actor, false)
	assert.True(t, shared.IsCode(err, shared.CodeValidation))

	_, err = NewPayment(uuid.New(), uuid.New(), amount, nil, now, MethodTransfer, uuid.Nil, false)
	assert.True(t, shared.IsCode(err, shared.CodeValidation))
}

// ============================================
// Transition Tests
// ============================================

func TestPayment_ConfirmFromPending(t *testing.T) {
	p := declaredPayment(t, false)
	p.ClearDomainEvents()
	confirmer := uuid.New()

	require.NoError(t, p.Confirm(confirmer))

	assert.Equal(t, PaymentStatusConfirmed, p.Status)
	assert.Equal(t, confirmer, *p.ConfirmedBy)
	assert.NotNil(t, p.ConfirmedAt)

	events := p.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypePaymentConfirmed, events[0].EventType())
}

func TestPayment_ConfirmFromInProcess(t *testing.T) {
	p := declaredPayment(t, false)
	require.NoError(t, p.StartProcessing())
	assert.Equal(t, PaymentStatusInProcess, p.Status)

	require.NoError(t, p.Confirm(uuid.New()))
	assert.Equal(t, PaymentStatusConfirmed, p.Status)
}

func TestPayment_StartProcessingTwice(t *testing.T) {
	p := declaredPayment(t, false)
	require.NoError(t, p.StartProcessing())

	err := p.StartProcessing()
	assert.True(t, shared.IsCode(err, shared.CodeInvalidTransition))
}

func TestPayment_Cancel(t *testing.T) {
	p := declaredPayment(t, false)
	p.ClearDomainEvents()

	require.NoError(t, p.Cancel(uuid.New()))

	assert.Equal(t, PaymentStatusCancelled, p.Status)
	assert.NotNil(t, p.CancelledAt)

	events := p.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypePaymentCancelled, events[0].EventType())
}

func TestPayment_CancelAfterConfirm(t *testing.T) {
	p := declaredPayment(t, false)
	require.NoError(t, p.Confirm(uuid.New()))

	err := p.Cancel(uuid.New())
	assert.True(t, shared.IsCode(err, shared.CodeInvalidTransition))
}

func TestPayment_RejectRequiresNetworkOrigin(t *testing.T) {
	p := declaredPayment(t, false)

	err := p.Reject(uuid.New(), "not ours")
	assert.True(t, shared.IsCode(err, shared.CodeInvalidState))
	assert.Equal(t, PaymentStatusPending, p.Status)
}

func TestPayment_RejectNetworkDeclared(t *testing.T) {
	p := declaredPayment(t, true)
	p.ClearDomainEvents()

	require.NoError(t, p.Reject(uuid.New(), "we never received this"))

	assert.Equal(t, PaymentStatusRejected, p.Status)
	assert.Equal(t, "we never received this", p.RejectedReason)

	events := p.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypePaymentRejected, events[0].EventType())
}

func TestPayment_VersionIncrements(t *testing.T) {
	p := declaredPayment(t, false)
	assert.Equal(t, 1, p.GetVersion())

	require.NoError(t, p.StartProcessing())
	assert.Equal(t, 2, p.GetVersion())

	require.NoError(t, p.Confirm(uuid.New()))
	assert.Equal(t, 3, p.GetVersion())
}

// ============================================
// RetentionLines Tests
// ============================================

func TestRetentionLines_ValueAndScan(t *testing.T) {
	lines := RetentionLines{
		{TaxCode: "GAN", Name: "Ganancias", Rate: decimal.NewFromFloat(0.02), BaseAmount: decimal.NewFromInt(1000), Amount: decimal.NewFromInt(20)},
	}

	v, err := lines.Value()
	require.NoError(t, err)

	var out RetentionLines
	require.NoError(t, out.Scan(v))
	require.Len(t, out, 1)
	assert.Equal(t, "GAN", out[0].TaxCode)
	assert.True(t, out[0].Amount.Equal(decimal.NewFromInt(20)))
}

func TestRetentionLines_ScanNil(t *testing.T) {
	var out RetentionLines
	require.NoError(t, out.Scan(nil))
	assert.Empty(t, out)
}

func TestRetentionLines_NilValue(t *testing.T) {
	var lines RetentionLines
	v, err := lines.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestRetentionLines_Total(t *testing.T) {
	lines := RetentionLines{
		{Amount: decimal.NewFromInt(20)},
		{Amount: decimal.NewFromFloat(17.5)},
	}
	assert.True(t, lines.Total().Equal(decimal.NewFromFloat(37.5)))
}

func TestPayment_MoneyAccessors(t *testing.T) {
	retentions := RetentionLines{{TaxCode: "GAN", Amount: decimal.NewFromInt(20)}}
	p, err := NewPayment(
		uuid.New(), uuid.New(), valueobject.NewMoneyARSFromFloat(1000),
		retentions, time.Now(), MethodCheck, uuid.New(), false,
	)
	require.NoError(t, err)

	assert.True(t, p.AmountMoney().Amount().Equal(decimal.NewFromInt(1000)))
	assert.True(t, p.NetAmountMoney().Amount().Equal(decimal.NewFromInt(980)))
}
