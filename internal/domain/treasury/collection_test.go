package treasury

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturacion/backend/internal/domain/shared"
	"github.com/facturacion/backend/internal/domain/shared/valueobject"
)

func declaredCollection(t *testing.T) *Collection {
	c, err := NewNetworkDeclaredCollection(
		uuid.New(), uuid.New(), valueobject.NewMoneyARSFromFloat(500),
		time.Now(), MethodTransfer, uuid.New(),
	)
	require.NoError(t, err)
	return c
}

// ============================================
// Status and Transition Tests
// ============================================

func TestCollectionStatus_IsTerminal(t *testing.T) {
	assert.False(t, CollectionStatusPendingConfirmation.IsTerminal())
	assert.True(t, CollectionStatusConfirmed.IsTerminal())
	assert.True(t, CollectionStatusRejected.IsTerminal())
}

func TestNextCollectionStatus_FailsClosed(t *testing.T) {
	tests := []struct {
		from   CollectionStatus
		action CollectionAction
		to     CollectionStatus
		ok     bool
	}{
		{CollectionStatusPendingConfirmation, CollectionActionConfirm, CollectionStatusConfirmed, true},
		{CollectionStatusPendingConfirmation, CollectionActionReject, CollectionStatusRejected, true},
		{CollectionStatusConfirmed, CollectionActionConfirm, "", false},
		{CollectionStatusConfirmed, CollectionActionReject, "", false},
		{CollectionStatusRejected, CollectionActionConfirm, "", false},
		{CollectionStatus("BOGUS"), CollectionActionConfirm, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.action), func(t *testing.T) {
			next, err := nextCollectionStatus(tt.from, tt.action)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.to, next)
			} else {
				assert.True(t, shared.IsCode(err, shared.CodeInvalidTransition))
			}
		})
	}
}

func TestSettlementMethod_IsValid(t *testing.T) {
	assert.True(t, MethodTransfer.IsValid())
	assert.True(t, MethodOther.IsValid())
	assert.False(t, SettlementMethod("WIRE").IsValid())
}

// ============================================
// Construction Tests
// ============================================

func TestNewSelfDeclaredCollection(t *testing.T) {
	declaredBy := uuid.New()
	c, err := NewSelfDeclaredCollection(
		uuid.New(), uuid.New(), valueobject.NewMoneyARSFromFloat(500),
		time.Now(), MethodCash, declaredBy,
	)
	require.NoError(t, err)

	// the owner declared it, so it is confirmed at birth
	assert.Equal(t, CollectionStatusConfirmed, c.Status)
	assert.False(t, c.FromNetwork)
	assert.Equal(t, declaredBy, *c.ConfirmedBy)
	assert.NotNil(t, c.ConfirmedAt)

	events := c.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeCollectionConfirmed, events[0].EventType())
}

func TestNewNetworkDeclaredCollection(t *testing.T) {
	c := declaredCollection(t)

	assert.Equal(t, CollectionStatusPendingConfirmation, c.Status)
	assert.True(t, c.FromNetwork)
	assert.Nil(t, c.ConfirmedBy)

	events := c.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeCollectionDeclared, events[0].EventType())
}

func TestNewCollection_Validation(t *testing.T) {
	now := time.Now()
	actor := uuid.New()
	amount := valueobject.NewMoneyARSFromFloat(500)

	_, err := NewSelfDeclaredCollection(uuid.New(), uuid.Nil, amount, now, MethodCash, actor)
	assert.True(t, shared.IsCode(err, shared.CodeValidation))

	_, err = NewSelfDeclaredCollection(uuid.New(), uuid.New(), valueobject.ZeroARS(), now, MethodCash, actor)
	assert.True(t, shared.IsCode(err, shared.CodeValidation))

	_, err = NewSelfDeclaredCollection(uuid.New(), uuid.New(), valueobject.NewMoneyARSFromFloat(-5), now, MethodCash, actor)
	assert.True(t, shared.IsCode(err, shared.CodeValidation))

	_, err = NewSelfDeclaredCollection(uuid.New(), uuid.New(), amount, time.Time{}, MethodCash, actor)
	assert.True(t, shared.IsCode(err, shared.CodeValidation))

	_, err = NewSelfDeclaredCollection(uuid.New(), uuid.New(), amount, now, SettlementMethod("WIRE"), actor)
	assert.True(t, shared.IsCode(err, shared.CodeValidation))

	_, err = NewSelfDeclaredCollection(uuid.New(), uuid.New(), amount, now, MethodCash, uuid.Nil)
	assert.True(t, shared.IsCode(err, shared.CodeValidation))
}

// ============================================
// Transition Tests
// ============================================

func TestCollection_Confirm(t *testing.T) {
	c := declaredCollection(t)
	c.ClearDomainEvents()
	confirmer := uuid.New()

	require.NoError(t, c.Confirm(confirmer))

	assert.Equal(t, CollectionStatusConfirmed, c.Status)
	assert.Equal(t, confirmer, *c.ConfirmedBy)
	assert.Equal(t, 2, c.GetVersion())

	events := c.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeCollectionConfirmed, events[0].EventType())
}

func TestCollection_ConfirmTwice(t *testing.T) {
	c := declaredCollection(t)
	require.NoError(t, c.Confirm(uuid.New()))

	err := c.Confirm(uuid.New())
	assert.True(t, shared.IsCode(err, shared.CodeInvalidTransition))
}

func TestCollection_Reject(t *testing.T) {
	c := declaredCollection(t)
	c.ClearDomainEvents()
	rejecter := uuid.New()

	require.NoError(t, c.Reject(rejecter, "amount does not match our records"))

	assert.Equal(t, CollectionStatusRejected, c.Status)
	assert.Equal(t, "amount does not match our records", c.RejectedReason)

	events := c.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeCollectionRejected, events[0].EventType())
}

func TestCollection_RejectAfterConfirm(t *testing.T) {
	c := declaredCollection(t)
	require.NoError(t, c.Confirm(uuid.New()))

	err := c.Reject(uuid.New(), "too late")
	assert.True(t, shared.IsCode(err, shared.CodeInvalidTransition))
}

func TestCollection_ConfirmRequiresActor(t *testing.T) {
	c := declaredCollection(t)
	err := c.Confirm(uuid.Nil)
	assert.True(t, shared.IsCode(err, shared.CodeValidation))
}

func TestCollection_AmountMoney(t *testing.T) {
	c := declaredCollection(t)
	m := c.AmountMoney()
	assert.Equal(t, valueobject.ARS, m.Currency())
	assert.True(t, m.Amount().Equal(c.Amount))
}
