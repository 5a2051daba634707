package billing

import (
	"strings"

	"github.com/facturacion/backend/internal/domain/shared"
)

// CounterpartyKind distinguishes organizations from natural persons
type CounterpartyKind string

const (
	CounterpartyOrganization CounterpartyKind = "ORGANIZATION"
	CounterpartyPerson       CounterpartyKind = "PERSON"
)

// IsValid checks if the kind is valid
func (k CounterpartyKind) IsValid() bool {
	return k == CounterpartyOrganization || k == CounterpartyPerson
}

// Counterparty is the client or supplier named on a voucher. It is a tagged
// value: organizations carry a business name, persons a first/last name pair.
type Counterparty struct {
	Kind         CounterpartyKind `json:"kind" gorm:"column:counterparty_kind"`
	BusinessName string           `json:"business_name,omitempty" gorm:"column:counterparty_business_name"`
	FirstName    string           `json:"first_name,omitempty" gorm:"column:counterparty_first_name"`
	LastName     string           `json:"last_name,omitempty" gorm:"column:counterparty_last_name"`
	TaxID        string           `json:"tax_id,omitempty" gorm:"column:counterparty_tax_id"` // CUIT/CUIL
}

// NewOrganization creates an organization counterparty
func NewOrganization(businessName, taxID string) (Counterparty, error) {
	if strings.TrimSpace(businessName) == "" {
		return Counterparty{}, shared.NewValidationError("Business name cannot be empty")
	}
	return Counterparty{
		Kind:         CounterpartyOrganization,
		BusinessName: businessName,
		TaxID:        taxID,
	}, nil
}

// NewPerson creates a natural-person counterparty
func NewPerson(firstName, lastName, taxID string) (Counterparty, error) {
	if strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" {
		return Counterparty{}, shared.NewValidationError("First and last name cannot be empty")
	}
	return Counterparty{
		Kind:      CounterpartyPerson,
		FirstName: firstName,
		LastName:  lastName,
		TaxID:     taxID,
	}, nil
}

// DisplayName is the single formatting rule for counterparty names
func (cp Counterparty) DisplayName() string {
	switch cp.Kind {
	case CounterpartyOrganization:
		return cp.BusinessName
	case CounterpartyPerson:
		return strings.TrimSpace(cp.FirstName + " " + cp.LastName)
	}
	return ""
}

// Validate checks that the tagged fields match the kind
func (cp Counterparty) Validate() error {
	switch cp.Kind {
	case CounterpartyOrganization:
		if strings.TrimSpace(cp.BusinessName) == "" {
			return shared.NewValidationError("Organization counterparty requires a business name")
		}
	case CounterpartyPerson:
		if strings.TrimSpace(cp.FirstName) == "" || strings.TrimSpace(cp.LastName) == "" {
			return shared.NewValidationError("Person counterparty requires first and last name")
		}
	default:
		return shared.NewValidationError("Counterparty kind is not valid")
	}
	return nil
}
