package treasury

import (
	"github.com/facturacion/backend/internal/domain/shared"
	"github.com/facturacion/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// RetentionBaseType selects the base the retention rate applies to
type RetentionBaseType string

const (
	// BaseGrossPayment applies the rate to the full payment amount
	BaseGrossPayment RetentionBaseType = "GROSS_PAYMENT"
	// BaseInvoiceNet applies the rate to the invoice subtotal, pro-rated by
	// the fraction of the invoice total this payment covers
	BaseInvoiceNet RetentionBaseType = "INVOICE_NET"
)

// IsValid checks if the base type is known
func (b RetentionBaseType) IsValid() bool {
	return b == BaseGrossPayment || b == BaseInvoiceNet
}

// RetentionRule is one configured withholding regime for a retention agent.
// The rate is fractional (0.02 = 2%) and only applies above the threshold.
type RetentionRule struct {
	TaxCode      string            `json:"tax_code"`
	Name         string            `json:"name"`
	Rate         decimal.Decimal   `json:"rate"`
	BaseType     RetentionBaseType `json:"base_type"`
	MinThreshold decimal.Decimal   `json:"min_threshold"` // base below this: no line
	MinAmount    decimal.Decimal   `json:"min_amount"`    // computed amount below this: no line
}

// Validate checks the rule is internally consistent
func (r RetentionRule) Validate() error {
	if r.TaxCode == "" {
		return shared.NewValidationError("Retention rule requires a tax code")
	}
	if r.Rate.LessThanOrEqual(decimal.Zero) || r.Rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return shared.NewValidationError("Retention rate must be a fraction between 0 and 1")
	}
	if !r.BaseType.IsValid() {
		return shared.NewValidationError("Retention rule base type is not valid")
	}
	if r.MinThreshold.IsNegative() || r.MinAmount.IsNegative() {
		return shared.NewValidationError("Retention thresholds cannot be negative")
	}
	return nil
}

// AgentConfig is the paying company's fiscal standing. Companies that are not
// designated retention agents never withhold, no matter what rules are loaded.
type AgentConfig struct {
	IsRetentionAgent bool            `json:"is_retention_agent"`
	Rules            []RetentionRule `json:"rules"`
}

// RetentionInput carries the amounts the calculator bases lines on
type RetentionInput struct {
	Payment         valueobject.Money // gross amount being paid
	InvoiceSubtotal decimal.Decimal   // invoice net-of-tax subtotal
	InvoiceTotal    decimal.Decimal   // invoice grand total
}

// CalculateRetentions computes the withholding lines for one payment. Each
// line amount is rounded half away from zero at the currency's minor units.
// Non-agents always get an empty set.
func CalculateRetentions(cfg AgentConfig, input RetentionInput) (RetentionLines, error) {
	if !cfg.IsRetentionAgent {
		return RetentionLines{}, nil
	}
	if !input.Payment.IsPositive() {
		return nil, shared.NewValidationError("Payment amount must be positive")
	}

	lines := RetentionLines{}
	for _, rule := range cfg.Rules {
		if err := rule.Validate(); err != nil {
			return nil, err
		}

		base, err := retentionBase(rule.BaseType, input)
		if err != nil {
			return nil, err
		}
		if base.LessThan(rule.MinThreshold) {
			continue
		}

		amount := roundHalfAwayFromZero(base.Mul(rule.Rate), input.Payment.Currency().MinorUnits())
		if amount.LessThan(rule.MinAmount) || !amount.IsPositive() {
			continue
		}

		lines = append(lines, RetentionLine{
			TaxCode:    rule.TaxCode,
			Name:       rule.Name,
			Rate:       rule.Rate,
			BaseAmount: base,
			Amount:     amount,
		})
	}

	total := lines.Total()
	if total.GreaterThanOrEqual(input.Payment.Amount()) {
		return nil, shared.NewValidationError("Computed retentions consume the whole payment amount")
	}

	return lines, nil
}

func retentionBase(baseType RetentionBaseType, input RetentionInput) (decimal.Decimal, error) {
	switch baseType {
	case BaseGrossPayment:
		return input.Payment.Amount(), nil
	case BaseInvoiceNet:
		if input.InvoiceTotal.LessThanOrEqual(decimal.Zero) {
			return decimal.Zero, shared.NewValidationError("Invoice total is required for net-based retentions")
		}
		// pro-rate the subtotal by the covered fraction of the invoice
		fraction := input.Payment.Amount().Div(input.InvoiceTotal)
		if fraction.GreaterThan(decimal.NewFromInt(1)) {
			fraction = decimal.NewFromInt(1)
		}
		return input.InvoiceSubtotal.Mul(fraction), nil
	default:
		return decimal.Zero, shared.NewValidationError("Retention rule base type is not valid")
	}
}

// PerceptionRule is a tax collected at invoice issuance on top of the total
type PerceptionRule struct {
	TaxCode string          `json:"tax_code"`
	Name    string          `json:"name"`
	Rate    decimal.Decimal `json:"rate"`
}

// PerceptionLine is one computed perception charge
type PerceptionLine struct {
	TaxCode    string          `json:"tax_code"`
	Name       string          `json:"name"`
	Rate       decimal.Decimal `json:"rate"`
	BaseAmount decimal.Decimal `json:"base_amount"`
	Amount     decimal.Decimal `json:"amount"`
}

// CalculatePerceptions computes perception charges over an invoice subtotal.
// Perceptions are additive: they increase what the counterparty owes, unlike
// retentions which reduce what gets disbursed.
func CalculatePerceptions(rules []PerceptionRule, subtotal valueobject.Money) ([]PerceptionLine, error) {
	if subtotal.IsNegative() {
		return nil, shared.NewValidationError("Subtotal cannot be negative")
	}

	lines := make([]PerceptionLine, 0, len(rules))
	for _, rule := range rules {
		if rule.TaxCode == "" {
			return nil, shared.NewValidationError("Perception rule requires a tax code")
		}
		if rule.Rate.LessThanOrEqual(decimal.Zero) || rule.Rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return nil, shared.NewValidationError("Perception rate must be a fraction between 0 and 1")
		}

		amount := roundHalfAwayFromZero(subtotal.Amount().Mul(rule.Rate), subtotal.Currency().MinorUnits())
		if !amount.IsPositive() {
			continue
		}

		lines = append(lines, PerceptionLine{
			TaxCode:    rule.TaxCode,
			Name:       rule.Name,
			Rate:       rule.Rate,
			BaseAmount: subtotal.Amount(),
			Amount:     amount,
		})
	}

	return lines, nil
}

// roundHalfAwayFromZero rounds at the given number of decimal places with
// ties going away from zero, matching fiscal rounding rules
func roundHalfAwayFromZero(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}
