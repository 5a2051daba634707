package billing

import (
	"fmt"
	"time"

	"github.com/facturacion/backend/internal/domain/shared"
	"github.com/facturacion/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// InvoiceBalance pairs an invoice with its derived breakdown. The breakdown
// must have been computed from confirmed settlements only; declared but
// unconfirmed records are not settled and counting them here would
// double-count against the pending balance.
type InvoiceBalance struct {
	Invoice   *Invoice
	Breakdown *AdjustmentBreakdown
}

// SummaryTotals is the dashboard rollup over a set of invoices
type SummaryTotals struct {
	Currency           valueobject.Currency `json:"currency"`
	InvoiceCount       int                  `json:"invoice_count"`
	ExcludedCount      int                  `json:"excluded_count"`
	TotalPending       decimal.Decimal      `json:"total_pending"`
	OverdueCount       int                  `json:"overdue_count"`
	OverdueAmount      decimal.Decimal      `json:"overdue_amount"`
	UpcomingCount      int                  `json:"upcoming_count"`
	UpcomingAmount     decimal.Decimal      `json:"upcoming_amount"`
	UpcomingSoonCount  int                  `json:"upcoming_soon_count"`
	UpcomingSoonAmount decimal.Decimal      `json:"upcoming_soon_amount"`
	TotalSettled       decimal.Decimal      `json:"total_settled"`
}

// Summarize folds invoices plus their breakdowns into dashboard totals.
// Pure function; the caller re-invokes it after any settlement transition.
// All invoices must share one currency - summaries are rendered per currency.
func Summarize(currency valueobject.Currency, items []InvoiceBalance, today time.Time) (*SummaryTotals, error) {
	totals := &SummaryTotals{
		Currency:           currency,
		TotalPending:       decimal.Zero,
		OverdueAmount:      decimal.Zero,
		UpcomingAmount:     decimal.Zero,
		UpcomingSoonAmount: decimal.Zero,
		TotalSettled:       decimal.Zero,
	}

	for _, item := range items {
		if item.Invoice == nil || item.Breakdown == nil {
			return nil, shared.NewValidationError("Summary items require both invoice and breakdown")
		}
		if item.Invoice.Currency != currency {
			return nil, shared.NewCurrencyMismatchError(fmt.Sprintf(
				"Invoice %s is in %s, summary is in %s",
				item.Invoice.FormattedNumber(), item.Invoice.Currency, currency))
		}

		totals.InvoiceCount++
		totals.TotalSettled = totals.TotalSettled.Add(item.Breakdown.TotalSettled)

		classification := Classify(item.Invoice, today)
		if classification.Bucket == BucketExcluded {
			totals.ExcludedCount++
			continue
		}

		pending := item.Breakdown.BalancePending
		totals.TotalPending = totals.TotalPending.Add(pending)

		switch classification.Bucket {
		case BucketOverdue:
			totals.OverdueCount++
			totals.OverdueAmount = totals.OverdueAmount.Add(pending)
		case BucketUpcoming:
			totals.UpcomingCount++
			totals.UpcomingAmount = totals.UpcomingAmount.Add(pending)
			if classification.UpcomingSoon() {
				totals.UpcomingSoonCount++
				totals.UpcomingSoonAmount = totals.UpcomingSoonAmount.Add(pending)
			}
		}
	}

	return totals, nil
}
