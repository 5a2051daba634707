package billing

import "time"

// ResolvedInvoiceState is the single display state derived from the lifecycle
// status, the payment status and the due date. It is produced once by
// ResolveState and consumed everywhere a badge or filter needs it, so the
// precedence rules (cancelled > settled > approval states > overdue) live in
// exactly one place.
type ResolvedInvoiceState string

const (
	ResolvedCancelled       ResolvedInvoiceState = "CANCELLED"
	ResolvedCollected       ResolvedInvoiceState = "COLLECTED"
	ResolvedPaid            ResolvedInvoiceState = "PAID"
	ResolvedRejected        ResolvedInvoiceState = "REJECTED"
	ResolvedPendingApproval ResolvedInvoiceState = "PENDING_APPROVAL"
	ResolvedApproved        ResolvedInvoiceState = "APPROVED"
	ResolvedOverdue         ResolvedInvoiceState = "OVERDUE"
	ResolvedOutstanding     ResolvedInvoiceState = "OUTSTANDING"
)

// ResolveState reduces an invoice to its single display state
func ResolveState(inv *Invoice, today time.Time) ResolvedInvoiceState {
	if inv.Status == StatusCancelled || inv.PaymentStatus == PaymentStatusCancelled {
		return ResolvedCancelled
	}
	switch inv.PaymentStatus {
	case PaymentStatusCollected:
		return ResolvedCollected
	case PaymentStatusPaid:
		return ResolvedPaid
	}
	switch inv.Status {
	case StatusRejected:
		return ResolvedRejected
	case StatusPendingApproval:
		return ResolvedPendingApproval
	case StatusApproved:
		return ResolvedApproved
	}
	if c := Classify(inv, today); c.Bucket == BucketOverdue {
		return ResolvedOverdue
	}
	return ResolvedOutstanding
}
