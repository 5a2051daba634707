package billing

import "time"

// DueBucket buckets an invoice by how its due date relates to today
type DueBucket string

const (
	BucketCurrent  DueBucket = "CURRENT"  // due more than the upcoming window away, or no due date
	BucketUpcoming DueBucket = "UPCOMING" // due within the upcoming window, today included
	BucketOverdue  DueBucket = "OVERDUE"  // due date strictly before today
	BucketExcluded DueBucket = "EXCLUDED" // not individually collectible/payable
)

// Day windows for the upcoming bucket. Dashboards use the short window to
// highlight invoices that need attention this week.
const (
	UpcomingWindowDays     = 30
	UpcomingSoonWindowDays = 7
)

// Classification is the result of bucketing one invoice
type Classification struct {
	Bucket    DueBucket `json:"bucket"`
	DaysDelta int       `json:"days_delta"` // days overdue, or days until due
}

// UpcomingSoon reports whether an upcoming invoice falls in the short window
func (c Classification) UpcomingSoon() bool {
	return c.Bucket == BucketUpcoming && c.DaysDelta <= UpcomingSoonWindowDays
}

// midnight strips the time of day so day arithmetic is immune to DST and
// timezone drift
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween returns whole days from a to b using midnight-normalized dates
func daysBetween(a, b time.Time) int {
	return int(midnight(b).Sub(midnight(a)).Hours() / 24)
}

// Classify buckets an invoice relative to today using date-only comparison.
//
// Credit and debit notes are excluded unconditionally: they are never
// individually collectible, their effect folds into the parent invoice via
// the adjustment ledger. Cancelled/rejected vouchers and settled payment
// statuses are excluded too. A due date equal to today is upcoming with
// DaysDelta 0, never overdue.
func Classify(inv *Invoice, today time.Time) Classification {
	if inv.IsAdjustmentNote() || inv.VoucherType().Category == CategoryReceipt {
		return Classification{Bucket: BucketExcluded}
	}
	if inv.Status == StatusCancelled || inv.Status == StatusRejected {
		return Classification{Bucket: BucketExcluded}
	}
	if inv.PaymentStatus.IsSettledOrCancelled() {
		return Classification{Bucket: BucketExcluded}
	}
	if inv.DueDate == nil {
		return Classification{Bucket: BucketCurrent}
	}

	days := daysBetween(today, *inv.DueDate)
	switch {
	case days < 0:
		return Classification{Bucket: BucketOverdue, DaysDelta: -days}
	case days <= UpcomingWindowDays:
		return Classification{Bucket: BucketUpcoming, DaysDelta: days}
	default:
		return Classification{Bucket: BucketCurrent, DaysDelta: days}
	}
}
