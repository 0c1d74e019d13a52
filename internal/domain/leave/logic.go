package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

var halfDay = decimal.New(5, -1)

// ChargeableDays returns the day count a request debits from a balance.
// Full-day requests charge the inclusive calendar day count. Half-day
// requests always charge 0.5 regardless of the span between start and end;
// that is a policy choice carried over from payroll, not a range bug.
func ChargeableDays(start, end time.Time, duration string) (decimal.Decimal, error) {
	if end.Before(start) {
		return decimal.Zero, ErrInvalidRange
	}
	switch duration {
	case DurationFullDay:
		days := int64(end.Sub(start).Hours()/24) + 1
		return decimal.NewFromInt(days), nil
	case DurationHalfDayMorning, DurationHalfDayAfternoon:
		return halfDay, nil
	default:
		return decimal.Zero, ErrInvalidDuration
	}
}

// RangesOverlap reports whether [aStart,aEnd] and [bStart,bEnd] intersect.
// Boundaries are inclusive: sharing a single day counts as overlap.
func RangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !bStart.After(aEnd)
}
