package usecase

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/ledgercal/internal/domain"
)

const dayKeyFormat = "2006-01-02"

// DayBucket groups the transactions of one calendar day. Transactions
// are back-references into the snapshot's log, in chronological order.
type DayBucket struct {
	Date         time.Time
	Transactions []*domain.Transaction
	NetDelta     decimal.Decimal
}

// MonthAggregate holds the per-month totals maintained by the index.
// Income is the sum of positive amounts, Outflow the sum of negative
// amounts (so it is zero or negative).
type MonthAggregate struct {
	Income  decimal.Decimal
	Outflow decimal.Decimal
	Count   int
}

// CalendarIndex buckets a snapshot's transactions by calendar day and
// month so the calendar surface never rescans the full log. Day
// boundaries follow the configured time zone. The index is built once
// per snapshot version and rebuilt from scratch for the next one.
type CalendarIndex struct {
	loc    *time.Location
	days   map[string]*DayBucket
	months map[string]MonthAggregate
}

// BuildCalendarIndex builds the index in a single forward pass over
// the chronologically sorted transaction list.
func BuildCalendarIndex(snap *domain.Snapshot, loc *time.Location) *CalendarIndex {
	idx := &CalendarIndex{
		loc:    loc,
		days:   make(map[string]*DayBucket),
		months: make(map[string]MonthAggregate),
	}

	for _, tx := range snap.Transactions {
		local := tx.Timestamp.In(loc)
		dayKey := local.Format(dayKeyFormat)

		bucket, ok := idx.days[dayKey]
		if !ok {
			bucket = &DayBucket{
				Date:     startOfDay(local),
				NetDelta: decimal.Zero,
			}
			idx.days[dayKey] = bucket
		}
		bucket.Transactions = append(bucket.Transactions, tx)
		bucket.NetDelta = bucket.NetDelta.Add(tx.Amount)

		monthKey := monthKeyOf(local.Year(), local.Month())
		agg := idx.months[monthKey]
		if tx.Amount.IsNegative() {
			agg.Outflow = agg.Outflow.Add(tx.Amount)
		} else {
			agg.Income = agg.Income.Add(tx.Amount)
		}
		agg.Count++
		idx.months[monthKey] = agg
	}

	return idx
}

// Day returns the bucket for the calendar day containing date. Days
// without transactions resolve to an empty bucket with zero NetDelta,
// never an error.
func (idx *CalendarIndex) Day(date time.Time) *DayBucket {
	local := date.In(idx.loc)
	if bucket, ok := idx.days[local.Format(dayKeyFormat)]; ok {
		return bucket
	}
	return &DayBucket{
		Date:     startOfDay(local),
		NetDelta: decimal.Zero,
	}
}

// Month returns the aggregate for a calendar month. Months without
// transactions resolve to a zero aggregate.
func (idx *CalendarIndex) Month(year int, month time.Month) MonthAggregate {
	agg, ok := idx.months[monthKeyOf(year, month)]
	if !ok {
		return MonthAggregate{Income: decimal.Zero, Outflow: decimal.Zero}
	}
	return agg
}

// Location returns the time zone the index buckets days in.
func (idx *CalendarIndex) Location() *time.Location {
	return idx.loc
}

func monthKeyOf(year int, month time.Month) string {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func endOfMonth(year int, month time.Month, loc *time.Location) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, loc).AddDate(0, 1, 0).Add(-time.Nanosecond)
}
