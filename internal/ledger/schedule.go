package ledger

import (
	"time"

	"github.com/google/uuid"
)

// maxScheduleMonths caps schedule generation at fifty years of rent.
const maxScheduleMonths = 600

var scheduleNamespace = uuid.MustParse("6f1c0a9e-3b5d-4c1e-9a57-2f8e1d4b7c30")

// DateOnly truncates t to midnight in its own location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonths moves t forward by n calendar months, clamping the day to the
// last day of the target month: Jan 31 + 1 month is Feb 28 (or 29).
// Unlike time.AddDate it never spills into the following month.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// ScheduleEnd is the last date a due item may fall on: the explicit end
// date, or start plus the lease duration.
func ScheduleEnd(l Lease) time.Time {
	if l.EndDate != nil {
		return DateOnly(*l.EndDate)
	}
	return DateOnly(AddMonths(l.StartDate, l.DurationMonths))
}

// GenerateSchedule returns the monthly due items for a lease. The first
// item falls one month after the start date; item k falls k months after
// it, clamped to month end, for as long as it does not pass ScheduleEnd.
// The result depends only on the lease, including item IDs.
func GenerateSchedule(l Lease) ([]DueItem, error) {
	if l.StartDate.IsZero() {
		return nil, invalid("start_date", "is required")
	}
	if l.MonthlyRent <= 0 {
		return nil, violation("positive_rent", "monthly rent must be positive, got %d", l.MonthlyRent)
	}
	if l.EndDate == nil && l.DurationMonths <= 0 {
		return nil, invalid("duration_months", "must be positive when no end date is given")
	}
	end := ScheduleEnd(l)
	start := DateOnly(l.StartDate)
	if !end.After(start) {
		return nil, violation("end_after_start", "end %s is not after start %s",
			end.Format(time.DateOnly), start.Format(time.DateOnly))
	}

	var items []DueItem
	for k := 1; ; k++ {
		if k > maxScheduleMonths {
			return nil, violation("schedule_length", "lease spans more than %d months", maxScheduleMonths)
		}
		due := AddMonths(start, k)
		if due.After(end) {
			break
		}
		items = append(items, DueItem{
			ID:         dueItemID(l.ID, due),
			LeaseID:    l.ID,
			TenantID:   l.TenantID,
			PropertyID: l.PropertyID,
			RoomNumber: l.RoomNumber,
			Amount:     l.MonthlyRent,
			DueDate:    due,
			Status:     DuePending,
		})
	}
	return items, nil
}

func dueItemID(leaseID string, due time.Time) string {
	return uuid.NewSHA1(scheduleNamespace, []byte(leaseID+"/"+due.Format(time.DateOnly))).String()
}
