package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		n    int
		want time.Time
	}{
		{"mid month", date(2024, 1, 15), 1, date(2024, 2, 15)},
		{"leap february clamp", date(2024, 1, 31), 1, date(2024, 2, 29)},
		{"common february clamp", date(2023, 1, 31), 1, date(2023, 2, 28)},
		{"no chaining from clamp", date(2024, 1, 31), 2, date(2024, 3, 31)},
		{"thirty day month", date(2024, 3, 31), 1, date(2024, 4, 30)},
		{"year rollover", date(2024, 12, 15), 1, date(2025, 1, 15)},
		{"backwards", date(2024, 1, 15), -1, date(2023, 12, 15)},
		{"twelve months", date(2024, 2, 29), 12, date(2025, 2, 28)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AddMonths(tt.in, tt.n))
		})
	}
}

func TestAddMonths_KeepsTimeOfDay(t *testing.T) {
	in := time.Date(2024, 1, 31, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 2, 29, 14, 30, 0, 0, time.UTC), AddMonths(in, 1))
}

func dueDates(items []DueItem) []time.Time {
	out := make([]time.Time, len(items))
	for i, item := range items {
		out[i] = item.DueDate
	}
	return out
}

func TestGenerateSchedule_ThreeMonthLease(t *testing.T) {
	items, err := GenerateSchedule(Lease{
		ID:             "lease-1",
		TenantID:       "tenant-1",
		PropertyID:     "prop-1",
		RoomNumber:     "3",
		MonthlyRent:    50000,
		StartDate:      date(2024, 1, 15),
		DurationMonths: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{date(2024, 2, 15), date(2024, 3, 15), date(2024, 4, 15)}, dueDates(items))
	for _, item := range items {
		assert.Equal(t, int64(50000), item.Amount)
		assert.Equal(t, DuePending, item.Status)
		assert.Zero(t, item.Paid)
		assert.Equal(t, "tenant-1", item.TenantID)
		assert.Equal(t, "3", item.RoomNumber)
		assert.False(t, item.Accrued)
	}
}

func TestGenerateSchedule_MonthEndStart(t *testing.T) {
	items, err := GenerateSchedule(Lease{ID: "l", MonthlyRent: 1000, StartDate: date(2024, 1, 31), DurationMonths: 4})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		date(2024, 2, 29), date(2024, 3, 31), date(2024, 4, 30), date(2024, 5, 31),
	}, dueDates(items))
}

func TestGenerateSchedule_EndDateBound(t *testing.T) {
	end := date(2024, 3, 20)
	items, err := GenerateSchedule(Lease{ID: "l", MonthlyRent: 1000, StartDate: date(2024, 1, 15), EndDate: &end})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{date(2024, 2, 15), date(2024, 3, 15)}, dueDates(items))

	// A due date landing exactly on the end date is included.
	end = date(2024, 3, 15)
	items, err = GenerateSchedule(Lease{ID: "l", MonthlyRent: 1000, StartDate: date(2024, 1, 15), EndDate: &end})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestGenerateSchedule_ShorterThanAMonth(t *testing.T) {
	end := date(2024, 2, 1)
	items, err := GenerateSchedule(Lease{ID: "l", MonthlyRent: 1000, StartDate: date(2024, 1, 15), EndDate: &end})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGenerateSchedule_IsPure(t *testing.T) {
	l := Lease{ID: "lease-x", MonthlyRent: 75000, StartDate: date(2023, 10, 31), DurationMonths: 12}
	a, err := GenerateSchedule(l)
	require.NoError(t, err)
	b, err := GenerateSchedule(l)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 12)

	ids := make(map[string]bool)
	for _, item := range a {
		ids[item.ID] = true
	}
	assert.Len(t, ids, 12, "ids are unique within a schedule")
}

func TestGenerateSchedule_Rejects(t *testing.T) {
	before := date(2024, 1, 1)
	tests := []struct {
		name  string
		lease Lease
		check func(error) bool
	}{
		{"zero rent", Lease{MonthlyRent: 0, StartDate: date(2024, 1, 15), DurationMonths: 3}, IsInvariant},
		{"negative rent", Lease{MonthlyRent: -5, StartDate: date(2024, 1, 15), DurationMonths: 3}, IsInvariant},
		{"end before start", Lease{MonthlyRent: 100, StartDate: date(2024, 1, 15), EndDate: &before}, IsInvariant},
		{"no bound", Lease{MonthlyRent: 100, StartDate: date(2024, 1, 15)}, IsValidation},
		{"no start", Lease{MonthlyRent: 100, DurationMonths: 3}, IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := GenerateSchedule(tt.lease)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error type: %v", err)
			assert.Nil(t, items)
		})
	}
}
