package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// expiringWindow is how far ahead a lease end counts as expiring.
const expiringWindow = 30 * 24 * time.Hour

// Statistics is the dashboard summary of a dataset.
type Statistics struct {
	Currency          string  `json:"currency"`
	Properties        int     `json:"properties"`
	Rooms             int     `json:"rooms"`
	FreeRooms         int     `json:"free_rooms"`
	OccupiedRooms     int     `json:"occupied_rooms"`
	MaintenanceRooms  int     `json:"maintenance_rooms"`
	ReservedRooms     int     `json:"reserved_rooms"`
	OccupancyRate     float64 `json:"occupancy_rate"`
	Tenants           int     `json:"tenants"`
	ActiveLeases      int     `json:"active_leases"`
	MonthlyRevenue    int64   `json:"monthly_revenue"`
	AnnualRevenue     int64   `json:"annual_revenue"`
	CollectedMonth    int64   `json:"collected_this_month"`
	Pending           int64   `json:"pending"`
	ArrearsAmount     int64   `json:"arrears_amount"`
	TenantsInArrears  int     `json:"tenants_in_arrears"`
	TenantsInDefault  int     `json:"tenants_in_default"`
	LateFees          int64   `json:"late_fees"`
	PotentialLateFees int64   `json:"potential_late_fees"`
	ExpiringLeases    int     `json:"expiring_leases"`
	OverdueItems      int     `json:"overdue_items"`
	OpenAlerts        int     `json:"open_alerts"`
}

// ComputeStatistics summarizes d as of now.
func ComputeStatistics(d *Dataset, now time.Time) Statistics {
	s := Statistics{
		Currency:   d.Currency,
		Properties: len(d.Properties),
		Tenants:    len(d.Tenants),
	}
	for _, p := range d.Properties {
		for _, r := range p.Rooms {
			s.Rooms++
			switch r.Status {
			case RoomFree:
				s.FreeRooms++
			case RoomOccupied:
				s.OccupiedRooms++
			case RoomMaintenance:
				s.MaintenanceRooms++
			case RoomReserved:
				s.ReservedRooms++
			}
		}
	}
	if s.Rooms > 0 {
		s.OccupancyRate = float64(s.OccupiedRooms) * 100 / float64(s.Rooms)
	}

	leases := make(map[string]Lease, len(d.Leases))
	for _, l := range d.Leases {
		leases[l.ID] = l
		if l.Status != LeaseActive {
			continue
		}
		s.ActiveLeases++
		s.MonthlyRevenue += l.MonthlyRent
		if end := ScheduleEnd(l); end.After(now) && !end.After(now.Add(expiringWindow)) {
			s.ExpiringLeases++
		}
	}
	s.AnnualRevenue = 12 * s.MonthlyRevenue

	y, m, _ := now.Date()
	for _, p := range d.Payments {
		if py, pm, _ := p.PaidAt.Date(); py == y && pm == m {
			s.CollectedMonth += p.Amount
		}
	}

	today := DateOnly(now)
	closed := d.ClosedLeases()
	for _, item := range d.DueItems {
		if Waived(item, closed) {
			continue
		}
		s.LateFees += item.LateFee
		if item.Status == DuePending {
			s.Pending += item.Amount
		}
		if item.Status != DuePaid && item.DueDate.Before(today) {
			s.OverdueItems++
			s.PotentialLateFees += PotentialLateFee(item, leases[item.LeaseID])
		}
	}

	for _, t := range d.Tenants {
		switch t.Standing {
		case StandingLightArrears, StandingHeavyArrears:
			s.TenantsInArrears++
		case StandingDefault:
			s.TenantsInDefault++
		}
		if t.Balance < 0 {
			s.ArrearsAmount += -t.Balance
		}
	}

	for _, a := range d.Alerts {
		if !a.Resolved {
			s.OpenAlerts++
		}
	}
	return s
}

// PotentialLateFee is the lease's late fee percentage applied to what
// remains unpaid on item, rounded to the nearest unit. It is informational:
// late fees are never posted to balances.
func PotentialLateFee(item DueItem, l Lease) int64 {
	if l.LateFeePercent.IsZero() {
		return 0
	}
	return decimal.NewFromInt(item.Outstanding()).
		Mul(l.LateFeePercent).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}
