package ledger

import (
	"slices"
	"sort"
	"time"
)

// Snapshot returns a deep copy of the live dataset.
func (e *Engine) Snapshot() *Dataset {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.data.Clone()
}

func (e *Engine) read(fn func(d *Dataset)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.data)
}

func (e *Engine) Owners() []Owner {
	var out []Owner
	e.read(func(d *Dataset) { out = d.Clone().Owners })
	return out
}

func (e *Engine) Properties() []Property {
	var out []Property
	e.read(func(d *Dataset) { out = d.Clone().Properties })
	return out
}

func (e *Engine) Property(id string) (Property, error) {
	var (
		out Property
		ok  bool
	)
	e.read(func(d *Dataset) {
		if out, ok = d.FindProperty(id); ok {
			out.Rooms = slices.Clone(out.Rooms)
		}
	})
	if !ok {
		return Property{}, notFound("property", id)
	}
	return out, nil
}

func (e *Engine) Tenants() []Tenant {
	var out []Tenant
	e.read(func(d *Dataset) { out = d.Clone().Tenants })
	return out
}

func (e *Engine) Tenant(id string) (Tenant, error) {
	var (
		out Tenant
		ok  bool
	)
	e.read(func(d *Dataset) {
		if out, ok = d.FindTenant(id); ok {
			out.ActiveLeaseIDs = slices.Clone(out.ActiveLeaseIDs)
		}
	})
	if !ok {
		return Tenant{}, notFound("tenant", id)
	}
	return out, nil
}

// LeaseFilter narrows Leases. Zero fields match everything.
type LeaseFilter struct {
	TenantID   string
	PropertyID string
	Status     LeaseStatus
}

func (f LeaseFilter) match(l Lease) bool {
	return (f.TenantID == "" || l.TenantID == f.TenantID) &&
		(f.PropertyID == "" || l.PropertyID == f.PropertyID) &&
		(f.Status == "" || l.Status == f.Status)
}

func (e *Engine) Leases(f LeaseFilter) []Lease {
	out := []Lease{}
	e.read(func(d *Dataset) {
		for _, l := range d.Leases {
			if f.match(l) {
				l.Clauses = slices.Clone(l.Clauses)
				out = append(out, l)
			}
		}
	})
	return out
}

func (e *Engine) Lease(id string) (Lease, error) {
	var (
		out Lease
		ok  bool
	)
	e.read(func(d *Dataset) {
		if out, ok = d.FindLease(id); ok {
			out.Clauses = slices.Clone(out.Clauses)
		}
	})
	if !ok {
		return Lease{}, notFound("lease", id)
	}
	return out, nil
}

// DueItemFilter narrows DueItems. OverdueAt keeps unpaid items due before it.
type DueItemFilter struct {
	LeaseID   string
	TenantID  string
	Status    DueStatus
	OverdueAt *time.Time
}

func (f DueItemFilter) match(item DueItem) bool {
	if f.LeaseID != "" && item.LeaseID != f.LeaseID {
		return false
	}
	if f.TenantID != "" && item.TenantID != f.TenantID {
		return false
	}
	if f.Status != "" && item.Status != f.Status {
		return false
	}
	if f.OverdueAt != nil && (item.Status == DuePaid || !item.DueDate.Before(*f.OverdueAt)) {
		return false
	}
	return true
}

// DueItems returns matching due items ordered by due date.
func (e *Engine) DueItems(f DueItemFilter) []DueItem {
	out := []DueItem{}
	e.read(func(d *Dataset) {
		for _, item := range d.DueItems {
			if f.match(item) {
				out = append(out, item)
			}
		}
	})
	return sortedByDueDate(out)
}

func (e *Engine) DueItem(id string) (DueItem, error) {
	var (
		out DueItem
		ok  bool
	)
	e.read(func(d *Dataset) {
		if i := d.dueItemIndex(id); i >= 0 {
			out, ok = d.DueItems[i], true
		}
	})
	if !ok {
		return DueItem{}, notFound("due item", id)
	}
	return out, nil
}

// PaymentFilter narrows Payments. Zero fields match everything.
type PaymentFilter struct {
	DueItemID string
	LeaseID   string
	TenantID  string
}

// Payments returns matching payments, most recent first.
func (e *Engine) Payments(f PaymentFilter) []Payment {
	out := []Payment{}
	e.read(func(d *Dataset) {
		for _, p := range d.Payments {
			if (f.DueItemID == "" || p.DueItemID == f.DueItemID) &&
				(f.LeaseID == "" || p.LeaseID == f.LeaseID) &&
				(f.TenantID == "" || p.TenantID == f.TenantID) {
				out = append(out, p)
			}
		}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].PaidAt.After(out[j].PaidAt) })
	return out
}

// Alerts returns alerts, unresolved only unless includeResolved is set,
// most urgent first.
func (e *Engine) Alerts(includeResolved bool) []Alert {
	out := []Alert{}
	e.read(func(d *Dataset) {
		for _, a := range d.Alerts {
			if includeResolved || !a.Resolved {
				a.Actions = slices.Clone(a.Actions)
				out = append(out, a)
			}
		}
	})
	SortAlerts(out)
	return out
}

var priorityRank = map[AlertPriority]int{
	PriorityUrgent: 0,
	PriorityHigh:   1,
	PriorityMedium: 2,
	PriorityLow:    3,
}

// SortAlerts orders alerts by priority, then by days overdue descending.
func SortAlerts(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		if priorityRank[a.Priority] != priorityRank[b.Priority] {
			return priorityRank[a.Priority] < priorityRank[b.Priority]
		}
		return a.DaysOverdue > b.DaysOverdue
	})
}

// TenantLedger is a tenant with everything booked against them.
type TenantLedger struct {
	Tenant   Tenant    `json:"tenant"`
	Leases   []Lease   `json:"leases"`
	DueItems []DueItem `json:"due_items"`
	Payments []Payment `json:"payments"`
}

func (e *Engine) TenantLedger(id string) (TenantLedger, error) {
	t, err := e.Tenant(id)
	if err != nil {
		return TenantLedger{}, err
	}
	return TenantLedger{
		Tenant:   t,
		Leases:   e.Leases(LeaseFilter{TenantID: id}),
		DueItems: e.DueItems(DueItemFilter{TenantID: id}),
		Payments: e.Payments(PaymentFilter{TenantID: id}),
	}, nil
}

// Statistics summarizes the live dataset at the engine's current time.
func (e *Engine) Statistics() Statistics {
	var s Statistics
	now := e.clock.Now()
	e.read(func(d *Dataset) { s = ComputeStatistics(d, now) })
	return s
}
