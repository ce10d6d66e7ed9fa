package ledger

import (
	"maps"
	"slices"
	"time"

	"github.com/matthewbaird/fadem/internal/types"
)

// DatasetVersion is written into every persisted dataset and export.
const DatasetVersion = "2.0.0"

// Dataset is the whole ledger state. It is persisted and exported as a
// single JSON document.
type Dataset struct {
	Version    string     `json:"version"`
	Currency   string     `json:"currency"`
	Owners     []Owner    `json:"owners"`
	Properties []Property `json:"properties"`
	Tenants    []Tenant   `json:"tenants"`
	Leases     []Lease    `json:"leases"`
	DueItems   []DueItem  `json:"due_items"`
	Payments   []Payment  `json:"payments"`
	Alerts     []Alert    `json:"alerts"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// NewDataset returns an empty dataset in the given currency.
func NewDataset(currency string) *Dataset {
	if currency == "" {
		currency = types.DefaultCurrency
	}
	return &Dataset{
		Version:    DatasetVersion,
		Currency:   currency,
		Owners:     []Owner{},
		Properties: []Property{},
		Tenants:    []Tenant{},
		Leases:     []Lease{},
		DueItems:   []DueItem{},
		Payments:   []Payment{},
		Alerts:     []Alert{},
	}
}

// Clone returns a deep copy. Time pointers are shared; the engine always
// replaces them rather than writing through them.
func (d *Dataset) Clone() *Dataset {
	c := *d
	c.Owners = slices.Clone(d.Owners)
	for i := range c.Owners {
		c.Owners[i].PropertyIDs = slices.Clone(c.Owners[i].PropertyIDs)
	}
	c.Properties = slices.Clone(d.Properties)
	for i := range c.Properties {
		c.Properties[i].Rooms = slices.Clone(c.Properties[i].Rooms)
	}
	c.Tenants = slices.Clone(d.Tenants)
	for i := range c.Tenants {
		c.Tenants[i].ActiveLeaseIDs = slices.Clone(c.Tenants[i].ActiveLeaseIDs)
	}
	c.Leases = slices.Clone(d.Leases)
	for i := range c.Leases {
		c.Leases[i].Clauses = slices.Clone(c.Leases[i].Clauses)
	}
	c.DueItems = slices.Clone(d.DueItems)
	c.Payments = slices.Clone(d.Payments)
	for i := range c.Payments {
		c.Payments[i].Fees.Other = maps.Clone(c.Payments[i].Fees.Other)
	}
	c.Alerts = slices.Clone(d.Alerts)
	for i := range c.Alerts {
		c.Alerts[i].Actions = slices.Clone(c.Alerts[i].Actions)
	}
	return &c
}

// normalize replaces nil collections with empty ones so the JSON form
// always carries arrays.
func (d *Dataset) normalize() {
	if d.Version == "" {
		d.Version = DatasetVersion
	}
	if d.Currency == "" {
		d.Currency = types.DefaultCurrency
	}
	if d.Owners == nil {
		d.Owners = []Owner{}
	}
	if d.Properties == nil {
		d.Properties = []Property{}
	}
	if d.Tenants == nil {
		d.Tenants = []Tenant{}
	}
	if d.Leases == nil {
		d.Leases = []Lease{}
	}
	if d.DueItems == nil {
		d.DueItems = []DueItem{}
	}
	if d.Payments == nil {
		d.Payments = []Payment{}
	}
	if d.Alerts == nil {
		d.Alerts = []Alert{}
	}
}

// ClosedLeases returns the IDs of terminated and expired leases.
func (d *Dataset) ClosedLeases() map[string]bool {
	closed := make(map[string]bool)
	for _, l := range d.Leases {
		if l.Status.Closed() {
			closed[l.ID] = true
		}
	}
	return closed
}

// Waived reports whether item belongs to a closed lease and was never
// posted to the tenant balance. Such items are not owed.
func Waived(item DueItem, closed map[string]bool) bool {
	return closed[item.LeaseID] && !item.Accrued
}

func (d *Dataset) ownerIndex(id string) int {
	return slices.IndexFunc(d.Owners, func(o Owner) bool { return o.ID == id })
}

func (d *Dataset) propertyIndex(id string) int {
	return slices.IndexFunc(d.Properties, func(p Property) bool { return p.ID == id })
}

func (d *Dataset) tenantIndex(id string) int {
	return slices.IndexFunc(d.Tenants, func(t Tenant) bool { return t.ID == id })
}

func (d *Dataset) leaseIndex(id string) int {
	return slices.IndexFunc(d.Leases, func(l Lease) bool { return l.ID == id })
}

func (d *Dataset) dueItemIndex(id string) int {
	return slices.IndexFunc(d.DueItems, func(i DueItem) bool { return i.ID == id })
}

func (d *Dataset) alertIndex(id string) int {
	return slices.IndexFunc(d.Alerts, func(a Alert) bool { return a.ID == id })
}

// FindTenant returns the tenant with id.
func (d *Dataset) FindTenant(id string) (Tenant, bool) {
	if i := d.tenantIndex(id); i >= 0 {
		return d.Tenants[i], true
	}
	return Tenant{}, false
}

// FindLease returns the lease with id.
func (d *Dataset) FindLease(id string) (Lease, bool) {
	if i := d.leaseIndex(id); i >= 0 {
		return d.Leases[i], true
	}
	return Lease{}, false
}

// FindProperty returns the property with id.
func (d *Dataset) FindProperty(id string) (Property, bool) {
	if i := d.propertyIndex(id); i >= 0 {
		return d.Properties[i], true
	}
	return Property{}, false
}

// Validate checks referential integrity and derived fields. It is run on
// imported and restored datasets before they replace the live one.
func (d *Dataset) Validate() error {
	owners := make(map[string]bool, len(d.Owners))
	for _, o := range d.Owners {
		if o.ID == "" {
			return invalid("owners", "owner without id")
		}
		owners[o.ID] = true
	}
	properties := make(map[string]bool, len(d.Properties))
	for _, p := range d.Properties {
		if p.ID == "" {
			return invalid("properties", "property without id")
		}
		if !p.Status.Valid() {
			return invalid("properties", "property %s has unknown status %q", p.ID, p.Status)
		}
		if p.OwnerID != "" && !owners[p.OwnerID] {
			return notFound("owner", p.OwnerID)
		}
		for _, r := range p.Rooms {
			if !r.Status.Valid() {
				return invalid("properties", "room %s of %s has unknown status %q", r.Number, p.ID, r.Status)
			}
		}
		properties[p.ID] = true
	}
	tenants := make(map[string]bool, len(d.Tenants))
	for _, t := range d.Tenants {
		if t.ID == "" {
			return invalid("tenants", "tenant without id")
		}
		if !t.Standing.Valid() {
			return invalid("tenants", "tenant %s has unknown standing %q", t.ID, t.Standing)
		}
		tenants[t.ID] = true
	}
	leases := make(map[string]bool, len(d.Leases))
	for _, l := range d.Leases {
		if !l.Status.Valid() {
			return invalid("leases", "lease %s has unknown status %q", l.ID, l.Status)
		}
		if l.MonthlyRent <= 0 {
			return violation("positive_rent", "lease %s has monthly rent %d", l.ID, l.MonthlyRent)
		}
		if !properties[l.PropertyID] {
			return notFound("property", l.PropertyID)
		}
		if !tenants[l.TenantID] {
			return notFound("tenant", l.TenantID)
		}
		leases[l.ID] = true
	}
	dueItems := make(map[string]bool, len(d.DueItems))
	for _, item := range d.DueItems {
		if !leases[item.LeaseID] {
			return notFound("lease", item.LeaseID)
		}
		if item.Paid < 0 || item.Paid > MaxPaid(item.Amount) {
			return violation("paid_range", "due item %s has paid %d of %d", item.ID, item.Paid, item.Amount)
		}
		if item.Status != DeriveDueStatus(item.Amount, item.Paid) {
			return violation("due_status", "due item %s has status %q for paid %d of %d",
				item.ID, item.Status, item.Paid, item.Amount)
		}
		dueItems[item.ID] = true
	}
	for _, p := range d.Payments {
		if p.Amount <= 0 {
			return violation("positive_payment", "payment %s has amount %d", p.ID, p.Amount)
		}
		if !dueItems[p.DueItemID] {
			return notFound("due item", p.DueItemID)
		}
	}
	for _, a := range d.Alerts {
		if !a.Type.Valid() || !a.Priority.Valid() {
			return invalid("alerts", "alert %s has unknown type or priority", a.ID)
		}
	}
	return nil
}
