// Package ledger implements the rent ledger: lease schedules, due items,
// payments, tenant balances and standing, and the persisted dataset that
// holds them. All mutations go through Engine.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// LeaseStatus is the lifecycle state of a lease.
type LeaseStatus string

const (
	LeaseActive     LeaseStatus = "active"
	LeaseSuspended  LeaseStatus = "suspended"
	LeaseTerminated LeaseStatus = "terminated"
	LeaseExpired    LeaseStatus = "expired"
)

func (s LeaseStatus) Valid() bool {
	switch s {
	case LeaseActive, LeaseSuspended, LeaseTerminated, LeaseExpired:
		return true
	}
	return false
}

// Closed reports whether the lease no longer occupies its room.
func (s LeaseStatus) Closed() bool {
	return s == LeaseTerminated || s == LeaseExpired
}

// DueStatus is derived from Paid versus Amount and never set directly.
type DueStatus string

const (
	DuePending DueStatus = "pending"
	DuePartial DueStatus = "partial"
	DuePaid    DueStatus = "paid"
)

func (s DueStatus) Valid() bool {
	switch s {
	case DuePending, DuePartial, DuePaid:
		return true
	}
	return false
}

// PaymentMethod is how money reached the landlord.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodMobileMoney  PaymentMethod = "mobile_money"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCheck        PaymentMethod = "check"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodMobileMoney, MethodBankTransfer, MethodCheck:
		return true
	}
	return false
}

// Standing classifies a tenant's balance relative to one month of rent.
type Standing string

const (
	StandingCurrent      Standing = "current"
	StandingLightArrears Standing = "light_arrears"
	StandingHeavyArrears Standing = "heavy_arrears"
	// StandingDefault is only ever set by an administrator and is never
	// overwritten by balance recomputation.
	StandingDefault Standing = "default"
)

func (s Standing) Valid() bool {
	switch s {
	case StandingCurrent, StandingLightArrears, StandingHeavyArrears, StandingDefault:
		return true
	}
	return false
}

type AlertType string

const (
	AlertPaymentOverdue AlertType = "payment_overdue"
	AlertLeaseExpiring  AlertType = "lease_expiring"
	AlertMaintenance    AlertType = "maintenance"
	AlertOther          AlertType = "other"
)

func (t AlertType) Valid() bool {
	switch t {
	case AlertPaymentOverdue, AlertLeaseExpiring, AlertMaintenance, AlertOther:
		return true
	}
	return false
}

type AlertPriority string

const (
	PriorityLow    AlertPriority = "low"
	PriorityMedium AlertPriority = "medium"
	PriorityHigh   AlertPriority = "high"
	PriorityUrgent AlertPriority = "urgent"
)

func (p AlertPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type RoomStatus string

const (
	RoomFree        RoomStatus = "free"
	RoomOccupied    RoomStatus = "occupied"
	RoomMaintenance RoomStatus = "maintenance"
	RoomReserved    RoomStatus = "reserved"
)

func (s RoomStatus) Valid() bool {
	switch s {
	case RoomFree, RoomOccupied, RoomMaintenance, RoomReserved:
		return true
	}
	return false
}

type PropertyStatus string

const (
	PropertyAvailable       PropertyStatus = "available"
	PropertyPartiallyRented PropertyStatus = "partially_rented"
	PropertyFull            PropertyStatus = "full"
	PropertyMaintenance     PropertyStatus = "maintenance"
)

func (s PropertyStatus) Valid() bool {
	switch s {
	case PropertyAvailable, PropertyPartiallyRented, PropertyFull, PropertyMaintenance:
		return true
	}
	return false
}

type PropertyKind string

const (
	KindApartment  PropertyKind = "apartment"
	KindHouse      PropertyKind = "house"
	KindStudio     PropertyKind = "studio"
	KindCommercial PropertyKind = "commercial"
	KindBuilding   PropertyKind = "building"
)

func (k PropertyKind) Valid() bool {
	switch k {
	case KindApartment, KindHouse, KindStudio, KindCommercial, KindBuilding:
		return true
	}
	return false
}

// Owner is a landlord holding one or more properties.
type Owner struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email,omitempty"`
	Address     string    `json:"address,omitempty"`
	PropertyIDs []string  `json:"property_ids"`
	CreatedAt   time.Time `json:"created_at"`
}

// Room is a rentable unit inside a property, identified by its number.
type Room struct {
	Number     string     `json:"number"`
	Label      string     `json:"label,omitempty"`
	Surface    float64    `json:"surface,omitempty"`
	Rent       int64      `json:"rent"`
	Status     RoomStatus `json:"status"`
	TenantID   string     `json:"tenant_id,omitempty"`
	OccupiedAt *time.Time `json:"occupied_at,omitempty"`
}

// Property is a building or unit that can hold leases.
type Property struct {
	ID             string         `json:"id"`
	OwnerID        string         `json:"owner_id,omitempty"`
	Name           string         `json:"name"`
	Kind           PropertyKind   `json:"kind"`
	Address        string         `json:"address,omitempty"`
	City           string         `json:"city,omitempty"`
	Rooms          []Room         `json:"rooms"`
	Status         PropertyStatus `json:"status"`
	CurrentLeaseID string         `json:"current_lease_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// RoomIndex returns the index of the room with the given number, or -1.
func (p *Property) RoomIndex(number string) int {
	for i := range p.Rooms {
		if p.Rooms[i].Number == number {
			return i
		}
	}
	return -1
}

// OccupiedRooms counts rooms currently occupied.
func (p *Property) OccupiedRooms() int {
	n := 0
	for _, r := range p.Rooms {
		if r.Status == RoomOccupied {
			n++
		}
	}
	return n
}

// Tenant is a person renting space. Balance is payments received minus
// dues incurred; negative means the tenant owes money.
type Tenant struct {
	ID             string     `json:"id"`
	LastName       string     `json:"last_name"`
	FirstName      string     `json:"first_name"`
	Phone          string     `json:"phone,omitempty"`
	Email          string     `json:"email,omitempty"`
	Profession     string     `json:"profession,omitempty"`
	IDNumber       string     `json:"id_number,omitempty"`
	PropertyID     string     `json:"property_id,omitempty"`
	RoomNumber     string     `json:"room_number,omitempty"`
	ActiveLeaseIDs []string   `json:"active_lease_ids"`
	Balance        int64      `json:"balance"`
	Standing       Standing   `json:"standing"`
	NextRentDate   *time.Time `json:"next_rent_date,omitempty"`
	NextRentAmount int64      `json:"next_rent_amount,omitempty"`
	MovedInAt      *time.Time `json:"moved_in_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// FullName joins first and last name.
func (t *Tenant) FullName() string {
	switch {
	case t.FirstName == "":
		return t.LastName
	case t.LastName == "":
		return t.FirstName
	}
	return t.FirstName + " " + t.LastName
}

// Lease binds a tenant to a property (and optionally a room) at a monthly rent.
type Lease struct {
	ID                string          `json:"id"`
	OwnerID           string          `json:"owner_id,omitempty"`
	PropertyID        string          `json:"property_id"`
	TenantID          string          `json:"tenant_id"`
	RoomNumber        string          `json:"room_number,omitempty"`
	MonthlyRent       int64           `json:"monthly_rent"`
	Deposit           int64           `json:"deposit"`
	Advance           int64           `json:"advance,omitempty"`
	StartDate         time.Time       `json:"start_date"`
	EndDate           *time.Time      `json:"end_date,omitempty"`
	DurationMonths    int             `json:"duration_months,omitempty"`
	Status            LeaseStatus     `json:"status"`
	LateFeePercent    decimal.Decimal `json:"late_fee_percent"`
	AutoRenew         bool            `json:"auto_renew"`
	Clauses           []string        `json:"clauses,omitempty"`
	SignedAt          time.Time       `json:"signed_at"`
	TerminationReason string          `json:"termination_reason,omitempty"`
	ClosedAt          *time.Time      `json:"closed_at,omitempty"`
}

// DueItem is one scheduled monthly rent obligation.
type DueItem struct {
	ID            string        `json:"id"`
	LeaseID       string        `json:"lease_id"`
	TenantID      string        `json:"tenant_id"`
	PropertyID    string        `json:"property_id"`
	RoomNumber    string        `json:"room_number,omitempty"`
	Amount        int64         `json:"amount"`
	DueDate       time.Time     `json:"due_date"`
	Paid          int64         `json:"paid"`
	Status        DueStatus     `json:"status"`
	LateFee       int64         `json:"late_fee"`
	Accrued       bool          `json:"accrued"`
	LastPaymentAt *time.Time    `json:"last_payment_at,omitempty"`
	LastMethod    PaymentMethod `json:"last_method,omitempty"`
	LastReference string        `json:"last_reference,omitempty"`
}

// Outstanding is what remains to be paid, never negative.
func (d *DueItem) Outstanding() int64 {
	if d.Paid >= d.Amount {
		return 0
	}
	return d.Amount - d.Paid
}

// Fees are charges collected alongside rent. They are recorded on the
// payment but do not count toward the due item.
type Fees struct {
	Electricity int64            `json:"electricity,omitempty"`
	Water       int64            `json:"water,omitempty"`
	Internet    int64            `json:"internet,omitempty"`
	Cleaning    int64            `json:"cleaning,omitempty"`
	Other       map[string]int64 `json:"other,omitempty"`
}

// Total sums every fee line.
func (f Fees) Total() int64 {
	total := f.Electricity + f.Water + f.Internet + f.Cleaning
	for _, v := range f.Other {
		total += v
	}
	return total
}

func (f Fees) negative() bool {
	if f.Electricity < 0 || f.Water < 0 || f.Internet < 0 || f.Cleaning < 0 {
		return true
	}
	for _, v := range f.Other {
		if v < 0 {
			return true
		}
	}
	return false
}

// Payment is an immutable record of money applied to a due item.
type Payment struct {
	ID             string        `json:"id"`
	DueItemID      string        `json:"due_item_id"`
	LeaseID        string        `json:"lease_id"`
	TenantID       string        `json:"tenant_id"`
	PropertyID     string        `json:"property_id"`
	Amount         int64         `json:"amount"`
	PaidAt         time.Time     `json:"paid_at"`
	Method         PaymentMethod `json:"method"`
	Reference      string        `json:"reference,omitempty"`
	Fees           Fees          `json:"fees"`
	Notes          string        `json:"notes,omitempty"`
	IdempotencyKey string        `json:"idempotency_key,omitempty"`
	RecordedAt     time.Time     `json:"recorded_at"`
}

// Alert is a notification record. Payment-overdue alerts are produced by
// the arrears monitor, keyed by due item.
type Alert struct {
	ID          string        `json:"id"`
	Type        AlertType     `json:"type"`
	Priority    AlertPriority `json:"priority"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	TenantID    string        `json:"tenant_id,omitempty"`
	PropertyID  string        `json:"property_id,omitempty"`
	RoomNumber  string        `json:"room_number,omitempty"`
	LeaseID     string        `json:"lease_id,omitempty"`
	DueItemID   string        `json:"due_item_id,omitempty"`
	DueDate     time.Time     `json:"due_date"`
	DaysOverdue int           `json:"days_overdue"`
	Amount      int64         `json:"amount,omitempty"`
	Actions     []string      `json:"actions,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	Resolved    bool          `json:"resolved"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`
}
