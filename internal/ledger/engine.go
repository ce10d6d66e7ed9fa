package ledger

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/matthewbaird/fadem/internal/clock"
	"github.com/matthewbaird/fadem/internal/event"
	"github.com/matthewbaird/fadem/internal/types"
)

// DefaultLateFeePercent is applied to leases that do not specify one.
var DefaultLateFeePercent = decimal.NewFromInt(2)

// Store persists the dataset as a single document.
type Store interface {
	LoadDataset(ctx context.Context) (*Dataset, error)
	SaveDataset(ctx context.Context, d *Dataset) error
}

// errUnchanged lets a mutation report success without a write.
var errUnchanged = errors.New("ledger: unchanged")

// Engine owns the live dataset. Every mutation runs under one lock against
// a clone of the dataset; the clone replaces the live copy only after it has
// been persisted, so a failed operation leaves no trace.
type Engine struct {
	mu       sync.Mutex
	data     *Dataset
	store    Store
	clock    clock.Clock
	recorder event.Recorder
	logger   *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder sends committed domain events to r.
func WithRecorder(r event.Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine loads the dataset from store and returns an engine over it.
func NewEngine(ctx context.Context, store Store, clk clock.Clock, opts ...Option) (*Engine, error) {
	e := &Engine{store: store, clock: clk, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	if e.clock == nil {
		e.clock = clock.System{}
	}
	d, err := store.LoadDataset(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}
	d.normalize()
	e.data = d
	e.logger = e.logger.Named("ledger")
	e.logger.Info("ledger loaded",
		zap.Int("properties", len(d.Properties)),
		zap.Int("tenants", len(d.Tenants)),
		zap.Int("leases", len(d.Leases)),
		zap.Int("due_items", len(d.DueItems)))
	return e, nil
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time { return e.clock.Now() }

// Currency returns the dataset currency.
func (e *Engine) Currency() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.data.Currency
}

type mutation func(d *Dataset, now time.Time) ([]event.DomainEvent, error)

func (e *Engine) mutate(ctx context.Context, fn mutation) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	next := e.data.Clone()
	before := standings(next)

	// Dues that fell due since the last mutation are posted under the
	// state they fell due in, then again after fn for anything fn added.
	accrued := accrue(next, now)
	events, err := fn(next, now)
	unchanged := errors.Is(err, errUnchanged)
	if err != nil && !unchanged {
		return err
	}
	accrued += accrue(next, now)
	if unchanged && accrued == 0 {
		return nil
	}
	events = append(events, standingEvents(before, next, now)...)

	next.UpdatedAt = now
	if err := e.store.SaveDataset(ctx, next); err != nil {
		return fmt.Errorf("persisting ledger: %w", err)
	}
	e.data = next
	if accrued > 0 {
		e.logger.Debug("dues accrued", zap.Int("count", accrued))
	}
	e.record(ctx, events)
	return nil
}

func (e *Engine) record(ctx context.Context, events []event.DomainEvent) {
	if e.recorder == nil {
		return
	}
	for _, evt := range events {
		if err := e.recorder.Record(ctx, evt); err != nil {
			e.logger.Warn("recording event failed",
				zap.String("event_type", evt.EventType), zap.Error(err))
		}
	}
}

// ── Accrual and derived tenant state ────────────────────────────────────────

// accrue posts every due item that has fallen due to its tenant's balance.
// Items of terminated or expired leases that had not fallen due by closing
// are never posted.
func accrue(d *Dataset, now time.Time) int {
	closed := d.ClosedLeases()
	touched := make(map[int]bool)
	n := 0
	for i := range d.DueItems {
		item := &d.DueItems[i]
		if item.Accrued || item.DueDate.After(now) || Waived(*item, closed) {
			continue
		}
		item.Accrued = true
		n++
		if ti := d.tenantIndex(item.TenantID); ti >= 0 {
			d.Tenants[ti].Balance -= item.Amount
			touched[ti] = true
		}
	}
	for ti := range touched {
		restand(d, ti)
		refreshNextRent(d, ti)
	}
	return n
}

// tenantRent is the monthly rent standing is measured against: the rent of
// the tenant's open lease, else of their most recent lease.
func tenantRent(d *Dataset, tenantID string) int64 {
	var rent int64
	for _, l := range d.Leases {
		if l.TenantID != tenantID {
			continue
		}
		if !l.Status.Closed() {
			return l.MonthlyRent
		}
		rent = l.MonthlyRent
	}
	return rent
}

func restand(d *Dataset, ti int) {
	t := &d.Tenants[ti]
	if t.Standing == StandingDefault {
		return
	}
	t.Standing = DeriveStanding(t.Balance, tenantRent(d, t.ID))
}

// refreshNextRent points the tenant at their earliest unpaid due item on
// an open lease.
func refreshNextRent(d *Dataset, ti int) {
	t := &d.Tenants[ti]
	open := make(map[string]bool)
	for _, l := range d.Leases {
		if l.TenantID == t.ID && !l.Status.Closed() {
			open[l.ID] = true
		}
	}
	var next *DueItem
	for i := range d.DueItems {
		item := &d.DueItems[i]
		if item.TenantID != t.ID || item.Status == DuePaid || !open[item.LeaseID] {
			continue
		}
		if next == nil || item.DueDate.Before(next.DueDate) {
			next = item
		}
	}
	if next == nil {
		t.NextRentDate = nil
		t.NextRentAmount = 0
		return
	}
	due := next.DueDate
	t.NextRentDate = &due
	t.NextRentAmount = next.Outstanding()
}

func standings(d *Dataset) map[string]Standing {
	m := make(map[string]Standing, len(d.Tenants))
	for _, t := range d.Tenants {
		m[t.ID] = t.Standing
	}
	return m
}

func standingEvents(before map[string]Standing, d *Dataset, now time.Time) []event.DomainEvent {
	var events []event.DomainEvent
	for _, t := range d.Tenants {
		prev, ok := before[t.ID]
		if !ok || prev == t.Standing {
			continue
		}
		events = append(events, event.NewStandingChanged(event.StandingChangedPayload{
			TenantID: t.ID,
			Previous: string(prev),
			Current:  string(t.Standing),
			Balance:  types.NewMoney(t.Balance, d.Currency),
		}, now))
	}
	return events
}

// ── Owners, properties, tenants ──────────────────────────────────────────────

// OwnerInput registers a landlord.
type OwnerInput struct {
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

// AddOwner registers a landlord.
func (e *Engine) AddOwner(ctx context.Context, in OwnerInput) (Owner, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Owner{}, invalid("name", "is required")
	}
	var out Owner
	err := e.mutate(ctx, func(d *Dataset, now time.Time) ([]event.DomainEvent, error) {
		out = Owner{
			ID:          uuid.NewString(),
			Name:        strings.TrimSpace(in.Name),
			Phone:       in.Phone,
			Email:       in.Email,
			Address:     in.Address,
			PropertyIDs: []string{},
			CreatedAt:   now,
		}
		d.Owners = append(d.Owners, out)
		return nil, nil
	})
	return out, err
}

// RoomInput describes a room at property registration.
type RoomInput struct {
	Number  string  `json:"number"`
	Label   string  `json:"label,omitempty"`
	Surface float64 `json:"surface,omitempty"`
	Rent    int64   `json:"rent,omitempty"`
}

// PropertyInput registers a property and its rooms.
type PropertyInput struct {
	OwnerID string       `json:"owner_id,omitempty"`
	Name    string       `json:"name"`
	Kind    PropertyKind `json:"kind,omitempty"`
	Address string       `json:"address,omitempty"`
	City    string       `json:"city,omitempty"`
	Rooms   []RoomInput  `json:"rooms,omitempty"`
}

// AddProperty registers a property. All rooms start free.
func (e *Engine) AddProperty(ctx context.Context, in PropertyInput) (Property, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Property{}, invalid("name", "is required")
	}
	if in.Kind == "" {
		in.Kind = KindApartment
	}
	if !in.Kind.Valid() {
		return Property{}, invalid("kind", "unknown property kind %q", in.Kind)
	}
	rooms := make([]Room, 0, len(in.Rooms))
	seen := make(map[string]bool, len(in.Rooms))
	for _, r := range in.Rooms {
		num := strings.TrimSpace(r.Number)
		if num == "" {
			return Property{}, invalid("rooms", "room number is required")
		}
		if seen[num] {
			return Property{}, invalid("rooms", "duplicate room number %q", num)
		}
		if r.Rent < 0 {
			return Property{}, invalid("rooms", "room %s has negative rent", num)
		}
		seen[num] = true
		rooms = append(rooms, Room{Number: num, Label: r.Label, Surface: r.Surface, Rent: r.Rent, Status: RoomFree})
	}

	var out Property
	err := e.mutate(ctx, func(d *Dataset, now time.Time) ([]event.DomainEvent, error) {
		oi := -1
		if in.OwnerID != "" {
			if oi = d.ownerIndex(in.OwnerID); oi < 0 {
				return nil, notFound("owner", in.OwnerID)
			}
		}
		out = Property{
			ID:        uuid.NewString(),
			OwnerID:   in.OwnerID,
			Name:      strings.TrimSpace(in.Name),
			Kind:      in.Kind,
			Address:   in.Address,
			City:      in.City,
			Rooms:     rooms,
			CreatedAt: now,
		}
		out.Status = DerivePropertyStatus(&out)
		d.Properties = append(d.Properties, out)
		if oi >= 0 {
			d.Owners[oi].PropertyIDs = append(d.Owners[oi].PropertyIDs, out.ID)
		}
		return []event.DomainEvent{event.NewPropertyRegistered(event.PropertyRegisteredPayload{
			PropertyID: out.ID,
			OwnerID:    out.OwnerID,
			Name:       out.Name,
			Kind:       string(out.Kind),
			RoomCount:  len(out.Rooms),
		}, now)}, nil
	})
	return out, err
}

// TenantInput carries tenant identity and contact details.
type TenantInput struct {
	LastName   string `json:"last_name"`
	FirstName  string `json:"first_name,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	Profession string `json:"profession,omitempty"`
	IDNumber   string `json:"id_number,omitempty"`
}

// AddTenant registers a tenant with a zero balance.
func (e *Engine) AddTenant(ctx context.Context, in TenantInput) (Tenant, error) {
	if strings.TrimSpace(in.LastName) == "" {
		return Tenant{}, invalid("last_name", "is required")
	}
	var out Tenant
	err := e.mutate(ctx, func(d *Dataset, now time.Time) ([]event.DomainEvent, error) {
		out = Tenant{
			ID:             uuid.NewString(),
			LastName:       strings.TrimSpace(in.LastName),
			FirstName:      strings.TrimSpace(in.FirstName),
			Phone:          in.Phone,
			Email:          in.Email,
			Profession:     in.Profession,
			IDNumber:       in.IDNumber,
			ActiveLeaseIDs: []string{},
			Standing:       StandingCurrent,
			CreatedAt:      now,
		}
		d.Tenants = append(d.Tenants, out)
		return []event.DomainEvent{event.NewTenantRegistered(event.TenantRegisteredPayload{
			TenantID: out.ID,
			FullName: out.FullName(),
			Phone:    out.Phone,
		}, now)}, nil
	})
	return out, err
}

// UpdateTenantContact overwrites the non-empty fields of in. Balance and
// standing are not editable.
func (e *Engine) UpdateTenantContact(ctx context.Context, id string, in TenantInput) (Tenant, error) {
	var out Tenant
	err := e.mutate(ctx, func(d *Dataset, _ time.Time) ([]event.DomainEvent, error) {
		ti := d.tenantIndex(id)
		if ti < 0 {
			return nil, notFound("tenant", id)
		}
		t := &d.Tenants[ti]
		set := func(dst *string, v string) {
			if v = strings.TrimSpace(v); v != "" {
				*dst = v
			}
		}
		set(&t.LastName, in.LastName)
		set(&t.FirstName, in.FirstName)
		set(&t.Phone, in.Phone)
		set(&t.Email, in.Email)
		set(&t.Profession, in.Profession)
		set(&t.IDNumber, in.IDNumber)
		out = *t
		return nil, nil
	})
	return out, err
}

// ── Leases ───────────────────────────────────────────────────────────────────

// LeaseInput describes a lease to sign. Exactly one of EndDate and
// DurationMonths bounds the schedule; EndDate wins when both are set.
type LeaseInput struct {
	PropertyID     string           `json:"property_id"`
	TenantID       string           `json:"tenant_id"`
	RoomNumber     string           `json:"room_number,omitempty"`
	MonthlyRent    int64            `json:"monthly_rent"`
	Deposit        int64            `json:"deposit,omitempty"`
	Advance        int64            `json:"advance,omitempty"`
	StartDate      time.Time        `json:"start_date"`
	EndDate        *time.Time       `json:"end_date,omitempty"`
	DurationMonths int              `json:"duration_months,omitempty"`
	LateFeePercent *decimal.Decimal `json:"late_fee_percent,omitempty"`
	AutoRenew      bool             `json:"auto_renew,omitempty"`
	Clauses        []string         `json:"clauses,omitempty"`
}

// CreateLease signs a lease: it generates the rent schedule, occupies the
// room, recomputes the property status and attaches the lease to the
// tenant. Dues already fallen due (back-dated leases) are posted at once.
func (e *Engine) CreateLease(ctx context.Context, in LeaseInput) (Lease, []DueItem, error) {
	if in.TenantID == "" {
		return Lease{}, nil, invalid("tenant_id", "is required")
	}
	if in.PropertyID == "" {
		return Lease{}, nil, invalid("property_id", "is required")
	}
	if in.Deposit < 0 || in.Advance < 0 {
		return Lease{}, nil, invalid("deposit", "deposit and advance must not be negative")
	}
	lateFee := DefaultLateFeePercent
	if in.LateFeePercent != nil {
		if in.LateFeePercent.IsNegative() {
			return Lease{}, nil, invalid("late_fee_percent", "must not be negative")
		}
		lateFee = *in.LateFeePercent
	}

	var (
		out   Lease
		items []DueItem
	)
	err := e.mutate(ctx, func(d *Dataset, now time.Time) ([]event.DomainEvent, error) {
		ti := d.tenantIndex(in.TenantID)
		if ti < 0 {
			return nil, notFound("tenant", in.TenantID)
		}
		pi := d.propertyIndex(in.PropertyID)
		if pi < 0 {
			return nil, notFound("property", in.PropertyID)
		}
		prop := &d.Properties[pi]

		ri := -1
		switch {
		case in.RoomNumber != "":
			if ri = prop.RoomIndex(in.RoomNumber); ri < 0 {
				return nil, notFound("room", in.RoomNumber)
			}
			if st := prop.Rooms[ri].Status; st == RoomOccupied || st == RoomMaintenance {
				return nil, violation("room_available", "room %s is %s", in.RoomNumber, st)
			}
		case len(prop.Rooms) > 0:
			return nil, invalid("room_number", "is required for a property with rooms")
		case prop.CurrentLeaseID != "":
			return nil, violation("room_available", "property %s is already leased", prop.ID)
		}

		out = Lease{
			ID:             uuid.NewString(),
			OwnerID:        prop.OwnerID,
			PropertyID:     prop.ID,
			TenantID:       in.TenantID,
			RoomNumber:     in.RoomNumber,
			MonthlyRent:    in.MonthlyRent,
			Deposit:        in.Deposit,
			Advance:        in.Advance,
			StartDate:      DateOnly(in.StartDate),
			EndDate:        in.EndDate,
			DurationMonths: in.DurationMonths,
			Status:         LeaseActive,
			LateFeePercent: lateFee,
			AutoRenew:      in.AutoRenew,
			Clauses:        slices.Clone(in.Clauses),
			SignedAt:       now,
		}
		var err error
		if items, err = GenerateSchedule(out); err != nil {
			return nil, err
		}

		if ri >= 0 {
			occupiedAt := now
			prop.Rooms[ri].Status = RoomOccupied
			prop.Rooms[ri].TenantID = in.TenantID
			prop.Rooms[ri].OccupiedAt = &occupiedAt
		}
		prop.CurrentLeaseID = out.ID
		prop.Status = DerivePropertyStatus(prop)

		t := &d.Tenants[ti]
		t.PropertyID = prop.ID
		t.RoomNumber = in.RoomNumber
		t.ActiveLeaseIDs = append(t.ActiveLeaseIDs, out.ID)
		movedIn := out.StartDate
		t.MovedInAt = &movedIn

		d.Leases = append(d.Leases, out)
		d.DueItems = append(d.DueItems, items...)
		restand(d, ti)
		refreshNextRent(d, ti)

		return []event.DomainEvent{event.NewLeaseSigned(event.LeaseSignedPayload{
			LeaseID:      out.ID,
			PropertyID:   out.PropertyID,
			TenantID:     out.TenantID,
			RoomNumber:   out.RoomNumber,
			StartDate:    out.StartDate,
			MonthlyRent:  types.NewMoney(out.MonthlyRent, d.Currency),
			DueItemCount: len(items),
		}, now)}, nil
	})
	if err != nil {
		return Lease{}, nil, err
	}
	// Return the items as persisted, including accrual flags.
	return out, e.DueItems(DueItemFilter{LeaseID: out.ID}), nil
}

// SetLeaseStatus moves a lease through its lifecycle. Terminating or
// expiring a lease frees its room and detaches it from the tenant.
func (e *Engine) SetLeaseStatus(ctx context.Context, id string, target LeaseStatus, reason string) (Lease, error) {
	if !target.Valid() {
		return Lease{}, invalid("status", "unknown lease status %q", target)
	}
	var out Lease
	err := e.mutate(ctx, func(d *Dataset, now time.Time) ([]event.DomainEvent, error) {
		li := d.leaseIndex(id)
		if li < 0 {
			return nil, notFound("lease", id)
		}
		l := &d.Leases[li]
		from := l.Status
		if err := ValidateTransition(ValidLeaseTransitions, string(from), string(target)); err != nil {
			return nil, err
		}
		l.Status = target
		if target.Closed() {
			closedAt := now
			l.ClosedAt = &closedAt
			l.TerminationReason = reason
			release(d, *l)
		}
		out = *l
		if ti := d.tenantIndex(l.TenantID); ti >= 0 {
			restand(d, ti)
			refreshNextRent(d, ti)
		}
		return []event.DomainEvent{event.NewLeaseStatusChanged(event.LeaseStatusChangedPayload{
			LeaseID:    out.ID,
			PropertyID: out.PropertyID,
			TenantID:   out.TenantID,
			From:       string(from),
			To:         string(target),
			Reason:     reason,
		}, now)}, nil
	})
	return out, err
}

// release frees the room held by a closed lease and detaches it from its tenant.
func release(d *Dataset, l Lease) {
	if pi := d.propertyIndex(l.PropertyID); pi >= 0 {
		p := &d.Properties[pi]
		if l.RoomNumber != "" {
			if ri := p.RoomIndex(l.RoomNumber); ri >= 0 && p.Rooms[ri].TenantID == l.TenantID {
				p.Rooms[ri].Status = RoomFree
				p.Rooms[ri].TenantID = ""
				p.Rooms[ri].OccupiedAt = nil
			}
		}
		if p.CurrentLeaseID == l.ID {
			p.CurrentLeaseID = ""
			for _, other := range d.Leases {
				if other.PropertyID == p.ID && other.ID != l.ID && !other.Status.Closed() {
					p.CurrentLeaseID = other.ID
				}
			}
		}
		p.Status = DerivePropertyStatus(p)
	}
	if ti := d.tenantIndex(l.TenantID); ti >= 0 {
		t := &d.Tenants[ti]
		t.ActiveLeaseIDs = slices.DeleteFunc(t.ActiveLeaseIDs, func(id string) bool { return id == l.ID })
		if t.PropertyID == l.PropertyID && t.RoomNumber == l.RoomNumber {
			t.PropertyID = ""
			t.RoomNumber = ""
		}
	}
}

// SetRoomStatus applies an administrative room status change.
func (e *Engine) SetRoomStatus(ctx context.Context, propertyID, number string, target RoomStatus) (Property, error) {
	if !target.Valid() {
		return Property{}, invalid("status", "unknown room status %q", target)
	}
	var out Property
	err := e.mutate(ctx, func(d *Dataset, _ time.Time) ([]event.DomainEvent, error) {
		pi := d.propertyIndex(propertyID)
		if pi < 0 {
			return nil, notFound("property", propertyID)
		}
		p := &d.Properties[pi]
		ri := p.RoomIndex(number)
		if ri < 0 {
			return nil, notFound("room", number)
		}
		if err := ValidateTransition(ValidRoomTransitions, string(p.Rooms[ri].Status), string(target)); err != nil {
			return nil, err
		}
		p.Rooms[ri].Status = target
		p.Status = DerivePropertyStatus(p)
		out = *p
		return nil, nil
	})
	return out, err
}

// SetPropertyMaintenance puts a property in or out of maintenance.
func (e *Engine) SetPropertyMaintenance(ctx context.Context, propertyID string, on bool) (Property, error) {
	var out Property
	err := e.mutate(ctx, func(d *Dataset, _ time.Time) ([]event.DomainEvent, error) {
		pi := d.propertyIndex(propertyID)
		if pi < 0 {
			return nil, notFound("property", propertyID)
		}
		p := &d.Properties[pi]
		if on {
			p.Status = PropertyMaintenance
		} else {
			p.Status = PropertyAvailable
			p.Status = DerivePropertyStatus(p)
		}
		out = *p
		return nil, nil
	})
	return out, err
}

// ── Payments ─────────────────────────────────────────────────────────────────

// PaymentInput applies money to a due item. A repeated non-empty
// IdempotencyKey returns the original payment without applying again.
type PaymentInput struct {
	DueItemID      string        `json:"due_item_id"`
	Amount         int64         `json:"amount"`
	PaidAt         time.Time     `json:"paid_at,omitempty"`
	Method         PaymentMethod `json:"method"`
	Reference      string        `json:"reference,omitempty"`
	Fees           Fees          `json:"fees,omitempty"`
	Notes          string        `json:"notes,omitempty"`
	IdempotencyKey string        `json:"idempotency_key,omitempty"`
}

// PaymentResult is the state after a payment was applied.
type PaymentResult struct {
	Payment   Payment `json:"payment"`
	DueItem   DueItem `json:"due_item"`
	Tenant    Tenant  `json:"tenant"`
	Duplicate bool    `json:"duplicate"`
}

// ApplyPayment records a payment against a due item of an active lease,
// recomputes the item status and credits the tenant balance.
func (e *Engine) ApplyPayment(ctx context.Context, in PaymentInput) (PaymentResult, error) {
	if in.Amount <= 0 {
		return PaymentResult{}, invalid("amount", "must be positive, got %d", in.Amount)
	}
	if in.DueItemID == "" {
		return PaymentResult{}, invalid("due_item_id", "is required")
	}
	if !in.Method.Valid() {
		return PaymentResult{}, invalid("method", "unknown payment method %q", in.Method)
	}
	if in.Fees.negative() {
		return PaymentResult{}, invalid("fees", "must not be negative")
	}

	var res PaymentResult
	err := e.mutate(ctx, func(d *Dataset, now time.Time) ([]event.DomainEvent, error) {
		if in.IdempotencyKey != "" {
			for _, p := range d.Payments {
				if p.IdempotencyKey == in.IdempotencyKey {
					res.Payment = p
					res.Duplicate = true
					return nil, errUnchanged
				}
			}
		}

		ii := d.dueItemIndex(in.DueItemID)
		if ii < 0 {
			return nil, notFound("due item", in.DueItemID)
		}
		item := &d.DueItems[ii]
		li := d.leaseIndex(item.LeaseID)
		if li < 0 {
			return nil, notFound("lease", item.LeaseID)
		}
		if st := d.Leases[li].Status; st != LeaseActive {
			return nil, violation("lease_active", "lease %s is %s", item.LeaseID, st)
		}
		ti := d.tenantIndex(item.TenantID)
		if ti < 0 {
			return nil, notFound("tenant", item.TenantID)
		}
		if paid := item.Paid + in.Amount; paid > MaxPaid(item.Amount) {
			return nil, violation("overpayment",
				"paying %d would bring due item to %d, above the %d limit", in.Amount, paid, MaxPaid(item.Amount))
		}

		paidAt := in.PaidAt
		if paidAt.IsZero() {
			paidAt = now
		}
		pay := Payment{
			ID:             uuid.NewString(),
			DueItemID:      item.ID,
			LeaseID:        item.LeaseID,
			TenantID:       item.TenantID,
			PropertyID:     item.PropertyID,
			Amount:         in.Amount,
			PaidAt:         paidAt,
			Method:         in.Method,
			Reference:      in.Reference,
			Fees:           in.Fees,
			Notes:          in.Notes,
			IdempotencyKey: in.IdempotencyKey,
			RecordedAt:     now,
		}
		pay.Fees.Other = maps.Clone(in.Fees.Other)

		item.Paid += in.Amount
		item.Status = DeriveDueStatus(item.Amount, item.Paid)
		item.LastPaymentAt = &paidAt
		item.LastMethod = in.Method
		item.LastReference = in.Reference
		d.Payments = append(d.Payments, pay)

		t := &d.Tenants[ti]
		t.Balance += in.Amount
		restand(d, ti)
		refreshNextRent(d, ti)

		res = PaymentResult{Payment: pay, DueItem: *item, Tenant: *t}
		return []event.DomainEvent{event.NewPaymentReceived(event.PaymentReceivedPayload{
			PaymentID:  pay.ID,
			DueItemID:  item.ID,
			LeaseID:    item.LeaseID,
			PropertyID: item.PropertyID,
			TenantID:   item.TenantID,
			Amount:     types.NewMoney(pay.Amount, d.Currency),
			Method:     string(pay.Method),
			PaidAt:     paidAt,
			Reference:  pay.Reference,
			DueStatus:  string(item.Status),
			NewBalance: types.NewMoney(t.Balance, d.Currency),
			Standing:   string(t.Standing),
		}, now)}, nil
	})
	if err != nil {
		return PaymentResult{}, err
	}

	// Accrual after fn may have moved the tenant; report the committed state.
	e.mu.Lock()
	if ii := e.data.dueItemIndex(res.Payment.DueItemID); ii >= 0 {
		res.DueItem = e.data.DueItems[ii]
	}
	if ti := e.data.tenantIndex(res.Payment.TenantID); ti >= 0 {
		res.Tenant = e.data.Tenants[ti]
	}
	e.mu.Unlock()
	return res, nil
}

// Accrue posts every due item that has fallen due by now. Mutations and
// alert refreshes do this implicitly; it returns the number of items posted.
func (e *Engine) Accrue(ctx context.Context) (int, error) {
	var n int
	err := e.mutate(ctx, func(d *Dataset, _ time.Time) ([]event.DomainEvent, error) {
		// mutate has already posted; count against the live copy.
		n = accruedCount(d) - accruedCount(e.data)
		if n == 0 {
			return nil, errUnchanged
		}
		return nil, nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func accruedCount(d *Dataset) int {
	n := 0
	for _, item := range d.DueItems {
		if item.Accrued {
			n++
		}
	}
	return n
}

// ── Standing administration ──────────────────────────────────────────────────

// MarkTenantDefault flags a tenant as in default. Balance changes no
// longer alter the standing until ClearTenantDefault.
func (e *Engine) MarkTenantDefault(ctx context.Context, id string) (Tenant, error) {
	var out Tenant
	err := e.mutate(ctx, func(d *Dataset, _ time.Time) ([]event.DomainEvent, error) {
		ti := d.tenantIndex(id)
		if ti < 0 {
			return nil, notFound("tenant", id)
		}
		d.Tenants[ti].Standing = StandingDefault
		out = d.Tenants[ti]
		return nil, nil
	})
	return out, err
}

// ClearTenantDefault lifts a default flag and derives standing from the balance.
func (e *Engine) ClearTenantDefault(ctx context.Context, id string) (Tenant, error) {
	var out Tenant
	err := e.mutate(ctx, func(d *Dataset, _ time.Time) ([]event.DomainEvent, error) {
		ti := d.tenantIndex(id)
		if ti < 0 {
			return nil, notFound("tenant", id)
		}
		t := &d.Tenants[ti]
		if t.Standing != StandingDefault {
			return nil, violation("default_marked", "tenant %s is not in default", id)
		}
		t.Standing = StandingCurrent
		restand(d, ti)
		out = *t
		return nil, nil
	})
	return out, err
}

// ── Alerts ───────────────────────────────────────────────────────────────────

// AlertRefresher computes the new alert list from the current dataset.
type AlertRefresher func(now time.Time, d *Dataset) []Alert

// RefreshAlerts posts due accruals, then replaces the alert list with the
// refresher's output. It returns the unresolved alerts.
func (e *Engine) RefreshAlerts(ctx context.Context, refresh AlertRefresher) ([]Alert, error) {
	var out []Alert
	err := e.mutate(ctx, func(d *Dataset, now time.Time) ([]event.DomainEvent, error) {
		previous := make(map[string]bool, len(d.Alerts))
		for _, a := range d.Alerts {
			if !a.Resolved {
				previous[a.ID] = true
			}
		}
		next := refresh(now, d)
		var events []event.DomainEvent
		for _, a := range next {
			if !a.Resolved {
				out = append(out, a)
				if !previous[a.ID] {
					events = append(events, event.NewAlertRaised(alertPayload(a), now))
				}
			}
		}
		if alertsEqual(d.Alerts, next) {
			return nil, errUnchanged
		}
		d.Alerts = next
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ResolveAlert marks an alert resolved. Resolved alerts are kept and
// suppress new overdue alerts for the same due item.
func (e *Engine) ResolveAlert(ctx context.Context, id string) (Alert, error) {
	var out Alert
	err := e.mutate(ctx, func(d *Dataset, now time.Time) ([]event.DomainEvent, error) {
		ai := d.alertIndex(id)
		if ai < 0 {
			return nil, notFound("alert", id)
		}
		a := &d.Alerts[ai]
		if a.Resolved {
			out = *a
			return nil, errUnchanged
		}
		resolvedAt := now
		a.Resolved = true
		a.ResolvedAt = &resolvedAt
		out = *a
		return []event.DomainEvent{event.NewAlertResolved(alertPayload(*a), now)}, nil
	})
	return out, err
}

func alertPayload(a Alert) event.AlertPayload {
	return event.AlertPayload{
		AlertID:     a.ID,
		Type:        string(a.Type),
		Priority:    string(a.Priority),
		Title:       a.Title,
		Description: a.Description,
		TenantID:    a.TenantID,
		PropertyID:  a.PropertyID,
		DueItemID:   a.DueItemID,
		DueDate:     a.DueDate,
		DaysOverdue: a.DaysOverdue,
	}
}

func alertsEqual(a, b []Alert) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.ID != y.ID || x.Priority != y.Priority || x.DaysOverdue != y.DaysOverdue ||
			x.Resolved != y.Resolved || x.Title != y.Title || x.Description != y.Description ||
			x.Amount != y.Amount {
			return false
		}
	}
	return true
}

// ── Bulk replacement ─────────────────────────────────────────────────────────

// Replace swaps the whole dataset, as after an import or restore. The
// dataset is validated first and accruals are posted against it.
func (e *Engine) Replace(ctx context.Context, d *Dataset, source string) error {
	if d == nil {
		return invalid("data", "is required")
	}
	d.normalize()
	if err := d.Validate(); err != nil {
		return err
	}
	return e.mutate(ctx, func(next *Dataset, now time.Time) ([]event.DomainEvent, error) {
		*next = *d.Clone()
		return []event.DomainEvent{event.NewDatasetReplaced(event.DatasetReplacedPayload{
			Source:     source,
			Properties: len(d.Properties),
			Tenants:    len(d.Tenants),
			Leases:     len(d.Leases),
			DueItems:   len(d.DueItems),
		}, now)}, nil
	})
}

func sortedByDueDate(items []DueItem) []DueItem {
	sort.SliceStable(items, func(i, j int) bool { return items[i].DueDate.Before(items[j].DueDate) })
	return items
}
