package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/fadem/internal/clock"
	"github.com/matthewbaird/fadem/internal/event"
)

// memStore keeps the dataset as JSON, like the real repositories do.
type memStore struct {
	mu    sync.Mutex
	data  []byte
	fail  error
	saves int
}

func (s *memStore) LoadDataset(context.Context) (*Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return NewDataset("XOF"), nil
	}
	var d Dataset
	if err := json.Unmarshal(s.data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *memStore) SaveDataset(_ context.Context, d *Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	s.data = b
	s.saves++
	return nil
}

type captureRecorder struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (r *captureRecorder) Record(_ context.Context, evt event.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *captureRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType
	}
	return out
}

type fixture struct {
	engine   *Engine
	clock    *clock.Manual
	store    *memStore
	recorder *captureRecorder
	tenant   Tenant
	property Property
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{clock: clock.NewManual(now), store: &memStore{}, recorder: &captureRecorder{}}
	e, err := NewEngine(ctx, f.store, f.clock, WithRecorder(f.recorder))
	require.NoError(t, err)
	f.engine = e

	owner, err := e.AddOwner(ctx, OwnerInput{Name: "Moussa Ndiaye"})
	require.NoError(t, err)
	f.property, err = e.AddProperty(ctx, PropertyInput{
		OwnerID: owner.ID,
		Name:    "Résidence Fann",
		Kind:    KindBuilding,
		Rooms:   []RoomInput{{Number: "1", Rent: 50000}, {Number: "2", Rent: 60000}},
	})
	require.NoError(t, err)
	f.tenant, err = e.AddTenant(ctx, TenantInput{LastName: "Diop", FirstName: "Awa", Phone: "+221770000000"})
	require.NoError(t, err)
	return f
}

func (f *fixture) lease(t *testing.T, start time.Time, rent int64, months int, room string) (Lease, []DueItem) {
	t.Helper()
	l, items, err := f.engine.CreateLease(context.Background(), LeaseInput{
		PropertyID:     f.property.ID,
		TenantID:       f.tenant.ID,
		RoomNumber:     room,
		MonthlyRent:    rent,
		StartDate:      start,
		DurationMonths: months,
	})
	require.NoError(t, err)
	return l, items
}

func (f *fixture) pay(t *testing.T, dueItemID string, amount int64) PaymentResult {
	t.Helper()
	res, err := f.engine.ApplyPayment(context.Background(), PaymentInput{
		DueItemID: dueItemID,
		Amount:    amount,
		Method:    MethodMobileMoney,
	})
	require.NoError(t, err)
	return res
}

func TestEngine_PartialThenFullPayment(t *testing.T) {
	f := newFixture(t, date(2024, 1, 15))
	lease, items := f.lease(t, date(2024, 1, 15), 50000, 3, "1")

	require.Len(t, items, 3)
	assert.Equal(t, LeaseActive, lease.Status)
	assert.True(t, lease.LateFeePercent.Equal(DefaultLateFeePercent))

	tenant, err := f.engine.Tenant(f.tenant.ID)
	require.NoError(t, err)
	assert.Zero(t, tenant.Balance)
	assert.Equal(t, StandingCurrent, tenant.Standing)
	assert.Equal(t, []string{lease.ID}, tenant.ActiveLeaseIDs)
	require.NotNil(t, tenant.NextRentDate)
	assert.Equal(t, date(2024, 2, 15), *tenant.NextRentDate)

	prop, err := f.engine.Property(f.property.ID)
	require.NoError(t, err)
	assert.Equal(t, PropertyPartiallyRented, prop.Status)
	assert.Equal(t, RoomOccupied, prop.Rooms[0].Status)
	assert.Equal(t, f.tenant.ID, prop.Rooms[0].TenantID)

	f.clock.Set(time.Date(2024, 2, 20, 10, 0, 0, 0, time.UTC))
	res := f.pay(t, items[0].ID, 30000)
	assert.Equal(t, DuePartial, res.DueItem.Status)
	assert.Equal(t, int64(30000), res.DueItem.Paid)
	assert.Equal(t, int64(-20000), res.Tenant.Balance)
	assert.Equal(t, StandingLightArrears, res.Tenant.Standing)

	res = f.pay(t, items[0].ID, 20000)
	assert.Equal(t, DuePaid, res.DueItem.Status)
	assert.Equal(t, int64(50000), res.DueItem.Paid)
	assert.Zero(t, res.Tenant.Balance)
	assert.Equal(t, StandingCurrent, res.Tenant.Standing)
	require.NotNil(t, res.Tenant.NextRentDate)
	assert.Equal(t, date(2024, 3, 15), *res.Tenant.NextRentDate)

	assert.Len(t, f.engine.Payments(PaymentFilter{DueItemID: items[0].ID}), 2)

	types := f.recorder.types()
	assert.Contains(t, types, event.TypeLeaseSigned)
	assert.Contains(t, types, event.TypePaymentReceived)
	assert.Contains(t, types, event.TypeStandingChanged)
}

func TestEngine_PersistsEveryMutation(t *testing.T) {
	f := newFixture(t, date(2024, 1, 15))
	_, items := f.lease(t, date(2024, 1, 15), 50000, 3, "1")
	f.clock.Set(date(2024, 2, 20))
	f.pay(t, items[0].ID, 30000)

	reloaded, err := NewEngine(context.Background(), f.store, f.clock)
	require.NoError(t, err)
	tenant, err := reloaded.Tenant(f.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-20000), tenant.Balance)
	item, err := reloaded.DueItem(items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, DuePartial, item.Status)
	assert.True(t, item.Accrued)
}

func TestEngine_ApplyPaymentRejects(t *testing.T) {
	f := newFixture(t, date(2024, 1, 15))
	_, items := f.lease(t, date(2024, 1, 15), 50000, 3, "1")
	f.clock.Set(date(2024, 2, 20))
	ctx := context.Background()
	before := f.engine.Snapshot()

	_, err := f.engine.ApplyPayment(ctx, PaymentInput{DueItemID: items[0].ID, Amount: 0, Method: MethodCash})
	assert.True(t, IsValidation(err), "zero amount: %v", err)

	_, err = f.engine.ApplyPayment(ctx, PaymentInput{DueItemID: items[0].ID, Amount: -10, Method: MethodCash})
	assert.True(t, IsValidation(err), "negative amount: %v", err)

	_, err = f.engine.ApplyPayment(ctx, PaymentInput{DueItemID: items[0].ID, Amount: 10, Method: "barter"})
	assert.True(t, IsValidation(err), "bad method: %v", err)

	_, err = f.engine.ApplyPayment(ctx, PaymentInput{DueItemID: "missing", Amount: 10, Method: MethodCash})
	assert.True(t, IsNotFound(err), "unknown due item: %v", err)

	_, err = f.engine.ApplyPayment(ctx, PaymentInput{DueItemID: items[0].ID, Amount: 75001, Method: MethodCash})
	assert.True(t, IsInvariant(err), "overpayment: %v", err)

	assert.Equal(t, before, f.engine.Snapshot(), "rejected payments leave no trace")
}

func TestEngine_OverpaymentWithinTolerance(t *testing.T) {
	f := newFixture(t, date(2024, 1, 15))
	_, items := f.lease(t, date(2024, 1, 15), 50000, 3, "1")
	f.clock.Set(date(2024, 2, 20))

	res := f.pay(t, items[0].ID, 75000)
	assert.Equal(t, DuePaid, res.DueItem.Status)
	assert.Equal(t, int64(25000), res.Tenant.Balance)
	assert.Equal(t, StandingCurrent, res.Tenant.Standing)

	_, err := f.engine.ApplyPayment(context.Background(), PaymentInput{DueItemID: items[0].ID, Amount: 1, Method: MethodCash})
	assert.True(t, IsInvariant(err))
}

func TestEngine_PaymentRequiresActiveLease(t *testing.T) {
	f := newFixture(t, date(2024, 1, 15))
	lease, items := f.lease(t, date(2024, 1, 15), 50000, 3, "1")

	_, err := f.engine.SetLeaseStatus(context.Background(), lease.ID, LeaseSuspended, "")
	require.NoError(t, err)

	_, err = f.engine.ApplyPayment(context.Background(), PaymentInput{DueItemID: items[0].ID, Amount: 100, Method: MethodCash})
	assert.True(t, IsInvariant(err), "%v", err)
}

func TestEngine_IdempotentPayment(t *testing.T) {
	f := newFixture(t, date(2024, 1, 15))
	_, items := f.lease(t, date(2024, 1, 15), 50000, 3, "1")
	ctx := context.Background()
	in := PaymentInput{DueItemID: items[0].ID, Amount: 10000, Method: MethodCash, IdempotencyKey: "receipt-42"}

	first, err := f.engine.ApplyPayment(ctx, in)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	saves := f.store.saves
	second, err := f.engine.ApplyPayment(ctx, in)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Payment.ID, second.Payment.ID)
	assert.Equal(t, saves, f.store.saves, "duplicate does not write")

	tenant, _ := f.engine.Tenant(f.tenant.ID)
	assert.Equal(t, int64(10000), tenant.Balance)
	assert.Len(t, f.engine.Payments(PaymentFilter{}), 1)
}

func TestEngine_StoreFailureLeavesStateUntouched(t *testing.T) {
	f := newFixture(t, date(2024, 1, 15))
	_, items := f.lease(t, date(2024, 1, 15), 50000, 3, "1")
	f.clock.Set(date(2024, 2, 20))
	f.store.fail = errors.New("disk full")

	_, err := f.engine.ApplyPayment(context.Background(), PaymentInput{DueItemID: items[0].ID, Amount: 30000, Method: MethodCash})
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk full")

	item, _ := f.engine.DueItem(items[0].ID)
	assert.Zero(t, item.Paid)
	assert.False(t, item.Accrued)
	tenant, _ := f.engine.Tenant(f.tenant.ID)
	assert.Zero(t, tenant.Balance)
	assert.Empty(t, f.engine.Payments(PaymentFilter{}))

	f.store.fail = nil
	res := f.pay(t, items[0].ID, 30000)
	assert.Equal(t, int64(-20000), res.Tenant.Balance)
}

func TestEngine_BalanceIsOrderIndependent(t *testing.T) {
	type step struct {
		item   int
		amount int64
	}
	steps := []step{{0, 10000}, {0, 40000}, {1, 50000}, {2, 25000}}

	run := func(order []step) Tenant {
		f := newFixture(t, date(2024, 1, 15))
		_, items := f.lease(t, date(2024, 1, 15), 50000, 3, "1")
		f.clock.Set(date(2024, 5, 1))
		for _, s := range order {
			f.pay(t, items[s.item].ID, s.amount)
		}
		tenant, err := f.engine.Tenant(f.tenant.ID)
		require.NoError(t, err)
		return tenant
	}

	forward := run(steps)
	reversed := run([]step{steps[3], steps[2], steps[1], steps[0]})

	// paid 125000 against 150000 incurred
	assert.Equal(t, int64(-25000), forward.Balance)
	assert.Equal(t, forward.Balance, reversed.Balance)
	assert.Equal(t, StandingLightArrears, forward.Standing)
	assert.Equal(t, forward.Standing, reversed.Standing)
}

func TestEngine_BackDatedLeaseAccruesImmediately(t *testing.T) {
	f := newFixture(t, date(2024, 5, 1))
	_, items := f.lease(t, date(2024, 1, 15), 50000, 3, "1")

	for _, item := range items {
		assert.True(t, item.Accrued)
	}
	tenant, _ := f.engine.Tenant(f.tenant.ID)
	assert.Equal(t, int64(-150000), tenant.Balance)
	assert.Equal(t, StandingHeavyArrears, tenant.Standing)
}

func TestEngine_Accrue(t *testing.T) {
	f := newFixture(t, date(2024, 1, 15))
	f.lease(t, date(2024, 1, 15), 50000, 3, "1")
	ctx := context.Background()

	n, err := f.engine.Accrue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock.Set(date(2024, 3, 16))
	n, err = f.engine.Accrue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	tenant, _ := f.engine.Tenant(f.tenant.ID)
	assert.Equal(t, int64(-100000), tenant.Balance)
	assert.Equal(t, StandingHeavyArrears, tenant.Standing)

	n, err = f.engine.Accrue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "accrual posts each item once")
}

func TestEngine_CreateLeaseRejects(t *testing.T) {
	f := newFixture(t, date(2024, 1, 15))
	ctx := context.Background()
	base := LeaseInput{
		PropertyID:     f.property.ID,
		TenantID:       f.tenant.ID,
		RoomNumber:     "1",
		MonthlyRent:    50000,
		StartDate:      date(2024, 1, 15),
		DurationMonths: 3,
	}

	in := base
	in.TenantID = ""
	_, _, err := f.engine.CreateLease(ctx, in)
	assert.True(t, IsValidation(err), "%v", err)

	in = base
	in.TenantID = "ghost"
	_, _, err = f.engine.CreateLease(ctx, in)
	assert.True(t, IsNotFound(err), "%v", err)

	in = base
	in.RoomNumber = "99"
	_, _, err = f.engine.CreateLease(ctx, in)
	assert.True(t, IsNotFound(err), "%v", err)

	in = base
	in.RoomNumber = ""
	_, _, err = f.engine.CreateLease(ctx, in)
	assert.True(t, IsValidation(err), "%v", err)

	in = base
	in.MonthlyRent = 0
	_, _, err = f.engine.CreateLease(ctx, in)
	assert.True(t, IsInvariant(err), "%v", err)

	assert.Empty(t, f.engine.Leases(LeaseFilter{}))
	prop, _ := f.engine.Property(f.property.ID)
	assert.Equal(t, RoomFree, prop.Rooms[0].Status, "failed lease does not occupy the room")

	f.lease(t, date(2024, 1, 15), 50000, 3, "1")
	_, _, err = f.engine.CreateLease(ctx, base)
	assert.True(t, IsInvariant(err), "occupied room: %v", err)
}

func TestEngine_TerminateLeaseFreesRoom(t *testing.T) {
	f := newFixture(t, date(2024, 1, 15))
	ctx := context.Background()
	lease, _ := f.lease(t, date(2024, 1, 15), 50000, 3, "1")

	f.clock.Set(date(2024, 2, 20))
	closed, err := f.engine.SetLeaseStatus(ctx, lease.ID, LeaseTerminated, "moved out")
	require.NoError(t, err)
	assert.Equal(t, LeaseTerminated, closed.Status)
	assert.Equal(t, "moved out", closed.TerminationReason)
	require.NotNil(t, closed.ClosedAt)

	prop, _ := f.engine.Property(f.property.ID)
	assert.Equal(t, RoomFree, prop.Rooms[0].Status)
	assert.Empty(t, prop.Rooms[0].TenantID)
	assert.Equal(t, PropertyAvailable, prop.Status)
	assert.Empty(t, prop.CurrentLeaseID)

	tenant, _ := f.engine.Tenant(f.tenant.ID)
	assert.Empty(t, tenant.ActiveLeaseIDs)
	assert.Empty(t, tenant.PropertyID)
	assert.Equal(t, int64(-50000), tenant.Balance, "the February due fell before termination")
	assert.Nil(t, tenant.NextRentDate)

	f.clock.Set(date(2024, 6, 1))
	n, err := f.engine.Accrue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "dues after termination are not incurred")

	_, err = f.engine.SetLeaseStatus(ctx, lease.ID, LeaseActive, "")
	assert.True(t, IsInvariant(err))

	_, err = f.engine.SetLeaseStatus(ctx, "missing", LeaseTerminated, "")
	assert.True(t, IsNotFound(err))

	// The room can be leased again.
	f.lease(t, date(2024, 6, 1), 55000, 12, "1")
}

func TestEngine_DefaultStandingIsSticky(t *testing.T) {
	f := newFixture(t, date(2024, 1, 15))
	ctx := context.Background()
	_, items := f.lease(t, date(2024, 1, 15), 50000, 3, "1")
	f.clock.Set(date(2024, 2, 20))

	tenant, err := f.engine.MarkTenantDefault(ctx, f.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, StandingDefault, tenant.Standing)

	res := f.pay(t, items[0].ID, 50000)
	assert.Zero(t, res.Tenant.Balance)
	assert.Equal(t, StandingDefault, res.Tenant.Standing)

	tenant, err = f.engine.ClearTenantDefault(ctx, f.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, StandingCurrent, tenant.Standing)

	_, err = f.engine.ClearTenantDefault(ctx, f.tenant.ID)
	assert.True(t, IsInvariant(err))
}

func TestEngine_ConcurrentPayments(t *testing.T) {
	f := newFixture(t, date(2024, 1, 15))
	_, items := f.lease(t, date(2024, 1, 15), 50000, 3, "1")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.ApplyPayment(context.Background(), PaymentInput{
				DueItemID: items[0].ID, Amount: 1000, Method: MethodCash,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	item, _ := f.engine.DueItem(items[0].ID)
	assert.Equal(t, int64(20000), item.Paid)
	assert.Len(t, f.engine.Payments(PaymentFilter{DueItemID: items[0].ID}), 20)
	tenant, _ := f.engine.Tenant(f.tenant.ID)
	assert.Equal(t, int64(20000), tenant.Balance)
}

func TestEngine_RoomAndPropertyAdministration(t *testing.T) {
	f := newFixture(t, date(2024, 1, 15))
	ctx := context.Background()

	prop, err := f.engine.SetRoomStatus(ctx, f.property.ID, "2", RoomMaintenance)
	require.NoError(t, err)
	assert.Equal(t, RoomMaintenance, prop.Rooms[1].Status)

	_, _, err = f.engine.CreateLease(ctx, LeaseInput{
		PropertyID: f.property.ID, TenantID: f.tenant.ID, RoomNumber: "2",
		MonthlyRent: 60000, StartDate: date(2024, 1, 15), DurationMonths: 6,
	})
	assert.True(t, IsInvariant(err), "room in maintenance: %v", err)

	f.lease(t, date(2024, 1, 15), 50000, 3, "1")
	_, err = f.engine.SetRoomStatus(ctx, f.property.ID, "1", RoomFree)
	assert.True(t, IsInvariant(err), "occupied rooms change only through leases")

	prop, err = f.engine.SetPropertyMaintenance(ctx, f.property.ID, true)
	require.NoError(t, err)
	assert.Equal(t, PropertyMaintenance, prop.Status)

	prop, err = f.engine.SetPropertyMaintenance(ctx, f.property.ID, false)
	require.NoError(t, err)
	assert.Equal(t, PropertyPartiallyRented, prop.Status)
}

func TestEngine_UpdateTenantContact(t *testing.T) {
	f := newFixture(t, date(2024, 1, 15))
	tenant, err := f.engine.UpdateTenantContact(context.Background(), f.tenant.ID, TenantInput{Phone: "+221771111111"})
	require.NoError(t, err)
	assert.Equal(t, "+221771111111", tenant.Phone)
	assert.Equal(t, "Diop", tenant.LastName)

	_, err = f.engine.UpdateTenantContact(context.Background(), "ghost", TenantInput{Phone: "x"})
	assert.True(t, IsNotFound(err))
}

func TestEngine_RefreshAndResolveAlerts(t *testing.T) {
	f := newFixture(t, date(2024, 1, 15))
	ctx := context.Background()
	_, items := f.lease(t, date(2024, 1, 15), 50000, 3, "1")
	f.clock.Set(date(2024, 2, 20))

	refresher := func(now time.Time, d *Dataset) []Alert {
		var out []Alert
		for _, a := range d.Alerts {
			if a.Resolved {
				out = append(out, a)
			}
		}
		for _, item := range d.DueItems {
			if item.Status != DuePaid && item.DueDate.Before(now) {
				out = append(out, Alert{
					ID: "alert-" + item.ID, Type: AlertPaymentOverdue, Priority: PriorityMedium,
					DueItemID: item.ID, TenantID: item.TenantID, CreatedAt: now,
				})
			}
		}
		return out
	}

	alerts, err := f.engine.RefreshAlerts(ctx, refresher)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, items[0].ID, alerts[0].DueItemID)
	assert.Contains(t, f.recorder.types(), event.TypeAlertRaised)

	saves := f.store.saves
	_, err = f.engine.RefreshAlerts(ctx, refresher)
	require.NoError(t, err)
	assert.Equal(t, saves, f.store.saves, "an unchanged refresh does not write")

	resolved, err := f.engine.ResolveAlert(ctx, alerts[0].ID)
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Empty(t, f.engine.Alerts(false))
	assert.Len(t, f.engine.Alerts(true), 1)

	_, err = f.engine.ResolveAlert(ctx, "missing")
	assert.True(t, IsNotFound(err))
}

func TestEngine_Replace(t *testing.T) {
	f := newFixture(t, date(2024, 1, 15))
	ctx := context.Background()

	bad := NewDataset("XOF")
	bad.Leases = []Lease{{ID: "l1", PropertyID: "p1", TenantID: "t1", MonthlyRent: 100, Status: LeaseActive}}
	err := f.engine.Replace(ctx, bad, "import")
	assert.True(t, IsNotFound(err), "%v", err)
	assert.Len(t, f.engine.Tenants(), 1, "live data untouched")

	empty := NewDataset("EUR")
	require.NoError(t, f.engine.Replace(ctx, empty, "reset"))
	assert.Empty(t, f.engine.Tenants())
	assert.Equal(t, "EUR", f.engine.Currency())
	assert.Contains(t, f.recorder.types(), event.TypeDatasetReplaced)
}

func TestEngine_TenantLedger(t *testing.T) {
	f := newFixture(t, date(2024, 1, 15))
	_, items := f.lease(t, date(2024, 1, 15), 50000, 3, "1")
	f.clock.Set(date(2024, 2, 20))
	f.pay(t, items[0].ID, 50000)

	tl, err := f.engine.TenantLedger(f.tenant.ID)
	require.NoError(t, err)
	assert.Len(t, tl.Leases, 1)
	assert.Len(t, tl.DueItems, 3)
	assert.Len(t, tl.Payments, 1)
	assert.True(t, tl.DueItems[0].DueDate.Before(tl.DueItems[1].DueDate))

	_, err = f.engine.TenantLedger("ghost")
	assert.True(t, IsNotFound(err))
}

func TestEngine_Statistics(t *testing.T) {
	f := newFixture(t, date(2024, 1, 15))
	_, items := f.lease(t, date(2024, 1, 15), 50000, 3, "1")
	f.clock.Set(date(2024, 2, 20))
	f.pay(t, items[0].ID, 30000)

	s := f.engine.Statistics()
	assert.Equal(t, "XOF", s.Currency)
	assert.Equal(t, 1, s.Properties)
	assert.Equal(t, 2, s.Rooms)
	assert.Equal(t, 1, s.OccupiedRooms)
	assert.Equal(t, 1, s.FreeRooms)
	assert.InDelta(t, 50.0, s.OccupancyRate, 0.001)
	assert.Equal(t, 1, s.ActiveLeases)
	assert.Equal(t, int64(50000), s.MonthlyRevenue)
	assert.Equal(t, int64(600000), s.AnnualRevenue)
	assert.Equal(t, int64(30000), s.CollectedMonth)
	assert.Equal(t, int64(100000), s.Pending)
	assert.Equal(t, 1, s.OverdueItems)
	assert.Equal(t, int64(400), s.PotentialLateFees)
	assert.Equal(t, int64(20000), s.ArrearsAmount)
	assert.Equal(t, 1, s.TenantsInArrears)
	assert.Zero(t, s.ExpiringLeases)

	f.clock.Set(date(2024, 3, 20))
	assert.Equal(t, 1, f.engine.Statistics().ExpiringLeases)
}

func TestEngine_StatisticsSkipDuesOfClosedLease(t *testing.T) {
	f := newFixture(t, date(2024, 1, 15))
	ctx := context.Background()
	lease, _ := f.lease(t, date(2024, 1, 15), 50000, 3, "1")

	f.clock.Set(date(2024, 1, 20))
	_, err := f.engine.SetLeaseStatus(ctx, lease.ID, LeaseTerminated, "left early")
	require.NoError(t, err)

	f.clock.Set(date(2024, 6, 1))
	_, err = f.engine.Accrue(ctx)
	require.NoError(t, err)

	tenant, _ := f.engine.Tenant(f.tenant.ID)
	assert.Zero(t, tenant.Balance)
	assert.Equal(t, StandingCurrent, tenant.Standing)

	s := f.engine.Statistics()
	assert.Zero(t, s.OverdueItems, "no due fell before termination")
	assert.Zero(t, s.Pending)
	assert.Zero(t, s.PotentialLateFees)
	assert.Zero(t, s.ArrearsAmount)
	assert.Zero(t, s.ActiveLeases)
}
