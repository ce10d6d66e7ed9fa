package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/matthewbaird/fadem/internal/types"
)

// DomainEvent carries the canonical shape of every domain event.
type DomainEvent struct {
	ID               string
	EventType        string
	OccurredAt       time.Time
	AffectedEntities []types.SourceRef
	Summary          string
	Category         string // "lease", "payment", "tenant", "alert", "data"
	Weight           string // "critical", "major", "minor", "info"
	Polarity         string // "positive", "negative", "neutral"
	Payload          json.RawMessage
}

// Event type names.
const (
	TypePropertyRegistered = "property_registered"
	TypeTenantRegistered   = "tenant_registered"
	TypeLeaseSigned        = "lease_signed"
	TypeLeaseStatusChanged = "lease_status_changed"
	TypePaymentReceived    = "payment_received"
	TypeStandingChanged    = "standing_changed"
	TypeAlertRaised        = "alert_raised"
	TypeAlertResolved      = "alert_resolved"
	TypeDatasetReplaced    = "dataset_replaced"
)

func newID() string { return uuid.New().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// ── Portfolio events ─────────────────────────────────────────────────────────

// PropertyRegisteredPayload carries event-specific data for PropertyRegistered.
type PropertyRegisteredPayload struct {
	PropertyID string `json:"property_id"`
	OwnerID    string `json:"owner_id,omitempty"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	RoomCount  int    `json:"room_count"`
}

func NewPropertyRegistered(p PropertyRegisteredPayload, at time.Time) DomainEvent {
	refs := []types.SourceRef{{EntityType: "property", EntityID: p.PropertyID, Role: "subject"}}
	if p.OwnerID != "" {
		refs = append(refs, types.SourceRef{EntityType: "owner", EntityID: p.OwnerID, Role: "context"})
	}
	return DomainEvent{
		ID:               newID(),
		EventType:        TypePropertyRegistered,
		OccurredAt:       at,
		AffectedEntities: refs,
		Summary:          fmt.Sprintf("Property %q registered with %d room(s)", p.Name, p.RoomCount),
		Category:         "lease",
		Weight:           "info",
		Polarity:         "neutral",
		Payload:          mustJSON(p),
	}
}

// TenantRegisteredPayload carries event-specific data for TenantRegistered.
type TenantRegisteredPayload struct {
	TenantID string `json:"tenant_id"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone,omitempty"`
}

func NewTenantRegistered(p TenantRegisteredPayload, at time.Time) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeTenantRegistered,
		OccurredAt: at,
		AffectedEntities: []types.SourceRef{
			{EntityType: "tenant", EntityID: p.TenantID, Role: "subject"},
		},
		Summary:  fmt.Sprintf("Tenant %s registered", p.FullName),
		Category: "tenant",
		Weight:   "info",
		Polarity: "neutral",
		Payload:  mustJSON(p),
	}
}

// ── Lease events ─────────────────────────────────────────────────────────────

// LeaseSignedPayload carries event-specific data for LeaseSigned.
type LeaseSignedPayload struct {
	LeaseID      string      `json:"lease_id"`
	PropertyID   string      `json:"property_id"`
	TenantID     string      `json:"tenant_id"`
	RoomNumber   string      `json:"room_number,omitempty"`
	StartDate    time.Time   `json:"start_date"`
	MonthlyRent  types.Money `json:"monthly_rent"`
	DueItemCount int         `json:"due_item_count"`
}

func NewLeaseSigned(p LeaseSignedPayload, at time.Time) DomainEvent {
	refs := []types.SourceRef{
		{EntityType: "lease", EntityID: p.LeaseID, Role: "subject"},
		{EntityType: "property", EntityID: p.PropertyID, Role: "context"},
		{EntityType: "tenant", EntityID: p.TenantID, Role: "related"},
	}
	return DomainEvent{
		ID:               newID(),
		EventType:        TypeLeaseSigned,
		OccurredAt:       at,
		AffectedEntities: refs,
		Summary: fmt.Sprintf("Lease %s signed at %s/month, %d due item(s) scheduled",
			types.ShortID(p.LeaseID), p.MonthlyRent, p.DueItemCount),
		Category: "lease",
		Weight:   "major",
		Polarity: "positive",
		Payload:  mustJSON(p),
	}
}

// LeaseStatusChangedPayload carries event-specific data for LeaseStatusChanged.
type LeaseStatusChangedPayload struct {
	LeaseID    string `json:"lease_id"`
	PropertyID string `json:"property_id"`
	TenantID   string `json:"tenant_id"`
	From       string `json:"from"`
	To         string `json:"to"`
	Reason     string `json:"reason,omitempty"`
}

func NewLeaseStatusChanged(p LeaseStatusChangedPayload, at time.Time) DomainEvent {
	polarity := "neutral"
	weight := "minor"
	if p.To == "terminated" {
		polarity = "negative"
		weight = "major"
	}
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeLeaseStatusChanged,
		OccurredAt: at,
		AffectedEntities: []types.SourceRef{
			{EntityType: "lease", EntityID: p.LeaseID, Role: "subject"},
			{EntityType: "property", EntityID: p.PropertyID, Role: "context"},
			{EntityType: "tenant", EntityID: p.TenantID, Role: "related"},
		},
		Summary:  fmt.Sprintf("Lease %s moved from %s to %s", types.ShortID(p.LeaseID), p.From, p.To),
		Category: "lease",
		Weight:   weight,
		Polarity: polarity,
		Payload:  mustJSON(p),
	}
}

// ── Payment events ───────────────────────────────────────────────────────────

// PaymentReceivedPayload carries event-specific data for PaymentReceived.
type PaymentReceivedPayload struct {
	PaymentID  string      `json:"payment_id"`
	DueItemID  string      `json:"due_item_id"`
	LeaseID    string      `json:"lease_id"`
	PropertyID string      `json:"property_id"`
	TenantID   string      `json:"tenant_id"`
	Amount     types.Money `json:"amount"`
	Method     string      `json:"method"`
	PaidAt     time.Time   `json:"paid_at"`
	Reference  string      `json:"reference,omitempty"`
	DueStatus  string      `json:"due_status"`
	NewBalance types.Money `json:"new_balance"`
	Standing   string      `json:"standing"`
}

func NewPaymentReceived(p PaymentReceivedPayload, at time.Time) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypePaymentReceived,
		OccurredAt: at,
		AffectedEntities: []types.SourceRef{
			{EntityType: "due_item", EntityID: p.DueItemID, Role: "subject"},
			{EntityType: "lease", EntityID: p.LeaseID, Role: "context"},
			{EntityType: "property", EntityID: p.PropertyID, Role: "context"},
			{EntityType: "tenant", EntityID: p.TenantID, Role: "related"},
		},
		Summary:  fmt.Sprintf("Payment of %s received on lease %s", p.Amount, types.ShortID(p.LeaseID)),
		Category: "payment",
		Weight:   "minor",
		Polarity: "positive",
		Payload:  mustJSON(p),
	}
}

// StandingChangedPayload carries event-specific data for StandingChanged.
type StandingChangedPayload struct {
	TenantID string      `json:"tenant_id"`
	Previous string      `json:"previous"`
	Current  string      `json:"current"`
	Balance  types.Money `json:"balance"`
}

func NewStandingChanged(p StandingChangedPayload, at time.Time) DomainEvent {
	polarity := "negative"
	if p.Current == "current" {
		polarity = "positive"
	}
	weight := "minor"
	if p.Current == "heavy_arrears" || p.Current == "default" {
		weight = "major"
	}
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeStandingChanged,
		OccurredAt: at,
		AffectedEntities: []types.SourceRef{
			{EntityType: "tenant", EntityID: p.TenantID, Role: "subject"},
		},
		Summary:  fmt.Sprintf("Tenant standing %s -> %s (balance %s)", p.Previous, p.Current, p.Balance),
		Category: "tenant",
		Weight:   weight,
		Polarity: polarity,
		Payload:  mustJSON(p),
	}
}

// ── Alert events ─────────────────────────────────────────────────────────────

// AlertPayload carries event-specific data for AlertRaised and AlertResolved.
type AlertPayload struct {
	AlertID     string    `json:"alert_id"`
	Type        string    `json:"type"`
	Priority    string    `json:"priority"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	TenantID    string    `json:"tenant_id,omitempty"`
	PropertyID  string    `json:"property_id,omitempty"`
	DueItemID   string    `json:"due_item_id,omitempty"`
	DueDate     time.Time `json:"due_date"`
	DaysOverdue int       `json:"days_overdue"`
}

func alertRefs(p AlertPayload) []types.SourceRef {
	refs := []types.SourceRef{{EntityType: "alert", EntityID: p.AlertID, Role: "subject"}}
	if p.DueItemID != "" {
		refs = append(refs, types.SourceRef{EntityType: "due_item", EntityID: p.DueItemID, Role: "target"})
	}
	if p.TenantID != "" {
		refs = append(refs, types.SourceRef{EntityType: "tenant", EntityID: p.TenantID, Role: "related"})
	}
	if p.PropertyID != "" {
		refs = append(refs, types.SourceRef{EntityType: "property", EntityID: p.PropertyID, Role: "context"})
	}
	return refs
}

func NewAlertRaised(p AlertPayload, at time.Time) DomainEvent {
	weight := "minor"
	switch p.Priority {
	case "urgent":
		weight = "critical"
	case "high":
		weight = "major"
	}
	return DomainEvent{
		ID:               newID(),
		EventType:        TypeAlertRaised,
		OccurredAt:       at,
		AffectedEntities: alertRefs(p),
		Summary:          fmt.Sprintf("[%s] %s", p.Priority, p.Title),
		Category:         "alert",
		Weight:           weight,
		Polarity:         "negative",
		Payload:          mustJSON(p),
	}
}

func NewAlertResolved(p AlertPayload, at time.Time) DomainEvent {
	return DomainEvent{
		ID:               newID(),
		EventType:        TypeAlertResolved,
		OccurredAt:       at,
		AffectedEntities: alertRefs(p),
		Summary:          fmt.Sprintf("Alert resolved: %s", p.Title),
		Category:         "alert",
		Weight:           "info",
		Polarity:         "positive",
		Payload:          mustJSON(p),
	}
}

// ── Data events ──────────────────────────────────────────────────────────────

// DatasetReplacedPayload carries event-specific data for DatasetReplaced.
type DatasetReplacedPayload struct {
	Source     string `json:"source"` // "import", "restore", "reset"
	Properties int    `json:"properties"`
	Tenants    int    `json:"tenants"`
	Leases     int    `json:"leases"`
	DueItems   int    `json:"due_items"`
}

func NewDatasetReplaced(p DatasetReplacedPayload, at time.Time) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeDatasetReplaced,
		OccurredAt: at,
		AffectedEntities: []types.SourceRef{
			{EntityType: "dataset", EntityID: p.Source, Role: "subject"},
		},
		Summary: fmt.Sprintf("Dataset replaced from %s: %d properties, %d tenants, %d leases",
			p.Source, p.Properties, p.Tenants, p.Leases),
		Category: "data",
		Weight:   "major",
		Polarity: "neutral",
		Payload:  mustJSON(p),
	}
}
