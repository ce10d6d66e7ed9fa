// Package types provides value types shared by the ledger, the event log and
// the HTTP layer. They are stored as JSON inside the persisted dataset.
package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultCurrency is used when a dataset or request does not carry one.
const DefaultCurrency = "XOF"

// Money represents a monetary amount in the currency's smallest unit.
// XOF has no minor unit, so Amount is whole francs.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"` // ISO 4217, e.g. "XOF"
}

// NewMoney returns amount in currency, defaulting the currency when empty.
func NewMoney(amount int64, currency string) Money {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{Amount: amount, Currency: currency}
}

// String formats the amount with space-separated thousands, e.g. "50 000 XOF".
func (m Money) String() string {
	return GroupThousands(m.Amount) + " " + m.Currency
}

// GroupThousands renders n with a space every three digits.
func GroupThousands(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(s) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(s[:lead])
	for i := lead; i < len(s); i += 3 {
		b.WriteByte(' ')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// DateRange represents a time period with an optional end.
type DateRange struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end,omitempty"`
}

// Contains reports whether t falls inside the range (start inclusive).
func (r DateRange) Contains(t time.Time) bool {
	if t.Before(r.Start) {
		return false
	}
	return r.End == nil || !t.After(*r.End)
}

// Address is a free-form postal address as captured at property intake.
type Address struct {
	Line1   string `json:"line1"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"` // ISO 3166-1 alpha-2
}

func (a Address) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{a.Line1, a.City, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// SourceRef identifies an entity referenced by a domain event.
type SourceRef struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Role       string `json:"role"` // "subject", "target", "related", "context"
}

func (r SourceRef) String() string {
	return fmt.Sprintf("%s:%s", r.EntityType, ShortID(r.EntityID))
}

// ActivityEntry is a secondary index entry over the domain event log,
// one per entity touched by the event.
type ActivityEntry struct {
	EventID           string          `json:"event_id"`
	EventType         string          `json:"event_type"`
	OccurredAt        time.Time       `json:"occurred_at"`
	IndexedEntityType string          `json:"indexed_entity_type"`
	IndexedEntityID   string          `json:"indexed_entity_id"`
	EntityRole        string          `json:"entity_role"`
	SourceRefs        []SourceRef     `json:"source_refs"`
	Summary           string          `json:"summary"`
	Category          string          `json:"category"` // "lease", "payment", "tenant", "alert", "data"
	Weight            string          `json:"weight"`   // "critical", "major", "minor", "info"
	Polarity          string          `json:"polarity"` // "positive", "negative", "neutral"
	Payload           json.RawMessage `json:"payload"`
}

// ShortID returns the first eight characters of id, or id itself when shorter.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
