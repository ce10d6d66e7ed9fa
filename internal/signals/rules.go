// Package signals condenses an entity's activity feed into a payment
// behaviour summary: per-category counts, a trend, escalations and an
// overall sentiment.
package signals

// EscalationRule raises a pattern of activity above the weight of its
// individual entries.
type EscalationRule struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	// TriggerType is "count" or "cross_category".
	TriggerType string `json:"trigger_type"`

	// count rules
	Category  string `json:"category,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Polarity  string `json:"polarity,omitempty"`
	Count     int    `json:"count,omitempty"`

	// cross_category rules
	Required []Requirement `json:"required,omitempty"`

	WithinDays        int    `json:"within_days"`
	EscalatedWeight   string `json:"escalated_weight"`
	RecommendedAction string `json:"recommended_action"`
}

// Requirement is one leg of a cross-category rule.
type Requirement struct {
	Category string `json:"category"`
	Polarity string `json:"polarity,omitempty"`
	MinCount int    `json:"min_count"`
}

// Rules are evaluated by Aggregate in order.
var Rules = []EscalationRule{
	{
		ID:                "overdue_pattern",
		Description:       "Rent overdue three times in six months",
		TriggerType:       "count",
		Category:          "alert",
		EventType:         "alert_raised",
		Count:             3,
		WithinDays:        180,
		EscalatedWeight:   "major",
		RecommendedAction: "Call the tenant and offer a payment plan.",
	},
	{
		ID:                "overdue_acute",
		Description:       "Rent overdue three times in ninety days",
		TriggerType:       "count",
		Category:          "alert",
		EventType:         "alert_raised",
		Count:             3,
		WithinDays:        90,
		EscalatedWeight:   "critical",
		RecommendedAction: "Visit the tenant; consider a formal notice.",
	},
	{
		ID:          "arrears_deepening",
		Description: "Standing worsened while alerts kept coming",
		TriggerType: "cross_category",
		Required: []Requirement{
			{Category: "tenant", Polarity: "negative", MinCount: 2},
			{Category: "alert", Polarity: "negative", MinCount: 2},
		},
		WithinDays:        90,
		EscalatedWeight:   "critical",
		RecommendedAction: "Review the lease for suspension.",
	},
}
