package signals

import (
	"sort"
	"time"

	"github.com/matthewbaird/fadem/internal/types"
)

// CategorySummary counts the entries of one category.
type CategorySummary struct {
	Category         string         `json:"category"`
	Count            int            `json:"count"`
	ByWeight         map[string]int `json:"by_weight"`
	ByPolarity       map[string]int `json:"by_polarity"`
	DominantPolarity string         `json:"dominant_polarity"`
	Trend            string         `json:"trend"`
}

// Escalation is a rule that fired.
type Escalation struct {
	Rule     EscalationRule `json:"rule"`
	Count    int            `json:"count"`
	Earliest time.Time      `json:"earliest"`
	Latest   time.Time      `json:"latest"`
}

// Summary is the condensed view of one entity's activity.
type Summary struct {
	EntityType      string                     `json:"entity_type"`
	EntityID        string                     `json:"entity_id"`
	Since           time.Time                  `json:"since"`
	Until           time.Time                  `json:"until"`
	Categories      map[string]CategorySummary `json:"categories"`
	Sentiment       string                     `json:"sentiment"`
	SentimentReason string                     `json:"sentiment_reason"`
	Escalations     []Escalation               `json:"escalations"`
}

// Aggregate summarizes entries between since and until. Rule windows are
// measured back from until.
func Aggregate(entries []types.ActivityEntry, entityType, entityID string, since, until time.Time) Summary {
	categories := make(map[string]*CategorySummary)
	for _, e := range entries {
		cs, ok := categories[e.Category]
		if !ok {
			cs = &CategorySummary{
				Category:   e.Category,
				ByWeight:   make(map[string]int),
				ByPolarity: make(map[string]int),
			}
			categories[e.Category] = cs
		}
		cs.Count++
		cs.ByWeight[e.Weight]++
		cs.ByPolarity[e.Polarity]++
	}

	result := make(map[string]CategorySummary, len(categories))
	for cat, cs := range categories {
		cs.DominantPolarity = dominantPolarity(cs.ByPolarity)
		cs.Trend = trend(entries, cat, since, until)
		result[cat] = *cs
	}

	escalations := Evaluate(entries, until)
	sentiment, reason := sentimentOf(result, escalations)
	return Summary{
		EntityType:      entityType,
		EntityID:        entityID,
		Since:           since,
		Until:           until,
		Categories:      result,
		Sentiment:       sentiment,
		SentimentReason: reason,
		Escalations:     escalations,
	}
}

// Evaluate returns the rules that fire on entries as of now.
func Evaluate(entries []types.ActivityEntry, now time.Time) []Escalation {
	out := []Escalation{}
	for _, rule := range Rules {
		var (
			es Escalation
			ok bool
		)
		switch rule.TriggerType {
		case "count":
			es, ok = countRule(rule, entries, now)
		case "cross_category":
			es, ok = crossCategoryRule(rule, entries, now)
		}
		if ok {
			out = append(out, es)
		}
	}
	return out
}

func inWindow(e types.ActivityEntry, rule EscalationRule, now time.Time) bool {
	return !e.OccurredAt.Before(now.AddDate(0, 0, -rule.WithinDays)) && !e.OccurredAt.After(now)
}

func countRule(rule EscalationRule, entries []types.ActivityEntry, now time.Time) (Escalation, bool) {
	var matching []types.ActivityEntry
	for _, e := range entries {
		if !inWindow(e, rule, now) ||
			(rule.Category != "" && e.Category != rule.Category) ||
			(rule.EventType != "" && e.EventType != rule.EventType) ||
			(rule.Polarity != "" && e.Polarity != rule.Polarity) {
			continue
		}
		matching = append(matching, e)
	}
	if len(matching) < rule.Count {
		return Escalation{}, false
	}
	sort.Slice(matching, func(i, j int) bool { return matching[i].OccurredAt.Before(matching[j].OccurredAt) })
	return Escalation{
		Rule:     rule,
		Count:    len(matching),
		Earliest: matching[0].OccurredAt,
		Latest:   matching[len(matching)-1].OccurredAt,
	}, true
}

func crossCategoryRule(rule EscalationRule, entries []types.ActivityEntry, now time.Time) (Escalation, bool) {
	counts := make(map[string]int)
	var earliest, latest time.Time
	for _, e := range entries {
		if !inWindow(e, rule, now) {
			continue
		}
		for _, req := range rule.Required {
			if e.Category != req.Category || (req.Polarity != "" && e.Polarity != req.Polarity) {
				continue
			}
			counts[req.Category]++
			if earliest.IsZero() || e.OccurredAt.Before(earliest) {
				earliest = e.OccurredAt
			}
			if e.OccurredAt.After(latest) {
				latest = e.OccurredAt
			}
		}
	}
	total := 0
	for _, req := range rule.Required {
		if counts[req.Category] < req.MinCount {
			return Escalation{}, false
		}
		total += counts[req.Category]
	}
	return Escalation{Rule: rule, Count: total, Earliest: earliest, Latest: latest}, true
}

func dominantPolarity(byPolarity map[string]int) string {
	best, bestCount := "", 0
	for _, p := range []string{"negative", "positive", "neutral"} {
		if c := byPolarity[p]; c > bestCount {
			best, bestCount = p, c
		}
	}
	return best
}

// trend compares the volume of a category in the two halves of the window.
func trend(entries []types.ActivityEntry, category string, since, until time.Time) string {
	mid := since.Add(until.Sub(since) / 2)
	var first, second int
	for _, e := range entries {
		if e.Category != category {
			continue
		}
		if e.OccurredAt.Before(mid) {
			first++
		} else {
			second++
		}
	}
	switch {
	case second > first+1:
		return "rising"
	case first > second+1:
		return "falling"
	}
	return "stable"
}

func sentimentOf(categories map[string]CategorySummary, escalations []Escalation) (string, string) {
	for _, e := range escalations {
		if e.Rule.EscalatedWeight == "critical" {
			return "critical", "Escalation: " + e.Rule.Description
		}
	}
	var critical, major, negative, positive int
	for _, cs := range categories {
		critical += cs.ByWeight["critical"]
		major += cs.ByWeight["major"]
		negative += cs.ByPolarity["negative"]
		positive += cs.ByPolarity["positive"]
	}
	switch {
	case critical > 0:
		return "critical", "Critical activity needs attention."
	case len(escalations) > 0 || (major >= 2 && negative > positive) || negative > positive*2:
		return "concerning", "Repeated or predominantly negative activity."
	case negative > positive:
		return "mixed", "More negative than positive activity."
	}
	return "positive", "Activity is predominantly positive or neutral."
}
