package activity

// WeightOrder maps event weights to numeric severity (lower = more severe).
var WeightOrder = map[string]int{
	"critical": 1,
	"major":    2,
	"minor":    3,
	"info":     4,
}

// WeightSeverity returns the numeric severity of weight; unknown weights rank last.
func WeightSeverity(weight string) int {
	if s, ok := WeightOrder[weight]; ok {
		return s
	}
	return 5
}

// IsAtLeastWeight returns true if actual is at least as severe as minimum.
func IsAtLeastWeight(actual, minimum string) bool {
	return WeightSeverity(actual) <= WeightSeverity(minimum)
}

// weightsAtLeast lists every known weight at least as severe as minimum.
func weightsAtLeast(minimum string) []string {
	max := WeightSeverity(minimum)
	var out []string
	for w, s := range WeightOrder {
		if s <= max {
			out = append(out, w)
		}
	}
	return out
}
