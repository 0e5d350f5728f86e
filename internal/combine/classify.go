// Package combine joins per-species ex-situ and in-situ final conservation
// scores into one comprehensive assessment and assigns conservation
// priority categories.
package combine

// Conservation priority classes over a 0-100 combined score.
const (
	ClassHighPriority          = "HP"
	ClassMediumPriority        = "MP"
	ClassLowPriority           = "LP"
	ClassSufficientlyConserved = "SC"
)

// Classification thresholds. Bands are half-open on the lower bound, so a
// score sitting exactly on a cut point lands in the less urgent band.
const (
	mediumPriorityThreshold        = 25.0
	lowPriorityThreshold           = 50.0
	sufficientlyConservedThreshold = 75.0
)

// Classify returns the conservation priority class for a combined score.
// Rules:
//   - HP: score < 25 (high priority for further conservation action)
//   - MP: 25 <= score < 50
//   - LP: 50 <= score < 75
//   - SC: score >= 75 (sufficiently conserved)
func Classify(score float64) string {
	switch {
	case score < mediumPriorityThreshold:
		return ClassHighPriority
	case score < lowPriorityThreshold:
		return ClassMediumPriority
	case score < sufficientlyConservedThreshold:
		return ClassLowPriority
	default:
		return ClassSufficientlyConserved
	}
}
