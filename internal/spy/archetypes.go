package spy

import "strings"

// Thresholds are the visit-count bands for personalization levels.
// Extracted as configuration so they are independently testable and tunable.
type Thresholds struct {
	NewUser  int // below this many visits the device counts as new
	Advanced int // above this many visits personalization is fully on
}

// DefaultThresholds are the production bands
var DefaultThresholds = Thresholds{
	NewUser:  3,
	Advanced: 10,
}

// Archetype labels
const (
	ArchetypeNewUser       = "new_user"
	ArchetypeBasic         = "basic"
	ArchetypeIntermediate  = "intermediate"
	ArchetypeAdvanced      = "advanced"
	ArchetypeBargainHunter = "bargain_hunter"
	ArchetypeExplorer      = "explorer"
)

// ComputeArchetypes derives behavioral labels from accumulated interests and
// visit count. It is a pure function: same profile in, same labels out.
func ComputeArchetypes(p BehaviorProfile, t Thresholds) []string {
	labels := make([]string, 0, 3)

	if p.VisitCount < t.NewUser {
		labels = append(labels, ArchetypeNewUser)
	}

	switch {
	case p.VisitCount > t.Advanced:
		labels = append(labels, ArchetypeAdvanced)
	case p.VisitCount > t.NewUser:
		labels = append(labels, ArchetypeIntermediate)
	default:
		labels = append(labels, ArchetypeBasic)
	}

	// Domain affinity: compare accumulated weight per tag domain
	marketWeight := 0.0
	placesWeight := 0.0
	for tag, w := range p.Interests {
		switch {
		case strings.HasPrefix(tag, "market_"):
			marketWeight += w
		case strings.HasPrefix(tag, "places_"):
			placesWeight += w
		}
	}
	if marketWeight > 0 && marketWeight > placesWeight {
		labels = append(labels, ArchetypeBargainHunter)
	} else if placesWeight > 0 && placesWeight > marketWeight {
		labels = append(labels, ArchetypeExplorer)
	}

	return labels
}
