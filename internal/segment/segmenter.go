// Package segment assigns an organization to exactly one outreach segment
// via ordered rule evaluation: the first matching rule wins, so no two
// rules can ever be ambiguous. Assignment is a pure function of the signal
// set, the component scores, and the fixed rule order.
package segment

import (
	"time"

	"github.com/blueteamalpha/prospector/internal/domain"
	"github.com/blueteamalpha/prospector/internal/scoring"
)

// Thresholds are the rule cut-offs, externally configurable with the
// documented defaults.
type Thresholds struct {
	BreachWindowDays   int
	SkillsGapThreshold float64
	InsuranceThreshold float64
	DwellThreshold     float64
	SmallBusinessMax   int
}

// DefaultThresholds are the documented production cut-offs.
var DefaultThresholds = Thresholds{
	BreachWindowDays:   90,
	SkillsGapThreshold: 0.7,
	InsuranceThreshold: 0.7,
	DwellThreshold:     0.6,
	SmallBusinessMax:   500,
}

// Assign evaluates the rules in priority order and returns the single
// matching segment. Rule order follows observed conversion rates: a fresh
// breach outranks every score-derived rule.
func Assign(org domain.Organization, signals []domain.Signal, components map[domain.Driver]float64, t Thresholds, now time.Time) domain.Segment {
	// 1. Post-breach survivors
	if breach, ok := scoring.MostRecentBreach(signals); ok {
		days := int(now.Sub(breach.ObservedAt).Hours() / 24)
		if days < t.BreachWindowDays {
			return domain.SegmentPostBreachSurvivor
		}
	}

	// 2. Skills gap sufferers
	if components[domain.DriverSkillsGap] > t.SkillsGapThreshold {
		return domain.SegmentSkillsGapSufferer
	}

	// 3. Insurance pressured
	if components[domain.DriverInsurancePressure] > t.InsuranceThreshold {
		return domain.SegmentInsurancePressured
	}

	// 4. Resource constrained (high dwell risk)
	if components[domain.DriverDwellTime] > t.DwellThreshold {
		return domain.SegmentResourceConstrained
	}

	// 5. Overwhelmed generalists (SMB default)
	if org.EmployeeCount < t.SmallBusinessMax {
		return domain.SegmentOverwhelmedGeneralist
	}

	// 6. Fallback
	return domain.SegmentGeneralProspect
}

// Recommend maps a pain score to the outreach recommendation band.
func Recommend(painScore float64) domain.Recommendation {
	switch {
	case painScore >= 90:
		return domain.RecommendImmediate
	case painScore >= 75:
		return domain.RecommendHigh
	case painScore >= 60:
		return domain.RecommendMedium
	case painScore >= 45:
		return domain.RecommendLow
	default:
		return domain.RecommendNotQualified
	}
}
