package domain

import "time"

// Driver names one of the five pain components. Declaration order is the
// fixed weight-table order and breaks primary-driver ties.
type Driver string

const (
	DriverDwellTime         Driver = "dwell_time"
	DriverSkillsGap         Driver = "skills_gap"
	DriverAfterHours        Driver = "after_hours"
	DriverInsurancePressure Driver = "insurance_pressure"
	DriverBreachCost        Driver = "breach_cost"
)

// Drivers lists all components in weight-table order.
var Drivers = []Driver{
	DriverDwellTime,
	DriverSkillsGap,
	DriverAfterHours,
	DriverInsurancePressure,
	DriverBreachCost,
}

// Segment is the single outreach bucket assigned to an organization.
type Segment string

const (
	SegmentPostBreachSurvivor    Segment = "post_breach_survivor"
	SegmentSkillsGapSufferer     Segment = "skills_gap_sufferer"
	SegmentInsurancePressured    Segment = "insurance_pressured"
	SegmentResourceConstrained   Segment = "resource_constrained"
	SegmentOverwhelmedGeneralist Segment = "overwhelmed_generalist"
	SegmentGeneralProspect       Segment = "general_prospect"
)

// Recommendation is the outreach priority derived from the pain score.
type Recommendation string

const (
	RecommendImmediate    Recommendation = "immediate_outreach_priority"
	RecommendHigh         Recommendation = "high_priority_outreach"
	RecommendMedium       Recommendation = "medium_priority_nurture"
	RecommendLow          Recommendation = "low_priority_monitor"
	RecommendNotQualified Recommendation = "not_qualified"
)

// ScoredProspect is the full scoring output for one organization. It is
// recomputed each cycle and fully replaces the previous value; the core
// keeps no score history.
type ScoredProspect struct {
	OrganizationKey string             `json:"organization_key" db:"organization_key"`
	PainScore       float64            `json:"pain_score" db:"pain_score"`
	ComponentScores map[Driver]float64 `json:"component_scores" db:"component_scores"`
	PrimaryDriver   Driver             `json:"primary_driver" db:"primary_driver"`
	Segment         Segment            `json:"segment" db:"segment"`
	Recommendation  Recommendation     `json:"recommendation" db:"recommendation"`
	ComputedAt      time.Time          `json:"computed_at" db:"computed_at"`
}

// Qualified reports whether the prospect clears the outreach bar.
func (p ScoredProspect) Qualified() bool {
	return p.Recommendation != RecommendNotQualified
}
