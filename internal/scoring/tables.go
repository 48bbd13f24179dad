package scoring

import "github.com/blueteamalpha/prospector/internal/domain"

// Dwell-time decay buckets: days since the most recent breach-class signal.
const (
	dwellRecentDays   = 30
	dwellMidDays      = 90
	dwellOldDays      = 180
	dwellRecentScore  = 0.9
	dwellMidScore     = 0.7
	dwellOldScore     = 0.5
	dwellAncientScore = 0.3
)

// Tooling penalties added to dwell risk when baseline detection is absent.
const (
	noMDRPenalty  = 0.3
	noSIEMPenalty = 0.2
	noEDRPenalty  = 0.2
)

// Open vacancies imply thinner coverage regardless of role age.
const vacancyDwellAddend = 0.2

// Skills-gap increments by how long a vacancy has been open.
const (
	vacancyLongDays   = 90
	vacancyMidDays    = 60
	vacancyShortDays  = 30
	vacancyLongScore  = 0.4
	vacancyMidScore   = 0.3
	vacancyShortScore = 0.2
	executiveBonus    = 0.2
)

// After-hours exposure: base assumption minus managed-coverage deductions.
const (
	afterHoursBase    = 0.5
	mdrDeduction      = 0.4
	msspDeduction     = 0.3
	highRiskIndAddend = 0.2
)

// Insurance pressure increments.
const (
	breachHistoryAddend    = 0.4
	regulatedIndAddend     = 0.3
	complianceSignalAddend = 0.3
)

// Breach-cost base by employee-count bracket.
const (
	employeesTier3  = 5000
	employeesTier2  = 1000
	employeesTier1  = 500
	breachCostTier3 = 0.8
	breachCostTier2 = 0.6
	breachCostTier1 = 0.4
	breachCostBase  = 0.3
)

// highRiskIndustries face elevated after-hours targeting.
var highRiskIndustries = map[string]bool{
	"healthcare":              true,
	"finance":                 true,
	"critical_infrastructure": true,
}

// regulatedIndustries carry industry-specific insurance requirements.
var regulatedIndustries = map[string]bool{
	"healthcare": true,
	"finance":    true,
}

// industryMultipliers scale breach-cost impact; unlisted industries use 1.0.
var industryMultipliers = map[string]float64{
	"healthcare":    1.5,
	"finance":       1.3,
	"retail":        1.2,
	"manufacturing": 1.1,
	"technology":    1.1,
}

// Weights is the fixed driver weight table. Values must sum to 1.0; the
// config layer validates that before a table reaches the scorer.
type Weights struct {
	DwellTime         float64
	SkillsGap         float64
	AfterHours        float64
	InsurancePressure float64
	BreachCost        float64
}

// DefaultWeights is the documented production weighting.
var DefaultWeights = Weights{
	DwellTime:         0.35,
	SkillsGap:         0.25,
	AfterHours:        0.15,
	InsurancePressure: 0.15,
	BreachCost:        0.10,
}

// For returns the weight for a driver.
func (w Weights) For(d domain.Driver) float64 {
	switch d {
	case domain.DriverDwellTime:
		return w.DwellTime
	case domain.DriverSkillsGap:
		return w.SkillsGap
	case domain.DriverAfterHours:
		return w.AfterHours
	case domain.DriverInsurancePressure:
		return w.InsurancePressure
	case domain.DriverBreachCost:
		return w.BreachCost
	}
	return 0
}
