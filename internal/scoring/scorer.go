// Package scoring computes the composite pain score for an organization
// from its full signal history. The scorer is a pure function: given a
// fixed signal set and fixed tables it is deterministic, never mutates its
// inputs, and is safe to run concurrently across organizations.
package scoring

import (
	"errors"
	"time"

	"github.com/blueteamalpha/prospector/internal/domain"
)

// ErrMissingBaseData marks an organization that cannot be scored this
// cycle: no signal history and no sizing data to base even the default
// components on. The organization is skipped and retried on the next
// eligible cycle.
var ErrMissingBaseData = errors.New("organization missing required base data")

// Result holds the component scores, weighted total, and primary driver
// for one organization.
type Result struct {
	Components map[domain.Driver]float64
	PainScore  float64
	Primary    domain.Driver
}

// Compute scores an organization against its signal history as of now.
func Compute(org domain.Organization, signals []domain.Signal, w Weights, now time.Time) (Result, error) {
	if len(signals) == 0 && org.EmployeeCount == 0 {
		return Result{}, ErrMissingBaseData
	}

	stack := mergedStack(signals)
	components := map[domain.Driver]float64{
		domain.DriverDwellTime:         dwellScore(signals, stack, now),
		domain.DriverSkillsGap:         skillsGapScore(signals),
		domain.DriverAfterHours:        afterHoursScore(org, stack),
		domain.DriverInsurancePressure: insuranceScore(org, signals),
		domain.DriverBreachCost:        breachCostScore(org),
	}

	var total float64
	for d, c := range components {
		total += w.For(d) * c
	}

	return Result{
		Components: components,
		PainScore:  total * 100,
		Primary:    primaryDriver(components),
	}, nil
}

// primaryDriver returns the argmax component. Ties break toward the driver
// declared earlier in the weight table.
func primaryDriver(components map[domain.Driver]float64) domain.Driver {
	best := domain.Drivers[0]
	bestVal := components[best]
	for _, d := range domain.Drivers[1:] {
		if components[d] > bestVal {
			best, bestVal = d, components[d]
		}
	}
	return best
}

// mergedStack ORs the tooling indicators across all exposure signals: one
// scanner seeing a control is enough evidence it exists.
func mergedStack(signals []domain.Signal) domain.TechStack {
	var stack domain.TechStack
	for _, s := range signals {
		if s.Type != domain.SignalExposure {
			continue
		}
		t := s.Stack()
		stack.HasMDR = stack.HasMDR || t.HasMDR
		stack.HasSIEM = stack.HasSIEM || t.HasSIEM
		stack.HasEDR = stack.HasEDR || t.HasEDR
		stack.HasMSSP = stack.HasMSSP || t.HasMSSP
	}
	return stack
}

// MostRecentBreach returns the newest breach-class signal, if any.
func MostRecentBreach(signals []domain.Signal) (domain.Signal, bool) {
	var best domain.Signal
	found := false
	for _, s := range signals {
		if !s.IsBreachClass() {
			continue
		}
		if !found || s.ObservedAt.After(best.ObservedAt) {
			best = s
			found = true
		}
	}
	return best, found
}

func dwellScore(signals []domain.Signal, stack domain.TechStack, now time.Time) float64 {
	score := 0.0

	if breach, ok := MostRecentBreach(signals); ok {
		days := int(now.Sub(breach.ObservedAt).Hours() / 24)
		switch {
		case days < dwellRecentDays:
			score += dwellRecentScore
		case days < dwellMidDays:
			score += dwellMidScore
		case days < dwellOldDays:
			score += dwellOldScore
		default:
			score += dwellAncientScore
		}
	}

	// Missing-tooling penalties need evidence: only an exposure scan that
	// came back without the control counts as the control being absent.
	if hasType(signals, domain.SignalExposure) {
		if !stack.HasMDR {
			score += noMDRPenalty
		}
		if !stack.HasSIEM {
			score += noSIEMPenalty
		}
		if !stack.HasEDR {
			score += noEDRPenalty
		}
	}

	if hasType(signals, domain.SignalVacancy) {
		score += vacancyDwellAddend
	}

	return domain.Clamp01(score)
}

func skillsGapScore(signals []domain.Signal) float64 {
	score := 0.0
	for _, s := range signals {
		if s.Type != domain.SignalVacancy {
			continue
		}
		v := s.Vacancy()
		switch {
		case v.DaysOpen > vacancyLongDays:
			score += vacancyLongScore
		case v.DaysOpen > vacancyMidDays:
			score += vacancyMidScore
		case v.DaysOpen > vacancyShortDays:
			score += vacancyShortScore
		}
		if v.Executive {
			score += executiveBonus
		}
	}
	return domain.Clamp01(score)
}

func afterHoursScore(org domain.Organization, stack domain.TechStack) float64 {
	score := afterHoursBase
	if stack.HasMDR {
		score -= mdrDeduction
	}
	if stack.HasMSSP {
		score -= msspDeduction
	}
	if highRiskIndustries[org.Industry] {
		score += highRiskIndAddend
	}
	return domain.Clamp01(score)
}

func insuranceScore(org domain.Organization, signals []domain.Signal) float64 {
	score := 0.0
	if _, ok := MostRecentBreach(signals); ok {
		score += breachHistoryAddend
	}
	if regulatedIndustries[org.Industry] {
		score += regulatedIndAddend
	}
	if hasType(signals, domain.SignalCompliance) {
		score += complianceSignalAddend
	}
	return domain.Clamp01(score)
}

func breachCostScore(org domain.Organization) float64 {
	var base float64
	switch {
	case org.EmployeeCount > employeesTier3:
		base = breachCostTier3
	case org.EmployeeCount > employeesTier2:
		base = breachCostTier2
	case org.EmployeeCount > employeesTier1:
		base = breachCostTier1
	default:
		base = breachCostBase
	}

	mult, ok := industryMultipliers[org.Industry]
	if !ok {
		mult = 1.0
	}
	return domain.Clamp01(base * mult)
}

func hasType(signals []domain.Signal, t domain.SignalType) bool {
	for _, s := range signals {
		if s.Type == t {
			return true
		}
	}
	return false
}
