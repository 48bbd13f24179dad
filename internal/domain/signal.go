package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// SignalType tags the kind of weakness evidence a signal carries.
// Producers are free to emit new types; unknown types flow through the
// pipeline with default handling rather than a new code path.
type SignalType string

const (
	SignalBreach     SignalType = "breach"
	SignalRansomware SignalType = "ransomware"
	SignalVacancy    SignalType = "vacancy"
	SignalExposure   SignalType = "exposure"
	SignalDarkWeb    SignalType = "dark_web"
	SignalCompliance SignalType = "compliance"
)

// Signal is a single piece of evidence about an organizational weakness.
// Signals are immutable once stored; superseding evidence is appended as a
// new signal, never edited in place.
type Signal struct {
	OrganizationKey string          `json:"organization_key" db:"organization_key"`
	Type            SignalType      `json:"signal_type" db:"signal_type"`
	Strength        float64         `json:"strength" db:"strength"`
	ObservedAt      time.Time       `json:"observed_at" db:"observed_at"`
	Source          string          `json:"source" db:"source"`
	Payload         json.RawMessage `json:"payload,omitempty" db:"payload"`
}

// IdentityKey returns the dedup key for the signal. Two events with the same
// identity key are the same observation regardless of payload differences.
func (s Signal) IdentityKey() string {
	return fmt.Sprintf("%s|%s|%s|%d", s.OrganizationKey, s.Type, s.Source, s.ObservedAt.UTC().Unix())
}

// IsBreachClass reports whether the signal represents breach evidence.
// Ransomware is treated as an (active) breach for scoring and segmentation.
func (s Signal) IsBreachClass() bool {
	return s.Type == SignalBreach || s.Type == SignalRansomware
}

// VacancyDetails are the known payload fields of a vacancy signal.
type VacancyDetails struct {
	Role      string `json:"role"`
	DaysOpen  int    `json:"days_open"`
	Executive bool   `json:"executive"`
}

// Vacancy decodes the payload of a vacancy signal. Missing or malformed
// payloads decode to the zero value; the scorer treats that as a freshly
// opened, non-executive role.
func (s Signal) Vacancy() VacancyDetails {
	var v VacancyDetails
	if len(s.Payload) > 0 {
		json.Unmarshal(s.Payload, &v)
	}
	return v
}

// TechStack are the security-tooling indicators carried by exposure signals.
// Absent indicators are reported as absent tooling.
type TechStack struct {
	HasMDR  bool `json:"has_mdr"`
	HasSIEM bool `json:"has_siem"`
	HasEDR  bool `json:"has_edr"`
	HasMSSP bool `json:"has_mssp"`
}

// Stack decodes tooling indicators from an exposure signal payload.
func (s Signal) Stack() TechStack {
	var t TechStack
	if len(s.Payload) > 0 {
		json.Unmarshal(s.Payload, &t)
	}
	return t
}
