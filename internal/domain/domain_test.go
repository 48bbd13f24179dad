package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignalIdentityKey(t *testing.T) {
	at := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	sig := Signal{OrganizationKey: "acme.com", Type: SignalBreach, Source: "feed", ObservedAt: at}

	assert.Equal(t, "acme.com|breach|feed|1787227200", sig.IdentityKey())

	// Payload differences never change identity.
	withPayload := sig
	withPayload.Payload = json.RawMessage(`{"extra":true}`)
	assert.Equal(t, sig.IdentityKey(), withPayload.IdentityKey())

	// Same instant in another zone is the same observation.
	est := sig
	est.ObservedAt = at.In(time.FixedZone("EST", -5*3600))
	assert.Equal(t, sig.IdentityKey(), est.IdentityKey())
}

func TestSignalIsBreachClass(t *testing.T) {
	assert.True(t, Signal{Type: SignalBreach}.IsBreachClass())
	assert.True(t, Signal{Type: SignalRansomware}.IsBreachClass())
	assert.False(t, Signal{Type: SignalVacancy}.IsBreachClass())
	assert.False(t, Signal{Type: SignalDarkWeb}.IsBreachClass())
}

func TestSignalPayloadDecoding(t *testing.T) {
	sig := Signal{Type: SignalVacancy, Payload: json.RawMessage(`{"role":"CISO","days_open":94,"executive":true}`)}
	v := sig.Vacancy()
	assert.Equal(t, "CISO", v.Role)
	assert.Equal(t, 94, v.DaysOpen)
	assert.True(t, v.Executive)

	// Missing or malformed payloads decode to the zero value.
	assert.Equal(t, VacancyDetails{}, Signal{Type: SignalVacancy}.Vacancy())
	assert.Equal(t, TechStack{}, Signal{Type: SignalExposure, Payload: json.RawMessage(`garbage`)}.Stack())
}

func TestOrganizationMerge(t *testing.T) {
	org := Organization{
		Key: "acme.com", DisplayName: "Acme", Industry: "retail",
		EmployeeCount: 100, KeyGuessed: true,
	}

	org.Merge(Organization{Industry: "manufacturing", EmployeeCount: 250})
	assert.Equal(t, "Acme", org.DisplayName)
	assert.Equal(t, "manufacturing", org.Industry)
	assert.Equal(t, 250, org.EmployeeCount)
	// A merge from an explicit-domain record clears the guessed flag.
	assert.False(t, org.KeyGuessed)

	// Empty fields never erase known values.
	org.Merge(Organization{})
	assert.Equal(t, "Acme", org.DisplayName)
	assert.Equal(t, 250, org.EmployeeCount)
}

func TestMessageIsTerminal(t *testing.T) {
	assert.True(t, CampaignMessage{Status: MessageSent}.IsTerminal())
	assert.True(t, CampaignMessage{Status: MessageFailed}.IsTerminal())
	assert.False(t, CampaignMessage{Status: MessageQueued}.IsTerminal())
	assert.False(t, CampaignMessage{Status: MessageDeferred}.IsTerminal())
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.5))
	assert.Equal(t, 0.42, Clamp01(0.42))
	assert.Equal(t, 1.0, Clamp01(1.7))
}

func TestProspectQualified(t *testing.T) {
	assert.False(t, ScoredProspect{Recommendation: RecommendNotQualified}.Qualified())
	assert.True(t, ScoredProspect{Recommendation: RecommendLow}.Qualified())
	assert.True(t, ScoredProspect{Recommendation: RecommendImmediate}.Qualified())
}
