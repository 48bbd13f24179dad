package campaign

import "github.com/blueteamalpha/prospector/internal/domain"

// Template is one outreach message template. Subject and body are Liquid
// sources; every placeholder carries a default filter so nothing renders
// as a raw token.
type Template struct {
	ID      string
	Subject string
	Body    string
}

// templateForDriver maps a primary driver to its template. breach_cost has
// no dedicated message; dwell_time is the documented default for it and for
// any driver without a mapping.
var templateForDriver = map[domain.Driver]string{
	domain.DriverDwellTime:         "dwell_time",
	domain.DriverSkillsGap:         "skills_gap",
	domain.DriverAfterHours:        "after_hours",
	domain.DriverInsurancePressure: "insurance",
	domain.DriverBreachCost:        "dwell_time",
}

// defaultTemplateID backs drivers with no mapping at all.
const defaultTemplateID = "dwell_time"

// SelectTemplateID returns the template for a primary driver.
func SelectTemplateID(primary domain.Driver) string {
	if id, ok := templateForDriver[primary]; ok {
		return id
	}
	return defaultTemplateID
}

// templates holds the outreach message library, keyed by template ID.
// A dark_web entry exists for operator-curated sends even though no driver
// maps to it directly.
var templates = map[string]Template{
	"dark_web": {
		ID:      "dark_web",
		Subject: `{{ company | default: "Your company" }} credentials found on Russian forum`,
		Body: `Hi {{ first_name | default: "there" }},

Your domain credentials were posted on a Russian-language forum {{ days_ago | default: "3" }} days ago.
The package includes {{ credential_count | default: "47" }} employee emails with passwords, including {{ admin_count | default: "3" }} admin accounts.

The seller claims to have VPN access and is asking ${{ price | default: "4,500" }}. Based on the timestamp,
they've been inside your network for at least {{ dwell_days | default: "11" }} days.

Most victims don't discover breaches for 277 days. You have hours, maybe days, before escalation.

Reply REPORT for the full threat brief.

{{ signature }}`,
	},
	"insurance": {
		ID:      "insurance",
		Subject: `{{ insurer | default: "Chubb" }} denied 3 manufacturers cyber coverage last month`,
		Body: `Hi {{ first_name | default: "there" }},

{{ insurer | default: "Chubb" }} just denied cyber insurance renewals to three manufacturers in {{ state | default: "your state" }}.
All were your size. The reason? No 24/7 threat detection.

Your renewal is in {{ renewal_months | default: "3" }} months. The new requirements:
- Continuous monitoring (not just EDR)
- Sub-30 minute response times documented
- Threat hunting capabilities proven

Without coverage, your board assumes personal liability for any breach.

Reply REQUIREMENTS for the new underwriting checklist.

{{ signature }}`,
	},
	"dwell_time": {
		ID:      "dwell_time",
		Subject: `Attackers spend 277 days in networks like yours`,
		Body: `Hi {{ first_name | default: "there" }},

The average attacker dwells in {{ industry | default: "your industry" }} networks for 277 days before detection.
That's 9 months of stealing IP, installing backdoors, and mapping systems.

Here's what happens during those 277 days:
- Days 1-30: Initial access, reconnaissance
- Days 31-90: Privilege escalation, lateral movement
- Days 91-180: Data identification and staging
- Days 181-277: Exfiltration and monetization

We detect and contain in under 15 minutes. The difference? Ex-NSA operators who think like attackers.

Reply TIMELINE to see where you likely are in this cycle.

{{ signature }}`,
	},
	"after_hours": {
		ID:      "after_hours",
		Subject: `Your security team sleeps 128 hours per week`,
		Body: `Hi {{ first_name | default: "there" }},

Quick question - who's watching your network at 2 AM on Sunday?

76% of ransomware attacks happen outside business hours. For {{ company | default: "your organization" }},
that's {{ uncovered_hours | default: "128" }} hours per week of vulnerability.

Last weekend alone, we stopped 3 ransomware attacks for clients between midnight and 6 AM.
The attackers know when you're not watching.

Your competitors using 24/7 MDR have 8,760 hours of coverage. You have 2,080.

Reply COVERAGE to see your vulnerability windows.

{{ signature }}`,
	},
	"skills_gap": {
		ID:      "skills_gap",
		Subject: `Your {{ role | default: "CISO" }} position has been open for {{ days_open | default: "67" }} days`,
		Body: `Hi {{ first_name | default: "there" }},

I noticed your {{ role | default: "CISO" }} position has been posted for {{ days_open | default: "67" }} days.
The average time to fill a senior security role is now 6 months.

While that position sits empty, you're facing a $1.76M increase in breach risk
(IBM Cost of a Breach Report 2024).

Instead of waiting 6 more months and paying ${{ salary | default: "275" }}K + benefits,
you could have nation-state level security expertise active tomorrow.

Our ex-NSA and DoD operators provide immediate 24/7 coverage while you continue your search.

Reply TEAM to learn how we can cover you starting Monday.

{{ signature }}`,
	},
}

// TemplateByID returns a template from the library.
func TemplateByID(id string) (Template, bool) {
	t, ok := templates[id]
	return t, ok
}
