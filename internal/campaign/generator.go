package campaign

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blueteamalpha/prospector/internal/domain"
)

// signature is appended to every rendered body.
const signature = `Best regards,
Blue Team Alpha
Ex-NSA Cyber Operations`

// titlePriority is the fixed tie-break order applied on top of the
// externally supplied contact ranking. Lower index sorts first.
var titlePriority = []string{"CISO", "CTO", "IT DIRECTOR", "SECURITY"}

// Generator renders personalized campaign messages for scored prospects.
type Generator struct {
	engine      *Engine
	maxContacts int
}

// NewGenerator creates a generator producing at most maxContacts messages
// per prospect (default 3).
func NewGenerator(maxContacts int) *Generator {
	if maxContacts <= 0 {
		maxContacts = 3
	}
	return &Generator{
		engine:      NewEngine(),
		maxContacts: maxContacts,
	}
}

// Generate renders one message per ranked contact, up to the contact cap,
// using the template selected by the prospect's primary driver. Each
// message carries the segment and pain score forward for scheduling.
func (g *Generator) Generate(prospect domain.ScoredProspect, org domain.Organization, signals []domain.Signal, contacts []domain.Contact) ([]domain.CampaignMessage, error) {
	templateID := SelectTemplateID(prospect.PrimaryDriver)
	tmpl, ok := TemplateByID(templateID)
	if !ok {
		return nil, fmt.Errorf("no template for driver %s", prospect.PrimaryDriver)
	}

	ranked := rankContacts(contacts)
	if len(ranked) > g.maxContacts {
		ranked = ranked[:g.maxContacts]
	}

	bindings := buildBindings(org, signals)
	now := time.Now().UTC()

	var messages []domain.CampaignMessage
	for _, contact := range ranked {
		bindings["first_name"] = contact.FirstName

		subject, err := g.engine.Render(tmpl.ID+":subject", tmpl.Subject, bindings)
		if err != nil {
			return nil, err
		}
		body, err := g.engine.Render(tmpl.ID+":body", tmpl.Body, bindings)
		if err != nil {
			return nil, err
		}

		messages = append(messages, domain.CampaignMessage{
			ID:              uuid.New().String(),
			OrganizationKey: prospect.OrganizationKey,
			ContactEmail:    contact.Email,
			Channel:         "email",
			TemplateID:      tmpl.ID,
			Subject:         subject,
			Body:            body,
			Segment:         prospect.Segment,
			PainScore:       prospect.PainScore,
			Status:          domain.MessageQueued,
			CreatedAt:       now,
		})
	}
	return messages, nil
}

// buildBindings resolves the placeholder context from the organization and
// its signals. Unresolvable values are left absent; the templates' default
// filters substitute the documented fallback phrases.
func buildBindings(org domain.Organization, signals []domain.Signal) map[string]interface{} {
	bindings := map[string]interface{}{
		"company":   org.DisplayName,
		"industry":  org.Industry,
		"state":     org.Location,
		"signature": signature,
	}

	// Talking points from the longest-open vacancy, when one exists.
	var longest domain.VacancyDetails
	for _, s := range signals {
		if s.Type != domain.SignalVacancy {
			continue
		}
		if v := s.Vacancy(); v.DaysOpen > longest.DaysOpen {
			longest = v
		}
	}
	if longest.Role != "" {
		bindings["role"] = longest.Role
	}
	if longest.DaysOpen > 0 {
		bindings["days_open"] = longest.DaysOpen
	}

	return bindings
}

// rankContacts applies the fixed title-priority tie-break on top of the
// externally supplied ranking. The sort is stable, so contacts with equal
// title priority keep their external order.
func rankContacts(contacts []domain.Contact) []domain.Contact {
	ranked := make([]domain.Contact, len(contacts))
	copy(ranked, contacts)
	sort.SliceStable(ranked, func(i, j int) bool {
		return titleScore(ranked[i].Title) < titleScore(ranked[j].Title)
	})
	return ranked
}

func titleScore(title string) int {
	upper := strings.ToUpper(title)
	for i, p := range titlePriority {
		if strings.Contains(upper, p) {
			return i
		}
	}
	return len(titlePriority)
}
