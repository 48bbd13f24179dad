package domain

import "time"

// Organization is the canonical record for a prospect company, keyed by its
// canonical domain. Created on the first signal referencing an unseen key;
// fields are merged on later updates preferring the most recent non-empty
// value per field.
type Organization struct {
	Key           string     `json:"organization_key" db:"organization_key"`
	DisplayName   string     `json:"display_name" db:"display_name"`
	Industry      string     `json:"industry" db:"industry"`
	EmployeeCount int        `json:"employee_count" db:"employee_count"`
	Location      string     `json:"location" db:"location"`
	KeyGuessed    bool       `json:"key_guessed" db:"key_guessed"`
	Scored        bool       `json:"scored" db:"scored"`
	LastScoredAt  *time.Time `json:"last_scored_at" db:"last_scored_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// Merge folds non-empty fields of other into o, last writer wins per field.
// The key is the identity anchor and is never overwritten.
func (o *Organization) Merge(other Organization) {
	if other.DisplayName != "" {
		o.DisplayName = other.DisplayName
	}
	if other.Industry != "" {
		o.Industry = other.Industry
	}
	if other.EmployeeCount > 0 {
		o.EmployeeCount = other.EmployeeCount
	}
	if other.Location != "" {
		o.Location = other.Location
	}
	if !other.KeyGuessed {
		// An explicitly supplied domain always wins over a guessed one.
		o.KeyGuessed = false
	}
}

// Contact is a ranked outreach recipient for an organization. Ranking is
// supplied by the external enrichment collaborator; the generator only
// applies a fixed title-priority tie-break.
type Contact struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	FirstName string `json:"first_name"`
	Title     string `json:"title"`
}
