package pipeline

import (
	"context"
	"fmt"

	"github.com/blueteamalpha/prospector/internal/domain"
)

// FallbackContacts is the ContactSource used when no enrichment
// collaborator is wired in: a single generic security-team address per
// organization, mirroring what the enrichment layer returns before a real
// lookup completes.
type FallbackContacts struct{}

// ContactsFor returns the generic security contact for the organization.
func (FallbackContacts) ContactsFor(_ context.Context, orgKey string) ([]domain.Contact, error) {
	return []domain.Contact{
		{
			Email:     fmt.Sprintf("security@%s", orgKey),
			Name:      "Security Team",
			FirstName: "Security",
			Title:     "Security",
		},
	}, nil
}
