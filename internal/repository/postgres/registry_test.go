package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueteamalpha/prospector/internal/domain"
	"github.com/blueteamalpha/prospector/internal/registry"
)

func TestGetOrganization(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"organization_key", "display_name", "industry", "employee_count", "location",
		"key_guessed", "scored", "last_scored_at", "created_at", "updated_at",
	}).AddRow("acme.com", "Acme Corp", "healthcare", 6000, "Ohio", false, false, nil, now, now)

	mock.ExpectQuery("SELECT organization_key, display_name").
		WithArgs("acme.com").
		WillReturnRows(rows)

	repo := NewRegistryRepo(db)
	org, err := repo.GetOrganization(context.Background(), "acme.com")
	require.NoError(t, err)

	assert.Equal(t, "acme.com", org.Key)
	assert.Equal(t, "Acme Corp", org.DisplayName)
	assert.Equal(t, 6000, org.EmployeeCount)
	assert.Nil(t, org.LastScoredAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrganizationNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT organization_key, display_name").
		WithArgs("missing.com").
		WillReturnRows(sqlmock.NewRows([]string{"organization_key"}))

	repo := NewRegistryRepo(db)
	_, err = repo.GetOrganization(context.Background(), "missing.com")
	assert.ErrorIs(t, err, registry.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveOrganizationUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	org := &domain.Organization{
		Key: "acme.com", DisplayName: "Acme Corp", Industry: "healthcare",
		EmployeeCount: 6000, Location: "Ohio", CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectExec("INSERT INTO organizations").
		WithArgs(org.Key, org.DisplayName, org.Industry, org.EmployeeCount,
			org.Location, org.KeyGuessed, org.Scored, org.LastScoredAt, org.CreatedAt, org.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewRegistryRepo(db)
	require.NoError(t, repo.SaveOrganization(context.Background(), org))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendSignalAbsorbsConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sig := domain.Signal{
		OrganizationKey: "acme.com",
		Type:            domain.SignalBreach,
		Strength:        0.8,
		ObservedAt:      time.Now().UTC(),
		Source:          "breach-feed",
	}

	// Duplicate identity key: 0 rows affected, no error surfaced.
	mock.ExpectExec("INSERT INTO signals").
		WithArgs(sig.OrganizationKey, sig.Type, sig.Strength, sig.ObservedAt, sig.Source, []byte(nil)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewRegistryRepo(db)
	require.NoError(t, repo.AppendSignal(context.Background(), sig))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignalsForDecodesPayload(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"organization_key", "signal_type", "strength", "observed_at", "source", "payload",
	}).
		AddRow("acme.com", "vacancy", 0.5, now, "job-boards", []byte(`{"days_open":94}`)).
		AddRow("acme.com", "breach", 0.8, now, "breach-feed", []byte("null"))

	mock.ExpectQuery("SELECT organization_key, signal_type").
		WithArgs("acme.com").
		WillReturnRows(rows)

	repo := NewRegistryRepo(db)
	sigs, err := repo.SignalsFor(context.Background(), "acme.com")
	require.NoError(t, err)
	require.Len(t, sigs, 2)

	assert.Equal(t, 94, sigs[0].Vacancy().DaysOpen)
	assert.Nil(t, sigs[1].Payload)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkScoredNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Now().UTC()
	mock.ExpectExec("UPDATE organizations").
		WithArgs("missing.com", at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewRegistryRepo(db)
	err = repo.MarkScored(context.Background(), "missing.com", at)
	assert.ErrorIs(t, err, registry.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUnscored(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"organization_key", "display_name", "industry", "employee_count", "location",
		"key_guessed", "scored", "last_scored_at", "created_at", "updated_at",
	}).
		AddRow("a.com", "", "", 100, "", false, false, nil, now, now).
		AddRow("b.com", "", "", 200, "", false, true, now.Add(-48*time.Hour), now, now)

	mock.ExpectQuery("SELECT organization_key, display_name").
		WillReturnRows(rows)

	repo := NewRegistryRepo(db)
	orgs, err := repo.ListUnscored(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Len(t, orgs, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
