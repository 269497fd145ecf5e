package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/dossier/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleLookup(id, company string, createdAt time.Time) Lookup {
	return Lookup{
		ID:         id,
		Company:    company,
		Country:    "United Kingdom",
		Query:      "Provide the " + company + " details",
		Narrative:  company + " is a bakery.",
		References: "- Registry https://registry.example/" + id,
		Record: model.CompanyRecord{
			PrimaryAddress:        "1 High Street",
			RegistrationNumber:    "01234567",
			LegalForm:             "Ltd",
			Country:               "United Kingdom",
			Town:                  "London",
			RegistrationDate:      "1990-01-01",
			GeneralDetails:        "Bakery",
			DirectorsShareholders: []string{"Jane Doe", "John Roe"},
			LastReportedRevenue:   "£1m",
			Contact:               model.ContactInformation{Email: "info@acme.example"},
		},
		Table:      model.DisplayTable{Fields: []string{"Country"}, Details: []string{"United Kingdom"}},
		Notices:    []model.Notice{{Stage: model.StageQuerying, Message: "Error during research: timeout"}},
		Degraded:   true,
		Score:      65,
		Confidence: "medium",
		CreatedAt:  createdAt,
		Duration:   1500 * time.Millisecond,
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	want := sampleLookup("a1", "Acme Ltd", created)
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, want, *got)
}

func TestStore_SaveReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	l := sampleLookup("a1", "Acme Ltd", time.Now())
	require.NoError(t, s.Save(ctx, l))

	l.Degraded = false
	l.Notices = nil
	require.NoError(t, s.Save(ctx, l))

	got, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, got.Degraded)
	assert.Empty(t, got.Notices)
}

func TestStore_GetMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_SaveRequiresID(t *testing.T) {
	s := openTestStore(t)
	assert.Error(t, s.Save(context.Background(), Lookup{Company: "Acme"}))
}

func TestStore_List(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Save(ctx, sampleLookup("old", "Acme Ltd", base)))
	require.NoError(t, s.Save(ctx, sampleLookup("mid", "Globex", base.Add(time.Hour))))
	require.NoError(t, s.Save(ctx, sampleLookup("new", "ACME LTD", base.Add(2*time.Hour))))

	all, err := s.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "new", all[0].ID)
	assert.Equal(t, "mid", all[1].ID)
	assert.Equal(t, "old", all[2].ID)

	acme, err := s.List(ctx, "acme ltd", 10)
	require.NoError(t, err)
	require.Len(t, acme, 2)
	assert.Equal(t, "new", acme[0].ID)

	limited, err := s.List(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
