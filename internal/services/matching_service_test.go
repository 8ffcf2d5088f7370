package services

import (
	"testing"

	"github.com/justsurfingit/jobtrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Acme, Inc.", "acme"},
		{"ACME", "acme"},
		{"  Globex Corporation ", "globex"},
		{"Stark Industries LLC", "stark industries"},
		{"Wayne-Enterprises", "wayne enterprises"},
		{"Backend Engineer", "backend engineer"},
		{"Co", "co"}, // a lone suffix word is kept, never stripped to nothing
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, normalizeName(c.in), "normalizeName(%q)", c.in)
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("acme", "acme"))
	assert.Equal(t, 0.0, similarity("acme", ""))
	assert.Greater(t, similarity("acme", "acme labs"), similarity("acme", "globex"))
	assert.GreaterOrEqual(t, similarity("strip", "stripe"), 0.8)
}

func seedApp(t *testing.T, store *StoreService, company, role string) *models.Application {
	t.Helper()
	app, err := store.Create(company, role, models.SourceManual, "")
	require.NoError(t, err)
	return app
}

func TestFindOpenApplicationExact(t *testing.T) {
	db := openTestDB(t)
	store := NewStoreService(db)
	matcher := NewMatcherService(db, 0)

	want := seedApp(t, store, "Acme", "Engineer")
	seedApp(t, store, "Globex", "Engineer")

	got, err := matcher.FindOpenApplication("Acme", "Engineer")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
}

func TestFindOpenApplicationFuzzy(t *testing.T) {
	db := openTestDB(t)
	store := NewStoreService(db)
	matcher := NewMatcherService(db, 0)

	want := seedApp(t, store, "Stripe", "Backend Engineer")

	// Email says "Stripe, Inc." and a slightly different role string.
	got, err := matcher.FindOpenApplication("Stripe, Inc.", "Backend Engineer")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
}

func TestFindOpenApplicationCompanyOnlyWhenRoleUnknown(t *testing.T) {
	db := openTestDB(t)
	store := NewStoreService(db)
	matcher := NewMatcherService(db, 0)

	want := seedApp(t, store, "Acme", "Engineer")

	got, err := matcher.FindOpenApplication("Acme", "")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
}

func TestFindOpenApplicationNoCompanyNoMatch(t *testing.T) {
	db := openTestDB(t)
	store := NewStoreService(db)
	matcher := NewMatcherService(db, 0)

	seedApp(t, store, "Acme", "Engineer")

	got, err := matcher.FindOpenApplication("", "Engineer")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindOpenApplicationDifferentRoleNoMatch(t *testing.T) {
	db := openTestDB(t)
	store := NewStoreService(db)
	matcher := NewMatcherService(db, 0)

	seedApp(t, store, "Acme", "Site Reliability Engineer")

	got, err := matcher.FindOpenApplication("Acme", "Product Manager")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindOpenApplicationSkipsClosed(t *testing.T) {
	db := openTestDB(t)
	store := NewStoreService(db)
	matcher := NewMatcherService(db, 0)
	reconciler := NewReconcilerService(db, store, matcher, 0)

	app := seedApp(t, store, "Acme", "Engineer")
	_, err := reconciler.Move(app.ID, models.StageClosed, models.TriggerManual)
	require.NoError(t, err)

	got, err := matcher.FindOpenApplication("Acme", "Engineer")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindOpenApplicationPrefersCloserMatch(t *testing.T) {
	db := openTestDB(t)
	store := NewStoreService(db)
	matcher := NewMatcherService(db, 0)

	seedApp(t, store, "Acme Labs", "Engineer")
	exact := seedApp(t, store, "Acme", "Engineer")

	got, err := matcher.FindOpenApplication("Acme", "Engineer")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, exact.ID, got.ID)
}
