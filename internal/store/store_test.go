package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/adapter"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/domain"
)

// RunRepositoryTests runs the shared repository contract against an implementation.
// initRepo must return a repository with empty collections.
func RunRepositoryTests(t *testing.T, initRepo func(t *testing.T) Repository) {
	t.Run("AddressLifecycle", func(t *testing.T) {
		testAddressLifecycle(t, initRepo(t))
	})
	t.Run("ResidentRoundTrip", func(t *testing.T) {
		testResidentRoundTrip(t, initRepo(t))
	})
	t.Run("ConsentFilter", func(t *testing.T) {
		testConsentFilter(t, initRepo(t))
	})
	t.Run("Pagination", func(t *testing.T) {
		testPagination(t, initRepo(t))
	})
	t.Run("MissingRecords", func(t *testing.T) {
		testMissingRecords(t, initRepo(t))
	})
}

func testAddressLifecycle(t *testing.T, repo Repository) {
	ctx := context.Background()
	lat := 39.01

	created, err := repo.Addresses().Create(ctx, domain.Address{ExternalID: "A1", Street: "5 Oak Ct", City: "Broadlands", State: "VA", Zip: "20148", Lat: &lat})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	items, err := Snapshot(ctx, repo.Addresses(), nil, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "5 Oak Ct", items[0].Street)
	require.NotNil(t, items[0].Lat)
	assert.InDelta(t, lat, *items[0].Lat, 1e-9)

	created.Street = "5 Oak Court"
	updated, err := repo.Addresses().Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "5 Oak Court", updated.Street)
	assert.Equal(t, created.ID, updated.ID)

	deleted, err := repo.Addresses().Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "5 Oak Court", deleted.Street)

	items, err = Snapshot(ctx, repo.Addresses(), nil, 10)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func testResidentRoundTrip(t *testing.T, repo Repository) {
	ctx := context.Background()
	signedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	created, err := repo.Residents().Create(ctx, domain.Resident{
		PersonID:   "101",
		AddressID:  "a-1",
		FirstName:  "Jane",
		LastName:   "Doe",
		CellPhone:  "555-0101",
		WorkPhone:  "555-0199",
		IsAbsentee: true,
	})
	require.NoError(t, err)

	created.ExternalID = "101"
	created.HasSigned = true
	created.SignedAt = &signedAt
	_, err = repo.Residents().Update(ctx, created)
	require.NoError(t, err)

	items, err := Snapshot(ctx, repo.Residents(), Filter{"externalId": "101"}, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)

	r := items[0]
	assert.Equal(t, "101", r.PersonID)
	assert.Equal(t, "555-0101", r.CellPhone)
	assert.Equal(t, "555-0199", r.WorkPhone)
	assert.Empty(t, r.UnitPhone)
	assert.True(t, r.IsAbsentee)
	assert.True(t, r.HasSigned)
	require.NotNil(t, r.SignedAt)
	assert.True(t, signedAt.Equal(*r.SignedAt))
}

func testConsentFilter(t *testing.T, repo Repository) {
	ctx := context.Background()
	recordedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for _, c := range []domain.Consent{
		{ResidentID: "r1", AddressID: "a1", RecordedAt: recordedAt, Source: "csv-upload"},
		{ResidentID: "r2", AddressID: "a2", RecordedAt: recordedAt, Source: "csv-upload", Email: "b@x.com"},
		{ResidentID: "r1", AddressID: "a1", RecordedAt: recordedAt.Add(time.Hour), Source: "bulk-upload", Email: "a@x.com"},
	} {
		_, err := repo.Consents().Create(ctx, c)
		require.NoError(t, err)
	}

	items, err := Snapshot(ctx, repo.Consents(), Filter{"residentId": "r1"}, 1)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	for _, c := range items {
		assert.Equal(t, "r1", c.ResidentID)
	}

	items, err = Snapshot(ctx, repo.Consents(), Filter{"residentId": "r1", "source": "bulk-upload"}, 100)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a@x.com", items[0].Email)
}

func testPagination(t *testing.T, repo Repository) {
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		_, err := repo.Addresses().Create(ctx, domain.Address{Street: "1 Main St", City: "Ashburn"})
		require.NoError(t, err)
	}

	page, err := repo.Addresses().List(ctx, nil, 3, "")
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.NotEmpty(t, page.NextToken)

	seen := make(map[string]bool)
	for a, err := range All(ctx, repo.Addresses(), nil, 3) {
		require.NoError(t, err)
		assert.False(t, seen[a.ID], "duplicate %s", a.ID)
		seen[a.ID] = true
	}
	assert.Len(t, seen, 7)
}

func testMissingRecords(t *testing.T, repo Repository) {
	ctx := context.Background()

	_, err := repo.Consents().Update(ctx, domain.Consent{ID: "00000000-0000-0000-0000-000000000000", ResidentID: "r1"})
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)

	_, err = repo.Residents().Delete(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestMemoryRepository(t *testing.T) {
	RunRepositoryTests(t, func(t *testing.T) Repository {
		return NewMemoryRepository()
	})
}

func TestMemoryCollection_FailWith(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCollection[domain.Consent]("consent", domain.Consent{ID: "c1", ResidentID: "r1"})
	c.FailWith(func(op Mutation, item domain.Consent) error {
		if op == MutationDelete {
			return assert.AnError
		}
		return nil
	})

	_, err := c.Delete(ctx, "c1")
	assert.ErrorIs(t, err, assert.AnError)
	assert.Len(t, c.Items(), 1)

	_, err = c.Create(ctx, domain.Consent{ID: "c1"})
	assert.Error(t, err)
}

func TestMemoryCollection_SeedAssignsIDs(t *testing.T) {
	c := NewMemoryCollection[domain.Address]("address", domain.Address{Street: "1 Main St"})
	items := c.Items()
	require.Len(t, items, 1)
	assert.NotEmpty(t, items[0].ID)
}

func TestMemoryCollection_InvalidToken(t *testing.T) {
	c := NewMemoryCollection[domain.Address]("address")
	_, err := c.List(context.Background(), nil, 10, "not base64!")
	assert.Error(t, err)
}

func TestLoadMemoryRepository(t *testing.T) {
	seed := `{
		"runId": "01JPB7Y1V7Q0000000000000000",
		"addresses": [{"id": "a1", "street": "12 Elm Street", "city": "Ashburn"}],
		"residents": [{"id": "r1", "addressId": "a1", "firstName": "Ada", "hasSigned": true}, {"addressId": "a1", "firstName": "Alan"}],
		"consents": []
	}`

	repo, err := LoadMemoryRepository(strings.NewReader(seed), adapter.NewJSON())
	require.NoError(t, err)

	residents, err := Snapshot(context.Background(), repo.Residents(), Filter{"addressId": "a1"}, 10)
	require.NoError(t, err)
	require.Len(t, residents, 2)
	assert.Equal(t, "r1", residents[0].ID)
	assert.True(t, residents[0].HasSigned)
	assert.NotEmpty(t, residents[1].ID)
	assert.Empty(t, repo.ConsentCollection.Items())

	_, err = LoadMemoryRepository(strings.NewReader(`{"addresses": {}}`), adapter.NewJSON())
	assert.ErrorContains(t, err, "failed to parse seed")
}
