package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollection_Stage(t *testing.T) {
	assert.Less(t, CollectionAddress.Stage(), CollectionResident.Stage())
	assert.Less(t, CollectionResident.Stage(), CollectionConsent.Stage())
	assert.Greater(t, Collection("vote").Stage(), CollectionConsent.Stage())
}

func TestResident_FieldValue(t *testing.T) {
	r := Resident{
		ID:         "r1",
		PersonID:   "p-1",
		ExternalID: "e-1",
		AddressID:  "a1",
		FirstName:  "Jane",
		LastName:   "Doe",
		IsAbsentee: true,
	}

	tests := []struct {
		field    string
		expected string
		ok       bool
	}{
		{field: "id", expected: "r1", ok: true},
		{field: "personId", expected: "p-1", ok: true},
		{field: "externalId", expected: "e-1", ok: true},
		{field: "addressId", expected: "a1", ok: true},
		{field: "isAbsentee", expected: "true", ok: true},
		{field: "hasSigned", expected: "false", ok: true},
		{field: "nickname", expected: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			value, ok := r.FieldValue(tt.field)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, value)
		})
	}
}

func TestEntity_WithIDDoesNotMutate(t *testing.T) {
	a := Address{Street: "5 Oak Ct"}
	b := a.WithID("a1")

	assert.Empty(t, a.ID)
	assert.Equal(t, "a1", b.EntityID())
	assert.Equal(t, "5 Oak Ct", b.Street)
}

func TestConsent_CreatedTime(t *testing.T) {
	recorded := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	created := time.Date(2025, 8, 2, 12, 0, 0, 0, time.UTC)

	withCreated := Consent{RecordedAt: recorded, CreatedAt: &created}
	assert.Equal(t, created, withCreated.CreatedTime())

	withoutCreated := Consent{RecordedAt: recorded}
	assert.Equal(t, recorded, withoutCreated.CreatedTime())

	zero := time.Time{}
	zeroCreated := Consent{RecordedAt: recorded, CreatedAt: &zero}
	assert.Equal(t, recorded, zeroCreated.CreatedTime())
}

func TestConsent_HasEmail(t *testing.T) {
	assert.True(t, Consent{Email: "a@x.com"}.HasEmail())
	assert.False(t, Consent{Email: "   "}.HasEmail())
	assert.False(t, Consent{}.HasEmail())
}

func TestJoinResidents(t *testing.T) {
	addresses := []Address{
		{ID: "a1", Street: "5 Oak Ct"},
		{ID: "a2", Street: "9 Elm Ave"},
	}
	residents := []Resident{
		{ID: "r1", AddressID: "a2", FirstName: "Jane", LastName: "Doe"},
		{ID: "r2", AddressID: "missing"},
	}

	views := JoinResidents(residents, addresses)
	require.Len(t, views, 2)

	require.NotNil(t, views[0].Address)
	assert.Equal(t, "9 Elm Ave", views[0].Street())
	assert.Equal(t, "Jane Doe at 9 Elm Ave", views[0].Describe())

	assert.Nil(t, views[1].Address)
	assert.Equal(t, "", views[1].Street())
}
