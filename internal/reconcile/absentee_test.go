package reconcile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/address"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/domain"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/reconcile"
)

func TestBillingLookup_Find(t *testing.T) {
	lookup := reconcile.BillingLookup{
		"jane doe":  {Street: "5 Oak Ct"},
		"smith bob": {Street: "9 Elm St"},
	}

	b, ok := lookup.Find(domain.Resident{FirstName: " Jane", LastName: "DOE"})
	require.True(t, ok)
	assert.Equal(t, "5 Oak Ct", b.Street)

	b, ok = lookup.Find(domain.Resident{FirstName: "Bob", LastName: "Smith"})
	require.True(t, ok)
	assert.Equal(t, "9 Elm St", b.Street)

	_, ok = lookup.Find(domain.Resident{})
	assert.False(t, ok)
}

func TestAbsentee(t *testing.T) {
	property := &domain.Address{ID: "a1", Street: "5 Oak Ct", City: "Broadlands", State: "VA", Zip: "20148"}
	other := &domain.Address{ID: "a2", Street: "7 Pine Ln", City: "Ashburn", State: "VA", Zip: "20147"}

	lookup := reconcile.BillingLookup{
		"jane doe":  {Street: "5 Oak Court", City: "Ashburn", State: "va", Zip: "20148"},
		"john roe":  {Street: "PO Box 1", City: "Reston", State: "VA", Zip: "20190", IsDifferentFromProperty: true},
		"ann ray":   {Street: "1 Other Rd", City: "Ashburn", State: "VA", Zip: "20147"},
		"sam lee":   {Street: "PO Box 2", City: "Reston", State: "VA", Zip: "20190", IsDifferentFromProperty: true},
		"tom flagg": {Street: "5 Oak Ct", City: "Broadlands", State: "VA", Zip: "20148"},
	}

	views := []domain.ResidentView{
		{Resident: domain.Resident{ID: "r1", FirstName: "Jane", LastName: "Doe", IsAbsentee: true}, Address: property},
		{Resident: domain.Resident{ID: "r2", FirstName: "John", LastName: "Roe", IsAbsentee: true}, Address: property},
		{Resident: domain.Resident{ID: "r3", FirstName: "Ann", LastName: "Ray", IsAbsentee: true}, Address: other},
		{Resident: domain.Resident{ID: "r4", FirstName: "Sam", LastName: "Lee"}, Address: other},
		{Resident: domain.Resident{ID: "r5", FirstName: "No", LastName: "Billing", IsAbsentee: true}, Address: other},
		{Resident: domain.Resident{ID: "r6", FirstName: "Tom", LastName: "Flagg", IsAbsentee: true}},
	}

	result := reconcile.Absentee(views, lookup, address.NewNormalizer(address.DefaultCityEquivalents))

	require.Len(t, result.Clear, 1)
	assert.Equal(t, "r1", result.Clear[0].Resident.ID)
	assert.Equal(t, 1, result.Confirmed)
	require.Len(t, result.Mismatched, 2)
	assert.Equal(t, "r3", result.Mismatched[0].Resident.ID)
	assert.Equal(t, "r6", result.Mismatched[1].Resident.ID)
	require.Len(t, result.Unflagged, 1)
	assert.Equal(t, "r4", result.Unflagged[0].Resident.ID)
	require.Len(t, result.NoBilling, 1)
	assert.Equal(t, "r5", result.NoBilling[0].Resident.ID)
}

func TestSameAddress(t *testing.T) {
	n := address.NewNormalizer(nil)
	property := domain.Address{Street: "1 Main St", City: "Ashburn", State: "VA", Zip: "20147"}

	assert.True(t, reconcile.SameAddress(n, property, domain.BillingAddress{Street: "1 main street", City: "ashburn", State: "VA", Zip: "20147"}))
	assert.False(t, reconcile.SameAddress(n, property, domain.BillingAddress{Street: "1 Main St", City: "Broadlands", State: "VA", Zip: "20147"}))
	assert.False(t, reconcile.SameAddress(n, property, domain.BillingAddress{Street: "1 Main St", City: "Ashburn", State: "VA", Zip: "20148"}))
	assert.False(t, reconcile.SameAddress(n, domain.Address{}, domain.BillingAddress{}))
}
