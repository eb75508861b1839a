package reconcile

import (
	"strings"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/address"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/domain"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/matcher"
)

// BillingLookup maps folded "first last" and "last first" names to billing addresses
type BillingLookup map[string]domain.BillingAddress

// Find looks a resident up by "first last", then "last first"
func (b BillingLookup) Find(r domain.Resident) (domain.BillingAddress, bool) {
	first := matcher.FoldName(r.FirstName)
	last := matcher.FoldName(r.LastName)
	if first == "" && last == "" {
		return domain.BillingAddress{}, false
	}
	if billing, ok := b[strings.TrimSpace(first+" "+last)]; ok {
		return billing, true
	}
	billing, ok := b[strings.TrimSpace(last+" "+first)]
	return billing, ok
}

// AbsenteeResult classifies residents by how their absentee flag compares with billing records
type AbsenteeResult struct {
	// Clear are flagged absentee, but billing is the property itself
	Clear []domain.ResidentView
	// NoBilling are flagged absentee with no billing record
	NoBilling []domain.ResidentView
	// Mismatched are flagged absentee, billing says same-as-property, but the addresses differ
	Mismatched []domain.ResidentView
	// Unflagged are not flagged absentee though billing differs from the property
	Unflagged []domain.ResidentView
	// Confirmed counts flagged residents whose billing differs
	Confirmed int
}

// Absentee reviews the absentee flag of each resident against the billing lookup.
// Only Clear entries are meant to be applied; every other bucket is report-only.
func Absentee(views []domain.ResidentView, billing BillingLookup, normalizer *address.Normalizer) AbsenteeResult {
	var result AbsenteeResult
	for _, v := range views {
		entry, found := billing.Find(v.Resident)

		if !v.Resident.IsAbsentee {
			if found && entry.IsDifferentFromProperty {
				result.Unflagged = append(result.Unflagged, v)
			}
			continue
		}

		switch {
		case !found:
			result.NoBilling = append(result.NoBilling, v)
		case entry.IsDifferentFromProperty:
			result.Confirmed++
		case v.Address != nil && SameAddress(normalizer, *v.Address, entry):
			result.Clear = append(result.Clear, v)
		default:
			result.Mismatched = append(result.Mismatched, v)
		}
	}
	return result
}

// SameAddress compares a property with a billing address on normalized street,
// equivalent city, state and zip
func SameAddress(normalizer *address.Normalizer, property domain.Address, billing domain.BillingAddress) bool {
	street := normalizer.Normalize(property.Street)
	if street == "" || street != normalizer.Normalize(billing.Street) {
		return false
	}
	if normalizer.NormalizeCity(property.City) != normalizer.NormalizeCity(billing.City) {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(property.State), strings.TrimSpace(billing.State)) &&
		strings.TrimSpace(property.Zip) == strings.TrimSpace(billing.Zip)
}
