package reconcile

import (
	"strings"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/domain"
)

const (
	FieldPersonID   = "personId"
	FieldExternalID = "externalId"
)

// IdentifierUpdate fills one missing identifier lane of a resident
type IdentifierUpdate struct {
	Resident domain.Resident `json:"resident"`
	Field    string          `json:"field"`
	Value    string          `json:"value"`
}

// Apply returns a copy of the resident with the update applied
func (u IdentifierUpdate) Apply(r domain.Resident) domain.Resident {
	switch u.Field {
	case FieldPersonID:
		r.PersonID = u.Value
	case FieldExternalID:
		r.ExternalID = u.Value
	}
	return r
}

// IdentifierConflict is a resident whose two identifier lanes disagree
type IdentifierConflict struct {
	Resident   domain.Resident `json:"resident"`
	PersonID   string          `json:"personId"`
	ExternalID string          `json:"externalId"`
}

// IdentifierResult holds the planned gap fills and the conflicts left for manual review
type IdentifierResult struct {
	Updates   []IdentifierUpdate
	Conflicts []IdentifierConflict
	InSync    int
	Missing   int
}

// Identifiers proposes gap fills between personId and externalId.
// Values that disagree are reported, never overwritten.
func Identifiers(residents []domain.Resident) IdentifierResult {
	var result IdentifierResult
	for _, r := range residents {
		personID := strings.TrimSpace(r.PersonID)
		externalID := strings.TrimSpace(r.ExternalID)

		switch {
		case personID == "" && externalID == "":
			result.Missing++
		case externalID == "":
			result.Updates = append(result.Updates, IdentifierUpdate{Resident: r, Field: FieldExternalID, Value: personID})
		case personID == "":
			result.Updates = append(result.Updates, IdentifierUpdate{Resident: r, Field: FieldPersonID, Value: externalID})
		case personID != externalID:
			result.Conflicts = append(result.Conflicts, IdentifierConflict{Resident: r, PersonID: personID, ExternalID: externalID})
		default:
			result.InSync++
		}
	}
	return result
}
