package syncer

import (
	"fmt"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/domain"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/ingest"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/matcher"
)

func (o *Orchestrator) addressRowKeys() matcher.KeyFuncs[ingest.AddressRow, domain.Address] {
	return matcher.KeyFuncs[ingest.AddressRow, domain.Address]{
		SourceExact:      func(r ingest.AddressRow) []string { return []string{matcher.IDKey(r.RowID)} },
		TargetExact:      addressExactKeys,
		SourceNormalized: func(r ingest.AddressRow) string { return o.normalizer.Key(r.Street, r.City) },
		TargetNormalized: o.addressNormalizedKey,
	}
}

// residentAddressKeys resolves the address a resident row points at
func (o *Orchestrator) residentAddressKeys() matcher.KeyFuncs[ingest.ResidentRow, domain.Address] {
	return matcher.KeyFuncs[ingest.ResidentRow, domain.Address]{
		SourceExact:      func(r ingest.ResidentRow) []string { return []string{matcher.IDKey(r.AddressID)} },
		TargetExact:      addressExactKeys,
		SourceNormalized: func(r ingest.ResidentRow) string { return o.normalizer.Key(r.Street, r.City) },
		TargetNormalized: o.addressNormalizedKey,
	}
}

func addressExactKeys(a domain.Address) []string {
	return []string{matcher.IDKey(a.ExternalID)}
}

func (o *Orchestrator) addressNormalizedKey(a domain.Address) string {
	return o.normalizer.Key(a.Street, a.City)
}

func residentRowKeys() matcher.KeyFuncs[ingest.ResidentRow, domain.ResidentView] {
	return matcher.KeyFuncs[ingest.ResidentRow, domain.ResidentView]{
		SourceExact: func(r ingest.ResidentRow) []string {
			return []string{matcher.IDKey(r.RowID), matcher.IdentityKey(r.FirstName, r.LastName, r.Street)}
		},
		TargetExact: viewExactKeys,
		SourceNormalized: func(r ingest.ResidentRow) string {
			return matcher.NormalizedIdentityKey(r.FirstName, r.LastName, r.Street)
		},
		TargetNormalized: viewNormalizedKey,
	}
}

func matchedRowKeys() matcher.KeyFuncs[ingest.MatchedRow, domain.ResidentView] {
	return matcher.KeyFuncs[ingest.MatchedRow, domain.ResidentView]{
		SourceExact: func(r ingest.MatchedRow) []string {
			return []string{matcher.IDKey(r.RowID), matcher.IdentityKey(r.ResidentFirstName, r.ResidentLastName, r.ResidentStreet)}
		},
		TargetExact: viewExactKeys,
		SourceNormalized: func(r ingest.MatchedRow) string {
			return matcher.NormalizedIdentityKey(r.ResidentFirstName, r.ResidentLastName, r.ResidentStreet)
		},
		TargetNormalized: viewNormalizedKey,
	}
}

// viewExactKeys gives both identifier lanes the same standing
func viewExactKeys(v domain.ResidentView) []string {
	return []string{
		matcher.IDKey(v.Resident.ExternalID),
		matcher.IDKey(v.Resident.PersonID),
		matcher.IdentityKey(v.Resident.FirstName, v.Resident.LastName, v.Street()),
	}
}

func viewNormalizedKey(v domain.ResidentView) string {
	return matcher.NormalizedIdentityKey(v.Resident.FirstName, v.Resident.LastName, v.Street())
}

func describeViews(views []domain.ResidentView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, fmt.Sprintf("%s (%s)", v.Describe(), v.Resident.ID))
	}
	return out
}

func describeAddresses(addresses []domain.Address) []string {
	out := make([]string, 0, len(addresses))
	for _, a := range addresses {
		out = append(out, fmt.Sprintf("%s, %s (%s)", a.Street, a.City, a.ID))
	}
	return out
}
