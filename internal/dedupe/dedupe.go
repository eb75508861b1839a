package dedupe

import (
	"sort"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/domain"
)

// Plan is the dedupe decision for one resident
type Plan struct {
	ResidentID string           `json:"residentId"`
	Keep       domain.Consent   `json:"keep"`
	Drop       []domain.Consent `json:"drop"`
}

// Result is the outcome of a dedupe pass
type Result struct {
	// Plans holds one entry per resident with more than one consent, ordered by resident id
	Plans []Plan
	// Single lists residents already holding exactly one consent
	Single []string
	// Empty lists residents with no consent at all
	Empty []string
}

// DropCount returns the number of consents scheduled for deletion
func (r Result) DropCount() int {
	n := 0
	for _, p := range r.Plans {
		n += len(p.Drop)
	}
	return n
}

// GroupByResident buckets consents by resident, preserving input order inside each bucket.
// Every id in residentIDs gets a bucket even when it holds no consent; consents of residents
// not listed still get their own bucket.
func GroupByResident(consents []domain.Consent, residentIDs []string) map[string][]domain.Consent {
	groups := make(map[string][]domain.Consent, len(residentIDs))
	for _, id := range residentIDs {
		groups[id] = nil
	}
	for _, c := range consents {
		groups[c.ResidentID] = append(groups[c.ResidentID], c)
	}
	return groups
}

// Dedupe selects one canonical consent per resident and schedules the rest for deletion
func Dedupe(consentsByResident map[string][]domain.Consent) Result {
	residentIDs := make([]string, 0, len(consentsByResident))
	for id := range consentsByResident {
		residentIDs = append(residentIDs, id)
	}
	sort.Strings(residentIDs)

	var result Result
	for _, id := range residentIDs {
		consents := consentsByResident[id]
		switch len(consents) {
		case 0:
			result.Empty = append(result.Empty, id)
			continue
		case 1:
			result.Single = append(result.Single, id)
			continue
		}

		keepIdx := SelectCanonical(consents)
		plan := Plan{ResidentID: id, Keep: consents[keepIdx]}
		for i, c := range consents {
			if i != keepIdx {
				plan.Drop = append(plan.Drop, c)
			}
		}
		result.Plans = append(result.Plans, plan)
	}

	return result
}

// SelectCanonical returns the index of the consent to keep.
// A consent with an email beats one without; among equals the newest creation time wins;
// remaining ties keep the earliest position. Returns -1 for an empty slice.
func SelectCanonical(consents []domain.Consent) int {
	if len(consents) == 0 {
		return -1
	}

	best := 0
	for i := 1; i < len(consents); i++ {
		if preferred(consents[i], consents[best]) {
			best = i
		}
	}
	return best
}

// preferred reports whether candidate strictly beats current
func preferred(candidate, current domain.Consent) bool {
	if candidate.HasEmail() != current.HasEmail() {
		return candidate.HasEmail()
	}
	return candidate.CreatedTime().After(current.CreatedTime())
}
