package ingest

import (
	"fmt"
	"io"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/adapter"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/domain"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/matcher"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/reconcile"
)

// ReadBilling parses the billing-address lookup: a JSON object keyed by owner name.
// Keys are folded so lookups are insensitive to case and spacing.
func ReadBilling(r io.Reader, json adapter.JSON) (reconcile.BillingLookup, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read billing lookup: %w", err)
	}

	var raw map[string]domain.BillingAddress
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: billing lookup: %v", domain.ErrMalformedInput, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: billing lookup is not an object", domain.ErrMalformedInput)
	}

	lookup := make(reconcile.BillingLookup, len(raw))
	for name, billing := range raw {
		if key := matcher.FoldName(name); key != "" {
			lookup[key] = billing
		}
	}
	return lookup, nil
}
