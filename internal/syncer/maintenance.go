package syncer

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/dedupe"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/domain"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/logger"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/reconcile"
)

const (
	CommandDedupeConsents = "dedupe-consents"
	CommandSyncIDs        = "sync-ids"
	CommandAbsenteeCheck  = "absentee-check"
	CommandExport         = "export"
)

// DedupeConsents keeps one consent per resident and deletes the rest, then makes
// every resident's signed flag agree with whether a consent survives.
// Consents pointing at unknown residents are reported and left alone.
func (o *Orchestrator) DedupeConsents(ctx context.Context) (*Report, error) {
	ctx, report := o.begin(ctx, CommandDedupeConsents)

	snap, err := o.snapshot(ctx, want{residents: true, consents: true})
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(snap.residents))
	residentIDs := make([]string, 0, len(snap.residents))
	for _, r := range snap.residents {
		known[r.ID] = true
		residentIDs = append(residentIDs, r.ID)
	}

	var attributed []domain.Consent
	for _, c := range snap.consents {
		if !known[c.ResidentID] {
			report.note("orphan consent %s: resident %q not found", c.ID, c.ResidentID)
			continue
		}
		attributed = append(attributed, c)
	}

	result := dedupe.Dedupe(dedupe.GroupByResident(attributed, residentIDs))

	plan := NewPlan()
	survivor := make(map[string]domain.Consent)
	for _, p := range result.Plans {
		survivor[p.ResidentID] = p.Keep
		for _, drop := range p.Drop {
			plan.DeleteConsent(drop, fmt.Sprintf("duplicate of %s", p.Keep.ID))
		}
	}
	for _, c := range attributed {
		if _, ok := survivor[c.ResidentID]; !ok {
			survivor[c.ResidentID] = c
		}
	}
	report.Summary.Matched = len(survivor)

	for _, r := range snap.residents {
		keep, hasConsent := survivor[r.ID]
		if r.HasSigned == hasConsent {
			continue
		}

		r.HasSigned = hasConsent
		if hasConsent {
			if r.SignedAt == nil {
				signedAt := keep.CreatedTime()
				r.SignedAt = &signedAt
			}
			plan.UpdateResident(r, fmt.Sprintf("consent %s on file", keep.ID))
		} else {
			r.SignedAt = nil
			plan.UpdateResident(r, "no consent on file")
		}
	}

	logger.InfoCtx(ctx, "Dedupe planned",
		zap.Int("residents_with_duplicates", len(result.Plans)),
		zap.Int("drops", result.DropCount()),
		zap.Int("single", len(result.Single)),
		zap.Int("empty", len(result.Empty)),
	)

	if err := o.finish(ctx, report, plan); err != nil {
		return nil, err
	}
	return report, nil
}

// SyncIdentifiers fills a missing personId or externalId from the other lane.
// Residents whose lanes disagree are reported as conflicts.
func (o *Orchestrator) SyncIdentifiers(ctx context.Context) (*Report, error) {
	ctx, report := o.begin(ctx, CommandSyncIDs)

	snap, err := o.snapshot(ctx, want{residents: true})
	if err != nil {
		return nil, err
	}

	result := reconcile.Identifiers(snap.residents)
	report.Summary.Matched = result.InSync

	plan := NewPlan()
	for _, u := range result.Updates {
		plan.UpdateResident(u.Apply(u.Resident), fmt.Sprintf("fill %s", u.Field))
	}
	for _, c := range result.Conflicts {
		report.conflict(Conflict{
			RecordID: c.Resident.ID,
			Label:    c.Resident.FullName(),
			Field:    reconcile.FieldExternalID,
			Existing: c.ExternalID,
			Incoming: c.PersonID,
		})
	}
	if result.Missing > 0 {
		report.note("%d residents carry neither personId nor externalId", result.Missing)
	}

	if err := o.finish(ctx, report, plan); err != nil {
		return nil, err
	}
	return report, nil
}

// ReconcileAbsentee clears the absentee flag of residents whose billing address is the property.
// Every other disagreement with the billing records is only reported.
func (o *Orchestrator) ReconcileAbsentee(ctx context.Context, billing reconcile.BillingLookup) (*Report, error) {
	ctx, report := o.begin(ctx, CommandAbsenteeCheck)

	snap, err := o.snapshot(ctx, want{addresses: true, residents: true})
	if err != nil {
		return nil, err
	}

	result := reconcile.Absentee(snap.views(), billing, o.normalizer)
	report.Summary.Matched = result.Confirmed

	plan := NewPlan()
	for _, v := range result.Clear {
		r := v.Resident
		r.IsAbsentee = false
		plan.UpdateResident(r, "billing address is the property")
	}
	for _, v := range result.NoBilling {
		report.unresolved("%s: flagged absentee, no billing record", v.Describe())
	}
	for _, v := range result.Mismatched {
		report.note("%s: billing marked same as property but addresses differ", v.Describe())
	}
	for _, v := range result.Unflagged {
		report.note("%s: billing differs from property but not flagged absentee", v.Describe())
	}

	if err := o.finish(ctx, report, plan); err != nil {
		return nil, err
	}
	return report, nil
}

// Export is a full copy of the three collections
type Export struct {
	RunID      string            `json:"runId"`
	ExportedAt string            `json:"exportedAt"`
	Addresses  []domain.Address  `json:"addresses"`
	Residents  []domain.Resident `json:"residents"`
	Consents   []domain.Consent  `json:"consents"`
}

// Export writes a JSON snapshot of every collection. It never mutates anything.
func (o *Orchestrator) Export(ctx context.Context, w io.Writer) (*Report, error) {
	ctx, report := o.begin(ctx, CommandExport)

	snap, err := o.snapshot(ctx, want{addresses: true, residents: true, consents: true})
	if err != nil {
		return nil, err
	}

	data, err := o.json.MarshalIndent(Export{
		RunID:      report.RunID,
		ExportedAt: o.clock.Now().UTC().Format(time.RFC3339),
		Addresses:  nonNil(snap.addresses),
		Residents:  nonNil(snap.residents),
		Consents:   nonNil(snap.consents),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write export: %w", err)
	}

	report.Summary.Matched = len(snap.addresses) + len(snap.residents) + len(snap.consents)
	report.note("exported %d addresses, %d residents, %d consents", len(snap.addresses), len(snap.residents), len(snap.consents))
	o.close(ctx, report)
	return report, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
