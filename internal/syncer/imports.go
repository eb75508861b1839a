package syncer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/domain"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/ingest"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/logger"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/matcher"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/reconcile"
)

const (
	CommandImportAddresses = "import-addresses"
	CommandImportResidents = "import-residents"
	CommandImportConsents  = "import-consents"
)

// ImportAddresses creates the addresses of the export that are not stored yet
func (o *Orchestrator) ImportAddresses(ctx context.Context, rows []ingest.AddressRow) (*Report, error) {
	ctx, report := o.begin(ctx, CommandImportAddresses)

	snap, err := o.snapshot(ctx, want{addresses: true})
	if err != nil {
		return nil, err
	}

	results := matcher.Match(rows, snap.addresses, o.addressRowKeys())
	stats := matcher.Summarize(results)
	report.Matches = &stats

	plan := NewPlan()
	planned := make(map[string]bool)
	for _, res := range results {
		row := res.Source
		switch {
		case res.Matched():
			report.Summary.Matched++
		case res.Ambiguous():
			report.ambiguous(fmt.Sprintf("line %d: %s, %s", row.Line, row.Street, row.City), describeAddresses(res.Candidates))
		default:
			key := o.normalizer.Key(row.Street, row.City)
			if key == "" {
				report.unresolved("line %d: no street", row.Line)
				continue
			}
			if planned[key] || planned[matcher.IDKey(row.RowID)] {
				report.note("line %d: duplicate of an earlier row (%s)", row.Line, row.Street)
				report.skip()
				continue
			}
			planned[key] = true
			if id := matcher.IDKey(row.RowID); id != "" {
				planned[id] = true
			}
			plan.CreateAddress(row.Address(), fmt.Sprintf("line %d: address not found", row.Line))
		}
	}

	if err := o.finish(ctx, report, plan); err != nil {
		return nil, err
	}
	return report, nil
}

// ImportResidents creates the residents of the export that are not stored yet.
// Each row's address is resolved first; a missing one is created in the same run.
func (o *Orchestrator) ImportResidents(ctx context.Context, rows []ingest.ResidentRow) (*Report, error) {
	ctx, report := o.begin(ctx, CommandImportResidents)

	snap, err := o.snapshot(ctx, want{addresses: true, residents: true})
	if err != nil {
		return nil, err
	}

	addressResults := matcher.Match(rows, snap.addresses, o.residentAddressKeys())
	residentResults := matcher.Match(rows, snap.views(), residentRowKeys())
	stats := matcher.Summarize(residentResults)
	report.Matches = &stats

	plan := NewPlan()
	addressRefs := make(map[string]string)
	plannedResidents := make(map[string]bool)

	for i, res := range residentResults {
		row := res.Source
		label := fmt.Sprintf("line %d: %s %s at %s", row.Line, row.FirstName, row.LastName, row.Street)

		if res.Matched() {
			report.Summary.Matched++
			o.fillExternalID(plan, report, res, label)
			continue
		}
		if res.Ambiguous() {
			report.ambiguous(label, describeViews(res.Candidates))
			continue
		}

		identity := matcher.NormalizedIdentityKey(row.FirstName, row.LastName, row.Street)
		if identity == "" {
			report.unresolved("%s: missing name or street", label)
			continue
		}
		if plannedResidents[identity] {
			report.note("%s: duplicate of an earlier row", label)
			report.skip()
			continue
		}

		resident := row.Resident()
		var dependsOn []string

		addr := addressResults[i]
		switch {
		case addr.Matched():
			resident.AddressID = addr.Target.ID
		case addr.Ambiguous():
			report.ambiguous(label+": address", describeAddresses(addr.Candidates))
			continue
		default:
			key := o.normalizer.Key(row.Street, row.City)
			ref, ok := addressRefs[key]
			if !ok {
				ref = plan.CreateAddress(domain.Address{
					ExternalID: row.AddressID,
					Street:     row.Street,
					City:       row.City,
					State:      row.State,
					Zip:        row.Zip,
				}, label+": address not found")
				addressRefs[key] = ref
			}
			resident.AddressID = ref
			dependsOn = append(dependsOn, ref)
		}

		plannedResidents[identity] = true
		plan.CreateResident(resident, label+": resident not found", dependsOn...)
	}

	if err := o.finish(ctx, report, plan); err != nil {
		return nil, err
	}
	return report, nil
}

// fillExternalID plans externalId := row id for a matched resident that has none.
// A different stored value is a conflict and stays.
func (o *Orchestrator) fillExternalID(plan *Plan, report *Report, res matcher.Result[ingest.ResidentRow, domain.ResidentView], label string) {
	row := res.Source
	resident := res.Target.Resident

	switch {
	case row.RowID == "" || resident.ExternalID == row.RowID:
		report.skip()
	case resident.ExternalID == "":
		resident.ExternalID = row.RowID
		plan.UpdateResident(resident, label+": fill externalId")
	default:
		report.conflict(Conflict{
			RecordID: resident.ID,
			Label:    res.Target.Describe(),
			Field:    reconcile.FieldExternalID,
			Existing: resident.ExternalID,
			Incoming: row.RowID,
		})
	}
}

// ImportConsents records a consent for every matched resident not yet holding one
// and marks the resident as signed.
func (o *Orchestrator) ImportConsents(ctx context.Context, rows []ingest.MatchedRow) (*Report, error) {
	ctx, report := o.begin(ctx, CommandImportConsents)

	snap, err := o.snapshot(ctx, want{addresses: true, residents: true, consents: true})
	if err != nil {
		return nil, err
	}

	signed := make(map[string]bool, len(snap.consents))
	for _, c := range snap.consents {
		signed[c.ResidentID] = true
	}

	results := matcher.Match(rows, snap.views(), matchedRowKeys())
	stats := matcher.Summarize(results)
	report.Matches = &stats

	plan := NewPlan()
	for _, res := range results {
		row := res.Source
		label := fmt.Sprintf("line %d: %s %s at %s", row.Line, row.ResidentFirstName, row.ResidentLastName, row.ResidentStreet)

		switch {
		case res.Ambiguous():
			report.ambiguous(label, describeViews(res.Candidates))
			continue
		case !res.Matched():
			report.unresolved("%s", label)
			continue
		}

		report.Summary.Matched++
		resident := res.Target.Resident

		if signed[resident.ID] {
			logger.DebugCtx(ctx, "Resident already has a consent", zap.String("resident_id", resident.ID))
			report.skip()
			continue
		}
		if resident.AddressID == "" {
			report.note("%s: resident %s has no address", label, resident.ID)
			report.skip()
			continue
		}
		signed[resident.ID] = true

		ref := plan.CreateConsent(domain.Consent{
			ResidentID: resident.ID,
			AddressID:  resident.AddressID,
			RecordedBy: o.config.RecordedBy,
			Source:     o.config.ConsentSource,
			Email:      row.Email(),
		}, label)

		resident.HasSigned = true
		resident.SignedAt = nil
		plan.UpdateResident(resident, label+": mark signed", ref)
	}

	if err := o.finish(ctx, report, plan); err != nil {
		return nil, err
	}
	return report, nil
}
