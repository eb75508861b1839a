package syncer

import (
	"fmt"
	"time"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/adapter"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/domain"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/matcher"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/store"
)

// Summary holds the counters printed at the end of a run.
// Planned counts come from the plan; Created, Updated and Deleted count what was applied.
// Unresolved counts input records that could be neither matched nor planned.
type Summary struct {
	Matched        int `json:"matched"`
	Planned        int `json:"planned"`
	PlannedCreates int `json:"plannedCreates"`
	PlannedUpdates int `json:"plannedUpdates"`
	PlannedDeletes int `json:"plannedDeletes"`
	Created        int `json:"created"`
	Updated        int `json:"updated"`
	Deleted        int `json:"deleted"`
	Skipped        int `json:"skipped"`
	Failed         int `json:"failed"`
	Unresolved     int `json:"unresolved"`
	Ambiguous      int `json:"ambiguous"`
	Conflicts      int `json:"conflicts"`
}

// Failure is one operation that did not apply
type Failure struct {
	Seq        int               `json:"seq"`
	Kind       store.Mutation    `json:"kind"`
	Collection domain.Collection `json:"collection"`
	RecordID   string            `json:"recordId,omitempty"`
	Status     Status            `json:"status"`
	Error      string            `json:"error"`
}

// Ambiguity is an input record that matched more than one stored record
type Ambiguity struct {
	Source     string   `json:"source"`
	Candidates []string `json:"candidates"`
}

// Conflict is a stored value that disagrees with the incoming one and was left unchanged
type Conflict struct {
	RecordID string `json:"recordId"`
	Label    string `json:"label"`
	Field    string `json:"field"`
	Existing string `json:"existing"`
	Incoming string `json:"incoming"`
}

// Report is the outcome of one reconciler run
type Report struct {
	RunID      string         `json:"runId"`
	Command    string         `json:"command"`
	DryRun     bool           `json:"dryRun"`
	StartedAt  time.Time      `json:"startedAt"`
	Duration   string         `json:"duration"`
	Summary    Summary        `json:"summary"`
	Matches    *matcher.Stats `json:"matches,omitempty"`
	PlanDigest string         `json:"planDigest,omitempty"`
	Operations []*Operation   `json:"operations,omitempty"`
	Failures   []Failure      `json:"failures,omitempty"`
	Ambiguous  []Ambiguity    `json:"ambiguous,omitempty"`
	Conflicts  []Conflict     `json:"conflicts,omitempty"`
	Unresolved []string       `json:"unresolved,omitempty"`
	Notes      []string       `json:"notes,omitempty"`
}

func (r *Report) unresolved(format string, args ...any) {
	r.Unresolved = append(r.Unresolved, fmt.Sprintf(format, args...))
	r.Summary.Unresolved++
}

func (r *Report) ambiguous(source string, candidates []string) {
	r.Ambiguous = append(r.Ambiguous, Ambiguity{Source: source, Candidates: candidates})
	r.Summary.Ambiguous++
}

func (r *Report) conflict(c Conflict) {
	r.Conflicts = append(r.Conflicts, c)
	r.Summary.Conflicts++
}

func (r *Report) note(format string, args ...any) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

// skip counts an input record that needed no change
func (r *Report) skip() {
	r.Summary.Skipped++
}

// tally folds the planned kinds and the final operation states into the summary
func (r *Report) tally(plan *Plan) {
	ops := plan.Operations()
	r.Summary.Planned = len(ops)
	r.Summary.PlannedCreates = plan.Count(store.MutationCreate)
	r.Summary.PlannedUpdates = plan.Count(store.MutationUpdate)
	r.Summary.PlannedDeletes = plan.Count(store.MutationDelete)
	for _, op := range ops {
		switch op.Status {
		case StatusApplied:
			switch op.Kind {
			case store.MutationCreate:
				r.Summary.Created++
			case store.MutationUpdate:
				r.Summary.Updated++
			case store.MutationDelete:
				r.Summary.Deleted++
			}
		case StatusFailed:
			r.Summary.Failed++
			r.Failures = append(r.Failures, failureOf(op))
		case StatusSkipped:
			r.Summary.Skipped++
			r.Failures = append(r.Failures, failureOf(op))
		}
	}
}

func failureOf(op *Operation) Failure {
	return Failure{
		Seq:        op.Seq,
		Kind:       op.Kind,
		Collection: op.Collection,
		RecordID:   op.RecordID,
		Status:     op.Status,
		Error:      op.Error,
	}
}

// digestEntry is the part of an operation that identifies the planned change.
// Run state is left out so a dry run and the following applying run over the same data agree.
type digestEntry struct {
	Kind       store.Mutation    `json:"kind"`
	Collection domain.Collection `json:"collection"`
	Ref        string            `json:"ref,omitempty"`
	DependsOn  []string          `json:"dependsOn,omitempty"`
	RecordID   string            `json:"recordId,omitempty"`
	Address    *domain.Address   `json:"address,omitempty"`
	Resident   *domain.Resident  `json:"resident,omitempty"`
	Consent    *domain.Consent   `json:"consent,omitempty"`
}

// Digest returns the hex SHA-256 of the JCS-canonical form of the plan
func Digest(plan *Plan, json adapter.JSON, jcs adapter.JCS) (string, error) {
	entries := make([]digestEntry, 0, plan.Len())
	for _, op := range plan.Operations() {
		entry := digestEntry{
			Kind:       op.Kind,
			Collection: op.Collection,
			Ref:        op.Ref,
			DependsOn:  op.DependsOn,
			RecordID:   op.RecordID,
			Address:    op.Address,
			Resident:   op.Resident,
			Consent:    op.Consent,
		}
		entries = append(entries, entry)
	}

	raw, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("failed to marshal plan: %w", err)
	}
	digest, err := jcs.Digest(raw)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize plan: %w", err)
	}
	return digest, nil
}
