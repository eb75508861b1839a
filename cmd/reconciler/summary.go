package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/syncer"
)

// printSummary writes the run counters as an aligned table
func printSummary(w io.Writer, report *syncer.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	mode := "apply"
	if report.DryRun {
		mode = "dry-run"
	}

	fmt.Fprintf(tw, "run\t%s\n", report.RunID)
	fmt.Fprintf(tw, "command\t%s (%s)\n", report.Command, mode)
	if report.PlanDigest != "" {
		fmt.Fprintf(tw, "plan digest\t%s\n", report.PlanDigest)
	}
	if m := report.Matches; m != nil {
		fmt.Fprintf(tw, "matches\texact=%d normalized=%d unmatched=%d ambiguous=%d\n", m.Exact, m.Normalized, m.Unmatched, m.Ambiguous)
	}

	s := report.Summary
	rows := []struct {
		label string
		value int
	}{
		{"matched", s.Matched},
		{"planned", s.Planned},
		{"  creates", s.PlannedCreates},
		{"  updates", s.PlannedUpdates},
		{"  deletes", s.PlannedDeletes},
		{"created", s.Created},
		{"updated", s.Updated},
		{"deleted", s.Deleted},
		{"skipped", s.Skipped},
		{"failed", s.Failed},
		{"unresolved", s.Unresolved},
		{"ambiguous", s.Ambiguous},
		{"conflicts", s.Conflicts},
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%d\n", row.label, row.value)
	}
	fmt.Fprintf(tw, "duration\t%s\n", report.Duration)

	if report.DryRun {
		for _, op := range report.Operations {
			fmt.Fprintf(tw, "plan\t#%d %s %s %s: %s\n", op.Seq, op.Kind, op.Collection, target(op), op.Reason)
		}
	}

	for _, f := range report.Failures {
		fmt.Fprintf(tw, "%s\t#%d %s %s %s: %s\n", f.Status, f.Seq, f.Kind, f.Collection, f.RecordID, f.Error)
	}
}

// target names the record an operation touches, or its ref when the record does not exist yet
func target(op *syncer.Operation) string {
	if op.RecordID != "" {
		return op.RecordID
	}
	return op.Ref
}

// writeReport stores the full JSON report
func writeReport(a *app, path string, report *syncer.Report) error {
	data, err := a.json.MarshalIndent(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	f, err := a.fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
