package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/ingest"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/logger"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/reconcile"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/syncer"
)

// job runs one orchestrator job against an initialized app
type job func(ctx context.Context, a *app, args []string) (*syncer.Report, error)

// run wraps a job with setup, the summary table and the optional report file.
// Any returned error is a structural failure and exits with status 1.
func run(opts *options, fn job) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := setup(ctx, opts)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.repo.Close(); err != nil {
				logger.ErrorCtx(ctx, fmt.Errorf("failed to close repository: %w", err))
			}
		}()

		report, err := fn(ctx, a, args)
		if err != nil {
			logger.ErrorCtx(ctx, err)
			return err
		}

		printSummary(cmd.OutOrStdout(), report)

		if opts.reportPath != "" {
			if err := writeReport(a, opts.reportPath, report); err != nil {
				return err
			}
		}
		return nil
	}
}

// readInput opens an input file and hands it to a reader
func readInput[T any](a *app, path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T

	f, err := a.fs.Open(path)
	if err != nil {
		return zero, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	out, err := read(f)
	if err != nil {
		return zero, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return out, nil
}

func newImportAddressesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   syncer.CommandImportAddresses + " <address.csv>",
		Short: "Create the addresses of an address export that are not stored yet",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, func(ctx context.Context, a *app, args []string) (*syncer.Report, error) {
			rows, err := readInput(a, args[0], ingest.ReadAddresses)
			if err != nil {
				return nil, err
			}
			return a.orchestrator.ImportAddresses(ctx, rows)
		}),
	}
}

func newImportResidentsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   syncer.CommandImportResidents + " <residents.csv>",
		Short: "Create the residents of a resident export that are not stored yet",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, func(ctx context.Context, a *app, args []string) (*syncer.Report, error) {
			rows, err := readInput(a, args[0], ingest.ReadResidents)
			if err != nil {
				return nil, err
			}
			return a.orchestrator.ImportResidents(ctx, rows)
		}),
	}
}

func newImportConsentsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   syncer.CommandImportConsents + " <matched.csv>",
		Short: "Record consents for matched residents that have not signed yet",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, func(ctx context.Context, a *app, args []string) (*syncer.Report, error) {
			rows, err := readInput(a, args[0], ingest.ReadMatched)
			if err != nil {
				return nil, err
			}
			return a.orchestrator.ImportConsents(ctx, rows)
		}),
	}
}

func newDedupeConsentsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   syncer.CommandDedupeConsents,
		Short: "Keep one consent per resident and fix the signed flags",
		Args:  cobra.NoArgs,
		RunE: run(opts, func(ctx context.Context, a *app, _ []string) (*syncer.Report, error) {
			return a.orchestrator.DedupeConsents(ctx)
		}),
	}
}

func newDedupeAddressesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   syncer.CommandDedupeAddresses,
		Short: "Merge duplicate addresses and the residents living on them",
		Args:  cobra.NoArgs,
		RunE: run(opts, func(ctx context.Context, a *app, _ []string) (*syncer.Report, error) {
			return a.orchestrator.DedupeAddresses(ctx)
		}),
	}
}

func newSyncIDsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   syncer.CommandSyncIDs,
		Short: "Fill missing personId/externalId values from the other identifier",
		Args:  cobra.NoArgs,
		RunE: run(opts, func(ctx context.Context, a *app, _ []string) (*syncer.Report, error) {
			return a.orchestrator.SyncIdentifiers(ctx)
		}),
	}
}

func newAbsenteeCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   syncer.CommandAbsenteeCheck + " <billing.json>",
		Short: "Review absentee flags against billing addresses",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, func(ctx context.Context, a *app, args []string) (*syncer.Report, error) {
			billing, err := readInput(a, args[0], func(r io.Reader) (reconcile.BillingLookup, error) {
				return ingest.ReadBilling(r, a.json)
			})
			if err != nil {
				return nil, err
			}
			return a.orchestrator.ReconcileAbsentee(ctx, billing)
		}),
	}
}

func newExportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   syncer.CommandExport + " <out.json>",
		Short: "Write a JSON snapshot of every collection",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, func(ctx context.Context, a *app, args []string) (*syncer.Report, error) {
			f, err := a.fs.Create(args[0])
			if err != nil {
				return nil, fmt.Errorf("failed to create %s: %w", args[0], err)
			}

			report, err := a.orchestrator.Export(ctx, f)
			if closeErr := f.Close(); closeErr != nil && err == nil {
				return nil, fmt.Errorf("failed to close %s: %w", args[0], closeErr)
			}
			return report, err
		}),
	}
}
