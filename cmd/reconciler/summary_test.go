package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/adapter"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/address"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/config"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/domain"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/ingest"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/matcher"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/store"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/syncer"
)

func TestPrintSummary(t *testing.T) {
	report := &syncer.Report{
		RunID:      "01JPB7Y1V7Q0000000000000000",
		Command:    syncer.CommandImportConsents,
		DryRun:     true,
		PlanDigest: "abc123",
		Duration:   "1.5s",
		Matches:    &matcher.Stats{Exact: 3, Normalized: 1, Unmatched: 2},
		Summary:    syncer.Summary{Matched: 4, Planned: 6, Skipped: 1, Failed: 1},
		Failures: []syncer.Failure{
			{Seq: 3, Kind: store.MutationCreate, Collection: domain.CollectionConsent, Status: syncer.StatusFailed, Error: "throttled"},
		},
	}

	var buf bytes.Buffer
	printSummary(&buf, report)
	out := buf.String()

	assert.Contains(t, out, "import-consents (dry-run)")
	assert.Contains(t, out, "plan digest  abc123")
	assert.Contains(t, out, "exact=3 normalized=1 unmatched=2 ambiguous=0")
	assert.Contains(t, out, "planned      6")
	assert.Contains(t, out, "unresolved   0")
	assert.Contains(t, out, "#3 create consent")
	assert.Contains(t, out, "throttled")
}

func TestPrintSummary_DryRunListsPlan(t *testing.T) {
	repo := store.NewMemoryRepository()
	o := syncer.New(syncer.Config{DryRun: true}, repo, address.NewNormalizer(nil), adapter.NewClock(), adapter.NewJSON(), adapter.NewJCS())

	report, err := o.ImportAddresses(context.Background(), []ingest.AddressRow{
		{Line: 2, RowID: "502", Street: "7 Birch Rd", City: "Ashburn"},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	printSummary(&buf, report)
	out := buf.String()

	assert.Contains(t, out, "(dry-run)")
	assert.Regexp(t, `planned\s+1\n`, out)
	assert.Regexp(t, `creates\s+1\n`, out)
	assert.Regexp(t, `created\s+0\n`, out)
	assert.Regexp(t, `unresolved\s+0\n`, out)
	assert.Regexp(t, `plan\s+#1 create address ref:address:1: `, out)
	assert.Empty(t, repo.AddressCollection.Items())
}

func TestOpenRepository_MemorySeed(t *testing.T) {
	seedFile := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(seedFile, []byte(`{"addresses":[{"id":"a1","street":"12 Elm Street","city":"Ashburn"}],"residents":[],"consents":[]}`), 0600))

	cfg := &config.ReconcilerConfig{Backend: config.BackendMemory, Memory: config.MemoryConfig{SeedFile: seedFile}}
	repo, err := openRepository(context.Background(), cfg, adapter.NewJSON(), adapter.NewFileSystem())
	require.NoError(t, err)

	addresses, err := store.Snapshot(context.Background(), repo.Addresses(), nil, 10)
	require.NoError(t, err)
	require.Len(t, addresses, 1)
	assert.Equal(t, "a1", addresses[0].ID)

	cfg.Memory.SeedFile = filepath.Join(t.TempDir(), "missing.json")
	_, err = openRepository(context.Background(), cfg, adapter.NewJSON(), adapter.NewFileSystem())
	assert.ErrorContains(t, err, "failed to open seed")
}

func TestRootCmd_DryRunDefault(t *testing.T) {
	cmd := newRootCmd()

	flag := cmd.PersistentFlags().Lookup("dry-run")
	if assert.NotNil(t, flag) {
		assert.Equal(t, "true", flag.DefValue)
	}

	names := make([]string, 0)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{
		syncer.CommandImportAddresses,
		syncer.CommandImportResidents,
		syncer.CommandImportConsents,
		syncer.CommandDedupeConsents,
		syncer.CommandDedupeAddresses,
		syncer.CommandSyncIDs,
		syncer.CommandAbsenteeCheck,
		syncer.CommandExport,
	}, names)
}
