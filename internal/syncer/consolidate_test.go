package syncer_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/domain"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/store"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/syncer"
)

// duplicateHomes builds three copies of 12 Elm Street. a1 is the survivor: it has the most residents.
func duplicateHomes() *store.MemoryRepository {
	repo := store.NewMemoryRepository()
	repo.AddressCollection = store.NewMemoryCollection(string(domain.CollectionAddress),
		domain.Address{ID: "a1", ExternalID: "500", Street: "12 Elm Street", City: "Ashburn"},
		domain.Address{ID: "a2", Street: "3 Oak Ct", City: "Broadlands"},
		domain.Address{ID: "a3", Street: "12 Elm St", City: "Broadlands"},
		domain.Address{ID: "a4", Street: "12 elm street.", City: "ashburn"},
	)
	repo.ResidentCollection = store.NewMemoryCollection(string(domain.CollectionResident),
		domain.Resident{ID: "r1", AddressID: "a1", FirstName: "Ada", LastName: "Byron", HasSigned: true, SignedAt: ptr(now.Add(-96 * time.Hour))},
		domain.Resident{ID: "r7", AddressID: "a1", FirstName: "Alan", LastName: "Kay"},
		domain.Resident{ID: "r9", AddressID: "a1", FirstName: "Barbara", LastName: "Liskov"},
		domain.Resident{ID: "r2", AddressID: "a2", FirstName: "Alan", LastName: "Turing"},
		domain.Resident{ID: "r3", AddressID: "a3", FirstName: "ada", LastName: "byron", HasSigned: true},
		domain.Resident{ID: "r4", AddressID: "a3", FirstName: "Grace", LastName: "Hopper", HasSigned: true},
		domain.Resident{ID: "r5", AddressID: "a4", FirstName: "Grace ", LastName: " Hopper"},
		domain.Resident{ID: "r8", AddressID: "a4", FirstName: "Alan", LastName: "Kay", HasSigned: true},
	)
	repo.ConsentCollection = store.NewMemoryCollection(string(domain.CollectionConsent),
		domain.Consent{ID: "c1", ResidentID: "r1", AddressID: "a1", RecordedAt: now.Add(-96 * time.Hour)},
		domain.Consent{ID: "c3", ResidentID: "r3", AddressID: "a3", RecordedAt: now.Add(-72 * time.Hour)},
		domain.Consent{ID: "c4", ResidentID: "r4", AddressID: "a3", RecordedAt: now.Add(-48 * time.Hour)},
		domain.Consent{ID: "c8", ResidentID: "r8", AddressID: "a4", RecordedAt: now.Add(-24 * time.Hour)},
	)
	return repo
}

// recordMutations logs every mutation reaching the repository, in order
func recordMutations(repo *store.MemoryRepository) *[]string {
	var log []string
	repo.AddressCollection.FailWith(func(op store.Mutation, a domain.Address) error {
		log = append(log, fmt.Sprintf("%s address %s", op, a.ID))
		return nil
	})
	repo.ResidentCollection.FailWith(func(op store.Mutation, r domain.Resident) error {
		log = append(log, fmt.Sprintf("%s resident %s", op, r.ID))
		return nil
	})
	repo.ConsentCollection.FailWith(func(op store.Mutation, c domain.Consent) error {
		log = append(log, fmt.Sprintf("%s consent %s", op, c.ID))
		return nil
	})
	return &log
}

func ids[T domain.Entity[T]](items []T) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.EntityID())
	}
	return out
}

func TestDedupeAddresses(t *testing.T) {
	repo := duplicateHomes()
	log := recordMutations(repo)
	o := newOrchestrator(t, repo, syncer.Config{})

	report, err := o.DedupeAddresses(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Summary.Matched)
	assert.Equal(t, 10, report.Summary.Planned)
	assert.Equal(t, 4, report.Summary.Updated)
	assert.Equal(t, 6, report.Summary.Deleted)
	assert.Zero(t, report.Summary.Failed)
	assert.Zero(t, report.Summary.Skipped)

	// Moves first, then deletions from consents up to addresses
	assert.Equal(t, []string{
		"update resident r4",
		"update consent c4",
		"update consent c8",
		"update resident r7",
		"delete consent c3",
		"delete resident r3",
		"delete resident r5",
		"delete resident r8",
		"delete address a3",
		"delete address a4",
	}, *log)

	assert.Equal(t, []string{"a1", "a2"}, ids(repo.AddressCollection.Items()))
	assert.Equal(t, []string{"r1", "r7", "r9", "r2", "r4"}, ids(repo.ResidentCollection.Items()))

	residents := repo.ResidentCollection.Items()
	assert.Equal(t, "a1", residents[4].AddressID)
	assert.True(t, residents[1].HasSigned)
	require.NotNil(t, residents[1].SignedAt)
	assert.Equal(t, now.Add(-24*time.Hour), *residents[1].SignedAt)

	consents := repo.ConsentCollection.Items()
	assert.Equal(t, []string{"c1", "c4", "c8"}, ids(consents))
	for _, c := range consents {
		assert.Equal(t, "a1", c.AddressID, c.ID)
	}
	assert.Equal(t, "r7", consents[2].ResidentID)

	// A second pass has nothing left to do
	again, err := o.DedupeAddresses(context.Background())
	require.NoError(t, err)
	assert.Zero(t, again.Summary.Planned)
	assert.Zero(t, again.Summary.Matched)
}

func TestDedupeAddresses_DryRunPlansWithoutMutating(t *testing.T) {
	repo := duplicateHomes()
	log := recordMutations(repo)

	report, err := newOrchestrator(t, repo, syncer.Config{DryRun: true}).DedupeAddresses(context.Background())
	require.NoError(t, err)

	assert.Empty(t, *log)
	assert.Equal(t, 4, report.Summary.PlannedUpdates)
	assert.Equal(t, 6, report.Summary.PlannedDeletes)
	assert.Zero(t, report.Summary.PlannedCreates)
	assert.Zero(t, report.Summary.Deleted)
	assert.NotEmpty(t, report.PlanDigest)
	assert.Len(t, report.Notes, 5)

	var addressDeletes []*syncer.Operation
	for _, op := range report.Operations {
		if op.Collection == domain.CollectionAddress {
			addressDeletes = append(addressDeletes, op)
		}
	}
	require.Len(t, addressDeletes, 2)
	assert.Equal(t, "a3", addressDeletes[0].RecordID)
	assert.Len(t, addressDeletes[0].DependsOn, 4)
	assert.Contains(t, addressDeletes[0].Reason, "duplicate of address a1")
}

func TestDedupeAddresses_FailedMoveKeepsAddress(t *testing.T) {
	repo := duplicateHomes()
	repo.ResidentCollection.FailWith(func(op store.Mutation, r domain.Resident) error {
		if op == store.MutationUpdate && r.ID == "r4" {
			return errors.New("conditional check failed")
		}
		return nil
	})

	report, err := newOrchestrator(t, repo, syncer.Config{}).DedupeAddresses(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Summary.Failed)
	assert.Equal(t, 1, report.Summary.Skipped)

	var skipped syncer.Failure
	for _, f := range report.Failures {
		if f.Status == syncer.StatusSkipped {
			skipped = f
		}
	}
	assert.Equal(t, domain.CollectionAddress, skipped.Collection)
	assert.Equal(t, "a3", skipped.RecordID)
	assert.Contains(t, skipped.Error, domain.ErrDependencyFailed.Error())

	// a3 still holds r4, a4 was emptied and removed
	assert.Equal(t, []string{"a1", "a2", "a3"}, ids(repo.AddressCollection.Items()))
	for _, r := range repo.ResidentCollection.Items() {
		if r.ID == "r4" {
			assert.Equal(t, "a3", r.AddressID)
		}
	}
}
