package syncer

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/domain"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/logger"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/matcher"
)

const CommandDedupeAddresses = "dedupe-addresses"

// DedupeAddresses merges addresses sharing a normalized street and city into one survivor.
//
// Residents and consents on the other addresses move to the survivor. A moved resident
// whose name already lives at the survivor is deleted once its consents are handled:
// they move to the remaining resident, or are deleted when that resident already holds one.
// The emptied addresses are deleted last and only after everything on them was moved.
func (o *Orchestrator) DedupeAddresses(ctx context.Context) (*Report, error) {
	ctx, report := o.begin(ctx, CommandDedupeAddresses)

	snap, err := o.snapshot(ctx, want{addresses: true, residents: true, consents: true})
	if err != nil {
		return nil, err
	}

	c := newConsolidation(snap)
	groups := o.duplicateAddresses(snap.addresses)
	for _, group := range groups {
		c.merge(report, c.rank(group))
	}
	report.Summary.Matched = len(groups)

	logger.InfoCtx(ctx, "Address consolidation planned",
		zap.Int("groups", len(groups)),
		zap.Int("addresses_removed", len(c.addressDrops)),
		zap.Int("residents_removed", len(c.residentDrops)),
		zap.Int("consents_removed", len(c.consentDrops)),
	)

	if err := o.finish(ctx, report, c.plan()); err != nil {
		return nil, err
	}
	return report, nil
}

// duplicateAddresses groups addresses by normalized street and city.
// Only groups of two or more are returned, in order of first appearance.
func (o *Orchestrator) duplicateAddresses(addresses []domain.Address) [][]domain.Address {
	byKey := make(map[string][]domain.Address)
	var keys []string
	for _, a := range addresses {
		key := o.normalizer.Key(a.Street, a.City)
		if key == "" {
			continue
		}
		if _, ok := byKey[key]; !ok {
			keys = append(keys, key)
		}
		byKey[key] = append(byKey[key], a)
	}

	var groups [][]domain.Address
	for _, key := range keys {
		if len(byKey[key]) > 1 {
			groups = append(groups, byKey[key])
		}
	}
	return groups
}

// change is a pending edit or removal of one record together with the records it must wait for
type change[T any] struct {
	item    T
	reasons []string
	after   []string
}

func (c *change[T]) reason() string {
	return strings.Join(c.reasons, "; ")
}

// changes keeps at most one pending edit per record, in order of first edit
type changes[T domain.Entity[T]] struct {
	order []string
	byID  map[string]*change[T]
}

func newChanges[T domain.Entity[T]]() *changes[T] {
	return &changes[T]{byID: make(map[string]*change[T])}
}

// current returns the edited copy of a record, or the record itself when it is untouched
func (c *changes[T]) current(item T) T {
	if ch, ok := c.byID[item.EntityID()]; ok {
		return ch.item
	}
	return item
}

func (c *changes[T]) set(item T, reason string, after ...string) {
	id := item.EntityID()
	ch, ok := c.byID[id]
	if !ok {
		ch = &change[T]{}
		c.byID[id] = ch
		c.order = append(c.order, id)
	}
	ch.item = item
	ch.reasons = append(ch.reasons, reason)
	ch.after = append(ch.after, after...)
}

func (c *changes[T]) discard(id string) {
	delete(c.byID, id)
}

func (c *changes[T]) all() iter.Seq[*change[T]] {
	return func(yield func(*change[T]) bool) {
		for _, id := range c.order {
			ch, ok := c.byID[id]
			if !ok {
				continue
			}
			if !yield(ch) {
				return
			}
		}
	}
}

func recordKey(collection domain.Collection, id string) string {
	return string(collection) + "/" + id
}

// consolidation accumulates the edits of an address merge before they become a plan
type consolidation struct {
	residentsByID map[string]domain.Resident
	residentsAt   map[string][]domain.Resident
	consentsOf    map[string][]domain.Consent
	consentsAt    map[string][]domain.Consent

	residents *changes[domain.Resident]
	consents  *changes[domain.Consent]

	consentDrops  []*change[domain.Consent]
	residentDrops []*change[domain.Resident]
	addressDrops  []*change[domain.Address]

	droppedConsents map[string]bool
	movedConsents   map[string]int
}

func newConsolidation(snap snapshot) *consolidation {
	c := &consolidation{
		residentsByID:   make(map[string]domain.Resident, len(snap.residents)),
		residentsAt:     make(map[string][]domain.Resident),
		consentsOf:      make(map[string][]domain.Consent),
		consentsAt:      make(map[string][]domain.Consent),
		residents:       newChanges[domain.Resident](),
		consents:        newChanges[domain.Consent](),
		droppedConsents: make(map[string]bool),
		movedConsents:   make(map[string]int),
	}
	for _, r := range snap.residents {
		c.residentsByID[r.ID] = r
		c.residentsAt[r.AddressID] = append(c.residentsAt[r.AddressID], r)
	}
	for _, con := range snap.consents {
		c.consentsOf[con.ResidentID] = append(c.consentsOf[con.ResidentID], con)
		c.consentsAt[con.AddressID] = append(c.consentsAt[con.AddressID], con)
	}
	return c
}

// rank orders a duplicate group with the survivor first: most residents, most consents,
// carrying an external id, newest, then lowest id
func (c *consolidation) rank(group []domain.Address) []domain.Address {
	ranked := append([]domain.Address(nil), group...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if na, nb := len(c.residentsAt[a.ID]), len(c.residentsAt[b.ID]); na != nb {
			return na > nb
		}
		if na, nb := len(c.consentsAt[a.ID]), len(c.consentsAt[b.ID]); na != nb {
			return na > nb
		}
		if ea, eb := a.ExternalID != "", b.ExternalID != ""; ea != eb {
			return ea
		}
		if ta, tb := createdAt(a), createdAt(b); !ta.Equal(tb) {
			return ta.After(tb)
		}
		return a.ID < b.ID
	})
	return ranked
}

func createdAt(a domain.Address) time.Time {
	if a.CreatedAt == nil {
		return time.Time{}
	}
	return *a.CreatedAt
}

// merge moves everything on the ranked duplicates onto the first address and drops the duplicates
func (c *consolidation) merge(report *Report, ranked []domain.Address) {
	keep := ranked[0]

	byName := make(map[string]string)
	for _, r := range c.residentsAt[keep.ID] {
		if name := matcher.FoldName(r.FullName()); name != "" {
			if _, ok := byName[name]; !ok {
				byName[name] = r.ID
			}
		}
	}

	for _, dup := range ranked[1:] {
		var after []string

		for _, r := range c.residentsAt[dup.ID] {
			name := matcher.FoldName(r.FullName())
			if keeperID, ok := byName[name]; ok && name != "" {
				after = append(after, c.absorb(report, keep, r, keeperID)...)
				continue
			}

			moved := c.residents.current(r)
			moved.AddressID = keep.ID
			c.residents.set(moved, fmt.Sprintf("address %s merged into %s", dup.ID, keep.ID))
			after = append(after, recordKey(domain.CollectionResident, r.ID))
			if name != "" {
				byName[name] = r.ID
			}
		}

		for _, con := range c.consentsAt[dup.ID] {
			if c.droppedConsents[con.ID] {
				continue
			}
			moved := c.consents.current(con)
			if moved.AddressID == dup.ID {
				moved.AddressID = keep.ID
				c.consents.set(moved, fmt.Sprintf("address %s merged into %s", dup.ID, keep.ID))
			}
			after = append(after, recordKey(domain.CollectionConsent, con.ID))
		}

		c.addressDrops = append(c.addressDrops, &change[domain.Address]{
			item:    dup,
			reasons: []string{fmt.Sprintf("duplicate of address %s", keep.ID)},
			after:   after,
		})
		report.note("address %s merged into %s", describeAddresses([]domain.Address{dup})[0], keep.ID)
	}
}

// absorb folds a moved resident into the same-name resident already at the survivor.
// The moved resident's consents are never lost: they follow the keeper unless it already holds one.
func (c *consolidation) absorb(report *Report, keep domain.Address, r domain.Resident, keeperID string) []string {
	keeper := c.residents.current(c.residentsByID[keeperID])
	owned := c.liveConsents(r.ID)

	var after []string
	switch {
	case len(owned) == 0:
	case c.holdsConsent(keeper.ID):
		for _, con := range owned {
			c.dropConsent(con, fmt.Sprintf("resident %s merged into %s, which already holds a consent", r.ID, keeper.ID))
			after = append(after, recordKey(domain.CollectionConsent, con.ID))
		}
	default:
		for _, con := range owned {
			con.ResidentID = keeper.ID
			con.AddressID = keep.ID
			c.consents.set(con, fmt.Sprintf("resident %s merged into %s", r.ID, keeper.ID))
			after = append(after, recordKey(domain.CollectionConsent, con.ID))
		}
		c.movedConsents[keeper.ID] += len(owned)

		if !keeper.HasSigned || keeper.SignedAt == nil {
			keeper.HasSigned = true
			if keeper.SignedAt == nil {
				signedAt := owned[0].CreatedTime()
				if r.SignedAt != nil {
					signedAt = *r.SignedAt
				}
				keeper.SignedAt = &signedAt
			}
			c.residents.set(keeper, fmt.Sprintf("consent moved from resident %s", r.ID), after...)
		}
	}

	c.residentDrops = append(c.residentDrops, &change[domain.Resident]{
		item:    r,
		reasons: []string{fmt.Sprintf("same name as resident %s at address %s", keeper.ID, keep.ID)},
		after:   after,
	})
	report.note("resident %s (%s) merged into %s", r.ID, r.FullName(), keeper.ID)

	return append(after, recordKey(domain.CollectionResident, r.ID))
}

// liveConsents returns the consents a resident held in the snapshot that are not being deleted
func (c *consolidation) liveConsents(residentID string) []domain.Consent {
	var live []domain.Consent
	for _, con := range c.consentsOf[residentID] {
		if !c.droppedConsents[con.ID] {
			live = append(live, c.consents.current(con))
		}
	}
	return live
}

func (c *consolidation) holdsConsent(residentID string) bool {
	return c.movedConsents[residentID] > 0 || len(c.liveConsents(residentID)) > 0
}

func (c *consolidation) dropConsent(con domain.Consent, reason string) {
	c.consents.discard(con.ID)
	c.droppedConsents[con.ID] = true
	c.consentDrops = append(c.consentDrops, &change[domain.Consent]{item: con, reasons: []string{reason}})
}

// plan turns the accumulated edits into operations: record updates first, then
// deletions from the leaves up. Every deletion waits for the operations that emptied it.
func (c *consolidation) plan() *Plan {
	plan := NewPlan()
	refs := make(map[string]string)
	deps := func(after []string) []string {
		var out []string
		seen := make(map[string]bool)
		for _, key := range after {
			if ref, ok := refs[key]; ok && !seen[ref] {
				seen[ref] = true
				out = append(out, ref)
			}
		}
		return out
	}

	for ch := range c.consents.all() {
		refs[recordKey(domain.CollectionConsent, ch.item.ID)] = plan.UpdateConsent(ch.item, ch.reason(), deps(ch.after)...)
	}
	for _, ch := range c.consentDrops {
		refs[recordKey(domain.CollectionConsent, ch.item.ID)] = plan.DeleteConsent(ch.item, ch.reason())
	}
	for ch := range c.residents.all() {
		refs[recordKey(domain.CollectionResident, ch.item.ID)] = plan.UpdateResident(ch.item, ch.reason(), deps(ch.after)...)
	}
	for _, ch := range c.residentDrops {
		refs[recordKey(domain.CollectionResident, ch.item.ID)] = plan.DeleteResident(ch.item, ch.reason(), deps(ch.after)...)
	}
	for _, ch := range c.addressDrops {
		plan.DeleteAddress(ch.item, ch.reason(), deps(ch.after)...)
	}

	return plan
}
