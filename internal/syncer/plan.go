package syncer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/domain"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/store"
)

// Status is the state of one planned operation
type Status string

const (
	StatusPending Status = "PENDING"
	StatusApplied Status = "APPLIED"
	StatusFailed  Status = "FAILED"
	StatusSkipped Status = "SKIPPED"
)

const refPrefix = "ref:"

// Operation is one planned mutation.
//
// Every operation carries a Ref that later operations may name in DependsOn.
// A create's ref may also stand in for a foreign key; it is replaced by the created id when applied.
type Operation struct {
	Seq        int               `json:"seq"`
	Kind       store.Mutation    `json:"kind"`
	Collection domain.Collection `json:"collection"`
	Ref        string            `json:"ref,omitempty"`
	DependsOn  []string          `json:"dependsOn,omitempty"`
	RecordID   string            `json:"recordId,omitempty"`
	Reason     string            `json:"reason"`
	Address    *domain.Address   `json:"address,omitempty"`
	Resident   *domain.Resident  `json:"resident,omitempty"`
	Consent    *domain.Consent   `json:"consent,omitempty"`

	Status   Status `json:"status"`
	Error    string `json:"error,omitempty"`
	ResultID string `json:"resultId,omitempty"`

	stage int
}

// IsRef reports whether a foreign key value is a placeholder for a record created in the same run
func IsRef(id string) bool {
	return strings.HasPrefix(id, refPrefix)
}

// Plan is an ordered list of mutations computed from snapshots, applied later in dependency order
type Plan struct {
	ops  []*Operation
	refs map[string]*Operation
}

// NewPlan creates an empty plan
func NewPlan() *Plan {
	return &Plan{refs: make(map[string]*Operation)}
}

// Operations returns the operations in the order they were planned
func (p *Plan) Operations() []*Operation {
	return p.ops
}

// Len returns the number of planned operations
func (p *Plan) Len() int {
	return len(p.ops)
}

// Count returns the number of planned operations of a kind
func (p *Plan) Count(kind store.Mutation) int {
	n := 0
	for _, op := range p.ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// CreateAddress plans an address creation and returns its ref
func (p *Plan) CreateAddress(a domain.Address, reason string) string {
	return p.add(&Operation{Kind: store.MutationCreate, Collection: domain.CollectionAddress, Address: &a, Reason: reason})
}

// CreateResident plans a resident creation and returns its ref
func (p *Plan) CreateResident(r domain.Resident, reason string, dependsOn ...string) string {
	return p.add(&Operation{Kind: store.MutationCreate, Collection: domain.CollectionResident, Resident: &r, Reason: reason, DependsOn: dependsOn})
}

// UpdateResident plans a full-record resident update and returns its ref
func (p *Plan) UpdateResident(r domain.Resident, reason string, dependsOn ...string) string {
	return p.add(&Operation{Kind: store.MutationUpdate, Collection: domain.CollectionResident, RecordID: r.ID, Resident: &r, Reason: reason, DependsOn: dependsOn})
}

// DeleteResident plans a resident deletion and returns its ref
func (p *Plan) DeleteResident(r domain.Resident, reason string, dependsOn ...string) string {
	return p.add(&Operation{Kind: store.MutationDelete, Collection: domain.CollectionResident, RecordID: r.ID, Resident: &r, Reason: reason, DependsOn: dependsOn})
}

// CreateConsent plans a consent creation and returns its ref
func (p *Plan) CreateConsent(c domain.Consent, reason string, dependsOn ...string) string {
	return p.add(&Operation{Kind: store.MutationCreate, Collection: domain.CollectionConsent, Consent: &c, Reason: reason, DependsOn: dependsOn})
}

// UpdateConsent plans a full-record consent update and returns its ref
func (p *Plan) UpdateConsent(c domain.Consent, reason string, dependsOn ...string) string {
	return p.add(&Operation{Kind: store.MutationUpdate, Collection: domain.CollectionConsent, RecordID: c.ID, Consent: &c, Reason: reason, DependsOn: dependsOn})
}

// DeleteConsent plans a consent deletion and returns its ref
func (p *Plan) DeleteConsent(c domain.Consent, reason string) string {
	return p.add(&Operation{Kind: store.MutationDelete, Collection: domain.CollectionConsent, RecordID: c.ID, Consent: &c, Reason: reason})
}

// DeleteAddress plans an address deletion and returns its ref
func (p *Plan) DeleteAddress(a domain.Address, reason string, dependsOn ...string) string {
	return p.add(&Operation{Kind: store.MutationDelete, Collection: domain.CollectionAddress, RecordID: a.ID, Address: &a, Reason: reason, DependsOn: dependsOn})
}

func (p *Plan) add(op *Operation) string {
	op.Seq = len(p.ops) + 1
	op.Status = StatusPending
	op.Ref = fmt.Sprintf("%s%s:%d", refPrefix, op.Collection, op.Seq)

	// An operation never runs before the operations it depends on. Writes run
	// in ascending stage order and deletes in descending order after every write.
	op.stage = op.Collection.Stage()
	for _, ref := range op.DependsOn {
		parent, ok := p.refs[ref]
		if !ok {
			panic(fmt.Sprintf("syncer: operation %d depends on unknown ref %q", op.Seq, ref))
		}
		switch {
		case op.Kind != store.MutationDelete && parent.Kind == store.MutationDelete:
			panic(fmt.Sprintf("syncer: %s operation %d cannot depend on delete %q", op.Kind, op.Seq, ref))
		case op.Kind == store.MutationDelete && parent.Kind == store.MutationDelete:
			op.stage = min(op.stage, parent.stage)
		case op.Kind != store.MutationDelete:
			op.stage = max(op.stage, parent.stage)
		}
	}

	p.refs[op.Ref] = op
	p.ops = append(p.ops, op)
	return op.Ref
}

// Ordered returns the operations in application order: creates and updates by
// ascending stage, then deletes by descending stage. Plan order is kept within a stage.
func (p *Plan) Ordered() []*Operation {
	var writes, deletes []*Operation
	for _, op := range p.ops {
		if op.Kind == store.MutationDelete {
			deletes = append(deletes, op)
		} else {
			writes = append(writes, op)
		}
	}

	sort.SliceStable(writes, func(i, j int) bool { return writes[i].stage < writes[j].stage })
	sort.SliceStable(deletes, func(i, j int) bool { return deletes[i].stage > deletes[j].stage })

	return append(writes, deletes...)
}
