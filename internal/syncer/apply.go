package syncer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/domain"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/logger"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/store"
)

// apply executes the plan one operation at a time.
// A failed operation is recorded and the run continues; operations depending on it are skipped.
func (o *Orchestrator) apply(ctx context.Context, plan *Plan) {
	ordered := plan.Ordered()
	created := make(map[string]string)
	byRef := make(map[string]*Operation)

	for i, op := range ordered {
		byRef[op.Ref] = op

		if ref, status, failed := failedParent(op, byRef); failed {
			op.Status = StatusSkipped
			op.Error = fmt.Errorf("%w: %s is %s", domain.ErrDependencyFailed, ref, status).Error()
			logger.WarnCtx(ctx, "Skipping operation",
				zap.String("collection", string(op.Collection)),
				zap.String("op", string(op.Kind)),
				zap.String("record_id", op.RecordID),
				zap.String("depends_on", ref),
			)
			continue
		}

		if err := o.limiter.Wait(ctx); err != nil {
			// Context is done: nothing else can be applied
			for _, rest := range ordered[i:] {
				rest.Status = StatusSkipped
				rest.Error = err.Error()
			}
			logger.ErrorCtx(ctx, fmt.Errorf("apply interrupted: %w", err), zap.Int("remaining", len(ordered)-i))
			return
		}

		id, err := o.execute(ctx, op, created)
		if err != nil {
			op.Status = StatusFailed
			op.Error = err.Error()
			logger.ErrorCtx(ctx, err,
				zap.String("collection", string(op.Collection)),
				zap.String("op", string(op.Kind)),
				zap.String("record_id", op.RecordID),
				zap.Int("seq", op.Seq),
			)
		} else {
			op.Status = StatusApplied
			op.ResultID = id
			if op.Kind == store.MutationCreate {
				created[op.Ref] = id
			}
		}

		if (i+1)%o.config.ProgressEvery == 0 {
			logger.InfoCtx(ctx, "Apply progress", zap.Int("done", i+1), zap.Int("total", len(ordered)))
		}
	}

	logger.InfoCtx(ctx, "Apply finished", zap.Int("total", len(ordered)))
}

// failedParent returns the first dependency that did not apply.
// Dependencies always precede their dependants in application order.
func failedParent(op *Operation, byRef map[string]*Operation) (string, Status, bool) {
	for _, ref := range op.DependsOn {
		parent, ok := byRef[ref]
		if !ok {
			return ref, StatusPending, true
		}
		if parent.Status != StatusApplied {
			return ref, parent.Status, true
		}
	}
	return "", "", false
}

// execute sends one operation to its collection and returns the affected record id
func (o *Orchestrator) execute(ctx context.Context, op *Operation, created map[string]string) (string, error) {
	now := o.clock.Now()

	switch op.Collection {
	case domain.CollectionAddress:
		if op.Address == nil {
			return "", fmt.Errorf("operation %d carries no address", op.Seq)
		}
		return write(ctx, o.repo.Addresses(), op.Kind, *op.Address, op.RecordID)

	case domain.CollectionResident:
		if op.Resident == nil {
			return "", fmt.Errorf("operation %d carries no resident", op.Seq)
		}
		op.Resident.AddressID = resolve(op.Resident.AddressID, created)
		if op.Resident.HasSigned && op.Resident.SignedAt == nil {
			op.Resident.SignedAt = &now
		}
		return write(ctx, o.repo.Residents(), op.Kind, *op.Resident, op.RecordID)

	case domain.CollectionConsent:
		if op.Consent == nil {
			return "", fmt.Errorf("operation %d carries no consent", op.Seq)
		}
		op.Consent.ResidentID = resolve(op.Consent.ResidentID, created)
		op.Consent.AddressID = resolve(op.Consent.AddressID, created)
		if op.Kind == store.MutationCreate && op.Consent.RecordedAt.IsZero() {
			op.Consent.RecordedAt = now
		}
		return write(ctx, o.repo.Consents(), op.Kind, *op.Consent, op.RecordID)
	}

	return "", fmt.Errorf("unknown collection %q", op.Collection)
}

// resolve substitutes a ref with the id of the record created for it
func resolve(id string, created map[string]string) string {
	if resolved, ok := created[id]; ok && IsRef(id) {
		return resolved
	}
	return id
}

func write[T domain.Entity[T]](ctx context.Context, c store.Collection[T], kind store.Mutation, item T, id string) (string, error) {
	for _, field := range []string{"addressId", "residentId"} {
		if value, ok := item.FieldValue(field); ok && IsRef(value) {
			return "", fmt.Errorf("unresolved reference %s in %s", value, field)
		}
	}

	var (
		result T
		err    error
	)

	switch kind {
	case store.MutationCreate:
		result, err = c.Create(ctx, item)
	case store.MutationUpdate:
		result, err = c.Update(ctx, item)
	case store.MutationDelete:
		result, err = c.Delete(ctx, id)
	default:
		return "", fmt.Errorf("unknown mutation %q", kind)
	}
	if err != nil {
		return "", fmt.Errorf("failed to %s %s: %w", kind, c.Name(), err)
	}

	return result.EntityID(), nil
}
