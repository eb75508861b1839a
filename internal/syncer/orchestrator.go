package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cloverleaf-hoa/consent-reconciler/internal/adapter"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/address"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/domain"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/logger"
	"github.com/cloverleaf-hoa/consent-reconciler/internal/store"
)

// Config holds the run options of the orchestrator
type Config struct {
	DryRun           bool          // Compute and report the plan without mutating anything
	ExpectDigest     string        // Abort an applying run whose plan digest differs
	PageSize         int           // Records per list call
	MutationInterval time.Duration // Minimum spacing between mutations
	ProgressEvery    int           // Log progress every N operations
	ConsentSource    string        // Source recorded on imported consents
	RecordedBy       string        // Actor recorded on imported consents
}

// Orchestrator runs the reconciliation jobs against one repository.
// Each job snapshots the collections it needs, plans every mutation and then
// applies the plan sequentially.
type Orchestrator struct {
	config     Config
	repo       store.Repository
	normalizer *address.Normalizer
	clock      adapter.Clock
	json       adapter.JSON
	jcs        adapter.JCS
	limiter    *rate.Limiter
}

// New creates an orchestrator
func New(
	config Config,
	repo store.Repository,
	normalizer *address.Normalizer,
	clock adapter.Clock,
	json adapter.JSON,
	jcs adapter.JCS,
) *Orchestrator {
	if config.PageSize <= 0 {
		config.PageSize = 1000
	}
	if config.ProgressEvery <= 0 {
		config.ProgressEvery = 50
	}

	limit := rate.Inf
	if config.MutationInterval > 0 {
		limit = rate.Every(config.MutationInterval)
	}

	return &Orchestrator{
		config:     config,
		repo:       repo,
		normalizer: normalizer,
		clock:      clock,
		json:       json,
		jcs:        jcs,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// begin starts a report and tags the context with the run
func (o *Orchestrator) begin(ctx context.Context, command string) (context.Context, *Report) {
	report := &Report{
		RunID:     ulid.Make().String(),
		Command:   command,
		DryRun:    o.config.DryRun,
		StartedAt: o.clock.Now(),
	}
	ctx = logger.WithRun(ctx, logger.RunInfo{RunID: report.RunID, Command: command, DryRun: o.config.DryRun})
	logger.InfoCtx(ctx, "Run started")
	return ctx, report
}

// finish digests the plan, applies it unless this is a dry run, and closes the report.
// A digest mismatch is returned before any mutation.
func (o *Orchestrator) finish(ctx context.Context, report *Report, plan *Plan) error {
	digest, err := Digest(plan, o.json, o.jcs)
	if err != nil {
		return err
	}
	report.PlanDigest = digest
	report.Operations = plan.Operations()

	logger.InfoCtx(ctx, "Plan computed",
		zap.String("digest", digest),
		zap.Int("creates", plan.Count(store.MutationCreate)),
		zap.Int("updates", plan.Count(store.MutationUpdate)),
		zap.Int("deletes", plan.Count(store.MutationDelete)),
	)

	if !o.config.DryRun {
		if o.config.ExpectDigest != "" && o.config.ExpectDigest != digest {
			return fmt.Errorf("%w: expected %s, computed %s", domain.ErrPlanDigestMismatch, o.config.ExpectDigest, digest)
		}
		o.apply(ctx, plan)
	}

	o.close(ctx, report)
	report.tally(plan)
	return nil
}

// close stamps the run duration and logs the summary
func (o *Orchestrator) close(ctx context.Context, report *Report) {
	report.Duration = o.clock.Since(report.StartedAt).String()
	logger.InfoCtx(ctx, "Run finished", zap.String("duration", report.Duration))
}

// snapshots of the three collections; nil slices for collections not requested
type snapshot struct {
	addresses []domain.Address
	residents []domain.Resident
	consents  []domain.Consent
}

func (s snapshot) views() []domain.ResidentView {
	return domain.JoinResidents(s.residents, s.addresses)
}

type want struct {
	addresses, residents, consents bool
}

func (o *Orchestrator) snapshot(ctx context.Context, w want) (snapshot, error) {
	var s snapshot
	var err error

	if w.addresses {
		if s.addresses, err = store.Snapshot(ctx, o.repo.Addresses(), nil, o.config.PageSize); err != nil {
			return s, err
		}
	}
	if w.residents {
		if s.residents, err = store.Snapshot(ctx, o.repo.Residents(), nil, o.config.PageSize); err != nil {
			return s, err
		}
	}
	if w.consents {
		if s.consents, err = store.Snapshot(ctx, o.repo.Consents(), nil, o.config.PageSize); err != nil {
			return s, err
		}
	}

	logger.InfoCtx(ctx, "Snapshot loaded",
		zap.Int("addresses", len(s.addresses)),
		zap.Int("residents", len(s.residents)),
		zap.Int("consents", len(s.consents)),
	)
	return s, nil
}
