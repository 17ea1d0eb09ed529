package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/equityline/caseenrich/internal/model"
)

// CaseResolver is the browser-session surface the runner drives.
type CaseResolver interface {
	ResolveCase(ctx context.Context, caseNumber string) (string, error)
	GoBack(ctx context.Context) error
}

// CatalogSource lists a case's documents and downloads them.
type CatalogSource interface {
	Downloader
	Events(ctx context.Context, caseNumber, portalCaseID string) ([]model.DocumentDescriptor, error)
}

// ResultStore records the one outcome every case ends in: a full result, a
// red flag, or a parse failure.
type ResultStore interface {
	SaveFinal(ctx context.Context, result *model.FinalResult) error
	UpdateRedFlag(ctx context.Context, caseNumber, reason, caseSummary string, active bool) error
	MarkParseFailed(ctx context.Context, caseNumber, reason string) error
}

// Runner processes cases one at a time against a single browser session.
type Runner struct {
	session CaseResolver
	catalog CatalogSource
	engine  *Engine
	store   ResultStore

	// now is a test hook for the run date.
	now func() time.Time
}

// NewRunner assembles the per-case pipeline.
func NewRunner(session CaseResolver, catalog CatalogSource, engine *Engine, store ResultStore) *Runner {
	return &Runner{
		session: session,
		catalog: catalog,
		engine:  engine,
		store:   store,
		now:     time.Now,
	}
}

// Run processes every case number in order. A failed case is recorded and
// does not stop the run; only context cancellation does.
func (r *Runner) Run(ctx context.Context, caseNumbers []string) error {
	for _, caseNumber := range caseNumbers {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "pipeline: run canceled")
		}
		if err := r.ProcessCase(ctx, caseNumber); err != nil {
			zap.L().Error("case failed",
				zap.String("case_number", caseNumber),
				zap.Error(err))
		}
	}
	return nil
}

// ProcessCase runs one case end to end. Every exit records exactly one
// outcome: SaveFinal, UpdateRedFlag, or MarkParseFailed. The browser
// navigates back to the search page regardless of outcome.
func (r *Runner) ProcessCase(ctx context.Context, caseNumber string) error {
	runDate := r.now()
	started := time.Now()
	zap.L().Info("processing case", zap.String("case_number", caseNumber))

	defer func() {
		if err := r.session.GoBack(ctx); err != nil {
			zap.L().Warn("failed to return to search page",
				zap.String("case_number", caseNumber),
				zap.Error(err))
		}
	}()

	portalCaseID, err := r.session.ResolveCase(ctx, caseNumber)
	if err != nil {
		return r.markFailed(ctx, caseNumber, err)
	}

	docs, err := r.catalog.Events(ctx, caseNumber, portalCaseID)
	if err != nil {
		return r.markFailed(ctx, caseNumber, err)
	}

	ranked, err := FilterAndRank(docs)
	if err != nil {
		return r.markFailed(ctx, caseNumber, err)
	}
	if len(ranked) == 0 {
		return r.markFailed(ctx, caseNumber,
			eris.New("pipeline: no documents matched the filing taxonomy"))
	}

	walk, err := r.engine.Walk(ctx, runDate, ranked)
	if err != nil {
		return r.markFailed(ctx, caseNumber, err)
	}

	if walk.RedFlagged {
		state := walk.State
		if err := r.store.UpdateRedFlag(ctx, caseNumber,
			state.RedFlagReason.String(),
			state.DealEvaluation.CaseSummary.String(),
			state.ActiveIndicator.Bool()); err != nil {
			return eris.Wrapf(err, "pipeline: record red flag for case %s", caseNumber)
		}
		zap.L().Info("case recorded as red-flagged",
			zap.String("case_number", caseNumber),
			zap.String("reason", state.RedFlagReason.String()))
		return nil
	}

	result, err := Derive(caseNumber, walk.State)
	if err != nil {
		return r.markFailed(ctx, caseNumber, err)
	}

	if IsExcludedClassification(result.Case.ClassificationReason, result.Case.RedFlagReason) {
		zap.L().Warn("classification names an excluded case type",
			zap.String("case_number", caseNumber),
			zap.String("classification", result.Case.ClassificationReason))
	}

	if err := r.store.SaveFinal(ctx, result); err != nil {
		return eris.Wrapf(err, "pipeline: persist case %s", caseNumber)
	}

	zap.L().Info("case enriched",
		zap.String("case_number", caseNumber),
		zap.Int("documents", walk.Processed),
		zap.Int("properties", len(result.Properties)),
		zap.String("amount_owed", model.FormatMoney(result.Tax.AmountOwed)),
		zap.Duration("elapsed", time.Since(started)))
	return nil
}

// markFailed records the parse failure and passes the original error back
// for logging. A failing failure-write is attached rather than swallowed.
func (r *Runner) markFailed(ctx context.Context, caseNumber string, cause error) error {
	if err := r.store.MarkParseFailed(ctx, caseNumber, cause.Error()); err != nil {
		zap.L().Error("failed to record parse failure",
			zap.String("case_number", caseNumber),
			zap.Error(err))
	}
	return eris.Wrapf(cause, "pipeline: case %s failed", caseNumber)
}
