package gates

import (
	"context"
	"math/rand"

	"golang.org/x/sync/semaphore"

	"seqtriage/domain/core"
	"seqtriage/domain/verdict"
	"seqtriage/internal"
)

// BatchItem pairs one candidate's evidence with the seeded RNG stream its
// bootstrap fallback should draw from. RNG may be nil.
type BatchItem struct {
	CandidateID core.CandidateID
	Evidence    Evidence
	RNG         *rand.Rand
}

// Engine evaluates candidate batches concurrently, bounded by a weighted
// semaphore so a large batch cannot fan out without limit.
type Engine struct {
	sem    *semaphore.Weighted
	logger *internal.Logger
}

// NewEngine creates a gate engine allowing maxConcurrent evaluations at
// once. Values below 1 fall back to serial evaluation.
func NewEngine(maxConcurrent int, logger *internal.Logger) *Engine {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Engine{
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
		logger: logger.With("gates"),
	}
}

// EvaluateBatch gates every item and aggregates the verdicts into a
// validation report. Verdict order matches item order regardless of which
// evaluation finishes first.
func (e *Engine) EvaluateBatch(ctx context.Context, runID core.RunID, items []BatchItem) (*verdict.ValidationReport, error) {
	verdicts := make([]verdict.CandidateVerdict, len(items))

	type evalResult struct {
		index int
		v     verdict.CandidateVerdict
		err   error
	}
	resultChan := make(chan evalResult, len(items))

	for i, item := range items {
		go func(index int, item BatchItem) {
			if err := e.sem.Acquire(ctx, 1); err != nil {
				resultChan <- evalResult{index: index, err: err}
				return
			}
			defer e.sem.Release(1)

			resultChan <- evalResult{
				index: index,
				v:     EvaluateCandidate(item.CandidateID, item.Evidence, item.RNG),
			}
		}(i, item)
	}

	for range items {
		select {
		case res := <-resultChan:
			if res.err != nil {
				return nil, res.err
			}
			verdicts[res.index] = res.v
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	report := verdict.NewValidationReport(runID, verdicts)
	e.logger.Info("gated %d candidates for run %s: %d ready, %d blocked",
		len(items), runID, report.Passed, report.Failed)
	return report, nil
}
