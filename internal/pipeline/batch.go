package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/boardwatch/internal/model"
)

// DefaultConcurrency is the number of boards fetched at once.
const DefaultConcurrency = 4

// BatchProcessor fetches several boards concurrently. Each board gets a
// fresh pipeline from the factory, built for its source so that per-board
// headers and markers apply.
type BatchProcessor struct {
	pipelineFactory func(source string) *Pipeline
	concurrency     int
	logger          *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets the batch-level logger.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent fetches.
// Values below one are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor returns a BatchProcessor.
func NewBatchProcessor(pipelineFactory func(source string) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch fetches every source and returns the reports in input
// order. A failed board does not stop the others; its error is on its
// report. The returned error is only set when ctx ends the batch, in which
// case reports for boards that never started are nil.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, sources []string) ([]*model.BoardReport, error) {
	results := make([]*model.BoardReport, len(sources))
	err := bp.ProcessBatchWithCallback(ctx, sources, func(report *model.BoardReport, index int) {
		results[index] = report
	})
	return results, err
}

// ProcessBatchWithCallback fetches every source and calls callback with
// each finished report and its index in sources. The callback runs on the
// goroutine that processed the board.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	sources []string,
	callback func(report *model.BoardReport, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_sources", len(sources),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, source := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			bp.logger.Info("fetching board",
				"source", source,
				"index", i+1,
				"total", len(sources),
			)

			report := model.NewBoardReport(source)
			if err := bp.pipelineFactory(source).Execute(ctx, report); err != nil {
				bp.logger.Warn("board failed",
					"source", source,
					"error", err,
				)
			}
			callback(report, i)
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Info("batch processing complete",
		"total_sources", len(sources),
		"elapsed", time.Since(startTime),
	)
	return err
}
