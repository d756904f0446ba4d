package matcher

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gnaf-matcher/internal/customer"
	"github.com/gnaf-matcher/internal/debug"
)

// Source yields customer addresses that have no stored outcome yet.
type Source interface {
	Pending(ctx context.Context, limit int) ([]customer.Record, error)
}

// Sink stores the outcomes of one batch.
type Sink interface {
	Save(ctx context.Context, runID uuid.UUID, outcomes []customer.Outcome) error
}

// BatchOptions configures a batch run.
type BatchOptions struct {
	// Size is the number of records fetched and saved together.
	Size int
	// Workers caps the addresses resolved concurrently.
	Workers int
	// Limit stops the run after this many records; 0 processes everything.
	Limit int
}

// BatchProcessor resolves pending customer addresses in batches.
type BatchProcessor struct {
	engine *Engine
	source Source
	sink   Sink
	opts   BatchOptions
}

// BatchStats tracks batch processing statistics
type BatchStats struct {
	RunID             uuid.UUID
	Processed         int
	Matched           int
	Ambiguous         int
	Unmatched         int
	Invalid           int
	Errors            int
	TooManyCandidates int
	PostBox           int
	MailService       int
	ProcessingTime    time.Duration
}

// Add counts one result.
func (s *BatchStats) Add(r Result) {
	s.Processed++
	switch r.Outcome {
	case OutcomeMatched:
		s.Matched++
	case OutcomeAmbiguous:
		s.Ambiguous++
	case OutcomeInvalid:
		s.Invalid++
	default:
		s.Unmatched++
	}
	if r.Err != nil {
		s.Errors++
	}
	if r.TooManyCandidates {
		s.TooManyCandidates++
	}
	if r.Address.PostBox {
		s.PostBox++
	}
	if r.Address.MailService {
		s.MailService++
	}
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(engine *Engine, source Source, sink Sink, opts BatchOptions) *BatchProcessor {
	if opts.Size <= 0 {
		opts.Size = 100
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &BatchProcessor{engine: engine, source: source, sink: sink, opts: opts}
}

// Run processes pending records until none remain, the limit is reached or
// ctx is cancelled. Each batch is saved before the next is fetched.
func (bp *BatchProcessor) Run(ctx context.Context, localDebug bool) (*BatchStats, error) {
	startTime := time.Now()
	stats := &BatchStats{RunID: uuid.New()}
	log := zap.L().With(zap.String("run_id", stats.RunID.String()))
	log.Info("matcher: batch run started", zap.Int("batch_size", bp.opts.Size), zap.Int("workers", bp.opts.Workers))

	for {
		if err := ctx.Err(); err != nil {
			return stats, eris.Wrap(err, "matcher: batch run cancelled")
		}

		size := bp.opts.Size
		if bp.opts.Limit > 0 {
			remaining := bp.opts.Limit - stats.Processed
			if remaining <= 0 {
				break
			}
			size = min(size, remaining)
		}

		records, err := bp.source.Pending(ctx, size)
		if err != nil {
			return stats, eris.Wrap(err, "matcher: fetch pending")
		}
		if len(records) == 0 {
			break
		}

		results, err := bp.ProcessBatch(ctx, localDebug, records)
		if err != nil {
			return stats, err
		}
		outcomes := make([]customer.Outcome, 0, len(results))
		now := time.Now().UTC()
		for _, r := range results {
			stats.Add(r)
			outcomes = append(outcomes, ToOutcome(r, now))
		}
		if err := bp.sink.Save(ctx, stats.RunID, outcomes); err != nil {
			return stats, eris.Wrap(err, "matcher: save batch")
		}
		debug.Output(localDebug, "Processed %d records (%d matched, %d ambiguous)", stats.Processed, stats.Matched, stats.Ambiguous)
	}

	stats.ProcessingTime = time.Since(startTime)
	log.Info("matcher: batch run complete",
		zap.Int("processed", stats.Processed),
		zap.Int("matched", stats.Matched),
		zap.Int("ambiguous", stats.Ambiguous),
		zap.Int("unmatched", stats.Unmatched),
		zap.Int("invalid", stats.Invalid),
		zap.Int("errors", stats.Errors),
		zap.Int("too_many_candidates", stats.TooManyCandidates),
		zap.Int("post_box", stats.PostBox),
		zap.Int("mail_service", stats.MailService),
		zap.Duration("elapsed", stats.ProcessingTime),
	)
	return stats, nil
}

// ProcessBatch resolves records concurrently. Results keep the order of
// records. Cancelling ctx stops workers that have not started and returns the
// context error; no partial batch is returned.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, localDebug bool, records []customer.Record) ([]Result, error) {
	results := make([]Result, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.opts.Workers)
	for i, rec := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := bp.engine.Resolve(gctx, localDebug, InputFromRecord(rec))
			if r.Err != nil {
				zap.L().Warn("matcher: resolve failed", zap.Int64("customer_id", rec.CustomerID), zap.Error(r.Err))
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "matcher: process batch")
	}
	// Cancellation mid-lookup only shows up as per-address errors.
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "matcher: process batch")
	}
	return results, nil
}

// InputFromRecord converts a stored customer address into an engine input.
func InputFromRecord(rec customer.Record) Input {
	return Input{
		ID:       rec.CustomerID,
		Line:     rec.AddressLine,
		Line2:    rec.AddressLine2,
		Suburb:   rec.Suburb,
		State:    rec.State,
		Postcode: rec.Postcode,
	}
}

// ToOutcome converts a result into its stored form. A matched result keeps
// its detail id; an ambiguous one stores every candidate id as extras.
func ToOutcome(r Result, processedOn time.Time) customer.Outcome {
	out := customer.Outcome{
		CustomerID:  r.Input.ID,
		Status:      string(r.Outcome),
		Invalid:     r.Outcome == OutcomeInvalid,
		PostBox:     r.Address.PostBox,
		MailService: r.Address.MailService,
		ProcessedOn: processedOn,
	}
	switch r.Outcome {
	case OutcomeMatched:
		out.DetailID = r.Matches[0].DetailID
	case OutcomeAmbiguous:
		out.Extra = r.DetailIDs()
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}
