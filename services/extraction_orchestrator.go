package services

import (
	"context"
	"fmt"
	"log"
	"time"
)

const (
	// DefaultBatchSize is the number of page images sent per extraction call
	DefaultBatchSize = 3
	// DefaultBatchDelay spaces out calls to respect the extraction service's
	// per-caller rate limit; it is not needed for correctness
	DefaultBatchDelay = 3 * time.Second
	// DefaultBatchTimeout bounds a single extraction call; expiry is treated
	// the same as a failed batch
	DefaultBatchTimeout = 4 * time.Minute
)

// BatchStatus tracks a batch through the run
type BatchStatus string

const (
	BatchPending   BatchStatus = "pending"
	BatchRunning   BatchStatus = "running"
	BatchSucceeded BatchStatus = "succeeded"
	BatchFailed    BatchStatus = "failed"
)

// ExtractionBatch is a contiguous slice of the frozen selection submitted
// together. Start and End are positions within the frozen selection order,
// end-exclusive.
type ExtractionBatch struct {
	Index  int
	Start  int
	End    int
	Status BatchStatus
}

// ExtractionProgress is reported before each batch and after the last one
type ExtractionProgress struct {
	CompletedBatches int    `json:"completed_batches"`
	TotalBatches     int    `json:"total_batches"`
	CurrentBatch     int    `json:"current_batch"`
	PageRange        string `json:"page_range,omitempty"`
	Message          string `json:"message"`
}

// ProgressFunc receives progress updates during a run. Returning an error
// aborts the run (used for cancellation).
type ProgressFunc func(ExtractionProgress) error

// OrchestratorConfig holds configuration for the batch extraction orchestrator
type OrchestratorConfig struct {
	BatchSize    int
	BatchDelay   time.Duration
	BatchTimeout time.Duration
}

// Orchestrator drives the multi-batch extraction run: it partitions the
// selected pages into fixed-size batches and invokes the extraction
// capability strictly one batch at a time. Batches are never issued
// concurrently; the service is rate-limited per caller and concurrent
// dispatch would defeat the inter-batch delay.
type Orchestrator struct {
	capability   ExtractionCapability
	batchSize    int
	batchDelay   time.Duration
	batchTimeout time.Duration

	// sleep is injectable so tests run without wall-clock waits
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates a new batch extraction orchestrator
func NewOrchestrator(capability ExtractionCapability, config OrchestratorConfig) *Orchestrator {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.BatchDelay <= 0 {
		config.BatchDelay = DefaultBatchDelay
	}
	if config.BatchTimeout <= 0 {
		config.BatchTimeout = DefaultBatchTimeout
	}

	return &Orchestrator{
		capability:   capability,
		batchSize:    config.BatchSize,
		batchDelay:   config.BatchDelay,
		batchTimeout: config.BatchTimeout,
		sleep:        sleepCtx,
	}
}

// BatchSize returns the configured pages-per-batch, so callers announcing a
// run can report the same batch count the run will produce
func (o *Orchestrator) BatchSize() int { return o.batchSize }

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// PartitionBatches partitions pageCount pages into consecutive batches of
// batchSize; the last batch may be smaller. Batch i covers positions
// [i*batchSize, min((i+1)*batchSize, pageCount)).
func PartitionBatches(pageCount, batchSize int) []ExtractionBatch {
	if pageCount <= 0 || batchSize <= 0 {
		return nil
	}

	var batches []ExtractionBatch
	for start := 0; start < pageCount; start += batchSize {
		end := start + batchSize
		if end > pageCount {
			end = pageCount
		}
		batches = append(batches, ExtractionBatch{
			Index:  len(batches),
			Start:  start,
			End:    end,
			Status: BatchPending,
		})
	}
	return batches
}

// Run executes the extraction over the given pages (already restricted to the
// frozen selection, in selection order). It aborts on the first failed batch
// with an ExtractionBatchError; accumulated results from earlier batches are
// not returned on failure.
func (o *Orchestrator) Run(
	ctx context.Context,
	pages []RasterPage,
	instructions string,
	modelChoice string,
	progress ProgressFunc,
) (*ExtractionResult, error) {
	if len(pages) == 0 {
		return nil, ErrEmptySelection
	}

	batches := PartitionBatches(len(pages), o.batchSize)
	accumulated := &ExtractionResult{}

	log.Printf("Orchestrator: Starting run with %d pages in %d batches", len(pages), len(batches))

	for i := range batches {
		batch := &batches[i]
		pageRange := describePageRange(pages[batch.Start:batch.End])

		if progress != nil {
			err := progress(ExtractionProgress{
				CompletedBatches: i,
				TotalBatches:     len(batches),
				CurrentBatch:     i + 1,
				PageRange:        pageRange,
				Message:          fmt.Sprintf("Analyzing %s (batch %d of %d)", pageRange, i+1, len(batches)),
			})
			if err != nil {
				return nil, &ExtractionBatchError{Batch: i, Err: err}
			}
		}

		batch.Status = BatchRunning

		images := make([][]byte, 0, batch.End-batch.Start)
		for _, p := range pages[batch.Start:batch.End] {
			images = append(images, p.PNG)
		}

		batchCtx, cancel := context.WithTimeout(ctx, o.batchTimeout)
		result, err := o.capability.ExtractQuestions(batchCtx, ExtractionRequest{
			Images:       images,
			Instructions: instructions,
			Model:        modelChoice,
		})
		cancel()

		if err != nil {
			batch.Status = BatchFailed
			log.Printf("Orchestrator: Batch %d/%d (%s) failed: %v", i+1, len(batches), pageRange, err)
			return nil, &ExtractionBatchError{Batch: i, Err: err}
		}

		batch.Status = BatchSucceeded
		accumulated.Questions = append(accumulated.Questions, result.Questions...)
		accumulated.Passages = append(accumulated.Passages, result.Passages...)
		accumulated.Instructions = append(accumulated.Instructions, result.Instructions...)

		log.Printf("Orchestrator: Batch %d/%d (%s) returned %d questions",
			i+1, len(batches), pageRange, len(result.Questions))

		if i < len(batches)-1 {
			if err := o.sleep(ctx, o.batchDelay); err != nil {
				return nil, &ExtractionBatchError{Batch: i + 1, Err: err}
			}
		}
	}

	if progress != nil {
		// Final progress update; abort at this point changes nothing, so the
		// callback error is ignored
		progress(ExtractionProgress{
			CompletedBatches: len(batches),
			TotalBatches:     len(batches),
			CurrentBatch:     len(batches),
			Message:          "All batches analyzed",
		})
	}

	log.Printf("Orchestrator: Run complete - %d questions, %d passages accumulated",
		len(accumulated.Questions), len(accumulated.Passages))

	return accumulated, nil
}

// describePageRange renders a human-readable 1-based page listing, e.g.
// "pages 1-3" for contiguous pages or "pages 2, 5, 9" otherwise
func describePageRange(pages []RasterPage) string {
	if len(pages) == 0 {
		return "no pages"
	}
	if len(pages) == 1 {
		return fmt.Sprintf("page %d", pages[0].Index+1)
	}

	contiguous := true
	for i := 1; i < len(pages); i++ {
		if pages[i].Index != pages[i-1].Index+1 {
			contiguous = false
			break
		}
	}
	if contiguous {
		return fmt.Sprintf("pages %d-%d", pages[0].Index+1, pages[len(pages)-1].Index+1)
	}

	s := "pages "
	for i, p := range pages {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%d", p.Index+1)
	}
	return s
}
