package importer

import (
	"bufio"
	"context"
	"errors"
	"log"
	"time"

	"github.com/adityarawat/examdesk/services"
	"github.com/adityarawat/examdesk/utils/response"
	"github.com/adityarawat/examdesk/utils/sse"
	"github.com/gofiber/fiber/v2"
)

// AnalyzeRequest carries the optional extraction parameters
type AnalyzeRequest struct {
	Instructions string `json:"instructions,omitempty"`
	Model        string `json:"model,omitempty"`
}

// Analyze handles POST /api/v1/imports/:id/analyze
// Streams extraction progress as Server-Sent Events. Batches are processed
// strictly in sequence; the first failed batch aborts the run and the session
// returns to the upload state with nothing retained.
func (h *ImportHandler) Analyze(c *fiber.Ctx) error {
	sess, err := h.ownedSession(c)
	if err != nil {
		return h.sessionError(c, err)
	}
	userID := sess.OwnerID()

	var req AnalyzeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return h.sessionError(c, err)
		}
	}

	// Freeze the selection before streaming starts so a concurrent page
	// mutation cannot change what this run operates on
	pages, generation, err := sess.BeginExtraction()
	if err != nil {
		return h.sessionError(c, err)
	}

	// Clear any previous stuck job for this user before starting a new one
	if activeJobID, _ := h.tracker.GetActiveJob(c.Context(), userID); activeJobID != "" {
		h.tracker.ClearActiveJob(c.Context(), userID)
	}

	job, err := h.tracker.CreateJob(c.Context(), userID, sess.ID())
	if err != nil {
		// Extraction proceeds without Redis recovery state
		log.Printf("ImportHandler: Failed to create job record: %v", err)
	}
	jobID := sess.ID()
	if job != nil {
		jobID = job.JobID
	}

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")
	c.Set("X-Accel-Buffering", "no") // Disable nginx buffering

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		// The Fiber context is not valid inside the stream writer goroutine
		ctx := context.Background()

		h.runExtraction(ctx, w, sess, pages, generation, jobID, userID, req)
	})

	return nil
}

func (h *ImportHandler) runExtraction(
	ctx context.Context,
	w *bufio.Writer,
	sess *services.ImportSession,
	pages []services.RasterPage,
	generation int,
	jobID string,
	userID uint,
	req AnalyzeRequest,
) {
	emit := func(event services.ProgressEvent) error {
		event.JobID = jobID
		event.Timestamp = time.Now()
		if updateErr := h.tracker.UpdateProgress(ctx, jobID, event); updateErr != nil {
			log.Printf("ImportHandler: Failed to update job state: %v", updateErr)
		}
		return sse.Send(w, sse.Event{Event: event.Type, Data: event})
	}

	totalBatches := len(services.PartitionBatches(len(pages), h.orchestrator.BatchSize()))

	emit(services.ProgressEvent{
		Type:         "started",
		Progress:     0,
		Phase:        "initializing",
		Message:      "Starting extraction...",
		TotalBatches: totalBatches,
	})

	result, err := h.orchestrator.Run(ctx, pages, req.Instructions, req.Model,
		func(p services.ExtractionProgress) error {
			return emit(services.ProgressEvent{
				Type:             "progress",
				Progress:         services.CalculateProgress("extraction", p.CompletedBatches, p.TotalBatches),
				Phase:            "extraction",
				Message:          p.Message,
				TotalBatches:     p.TotalBatches,
				CompletedBatches: p.CompletedBatches,
				CurrentBatch:     p.CurrentBatch,
				PageRange:        p.PageRange,
			})
		})
	if err != nil {
		h.abortExtraction(ctx, w, sess, generation, jobID, err)
		return
	}

	emit(services.ProgressEvent{
		Type:     "progress",
		Progress: services.CalculateProgress("normalize", 0, 0),
		Phase:    "normalize",
		Message:  "Normalizing extracted questions...",
	})

	set := h.normalizer.Normalize(result)

	emit(services.ProgressEvent{
		Type:     "progress",
		Progress: services.CalculateProgress("duplicates", 0, 0),
		Phase:    "duplicates",
		Message:  "Checking for duplicate questions...",
	})

	flags, warning := h.detector.Flag(ctx, set.Questions)
	if warning != "" {
		emit(services.ProgressEvent{
			Type:    "warning",
			Phase:   "duplicates",
			Message: warning,
		})
	}

	if err := sess.CompleteExtraction(generation, set, flags, warning); err != nil {
		// The session was abandoned or restarted while this run was in
		// flight; its results are discarded
		h.abortExtraction(ctx, w, sess, generation, jobID, err)
		return
	}

	emit(services.ProgressEvent{
		Type:     "complete",
		Progress: 100,
		Phase:    "complete",
		Message:  "Extraction complete",
	})
	sse.SendComplete(w, fiber.Map{
		"session_id":     sess.ID(),
		"question_count": len(set.Questions),
		"passage_count":  len(set.Passages),
		"total_marks":    set.TotalMarks,
	})

	h.tracker.ClearActiveJob(ctx, userID)
}

// abortExtraction returns the session to the upload state and reports the
// failure both to the stream and the job record
func (h *ImportHandler) abortExtraction(
	ctx context.Context,
	w *bufio.Writer,
	sess *services.ImportSession,
	generation int,
	jobID string,
	cause error,
) {
	if !errors.Is(cause, services.ErrStaleRun) {
		if failErr := sess.FailExtraction(generation); failErr != nil &&
			!errors.Is(failErr, services.ErrStaleRun) {
			log.Printf("ImportHandler: Failed to reset session %s: %v", sess.ID(), failErr)
		}
	}

	var batchErr *services.ExtractionBatchError
	message := cause.Error()
	if errors.As(cause, &batchErr) {
		message = batchErr.Error()
	}

	event := services.ProgressEvent{
		Type:         "error",
		JobID:        jobID,
		Phase:        "extraction",
		Message:      "Extraction failed",
		ErrorMessage: message,
		Timestamp:    time.Now(),
	}
	if updateErr := h.tracker.UpdateProgress(ctx, jobID, event); updateErr != nil {
		log.Printf("ImportHandler: Failed to record job failure: %v", updateErr)
	}
	sse.Send(w, sse.Event{Event: "error", Data: event})
}

// GetAnalysisStatus handles GET /api/v1/imports/:id/analyze/status
// Lets a reconnecting client recover the position of an in-flight run
func (h *ImportHandler) GetAnalysisStatus(c *fiber.Ctx) error {
	sess, err := h.ownedSession(c)
	if err != nil {
		return h.sessionError(c, err)
	}

	jobID, err := h.tracker.GetActiveJob(c.Context(), sess.OwnerID())
	if err != nil || jobID == "" {
		return response.NotFound(c, "No active analysis job")
	}

	job, err := h.tracker.GetJob(c.Context(), jobID)
	if err != nil {
		return response.NotFound(c, "Analysis job not found")
	}

	return response.Success(c, job)
}
