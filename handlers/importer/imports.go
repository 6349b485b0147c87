package importer

import (
	"errors"

	"github.com/adityarawat/examdesk/services"
	"github.com/adityarawat/examdesk/utils/middleware"
	"github.com/adityarawat/examdesk/utils/pdfvalidation"
	"github.com/adityarawat/examdesk/utils/response"
	"github.com/adityarawat/examdesk/utils/validation"
	"github.com/gofiber/fiber/v2"
)

// ImportHandler drives the document-to-exam import workflow. All pipeline
// state lives in the session; the handler is a pure consumer.
type ImportHandler struct {
	registry     *services.SessionRegistry
	rasterizer   *services.Rasterizer
	orchestrator *services.Orchestrator
	normalizer   *services.Normalizer
	detector     *services.DuplicateDetector
	examService  *services.ExamService
	tagService   *services.TagService
	tracker      *services.ProgressTracker
	validator    *validation.Validator
}

// NewImportHandler creates a new import handler
func NewImportHandler(
	registry *services.SessionRegistry,
	rasterizer *services.Rasterizer,
	orchestrator *services.Orchestrator,
	normalizer *services.Normalizer,
	detector *services.DuplicateDetector,
	examService *services.ExamService,
	tagService *services.TagService,
	tracker *services.ProgressTracker,
) *ImportHandler {
	return &ImportHandler{
		registry:     registry,
		rasterizer:   rasterizer,
		orchestrator: orchestrator,
		normalizer:   normalizer,
		detector:     detector,
		examService:  examService,
		tagService:   tagService,
		tracker:      tracker,
		validator:    validation.NewValidator(),
	}
}

// CreateImport handles POST /api/v1/imports
// Accepts a multipart PDF upload, rasterizes it, and opens a session in the
// selecting state
func (h *ImportHandler) CreateImport(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "A PDF file upload is required")
	}

	content, result, err := pdfvalidation.ValidatePDFFile(file, pdfvalidation.ImportLimits)
	if err != nil {
		return response.InternalServerError(c, "Failed to read uploaded file")
	}
	if !result.Valid {
		return response.BadRequest(c, result.Error)
	}

	pages, pageCount, err := h.rasterizer.RasterizeAll(content)
	if err != nil {
		// A render failure mid-document leaves only a prefix; the reviewer
		// must re-upload rather than work from an incomplete page set
		var docErr *services.DocumentFormatError
		if errors.As(err, &docErr) {
			return response.BadRequest(c, docErr.Error())
		}
		return response.ErrorWithDetails(c, fiber.StatusUnprocessableEntity,
			"Failed to rasterize document", "RENDER_ERROR", err.Error())
	}

	sess := h.registry.Create(userID)
	if err := sess.AttachPages(pages, pageCount); err != nil {
		return response.InternalServerError(c, "Failed to initialize import session")
	}

	return response.Created(c, sess.Snapshot())
}

// GetImport handles GET /api/v1/imports/:id
func (h *ImportHandler) GetImport(c *fiber.Ctx) error {
	sess, err := h.ownedSession(c)
	if err != nil {
		return h.sessionError(c, err)
	}
	return response.Success(c, sess.Snapshot())
}

// PageSelectionRequest mutates the page selection
type PageSelectionRequest struct {
	Action string `json:"action" validate:"required,oneof=select deselect select_all clear"`
	Page   *int   `json:"page,omitempty"`
}

// UpdatePages handles PUT /api/v1/imports/:id/pages
func (h *ImportHandler) UpdatePages(c *fiber.Ctx) error {
	sess, err := h.ownedSession(c)
	if err != nil {
		return h.sessionError(c, err)
	}

	var req PageSelectionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	switch req.Action {
	case "select", "deselect":
		if req.Page == nil {
			return response.BadRequest(c, "page is required for select/deselect")
		}
		if req.Action == "select" {
			err = sess.SelectPage(*req.Page)
		} else {
			err = sess.DeselectPage(*req.Page)
		}
	case "select_all":
		err = sess.SelectAllPages()
	case "clear":
		err = sess.ClearPages()
	}

	if err != nil {
		return h.sessionError(c, err)
	}
	return response.Success(c, sess.Snapshot())
}

// ResumeSelection handles POST /api/v1/imports/:id/reselect
// Returns a session to page selection after a failed extraction run without
// re-uploading the document
func (h *ImportHandler) ResumeSelection(c *fiber.Ctx) error {
	sess, err := h.ownedSession(c)
	if err != nil {
		return h.sessionError(c, err)
	}
	if err := sess.ResumeSelection(); err != nil {
		return h.sessionError(c, err)
	}
	return response.Success(c, sess.Snapshot())
}

// Review handles GET /api/v1/imports/:id/review
// Returns the review render list: each passage appears exactly once, on the
// first question that references it
func (h *ImportHandler) Review(c *fiber.Ctx) error {
	sess, err := h.ownedSession(c)
	if err != nil {
		return h.sessionError(c, err)
	}

	items, err := sess.RenderReview()
	if err != nil {
		return h.sessionError(c, err)
	}

	snap := sess.Snapshot()
	return response.Success(c, fiber.Map{
		"items":                items,
		"instructions":         snap.Instructions,
		"selected_total_marks": snap.SelectedTotalMarks,
		"duplicate_warning":    snap.DuplicateWarning,
	})
}

// EditQuestion handles PATCH /api/v1/imports/:id/questions/:question_id
func (h *ImportHandler) EditQuestion(c *fiber.Ctx) error {
	sess, err := h.ownedSession(c)
	if err != nil {
		return h.sessionError(c, err)
	}

	var edit services.QuestionEdit
	if err := c.BodyParser(&edit); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := sess.EditQuestion(c.Params("question_id"), edit); err != nil {
		return h.sessionError(c, err)
	}
	return response.Success(c, sess.Snapshot())
}

// ToggleQuestion handles POST /api/v1/imports/:id/questions/:question_id/toggle
func (h *ImportHandler) ToggleQuestion(c *fiber.Ctx) error {
	sess, err := h.ownedSession(c)
	if err != nil {
		return h.sessionError(c, err)
	}

	if err := sess.ToggleQuestion(c.Params("question_id")); err != nil {
		return h.sessionError(c, err)
	}
	return response.Success(c, sess.Snapshot())
}

// DeleteQuestion handles DELETE /api/v1/imports/:id/questions/:question_id
func (h *ImportHandler) DeleteQuestion(c *fiber.Ctx) error {
	sess, err := h.ownedSession(c)
	if err != nil {
		return h.sessionError(c, err)
	}

	if err := sess.DeleteQuestion(c.Params("question_id")); err != nil {
		return h.sessionError(c, err)
	}
	return response.Success(c, sess.Snapshot())
}

// Proceed handles POST /api/v1/imports/:id/proceed
func (h *ImportHandler) Proceed(c *fiber.Ctx) error {
	sess, err := h.ownedSession(c)
	if err != nil {
		return h.sessionError(c, err)
	}
	if err := sess.Proceed(); err != nil {
		return h.sessionError(c, err)
	}
	return response.Success(c, sess.Snapshot())
}

// Back handles POST /api/v1/imports/:id/back
func (h *ImportHandler) Back(c *fiber.Ctx) error {
	sess, err := h.ownedSession(c)
	if err != nil {
		return h.sessionError(c, err)
	}
	if err := sess.Back(); err != nil {
		return h.sessionError(c, err)
	}
	return response.Success(c, sess.Snapshot())
}

// CommitRequest finalizes an import into a new or existing exam
type CommitRequest struct {
	Target              services.CommitTarget `json:"target" validate:"required"`
	IncludeInstructions bool                  `json:"include_instructions"`
}

// Commit handles POST /api/v1/imports/:id/commit
func (h *ImportHandler) Commit(c *fiber.Ctx) error {
	sess, err := h.ownedSession(c)
	if err != nil {
		return h.sessionError(c, err)
	}

	var req CommitRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	questions, passages, instructions, selected := sess.WorkingSet()
	payload, err := services.BuildCommitPayload(
		questions, passages, instructions, selected, req.Target, req.IncludeInstructions)
	if err != nil {
		var target *services.IncompleteTargetError
		if errors.As(err, &target) {
			return response.ErrorWithDetails(c, fiber.StatusUnprocessableEntity,
				"Commit target is incomplete", "INCOMPLETE_TARGET", target.Error())
		}
		return response.BadRequest(c, err.Error())
	}

	examID, err := h.examService.CommitImport(c.Context(), payload)
	if err != nil {
		// Session stays in finalizing_details; the reviewer can retry
		// without re-running extraction
		return response.ErrorWithDetails(c, fiber.StatusBadGateway,
			"Failed to persist import", "COMMIT_FAILED", err.Error())
	}

	if err := sess.MarkCommitted(); err != nil {
		return h.sessionError(c, err)
	}

	h.tagService.InvalidateCache(c.Context())
	h.registry.Remove(sess.ID())

	return response.SuccessWithMessage(c, "Import committed successfully", fiber.Map{
		"exam_id":        examID,
		"question_count": len(payload.Questions),
		"total_marks":    payload.TotalMarks,
	})
}

// Abandon handles DELETE /api/v1/imports/:id
func (h *ImportHandler) Abandon(c *fiber.Ctx) error {
	sess, err := h.ownedSession(c)
	if err != nil {
		return h.sessionError(c, err)
	}

	sess.Abandon()
	h.registry.Remove(sess.ID())

	if userID, ok := middleware.GetUserID(c); ok {
		h.tracker.ClearActiveJob(c.Context(), userID)
	}

	return response.NoContent(c)
}

// ownedSession resolves the session from the path and checks ownership
func (h *ImportHandler) ownedSession(c *fiber.Ctx) (*services.ImportSession, error) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return nil, errNotAuthenticated
	}

	sess, err := h.registry.Get(c.Params("id"))
	if err != nil {
		return nil, err
	}
	if sess.OwnerID() != userID {
		return nil, errNotOwner
	}
	return sess, nil
}

var (
	errNotAuthenticated = errors.New("not authenticated")
	errNotOwner         = errors.New("session belongs to another reviewer")
)

// sessionError maps pipeline errors onto the response envelope
func (h *ImportHandler) sessionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, errNotAuthenticated):
		return response.Unauthorized(c, "User not authenticated")
	case errors.Is(err, errNotOwner):
		return response.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrSessionNotFound):
		return response.NotFound(c, "Import session not found")
	case errors.Is(err, services.ErrQuestionNotFound):
		return response.NotFound(c, "Question not found")
	case errors.Is(err, services.ErrEmptySelection):
		return response.BadRequest(c, "Select at least one page before analyzing")
	case errors.Is(err, services.ErrNoQuestionsSelected):
		return response.BadRequest(c, "At least one question must remain selected")
	}

	var outOfRange *services.IndexOutOfRangeError
	if errors.As(err, &outOfRange) {
		return response.BadRequest(c, outOfRange.Error())
	}

	var badKind *services.InvalidQuestionKindError
	if errors.As(err, &badKind) {
		return response.BadRequest(c, badKind.Error())
	}

	var transition *services.InvalidTransitionError
	if errors.As(err, &transition) {
		return response.Conflict(c, transition.Error())
	}

	return response.InternalServerError(c, err.Error())
}
