package exam

import (
	"errors"
	"strconv"

	"github.com/adityarawat/examdesk/model"
	"github.com/adityarawat/examdesk/services"
	"github.com/adityarawat/examdesk/utils/response"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ExamHandler serves the read side of the exam catalog
type ExamHandler struct {
	examService *services.ExamService
}

// NewExamHandler creates a new exam handler
func NewExamHandler(examService *services.ExamService) *ExamHandler {
	return &ExamHandler{examService: examService}
}

// ListExams handles GET /api/v1/exams
func (h *ExamHandler) ListExams(c *fiber.Ctx) error {
	exams, err := h.examService.ListExams(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch exams")
	}

	summaries := make([]model.ExamSummary, 0, len(exams))
	for i := range exams {
		summaries = append(summaries, exams[i].ToSummary())
	}
	return response.Success(c, summaries)
}

// ListSections handles GET /api/v1/exams/:id/sections
func (h *ExamHandler) ListSections(c *fiber.Ctx) error {
	examID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid exam ID")
	}

	sections, err := h.examService.ListSections(c.Context(), uint(examID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Exam not found")
		}
		return response.InternalServerError(c, "Failed to fetch sections")
	}

	summaries := make([]model.ExamSectionSummary, 0, len(sections))
	for i := range sections {
		summaries = append(summaries, sections[i].ToSummary())
	}
	return response.Success(c, summaries)
}
