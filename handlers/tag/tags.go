package tag

import (
	"github.com/adityarawat/examdesk/services"
	"github.com/adityarawat/examdesk/utils/response"
	"github.com/gofiber/fiber/v2"
)

// TagHandler serves the tag directory
type TagHandler struct {
	tagService *services.TagService
}

// NewTagHandler creates a new tag handler
func NewTagHandler(tagService *services.TagService) *TagHandler {
	return &TagHandler{tagService: tagService}
}

// ListTags handles GET /api/v1/tags
func (h *TagHandler) ListTags(c *fiber.Ctx) error {
	tags, err := h.tagService.ListTags(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch tags")
	}
	return response.Success(c, tags)
}
