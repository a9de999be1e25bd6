package handler

import (
	"github.com/gin-gonic/gin"
	appparty "github.com/templeparties/backend/internal/application/party"
	"github.com/templeparties/backend/internal/interfaces/http/dto"
)

// AdminHandler handles moderation HTTP requests. All routes are mounted
// behind the admin-only middleware.
type AdminHandler struct {
	BaseHandler
	moderationService *appparty.ModerationService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(moderationService *appparty.ModerationService) *AdminHandler {
	return &AdminHandler{
		moderationService: moderationService,
	}
}

// Pending lists the submissions waiting for a moderation decision
func (h *AdminHandler) Pending(c *gin.Context) {
	views, err := h.moderationService.Pending(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toPartyResponses(views))
}

// Approve publishes a pending submission to the feed.
// Approving a party that is not pending returns 409.
func (h *AdminHandler) Approve(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid party ID")
		return
	}

	view, err := h.moderationService.Approve(c.Request.Context(), req.UUID())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toPartyResponse(view))
}

// Reject declines a pending submission.
// Rejecting a party that is not pending returns 409.
func (h *AdminHandler) Reject(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid party ID")
		return
	}

	view, err := h.moderationService.Reject(c.Request.Context(), req.UUID())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toPartyResponse(view))
}
