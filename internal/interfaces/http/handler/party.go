package handler

import (
	"github.com/gin-gonic/gin"
	appparty "github.com/templeparties/backend/internal/application/party"
	"github.com/templeparties/backend/internal/interfaces/http/dto"
	"github.com/templeparties/backend/internal/interfaces/http/middleware"
)

// PartyHandler handles party-related HTTP requests
type PartyHandler struct {
	BaseHandler
	partyService *appparty.PartyService
}

// NewPartyHandler creates a new party handler
func NewPartyHandler(partyService *appparty.PartyService) *PartyHandler {
	return &PartyHandler{
		partyService: partyService,
	}
}

// Feed returns the approved parties for the current weekend, optionally
// filtered by day. Signed-in viewers get their isGoing flag filled in.
func (h *PartyHandler) Feed(c *gin.Context) {
	views, err := h.partyService.Feed(c.Request.Context(), appparty.FeedInput{
		Day:      c.Query("day"),
		ViewerID: optionalUserID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toPartyResponses(views))
}

// Get returns a single party. Listings that are not visible to the
// viewer come back as 404 so pending submissions cannot be probed.
func (h *PartyHandler) Get(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid party ID")
		return
	}

	view, err := h.partyService.Get(c.Request.Context(), req.UUID(), optionalUserID(c), middleware.GetJWTIsAdmin(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toPartyResponse(view))
}

// Create submits a new party for the current weekend. The listing stays
// pending until an admin approves it.
func (h *PartyHandler) Create(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req CreatePartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	view, err := h.partyService.Create(c.Request.Context(), appparty.CreatePartyInput{
		Title:       req.Title,
		Host:        req.Host,
		Category:    req.Category,
		Location:    req.Location,
		Description: req.Description,
		Day:         req.Day,
		DoorsOpen:   req.DoorsOpen,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	}, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toPartyResponse(view))
}

// Delete removes a party. Only the creator or an admin may delete a
// listing.
func (h *PartyHandler) Delete(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid party ID")
		return
	}

	if err := h.partyService.Delete(c.Request.Context(), req.UUID(), userID, middleware.GetJWTIsAdmin(c)); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// ToggleGoing flips the caller's attendance on an approved party and
// returns the new state and count
func (h *PartyHandler) ToggleGoing(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid party ID")
		return
	}

	result, err := h.partyService.ToggleGoing(c.Request.Context(), req.UUID(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ToggleGoingResponse{
		Going:      result.Going,
		GoingCount: result.GoingCount,
	})
}

// MineGoing lists the IDs of parties the caller is going to
func (h *PartyHandler) MineGoing(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	ids, err := h.partyService.GoingPartyIDs(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, GoingPartyIDsResponse{PartyIDs: ids})
}
