package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	appparty "github.com/templeparties/backend/internal/application/party"
	"github.com/templeparties/backend/internal/domain/party"
	"github.com/templeparties/backend/internal/domain/shared"
	"go.uber.org/zap"
)

func newAdminRouter(h *AdminHandler) *gin.Engine {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		setJWTContext(c, uuid.New(), true)
		c.Next()
	})
	router.GET("/api/v1/admin/parties", h.Pending)
	router.POST("/api/v1/admin/parties/:id/approve", h.Approve)
	router.POST("/api/v1/admin/parties/:id/reject", h.Reject)
	return router
}

func newAdminHandler(partyRepo *MockPartyRepository) *AdminHandler {
	svc := appparty.NewModerationService(partyRepo, nopPublisher{}, zap.NewNop())
	return NewAdminHandler(svc)
}

func TestAdminHandlerPending(t *testing.T) {
	t.Run("lists the review queue", func(t *testing.T) {
		partyRepo := new(MockPartyRepository)
		h := newAdminHandler(partyRepo)

		p := pendingHandlerParty(t, uuid.New())
		partyRepo.On("FindPending", mock.Anything).Return([]*party.Party{p}, nil)

		router := newAdminRouter(h)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/v1/admin/parties", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, `"status":"pending"`)
		assert.Contains(t, body, p.ID.String())
	})

	t.Run("returns an empty list when the queue is clear", func(t *testing.T) {
		partyRepo := new(MockPartyRepository)
		h := newAdminHandler(partyRepo)

		partyRepo.On("FindPending", mock.Anything).Return([]*party.Party{}, nil)

		router := newAdminRouter(h)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/v1/admin/parties", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"data":[]`)
	})
}

func TestAdminHandlerApprove(t *testing.T) {
	t.Run("approves a pending party", func(t *testing.T) {
		partyRepo := new(MockPartyRepository)
		h := newAdminHandler(partyRepo)

		p := pendingHandlerParty(t, uuid.New())
		partyRepo.On("FindByID", mock.Anything, p.ID).Return(p, nil)
		partyRepo.On("Update", mock.Anything, p).Return(nil)

		router := newAdminRouter(h)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/admin/parties/"+p.ID.String()+"/approve", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"approved"`)
		partyRepo.AssertExpectations(t)
	})

	t.Run("rejects approving an already approved party", func(t *testing.T) {
		partyRepo := new(MockPartyRepository)
		h := newAdminHandler(partyRepo)

		p := approvedParty(t, "Rooftop Rager", "friday", 0, uuid.New())
		partyRepo.On("FindByID", mock.Anything, p.ID).Return(p, nil)

		router := newAdminRouter(h)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/admin/parties/"+p.ID.String()+"/approve", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_STATE")
		partyRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("unknown party is 404", func(t *testing.T) {
		partyRepo := new(MockPartyRepository)
		h := newAdminHandler(partyRepo)

		id := uuid.New()
		partyRepo.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

		router := newAdminRouter(h)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/admin/parties/"+id.String()+"/approve", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAdminHandlerReject(t *testing.T) {
	t.Run("rejects a pending party", func(t *testing.T) {
		partyRepo := new(MockPartyRepository)
		h := newAdminHandler(partyRepo)

		p := pendingHandlerParty(t, uuid.New())
		partyRepo.On("FindByID", mock.Anything, p.ID).Return(p, nil)
		partyRepo.On("Update", mock.Anything, p).Return(nil)

		router := newAdminRouter(h)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/admin/parties/"+p.ID.String()+"/reject", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"rejected"`)
	})

	t.Run("rejects rejecting a non-pending party", func(t *testing.T) {
		partyRepo := new(MockPartyRepository)
		h := newAdminHandler(partyRepo)

		p := approvedParty(t, "Rooftop Rager", "friday", 0, uuid.New())
		partyRepo.On("FindByID", mock.Anything, p.ID).Return(p, nil)

		router := newAdminRouter(h)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/admin/parties/"+p.ID.String()+"/reject", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_STATE")
	})
}
