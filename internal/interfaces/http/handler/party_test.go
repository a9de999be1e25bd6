package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	appparty "github.com/templeparties/backend/internal/application/party"
	"github.com/templeparties/backend/internal/domain/party"
	"github.com/templeparties/backend/internal/domain/shared"
	"github.com/templeparties/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// MockPartyRepository implements party.Repository for testing
type MockPartyRepository struct {
	mock.Mock
}

func (m *MockPartyRepository) Save(ctx context.Context, p *party.Party) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPartyRepository) Update(ctx context.Context, p *party.Party) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPartyRepository) FindByID(ctx context.Context, id uuid.UUID) (*party.Party, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*party.Party), args.Error(1)
}

func (m *MockPartyRepository) FindApprovedByWeekend(ctx context.Context, weekendOf time.Time, day *party.Day) ([]*party.Party, error) {
	args := m.Called(ctx, weekendOf, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*party.Party), args.Error(1)
}

func (m *MockPartyRepository) FindPending(ctx context.Context) ([]*party.Party, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*party.Party), args.Error(1)
}

func (m *MockPartyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockGoingRepository implements party.GoingRepository for testing
type MockGoingRepository struct {
	mock.Mock
}

func (m *MockGoingRepository) Toggle(ctx context.Context, partyID, userID uuid.UUID) (bool, int, error) {
	args := m.Called(ctx, partyID, userID)
	return args.Bool(0), args.Int(1), args.Error(2)
}

func (m *MockGoingRepository) Exists(ctx context.Context, partyID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, partyID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockGoingRepository) PartyIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockGoingRepository) UserIsGoing(ctx context.Context, userID uuid.UUID, partyIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	args := m.Called(ctx, userID, partyIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]bool), args.Error(1)
}

// nopPublisher discards events in handler tests
type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, ...shared.DomainEvent) error { return nil }

var handlerTestNow = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

func newPartyService(partyRepo *MockPartyRepository, goingRepo *MockGoingRepository) *appparty.PartyService {
	return appparty.NewPartyService(partyRepo, goingRepo, nopPublisher{}, zap.NewNop()).
		WithClock(func() time.Time { return handlerTestNow })
}

// newPartyRouter mounts the party handler the way the real router does.
// asUser simulates the JWT middleware for authenticated requests;
// uuid.Nil mounts the routes anonymously.
func newPartyRouter(h *PartyHandler, asUser uuid.UUID, isAdmin bool) *gin.Engine {
	router := gin.New()
	if asUser != uuid.Nil {
		router.Use(func(c *gin.Context) {
			setJWTContext(c, asUser, isAdmin)
			c.Next()
		})
	}
	router.GET("/api/v1/parties", h.Feed)
	router.GET("/api/v1/parties/:id", h.Get)
	router.POST("/api/v1/parties", h.Create)
	router.DELETE("/api/v1/parties/:id", h.Delete)
	router.POST("/api/v1/parties/:id/going", h.ToggleGoing)
	router.GET("/api/v1/parties/mine/going", h.MineGoing)
	return router
}

func approvedParty(t *testing.T, title string, day string, goingCount int, createdBy uuid.UUID) *party.Party {
	t.Helper()
	p, err := party.NewParty(party.NewPartyInput{
		Title:     title,
		Host:      "AXO",
		Category:  "House Party",
		Location:  "1801 N Broad St",
		Day:       day,
		DoorsOpen: "10 PM",
	}, createdBy, handlerTestNow)
	require.NoError(t, err)
	require.NoError(t, p.Approve())
	p.GoingCount = goingCount
	p.ClearDomainEvents()
	return p
}

func pendingHandlerParty(t *testing.T, createdBy uuid.UUID) *party.Party {
	t.Helper()
	p, err := party.NewParty(party.NewPartyInput{
		Title:     "Basement Show",
		Host:      "The Rats",
		Category:  "Basement Show",
		Location:  "Diamond St",
		Day:       "saturday",
		DoorsOpen: "11 PM",
	}, createdBy, handlerTestNow)
	require.NoError(t, err)
	p.ClearDomainEvents()
	return p
}

func TestPartyHandlerFeed(t *testing.T) {
	t.Run("returns approved parties with camelCase fields", func(t *testing.T) {
		partyRepo := new(MockPartyRepository)
		goingRepo := new(MockGoingRepository)
		h := NewPartyHandler(newPartyService(partyRepo, goingRepo))

		p := approvedParty(t, "Rooftop Rager", "friday", 7, uuid.New())
		partyRepo.On("FindApprovedByWeekend", mock.Anything, mock.Anything, (*party.Day)(nil)).
			Return([]*party.Party{p}, nil)

		router := newPartyRouter(h, uuid.Nil, false)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/v1/parties", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, `"success":true`)
		assert.Contains(t, body, `"title":"Rooftop Rager"`)
		assert.Contains(t, body, `"goingCount":7`)
		assert.Contains(t, body, `"hyped":true`)
		assert.Contains(t, body, `"weekendOf":"2026-08-28"`)
	})

	t.Run("passes day filter through", func(t *testing.T) {
		partyRepo := new(MockPartyRepository)
		goingRepo := new(MockGoingRepository)
		h := NewPartyHandler(newPartyService(partyRepo, goingRepo))

		saturday := party.DaySaturday
		partyRepo.On("FindApprovedByWeekend", mock.Anything, mock.Anything, &saturday).
			Return([]*party.Party{}, nil)

		router := newPartyRouter(h, uuid.Nil, false)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/v1/parties?day=saturday", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		partyRepo.AssertExpectations(t)
	})

	t.Run("rejects an unknown day filter", func(t *testing.T) {
		partyRepo := new(MockPartyRepository)
		goingRepo := new(MockGoingRepository)
		h := NewPartyHandler(newPartyService(partyRepo, goingRepo))

		router := newPartyRouter(h, uuid.Nil, false)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/v1/parties?day=sunday", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_DAY")
	})

	t.Run("fills isGoing for signed-in viewers", func(t *testing.T) {
		partyRepo := new(MockPartyRepository)
		goingRepo := new(MockGoingRepository)
		h := NewPartyHandler(newPartyService(partyRepo, goingRepo))

		viewer := uuid.New()
		p := approvedParty(t, "Rooftop Rager", "friday", 3, uuid.New())
		partyRepo.On("FindApprovedByWeekend", mock.Anything, mock.Anything, (*party.Day)(nil)).
			Return([]*party.Party{p}, nil)
		goingRepo.On("UserIsGoing", mock.Anything, viewer, []uuid.UUID{p.ID}).
			Return(map[uuid.UUID]bool{p.ID: true}, nil)

		router := newPartyRouter(h, viewer, false)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/v1/parties", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"isGoing":true`)
	})
}

func TestPartyHandlerGet(t *testing.T) {
	t.Run("returns an approved party", func(t *testing.T) {
		partyRepo := new(MockPartyRepository)
		goingRepo := new(MockGoingRepository)
		h := NewPartyHandler(newPartyService(partyRepo, goingRepo))

		p := approvedParty(t, "Rooftop Rager", "friday", 2, uuid.New())
		partyRepo.On("FindByID", mock.Anything, p.ID).Return(p, nil)

		router := newPartyRouter(h, uuid.Nil, false)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/v1/parties/"+p.ID.String(), nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), p.ID.String())
	})

	t.Run("hides pending parties from strangers", func(t *testing.T) {
		partyRepo := new(MockPartyRepository)
		goingRepo := new(MockGoingRepository)
		h := NewPartyHandler(newPartyService(partyRepo, goingRepo))

		p := pendingHandlerParty(t, uuid.New())
		partyRepo.On("FindByID", mock.Anything, p.ID).Return(p, nil)

		router := newPartyRouter(h, uuid.Nil, false)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/v1/parties/"+p.ID.String(), nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("rejects a malformed id", func(t *testing.T) {
		partyRepo := new(MockPartyRepository)
		goingRepo := new(MockGoingRepository)
		h := NewPartyHandler(newPartyService(partyRepo, goingRepo))

		router := newPartyRouter(h, uuid.Nil, false)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/v1/parties/not-a-uuid", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPartyHandlerCreate(t *testing.T) {
	validBody := func() []byte {
		b, _ := json.Marshal(CreatePartyRequest{
			Title:     "Rooftop Rager",
			Host:      "AXO",
			Category:  "Rooftop",
			Location:  "1801 N Broad St",
			Day:       "friday",
			DoorsOpen: "10 PM",
		})
		return b
	}

	t.Run("creates a pending party", func(t *testing.T) {
		partyRepo := new(MockPartyRepository)
		goingRepo := new(MockGoingRepository)
		h := NewPartyHandler(newPartyService(partyRepo, goingRepo))

		creator := uuid.New()
		partyRepo.On("Save", mock.Anything, mock.AnythingOfType("*party.Party")).Return(nil)

		router := newPartyRouter(h, creator, false)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/parties", bytes.NewReader(validBody()))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, `"status":"pending"`)
		assert.Contains(t, body, creator.String())
		partyRepo.AssertExpectations(t)
	})

	t.Run("requires authentication", func(t *testing.T) {
		partyRepo := new(MockPartyRepository)
		goingRepo := new(MockGoingRepository)
		h := NewPartyHandler(newPartyService(partyRepo, goingRepo))

		router := newPartyRouter(h, uuid.Nil, false)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/parties", bytes.NewReader(validBody()))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects an invalid day", func(t *testing.T) {
		partyRepo := new(MockPartyRepository)
		goingRepo := new(MockGoingRepository)
		h := NewPartyHandler(newPartyService(partyRepo, goingRepo))

		body, _ := json.Marshal(CreatePartyRequest{
			Title:     "Rooftop Rager",
			Host:      "AXO",
			Category:  "Rooftop",
			Location:  "1801 N Broad St",
			Day:       "wednesday",
			DoorsOpen: "10 PM",
		})

		router := newPartyRouter(h, uuid.New(), false)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/parties", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_DAY")
		partyRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejects a missing category via binding", func(t *testing.T) {
		partyRepo := new(MockPartyRepository)
		goingRepo := new(MockGoingRepository)
		h := NewPartyHandler(newPartyService(partyRepo, goingRepo))

		body, _ := json.Marshal(CreatePartyRequest{
			Title:     "Rooftop Rager",
			Host:      "AXO",
			Location:  "1801 N Broad St",
			Day:       "friday",
			DoorsOpen: "10 PM",
		})

		router := newPartyRouter(h, uuid.New(), false)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/parties", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		partyRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejects an over-length title via binding", func(t *testing.T) {
		partyRepo := new(MockPartyRepository)
		goingRepo := new(MockGoingRepository)
		h := NewPartyHandler(newPartyService(partyRepo, goingRepo))

		long := make([]byte, 60)
		for i := range long {
			long[i] = 'x'
		}
		body, _ := json.Marshal(CreatePartyRequest{
			Title:     string(long),
			Host:      "AXO",
			Category:  "Rooftop",
			Location:  "1801 N Broad St",
			Day:       "friday",
			DoorsOpen: "10 PM",
		})

		router := newPartyRouter(h, uuid.New(), false)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/parties", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPartyHandlerDelete(t *testing.T) {
	t.Run("creator deletes own party", func(t *testing.T) {
		partyRepo := new(MockPartyRepository)
		goingRepo := new(MockGoingRepository)
		h := NewPartyHandler(newPartyService(partyRepo, goingRepo))

		creator := uuid.New()
		p := approvedParty(t, "Rooftop Rager", "friday", 0, creator)
		partyRepo.On("FindByID", mock.Anything, p.ID).Return(p, nil)
		partyRepo.On("Delete", mock.Anything, p.ID).Return(nil)

		router := newPartyRouter(h, creator, false)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("DELETE", "/api/v1/parties/"+p.ID.String(), nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		partyRepo.AssertExpectations(t)
	})

	t.Run("stranger cannot delete", func(t *testing.T) {
		partyRepo := new(MockPartyRepository)
		goingRepo := new(MockGoingRepository)
		h := NewPartyHandler(newPartyService(partyRepo, goingRepo))

		p := approvedParty(t, "Rooftop Rager", "friday", 0, uuid.New())
		partyRepo.On("FindByID", mock.Anything, p.ID).Return(p, nil)

		router := newPartyRouter(h, uuid.New(), false)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("DELETE", "/api/v1/parties/"+p.ID.String(), nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		partyRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("admin deletes any party", func(t *testing.T) {
		partyRepo := new(MockPartyRepository)
		goingRepo := new(MockGoingRepository)
		h := NewPartyHandler(newPartyService(partyRepo, goingRepo))

		p := approvedParty(t, "Rooftop Rager", "friday", 0, uuid.New())
		partyRepo.On("FindByID", mock.Anything, p.ID).Return(p, nil)
		partyRepo.On("Delete", mock.Anything, p.ID).Return(nil)

		router := newPartyRouter(h, uuid.New(), true)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("DELETE", "/api/v1/parties/"+p.ID.String(), nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("unknown party is 404", func(t *testing.T) {
		partyRepo := new(MockPartyRepository)
		goingRepo := new(MockGoingRepository)
		h := NewPartyHandler(newPartyService(partyRepo, goingRepo))

		id := uuid.New()
		partyRepo.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

		router := newPartyRouter(h, uuid.New(), false)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("DELETE", "/api/v1/parties/"+id.String(), nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestPartyHandlerToggleGoing(t *testing.T) {
	t.Run("toggles attendance on", func(t *testing.T) {
		partyRepo := new(MockPartyRepository)
		goingRepo := new(MockGoingRepository)
		h := NewPartyHandler(newPartyService(partyRepo, goingRepo))

		user := uuid.New()
		p := approvedParty(t, "Rooftop Rager", "friday", 3, uuid.New())
		partyRepo.On("FindByID", mock.Anything, p.ID).Return(p, nil)
		goingRepo.On("Toggle", mock.Anything, p.ID, user).Return(true, 4, nil)

		router := newPartyRouter(h, user, false)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/parties/"+p.ID.String()+"/going", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		data := resp.Data.(map[string]any)
		assert.Equal(t, true, data["going"])
		assert.Equal(t, float64(4), data["goingCount"])
	})

	t.Run("rejects toggling a pending party", func(t *testing.T) {
		partyRepo := new(MockPartyRepository)
		goingRepo := new(MockGoingRepository)
		h := NewPartyHandler(newPartyService(partyRepo, goingRepo))

		user := uuid.New()
		p := pendingHandlerParty(t, uuid.New())
		partyRepo.On("FindByID", mock.Anything, p.ID).Return(p, nil)

		router := newPartyRouter(h, user, false)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/parties/"+p.ID.String()+"/going", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_STATE")
		goingRepo.AssertNotCalled(t, "Toggle", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("requires authentication", func(t *testing.T) {
		partyRepo := new(MockPartyRepository)
		goingRepo := new(MockGoingRepository)
		h := NewPartyHandler(newPartyService(partyRepo, goingRepo))

		router := newPartyRouter(h, uuid.Nil, false)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/parties/"+uuid.New().String()+"/going", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestPartyHandlerMineGoing(t *testing.T) {
	partyRepo := new(MockPartyRepository)
	goingRepo := new(MockGoingRepository)
	h := NewPartyHandler(newPartyService(partyRepo, goingRepo))

	user := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	goingRepo.On("PartyIDsForUser", mock.Anything, user).Return(ids, nil)

	router := newPartyRouter(h, user, false)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/parties/mine/going", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), ids[0].String())
	assert.Contains(t, w.Body.String(), ids[1].String())
}
