package handler

import (
	"time"

	"github.com/google/uuid"
	appparty "github.com/templeparties/backend/internal/application/party"
)

// =====================
// Party Request DTOs
// =====================

// CreatePartyRequest represents the request body for submitting a party
type CreatePartyRequest struct {
	Title       string   `json:"title" binding:"required,max=50"`
	Host        string   `json:"host" binding:"required,max=30"`
	Category    string   `json:"category" binding:"required,max=30"`
	Location    string   `json:"location" binding:"required,max=120"`
	Description string   `json:"description" binding:"max=500"`
	Day         string   `json:"day" binding:"required"`
	DoorsOpen   string   `json:"doorsOpen" binding:"max=20"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

// =====================
// Party Response DTOs
// =====================

// PartyResponse represents a party in API responses
type PartyResponse struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Host        string    `json:"host"`
	Category    string    `json:"category"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Day         string    `json:"day"`
	DoorsOpen   string    `json:"doorsOpen"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	GoingCount  int       `json:"goingCount"`
	Status      string    `json:"status"`
	WeekendOf   string    `json:"weekendOf"`
	CreatedBy   uuid.UUID `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	IsGoing     bool      `json:"isGoing"`
	Hyped       bool      `json:"hyped"`
}

// ToggleGoingResponse represents the outcome of an attendance toggle
type ToggleGoingResponse struct {
	Going      bool `json:"going"`
	GoingCount int  `json:"goingCount"`
}

// GoingPartyIDsResponse lists the parties the caller is going to
type GoingPartyIDsResponse struct {
	PartyIDs []uuid.UUID `json:"partyIds"`
}

func toPartyResponse(v *appparty.PartyView) PartyResponse {
	return PartyResponse{
		ID:          v.ID,
		Title:       v.Title,
		Host:        v.Host,
		Category:    v.Category,
		Location:    v.Location,
		Description: v.Description,
		Day:         v.Day,
		DoorsOpen:   v.DoorsOpen,
		Latitude:    v.Latitude,
		Longitude:   v.Longitude,
		GoingCount:  v.GoingCount,
		Status:      v.Status,
		WeekendOf:   v.WeekendOf.Format("2006-01-02"),
		CreatedBy:   v.CreatedBy,
		CreatedAt:   v.CreatedAt,
		IsGoing:     v.IsGoing,
		Hyped:       v.Hyped,
	}
}

func toPartyResponses(views []*appparty.PartyView) []PartyResponse {
	out := make([]PartyResponse, len(views))
	for i, v := range views {
		out[i] = toPartyResponse(v)
	}
	return out
}
