package party

import (
	"time"

	"github.com/google/uuid"
	"github.com/templeparties/backend/internal/domain/party"
)

// CreatePartyInput carries a submission from the HTTP layer
type CreatePartyInput struct {
	Title       string
	Host        string
	Category    string
	Location    string
	Description string
	Day         string
	DoorsOpen   string
	Latitude    *float64
	Longitude   *float64
}

// FeedInput filters the public weekend feed
type FeedInput struct {
	Day      string    // Optional: "friday" or "saturday"
	ViewerID uuid.UUID // uuid.Nil for anonymous viewers
}

// ToggleGoingResult reports the outcome of an attendance toggle
type ToggleGoingResult struct {
	Going      bool
	GoingCount int
}

// PartyView is the read model returned to the HTTP layer
type PartyView struct {
	ID          uuid.UUID
	Title       string
	Host        string
	Category    string
	Location    string
	Description string
	Day         string
	DoorsOpen   string
	Latitude    float64
	Longitude   float64
	GoingCount  int
	Status      string
	WeekendOf   time.Time
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
	IsGoing     bool
	Hyped       bool
}

func toPartyView(p *party.Party) *PartyView {
	return &PartyView{
		ID:          p.ID,
		Title:       p.Title,
		Host:        p.Host,
		Category:    p.Category,
		Location:    p.Location,
		Description: p.Description,
		Day:         string(p.Day),
		DoorsOpen:   p.DoorsOpen,
		Latitude:    p.Latitude,
		Longitude:   p.Longitude,
		GoingCount:  p.GoingCount,
		Status:      string(p.Status),
		WeekendOf:   p.WeekendOf,
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt,
	}
}
