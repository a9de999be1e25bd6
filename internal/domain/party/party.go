package party

import (
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/templeparties/backend/internal/domain/shared"
)

// Day is the weekend day a party takes place on
type Day string

const (
	DayFriday   Day = "friday"
	DaySaturday Day = "saturday"
)

// ParseDay validates and normalizes a day string
func ParseDay(s string) (Day, error) {
	switch Day(strings.ToLower(strings.TrimSpace(s))) {
	case DayFriday:
		return DayFriday, nil
	case DaySaturday:
		return DaySaturday, nil
	default:
		return "", shared.NewDomainError("INVALID_DAY", "Day must be friday or saturday")
	}
}

// Status represents the moderation state of a party listing
type Status string

const (
	StatusPending  Status = "pending"  // Awaiting admin review
	StatusApproved Status = "approved" // Visible in the public feed
	StatusRejected Status = "rejected" // Hidden; kept for the submitter's records
)

// Field limits enforced at submission
const (
	MaxTitleLength    = 50
	MaxHostLength     = 30
	MaxCategoryLength = 30
	MaxLocationLength = 120
	MaxDoorsOpenLen   = 20
	MaxDescriptionLen = 500
)

// Campus bounding box used when a submission omits coordinates.
// Covers the blocks around main campus.
const (
	MinLatitude  = 39.978
	MaxLatitude  = 39.985
	MinLongitude = -75.162
	MaxLongitude = -75.148
)

// Party is the aggregate root for a party listing
type Party struct {
	shared.BaseAggregateRoot
	Title       string
	Host        string
	Category    string
	Location    string
	Description string
	Day         Day
	DoorsOpen   string
	Latitude    float64
	Longitude   float64
	GoingCount  int
	Status      Status
	WeekendOf   time.Time // Friday anchoring the party's weekend
	CreatedBy   uuid.UUID
}

// NewPartyInput carries the submitter-provided fields for a new listing
type NewPartyInput struct {
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

// NewParty creates a pending party listing for the weekend containing now.
// Missing coordinates are scattered inside the campus bounding box so the
// map never renders markers at (0, 0).
func NewParty(in NewPartyInput, createdBy uuid.UUID, now time.Time) (*Party, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, shared.NewDomainError("INVALID_TITLE", "Title is required")
	}
	if len(title) > MaxTitleLength {
		return nil, shared.NewDomainError("INVALID_TITLE", "Title cannot exceed 50 characters")
	}

	host := strings.TrimSpace(in.Host)
	if host == "" {
		return nil, shared.NewDomainError("INVALID_HOST", "Host is required")
	}
	if len(host) > MaxHostLength {
		return nil, shared.NewDomainError("INVALID_HOST", "Host cannot exceed 30 characters")
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		return nil, shared.NewDomainError("INVALID_CATEGORY", "Category is required")
	}
	if len(category) > MaxCategoryLength {
		return nil, shared.NewDomainError("INVALID_CATEGORY", "Category cannot exceed 30 characters")
	}

	location := strings.TrimSpace(in.Location)
	if location == "" {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location is required")
	}
	if len(location) > MaxLocationLength {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location cannot exceed 120 characters")
	}

	doorsOpen := strings.TrimSpace(in.DoorsOpen)
	if doorsOpen == "" {
		return nil, shared.NewDomainError("INVALID_DOORS_OPEN", "Doors-open time is required")
	}
	if len(doorsOpen) > MaxDoorsOpenLen {
		return nil, shared.NewDomainError("INVALID_DOORS_OPEN", "Doors-open time cannot exceed 20 characters")
	}

	if len(in.Description) > MaxDescriptionLen {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Description cannot exceed 500 characters")
	}

	day, err := ParseDay(in.Day)
	if err != nil {
		return nil, err
	}

	lat, lng, err := resolveCoordinates(in.Latitude, in.Longitude)
	if err != nil {
		return nil, err
	}

	p := &Party{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Title:             title,
		Host:              host,
		Category:          category,
		Location:          location,
		Description:       strings.TrimSpace(in.Description),
		Day:               day,
		DoorsOpen:         doorsOpen,
		Latitude:          lat,
		Longitude:         lng,
		GoingCount:        0,
		Status:            StatusPending,
		WeekendOf:         WeekendOf(now),
		CreatedBy:         createdBy,
	}

	p.AddDomainEvent(NewPartySubmittedEvent(p))

	return p, nil
}

func resolveCoordinates(lat, lng *float64) (float64, float64, error) {
	if lat == nil || lng == nil {
		return randomCampusCoordinate()
	}
	if *lat < -90 || *lat > 90 || *lng < -180 || *lng > 180 {
		return 0, 0, shared.NewDomainError("INVALID_COORDINATES", "Coordinates out of range")
	}
	return *lat, *lng, nil
}

func randomCampusCoordinate() (float64, float64, error) {
	lat := MinLatitude + rand.Float64()*(MaxLatitude-MinLatitude)
	lng := MinLongitude + rand.Float64()*(MaxLongitude-MinLongitude)
	return round8(lat), round8(lng), nil
}

func round8(v float64) float64 {
	return math.Round(v*1e8) / 1e8
}

// Approve transitions a pending party into the public feed
func (p *Party) Approve() error {
	if p.Status != StatusPending {
		return shared.ErrInvalidState
	}

	p.Status = StatusApproved
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	p.AddDomainEvent(NewPartyApprovedEvent(p))

	return nil
}

// Reject transitions a pending party out of review
func (p *Party) Reject() error {
	if p.Status != StatusPending {
		return shared.ErrInvalidState
	}

	p.Status = StatusRejected
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	p.AddDomainEvent(NewPartyRejectedEvent(p))

	return nil
}

// ApplyGoingToggle records the result of a going toggle on the count.
// The count never drops below zero even if rows and counter drift.
func (p *Party) ApplyGoingToggle(nowGoing bool) {
	if nowGoing {
		p.GoingCount++
	} else if p.GoingCount > 0 {
		p.GoingCount--
	}
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	p.AddDomainEvent(NewGoingChangedEvent(p))
}

// IsApproved reports whether the party is in the public feed
func (p *Party) IsApproved() bool {
	return p.Status == StatusApproved
}

// VisibleTo reports whether a viewer may see this listing.
// Approved parties are public; pending and rejected ones are only
// visible to their submitter and to admins.
func (p *Party) VisibleTo(viewerID uuid.UUID, isAdmin bool) bool {
	if p.Status == StatusApproved {
		return true
	}
	if isAdmin {
		return true
	}
	return viewerID != uuid.Nil && viewerID == p.CreatedBy
}

// DeletableBy reports whether a user may remove this listing
func (p *Party) DeletableBy(userID uuid.UUID, isAdmin bool) bool {
	return isAdmin || (userID != uuid.Nil && userID == p.CreatedBy)
}
