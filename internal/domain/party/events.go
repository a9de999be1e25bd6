package party

import (
	"github.com/templeparties/backend/internal/domain/shared"
)

// Event types published by the party aggregate
const (
	EventPartySubmitted = "party.submitted"
	EventPartyApproved  = "party.approved"
	EventPartyRejected  = "party.rejected"
	EventPartyDeleted   = "party.deleted"
	EventGoingChanged   = "party.going_changed"
)

const aggregateType = "Party"

// PartySubmittedEvent is raised when a new listing enters review
type PartySubmittedEvent struct {
	shared.BaseDomainEvent
	Title string `json:"title"`
	Day   Day    `json:"day"`
}

// NewPartySubmittedEvent creates a submission event
func NewPartySubmittedEvent(p *Party) *PartySubmittedEvent {
	return &PartySubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPartySubmitted, aggregateType, p.ID),
		Title:           p.Title,
		Day:             p.Day,
	}
}

// PartyApprovedEvent is raised when a listing becomes public
type PartyApprovedEvent struct {
	shared.BaseDomainEvent
	Title      string `json:"title"`
	Day        Day    `json:"day"`
	GoingCount int    `json:"goingCount"`
}

// NewPartyApprovedEvent creates an approval event
func NewPartyApprovedEvent(p *Party) *PartyApprovedEvent {
	return &PartyApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPartyApproved, aggregateType, p.ID),
		Title:           p.Title,
		Day:             p.Day,
		GoingCount:      p.GoingCount,
	}
}

// PartyRejectedEvent is raised when a listing fails review
type PartyRejectedEvent struct {
	shared.BaseDomainEvent
	Title string `json:"title"`
}

// NewPartyRejectedEvent creates a rejection event
func NewPartyRejectedEvent(p *Party) *PartyRejectedEvent {
	return &PartyRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPartyRejected, aggregateType, p.ID),
		Title:           p.Title,
	}
}

// PartyDeletedEvent is raised when a listing is removed
type PartyDeletedEvent struct {
	shared.BaseDomainEvent
	Title string `json:"title"`
	Day   Day    `json:"day"`
}

// NewPartyDeletedEvent creates a deletion event
func NewPartyDeletedEvent(p *Party) *PartyDeletedEvent {
	return &PartyDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPartyDeleted, aggregateType, p.ID),
		Title:           p.Title,
		Day:             p.Day,
	}
}

// GoingChangedEvent is raised when a party's going count moves
type GoingChangedEvent struct {
	shared.BaseDomainEvent
	Day        Day `json:"day"`
	GoingCount int `json:"goingCount"`
}

// NewGoingChangedEvent creates a count change event
func NewGoingChangedEvent(p *Party) *GoingChangedEvent {
	return &GoingChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventGoingChanged, aggregateType, p.ID),
		Day:             p.Day,
		GoingCount:      p.GoingCount,
	}
}
