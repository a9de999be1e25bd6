package identity

import (
	"github.com/templeparties/backend/internal/domain/shared"
)

// Event types published by the profile aggregate
const (
	EventProfileCreated = "profile.created"
)

const aggregateType = "Profile"

// ProfileCreatedEvent is raised when a student verifies their first magic link
type ProfileCreatedEvent struct {
	shared.BaseDomainEvent
	Email string `json:"email"`
}

// NewProfileCreatedEvent creates a profile creation event
func NewProfileCreatedEvent(p *Profile) *ProfileCreatedEvent {
	return &ProfileCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventProfileCreated, aggregateType, p.ID),
		Email:           p.Email,
	}
}
