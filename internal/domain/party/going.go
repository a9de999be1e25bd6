package party

import (
	"time"

	"github.com/google/uuid"
)

// Going marks a user as attending a party. One row per (party, user),
// enforced by a database uniqueness constraint.
type Going struct {
	ID        uuid.UUID
	PartyID   uuid.UUID
	UserID    uuid.UUID
	CreatedAt time.Time
}

// NewGoing creates an attendance marker
func NewGoing(partyID, userID uuid.UUID) *Going {
	return &Going{
		ID:        uuid.New(),
		PartyID:   partyID,
		UserID:    userID,
		CreatedAt: time.Now(),
	}
}
