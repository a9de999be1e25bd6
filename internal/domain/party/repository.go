package party

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence operations for party listings
type Repository interface {
	Save(ctx context.Context, p *Party) error
	Update(ctx context.Context, p *Party) error
	FindByID(ctx context.Context, id uuid.UUID) (*Party, error)
	// FindApprovedByWeekend returns approved parties for the given weekend,
	// optionally filtered by day, ordered by going count descending.
	FindApprovedByWeekend(ctx context.Context, weekendOf time.Time, day *Day) ([]*Party, error)
	// FindPending returns parties awaiting review, oldest first
	FindPending(ctx context.Context) ([]*Party, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// GoingRepository defines persistence operations for attendance markers
type GoingRepository interface {
	// Toggle flips the caller's attendance on a party and adjusts the
	// party's going count in the same transaction. It returns the
	// resulting membership flag and count.
	Toggle(ctx context.Context, partyID, userID uuid.UUID) (going bool, count int, err error)
	Exists(ctx context.Context, partyID, userID uuid.UUID) (bool, error)
	// PartyIDsForUser returns the parties the user is currently going to
	PartyIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	// UserIsGoing returns, for each party ID, whether the user is going
	UserIsGoing(ctx context.Context, userID uuid.UUID, partyIDs []uuid.UUID) (map[uuid.UUID]bool, error)
}
