package identity

import (
	"context"

	"github.com/google/uuid"
)

// ProfileRepository defines persistence operations for profiles
type ProfileRepository interface {
	Save(ctx context.Context, p *Profile) error
	Update(ctx context.Context, p *Profile) error
	FindByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	FindByEmail(ctx context.Context, email string) (*Profile, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}
