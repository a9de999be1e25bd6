package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/templeparties/backend/internal/domain/party"
	"github.com/templeparties/backend/internal/domain/shared"
	"github.com/templeparties/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormGoingRepository implements party.GoingRepository using GORM
type GormGoingRepository struct {
	db *gorm.DB
}

// NewGormGoingRepository creates a new GormGoingRepository
func NewGormGoingRepository(db *gorm.DB) *GormGoingRepository {
	return &GormGoingRepository{db: db}
}

// Toggle flips the user's going mark on a party and adjusts the denormalized
// count in the same transaction. The party row is locked first so concurrent
// toggles serialize instead of drifting the count.
func (r *GormGoingRepository) Toggle(ctx context.Context, partyID, userID uuid.UUID) (bool, int, error) {
	var going bool
	var count int

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var partyModel models.PartyModel
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&partyModel, "id = ?", partyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		var mark models.GoingModel
		err := tx.
			Where("party_id = ? AND user_id = ?", partyID, userID).
			First(&mark).Error

		switch {
		case err == nil:
			if err := tx.Delete(&mark).Error; err != nil {
				return err
			}
			going = false
			count = partyModel.GoingCount - 1
			if count < 0 {
				count = 0
			}

		case errors.Is(err, gorm.ErrRecordNotFound):
			mark = models.GoingModel{
				ID:        uuid.New(),
				PartyID:   partyID,
				UserID:    userID,
				CreatedAt: time.Now(),
			}
			if err := tx.Create(&mark).Error; err != nil {
				return err
			}
			going = true
			count = partyModel.GoingCount + 1

		default:
			return err
		}

		return tx.Model(&models.PartyModel{}).
			Where("id = ?", partyID).
			Update("going_count", count).Error
	})
	if err != nil {
		return false, 0, err
	}

	return going, count, nil
}

// Exists checks whether the user is going to the party
func (r *GormGoingRepository) Exists(ctx context.Context, partyID, userID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.GoingModel{}).
		Where("party_id = ? AND user_id = ?", partyID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// PartyIDsForUser returns the parties the user is currently going to
func (r *GormGoingRepository) PartyIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.GoingModel{}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Pluck("party_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// UserIsGoing returns, for each party ID, whether the user is going
func (r *GormGoingRepository) UserIsGoing(ctx context.Context, userID uuid.UUID, partyIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	result := make(map[uuid.UUID]bool, len(partyIDs))
	for _, id := range partyIDs {
		result[id] = false
	}
	if len(partyIDs) == 0 {
		return result, nil
	}

	var goingIDs []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.GoingModel{}).
		Where("user_id = ? AND party_id IN ?", userID, partyIDs).
		Pluck("party_id", &goingIDs).Error; err != nil {
		return nil, err
	}

	for _, id := range goingIDs {
		result[id] = true
	}
	return result, nil
}

// Ensure GormGoingRepository implements party.GoingRepository
var _ party.GoingRepository = (*GormGoingRepository)(nil)
