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
)

// GormPartyRepository implements party.Repository using GORM
type GormPartyRepository struct {
	db *gorm.DB
}

// NewGormPartyRepository creates a new GormPartyRepository
func NewGormPartyRepository(db *gorm.DB) *GormPartyRepository {
	return &GormPartyRepository{db: db}
}

// Save creates a new party
func (r *GormPartyRepository) Save(ctx context.Context, p *party.Party) error {
	model := models.PartyModelFromDomain(p)
	return r.db.WithContext(ctx).Create(model).Error
}

// Update updates an existing party
func (r *GormPartyRepository) Update(ctx context.Context, p *party.Party) error {
	model := models.PartyModelFromDomain(p)
	result := r.db.WithContext(ctx).Save(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a party by ID
func (r *GormPartyRepository) FindByID(ctx context.Context, id uuid.UUID) (*party.Party, error) {
	var model models.PartyModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindApprovedByWeekend returns approved parties for the weekend, busiest first
func (r *GormPartyRepository) FindApprovedByWeekend(ctx context.Context, weekendOf time.Time, day *party.Day) ([]*party.Party, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", party.StatusApproved).
		Where("weekend_of = ?", weekendOf)

	if day != nil {
		query = query.Where("day = ?", *day)
	}

	var partyModels []*models.PartyModel
	if err := query.
		Order("going_count DESC").
		Order("created_at ASC").
		Find(&partyModels).Error; err != nil {
		return nil, err
	}

	parties := make([]*party.Party, len(partyModels))
	for i, model := range partyModels {
		parties[i] = model.ToDomain()
	}
	return parties, nil
}

// FindPending returns parties awaiting review, oldest first
func (r *GormPartyRepository) FindPending(ctx context.Context) ([]*party.Party, error) {
	var partyModels []*models.PartyModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", party.StatusPending).
		Order("created_at ASC").
		Find(&partyModels).Error; err != nil {
		return nil, err
	}

	parties := make([]*party.Party, len(partyModels))
	for i, model := range partyModels {
		parties[i] = model.ToDomain()
	}
	return parties, nil
}

// Delete deletes a party and its going marks
func (r *GormPartyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("party_id = ?", id).
			Delete(&models.GoingModel{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.PartyModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Ensure GormPartyRepository implements party.Repository
var _ party.Repository = (*GormPartyRepository)(nil)
