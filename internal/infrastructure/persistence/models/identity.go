package models

import (
	"github.com/templeparties/backend/internal/domain/identity"
	"github.com/templeparties/backend/internal/domain/shared"
)

// ProfileModel is the persistence model for the Profile aggregate.
type ProfileModel struct {
	AggregateModel
	Email    string `gorm:"type:varchar(200);not null;uniqueIndex"`
	Username string `gorm:"type:varchar(30)"`
	IsAdmin  bool   `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (ProfileModel) TableName() string {
	return "profiles"
}

// ToDomain converts the persistence model to a domain Profile aggregate.
func (m *ProfileModel) ToDomain() *identity.Profile {
	return &identity.Profile{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		Email:    m.Email,
		Username: m.Username,
		IsAdmin:  m.IsAdmin,
	}
}

// FromDomain populates the persistence model from a domain Profile aggregate.
func (m *ProfileModel) FromDomain(p *identity.Profile) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.Email = p.Email
	m.Username = p.Username
	m.IsAdmin = p.IsAdmin
}

// ProfileModelFromDomain creates a new persistence model from a domain Profile aggregate.
func ProfileModelFromDomain(p *identity.Profile) *ProfileModel {
	m := &ProfileModel{}
	m.FromDomain(p)
	return m
}
