package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/templeparties/backend/internal/domain/party"
	"github.com/templeparties/backend/internal/domain/shared"
)

// PartyModel is the persistence model for the Party aggregate.
type PartyModel struct {
	AggregateModel
	Title       string       `gorm:"type:varchar(50);not null"`
	Host        string       `gorm:"type:varchar(30);not null"`
	Category    string       `gorm:"type:varchar(30);not null"`
	Location    string       `gorm:"type:varchar(120);not null"`
	Description string       `gorm:"type:varchar(500)"`
	Day         party.Day    `gorm:"type:varchar(10);not null;index"`
	DoorsOpen   string       `gorm:"type:varchar(20)"`
	Latitude    float64      `gorm:"type:double precision;not null"`
	Longitude   float64      `gorm:"type:double precision;not null"`
	GoingCount  int          `gorm:"not null;default:0"`
	Status      party.Status `gorm:"type:varchar(10);not null;default:'pending';index"`
	WeekendOf   time.Time    `gorm:"type:date;not null;index"`
	CreatedBy   uuid.UUID    `gorm:"type:uuid;not null;index"`
}

// TableName returns the table name for GORM
func (PartyModel) TableName() string {
	return "parties"
}

// ToDomain converts the persistence model to a domain Party aggregate.
func (m *PartyModel) ToDomain() *party.Party {
	p := &party.Party{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		Title:       m.Title,
		Host:        m.Host,
		Category:    m.Category,
		Location:    m.Location,
		Description: m.Description,
		Day:         m.Day,
		DoorsOpen:   m.DoorsOpen,
		Latitude:    m.Latitude,
		Longitude:   m.Longitude,
		GoingCount:  m.GoingCount,
		Status:      m.Status,
		WeekendOf:   m.WeekendOf,
		CreatedBy:   m.CreatedBy,
	}
	return p
}

// FromDomain populates the persistence model from a domain Party aggregate.
func (m *PartyModel) FromDomain(p *party.Party) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.Title = p.Title
	m.Host = p.Host
	m.Category = p.Category
	m.Location = p.Location
	m.Description = p.Description
	m.Day = p.Day
	m.DoorsOpen = p.DoorsOpen
	m.Latitude = p.Latitude
	m.Longitude = p.Longitude
	m.GoingCount = p.GoingCount
	m.Status = p.Status
	m.WeekendOf = p.WeekendOf
	m.CreatedBy = p.CreatedBy
}

// PartyModelFromDomain creates a new persistence model from a domain Party aggregate.
func PartyModelFromDomain(p *party.Party) *PartyModel {
	m := &PartyModel{}
	m.FromDomain(p)
	return m
}

// GoingModel is the persistence model for a going mark.
// The unique index keeps the toggle idempotent per user and party.
type GoingModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	PartyID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_goings_party_user"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_goings_party_user;index"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (GoingModel) TableName() string {
	return "goings"
}

// ToDomain converts the persistence model to a domain Going.
func (m *GoingModel) ToDomain() party.Going {
	return party.Going{
		ID:        m.ID,
		PartyID:   m.PartyID,
		UserID:    m.UserID,
		CreatedAt: m.CreatedAt,
	}
}

// GoingModelFromDomain creates a new persistence model from a domain Going.
func GoingModelFromDomain(g party.Going) *GoingModel {
	return &GoingModel{
		ID:        g.ID,
		PartyID:   g.PartyID,
		UserID:    g.UserID,
		CreatedAt: g.CreatedAt,
	}
}
