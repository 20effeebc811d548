package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Client is a person known to the parish: a concession holder, a deceased
// person or a contact.
type Client struct {
	ID        string            `gorm:"type:uuid;primaryKey" json:"id"`
	ParishID  string            `gorm:"type:uuid;not null;index" json:"parish_id"`
	Name      string            `gorm:"not null" json:"name"`
	Email     string            `json:"email,omitempty"`
	Phone     string            `json:"phone,omitempty"`
	Address   string            `json:"address,omitempty"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null" json:"updated_at"`
}

func (Client) TableName() string { return "clients" }
