package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RefreshToken represents a JWT refresh token in the database
type RefreshToken struct {
	BaseModel
	TokenID   string    `gorm:"size:36;uniqueIndex" json:"-"`
	UserID    uint      `gorm:"index" json:"userId"`
	Token     string    `gorm:"type:text;not null" json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsRevoked bool      `gorm:"default:false" json:"isRevoked"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;" json:"-"`
}

// BeforeCreate assigns a token id when the caller did not set one
func (t *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if t.TokenID == "" {
		t.TokenID = uuid.New().String()
	}
	return nil
}
