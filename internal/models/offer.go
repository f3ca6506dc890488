package models

import "time"

// OfferType tells whether an offer advertises a job or a person looking for one
type OfferType string

const (
	OfferTypeJobOffer   OfferType = "job offer"
	OfferTypeJobSeekers OfferType = "job seekers"
)

// Category is a named tag attached to offers
type Category struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"uniqueIndex;size:50;not null" json:"name"`
}

// Offer represents a job or travel posting
type Offer struct {
	BaseModel
	Name         string     `gorm:"size:255;not null" json:"name"`
	Country      string     `gorm:"size:200;not null;index" json:"country"`
	City         string     `gorm:"size:100;not null" json:"city"`
	Description  string     `gorm:"type:text" json:"description"`
	OfferType    OfferType  `gorm:"size:20;not null" json:"offerType"`
	SinceWhen    time.Time  `gorm:"type:date" json:"sinceWhen"`
	UntilWhen    time.Time  `gorm:"type:date;index" json:"untilWhen"`
	OnlyForWomen bool       `json:"onlyForWomen"`
	IsActive     bool       `gorm:"index" json:"isActive"`
	OwnerID      uint       `gorm:"index;not null" json:"ownerId"`
	Owner        User       `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE;" json:"-"`
	Categories   []Category `gorm:"many2many:offer_categories;" json:"categories"`
}
