package models

// Message is a text sent from one user to another about an offer.
type Message struct {
	BaseModel
	Text       string `gorm:"column:message;type:text;not null" json:"message"`
	OfferID    uint   `gorm:"index;not null" json:"offerId"`
	SenderID   uint   `gorm:"index;not null" json:"senderId"`
	ReceiverID uint   `gorm:"index;not null" json:"receiverId"`

	// Relations
	Offer    Offer `gorm:"foreignKey:OfferID;constraint:OnDelete:CASCADE;" json:"-"`
	Sender   User  `gorm:"foreignKey:SenderID" json:"-"`
	Receiver User  `gorm:"foreignKey:ReceiverID" json:"-"`
}
