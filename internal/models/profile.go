package models

import "time"

// Sex choices stored on a profile
const (
	SexFemale = "female"
	SexMale   = "male"
	SexOther  = "other"
)

// Profile holds the optional extended information of a user.
type Profile struct {
	BaseModel
	UserID          *uint     `gorm:"uniqueIndex" json:"userId,omitempty"`
	ContactNumber   string    `gorm:"size:255;not null" json:"contactNumber"`
	DateOfBirth     time.Time `gorm:"type:date" json:"dateOfBirth"`
	AreYouTraveling bool      `json:"areYouTraveling"`
	NativeOrigin    string    `gorm:"size:255;not null" json:"nativeOrigin"`
	Sex             string    `gorm:"size:9;not null" json:"sex"`
}
