package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"worktravel-server/internal/apperrors"
	"worktravel-server/internal/models"
)

// ProfileService manages the optional extended profile of a user.
type ProfileService struct {
	DB      *gorm.DB
	Ratings *RatingService
}

// NewProfileService creates a new ProfileService.
func NewProfileService(db *gorm.DB, ratings *RatingService) *ProfileService {
	return &ProfileService{DB: db, Ratings: ratings}
}

// ProfileInput carries the editable profile fields.
type ProfileInput struct {
	ContactNumber   string `json:"contactNumber" validate:"notblank,max=255"`
	DateOfBirth     string `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	AreYouTraveling bool   `json:"areYouTraveling"`
	NativeOrigin    string `json:"nativeOrigin" validate:"notblank,max=255"`
	Sex             string `json:"sex" validate:"oneof=female male other"`
}

// ProfileView is what the profile page shows.
type ProfileView struct {
	User         models.UserSanitized `json:"user"`
	Profile      *models.Profile      `json:"profile"`
	HasProfile   bool                 `json:"hasProfile"`
	Average      float64              `json:"average"`
	AverageGrade string               `json:"averageGrade"`
}

// Get returns the user's profile page with their reputation.
func (s *ProfileService) Get(ctx context.Context, userID uint) (*ProfileView, error) {
	db := s.DB.WithContext(ctx)
	user, err := findUser(db, userID)
	if err != nil {
		return nil, err
	}
	profile, err := profileOf(db, userID)
	if err != nil {
		return nil, err
	}
	avg, err := s.Ratings.AverageReputation(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ProfileView{
		User:         user.Sanitize(),
		Profile:      profile,
		HasProfile:   profile != nil,
		Average:      avg,
		AverageGrade: fmt.Sprintf("%.2f", avg),
	}, nil
}

// Add creates the user's profile. A user has at most one.
func (s *ProfileService) Add(ctx context.Context, userID uint, in ProfileInput) (*models.Profile, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	profile := models.Profile{}
	if err := applyProfileInput(&profile, in); err != nil {
		return nil, err
	}

	db := s.DB.WithContext(ctx)
	existing, err := profileOf(db, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.AlreadyExists("profile already exists")
	}

	profile.UserID = &userID
	if err := db.Create(&profile).Error; err != nil {
		return nil, apperrors.Internal("create profile", err)
	}
	return &profile, nil
}

// Edit updates the user's existing profile.
func (s *ProfileService) Edit(ctx context.Context, userID uint, in ProfileInput) (*models.Profile, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	db := s.DB.WithContext(ctx)
	profile, err := profileOf(db, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperrors.NotFound("profile not found")
	}
	if err := applyProfileInput(profile, in); err != nil {
		return nil, err
	}
	if err := db.Save(profile).Error; err != nil {
		return nil, apperrors.Internal("update profile", err)
	}
	return profile, nil
}

func applyProfileInput(p *models.Profile, in ProfileInput) error {
	dob, err := parseDate(in.DateOfBirth)
	if err != nil {
		return apperrors.InvalidFields(map[string]string{"dateOfBirth": "Enter a valid date (YYYY-MM-DD)."})
	}
	if dob.After(today()) {
		return apperrors.InvalidFields(map[string]string{"dateOfBirth": "The given date of birth is in the future."})
	}
	p.ContactNumber = strings.TrimSpace(in.ContactNumber)
	p.DateOfBirth = dob
	p.AreYouTraveling = in.AreYouTraveling
	p.NativeOrigin = strings.TrimSpace(in.NativeOrigin)
	p.Sex = in.Sex
	return nil
}

func profileOf(db *gorm.DB, userID uint) (*models.Profile, error) {
	var profile models.Profile
	if err := db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Internal("find profile", err)
	}
	return &profile, nil
}
