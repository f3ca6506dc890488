package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"worktravel-server/internal/apperrors"
	"worktravel-server/internal/models"
)

// OfferService manages the offer catalog.
type OfferService struct {
	DB       *gorm.DB
	PageSize int
}

// NewOfferService creates a new OfferService listing pageSize offers per page.
func NewOfferService(db *gorm.DB, pageSize int) *OfferService {
	if pageSize <= 0 {
		pageSize = 2
	}
	return &OfferService{DB: db, PageSize: pageSize}
}

// OfferInput carries the editable fields of an offer.
type OfferInput struct {
	Name         string `json:"name" validate:"notblank,max=255"`
	Country      string `json:"country" validate:"notblank,max=200"`
	City         string `json:"city" validate:"notblank,max=100"`
	Description  string `json:"description" validate:"notblank"`
	OfferType    string `json:"offerType" validate:"oneof='job offer' 'job seekers'"`
	CategoryIDs  []uint `json:"category" validate:"min=1"`
	Since        string `json:"sinceWhen" validate:"required,datetime=2006-01-02"`
	Until        string `json:"untilWhen" validate:"required,datetime=2006-01-02"`
	OnlyForWomen bool   `json:"onlyForWomen"`
	IsActive     *bool  `json:"isActive"`
}

// OfferPage is one page of the public offer listing.
type OfferPage struct {
	Offers     []models.Offer `json:"offers"`
	Page       int            `json:"page"`
	TotalPages int            `json:"totalPages"`
	Total      int64          `json:"total"`
	Search     string         `json:"search"`
}

// OfferDetail is an offer with its categories and owner.
type OfferDetail struct {
	models.Offer
	OwnerUsername string `json:"ownerUsername"`
}

// checkDates parses the offer dates. Dates in the past are rejected only
// when creating.
func checkDates(in OfferInput, creating bool) (since, until time.Time, err error) {
	since, err = parseDate(in.Since)
	if err != nil {
		return since, until, apperrors.InvalidFields(map[string]string{"sinceWhen": "Enter a valid date (YYYY-MM-DD)."})
	}
	until, err = parseDate(in.Until)
	if err != nil {
		return since, until, apperrors.InvalidFields(map[string]string{"untilWhen": "Enter a valid date (YYYY-MM-DD)."})
	}
	if creating {
		now := today()
		if since.Before(now) || until.Before(now) {
			return since, until, apperrors.InvalidFields(map[string]string{"sinceWhen": "None of the dates can be older than today."})
		}
	}
	if since.After(until) {
		return since, until, apperrors.InvalidFields(map[string]string{"untilWhen": `"Since when" date must be earlier than the "until when" date.`})
	}
	return since, until, nil
}

func (s *OfferService) loadCategories(db *gorm.DB, ids []uint) ([]models.Category, error) {
	var categories []models.Category
	if err := db.Where("id IN ?", ids).Find(&categories).Error; err != nil {
		return nil, apperrors.Internal("load categories", err)
	}
	if len(categories) != len(uniqueIDs(ids)) {
		return nil, apperrors.InvalidFields(map[string]string{"category": "Select a valid choice."})
	}
	return categories, nil
}

// Create stores a new offer owned by ownerID.
func (s *OfferService) Create(ctx context.Context, ownerID uint, in OfferInput) (*models.Offer, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	since, until, err := checkDates(in, true)
	if err != nil {
		return nil, err
	}

	db := s.DB.WithContext(ctx)
	categories, err := s.loadCategories(db, in.CategoryIDs)
	if err != nil {
		return nil, err
	}

	offer := models.Offer{
		Name:         strings.TrimSpace(in.Name),
		Country:      strings.TrimSpace(in.Country),
		City:         strings.TrimSpace(in.City),
		Description:  in.Description,
		OfferType:    models.OfferType(in.OfferType),
		SinceWhen:    since,
		UntilWhen:    until,
		OnlyForWomen: in.OnlyForWomen,
		IsActive:     in.IsActive == nil || *in.IsActive,
		OwnerID:      ownerID,
		Categories:   categories,
	}
	if err := db.Create(&offer).Error; err != nil {
		return nil, apperrors.Internal("create offer", err)
	}
	return &offer, nil
}

// Update replaces the fields of an offer. Only its owner may do so.
func (s *OfferService) Update(ctx context.Context, offerID, callerID uint, in OfferInput) (*models.Offer, error) {
	db := s.DB.WithContext(ctx)
	offer, err := s.ownedBy(db, offerID, callerID)
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	since, until, err := checkDates(in, false)
	if err != nil {
		return nil, err
	}
	categories, err := s.loadCategories(db, in.CategoryIDs)
	if err != nil {
		return nil, err
	}

	offer.Name = strings.TrimSpace(in.Name)
	offer.Country = strings.TrimSpace(in.Country)
	offer.City = strings.TrimSpace(in.City)
	offer.Description = in.Description
	offer.OfferType = models.OfferType(in.OfferType)
	offer.SinceWhen = since
	offer.UntilWhen = until
	offer.OnlyForWomen = in.OnlyForWomen
	if in.IsActive != nil {
		offer.IsActive = *in.IsActive
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Categories").Save(offer).Error; err != nil {
			return err
		}
		return tx.Model(offer).Association("Categories").Replace(categories)
	})
	if err != nil {
		return nil, apperrors.Internal("update offer", err)
	}
	offer.Categories = categories
	return offer, nil
}

// Delete removes an offer with its messages, grades and answers.
func (s *OfferService) Delete(ctx context.Context, offerID, callerID uint) error {
	db := s.DB.WithContext(ctx)
	offer, err := s.ownedBy(db, offerID, callerID)
	if err != nil {
		return err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		messageIDs := func() *gorm.DB {
			return tx.Model(&models.Message{}).Select("id").Where("offer_id = ?", offer.ID)
		}
		gradeIDs := tx.Model(&models.Grade{}).Select("id").Where("message_id IN (?)", messageIDs())
		if err := tx.Where("grade_id IN (?)", gradeIDs).Delete(&models.Answer{}).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id IN (?)", messageIDs()).Delete(&models.Grade{}).Error; err != nil {
			return err
		}
		if err := tx.Where("offer_id = ?", offer.ID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Model(offer).Association("Categories").Clear(); err != nil {
			return err
		}
		return tx.Delete(offer).Error
	})
	if err != nil {
		return apperrors.Internal("delete offer", err)
	}
	return nil
}

// Get returns an offer with categories and owner username.
func (s *OfferService) Get(ctx context.Context, offerID uint) (*OfferDetail, error) {
	var offer models.Offer
	err := s.DB.WithContext(ctx).Preload("Categories").Preload("Owner").First(&offer, offerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("offer not found")
		}
		return nil, apperrors.Internal("get offer", err)
	}
	return &OfferDetail{Offer: offer, OwnerUsername: offer.Owner.Username}, nil
}

// ListActive pages through active offers whose country contains search,
// ignoring case. Page numbers outside the valid range are clamped.
func (s *OfferService) ListActive(ctx context.Context, search string, page int) (*OfferPage, error) {
	search = strings.TrimSpace(search)
	query := s.DB.WithContext(ctx).Model(&models.Offer{}).Where("is_active = ?", true)
	if search != "" {
		query = query.Where("LOWER(country) LIKE ? ESCAPE '!'", "%"+escapeLike(strings.ToLower(search))+"%")
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Internal("count offers", err)
	}

	totalPages := int((total + int64(s.PageSize) - 1) / int64(s.PageSize))
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	offers := []models.Offer{}
	err := query.Preload("Categories").
		Order("id asc").
		Limit(s.PageSize).Offset((page - 1) * s.PageSize).
		Find(&offers).Error
	if err != nil {
		return nil, apperrors.Internal("list offers", err)
	}

	return &OfferPage{Offers: offers, Page: page, TotalPages: totalPages, Total: total, Search: search}, nil
}

// ListOwned returns the caller's offers ordered by end date.
func (s *OfferService) ListOwned(ctx context.Context, ownerID uint) ([]models.Offer, error) {
	offers := []models.Offer{}
	err := s.DB.WithContext(ctx).Preload("Categories").
		Where("owner_id = ?", ownerID).
		Order("until_when asc").Order("id asc").
		Find(&offers).Error
	if err != nil {
		return nil, apperrors.Internal("list own offers", err)
	}
	return offers, nil
}

// ListCategories returns all categories by name.
func (s *OfferService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	if err := s.DB.WithContext(ctx).Order("name asc").Find(&categories).Error; err != nil {
		return nil, apperrors.Internal("list categories", err)
	}
	return categories, nil
}

func (s *OfferService) ownedBy(db *gorm.DB, offerID, callerID uint) (*models.Offer, error) {
	offer, err := findOffer(db, offerID)
	if err != nil {
		return nil, err
	}
	if offer.OwnerID != callerID {
		return nil, apperrors.Forbidden("only the offer owner can change it")
	}
	return offer, nil
}

// likeEscaper makes LIKE wildcards in user input match literally, with '!'
// as the escape character of the ESCAPE clause.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func uniqueIDs(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
