package services

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"worktravel-server/internal/apperrors"
	"worktravel-server/internal/models"
)

// RatingState is the grading progress of one (offer, counterparty) thread.
type RatingState string

const (
	StateUngraded RatingState = "ungraded"
	StateGraded   RatingState = "graded"
	StateAnswered RatingState = "answered"
)

// RatingService enforces the grade/answer protocol and computes reputation.
type RatingService struct {
	DB *gorm.DB
}

// NewRatingService creates a new RatingService.
func NewRatingService(db *gorm.DB) *RatingService {
	return &RatingService{DB: db}
}

// GradeInput is a grade submitted by an offer owner.
type GradeInput struct {
	Grade       int    `json:"grade" validate:"min=1,max=5"`
	Description string `json:"description" validate:"notblank,max=255"`
}

// AnswerInput is the graded user's rebuttal.
type AnswerInput struct {
	GradeAnswer int    `json:"gradeAnswer" validate:"min=1,max=5"`
	Text        string `json:"text" validate:"notblank,max=255"`
}

// GradeForm is the grading view of a thread. Grade has a zero ID when the
// thread has not been graded yet.
type GradeForm struct {
	Offer              models.Offer         `json:"offer"`
	Message            models.Message       `json:"message"`
	FirstMessageSender models.UserSanitized `json:"firstMessageSender"`
	Grade              models.Grade         `json:"grade"`
	Answer             *models.Answer       `json:"answer"`
	State              RatingState          `json:"state"`
}

// AnswerForm is the answering view of a grade. Answer has a zero ID when no
// answer was given yet.
type AnswerForm struct {
	Grade     models.Grade  `json:"grade"`
	OfferID   uint          `json:"offerId"`
	OfferName string        `json:"offerName"`
	Answer    models.Answer `json:"answer"`
}

// GradeSummary is one row of the grades a user has received.
type GradeSummary struct {
	GradeID       uint   `json:"gradeId"`
	GradeValue    int    `json:"gradeValue"`
	Description   string `json:"description"`
	OfferID       uint   `json:"offerId"`
	OfferName     string `json:"offerName"`
	OwnerUsername string `json:"ownerUsername"`
	AnswerID      *uint  `json:"answerId,omitempty"`
	AnswerValue   *int   `json:"answerValue,omitempty"`
}

// GetOrInitGrade returns the grade attached to the counterparty's first
// message in the offer, or an unsaved grade bound to that message.
func (s *RatingService) GetOrInitGrade(ctx context.Context, offerID, counterpartyID, callerID uint) (*GradeForm, error) {
	db := s.DB.WithContext(ctx)
	offer, err := s.ownedOffer(db, offerID, callerID)
	if err != nil {
		return nil, err
	}
	if counterpartyID == callerID {
		return nil, apperrors.InvalidArg("cannot grade yourself")
	}
	msg, err := firstMessageFrom(db, offerID, counterpartyID)
	if err != nil {
		return nil, err
	}
	sender, err := findUser(db, msg.SenderID)
	if err != nil {
		return nil, err
	}

	form := &GradeForm{
		Offer:              *offer,
		Message:            *msg,
		FirstMessageSender: sender.Sanitize(),
		Grade:              models.Grade{MessageID: msg.ID, UserID: msg.SenderID, AuthorID: callerID},
		State:              StateUngraded,
	}

	grade, err := gradeForMessage(db, msg.ID)
	if err != nil {
		return nil, err
	}
	if grade == nil {
		return form, nil
	}
	form.Grade = *grade
	form.State = StateGraded

	answer, err := answerForGrade(db, grade.ID)
	if err != nil {
		return nil, err
	}
	if answer != nil {
		form.Answer = answer
		form.State = StateAnswered
	}
	return form, nil
}

// SubmitGrade creates or updates the grade of the counterparty's first
// message in the offer. A grade that has been answered can no longer change.
func (s *RatingService) SubmitGrade(ctx context.Context, offerID, counterpartyID, callerID uint, in GradeInput) (*models.Grade, error) {
	db := s.DB.WithContext(ctx)
	if _, err := s.ownedOffer(db, offerID, callerID); err != nil {
		return nil, err
	}
	if counterpartyID == callerID {
		return nil, apperrors.InvalidArg("cannot grade yourself")
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	msg, err := firstMessageFrom(db, offerID, counterpartyID)
	if err != nil {
		return nil, err
	}

	existing, err := gradeForMessage(db, msg.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		answer, err := answerForGrade(db, existing.ID)
		if err != nil {
			return nil, err
		}
		if answer != nil {
			return nil, apperrors.FailedPrecondition("grade has already been answered")
		}
	}

	grade := models.Grade{
		Grade:       in.Grade,
		Description: in.Description,
		MessageID:   msg.ID,
		UserID:      msg.SenderID,
		AuthorID:    callerID,
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"grade", "description", "author_id", "updated_at"}),
	}).Create(&grade).Error
	if err != nil {
		return nil, apperrors.Internal("save grade", err)
	}

	saved, err := gradeForMessage(db, msg.ID)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, apperrors.Internal("save grade", errors.New("grade missing after upsert"))
	}
	return saved, nil
}

// GetAnswer returns the answer form of a grade. Only the graded user may
// see it.
func (s *RatingService) GetAnswer(ctx context.Context, gradeID, callerID uint) (*AnswerForm, error) {
	db := s.DB.WithContext(ctx)
	grade, err := s.gradeForSubject(db, gradeID, callerID)
	if err != nil {
		return nil, err
	}

	form := &AnswerForm{
		Grade:     *grade,
		OfferID:   grade.Message.Offer.ID,
		OfferName: grade.Message.Offer.Name,
		Answer:    models.Answer{GradeID: grade.ID},
	}
	answer, err := answerForGrade(db, grade.ID)
	if err != nil {
		return nil, err
	}
	if answer != nil {
		form.Answer = *answer
	}
	return form, nil
}

// SubmitAnswer creates or updates the single answer of a grade.
func (s *RatingService) SubmitAnswer(ctx context.Context, gradeID, callerID uint, in AnswerInput) (*models.Answer, error) {
	db := s.DB.WithContext(ctx)
	grade, err := s.gradeForSubject(db, gradeID, callerID)
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	answer := models.Answer{
		GradeID:     grade.ID,
		GradeAnswer: in.GradeAnswer,
		Text:        in.Text,
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "grade_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"grade_answer", "text", "updated_at"}),
	}).Create(&answer).Error
	if err != nil {
		return nil, apperrors.Internal("save answer", err)
	}

	saved, err := answerForGrade(db, grade.ID)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, apperrors.Internal("save answer", errors.New("answer missing after upsert"))
	}
	return saved, nil
}

// ListMyGrades returns every grade the user received, by offer name
// descending.
func (s *RatingService) ListMyGrades(ctx context.Context, userID uint) ([]GradeSummary, error) {
	summaries := []GradeSummary{}
	err := s.DB.WithContext(ctx).
		Table("grades").
		Select(`grades.id AS grade_id, grades.grade AS grade_value, grades.description AS description,
			offers.id AS offer_id, offers.name AS offer_name, users.username AS owner_username,
			answers.id AS answer_id, answers.grade_answer AS answer_value`).
		Joins("JOIN messages ON messages.id = grades.message_id").
		Joins("JOIN offers ON offers.id = messages.offer_id").
		Joins("JOIN users ON users.id = offers.owner_id").
		Joins("LEFT JOIN answers ON answers.grade_id = grades.id").
		Where("messages.sender_id = ?", userID).
		Order("offers.name DESC").Order("grades.id ASC").
		Scan(&summaries).Error
	if err != nil {
		return nil, apperrors.Internal("list grades", err)
	}
	return summaries, nil
}

// AverageReputation averages the grades the user received and the answer
// ratings the user gave; see CombineReputation.
func (s *RatingService) AverageReputation(ctx context.Context, userID uint) (float64, error) {
	db := s.DB.WithContext(ctx)

	var gradeMean sql.NullFloat64
	err := db.Model(&models.Grade{}).
		Select("AVG(grades.grade)").
		Joins("JOIN messages ON messages.id = grades.message_id").
		Where("messages.sender_id = ?", userID).
		Row().Scan(&gradeMean)
	if err != nil {
		return 0, apperrors.Internal("average grades", err)
	}

	var answerMean sql.NullFloat64
	err = db.Model(&models.Answer{}).
		Select("AVG(answers.grade_answer)").
		Joins("JOIN grades ON grades.id = answers.grade_id").
		Joins("JOIN messages ON messages.id = grades.message_id").
		Where("messages.sender_id = ?", userID).
		Row().Scan(&answerMean)
	if err != nil {
		return 0, apperrors.Internal("average answers", err)
	}

	return CombineReputation(nullableMean(gradeMean), nullableMean(answerMean)), nil
}

// CombineReputation is the mean of the two pool means when both pools are
// non-empty, the single non-empty pool's mean otherwise, and 0 when both are
// empty. A nil mean denotes an empty pool.
func CombineReputation(gradeMean, answerMean *float64) float64 {
	switch {
	case gradeMean != nil && answerMean != nil:
		return (*gradeMean + *answerMean) / 2
	case gradeMean != nil:
		return *gradeMean
	case answerMean != nil:
		return *answerMean
	default:
		return 0
	}
}

func nullableMean(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func (s *RatingService) ownedOffer(db *gorm.DB, offerID, callerID uint) (*models.Offer, error) {
	offer, err := findOffer(db, offerID)
	if err != nil {
		return nil, err
	}
	if offer.OwnerID != callerID {
		return nil, apperrors.Forbidden("only the offer owner can grade")
	}
	return offer, nil
}

func (s *RatingService) gradeForSubject(db *gorm.DB, gradeID, callerID uint) (*models.Grade, error) {
	var grade models.Grade
	if err := db.Preload("Message.Offer").First(&grade, gradeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("grade not found")
		}
		return nil, apperrors.Internal("find grade", err)
	}
	if grade.Message.SenderID != callerID {
		return nil, apperrors.Forbidden("only the graded user can answer")
	}
	return &grade, nil
}

func firstMessageFrom(db *gorm.DB, offerID, senderID uint) (*models.Message, error) {
	var msg models.Message
	err := db.Where("offer_id = ? AND sender_id = ?", offerID, senderID).
		Order("created_at asc").Order("id asc").
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("no message from this user about the offer")
		}
		return nil, apperrors.Internal("find first message", err)
	}
	return &msg, nil
}

func gradeForMessage(db *gorm.DB, messageID uint) (*models.Grade, error) {
	var grade models.Grade
	err := db.Where("message_id = ?", messageID).Limit(1).Find(&grade).Error
	if err != nil {
		return nil, apperrors.Internal("find grade", err)
	}
	if grade.ID == 0 {
		return nil, nil
	}
	return &grade, nil
}

func answerForGrade(db *gorm.DB, gradeID uint) (*models.Answer, error) {
	var answer models.Answer
	err := db.Where("grade_id = ?", gradeID).Limit(1).Find(&answer).Error
	if err != nil {
		return nil, apperrors.Internal("find answer", err)
	}
	if answer.ID == 0 {
		return nil, nil
	}
	return &answer, nil
}
