package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"worktravel-server/internal/apperrors"
	"worktravel-server/internal/models"
)

// ConversationService derives conversation threads from the flat message log.
type ConversationService struct {
	DB *gorm.DB
}

// NewConversationService creates a new ConversationService.
func NewConversationService(db *gorm.DB) *ConversationService {
	return &ConversationService{DB: db}
}

// OfferConversation groups every message of one offer the user took part in.
type OfferConversation struct {
	Offer    models.Offer     `json:"offer"`
	Messages []models.Message `json:"messages"`
}

// ThreadKey identifies a thread by its unordered pair of participants.
// Low is always the smaller user id.
type ThreadKey struct {
	Low  uint `json:"low"`
	High uint `json:"high"`
}

// NewThreadKey canonicalizes the pair {a, b}.
func NewThreadKey(a, b uint) ThreadKey {
	if a > b {
		a, b = b, a
	}
	return ThreadKey{Low: a, High: b}
}

// Other returns the participant that is not userID.
func (k ThreadKey) Other(userID uint) uint {
	if k.Low == userID {
		return k.High
	}
	return k.Low
}

// Thread is one conversation about an offer, newest message first.
type Thread struct {
	Key          ThreadKey            `json:"key"`
	Counterparty models.UserSanitized `json:"counterparty"`
	Messages     []models.Message     `json:"messages"`
	LastMessage  models.Message       `json:"lastMessage"`
}

// ThreadDetail is a single thread in chronological order.
type ThreadDetail struct {
	Offer        models.Offer         `json:"offer"`
	Counterparty models.UserSanitized `json:"counterparty"`
	Messages     []models.Message     `json:"messages"`
	CanGrade     bool                 `json:"canGrade"`
}

// PostMessageInput is the body of a new message.
type PostMessageInput struct {
	Text string `json:"message" validate:"notblank"`
}

// ListInbox returns the user's messages grouped by offer. Messages inside a
// group are in ascending time order; groups follow the time of their first
// message.
func (s *ConversationService) ListInbox(ctx context.Context, userID uint) ([]OfferConversation, error) {
	var messages []models.Message
	err := s.DB.WithContext(ctx).
		Preload("Offer").
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at asc").Order("id asc").
		Find(&messages).Error
	if err != nil {
		return nil, apperrors.Internal("list inbox", err)
	}

	index := make(map[uint]int)
	conversations := []OfferConversation{}
	for _, msg := range messages {
		i, ok := index[msg.OfferID]
		if !ok {
			i = len(conversations)
			index[msg.OfferID] = i
			conversations = append(conversations, OfferConversation{Offer: msg.Offer})
		}
		conversations[i].Messages = append(conversations[i].Messages, msg)
	}
	return conversations, nil
}

// ListThreads partitions the user's messages about an offer into threads
// keyed by participant pair, most recently active thread first.
func (s *ConversationService) ListThreads(ctx context.Context, userID, offerID uint) ([]Thread, error) {
	db := s.DB.WithContext(ctx)
	if _, err := findOffer(db, offerID); err != nil {
		return nil, err
	}

	var messages []models.Message
	err := db.Where("offer_id = ?", offerID).
		Where("(sender_id = ? OR receiver_id = ?)", userID, userID).
		Order("created_at desc").Order("id desc").
		Find(&messages).Error
	if err != nil {
		return nil, apperrors.Internal("list threads", err)
	}

	// Messages arrive newest first, so threads are created in order of
	// their latest message.
	index := make(map[ThreadKey]int)
	threads := []Thread{}
	counterpartyIDs := []uint{}
	for _, msg := range messages {
		key := NewThreadKey(msg.SenderID, msg.ReceiverID)
		i, ok := index[key]
		if !ok {
			i = len(threads)
			index[key] = i
			threads = append(threads, Thread{Key: key, LastMessage: msg})
			counterpartyIDs = append(counterpartyIDs, key.Other(userID))
		}
		threads[i].Messages = append(threads[i].Messages, msg)
	}
	if len(threads) == 0 {
		return threads, nil
	}

	var users []models.User
	if err := db.Where("id IN ?", counterpartyIDs).Find(&users).Error; err != nil {
		return nil, apperrors.Internal("load counterparties", err)
	}
	byID := make(map[uint]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for i := range threads {
		u := byID[threads[i].Key.Other(userID)]
		threads[i].Counterparty = u.Sanitize()
	}
	return threads, nil
}

// GetThread returns all messages between userID and counterpartyID about an
// offer in ascending time order.
func (s *ConversationService) GetThread(ctx context.Context, userID, offerID, counterpartyID uint) (*ThreadDetail, error) {
	db := s.DB.WithContext(ctx)
	offer, err := findOffer(db, offerID)
	if err != nil {
		return nil, err
	}
	counterparty, err := findUser(db, counterpartyID)
	if err != nil {
		return nil, err
	}

	var messages []models.Message
	err = db.Where("offer_id = ?", offerID).
		Where("((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))",
			userID, counterpartyID, counterpartyID, userID).
		Order("created_at asc").Order("id asc").
		Find(&messages).Error
	if err != nil {
		return nil, apperrors.Internal("get thread", err)
	}

	return &ThreadDetail{
		Offer:        *offer,
		Counterparty: counterparty.Sanitize(),
		Messages:     messages,
		CanGrade:     offer.OwnerID == userID && counterpartyID != userID,
	}, nil
}

// PostMessage stores a message from senderID about an offer. The offer owner
// writes to the counterparty; anyone else always writes to the owner.
func (s *ConversationService) PostMessage(ctx context.Context, senderID, offerID, counterpartyID uint, in PostMessageInput) (*models.Message, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	db := s.DB.WithContext(ctx)
	offer, err := findOffer(db, offerID)
	if err != nil {
		return nil, err
	}

	receiverID := offer.OwnerID
	if senderID == offer.OwnerID {
		if counterpartyID == senderID {
			return nil, apperrors.InvalidArg("cannot send a message to yourself")
		}
		if _, err := findUser(db, counterpartyID); err != nil {
			return nil, err
		}
		receiverID = counterpartyID
	}

	msg := models.Message{
		Text:       strings.TrimSpace(in.Text),
		OfferID:    offer.ID,
		SenderID:   senderID,
		ReceiverID: receiverID,
	}
	if err := db.Create(&msg).Error; err != nil {
		return nil, apperrors.Internal("create message", err)
	}
	return &msg, nil
}

func findOffer(db *gorm.DB, offerID uint) (*models.Offer, error) {
	var offer models.Offer
	if err := db.First(&offer, offerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("offer not found")
		}
		return nil, apperrors.Internal("find offer", err)
	}
	return &offer, nil
}

func findUser(db *gorm.DB, userID uint) (*models.User, error) {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, apperrors.Internal("find user", err)
	}
	return &user, nil
}
