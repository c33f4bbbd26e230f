package services

import (
	"context"
	"errors"

	"github.com/NIU1603490/eraswap-sub000/internal/apperr"
	"github.com/NIU1603490/eraswap-sub000/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// ConversationService finds or creates the single conversation for an
// unordered participant pair and optional product. Uniqueness is enforced
// by the (user_low, user_high, product) index; a lost creation race is
// resolved by re-running the lookup.
type ConversationService struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewConversationService(db *gorm.DB, logger zerolog.Logger) *ConversationService {
	return &ConversationService{db: db, log: logger}
}

// FindOrCreate returns the existing conversation between the two users for
// the given product context (0 = no product), creating it on first contact.
// The operation is externally idempotent.
func (s *ConversationService) FindOrCreate(ctx context.Context, userA, userB, productID uint) (*models.Conversation, error) {
	if userA == 0 || userB == 0 {
		return nil, apperr.Validation("both participants are required")
	}
	if userA == userB {
		return nil, apperr.Validation("cannot start a conversation with yourself")
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Find(&users, []uint{userA, userB}).Error; err != nil {
		return nil, err
	}
	if len(users) != 2 {
		missing := userA
		for _, u := range users {
			if u.ID == userA {
				missing = userB
			}
		}
		return nil, apperr.NotFound("user", missing)
	}

	if productID != 0 {
		var product models.Product
		if err := s.db.WithContext(ctx).First(&product, productID).Error; err != nil {
			return nil, asNotFound(err, "product", productID)
		}
	}

	low, high := models.NormalizePair(userA, userB)

	if conv, err := s.lookup(ctx, low, high, productID); err == nil {
		return conv, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conv := models.Conversation{
		UserLowID:  low,
		UserHighID: high,
		ProductID:  productID,
	}
	if err := s.db.WithContext(ctx).Create(&conv).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Concurrent first contact: the other caller won, reuse theirs.
			s.log.Debug().Uint("user_low", low).Uint("user_high", high).
				Msg("Conversation creation lost race, retrying lookup")
			return s.lookup(ctx, low, high, productID)
		}
		return nil, err
	}

	return s.lookup(ctx, low, high, productID)
}

func (s *ConversationService) lookup(ctx context.Context, low, high, productID uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.WithContext(ctx).
		Preload("UserLow").
		Preload("UserHigh").
		Preload("Product").
		Where("user_low_id = ? AND user_high_id = ? AND product_id = ?", low, high, productID).
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetForParticipant loads a conversation and verifies the caller belongs to it.
func (s *ConversationService) GetForParticipant(ctx context.Context, conversationID, userID uint) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.db.WithContext(ctx).First(&conv, conversationID).Error; err != nil {
		return nil, asNotFound(err, "conversation", conversationID)
	}
	if !conv.HasParticipant(userID) {
		return nil, apperr.Forbidden("you are not a participant of this conversation")
	}
	return &conv, nil
}

// ListForUser returns the user's conversations ordered by recency, each
// populated with participants, product and last message summaries.
func (s *ConversationService) ListForUser(ctx context.Context, userID uint) ([]models.Conversation, error) {
	if userID == 0 {
		return nil, apperr.Validation("user is required")
	}

	var convs []models.Conversation
	err := s.db.WithContext(ctx).
		Preload("UserLow").
		Preload("UserHigh").
		Preload("Product").
		Preload("LastMessage").
		Preload("LastMessage.Sender").
		Preload("LastMessage.Receiver").
		Where("user_low_id = ? OR user_high_id = ?", userID, userID).
		Order("updated_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, err
	}
	return convs, nil
}
