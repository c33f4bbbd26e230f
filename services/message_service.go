package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/NIU1603490/eraswap-sub000/internal/apperr"
	"github.com/NIU1603490/eraswap-sub000/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Broadcaster fans a payload out to every connection currently joined to a
// room. Rooms are keyed by conversation ID. Implemented by ws.Hub; tests
// inject a fake.
type Broadcaster interface {
	PublishToRoom(roomID uint, payload []byte)
}

// MessageService persists messages, keeps the conversation's last-message
// pointer current and pushes the populated copy to the conversation room.
// Persistence always happens before the broadcast, so a crash in between
// drops only the realtime notification, never the message.
type MessageService struct {
	db          *gorm.DB
	broadcaster Broadcaster // may be nil
	log         zerolog.Logger
}

func NewMessageService(db *gorm.DB, broadcaster Broadcaster, logger zerolog.Logger) *MessageService {
	return &MessageService{db: db, broadcaster: broadcaster, log: logger}
}

type SendMessageInput struct {
	ConversationID uint
	SenderID       uint
	ReceiverID     uint
	Content        string
	ProductID      uint // optional context snapshot, 0 = none
}

// Send validates, persists and broadcasts one message. The returned message
// is the persisted record; the populated copy is only used for the
// broadcast payload.
func (s *MessageService) Send(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	switch {
	case in.ConversationID == 0:
		return nil, apperr.Validation("conversation is required")
	case in.SenderID == 0:
		return nil, apperr.Validation("sender is required")
	case in.ReceiverID == 0:
		return nil, apperr.Validation("receiver is required")
	case strings.TrimSpace(in.Content) == "":
		return nil, apperr.Validation("message content cannot be empty")
	}

	var conv models.Conversation
	if err := s.db.WithContext(ctx).First(&conv, in.ConversationID).Error; err != nil {
		return nil, asNotFound(err, "conversation", in.ConversationID)
	}
	if !conv.HasParticipant(in.SenderID) || !conv.HasParticipant(in.ReceiverID) {
		return nil, apperr.Validation("sender and receiver must both be participants of the conversation")
	}

	var sender, receiver models.User
	if err := s.db.WithContext(ctx).First(&sender, in.SenderID).Error; err != nil {
		return nil, asNotFound(err, "sender", in.SenderID)
	}
	if err := s.db.WithContext(ctx).First(&receiver, in.ReceiverID).Error; err != nil {
		return nil, asNotFound(err, "receiver", in.ReceiverID)
	}

	if in.ProductID != 0 {
		var product models.Product
		if err := s.db.WithContext(ctx).First(&product, in.ProductID).Error; err != nil {
			return nil, asNotFound(err, "product", in.ProductID)
		}
	}

	msg := models.Message{
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		ReceiverID:     in.ReceiverID,
		Content:        in.Content,
		ProductID:      in.ProductID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", conv.ID).
			Updates(map[string]interface{}{
				"last_message_id": msg.ID,
				"updated_at":      time.Now(),
			}).Error
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(ctx, &msg)

	return &msg, nil
}

// ListByConversation returns the conversation's messages, newest first,
// populated with sender, receiver and product summaries.
func (s *MessageService) ListByConversation(ctx context.Context, conversationID uint) ([]models.Message, error) {
	if conversationID == 0 {
		return nil, apperr.Validation("conversation is required")
	}

	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Preload("Sender").
		Preload("Receiver").
		Preload("Product").
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// broadcast pushes the populated message to the conversation room.
// Best-effort: failures are logged, never surfaced.
func (s *MessageService) broadcast(ctx context.Context, msg *models.Message) {
	if s.broadcaster == nil {
		return
	}

	var populated models.Message
	err := s.db.WithContext(ctx).
		Preload("Sender").
		Preload("Receiver").
		Preload("Product").
		First(&populated, msg.ID).Error
	if err != nil {
		s.log.Warn().Err(apperr.Dependency("populate broadcast message", err)).
			Uint("message_id", msg.ID).Msg("Realtime broadcast skipped")
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"type":            "new_message",
		"conversation_id": populated.ConversationID,
		"message":         populated,
	})
	if err != nil {
		s.log.Warn().Err(err).Uint("message_id", msg.ID).Msg("Failed to encode broadcast payload")
		return
	}

	s.broadcaster.PublishToRoom(populated.ConversationID, payload)
}
