package models

import (
	"time"

	"gorm.io/gorm"
)

// Conversation is a direct thread between two users, optionally scoped to a
// product. The participant pair is stored normalized (lower user ID first) so
// the unordered pair plus product forms a single unique key; ProductID 0 means
// the thread has no product context and only matches other no-product threads.
// Because 0 is a sentinel and not a products row, the Product relation carries
// no foreign key constraint.
type Conversation struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	UserLowID  uint `gorm:"uniqueIndex:idx_pair_product;not null" json:"user_low_id"`
	UserHighID uint `gorm:"uniqueIndex:idx_pair_product;not null" json:"user_high_id"`
	ProductID  uint `gorm:"uniqueIndex:idx_pair_product;default:0" json:"product_id"`

	LastMessageID *uint `json:"last_message_id,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	UserLow     User     `gorm:"foreignKey:UserLowID" json:"user_low"`
	UserHigh    User     `gorm:"foreignKey:UserHighID" json:"user_high"`
	Product     *Product `gorm:"foreignKey:ProductID;constraint:-" json:"product,omitempty"`
	LastMessage *Message `gorm:"foreignKey:LastMessageID" json:"last_message,omitempty"`
}

// NormalizePair orders two user IDs for the unique participant-pair key.
func NormalizePair(a, b uint) (low, high uint) {
	if a < b {
		return a, b
	}
	return b, a
}

// HasParticipant reports whether the given user belongs to the conversation.
func (c *Conversation) HasParticipant(userID uint) bool {
	return c.UserLowID == userID || c.UserHighID == userID
}
