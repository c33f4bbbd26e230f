package models

import "time"

// Message belongs to a conversation and is immutable once created.
type Message struct {
	ID             uint `gorm:"primaryKey" json:"id"`
	ConversationID uint `gorm:"index;not null" json:"conversation_id"`
	SenderID       uint `gorm:"index;not null" json:"sender_id"`
	ReceiverID     uint `gorm:"index;not null" json:"receiver_id"`

	Content   string `gorm:"type:text;not null" json:"content"`
	ProductID uint   `gorm:"index;default:0" json:"product_id,omitempty"` // context snapshot, 0 = none, no FK
	IsRead    bool   `gorm:"default:false" json:"is_read"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`

	// Relations
	Sender   User     `gorm:"foreignKey:SenderID" json:"sender"`
	Receiver User     `gorm:"foreignKey:ReceiverID" json:"receiver"`
	Product  *Product `gorm:"foreignKey:ProductID;constraint:-" json:"product,omitempty"`
}
