package models

import "time"

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionConfirmed TransactionStatus = "confirmed"
	TransactionCompleted TransactionStatus = "completed"
	TransactionCanceled  TransactionStatus = "canceled"
)

const (
	PaymentCash   = "cash"
	PaymentOnline = "online"

	DeliveryInPerson = "in_person"
	DeliveryShipping = "delivery"
)

// legalTransitions is the allowed-edge table of the purchase state machine.
// Completed and canceled are terminal.
var legalTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionPending:   {TransactionConfirmed, TransactionCanceled},
	TransactionConfirmed: {TransactionCompleted, TransactionCanceled},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to TransactionStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// DerivedProductStatus maps a transaction status to the product status it
// implies. The empty string means the product is left untouched.
func DerivedProductStatus(s TransactionStatus) ProductStatus {
	switch s {
	case TransactionConfirmed:
		return ProductReserved
	case TransactionCompleted:
		return ProductSold
	case TransactionCanceled:
		return ProductAvailable
	}
	return ""
}

// IsTerminal reports whether a transaction status admits no further transitions.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionCompleted || s == TransactionCanceled
}

// IsActive reports whether the transaction still reserves its product.
func (s TransactionStatus) IsActive() bool {
	return s == TransactionPending || s == TransactionConfirmed
}

type Transaction struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	BuyerID   uint `gorm:"index;not null" json:"buyer_id"`
	SellerID  uint `gorm:"index;not null" json:"seller_id"`
	ProductID uint `gorm:"index;not null" json:"product_id"`

	// Price snapshot copied from the product at creation, not live-linked.
	Price    float64 `gorm:"not null" json:"price"`
	Currency string  `gorm:"size:3" json:"currency"`

	Status         TransactionStatus `gorm:"size:20;default:'pending';index" json:"status"`
	PaymentMethod  string            `gorm:"size:20;not null" json:"payment_method"`  // cash, online
	DeliveryMethod string            `gorm:"size:20;not null" json:"delivery_method"` // in_person, delivery

	// Meeting metadata, required only for in-person delivery.
	MeetingDate     string `gorm:"size:20" json:"meeting_date,omitempty"`
	MeetingTime     string `gorm:"size:20" json:"meeting_time,omitempty"`
	MeetingLocation string `gorm:"size:255" json:"meeting_location,omitempty"`

	MessageToSeller string `gorm:"type:text" json:"message_to_seller,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Buyer   User    `gorm:"foreignKey:BuyerID" json:"buyer"`
	Seller  User    `gorm:"foreignKey:SellerID" json:"seller"`
	Product Product `gorm:"foreignKey:ProductID" json:"product"`
}
