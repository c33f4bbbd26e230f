package services

import (
	"context"
	"errors"

	"github.com/NIU1603490/eraswap-sub000/internal/apperr"
	"github.com/NIU1603490/eraswap-sub000/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// EventPublisher is the sink for domain events. Publishing is best-effort:
// a failure is logged and never propagated to the caller.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event interface{}) error
}

// TransactionService drives the purchase state machine and keeps the
// product's availability in lock-step with its most advanced transaction.
// It is the only writer allowed to change a product's status as a side
// effect of a transaction.
type TransactionService struct {
	db     *gorm.DB
	events EventPublisher // may be nil
	log    zerolog.Logger
}

func NewTransactionService(db *gorm.DB, events EventPublisher, logger zerolog.Logger) *TransactionService {
	return &TransactionService{db: db, events: events, log: logger}
}

type CreateTransactionInput struct {
	BuyerID   uint
	SellerID  uint
	ProductID uint

	PaymentMethod  string // cash, online
	DeliveryMethod string // in_person, delivery

	MeetingDate     string
	MeetingTime     string
	MeetingLocation string

	MessageToSeller string
}

func (in *CreateTransactionInput) validate() error {
	switch {
	case in.BuyerID == 0:
		return apperr.Validation("buyer is required")
	case in.SellerID == 0:
		return apperr.Validation("seller is required")
	case in.ProductID == 0:
		return apperr.Validation("product is required")
	case in.BuyerID == in.SellerID:
		return apperr.Validation("buyer and seller must be different users")
	}

	switch in.PaymentMethod {
	case models.PaymentCash, models.PaymentOnline:
	default:
		return apperr.Validation("payment_method must be %q or %q", models.PaymentCash, models.PaymentOnline)
	}

	switch in.DeliveryMethod {
	case models.DeliveryInPerson:
		if in.MeetingDate == "" || in.MeetingTime == "" || in.MeetingLocation == "" {
			return apperr.Validation("meeting date, time and location are required for in-person delivery")
		}
	case models.DeliveryShipping:
	default:
		return apperr.Validation("delivery_method must be %q or %q", models.DeliveryInPerson, models.DeliveryShipping)
	}

	return nil
}

// Create persists a new pending transaction and reserves its product. Both
// writes run in one database transaction; the reservation is a conditional
// update (available -> reserved) so a concurrent buyer loses with a
// ConflictError instead of double-reserving the product.
func (s *TransactionService) Create(ctx context.Context, in CreateTransactionInput) (*models.Transaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var buyer, seller models.User
	if err := s.db.WithContext(ctx).First(&buyer, in.BuyerID).Error; err != nil {
		return nil, asNotFound(err, "buyer", in.BuyerID)
	}
	if err := s.db.WithContext(ctx).First(&seller, in.SellerID).Error; err != nil {
		return nil, asNotFound(err, "seller", in.SellerID)
	}

	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, in.ProductID).Error; err != nil {
		return nil, asNotFound(err, "product", in.ProductID)
	}
	if product.SellerID != in.SellerID {
		return nil, apperr.Validation("seller does not own product %d", in.ProductID)
	}
	if product.SellerID == in.BuyerID {
		return nil, apperr.Validation("cannot buy your own product")
	}

	txn := models.Transaction{
		BuyerID:         in.BuyerID,
		SellerID:        in.SellerID,
		ProductID:       in.ProductID,
		Price:           product.Price,
		Currency:        product.Currency,
		Status:          models.TransactionPending,
		PaymentMethod:   in.PaymentMethod,
		DeliveryMethod:  in.DeliveryMethod,
		MeetingDate:     in.MeetingDate,
		MeetingTime:     in.MeetingTime,
		MeetingLocation: in.MeetingLocation,
		MessageToSeller: in.MessageToSeller,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&txn).Error; err != nil {
			return err
		}

		// Reserve only if still available; losing the race rolls the
		// whole creation back.
		res := tx.Model(&models.Product{}).
			Where("id = ? AND status = ?", in.ProductID, models.ProductAvailable).
			Update("status", models.ProductReserved)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("product %d is no longer available", in.ProductID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "transaction.created", transactionEvent(&txn))
	s.publish(ctx, "product.status.changed", productStatusEvent(in.ProductID, models.ProductReserved))

	return &txn, nil
}

// Transition moves a transaction along the state machine and updates the
// product's derived status in the same database transaction. Illegal edges
// are rejected; actor authorization follows the purchase flow: the seller
// confirms, the buyer marks received, either party cancels.
func (s *TransactionService) Transition(ctx context.Context, transactionID uint, next models.TransactionStatus, actorID uint) (*models.Transaction, error) {
	switch next {
	case models.TransactionConfirmed, models.TransactionCompleted, models.TransactionCanceled:
	default:
		return nil, apperr.Validation("unknown transaction status %q", next)
	}

	var txn models.Transaction
	if err := s.db.WithContext(ctx).First(&txn, transactionID).Error; err != nil {
		return nil, asNotFound(err, "transaction", transactionID)
	}

	if !models.CanTransition(txn.Status, next) {
		return nil, apperr.Validation("cannot move transaction from %q to %q", txn.Status, next)
	}

	if err := authorizeTransition(&txn, next, actorID); err != nil {
		return nil, err
	}

	derived := models.DerivedProductStatus(next)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Transaction{}).
			Where("id = ? AND status = ?", txn.ID, txn.Status).
			Update("status", next)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Another caller moved the transaction first.
			return apperr.Conflict("transaction %d changed concurrently", txn.ID)
		}

		if derived != "" {
			if err := tx.Model(&models.Product{}).
				Where("id = ?", txn.ProductID).
				Update("status", derived).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	txn.Status = next
	s.publish(ctx, "transaction.status.changed", transactionEvent(&txn))
	if derived != "" {
		s.publish(ctx, "product.status.changed", productStatusEvent(txn.ProductID, derived))
	}

	return &txn, nil
}

// ListByBuyer returns the user's purchases, newest first, with product and
// counterpart summaries attached.
func (s *TransactionService) ListByBuyer(ctx context.Context, userID uint) ([]models.Transaction, error) {
	return s.list(ctx, "buyer_id = ?", userID)
}

// ListBySeller returns the user's sales, newest first.
func (s *TransactionService) ListBySeller(ctx context.Context, userID uint) ([]models.Transaction, error) {
	return s.list(ctx, "seller_id = ?", userID)
}

func (s *TransactionService) list(ctx context.Context, cond string, userID uint) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := s.db.WithContext(ctx).
		Preload("Buyer").
		Preload("Seller").
		Preload("Product").
		Where(cond, userID).
		Order("created_at DESC").
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

func authorizeTransition(txn *models.Transaction, next models.TransactionStatus, actorID uint) error {
	switch next {
	case models.TransactionConfirmed:
		if actorID != txn.SellerID {
			return apperr.Forbidden("only the seller can confirm a transaction")
		}
	case models.TransactionCompleted:
		if actorID != txn.BuyerID {
			return apperr.Forbidden("only the buyer can mark a transaction as received")
		}
	case models.TransactionCanceled:
		if actorID != txn.BuyerID && actorID != txn.SellerID {
			return apperr.Forbidden("only a participant can cancel a transaction")
		}
	}
	return nil
}

func (s *TransactionService) publish(ctx context.Context, routingKey string, event interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, routingKey, event); err != nil {
		s.log.Warn().Err(apperr.Dependency("publish "+routingKey, err)).Msg("Domain event publish failed")
	}
}

func transactionEvent(txn *models.Transaction) map[string]interface{} {
	return map[string]interface{}{
		"transaction_id": txn.ID,
		"product_id":     txn.ProductID,
		"buyer_id":       txn.BuyerID,
		"seller_id":      txn.SellerID,
		"status":         txn.Status,
	}
}

func productStatusEvent(productID uint, status models.ProductStatus) map[string]interface{} {
	return map[string]interface{}{
		"product_id": productID,
		"status":     status,
	}
}

func asNotFound(err error, entity string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(entity, id)
	}
	return err
}
