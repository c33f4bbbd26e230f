package handlers

import (
	"github.com/NIU1603490/eraswap-sub000/models"
	"github.com/NIU1603490/eraswap-sub000/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// TransactionHandler exposes the purchase flow: buy, confirm, cancel and
// mark-received all funnel through the transaction service, which is the
// single writer of product availability.
type TransactionHandler struct {
	Transactions  *services.TransactionService
	Conversations *services.ConversationService
	Messages      *services.MessageService
	Log           zerolog.Logger
}

func NewTransactionHandler(txns *services.TransactionService, convs *services.ConversationService, msgs *services.MessageService, logger zerolog.Logger) *TransactionHandler {
	return &TransactionHandler{
		Transactions:  txns,
		Conversations: convs,
		Messages:      msgs,
		Log:           logger,
	}
}

// CreateTransactionRequest defines the payload for starting a purchase
type CreateTransactionRequest struct {
	ProductID       uint   `json:"product_id"`
	SellerID        uint   `json:"seller_id"`
	PaymentMethod   string `json:"payment_method"`
	DeliveryMethod  string `json:"delivery_method"`
	MeetingDate     string `json:"meeting_date"`
	MeetingTime     string `json:"meeting_time"`
	MeetingLocation string `json:"meeting_location"`
	Message         string `json:"message"`
}

// CreateTransaction - POST /api/transactions
// Creates the pending transaction and, when the buyer attached a message,
// opens (or reuses) the buyer-seller conversation for the product and posts
// it there. The conversation step is best-effort: a failure never undoes
// the purchase.
func (h *TransactionHandler) CreateTransaction(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req CreateTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}

	txn, err := h.Transactions.Create(c.Context(), services.CreateTransactionInput{
		BuyerID:         userID,
		SellerID:        req.SellerID,
		ProductID:       req.ProductID,
		PaymentMethod:   req.PaymentMethod,
		DeliveryMethod:  req.DeliveryMethod,
		MeetingDate:     req.MeetingDate,
		MeetingTime:     req.MeetingTime,
		MeetingLocation: req.MeetingLocation,
		MessageToSeller: req.Message,
	})
	if err != nil {
		return respondError(c, err)
	}

	if req.Message != "" {
		h.deliverMessageToSeller(c, txn, req.Message)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Transaction created", "data": txn})
}

func (h *TransactionHandler) deliverMessageToSeller(c *fiber.Ctx, txn *models.Transaction, content string) {
	conv, err := h.Conversations.FindOrCreate(c.Context(), txn.BuyerID, txn.SellerID, txn.ProductID)
	if err != nil {
		h.Log.Warn().Err(err).Uint("transaction_id", txn.ID).Msg("Could not open conversation for purchase message")
		return
	}

	_, err = h.Messages.Send(c.Context(), services.SendMessageInput{
		ConversationID: conv.ID,
		SenderID:       txn.BuyerID,
		ReceiverID:     txn.SellerID,
		Content:        content,
		ProductID:      txn.ProductID,
	})
	if err != nil {
		h.Log.Warn().Err(err).Uint("transaction_id", txn.ID).Msg("Could not deliver purchase message")
	}
}

// UpdateStatusRequest defines the payload for a status transition
type UpdateStatusRequest struct {
	Status models.TransactionStatus `json:"status"`
}

// UpdateTransactionStatus - PATCH /api/transactions/:id/status
func (h *TransactionHandler) UpdateTransactionStatus(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}
	userID := currentUserID(c)

	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}

	txn, err := h.Transactions.Transition(c.Context(), uint(id), req.Status, userID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Transaction updated", "data": txn})
}

// ListTransactions - GET /api/transactions?role=buyer|seller
func (h *TransactionHandler) ListTransactions(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var (
		txns []models.Transaction
		err  error
	)
	switch role := c.Query("role", "buyer"); role {
	case "buyer":
		txns, err = h.Transactions.ListByBuyer(c.Context(), userID)
	case "seller":
		txns, err = h.Transactions.ListBySeller(c.Context(), userID)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "role must be 'buyer' or 'seller'"})
	}
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"data": txns})
}
