package handlers

import (
	"github.com/NIU1603490/eraswap-sub000/internal/ws"
	"github.com/NIU1603490/eraswap-sub000/services"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// ChatHandler exposes conversation discovery, message history and the
// websocket endpoint for realtime delivery.
type ChatHandler struct {
	Hub           *ws.Hub
	Conversations *services.ConversationService
	Messages      *services.MessageService
	Log           zerolog.Logger
}

func NewChatHandler(hub *ws.Hub, convs *services.ConversationService, msgs *services.MessageService, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		Hub:           hub,
		Conversations: convs,
		Messages:      msgs,
		Log:           logger,
	}
}

// WebSocketUpgradeMiddleware ensures the client is trying to upgrade to WebSocket
func (h *ChatHandler) WebSocketUpgradeMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler returns the websocket handler function
func (h *ChatHandler) Handler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("user_id").(uint)
		if !ok || userID == 0 {
			h.Log.Warn().Msg("Invalid or missing user ID in websocket connection")
			conn.Close()
			return
		}

		client := &ws.Client{
			Hub:      h.Hub,
			Conn:     conn,
			Send:     make(chan []byte, 256),
			UserID:   userID,
			Messages: h.Messages,
			Log:      h.Log,
		}

		client.Hub.Register <- client

		go client.WritePump()
		client.ReadPump()
	})
}

// InitConversationRequest defines the payload for opening a conversation
type InitConversationRequest struct {
	TargetUserID uint `json:"target_user_id"`
	ProductID    uint `json:"product_id"` // optional, 0 = no product context
}

// InitConversation - POST /api/conversations
// Returns the existing conversation for the pair and product, creating it
// on first contact.
func (h *ChatHandler) InitConversation(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var req InitConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}

	conv, err := h.Conversations.FindOrCreate(c.Context(), userID, req.TargetUserID, req.ProductID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"data": conv})
}

// ListConversations - GET /api/conversations
func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	userID := currentUserID(c)

	convs, err := h.Conversations.ListForUser(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"data": convs})
}

// SendMessageRequest defines the payload for posting a message over HTTP
type SendMessageRequest struct {
	ReceiverID uint   `json:"receiver_id"`
	Content    string `json:"content"`
	ProductID  uint   `json:"product_id"` // optional context snapshot
}

// SendMessage - POST /api/conversations/:id/messages
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	conversationID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation ID"})
	}
	userID := currentUserID(c)

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input"})
	}

	msg, err := h.Messages.Send(c.Context(), services.SendMessageInput{
		ConversationID: uint(conversationID),
		SenderID:       userID,
		ReceiverID:     req.ReceiverID,
		Content:        req.Content,
		ProductID:      req.ProductID,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": msg})
}

// ListMessages - GET /api/conversations/:id/messages
func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	conversationID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation ID"})
	}
	userID := currentUserID(c)

	// Participation check before exposing history.
	if _, err := h.Conversations.GetForParticipant(c.Context(), uint(conversationID), userID); err != nil {
		return respondError(c, err)
	}

	msgs, err := h.Messages.ListByConversation(c.Context(), uint(conversationID))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"messages": msgs})
}

// GetRoomStatus - GET /api/conversations/:id/status
// Reports who is currently joined to the conversation room and who is online.
func (h *ChatHandler) GetRoomStatus(c *fiber.Ctx) error {
	conversationID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation ID"})
	}
	userID := currentUserID(c)

	conv, err := h.Conversations.GetForParticipant(c.Context(), uint(conversationID), userID)
	if err != nil {
		return respondError(c, err)
	}

	inRoom := make(map[uint]bool)
	for _, uid := range h.Hub.UsersInRoom(conv.ID) {
		inRoom[uid] = true
	}

	type participantStatus struct {
		UserID   uint `json:"user_id"`
		InRoom   bool `json:"in_room"`
		IsOnline bool `json:"is_online"`
	}

	statuses := []participantStatus{
		{UserID: conv.UserLowID, InRoom: inRoom[conv.UserLowID], IsOnline: h.Hub.IsUserOnline(conv.UserLowID)},
		{UserID: conv.UserHighID, InRoom: inRoom[conv.UserHighID], IsOnline: h.Hub.IsUserOnline(conv.UserHighID)},
	}

	return c.JSON(fiber.Map{
		"conversation_id": conv.ID,
		"statuses":        statuses,
	})
}
