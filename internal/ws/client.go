package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/NIU1603490/eraswap-sub000/models"
	"github.com/NIU1603490/eraswap-sub000/services"

	"github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// MessageSender persists and fans out a chat message. Implemented by
// services.MessageService.
type MessageSender interface {
	Send(ctx context.Context, in services.SendMessageInput) (*models.Message, error)
}

// Client is a middleman between a websocket connection and the hub.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan []byte

	// User ID derived from authentication.
	UserID uint

	// Messages pipeline for inbound chat events.
	Messages MessageSender

	Log zerolog.Logger
}

// inboundEvent is what connected clients send over the socket.
type inboundEvent struct {
	Type           string `json:"type"` // join_room, leave_room, chat
	ConversationID uint   `json:"conversation_id,omitempty"`
	ReceiverID     uint   `json:"receiver_id,omitempty"`
	Content        string `json:"content,omitempty"`
	ProductID      uint   `json:"product_id,omitempty"`
}

// ReadPump pumps messages from the websocket connection to the hub.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Log.Warn().Err(err).Uint("user_id", c.UserID).Msg("Websocket read error")
			}
			break
		}

		c.handleEvent(message)
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket frame.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleEvent(raw []byte) {
	var ev inboundEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		c.Log.Warn().Err(err).Uint("user_id", c.UserID).Msg("Malformed websocket event")
		return
	}

	switch ev.Type {
	case "join_room":
		if ev.ConversationID == 0 {
			c.sendError("conversation_id is required to join a room")
			return
		}
		c.Hub.JoinRoom(c, ev.ConversationID)
		c.Log.Debug().Uint("user_id", c.UserID).Uint("room", ev.ConversationID).Msg("Joined room")

	case "leave_room":
		if ev.ConversationID != 0 {
			c.Hub.LeaveRoom(c, ev.ConversationID)
		}

	case "chat":
		c.processChat(&ev)

	default:
		c.sendError("unknown event type")
	}
}

// processChat routes an inbound chat event through the message pipeline.
// Persistence, the last-message bump and the room broadcast all happen
// inside the pipeline; this client receives the broadcast like any other
// room member.
func (c *Client) processChat(ev *inboundEvent) {
	if c.Messages == nil {
		c.sendError("messaging is unavailable")
		return
	}

	_, err := c.Messages.Send(context.Background(), services.SendMessageInput{
		ConversationID: ev.ConversationID,
		SenderID:       c.UserID,
		ReceiverID:     ev.ReceiverID,
		Content:        ev.Content,
		ProductID:      ev.ProductID,
	})
	if err != nil {
		c.Log.Warn().Err(err).Uint("user_id", c.UserID).Msg("Chat message rejected")
		c.sendError(err.Error())
	}
}

func (c *Client) sendError(reason string) {
	payload, _ := json.Marshal(map[string]interface{}{
		"type":  "error",
		"error": reason,
	})
	select {
	case c.Send <- payload:
	default:
	}
}
