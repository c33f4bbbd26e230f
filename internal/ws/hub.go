package ws

import (
	"sync"

	"github.com/rs/zerolog"
)

// Hub maintains the set of active clients and the rooms they have joined.
// Rooms are keyed by conversation ID; publishing to a room reaches every
// currently-joined connection and nothing else. There is no persistence or
// replay: a client that joins after a publish never sees it and must rely
// on the message history endpoint.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	// Room membership, keyed by conversation ID.
	rooms map[uint]map[*Client]bool

	// Connections per user, for presence checks.
	userClients map[uint][]*Client

	mutex sync.Mutex
	log   zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		Register:    make(chan *Client),
		Unregister:  make(chan *Client),
		clients:     make(map[*Client]bool),
		rooms:       make(map[uint]map[*Client]bool),
		userClients: make(map[uint][]*Client),
		log:         logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mutex.Lock()
	h.clients[client] = true
	h.userClients[client.UserID] = append(h.userClients[client.UserID], client)
	count := len(h.userClients[client.UserID])
	h.mutex.Unlock()

	h.log.Info().Uint("user_id", client.UserID).Int("connections", count).Msg("Client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.dropClient(client)
}

// dropClient removes a connection from every structure it appears in and
// closes its Send channel exactly once. Every path that ends a connection
// (unregister, slow-consumer drop) must come through here: a partially
// removed client left in a room would receive a send on a closed channel.
// Callers must hold h.mutex.
func (h *Hub) dropClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)

	for roomID, members := range h.rooms {
		if members[client] {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}

	conns := h.userClients[client.UserID]
	for i, conn := range conns {
		if conn == client {
			h.userClients[client.UserID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.userClients[client.UserID]) == 0 {
		delete(h.userClients, client.UserID)
		h.log.Info().Uint("user_id", client.UserID).Msg("Client disconnected (offline)")
	}
}

// JoinRoom subscribes a connection to a conversation room.
func (h *Hub) JoinRoom(client *Client, roomID uint) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
}

// LeaveRoom unsubscribes a connection from a conversation room.
func (h *Hub) LeaveRoom(client *Client, roomID uint) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if members, ok := h.rooms[roomID]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// PublishToRoom delivers a payload to every connection currently joined to
// the room. Within a single process, delivery order matches publish order.
// A slow consumer is dropped rather than blocking the publisher.
func (h *Hub) PublishToRoom(roomID uint, payload []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	var slow []*Client
	for client := range h.rooms[roomID] {
		select {
		case client.Send <- payload:
		default:
			slow = append(slow, client)
		}
	}
	for _, client := range slow {
		h.log.Warn().Uint("user_id", client.UserID).Uint("room_id", roomID).Msg("Dropping slow consumer")
		h.dropClient(client)
	}
}

// SendToUser delivers a payload to all of a user's active connections.
func (h *Hub) SendToUser(userID uint, payload []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	var slow []*Client
	for _, client := range h.userClients[userID] {
		select {
		case client.Send <- payload:
		default:
			slow = append(slow, client)
		}
	}
	for _, client := range slow {
		h.log.Warn().Uint("user_id", client.UserID).Msg("Dropping slow consumer")
		h.dropClient(client)
	}
}

// UsersInRoom returns the IDs of users with at least one connection joined
// to the room.
func (h *Hub) UsersInRoom(roomID uint) []uint {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	seen := make(map[uint]bool)
	var users []uint
	for client := range h.rooms[roomID] {
		if !seen[client.UserID] {
			seen[client.UserID] = true
			users = append(users, client.UserID)
		}
	}
	return users
}

// IsUserOnline reports whether the user has any active connection.
func (h *Hub) IsUserOnline(userID uint) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return len(h.userClients[userID]) > 0
}
