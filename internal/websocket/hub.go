package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukerupert/homebase/internal/auth"
	"github.com/dukerupert/homebase/internal/metrics"
	"github.com/dukerupert/homebase/internal/store"
)

// ErrForbidden is returned when a connection asks to join a room outside its
// households.
var ErrForbidden = errors.New("room not permitted")

// Broadcaster is the emit side of the hub, as used by handlers and jobs.
type Broadcaster interface {
	EmitToUser(event string, userID int64, payload any)
	EmitToHousehold(event string, householdID int64, payload any)
	EmitToThread(event string, threadID, householdID int64, payload any)
}

// Message is the frame delivered to clients.
type Message struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

func UserRoom(id int64) string      { return fmt.Sprintf("user:%d", id) }
func HouseholdRoom(id int64) string { return fmt.Sprintf("household:%d", id) }
func ThreadRoom(id int64) string    { return fmt.Sprintf("thread:%d", id) }

// Registration is the identity a connection was admitted with.
type Registration struct {
	UserID       int64
	Email        string
	HouseholdIDs []int64
}

// Hub maintains the set of active WebSocket clients and their room
// memberships. State is in-memory only.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]struct{}
	rooms    map[string]map[*Client]struct{}
	verifier auth.Verifier
	store    store.Store
	logger   *slog.Logger
}

var _ Broadcaster = (*Hub)(nil)

// NewHub creates a new Hub. st should be the soft-delete filtered store.
func NewHub(verifier auth.Verifier, st store.Store, logger *slog.Logger) *Hub {
	return &Hub{
		clients:  make(map[*Client]struct{}),
		rooms:    make(map[string]map[*Client]struct{}),
		verifier: verifier,
		store:    st,
		logger:   logger,
	}
}

func (h *Hub) mustInit() {
	if h == nil || h.rooms == nil {
		panic("websocket: hub used before NewHub")
	}
}

// RegisterConnection verifies token and resolves the user's active, accepted
// household memberships.
func (h *Hub) RegisterConnection(ctx context.Context, token string) (Registration, error) {
	h.mustInit()
	claims, err := h.verifier.Verify(token)
	if err != nil {
		return Registration{}, err
	}

	user, err := h.store.FindUnique(ctx, store.ModelUser, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return Registration{}, fmt.Errorf("%w: unknown user", auth.ErrUnauthorized)
	}
	if err != nil {
		return Registration{}, fmt.Errorf("load user: %w", err)
	}

	households, err := h.householdsFor(ctx, claims.UserID)
	if err != nil {
		return Registration{}, err
	}

	return Registration{
		UserID:       claims.UserID,
		Email:        user.String("email"),
		HouseholdIDs: households,
	}, nil
}

func (h *Hub) householdsFor(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := h.store.FindMany(ctx, store.ModelHouseholdMember, store.Query{Where: store.Where{
		"user_id":     userID,
		"is_active":   true,
		"is_accepted": true,
	}})
	if err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}

	ids := make([]any, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.Int64("household_id"))
	}
	live, err := h.store.FindMany(ctx, store.ModelHousehold, store.Query{Where: store.Where{"id": store.In(ids...)}})
	if err != nil {
		return nil, fmt.Errorf("load households: %w", err)
	}

	out := make([]int64, 0, len(live))
	for _, r := range live {
		out = append(out, r.Int64("id"))
	}
	return out, nil
}

// Register adds a client to the hub and joins its user and household rooms.
func (h *Hub) Register(c *Client) {
	h.mustInit()
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		metrics.WebSocketClients.Inc()
	}
	h.clients[c] = struct{}{}
	h.join(c, UserRoom(c.reg.UserID))
	for _, hid := range c.reg.HouseholdIDs {
		h.join(c, HouseholdRoom(hid))
	}
}

// Unregister removes a client from the hub and every room, and closes its
// send channel.
func (h *Hub) Unregister(c *Client) {
	h.mustInit()
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	for room := range c.rooms {
		h.leave(c, room)
	}
	delete(h.clients, c)
	close(c.send)
	metrics.WebSocketClients.Dec()
}

// Join adds c to room. Joining twice is a no-op.
func (h *Hub) Join(c *Client, room string) {
	h.mustInit()
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		h.join(c, room)
	}
}

// Leave removes c from room. Leaving a room c is not in is a no-op.
func (h *Hub) Leave(c *Client, room string) {
	h.mustInit()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leave(c, room)
}

func (h *Hub) JoinHousehold(c *Client, householdID int64) {
	h.Join(c, HouseholdRoom(householdID))
}

func (h *Hub) LeaveHousehold(c *Client, householdID int64) {
	h.Leave(c, HouseholdRoom(householdID))
}

// JoinThread subscribes c to a thread that belongs to one of its households.
func (h *Hub) JoinThread(ctx context.Context, c *Client, threadID int64) error {
	h.mustInit()
	row, err := h.store.FindUnique(ctx, store.ModelThread, threadID)
	if err != nil {
		return fmt.Errorf("load thread %d: %w", threadID, err)
	}
	if !c.reg.memberOf(row.Int64("household_id")) {
		return ErrForbidden
	}
	h.Join(c, ThreadRoom(threadID))
	return nil
}

func (h *Hub) LeaveThread(c *Client, threadID int64) {
	h.Leave(c, ThreadRoom(threadID))
}

// join and leave expect h.mu held.
func (h *Hub) join(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) leave(c *Client, room string) {
	delete(c.rooms, room)
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) EmitToUser(event string, userID int64, payload any) {
	h.emit(Message{Event: event, Payload: payload}, UserRoom(userID))
}

func (h *Hub) EmitToHousehold(event string, householdID int64, payload any) {
	h.emit(Message{Event: event, Payload: payload}, HouseholdRoom(householdID))
}

// EmitToThread reaches the thread room and the owning household room. A
// client in both receives the message once.
func (h *Hub) EmitToThread(event string, threadID, householdID int64, payload any) {
	h.emit(Message{Event: event, Payload: payload}, ThreadRoom(threadID), HouseholdRoom(householdID))
}

func (h *Hub) emit(msg Message, rooms ...string) {
	h.mustInit()
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "event", msg.Event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[*Client]struct{})
	for _, room := range rooms {
		for c := range h.rooms[room] {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			select {
			case c.send <- data:
			default:
				// Client buffer full, drop the message
				metrics.WebSocketDropped.Inc()
				h.logger.Warn("dropping message for slow client", "client_id", c.id, "event", msg.Event)
			}
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of clients joined to room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
