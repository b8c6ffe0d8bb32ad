package websocket

import (
	"context"
	"encoding/json"
	"time"

	ws "github.com/coder/websocket"
	"github.com/google/uuid"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

// Client represents a single WebSocket connection.
type Client struct {
	id    string
	hub   *Hub
	conn  *ws.Conn
	reg   Registration
	send  chan []byte
	rooms map[string]struct{} // guarded by hub.mu
}

// NewClient creates a Client for an admitted connection.
func NewClient(hub *Hub, conn *ws.Conn, reg Registration) *Client {
	return &Client{
		id:    uuid.NewString(),
		hub:   hub,
		conn:  conn,
		reg:   reg,
		send:  make(chan []byte, sendBufferSize),
		rooms: make(map[string]struct{}),
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) UserID() int64 { return c.reg.UserID }

func (r Registration) memberOf(householdID int64) bool {
	for _, id := range r.HouseholdIDs {
		if id == householdID {
			return true
		}
	}
	return false
}

// Run registers the client, starts the write pump, and runs the read pump.
// It blocks until the connection is closed, then unregisters.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
}

// command is a client-sent subscription frame.
type command struct {
	Action      string `json:"action"`
	ThreadID    int64  `json:"thread_id,omitempty"`
	HouseholdID int64  `json:"household_id,omitempty"`
}

// readPump handles join/leave frames until the connection closes.
func (c *Client) readPump(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		var cmd command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.hub.logger.Debug("ignoring malformed frame", "client_id", c.id, "error", err)
			continue
		}
		c.handle(ctx, cmd)
	}
}

func (c *Client) handle(ctx context.Context, cmd command) {
	switch {
	case cmd.Action == "join" && cmd.ThreadID != 0:
		if err := c.hub.JoinThread(ctx, c, cmd.ThreadID); err != nil {
			c.hub.logger.Warn("join thread rejected", "client_id", c.id, "thread_id", cmd.ThreadID, "error", err)
		}
	case cmd.Action == "leave" && cmd.ThreadID != 0:
		c.hub.LeaveThread(c, cmd.ThreadID)
	case cmd.Action == "join" && cmd.HouseholdID != 0:
		if c.reg.memberOf(cmd.HouseholdID) {
			c.hub.JoinHousehold(c, cmd.HouseholdID)
		}
	case cmd.Action == "leave" && cmd.HouseholdID != 0:
		c.hub.LeaveHousehold(c, cmd.HouseholdID)
	default:
		c.hub.logger.Debug("unknown frame", "client_id", c.id, "action", cmd.Action)
	}
}

// writePump drains the send channel and writes messages to the WebSocket.
// It also sends periodic pings to detect stale connections.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
