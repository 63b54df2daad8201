package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tabtimer/internal/core/countdown"
	"tabtimer/internal/core/notify"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 32
)

// ErrClientGone indicates the surface disconnected before replying.
var ErrClientGone = errors.New("client disconnected")

// CommandHandler answers commands received over the websocket.
type CommandHandler func(ctx context.Context, envelope Envelope) (any, error)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			return true
		}
		host := strings.TrimSpace(r.Host)
		return strings.Contains(origin, "://"+host) ||
			strings.Contains(origin, "://127.0.0.1") ||
			strings.Contains(origin, "://localhost")
	},
}

// Hub tracks websocket clients. Content clients that announced themselves
// are the sound surfaces of the notification chain.
type Hub struct {
	mu       sync.Mutex
	clients  map[string]*client
	activeID string
	pending  map[string]chan Envelope
	handler  CommandHandler
	closed   bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*client),
		pending: make(map[string]chan Envelope),
	}
}

// SetHandler installs the command handler.
func (hub *Hub) SetHandler(handler CommandHandler) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.handler = handler
}

// ServeWS upgrades the request and serves the client until it disconnects.
func (hub *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("bridge: websocket upgrade: %v", err)
		return
	}

	role := r.URL.Query().Get("role")
	if role != RoleContent {
		role = RolePopup
	}
	c := &client{
		id:   uuid.NewString(),
		role: role,
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	if !hub.register(c) {
		_ = conn.Close()
		return
	}

	go c.writePump()
	c.readPump(r.Context())
}

// Pump broadcasts engine events until ctx ends or events closes.
func (hub *Hub) Pump(ctx context.Context, events <-chan countdown.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			envelope, err := eventEnvelope(event)
			if err != nil {
				log.Printf("bridge: encode %s: %v", event.Type, err)
				continue
			}
			hub.Broadcast(envelope)
		}
	}
}

// Broadcast sends envelope to every client. Clients whose buffers are full
// miss the message.
func (hub *Hub) Broadcast(envelope Envelope) {
	raw, err := json.Marshal(envelope)
	if err != nil {
		log.Printf("bridge: encode broadcast: %v", err)
		return
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()
	for _, c := range hub.clients {
		c.enqueue(raw)
	}
}

// Known returns the content surfaces that announced themselves.
func (hub *Hub) Known() []notify.Surface {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	surfaces := make([]notify.Surface, 0, len(hub.clients))
	for _, c := range hub.clients {
		if c.announced {
			surfaces = append(surfaces, c)
		}
	}
	return surfaces
}

// Active returns the most recently active content surface.
func (hub *Hub) Active() (notify.Surface, bool) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	c, ok := hub.clients[hub.activeID]
	if !ok || c.role != RoleContent {
		return nil, false
	}
	return c, true
}

// Forget drops id from the announced set. The connection stays open.
func (hub *Hub) Forget(id string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	if c, ok := hub.clients[id]; ok {
		c.announced = false
	}
	if hub.activeID == id {
		hub.activeID = ""
	}
}

// Clients returns the number of connected clients.
func (hub *Hub) Clients() int {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return len(hub.clients)
}

// Close disconnects every client.
func (hub *Hub) Close() {
	hub.mu.Lock()
	hub.closed = true
	clients := make([]*client, 0, len(hub.clients))
	for _, c := range hub.clients {
		clients = append(clients, c)
	}
	hub.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.Close()
	}
}

func (hub *Hub) register(c *client) bool {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if hub.closed {
		return false
	}
	hub.clients[c.id] = c
	if c.role == RoleContent {
		hub.activeID = c.id
	}
	return true
}

func (hub *Hub) unregister(c *client) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if _, ok := hub.clients[c.id]; !ok {
		return
	}
	delete(hub.clients, c.id)
	close(c.done)
	if hub.activeID == c.id {
		hub.activeID = ""
	}
}

func (hub *Hub) announce(c *client) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	c.announced = true
	hub.activeID = c.id
}

func (hub *Hub) expect(id string) chan Envelope {
	ch := make(chan Envelope, 1)
	hub.mu.Lock()
	hub.pending[id] = ch
	hub.mu.Unlock()
	return ch
}

func (hub *Hub) abandon(id string) {
	hub.mu.Lock()
	delete(hub.pending, id)
	hub.mu.Unlock()
}

func (hub *Hub) resolve(envelope Envelope) {
	hub.mu.Lock()
	ch, ok := hub.pending[envelope.ID]
	delete(hub.pending, envelope.ID)
	hub.mu.Unlock()
	if ok {
		ch <- envelope
	}
}

func (hub *Hub) commandHandler() CommandHandler {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return hub.handler
}

type client struct {
	id        string
	role      string
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	announced bool
}

func (c *client) ID() string { return c.id }

// PlaySound sends PLAY_SOUND and waits for the matching reply.
func (c *client) PlaySound(ctx context.Context, request notify.Request) error {
	id := uuid.NewString()
	envelope, err := NewEnvelope(id, MsgPlaySound, PlaySoundRequest{SoundPath: request.SoundPath, Volume: request.Volume})
	if err != nil {
		return err
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	replies := c.hub.expect(id)
	defer c.hub.abandon(id)

	c.hub.mu.Lock()
	queued := c.enqueue(raw)
	c.hub.mu.Unlock()
	if !queued {
		return fmt.Errorf("surface %s: send buffer full", c.id)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClientGone
	case reply := <-replies:
		var result Reply
		if err := json.Unmarshal(reply.Payload, &result); err != nil {
			return fmt.Errorf("decode play reply: %w", err)
		}
		if !result.Success {
			if result.Error == "" {
				result.Error = "playback refused"
			}
			return errors.New(result.Error)
		}
		return nil
	}
}

// enqueue requires hub.mu.
func (c *client) enqueue(raw []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- raw:
		return true
	default:
		return false
	}
}

func (c *client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(64 * 1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var envelope Envelope
		if err := c.conn.ReadJSON(&envelope); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("bridge: client %s: %v", c.id, err)
			}
			return
		}
		c.handle(ctx, envelope)
	}
}

func (c *client) handle(ctx context.Context, envelope Envelope) {
	switch envelope.Type {
	case MsgResponse:
		c.hub.resolve(envelope)
	case MsgContentScriptLoad:
		c.hub.announce(c)
	case MsgContentScriptCheck:
		c.reply(envelope.ID, AliveReply{Alive: true})
	default:
		handler := c.hub.commandHandler()
		if handler == nil {
			c.reply(envelope.ID, Reply{Error: "no handler"})
			return
		}
		result, err := handler(ctx, envelope)
		if err != nil {
			c.reply(envelope.ID, Reply{Error: err.Error()})
			return
		}
		c.reply(envelope.ID, result)
	}
}

func (c *client) reply(id string, payload any) {
	if id == "" {
		return
	}
	envelope, err := NewEnvelope(id, MsgResponse, payload)
	if err != nil {
		log.Printf("bridge: encode reply: %v", err)
		return
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		log.Printf("bridge: encode reply: %v", err)
		return
	}
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if !c.enqueue(raw) {
		log.Printf("bridge: client %s: reply dropped", c.id)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case raw := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
