package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"ameenhub/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// EventPermissionsChanged tells admin panels to re-fetch /me.
const EventPermissionsChanged = "permissions.changed"

const (
	scopeUser    = "user"
	checkTimeout = 5 * time.Second
)

// userEventReaders may see changes to other users' access.
var userEventReaders = []string{"users.view", "users.manage_access"}

// Authorizer answers permission questions for connected users.
type Authorizer interface {
	HasPermission(ctx context.Context, userID, code string) (bool, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by CORS on the HTTP API; the socket itself requires a token
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event is the JSON frame pushed to every connected client.
type Event struct {
	Type  string `json:"type"`
	Scope string `json:"scope"`
	ID    string `json:"id"`
}

// Client represents a single connected WebSocket client
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan Event
	UserID string
	authz  Authorizer
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex
	logger     *zap.Logger
}

// NewHub initializes a new WS Hub instance
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		broadcast:  make(chan Event, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		logger:     logger.Named("ws"),
	}
}

// Run starts the core dispatch loop for WebSocket events. It returns when
// ctx is cancelled, closing every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client connected", zap.String("user_id", client.UserID))
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.logger.Debug("client disconnected", zap.String("user_id", client.UserID))
			}
			h.mu.Unlock()
		case event := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- event:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// PermissionsChanged broadcasts a change notice. It never blocks the caller:
// when the queue is full the notice is dropped. User-scoped notices reach
// only that user and staff allowed to view users; role notices reach every
// client since any of them may hold the role.
func (h *Hub) PermissionsChanged(scope, id string) {
	select {
	case h.broadcast <- Event{Type: EventPermissionsChanged, Scope: scope, ID: id}:
	default:
		h.logger.Warn("broadcast queue full, dropping event",
			zap.String("scope", scope), zap.String("id", id))
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for event := range c.Send {
		if !c.canSee(event) {
			continue
		}
		if err := c.Conn.WriteJSON(event); err != nil {
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// canSee fails closed: a lookup error hides the event.
func (c *Client) canSee(event Event) bool {
	if event.Scope != scopeUser || event.ID == c.UserID {
		return true
	}
	if c.authz == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()
	for _, code := range userEventReaders {
		ok, err := c.authz.HasPermission(ctx, c.UserID, code)
		if err != nil {
			c.Hub.logger.Warn("permission check failed, event hidden",
				zap.String("user_id", c.UserID), zap.Error(err))
			return false
		}
		if ok {
			return true
		}
	}
	return false
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		_ = c.Conn.Close()
	}()
	for {
		// Inbound frames are ignored; reading detects the close
		_, _, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("unexpected close", zap.Error(err))
			}
			break
		}
	}
}

// ServeWs upgrades authenticated requests. The access token travels in the
// token query parameter since browsers cannot set headers on a socket.
// authz decides which user-scoped events each client receives.
func (h *Hub) ServeWs(tokens *auth.TokenManager, authz Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if tokenString == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			h.logger.Debug("connection rejected", zap.Error(err))
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.Warn("upgrade failed", zap.Error(err))
			return
		}
		client := &Client{Hub: h, Conn: conn, Send: make(chan Event, 256), UserID: claims.Subject, authz: authz}
		select {
		case h.register <- client:
		case <-h.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}
