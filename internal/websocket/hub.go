// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"

	wstypes "calvino-service/internal/domain/websocket"
	authsvc "calvino-service/internal/service/auth"

	"go.uber.org/zap"
)

type Hub struct {
	// Registered clients by user ID
	clients map[int64]map[*Client]bool
	mu      sync.RWMutex

	// Registration/unregistration
	Register   chan *Client
	unregister chan *Client

	// Broadcasting
	broadcast chan *BroadcastMessage

	// Closed when Run returns
	done chan struct{}

	// Handler registry for modular message handling
	handlerRegistry *HandlerRegistry

	authService *authsvc.AuthService
	logger      *zap.Logger
}

type BroadcastMessage struct {
	UserIDs []int64
	// SessionID restricts delivery to clients connected with that session.
	SessionID string
	// Channel restricts delivery to subscribed clients; empty delivers to all.
	Channel wstypes.ChannelType
	Message *wstypes.WSMessage
	// Disconnect closes the matching clients once the message is queued.
	Disconnect bool
}

// Stats summarizes current connections.
type Stats struct {
	TotalConnections int `json:"total_connections"`
	ConnectedUsers   int `json:"connected_users"`
}

func NewHub(authService *authsvc.AuthService, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:         make(map[int64]map[*Client]bool),
		Register:        make(chan *Client),
		unregister:      make(chan *Client),
		broadcast:       make(chan *BroadcastMessage, 256),
		done:            make(chan struct{}),
		handlerRegistry: NewHandlerRegistry(),
		authService:     authService,
		logger:          logger,
	}
}

// AuthenticateClient resolves the token through the same guard used by HTTP routes.
// It returns ErrUnauthorized for a rejected token and the storage error when the
// token could not be checked.
func (h *Hub) AuthenticateClient(ctx context.Context, token string) (*ClientAuth, error) {
	guard := h.authService.NewGuard(token)
	user := guard.User(ctx)
	if err := guard.Err(ctx); err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnauthorized
	}

	auth := &ClientAuth{
		UserID: user.ID,
		Role:   user.Role,
		Email:  user.Email,
		Name:   user.Name,
	}
	if sess := guard.CurrentSession(ctx); sess != nil {
		auth.SessionID = sess.SessionID
	}
	return auth, nil
}

// RegisterHandler registers a message handler
func (h *Hub) RegisterHandler(handler MessageHandler) {
	h.handlerRegistry.Register(handler)
}

// HandleClientMessage processes a message from a client using registered handlers
func (h *Hub) HandleClientMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) (bool, error) {
	handler, exists := h.handlerRegistry.GetHandler(msg.Type)
	if !exists {
		return false, nil
	}
	return true, handler.HandleMessage(ctx, client, msg)
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.BroadcastMessage(msg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	if h.clients[client.userID] == nil {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true
	total := h.totalClients()
	h.mu.Unlock()

	// Session events are always wanted; other channels are opt-in.
	client.Subscribe(wstypes.ChannelSessions)

	h.logger.Info("websocket client connected",
		zap.Int64("user_id", client.userID),
		zap.String("session_id", client.sessionID),
		zap.Int("total", total),
	)

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, map[string]interface{}{
		"user_id":    client.userID,
		"session_id": client.sessionID,
		"role":       client.role,
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}

	delete(clients, client)
	client.Close()
	if len(clients) == 0 {
		delete(h.clients, client.userID)
	}

	h.logger.Info("websocket client disconnected",
		zap.Int64("user_id", client.userID),
		zap.String("session_id", client.sessionID),
		zap.Int("total", h.totalClients()),
	)
}

// BroadcastMessage delivers msg to every matching client. Delivery runs on the
// hub goroutine; callers outside it should use enqueue.
func (h *Hub) BroadcastMessage(msg *BroadcastMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var targets []*Client
	if msg.UserIDs == nil {
		for _, clients := range h.clients {
			for client := range clients {
				targets = append(targets, client)
			}
		}
	} else {
		for _, userID := range msg.UserIDs {
			for client := range h.clients[userID] {
				targets = append(targets, client)
			}
		}
	}

	for _, client := range targets {
		if msg.SessionID != "" && client.sessionID != msg.SessionID {
			continue
		}
		if msg.Channel != "" && !client.IsSubscribed(msg.Channel) {
			continue
		}
		client.SendMessage(msg.Message)
		if msg.Disconnect {
			h.removeLocked(client)
		}
	}
}

func (h *Hub) enqueue(msg *BroadcastMessage) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping message",
			zap.String("type", string(msg.Message.Type)))
	}
}

func (h *Hub) GetConnectedClients(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Stats{TotalConnections: h.totalClients(), ConnectedUsers: len(h.clients)}
}

// ForceLogout tells the clients connected with sessionID that they were signed
// out and disconnects them. An empty sessionID targets all of the user's clients.
func (h *Hub) ForceLogout(userID int64, sessionID string, reason string) {
	msg := wstypes.NewMessage(wstypes.EventTypeForceLogout, wstypes.SessionEventData{
		SessionID: sessionID,
		Reason:    reason,
		Message:   "You have been logged out",
	})
	h.enqueue(&BroadcastMessage{
		UserIDs:    []int64{userID},
		SessionID:  sessionID,
		Message:    msg,
		Disconnect: true,
	})
}

// SessionRevoked force-logs-out the revoked session and lets the user's other
// connections know so they can refresh their session list.
func (h *Hub) SessionRevoked(userID int64, sessionID, reason string) {
	h.ForceLogout(userID, sessionID, reason)
	if sessionID == "" {
		return
	}
	h.enqueue(&BroadcastMessage{
		UserIDs: []int64{userID},
		Channel: wstypes.ChannelSessions,
		Message: wstypes.NewMessage(wstypes.EventTypeSessionRevoked, wstypes.SessionEventData{
			SessionID: sessionID,
			Reason:    reason,
			Message:   "A session was signed out",
		}),
	})
}

// IsUserConnected checks if a user has any active connections
func (h *Hub) IsUserConnected(userID int64) bool {
	return h.GetConnectedClients(userID) > 0
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

// shutdown warns clients subscribed to the system channel, then closes every
// connection.
func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	notice := wstypes.NewMessage(wstypes.EventTypeDisconnected, wstypes.SystemEventData{
		Reason:  "shutdown",
		Message: "Server is shutting down",
	})
	for _, clients := range h.clients {
		for client := range clients {
			if client.IsSubscribed(wstypes.ChannelSystem) {
				client.SendMessage(notice)
			}
			client.Close()
		}
	}
	h.clients = make(map[int64]map[*Client]bool)
}
