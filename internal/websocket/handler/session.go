// internal/websocket/handler/session.go
package handler

import (
	"context"
	"fmt"

	"calvino-service/internal/domain/auth"
	wstypes "calvino-service/internal/domain/websocket"
	ws "calvino-service/internal/websocket"
)

// SessionStore is the part of the auth service the socket handler needs.
type SessionStore interface {
	SessionsOf(ctx context.Context, userID int64, currentSessionID string) ([]auth.SessionView, error)
	RevokeOtherSessions(ctx context.Context, userID int64, currentSessionID, ip, userAgent string) (int64, error)
}

// SessionHandler lets a connected client list its sessions and sign out the others.
type SessionHandler struct {
	sessions SessionStore
}

func NewSessionHandler(sessions SessionStore) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func (h *SessionHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{
		wstypes.EventTypeSessionList,
		wstypes.EventTypeSessionLogoutOthers,
	}
}

func (h *SessionHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	switch msg.Type {
	case wstypes.EventTypeSessionList:
		return h.handleList(ctx, client)
	case wstypes.EventTypeSessionLogoutOthers:
		return h.handleLogoutOthers(ctx, client)
	default:
		return fmt.Errorf("unsupported event type: %s", msg.Type)
	}
}

func (h *SessionHandler) handleList(ctx context.Context, client *ws.Client) error {
	views, err := h.sessions.SessionsOf(ctx, client.GetUserID(), client.GetSessionID())
	if err != nil {
		return err
	}

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeSessionList, map[string]interface{}{
		"sessions": views,
		"count":    len(views),
	}))
	return nil
}

func (h *SessionHandler) handleLogoutOthers(ctx context.Context, client *ws.Client) error {
	if client.GetSessionID() == "" {
		return fmt.Errorf("connection is not bound to a session")
	}

	n, err := h.sessions.RevokeOtherSessions(ctx, client.GetUserID(), client.GetSessionID(),
		client.GetIPAddress(), client.GetUserAgent())
	if err != nil {
		return err
	}

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeSessionLogoutOthers, auth.LogoutOthersResponse{Revoked: n}))
	return nil
}
