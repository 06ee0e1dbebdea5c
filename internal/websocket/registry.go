// internal/websocket/registry.go
package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	wstypes "calvino-service/internal/domain/websocket"
)

// MessageHandler serves a group of client-initiated events.
type MessageHandler interface {
	HandleMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) error
	SupportedEvents() []wstypes.EventType
}

// HandlerRegistry maps event types to their handler. Each event type may only be
// claimed once.
type HandlerRegistry struct {
	handlers map[wstypes.EventType]MessageHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[wstypes.EventType]MessageHandler)}
}

func (r *HandlerRegistry) Register(handler MessageHandler) {
	for _, eventType := range handler.SupportedEvents() {
		if _, taken := r.handlers[eventType]; taken {
			panic(fmt.Sprintf("websocket: event %q already has a handler", eventType))
		}
		r.handlers[eventType] = handler
	}
}

func (r *HandlerRegistry) GetHandler(eventType wstypes.EventType) (MessageHandler, bool) {
	handler, exists := r.handlers[eventType]
	return handler, exists
}

// DecodeData re-decodes a message's loosely typed data into target.
func DecodeData(data interface{}, target interface{}) error {
	if data == nil {
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}
