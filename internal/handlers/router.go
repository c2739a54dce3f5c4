package handlers

import (
	"fmt"

	"canvassync/internal/canvas"
	"canvassync/internal/event"
	"canvassync/internal/session"
)

// Router dispatches inbound messages to the handler for their type and
// drives the disconnect transition. Every failure is absorbed per event;
// nothing here can take down the registry or another connection.
type Router struct {
	registry *canvas.Registry
	join     *JoinHandler
	draw     *DrawHandler
	presence *PresenceHandler
}

func NewRouter(registry *canvas.Registry, validate *event.Validator) *Router {
	return &Router{
		registry: registry,
		join:     NewJoinHandler(registry, validate),
		draw:     NewDrawHandler(registry, validate),
		presence: NewPresenceHandler(registry, validate),
	}
}

// Route processes one inbound message for the connection's session.
func (r *Router) Route(sess *session.Session, sub canvas.Subscriber, msg []byte) error {
	messageType, err := event.Peek(msg)
	if err != nil {
		return err
	}

	switch messageType {
	case event.TypeJoinCanvas:
		return r.join.Handle(sess, sub, msg)
	case event.TypeDrawing:
		return r.draw.Handle(sess, msg)
	case event.TypeStartDrawing:
		return r.presence.Handle(sess, msg, true)
	case event.TypeStopDrawing:
		return r.presence.Handle(sess, msg, false)
	default:
		return fmt.Errorf("unknown message type: %s", messageType)
	}
}

// Disconnect runs the terminal transition for the connection. A session
// that never joined leaves no trace; a joined one leaves its canvas and
// the remaining members are told. Abrupt and graceful closure take the
// same path.
func (r *Router) Disconnect(sess *session.Session) {
	canvasID, userID, wasJoined := sess.Close()
	if !wasJoined {
		return
	}
	r.registry.Leave(canvasID, userID, sess.ConnID())
}
