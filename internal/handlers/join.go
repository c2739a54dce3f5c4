package handlers

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"canvassync/internal/canvas"
	"canvassync/internal/event"
	"canvassync/internal/session"
	"canvassync/internal/user"
)

// JoinHandler handles join-canvas messages
type JoinHandler struct {
	registry *canvas.Registry
	validate *event.Validator
}

func NewJoinHandler(registry *canvas.Registry, validate *event.Validator) *JoinHandler {
	return &JoinHandler{registry: registry, validate: validate}
}

// Handle binds the session to the requested canvas. The registry replays
// history to the subscriber and announces the member list as part of the
// join; this handler confirms the resolved ids and presence color back to
// the joiner.
func (h *JoinHandler) Handle(sess *session.Session, sub canvas.Subscriber, msg []byte) error {
	p, err := h.validate.DecodeJoin(msg)
	if err != nil {
		return err
	}

	if p.CanvasID == "" {
		p.CanvasID = user.DefaultCanvas
	}
	if p.UserID == "" {
		p.UserID = user.NewUserID()
	}

	// Re-joining under a different binding leaves the old canvas first so
	// no orphaned membership survives.
	if prevCanvas, prevUser, joined := sess.Current(); joined &&
		(prevCanvas != p.CanvasID || prevUser != p.UserID) {
		h.registry.Leave(prevCanvas, prevUser, sess.ConnID())
	}

	color, err := h.registry.Join(p.CanvasID, p.UserID, sub)
	if err != nil {
		return fmt.Errorf("join canvas %s: %w", p.CanvasID, err)
	}

	if _, _, _, ok := sess.Bind(p.CanvasID, p.UserID); !ok {
		// Connection closed while the join was in flight.
		h.registry.Leave(p.CanvasID, p.UserID, sess.ConnID())
		return nil
	}

	ack, err := event.Marshal(event.CanvasJoined{
		Type:     event.TypeCanvasJoined,
		CanvasID: p.CanvasID,
		UserID:   p.UserID,
		Color:    color,
	})
	if err != nil {
		return err
	}
	if err := sub.Enqueue(ack); err != nil {
		return fmt.Errorf("send join confirmation: %w", err)
	}

	log.Info().Str("canvas", p.CanvasID).Str("user", p.UserID).Msg("user joined canvas")
	return nil
}
