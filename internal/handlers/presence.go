package handlers

import (
	"github.com/rs/zerolog/log"

	"canvassync/internal/canvas"
	"canvassync/internal/event"
	"canvassync/internal/session"
)

// PresenceHandler handles start-drawing / stop-drawing messages
type PresenceHandler struct {
	registry *canvas.Registry
	validate *event.Validator
}

func NewPresenceHandler(registry *canvas.Registry, validate *event.Validator) *PresenceHandler {
	return &PresenceHandler{registry: registry, validate: validate}
}

// Handle flips the sender's drawing flag on its joined canvas. Flag
// events from unjoined connections or for a foreign canvas are discarded.
func (h *PresenceHandler) Handle(sess *session.Session, msg []byte, isDrawing bool) error {
	canvasID, userID, joined := sess.Current()
	if !joined {
		log.Debug().Str("conn", sess.ConnID()).Msg("drawing flag from unjoined connection discarded")
		return nil
	}

	p, err := h.validate.DecodeDrawState(msg)
	if err != nil {
		return err
	}

	if p.CanvasID != canvasID {
		log.Debug().Str("conn", sess.ConnID()).Str("claimed", p.CanvasID).
			Str("joined", canvasID).Msg("drawing flag for foreign canvas discarded")
		return nil
	}

	h.registry.SetDrawingFlag(canvasID, userID, isDrawing, sess.ConnID())
	return nil
}
