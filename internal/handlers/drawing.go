package handlers

import (
	"github.com/rs/zerolog/log"

	"canvassync/internal/canvas"
	"canvassync/internal/event"
	"canvassync/internal/session"
)

// DrawHandler handles drawing (segment) messages
type DrawHandler struct {
	registry *canvas.Registry
	validate *event.Validator
}

func NewDrawHandler(registry *canvas.Registry, validate *event.Validator) *DrawHandler {
	return &DrawHandler{registry: registry, validate: validate}
}

// Handle records one segment and fans it out to the sender's canvas.
// Segments from unjoined connections and segments naming a canvas other
// than the sender's are discarded without effect.
func (h *DrawHandler) Handle(sess *session.Session, msg []byte) error {
	canvasID, userID, joined := sess.Current()
	if !joined {
		log.Debug().Str("conn", sess.ConnID()).Msg("drawing from unjoined connection discarded")
		return nil
	}

	p, err := h.validate.DecodeDrawing(msg)
	if err != nil {
		return err
	}

	if p.CanvasID != canvasID {
		log.Debug().Str("conn", sess.ConnID()).Str("claimed", p.CanvasID).
			Str("joined", canvasID).Msg("drawing for foreign canvas discarded")
		return nil
	}

	// Attribution comes from the session, not the payload.
	seg := canvas.Segment{
		CanvasID: canvasID,
		UserID:   userID,
		X0:       p.X0,
		Y0:       p.Y0,
		X1:       p.X1,
		Y1:       p.Y1,
		Color:    p.Color,
	}
	return h.registry.RecordSegment(seg, sess.ConnID())
}
