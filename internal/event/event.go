package event

import (
	"encoding/json"
	"fmt"
)

// Inbound message types
const (
	TypeJoinCanvas   = "join-canvas"
	TypeDrawing      = "drawing"
	TypeStartDrawing = "start-drawing"
	TypeStopDrawing  = "stop-drawing"
)

// Outbound message types
const (
	TypeUsersUpdate  = "users-update"
	TypeUserDrawing  = "user-drawing"
	TypeCanvasJoined = "canvas-joined"
)

// Join: request to bind the connection to a canvas.
// Empty canvasId/userId get server-side defaults.
type Join struct {
	Type     string `json:"type"`
	CanvasID string `json:"canvasId" validate:"max=128"`
	UserID   string `json:"userId" validate:"max=128"`
}

// Drawing: one line segment. Used both inbound (client stroke) and
// outbound (replay and live fan-out).
type Drawing struct {
	Type     string  `json:"type"`
	CanvasID string  `json:"canvasId" validate:"required,max=128"`
	UserID   string  `json:"userId" validate:"max=128"`
	X0       float64 `json:"x0" validate:"min=-1000000,max=1000000"`
	Y0       float64 `json:"y0" validate:"min=-1000000,max=1000000"`
	X1       float64 `json:"x1" validate:"min=-1000000,max=1000000"`
	Y1       float64 `json:"y1" validate:"min=-1000000,max=1000000"`
	Color    string  `json:"color" validate:"max=50"`
}

// DrawState: start-drawing / stop-drawing payload.
type DrawState struct {
	Type     string `json:"type"`
	CanvasID string `json:"canvasId" validate:"required,max=128"`
	UserID   string `json:"userId" validate:"max=128"`
}

// UsersUpdate: full member list of a canvas, in join order.
type UsersUpdate struct {
	Type     string   `json:"type"`
	CanvasID string   `json:"canvasId"`
	Users    []string `json:"users"`
}

// UserDrawing: presence flag change for one user.
type UserDrawing struct {
	Type      string `json:"type"`
	CanvasID  string `json:"canvasId"`
	UserID    string `json:"userId"`
	IsDrawing bool   `json:"isDrawing"`
}

// CanvasJoined: join confirmation sent to the joiner only, carrying the
// resolved ids and the presence color assigned in this canvas.
type CanvasJoined struct {
	Type     string `json:"type"`
	CanvasID string `json:"canvasId"`
	UserID   string `json:"userId"`
	Color    string `json:"color"`
}

// Peek extracts the type discriminator without decoding the full payload.
func Peek(msg []byte) (string, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &env); err != nil {
		return "", fmt.Errorf("unmarshal base message: %w", err)
	}
	if env.Type == "" {
		return "", fmt.Errorf("missing message type")
	}
	return env.Type, nil
}

// Marshal encodes an outbound event.
func Marshal(v interface{}) ([]byte, error) {
	msg, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	return msg, nil
}
