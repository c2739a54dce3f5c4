package canvas

import "canvassync/internal/event"

// Segment is one immutable recorded line stroke: two surface-space
// endpoints and an opaque style token, attributed to a canvas and user.
// Segments are append-only and never edited.
type Segment struct {
	CanvasID string  `json:"canvasId"`
	UserID   string  `json:"userId"`
	X0       float64 `json:"x0"`
	Y0       float64 `json:"y0"`
	X1       float64 `json:"x1"`
	Y1       float64 `json:"y1"`
	Color    string  `json:"color"`
}

// frame converts the segment into its outbound wire shape.
func (s Segment) frame() event.Drawing {
	return event.Drawing{
		Type:     event.TypeDrawing,
		CanvasID: s.CanvasID,
		UserID:   s.UserID,
		X0:       s.X0,
		Y0:       s.Y0,
		X1:       s.X1,
		Y1:       s.Y1,
		Color:    s.Color,
	}
}
