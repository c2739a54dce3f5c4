package user

import "github.com/google/uuid"

// DefaultCanvas is the canvas joined when the client names none.
const DefaultCanvas = "canvas1"

// NewUserID generates a random participant label for clients that
// connect without one.
func NewUserID() string {
	return "user-" + uuid.NewString()[:8]
}

// NewConnID generates a unique identifier for one connection.
func NewConnID() string {
	return uuid.NewString()
}
