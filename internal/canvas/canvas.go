package canvas

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"canvassync/internal/event"
	"canvassync/internal/user"
)

// Subscriber is one connected client able to receive outbound frames.
// Enqueue must not block: implementations hand the frame to an async
// writer and report failure when the queue is unavailable.
type Subscriber interface {
	ID() string
	Enqueue(msg []byte) error
}

// errCanvasGone signals that the canvas was evicted between lookup and
// use; callers retry against the registry.
var errCanvasGone = errors.New("canvas evicted")

// Canvas is one shared drawing surface: its members, ordered segment
// history, transient drawing flags and subscribed connections. Every
// mutation and the outbound enqueues it implies run under one mutex, so
// a joiner's replay snapshot and the live broadcast stream can never
// double-deliver or drop a segment.
type Canvas struct {
	id string

	mu         sync.Mutex
	dead       bool
	members    []string            // join order
	present    map[string]struct{} // membership set
	history    []Segment
	drawing    map[string]bool       // userID -> isDrawing, subset of members
	colors     map[string]string     // userID -> presence color
	subs       map[string]Subscriber // connID -> subscriber
	palette    *user.ColorGenerator
	lastActive time.Time
}

func newCanvas(id string) *Canvas {
	return &Canvas{
		id:         id,
		present:    make(map[string]struct{}),
		drawing:    make(map[string]bool),
		colors:     make(map[string]string),
		subs:       make(map[string]Subscriber),
		palette:    user.NewColorGenerator(),
		lastActive: time.Now(),
	}
}

func (c *Canvas) ID() string { return c.id }

// join adds the user, replays the full history to the new subscriber and
// announces the updated member list to every subscriber including the
// joiner. Repeated joins by the same user are idempotent; the replay is
// still sent so a reconnecting client reconstructs its surface.
func (c *Canvas) join(userID string, sub Subscriber, maxMembers int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dead {
		return "", errCanvasGone
	}

	if _, ok := c.present[userID]; !ok {
		if maxMembers > 0 && len(c.members) >= maxMembers {
			return "", ErrCanvasFull
		}
		c.present[userID] = struct{}{}
		c.members = append(c.members, userID)
	}
	if _, ok := c.colors[userID]; !ok {
		c.colors[userID] = c.palette.NextColor()
	}
	c.subs[sub.ID()] = sub
	c.lastActive = time.Now()

	// Replay in record order, before any live frame can be enqueued for
	// this subscriber.
	for _, seg := range c.history {
		msg, err := event.Marshal(seg.frame())
		if err != nil {
			continue
		}
		if err := sub.Enqueue(msg); err != nil {
			break // queue gone, read-loop cleanup will run leave
		}
	}

	if msg, err := event.Marshal(c.usersUpdateLocked()); err == nil {
		c.broadcastLocked(msg, "")
	}

	return c.colors[userID], nil
}

// leave removes the subscription and, when the user is a member, the
// membership entry with its drawing flag and color. Remaining
// subscribers get an updated member list. Reports whether the canvas is
// now empty of members.
func (c *Canvas) leave(userID, connID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dead {
		return false
	}

	delete(c.subs, connID)

	if _, ok := c.present[userID]; !ok {
		return false
	}
	delete(c.present, userID)
	delete(c.drawing, userID)
	delete(c.colors, userID)
	for i, m := range c.members {
		if m == userID {
			c.members = append(c.members[:i], c.members[i+1:]...)
			break
		}
	}
	c.lastActive = time.Now()

	if msg, err := event.Marshal(c.usersUpdateLocked()); err == nil {
		c.broadcastLocked(msg, "")
	}

	return len(c.members) == 0
}

// record appends the segment and fans it out to every subscriber except
// the sender. Returns false when the canvas was evicted concurrently.
func (c *Canvas) record(seg Segment, senderConnID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dead {
		return false
	}

	c.history = append(c.history, seg)
	c.lastActive = time.Now()

	if msg, err := event.Marshal(seg.frame()); err == nil {
		c.broadcastLocked(msg, senderConnID)
	}
	return true
}

// setDrawing flips the transient drawing flag for a current member and
// tells every other subscriber. Non-members are ignored.
func (c *Canvas) setDrawing(userID string, isDrawing bool, senderConnID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dead {
		return
	}
	if _, ok := c.present[userID]; !ok {
		return
	}

	c.drawing[userID] = isDrawing
	c.lastActive = time.Now()

	msg, err := event.Marshal(event.UserDrawing{
		Type:      event.TypeUserDrawing,
		CanvasID:  c.id,
		UserID:    userID,
		IsDrawing: isDrawing,
	})
	if err == nil {
		c.broadcastLocked(msg, senderConnID)
	}
}

// evictIfEmpty marks the canvas dead when no members remain. The caller
// holds the registry map lock, so a racing join re-creates the canvas
// instead of resurrecting this one.
func (c *Canvas) evictIfEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.members) > 0 {
		return false
	}
	c.dead = true
	c.subs = make(map[string]Subscriber)
	return true
}

// kill drops all state unconditionally (administrative clear).
func (c *Canvas) kill() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dead = true
	c.members = nil
	c.present = make(map[string]struct{})
	c.history = nil
	c.drawing = make(map[string]bool)
	c.colors = make(map[string]string)
	c.subs = make(map[string]Subscriber)
}

// usersUpdateLocked builds the member-list announcement. Caller holds mu.
func (c *Canvas) usersUpdateLocked() event.UsersUpdate {
	users := make([]string, len(c.members))
	copy(users, c.members)
	return event.UsersUpdate{Type: event.TypeUsersUpdate, CanvasID: c.id, Users: users}
}

// broadcastLocked enqueues msg to every subscriber except exceptConnID.
// Subscribers whose queue rejects the frame are dropped. Caller holds mu.
func (c *Canvas) broadcastLocked(msg []byte, exceptConnID string) {
	var failed []string
	for connID, sub := range c.subs {
		if connID == exceptConnID {
			continue
		}
		if err := sub.Enqueue(msg); err != nil {
			failed = append(failed, connID)
		}
	}
	for _, connID := range failed {
		delete(c.subs, connID)
		log.Debug().Str("canvas", c.id).Str("conn", connID).Msg("dropped unresponsive subscriber")
	}
}

// Members returns the current member list in join order.
func (c *Canvas) Members() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	members := make([]string, len(c.members))
	copy(members, c.members)
	return members
}

// History returns a copy of the recorded segments in append order.
func (c *Canvas) History() []Segment {
	c.mu.Lock()
	defer c.mu.Unlock()

	history := make([]Segment, len(c.history))
	copy(history, c.history)
	return history
}

// DrawingUsers returns a copy of the transient drawing flags.
func (c *Canvas) DrawingUsers() map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	flags := make(map[string]bool, len(c.drawing))
	for k, v := range c.drawing {
		flags[k] = v
	}
	return flags
}

// MemberCount returns the number of current members.
func (c *Canvas) MemberCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.members)
}
