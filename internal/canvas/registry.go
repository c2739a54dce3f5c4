package canvas

import (
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	// ErrServerFull: the registry refuses to create another canvas.
	ErrServerFull = errors.New("server at maximum canvas capacity")
	// ErrCanvasFull: the canvas refuses another member.
	ErrCanvasFull = errors.New("canvas is full")
)

// Registry is the authoritative in-memory store of all canvases. The
// registry mutex guards only the id -> canvas map; each canvas carries
// its own lock, so operations on different canvases never block one
// another. Construct one per process and inject it; there is no
// package-level instance.
type Registry struct {
	mu       sync.RWMutex
	canvases map[string]*Canvas

	maxCanvases int // 0 = unlimited
	maxMembers  int // 0 = unlimited
}

func NewRegistry(maxCanvases, maxMembers int) *Registry {
	return &Registry{
		canvases:    make(map[string]*Canvas),
		maxCanvases: maxCanvases,
		maxMembers:  maxMembers,
	}
}

func (r *Registry) get(canvasID string) *Canvas {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.canvases[canvasID]
}

func (r *Registry) getOrCreate(canvasID string) (*Canvas, error) {
	r.mu.RLock()
	c := r.canvases[canvasID]
	r.mu.RUnlock()
	if c != nil {
		return c, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c := r.canvases[canvasID]; c != nil {
		return c, nil
	}
	if r.maxCanvases > 0 && len(r.canvases) >= r.maxCanvases {
		return nil, ErrServerFull
	}
	c = newCanvas(canvasID)
	r.canvases[canvasID] = c
	log.Debug().Str("canvas", canvasID).Msg("canvas created")
	return c, nil
}

// Join idempotently adds userID to the canvas, creating it if absent,
// subscribes the connection, replays history to it and announces the new
// member list. Returns the presence color assigned to the user in this
// canvas. The whole sequence runs under the canvas lock.
func (r *Registry) Join(canvasID, userID string, sub Subscriber) (string, error) {
	for {
		c, err := r.getOrCreate(canvasID)
		if err != nil {
			return "", err
		}
		color, err := c.join(userID, sub, r.maxMembers)
		if errors.Is(err, errCanvasGone) {
			continue // lost the race with eviction, take a fresh canvas
		}
		return color, err
	}
}

// Leave removes the user's membership and subscription and announces the
// shrunk member list. When the last member leaves, the canvas and its
// history are evicted. Leaving a canvas or user that does not exist is a
// no-op.
func (r *Registry) Leave(canvasID, userID, connID string) {
	c := r.get(canvasID)
	if c == nil {
		return
	}
	if !c.leave(userID, connID) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cur := r.canvases[canvasID]; cur == c && c.evictIfEmpty() {
		delete(r.canvases, canvasID)
		log.Debug().Str("canvas", canvasID).Msg("canvas evicted")
	}
}

// RecordSegment appends the segment to its canvas's history and fans it
// out to every other subscriber. The canvas is created on demand: a
// segment from a still-connected but not-yet-joined sender is tolerated
// rather than failed.
func (r *Registry) RecordSegment(seg Segment, senderConnID string) error {
	for {
		c, err := r.getOrCreate(seg.CanvasID)
		if err != nil {
			return err
		}
		if c.record(seg, senderConnID) {
			return nil
		}
	}
}

// SetDrawingFlag flips the transient drawing flag for a current member of
// the canvas and tells every other subscriber. Unknown canvases or
// non-members are a no-op.
func (r *Registry) SetDrawingFlag(canvasID, userID string, isDrawing bool, senderConnID string) {
	c := r.get(canvasID)
	if c == nil {
		return
	}
	c.setDrawing(userID, isDrawing, senderConnID)
}

// MembersOf returns the member list of the canvas in join order, empty
// when the canvas does not exist.
func (r *Registry) MembersOf(canvasID string) []string {
	c := r.get(canvasID)
	if c == nil {
		return nil
	}
	return c.Members()
}

// HistoryOf returns the recorded segments of the canvas in append order,
// empty when the canvas does not exist.
func (r *Registry) HistoryOf(canvasID string) []Segment {
	c := r.get(canvasID)
	if c == nil {
		return nil
	}
	return c.History()
}

// DrawingUsers returns the transient drawing flags of the canvas.
func (r *Registry) DrawingUsers(canvasID string) map[string]bool {
	c := r.get(canvasID)
	if c == nil {
		return nil
	}
	return c.DrawingUsers()
}

// CanvasIDs returns the ids of all live canvases, sorted.
func (r *Registry) CanvasIDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.canvases))
	for id := range r.canvases {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// AllUsers returns the distinct user ids present across all canvases.
func (r *Registry) AllUsers() []string {
	r.mu.RLock()
	canvases := make([]*Canvas, 0, len(r.canvases))
	for _, c := range r.canvases {
		canvases = append(canvases, c)
	}
	r.mu.RUnlock()

	seen := make(map[string]struct{})
	var users []string
	for _, c := range canvases {
		for _, u := range c.Members() {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			users = append(users, u)
		}
	}
	sort.Strings(users)
	return users
}

// Count returns the number of live canvases.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.canvases)
}

// Clear drops a canvas and all its state (administrative operation).
// Sessions still bound to it keep working: their next segment re-creates
// the canvas on demand.
func (r *Registry) Clear(canvasID string) {
	r.mu.Lock()
	c := r.canvases[canvasID]
	delete(r.canvases, canvasID)
	r.mu.Unlock()

	if c != nil {
		c.kill()
		log.Info().Str("canvas", canvasID).Msg("canvas cleared")
	}
}
