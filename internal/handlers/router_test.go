package handlers

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"canvassync/internal/canvas"
	"canvassync/internal/event"
	"canvassync/internal/session"
)

type stubSub struct {
	id string

	mu   sync.Mutex
	msgs [][]byte
}

func newStubSub(id string) *stubSub { return &stubSub{id: id} }

func (s *stubSub) ID() string { return s.id }

func (s *stubSub) Enqueue(msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, append([]byte(nil), msg...))
	return nil
}

func (s *stubSub) frames(t *testing.T) []map[string]interface{} {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]map[string]interface{}, 0, len(s.msgs))
	for _, msg := range s.msgs {
		var m map[string]interface{}
		if err := json.Unmarshal(msg, &m); err != nil {
			t.Fatalf("bad frame %q: %v", msg, err)
		}
		out = append(out, m)
	}
	return out
}

func (s *stubSub) framesOfType(t *testing.T, typ string) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, f := range s.frames(t) {
		if f["type"] == typ {
			out = append(out, f)
		}
	}
	return out
}

type fixture struct {
	registry *canvas.Registry
	router   *Router
	sessions *session.Manager
}

func newFixture() *fixture {
	registry := canvas.NewRegistry(0, 0)
	return &fixture{
		registry: registry,
		router:   NewRouter(registry, event.NewValidator()),
		sessions: session.NewManager(),
	}
}

// connect creates a session and subscriber pair for one fake connection.
func (f *fixture) connect(connID string) (*session.Session, *stubSub) {
	return f.sessions.Create(connID), newStubSub(connID)
}

func (f *fixture) route(t *testing.T, sess *session.Session, sub *stubSub, payload string) error {
	t.Helper()
	return f.router.Route(sess, sub, []byte(payload))
}

func (f *fixture) mustRoute(t *testing.T, sess *session.Session, sub *stubSub, payload string) {
	t.Helper()
	if err := f.route(t, sess, sub, payload); err != nil {
		t.Fatalf("Route(%s) error: %v", payload, err)
	}
}

func TestRouteJoin(t *testing.T) {
	t.Run("join binds the session and confirms to the joiner", func(t *testing.T) {
		f := newFixture()
		sess, sub := f.connect("conn-a")

		f.mustRoute(t, sess, sub, `{"type":"join-canvas","canvasId":"c1","userId":"alice"}`)

		canvasID, userID, joined := sess.Current()
		if !joined || canvasID != "c1" || userID != "alice" {
			t.Errorf("session = (%q, %q, %v), want joined c1/alice", canvasID, userID, joined)
		}

		acks := sub.framesOfType(t, event.TypeCanvasJoined)
		if len(acks) != 1 {
			t.Fatalf("got %d canvas-joined frames, want 1", len(acks))
		}
		if acks[0]["userId"] != "alice" || acks[0]["color"] == "" {
			t.Errorf("ack = %v, want alice with an assigned color", acks[0])
		}

		if updates := sub.framesOfType(t, event.TypeUsersUpdate); len(updates) != 1 {
			t.Errorf("got %d users-update frames, want 1", len(updates))
		}
	})

	t.Run("empty ids get defaults", func(t *testing.T) {
		f := newFixture()
		sess, sub := f.connect("conn-a")

		f.mustRoute(t, sess, sub, `{"type":"join-canvas"}`)

		canvasID, userID, joined := sess.Current()
		if !joined || canvasID != "canvas1" {
			t.Errorf("canvas = %q, want default canvas1", canvasID)
		}
		if !strings.HasPrefix(userID, "user-") {
			t.Errorf("userID = %q, want generated label", userID)
		}
	})

	t.Run("joining another canvas leaves the first", func(t *testing.T) {
		f := newFixture()
		sess, sub := f.connect("conn-a")

		f.mustRoute(t, sess, sub, `{"type":"join-canvas","canvasId":"c1","userId":"alice"}`)
		f.mustRoute(t, sess, sub, `{"type":"join-canvas","canvasId":"c2","userId":"alice"}`)

		if members := f.registry.MembersOf("c1"); len(members) != 0 {
			t.Errorf("c1 members = %v, want empty after rebind", members)
		}
		if members := f.registry.MembersOf("c2"); len(members) != 1 || members[0] != "alice" {
			t.Errorf("c2 members = %v, want [alice]", members)
		}
	})
}

func TestRouteDrawing(t *testing.T) {
	t.Run("segments flow to other members only", func(t *testing.T) {
		f := newFixture()
		sessA, subA := f.connect("conn-a")
		sessB, subB := f.connect("conn-b")

		f.mustRoute(t, sessA, subA, `{"type":"join-canvas","canvasId":"c1","userId":"A"}`)
		f.mustRoute(t, sessB, subB, `{"type":"join-canvas","canvasId":"c1","userId":"B"}`)

		f.mustRoute(t, sessA, subA, `{"type":"drawing","canvasId":"c1","x0":0,"y0":0,"x1":10,"y1":10,"color":"red"}`)

		if h := f.registry.HistoryOf("c1"); len(h) != 1 || h[0].UserID != "A" {
			t.Fatalf("history = %+v, want one segment attributed to A", h)
		}
		if got := subB.framesOfType(t, event.TypeDrawing); len(got) != 1 {
			t.Errorf("B received %d drawings, want 1", len(got))
		}
		if got := subA.framesOfType(t, event.TypeDrawing); len(got) != 0 {
			t.Errorf("sender received %d of its own drawings, want 0", len(got))
		}
	})

	t.Run("attribution comes from the session, not the payload", func(t *testing.T) {
		f := newFixture()
		sess, sub := f.connect("conn-a")
		f.mustRoute(t, sess, sub, `{"type":"join-canvas","canvasId":"c1","userId":"A"}`)

		f.mustRoute(t, sess, sub, `{"type":"drawing","canvasId":"c1","userId":"mallory","x0":0,"y0":0,"x1":1,"y1":1,"color":"red"}`)

		if h := f.registry.HistoryOf("c1"); len(h) != 1 || h[0].UserID != "A" {
			t.Errorf("history = %+v, want segment attributed to A", h)
		}
	})

	t.Run("unjoined sender is discarded without effect", func(t *testing.T) {
		f := newFixture()
		sess, sub := f.connect("conn-a")

		if err := f.route(t, sess, sub, `{"type":"drawing","canvasId":"c1","x0":0,"y0":0,"x1":1,"y1":1,"color":"red"}`); err != nil {
			t.Fatalf("Route error: %v, want silent discard", err)
		}
		if h := f.registry.HistoryOf("c1"); len(h) != 0 {
			t.Errorf("history = %+v, want empty", h)
		}
		if len(sub.frames(t)) != 0 {
			t.Errorf("unjoined sender received frames: %v", sub.frames(t))
		}
	})

	t.Run("canvas mismatch is discarded without effect", func(t *testing.T) {
		f := newFixture()
		sessA, subA := f.connect("conn-a")
		sessB, subB := f.connect("conn-b")
		f.mustRoute(t, sessA, subA, `{"type":"join-canvas","canvasId":"c1","userId":"A"}`)
		f.mustRoute(t, sessB, subB, `{"type":"join-canvas","canvasId":"c2","userId":"B"}`)

		if err := f.route(t, sessA, subA, `{"type":"drawing","canvasId":"c2","x0":0,"y0":0,"x1":1,"y1":1,"color":"red"}`); err != nil {
			t.Fatalf("Route error: %v, want silent discard", err)
		}

		if h := f.registry.HistoryOf("c2"); len(h) != 0 {
			t.Errorf("foreign canvas history = %+v, want empty", h)
		}
		if got := subB.framesOfType(t, event.TypeDrawing); len(got) != 0 {
			t.Errorf("foreign canvas member received %d drawings, want 0", len(got))
		}
	})

	t.Run("out-of-range coordinates are rejected", func(t *testing.T) {
		f := newFixture()
		sess, sub := f.connect("conn-a")
		f.mustRoute(t, sess, sub, `{"type":"join-canvas","canvasId":"c1","userId":"A"}`)

		if err := f.route(t, sess, sub, `{"type":"drawing","canvasId":"c1","x0":9000000,"y0":0,"x1":1,"y1":1,"color":"red"}`); err == nil {
			t.Error("Route accepted an out-of-range coordinate")
		}
		if h := f.registry.HistoryOf("c1"); len(h) != 0 {
			t.Errorf("history = %+v, want empty", h)
		}
	})
}

func TestRoutePresence(t *testing.T) {
	f := newFixture()
	sessA, subA := f.connect("conn-a")
	sessB, subB := f.connect("conn-b")
	f.mustRoute(t, sessA, subA, `{"type":"join-canvas","canvasId":"c1","userId":"A"}`)
	f.mustRoute(t, sessB, subB, `{"type":"join-canvas","canvasId":"c1","userId":"B"}`)

	f.mustRoute(t, sessA, subA, `{"type":"start-drawing","canvasId":"c1","userId":"A"}`)
	f.mustRoute(t, sessA, subA, `{"type":"stop-drawing","canvasId":"c1","userId":"A"}`)

	got := subB.framesOfType(t, event.TypeUserDrawing)
	if len(got) != 2 {
		t.Fatalf("B received %d flag events, want 2", len(got))
	}
	if got[0]["isDrawing"] != true || got[1]["isDrawing"] != false {
		t.Errorf("flag events = %v, want true then false", got)
	}
	if got := subA.framesOfType(t, event.TypeUserDrawing); len(got) != 0 {
		t.Errorf("sender received %d of its own flag events, want 0", len(got))
	}
}

func TestRouteMalformed(t *testing.T) {
	f := newFixture()
	sess, sub := f.connect("conn-a")

	for _, payload := range []string{
		`not json`,
		`{}`,
		`{"type":"no-such-event"}`,
	} {
		if err := f.route(t, sess, sub, payload); err == nil {
			t.Errorf("Route(%q) accepted a malformed message", payload)
		}
	}

	if f.registry.Count() != 0 {
		t.Errorf("registry mutated by malformed messages: %d canvases", f.registry.Count())
	}
}

func TestDisconnect(t *testing.T) {
	t.Run("joined connection leaves and remaining members are told", func(t *testing.T) {
		f := newFixture()
		sessA, subA := f.connect("conn-a")
		sessB, subB := f.connect("conn-b")
		f.mustRoute(t, sessA, subA, `{"type":"join-canvas","canvasId":"c1","userId":"A"}`)
		f.mustRoute(t, sessB, subB, `{"type":"join-canvas","canvasId":"c1","userId":"B"}`)

		f.router.Disconnect(sessB)

		if members := f.registry.MembersOf("c1"); len(members) != 1 || members[0] != "A" {
			t.Errorf("members = %v, want [A]", members)
		}
		updates := subA.framesOfType(t, event.TypeUsersUpdate)
		last := updates[len(updates)-1]
		users := last["users"].([]interface{})
		if len(users) != 1 || users[0] != "A" {
			t.Errorf("last users-update = %v, want [A]", users)
		}
	})

	t.Run("unjoined disconnect touches nothing", func(t *testing.T) {
		f := newFixture()
		sess, _ := f.connect("conn-a")

		f.router.Disconnect(sess)

		if f.registry.Count() != 0 {
			t.Errorf("registry count = %d, want 0", f.registry.Count())
		}
	})
}
