package session

import "testing"

func TestSessionLifecycle(t *testing.T) {
	t.Run("starts unjoined", func(t *testing.T) {
		s := New("conn-1")
		if s.State() != StateUnjoined {
			t.Errorf("State = %v, want StateUnjoined", s.State())
		}
		if _, _, joined := s.Current(); joined {
			t.Error("Current reports joined before any bind")
		}
	})

	t.Run("bind moves to joined and reports previous binding", func(t *testing.T) {
		s := New("conn-1")

		prevCanvas, _, wasJoined, ok := s.Bind("c1", "alice")
		if !ok || wasJoined || prevCanvas != "" {
			t.Errorf("first Bind = (%q, joined=%v, ok=%v), want fresh bind", prevCanvas, wasJoined, ok)
		}

		prevCanvas, prevUser, wasJoined, ok := s.Bind("c2", "alice")
		if !ok || !wasJoined || prevCanvas != "c1" || prevUser != "alice" {
			t.Errorf("rebind = (%q, %q, joined=%v, ok=%v), want previous c1/alice", prevCanvas, prevUser, wasJoined, ok)
		}

		canvasID, userID, joined := s.Current()
		if !joined || canvasID != "c2" || userID != "alice" {
			t.Errorf("Current = (%q, %q, %v), want c2/alice joined", canvasID, userID, joined)
		}
	})

	t.Run("close reports whether a leave is owed", func(t *testing.T) {
		s := New("conn-1")
		s.Bind("c1", "alice")

		canvasID, userID, wasJoined := s.Close()
		if !wasJoined || canvasID != "c1" || userID != "alice" {
			t.Errorf("Close = (%q, %q, %v), want c1/alice joined", canvasID, userID, wasJoined)
		}

		// Idempotent: second close owes nothing.
		if _, _, wasJoined := s.Close(); wasJoined {
			t.Error("second Close still reports a joined session")
		}
	})

	t.Run("closing an unjoined session owes no leave", func(t *testing.T) {
		s := New("conn-1")
		if _, _, wasJoined := s.Close(); wasJoined {
			t.Error("Close of unjoined session reports joined")
		}
	})

	t.Run("bind after close is refused", func(t *testing.T) {
		s := New("conn-1")
		s.Close()
		if _, _, _, ok := s.Bind("c1", "alice"); ok {
			t.Error("Bind succeeded on a closed session")
		}
		if s.State() != StateClosed {
			t.Errorf("State = %v, want StateClosed", s.State())
		}
	})
}

func TestManager(t *testing.T) {
	m := NewManager()

	s := m.Create("conn-1")
	if s.ConnID() != "conn-1" {
		t.Errorf("ConnID = %q, want conn-1", s.ConnID())
	}
	if got, ok := m.Get("conn-1"); !ok || got != s {
		t.Error("Get did not return the created session")
	}
	if m.Count() != 1 {
		t.Errorf("Count = %d, want 1", m.Count())
	}

	m.Remove("conn-1")
	if _, ok := m.Get("conn-1"); ok {
		t.Error("session still present after Remove")
	}
	if m.Count() != 0 {
		t.Errorf("Count = %d, want 0", m.Count())
	}
}
