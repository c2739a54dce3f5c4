package middleware

import "testing"

func TestValidateMessageSize(t *testing.T) {
	l := NewLimits(100, 30, 10)

	if !l.ValidateMessageSize(100) {
		t.Error("rejected a message at the limit")
	}
	if l.ValidateMessageSize(101) {
		t.Error("accepted a message over the limit")
	}

	unlimited := NewLimits(0, 30, 10)
	if !unlimited.ValidateMessageSize(1 << 20) {
		t.Error("zero limit should mean unlimited")
	}
}

func TestSessionLimiter(t *testing.T) {
	l := NewLimits(0, 10, 3)
	limiter := l.NewSessionLimiter()

	for i := 0; i < 3; i++ {
		if !limiter.Allow() {
			t.Fatalf("burst message %d rejected", i)
		}
	}
	if limiter.Allow() {
		t.Error("message beyond burst allowed instantly")
	}
}

func TestIPRateLimit(t *testing.T) {
	iprl := NewIPRateLimit()

	for i := 0; i < 5; i++ {
		if !iprl.Allow("10.0.0.1") {
			t.Fatalf("connection %d within burst rejected", i)
		}
	}
	if iprl.Allow("10.0.0.1") {
		t.Error("connection beyond burst allowed instantly")
	}

	// A different IP has its own limiter.
	if !iprl.Allow("10.0.0.2") {
		t.Error("fresh IP rejected")
	}

	iprl.Cleanup() // nothing stale yet; must not panic or drop live entries
	if !iprl.Allow("10.0.0.2") {
		t.Error("live IP dropped by cleanup")
	}
}
