package middleware

import "golang.org/x/time/rate"

// Limits: static per-connection protocol limits
type Limits struct {
	MaxMessageSize    int
	MessagesPerSecond float64
	BurstSize         int
}

func NewLimits(maxMessageSize int, messagesPerSecond float64, burstSize int) *Limits {
	return &Limits{
		MaxMessageSize:    maxMessageSize,
		MessagesPerSecond: messagesPerSecond,
		BurstSize:         burstSize,
	}
}

// ValidateMessageSize: checks if a message is within the size limit
func (l *Limits) ValidateMessageSize(msgSize int) bool {
	return l.MaxMessageSize <= 0 || msgSize <= l.MaxMessageSize
}

// NewSessionLimiter: builds the per-connection message rate limiter
func (l *Limits) NewSessionLimiter() *rate.Limiter {
	if l.MessagesPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(l.MessagesPerSecond), l.BurstSize)
}
