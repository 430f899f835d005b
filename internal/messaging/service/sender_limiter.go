package service

import (
	"sync"

	"golang.org/x/time/rate"
)

// SenderLimiter throttles message sends per user id so one client
// cannot flood a room.
type SenderLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewSenderLimiter(perSecond float64, burst int) *SenderLimiter {
	return &SenderLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

// Allow reports whether the sender may post another message now.
func (l *SenderLimiter) Allow(senderID string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[senderID]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[senderID] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}
