package realtime

import (
	"sync"
	"time"
)

type typingKey struct {
	sender, receiver uint
}

// typingThrottle drops repeated "is typing" signals from one sender to one
// receiver inside the interval.
type typingThrottle struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[typingKey]time.Time
}

func newTypingThrottle(interval time.Duration) *typingThrottle {
	return &typingThrottle{interval: interval, last: make(map[typingKey]time.Time)}
}

func (t *typingThrottle) Allow(sender, receiver uint, isTyping bool, now time.Time) bool {
	key := typingKey{sender, receiver}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !isTyping {
		// Stopping always goes through and re-arms the next start.
		delete(t.last, key)
		return true
	}
	if t.interval <= 0 {
		return true
	}
	if last, ok := t.last[key]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.last[key] = now
	return true
}

// Forget drops every entry sent by sender.
func (t *typingThrottle) Forget(sender uint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key := range t.last {
		if key.sender == sender {
			delete(t.last, key)
		}
	}
}
