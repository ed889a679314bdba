package translate

import (
	"sync"
	"time"
)

// PartialLimiter rate limits partial-text translation per target
// language. The first offer in a quiet period fires immediately;
// offers arriving inside the interval are coalesced into a single
// trailing call carrying the latest text, never dropped outright.
// Finals bypass the limiter entirely.
type PartialLimiter struct {
	interval time.Duration

	mu      sync.Mutex
	states  map[string]*limiterState
	stopped bool
}

type limiterState struct {
	lastFire time.Time
	pending  string
	timer    *time.Timer
}

func NewPartialLimiter(interval time.Duration) *PartialLimiter {
	return &PartialLimiter{
		interval: interval,
		states:   make(map[string]*limiterState),
	}
}

// Offer submits the newest partial text for lang. fire runs either
// synchronously (quiet period) or later on a timer goroutine with
// whatever text is most recent by then.
func (l *PartialLimiter) Offer(lang, text string, fire func(text string)) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	st := l.states[lang]
	if st == nil {
		st = &limiterState{}
		l.states[lang] = st
	}

	now := time.Now()
	if st.timer == nil && now.Sub(st.lastFire) >= l.interval {
		st.lastFire = now
		l.mu.Unlock()
		fire(text)
		return
	}

	st.pending = text
	if st.timer == nil {
		wait := l.interval - now.Sub(st.lastFire)
		st.timer = time.AfterFunc(wait, func() { l.flush(lang, fire) })
	}
	l.mu.Unlock()
}

func (l *PartialLimiter) flush(lang string, fire func(text string)) {
	l.mu.Lock()
	st := l.states[lang]
	if st == nil || l.stopped {
		l.mu.Unlock()
		return
	}
	text := st.pending
	st.pending = ""
	st.timer = nil
	st.lastFire = time.Now()
	l.mu.Unlock()
	if text != "" {
		fire(text)
	}
}

// Stop cancels pending trailing calls.
func (l *PartialLimiter) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopped = true
	for _, st := range l.states {
		if st.timer != nil {
			st.timer.Stop()
			st.timer = nil
		}
	}
}
