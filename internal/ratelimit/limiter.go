package ratelimit

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/chatledger/internal/domain"
)

type Verdict int

const (
	Accepted Verdict = iota
	Banned
	Throttled
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case Banned:
		return "banned"
	case Throttled:
		return "throttled"
	default:
		return "unknown"
	}
}

// Decision is the result of an attempt. Remaining is the ban time left for
// Banned and Throttled verdicts.
type Decision struct {
	Verdict   Verdict
	Remaining time.Duration
}

type actorState struct {
	mu       sync.Mutex
	attempts []time.Time
	banUntil time.Time
	window   time.Duration
	removed  bool
}

// Limiter tracks recent attempts and bans per actor. Operations for one actor
// are serialized; different actors do not contend beyond a map lookup.
type Limiter struct {
	clock  clockwork.Clock
	random domain.Random

	mu     sync.Mutex
	actors map[string]*actorState
}

func NewLimiter(clock clockwork.Clock, random domain.Random) *Limiter {
	return &Limiter{
		clock:  clock,
		random: random,
		actors: make(map[string]*actorState),
	}
}

// TryAttempt registers an attempt by actorID. A ban in force rejects the
// attempt without recording it. Exceeding the threshold within the window
// starts a ban and clears the recorded attempts.
func (l *Limiter) TryAttempt(actorID string, p Policy) Decision {
	var d Decision
	l.withState(actorID, func(s *actorState) {
		now := l.clock.Now()
		if now.Before(s.banUntil) {
			d = Decision{Verdict: Banned, Remaining: s.banUntil.Sub(now)}
			return
		}

		s.window = p.Window
		s.attempts = append(pruneBefore(s.attempts, now.Add(-p.Window)), now)
		if len(s.attempts) > p.Threshold {
			s.banUntil = now.Add(p.BanDuration)
			s.attempts = nil
			d = Decision{Verdict: Throttled, Remaining: p.BanDuration}
			return
		}
		d = Decision{Verdict: Accepted}
	})
	return d
}

// RollPostHocBan bans the actor with probability p.BanProbability and reports
// whether it did.
func (l *Limiter) RollPostHocBan(actorID string, p Policy) bool {
	if l.random.Float64() >= p.BanProbability {
		return false
	}
	l.withState(actorID, func(s *actorState) {
		s.banUntil = l.clock.Now().Add(p.BanDuration)
	})
	return true
}

// BanRemaining returns the ban time left for actorID, zero when not banned.
func (l *Limiter) BanRemaining(actorID string) time.Duration {
	l.mu.Lock()
	s, ok := l.actors[actorID]
	l.mu.Unlock()
	if !ok {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if remaining := s.banUntil.Sub(l.clock.Now()); remaining > 0 {
		return remaining
	}
	return 0
}

func (l *Limiter) withState(actorID string, fn func(*actorState)) {
	for {
		l.mu.Lock()
		s, ok := l.actors[actorID]
		if !ok {
			s = &actorState{}
			l.actors[actorID] = s
		}
		l.mu.Unlock()

		s.mu.Lock()
		if s.removed {
			// lost a race with Sweep; the next lookup creates fresh state
			s.mu.Unlock()
			continue
		}
		fn(s)
		s.mu.Unlock()
		return
	}
}

// Sweep drops expired bans and attempts that fell out of their window, then
// forgets actors with nothing left. Returns the number of actors forgotten.
func (l *Limiter) Sweep() int {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, s := range l.actors {
		s.mu.Lock()
		if !now.Before(s.banUntil) {
			s.banUntil = time.Time{}
		}
		s.attempts = pruneBefore(s.attempts, now.Add(-s.window))
		if s.banUntil.IsZero() && len(s.attempts) == 0 {
			s.removed = true
			delete(l.actors, id)
			removed++
		}
		s.mu.Unlock()
	}
	return removed
}

// Size returns the number of tracked actors.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.actors)
}

// StartSweepTimer runs Sweep every interval until the returned stop function
// is called.
func (l *Limiter) StartSweepTimer(interval time.Duration) func() {
	ticker := l.clock.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.Chan():
				if removed := l.Sweep(); removed > 0 {
					slog.Debug("Swept idle rate limiter state", "removed", removed, "remaining", l.Size())
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// pruneBefore drops timestamps strictly before cutoff. The slice is sorted.
func pruneBefore(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && ts[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	return append(ts[:0], ts[i:]...)
}
