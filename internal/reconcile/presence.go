package reconcile

import (
	"slices"
	"time"
)

// Presence is the set of users known to be online. Only presence events change it.
type Presence map[string]struct{}

func (p Presence) Set(user string, online bool) {
	if online {
		p[user] = struct{}{}
		return
	}
	delete(p, user)
}

func (p Presence) Online(user string) bool {
	_, ok := p[user]
	return ok
}

// Users returns the online user ids sorted.
func (p Presence) Users() []string {
	out := make([]string, 0, len(p))
	for u := range p {
		out = append(out, u)
	}
	slices.Sort(out)
	return out
}

// DefaultTypingTTL bounds how long a typing indicator is shown without a stop event.
const DefaultTypingTTL = 6 * time.Second

// Typing tracks who is typing in the open conversation. A missing stop event is
// covered by the TTL.
type Typing struct {
	ttl   time.Duration
	until map[string]time.Time
}

func NewTyping(ttl time.Duration) *Typing {
	if ttl <= 0 {
		ttl = DefaultTypingTTL
	}
	return &Typing{ttl: ttl, until: make(map[string]time.Time)}
}

func (t *Typing) Started(user string, now time.Time) {
	t.until[user] = now.Add(t.ttl)
}

func (t *Typing) Stopped(user string) {
	delete(t.until, user)
}

// Clear forgets everyone, used when the open conversation changes.
func (t *Typing) Clear() {
	clear(t.until)
}

// Active returns users typing at now, sorted, and drops expired ones.
func (t *Typing) Active(now time.Time) []string {
	out := make([]string, 0, len(t.until))
	for u, until := range t.until {
		if now.After(until) {
			delete(t.until, u)
			continue
		}
		out = append(out, u)
	}
	slices.Sort(out)
	return out
}
