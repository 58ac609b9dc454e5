package reconcile

import "maps"

// Unread counts messages that arrived for conversations other than the open one,
// keyed by model.Scope.Key().
type Unread map[string]int

func (u Unread) Increment(key string) {
	u[key]++
}

// Reset zeroes the counter for key.
func (u Unread) Reset(key string) {
	delete(u, key)
}

func (u Unread) Get(key string) int {
	return u[key]
}

func (u Unread) Total() int {
	n := 0
	for _, v := range u {
		n += v
	}
	return n
}

func (u Unread) Snapshot() map[string]int {
	return maps.Clone(map[string]int(u))
}
