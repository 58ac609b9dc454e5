package reconcile

import "github.com/moses-Dera/TaskFlow-sub000/internal/model"

// Feed is the notification list, newest first. A read flag never goes back to unread.
type Feed struct {
	items []*model.Notification
	byID  map[string]*model.Notification
}

func NewFeed() *Feed {
	return &Feed{byID: make(map[string]*model.Notification)}
}

// Seed replaces the list with a fetched snapshot, keeping read flags the client
// has already set for notifications that are still listed.
func (f *Feed) Seed(snapshot []model.Notification) {
	prev := f.byID
	f.items = make([]*model.Notification, 0, len(snapshot))
	f.byID = make(map[string]*model.Notification, len(snapshot))
	for _, n := range snapshot {
		if n.ID == "" {
			continue
		}
		if _, dup := f.byID[n.ID]; dup {
			continue
		}
		nn := n
		if old, ok := prev[n.ID]; ok && old.Read {
			nn.Read = true
		}
		f.items = append(f.items, &nn)
		f.byID[n.ID] = &nn
	}
}

// ApplyCreated puts a new notification at the top. A repeated delivery updates the
// listed one in place and reports false.
func (f *Feed) ApplyCreated(n model.Notification) bool {
	if n.ID == "" {
		return false
	}
	if existing, ok := f.byID[n.ID]; ok {
		read := existing.Read
		*existing = n
		existing.Read = read || n.Read
		return false
	}
	nn := n
	f.items = append([]*model.Notification{&nn}, f.items...)
	f.byID[n.ID] = &nn
	return true
}

// MarkRead reports whether the flag changed.
func (f *Feed) MarkRead(id string) bool {
	n, ok := f.byID[id]
	if !ok || n.Read {
		return false
	}
	n.Read = true
	return true
}

// MarkAllRead returns how many notifications changed.
func (f *Feed) MarkAllRead() int {
	changed := 0
	for _, n := range f.items {
		if !n.Read {
			n.Read = true
			changed++
		}
	}
	return changed
}

func (f *Feed) UnreadCount() int {
	c := 0
	for _, n := range f.items {
		if !n.Read {
			c++
		}
	}
	return c
}

func (f *Feed) Len() int { return len(f.items) }

func (f *Feed) Items() []model.Notification {
	out := make([]model.Notification, len(f.items))
	for i, n := range f.items {
		out[i] = *n
	}
	return out
}
