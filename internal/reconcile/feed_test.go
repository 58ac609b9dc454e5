package reconcile

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/moses-Dera/TaskFlow-sub000/internal/model"
)

func note(id string, read bool) model.Notification {
	return model.Notification{ID: id, Title: "t-" + id, Category: model.NotificationTask, Read: read, CreatedAt: t0}
}

func TestFeed_ApplyCreated(t *testing.T) {
	f := NewFeed()
	f.Seed([]model.Notification{note("n1", false)})

	if !f.ApplyCreated(note("n2", false)) {
		t.Error("ApplyCreated(n2) = false, want true")
	}
	if f.ApplyCreated(note("n2", false)) {
		t.Error("duplicate ApplyCreated(n2) = true, want false")
	}
	var got []string
	for _, n := range f.Items() {
		got = append(got, n.ID)
	}
	if diff := cmp.Diff([]string{"n2", "n1"}, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestFeed_ReadNeverReverts(t *testing.T) {
	f := NewFeed()
	f.Seed([]model.Notification{note("n1", false), note("n2", false)})

	if !f.MarkRead("n1") {
		t.Fatal("MarkRead(n1) = false")
	}
	if f.MarkRead("n1") {
		t.Error("second MarkRead(n1) = true")
	}
	f.ApplyCreated(note("n1", false))
	f.Seed([]model.Notification{note("n1", false), note("n2", false)})

	if got := f.UnreadCount(); got != 1 {
		t.Errorf("UnreadCount() = %d, want 1", got)
	}
	if got := f.MarkAllRead(); got != 1 {
		t.Errorf("MarkAllRead() = %d, want 1", got)
	}
	if got := f.UnreadCount(); got != 0 {
		t.Errorf("UnreadCount() = %d, want 0", got)
	}
}

func TestUnread(t *testing.T) {
	u := Unread{}
	u.Increment(model.GroupKey)
	u.Increment(model.GroupKey)
	u.Increment("peerB")
	if u.Get(model.GroupKey) != 2 || u.Get("peerB") != 1 || u.Total() != 3 {
		t.Errorf("counters = %v", u.Snapshot())
	}
	u.Reset(model.GroupKey)
	if u.Get(model.GroupKey) != 0 {
		t.Errorf("group counter = %d after reset", u.Get(model.GroupKey))
	}
}

func TestPresence(t *testing.T) {
	p := Presence{}
	p.Set("b", true)
	p.Set("a", true)
	p.Set("b", false)
	p.Set("c", false)
	if diff := cmp.Diff([]string{"a"}, p.Users()); diff != "" {
		t.Errorf("users mismatch (-want +got):\n%s", diff)
	}
}

func TestTyping(t *testing.T) {
	ty := NewTyping(time.Second)
	ty.Started("a", t0)
	ty.Started("b", t0)
	ty.Stopped("b")
	if diff := cmp.Diff([]string{"a"}, ty.Active(t0.Add(500*time.Millisecond))); diff != "" {
		t.Errorf("active mismatch (-want +got):\n%s", diff)
	}
	if got := ty.Active(t0.Add(2 * time.Second)); len(got) != 0 {
		t.Errorf("Active() after ttl = %v, want none", got)
	}
}
