// Package reconcile holds the client-side view of a conversation and a notification
// feed and the rules that merge a fetched snapshot with live events and local edits.
//
// Nothing here performs I/O or starts goroutines. Every value must be owned by a single
// goroutine (see package chat); every rule tolerates reordering and duplicate delivery,
// and an event whose target is not in view is a silent no-op.
package reconcile

import (
	"slices"
	"time"

	"github.com/moses-Dera/TaskFlow-sub000/internal/model"
)

type EntryState int

const (
	// Confirmed entries carry a server-assigned message id.
	Confirmed EntryState = iota
	// Pending entries are local sends the server has not acknowledged yet.
	Pending
)

func (s EntryState) String() string {
	if s == Pending {
		return "pending"
	}
	return "confirmed"
}

// Entry is one row of the conversation. Message.ID is empty while the entry is Pending;
// LocalID is the key until then.
type Entry struct {
	Message model.Message
	State   EntryState
	LocalID string
}

// Key is the identifier the entry is indexed by.
func (e *Entry) Key() string {
	if e.State == Pending {
		return e.LocalID
	}
	return e.Message.ID
}

// CreatedOutcome tells the caller what ApplyCreated did with a message.
type CreatedOutcome int

const (
	Appended CreatedOutcome = iota
	Merged
	// Routed: the message belongs to another scope; count it as unread there.
	Routed
	// Dropped: the message has no server id and cannot be keyed.
	Dropped
)

// Conversation is the ordered message list of one scope, keyed by identifier.
type Conversation struct {
	scope   model.Scope
	entries []*Entry
	byKey   map[string]*Entry
}

func NewConversation(scope model.Scope) *Conversation {
	return &Conversation{scope: scope, byKey: make(map[string]*Entry)}
}

func (c *Conversation) Scope() model.Scope { return c.scope }

func (c *Conversation) Len() int { return len(c.entries) }

// Seed replaces the whole list with a snapshot fetched for scope.
// Duplicate ids in the snapshot collapse onto the first occurrence.
func (c *Conversation) Seed(scope model.Scope, snapshot []model.Message) {
	c.scope = scope
	c.entries = make([]*Entry, 0, len(snapshot))
	c.byKey = make(map[string]*Entry, len(snapshot))
	for _, m := range snapshot {
		if m.ID == "" {
			continue
		}
		if _, ok := c.byKey[m.ID]; ok {
			continue
		}
		e := &Entry{Message: m.Clone(), State: Confirmed}
		c.entries = append(c.entries, e)
		c.byKey[m.ID] = e
	}
}

// Relevant reports whether a created message belongs in this conversation.
func (c *Conversation) Relevant(m *model.Message) bool {
	return c.scope.Contains(m)
}

// ApplyCreated merges a message_created event.
// An entry with the same id, or the pending entry whose local id the server echoed back
// as ClientID, is updated in place instead of appending a second copy.
func (c *Conversation) ApplyCreated(m model.Message) CreatedOutcome {
	if m.ID == "" {
		return Dropped
	}
	if !c.Relevant(&m) {
		return Routed
	}
	if e, ok := c.byKey[m.ID]; ok && e.State == Confirmed {
		mergeInto(e, m)
		return Merged
	}
	if m.ClientID != "" {
		if e, ok := c.byKey[m.ClientID]; ok && e.State == Pending {
			c.promote(e, m)
			return Merged
		}
	}
	e := &Entry{Message: m.Clone(), State: Confirmed}
	c.entries = append(c.entries, e)
	c.byKey[m.ID] = e
	return Appended
}

// mergeInto folds a repeated delivery of a message into the entry already shown.
// The server copy wins except where the local entry holds newer state: a later edit,
// reactions or a pin that arrived as separate events, or the read flag.
func mergeInto(e *Entry, m model.Message) {
	prev := e.Message
	e.Message = m.Clone()
	if prev.Edited && (!m.Edited || editedAfter(prev.EditedAt, m.EditedAt)) {
		e.Message.Content = prev.Content
		e.Message.Edited = true
		e.Message.EditedAt = prev.EditedAt
	}
	if len(m.Reactions) == 0 && len(prev.Reactions) > 0 {
		e.Message.Reactions = prev.Reactions
	}
	if prev.Read {
		e.Message.Read = true
	}
	if prev.Pinned {
		e.Message.Pinned = true
	}
}

func editedAfter(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.After(*b)
}

// promote turns a pending entry into the confirmed message m, keeping its position.
// If m is already listed under its server id, the pending row is dropped instead.
func (c *Conversation) promote(e *Entry, m model.Message) {
	delete(c.byKey, e.LocalID)
	if existing, ok := c.byKey[m.ID]; ok && existing != e {
		c.removeEntry(e)
		mergeInto(existing, m)
		return
	}
	local := e.Message
	e.Message = m.Clone()
	if len(e.Message.Reactions) == 0 {
		e.Message.Reactions = local.Reactions
	}
	e.State = Confirmed
	e.LocalID = ""
	c.byKey[m.ID] = e
}

// AddPending shows a local send before the server has acknowledged it.
func (c *Conversation) AddPending(localID string, m model.Message) {
	if _, ok := c.byKey[localID]; ok {
		return
	}
	m.ID = ""
	m.ClientID = localID
	e := &Entry{Message: m, State: Pending, LocalID: localID}
	c.entries = append(c.entries, e)
	c.byKey[localID] = e
}

// Confirm reconciles a pending entry with the server's copy. It reports false when the
// pending entry is no longer in view (scope switched, or already confirmed by an echo);
// in the latter case the server copy is merged into the listed message.
func (c *Conversation) Confirm(localID string, m model.Message) bool {
	if e, ok := c.byKey[localID]; ok && e.State == Pending {
		c.promote(e, m)
		return true
	}
	if e, ok := c.byKey[m.ID]; ok && e.State == Confirmed {
		mergeInto(e, m)
	}
	return false
}

// Discard drops a pending entry after its send failed.
func (c *Conversation) Discard(localID string) bool {
	e, ok := c.byKey[localID]
	if !ok || e.State != Pending {
		return false
	}
	delete(c.byKey, localID)
	c.removeEntry(e)
	return true
}

// ApplyEdited updates body and edit marker. An edit for a message not in view is dropped.
func (c *Conversation) ApplyEdited(id, content string, editedAt time.Time) bool {
	e, ok := c.confirmed(id)
	if !ok {
		return false
	}
	e.Message.Content = content
	e.Message.Edited = true
	at := editedAt
	e.Message.EditedAt = &at
	return true
}

// ApplyDeleted removes a message. It returns the removed entry and its position so a
// failed optimistic delete can be undone with Restore.
func (c *Conversation) ApplyDeleted(id string) (Entry, int, bool) {
	e, ok := c.confirmed(id)
	if !ok {
		return Entry{}, -1, false
	}
	pos := c.indexOf(e)
	delete(c.byKey, id)
	c.removeEntry(e)
	return *e, pos, true
}

// Restore puts back an entry removed by ApplyDeleted at pos (clamped to the list).
// It is a no-op if the id has reappeared meanwhile.
func (c *Conversation) Restore(e Entry, pos int) {
	if _, ok := c.byKey[e.Key()]; ok {
		return
	}
	if pos < 0 || pos > len(c.entries) {
		pos = len(c.entries)
	}
	ne := e
	c.entries = slices.Insert(c.entries, pos, &ne)
	c.byKey[ne.Key()] = &ne
}

// ApplyReaction adds or removes user's emoji on a message. Adding is idempotent;
// an emoji whose last user is removed disappears from the list.
func (c *Conversation) ApplyReaction(id, emoji, user string, add bool) bool {
	e, ok := c.byKey[id]
	if !ok {
		return false
	}
	if add {
		e.Message.Reactions = addReaction(e.Message.Reactions, emoji, user)
	} else {
		e.Message.Reactions = removeReaction(e.Message.Reactions, emoji, user)
	}
	return true
}

// HasReaction reports whether user currently reacts with emoji on message id.
func (c *Conversation) HasReaction(id, emoji, user string) bool {
	e, ok := c.byKey[id]
	if !ok {
		return false
	}
	for _, r := range e.Message.Reactions {
		if r.Emoji == emoji {
			return slices.Contains(r.Users, user)
		}
	}
	return false
}

// Replace overwrites the listed message with the same id, used to undo a local edit.
func (c *Conversation) Replace(m model.Message) bool {
	e, ok := c.confirmed(m.ID)
	if !ok {
		return false
	}
	e.Message = m.Clone()
	return true
}

func (c *Conversation) ApplyPinned(id string, pinned bool) bool {
	e, ok := c.confirmed(id)
	if !ok {
		return false
	}
	e.Message.Pinned = pinned
	return true
}

// MarkAllRead sets the read flag on every listed message and returns how many changed.
func (c *Conversation) MarkAllRead() int {
	n := 0
	for _, e := range c.entries {
		if !e.Message.Read {
			e.Message.Read = true
			n++
		}
	}
	return n
}

// Get returns a copy of the entry keyed by id (server id or pending local id).
func (c *Conversation) Get(id string) (Entry, bool) {
	e, ok := c.byKey[id]
	if !ok {
		return Entry{}, false
	}
	out := *e
	out.Message = e.Message.Clone()
	return out, true
}

// Entries returns a copy of the list in display order.
func (c *Conversation) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	for i, e := range c.entries {
		out[i] = *e
		out[i].Message = e.Message.Clone()
	}
	return out
}

// Messages returns a copy of the listed messages in display order.
func (c *Conversation) Messages() []model.Message {
	out := make([]model.Message, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Message.Clone()
	}
	return out
}

func (c *Conversation) confirmed(id string) (*Entry, bool) {
	if id == "" {
		return nil, false
	}
	e, ok := c.byKey[id]
	if !ok || e.State != Confirmed {
		return nil, false
	}
	return e, true
}

func (c *Conversation) indexOf(e *Entry) int {
	return slices.Index(c.entries, e)
}

func (c *Conversation) removeEntry(e *Entry) {
	if i := c.indexOf(e); i >= 0 {
		c.entries = slices.Delete(c.entries, i, i+1)
	}
}
