package chat

import (
	"context"
	"errors"
	"time"

	"github.com/moses-Dera/TaskFlow-sub000/internal/live"
	"github.com/moses-Dera/TaskFlow-sub000/internal/logger"
	"github.com/moses-Dera/TaskFlow-sub000/internal/model"
	"github.com/moses-Dera/TaskFlow-sub000/internal/reconcile"
)

// Attach feeds c's events and connection state into the engine.
func (e *Engine) Attach(c *live.Client) (detach func()) {
	offEvents := c.OnEvent(e.HandleEvent)
	offState := c.OnState(e.SetConnection)
	return func() {
		offEvents()
		offState()
	}
}

// HandleEvent queues a live event for the engine goroutine.
func (e *Engine) HandleEvent(ev live.Event) {
	e.post(func() { e.apply(ev) })
}

// SetConnection records the live connection state. After a reconnect the open
// conversation is fetched again, since events may have been missed meanwhile.
// A switch still loading is refetched for its target, never for the scope it leaves.
func (e *Engine) SetConnection(s live.State) {
	e.post(func() {
		prev := e.connection
		e.connection = s
		if s == live.Connected {
			if e.wasConnected && prev != live.Connected {
				scope := e.conv.Scope()
				if e.seeding {
					scope = e.seedScope
				}
				go e.resync(scope)
			}
			e.wasConnected = true
		}
		e.publish()
	})
}

func (e *Engine) resync(scope model.Scope) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.SwitchScope(ctx, scope); err != nil && !errors.Is(err, ErrSuperseded) {
		logger.Errorf("chat: resync %s: %v", scope, err)
	}
}

// conversational reports whether the event targets the message list.
func conversational(t live.EventType) bool {
	switch t {
	case live.EventNewMessage, live.EventMessageEdited, live.EventMessageDeleted,
		live.EventReactionAdded, live.EventReactionRemoved,
		live.EventMessagePinned, live.EventMessageUnpinned:
		return true
	}
	return false
}

// apply runs on the engine goroutine.
func (e *Engine) apply(ev live.Event) {
	if e.seeding && conversational(ev.Type) {
		if ev.Type == live.EventNewMessage {
			var m model.Message
			if err := ev.Decode(&m); err != nil {
				logger.Errorf("chat: %v", err)
				return
			}
			if m.ID == "" {
				return
			}
			if e.seedScope.Contains(&m) {
				e.buffered = append(e.buffered, ev)
				return
			}
			e.route(m)
			e.publish()
			return
		}
		e.buffered = append(e.buffered, ev)
		return
	}
	if e.dispatch(ev) {
		e.publish()
	}
}

// dispatch applies one event to the state and reports whether anything changed.
func (e *Engine) dispatch(ev live.Event) bool {
	switch ev.Type {
	case live.EventNewMessage:
		var m model.Message
		if !e.decode(ev, &m) {
			return false
		}
		return e.applyCreated(m)
	case live.EventMessageEdited:
		var p live.MessageEditedPayload
		if !e.decode(ev, &p) {
			return false
		}
		at := p.EditedAt
		if at.IsZero() {
			at = e.now()
		}
		return e.conv.ApplyEdited(p.MessageID, p.Content, at)
	case live.EventMessageDeleted:
		var p live.MessageDeletedPayload
		if !e.decode(ev, &p) {
			return false
		}
		_, _, ok := e.conv.ApplyDeleted(p.MessageID)
		return ok
	case live.EventReactionAdded, live.EventReactionRemoved:
		var p live.ReactionPayload
		if !e.decode(ev, &p) {
			return false
		}
		return e.conv.ApplyReaction(p.MessageID, p.Emoji, p.UserID, ev.Type == live.EventReactionAdded)
	case live.EventMessagePinned, live.EventMessageUnpinned:
		var p live.PinPayload
		if !e.decode(ev, &p) {
			return false
		}
		return e.conv.ApplyPinned(p.MessageID, ev.Type == live.EventMessagePinned)
	case live.EventTyping, live.EventStopTyping:
		var p live.TypingPayload
		if !e.decode(ev, &p) || !e.typingInView(p) {
			return false
		}
		if ev.Type == live.EventTyping {
			e.typing.Started(p.UserID, e.now())
		} else {
			e.typing.Stopped(p.UserID)
		}
		return true
	case live.EventNotificationCreated:
		var n model.Notification
		if !e.decode(ev, &n) {
			return false
		}
		return e.feed.ApplyCreated(n)
	case live.EventUserOnline, live.EventUserOffline:
		var p live.UserStatusPayload
		if !e.decode(ev, &p) || p.UserID == "" {
			return false
		}
		e.presence.Set(p.UserID, ev.Type == live.EventUserOnline)
		return true
	case live.EventTaskUpdated:
		logger.Debugf("chat: task_updated ignored by conversation state")
		return false
	case live.EventError:
		var p live.ErrorPayload
		if e.decode(ev, &p) {
			logger.Errorf("chat: backend event error: %s", p.Message)
		}
		return false
	default:
		logger.Debugf("chat: unknown event type %q", ev.Type)
		return false
	}
}

func (e *Engine) decode(ev live.Event, v any) bool {
	if err := ev.Decode(v); err != nil {
		logger.Errorf("chat: %v", err)
		return false
	}
	return true
}

func (e *Engine) applyCreated(m model.Message) bool {
	switch e.conv.ApplyCreated(m) {
	case reconcile.Dropped:
		return false
	case reconcile.Routed:
		return e.route(m)
	case reconcile.Appended:
		e.typing.Stopped(m.Sender.ID)
	}
	return true
}

// route counts a message for a conversation that is not open.
func (e *Engine) route(m model.Message) bool {
	if m.Sender.ID == e.self.ID {
		return false
	}
	e.unread.Increment(model.ScopeOf(&m, e.self.ID).Key())
	return true
}

// typingInView: group typing shows in the group; direct typing shows when the peer
// of the open conversation is typing to us.
func (e *Engine) typingInView(p live.TypingPayload) bool {
	if p.UserID == "" || p.UserID == e.self.ID {
		return false
	}
	scope := e.conv.Scope()
	if scope.IsGroup() {
		return p.RecipientID == ""
	}
	return p.UserID == scope.Peer && p.RecipientID == e.self.ID
}
