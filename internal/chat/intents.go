package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/moses-Dera/TaskFlow-sub000/internal/gateway"
	"github.com/moses-Dera/TaskFlow-sub000/internal/live"
	"github.com/moses-Dera/TaskFlow-sub000/internal/logger"
	"github.com/moses-Dera/TaskFlow-sub000/internal/metrics"
	"github.com/moses-Dera/TaskFlow-sub000/internal/model"
	"github.com/moses-Dera/TaskFlow-sub000/internal/reconcile"
)

// SwitchScope opens scope: it fetches the conversation snapshot and replaces the list
// with it. If another switch starts before the snapshot arrives, this one returns
// ErrSuperseded and its snapshot is dropped. A failed fetch leaves the previous list.
// After a successful seed the scope is marked read on the backend.
func (e *Engine) SwitchScope(ctx context.Context, scope model.Scope) error {
	defer logger.DeferLogDuration("chat.SwitchScope", time.Now())()
	e.debounce.Flush()

	var gen uint64
	err := e.call(ctx, func() {
		e.gen++
		gen = e.gen
		e.seeding = true
		e.seedScope = scope
		e.buffered = nil
		e.publish()
	})
	if err != nil {
		return err
	}

	msgs, fetchErr := e.gw.ListMessages(ctx, scope)

	var result error
	err = e.call(context.WithoutCancel(ctx), func() {
		if gen != e.gen {
			metrics.IncStaleSnapshot()
			result = ErrSuperseded
			return
		}
		e.seeding = false
		buffered := e.buffered
		e.buffered = nil
		if fetchErr != nil {
			result = fmt.Errorf("chat.SwitchScope %s: %w", scope, fetchErr)
		} else {
			if e.conv.Scope() != scope {
				e.typing.Clear()
			}
			e.conv.Seed(scope, msgs)
			e.setScope(scope)
		}
		for _, ev := range buffered {
			e.dispatch(ev)
		}
		e.publish()
	})
	if err != nil {
		return err
	}
	if result != nil {
		return result
	}

	if err := e.gw.MarkScopeRead(ctx, scope); err != nil {
		logger.Errorf("chat: mark %s read: %v", scope, err)
		return nil
	}
	return e.call(context.WithoutCancel(ctx), func() {
		if gen != e.gen {
			return
		}
		e.unread.Reset(scope.Key())
		e.conv.MarkAllRead()
		e.publish()
	})
}

// Draft is a message being composed for the open conversation.
type Draft struct {
	Content   string
	ReplyToID string
	Files     []gateway.Upload
}

// Send shows the message at once as pending, uploads its attachments, then sends it.
// Any failure removes the pending entry and returns the error so the user can retry;
// a failed upload means nothing is sent.
func (e *Engine) Send(ctx context.Context, d Draft) (model.Message, error) {
	defer logger.DeferLogDuration("chat.Send", time.Now())()
	if e.self.ID == "" {
		return model.Message{}, ErrNotSignedIn
	}
	content := strings.TrimSpace(d.Content)
	if content == "" && len(d.Files) == 0 {
		return model.Message{}, ErrEmpty
	}
	e.debounce.Flush()

	localID := uuid.NewString()
	var scope model.Scope
	err := e.call(ctx, func() {
		scope = e.conv.Scope()
		pending := model.Message{
			Sender:      e.self,
			RecipientID: scope.Peer,
			Content:     content,
			ReplyToID:   d.ReplyToID,
			CreatedAt:   e.now(),
		}
		for _, f := range d.Files {
			pending.Attachments = append(pending.Attachments, model.Attachment{FileName: f.FileName, MimeType: f.MimeType})
		}
		e.conv.AddPending(localID, pending)
		e.publish()
	})
	if err != nil {
		return model.Message{}, err
	}

	msg, err := e.deliver(ctx, scope, localID, content, d)
	if err != nil {
		metrics.IncRollback("send")
		if cerr := e.call(context.WithoutCancel(ctx), func() {
			if e.conv.Discard(localID) {
				e.publish()
			}
		}); cerr != nil {
			logger.Errorf("chat: discard pending %s: %v", localID, cerr)
		}
		return model.Message{}, err
	}

	err = e.call(context.WithoutCancel(ctx), func() {
		e.conv.Confirm(localID, msg)
		e.publish()
	})
	return msg, err
}

func (e *Engine) deliver(ctx context.Context, scope model.Scope, localID, content string, d Draft) (model.Message, error) {
	atts := make([]model.Attachment, 0, len(d.Files))
	for _, f := range d.Files {
		att, err := e.gw.UploadAttachment(ctx, f)
		if err != nil {
			return model.Message{}, fmt.Errorf("chat.Send: attachment %s: %w", f.FileName, err)
		}
		atts = append(atts, att)
	}
	msg, err := e.gw.SendMessage(ctx, gateway.SendRequest{
		Content:         content,
		RecipientID:     scope.Peer,
		ReplyToID:       d.ReplyToID,
		Attachments:     atts,
		ClientMessageID: localID,
	})
	if err != nil {
		return model.Message{}, fmt.Errorf("chat.Send: %w", err)
	}
	return msg, nil
}

// Edit changes a message's body at once and reverts it if the backend refuses.
func (e *Engine) Edit(ctx context.Context, id, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmpty
	}
	var prev reconcile.Entry
	var found bool
	err := e.call(ctx, func() {
		prev, found = e.conv.Get(id)
		if !found || prev.State != reconcile.Confirmed {
			found = false
			return
		}
		e.conv.ApplyEdited(id, content, e.now())
		e.publish()
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("chat.Edit %s: %w", id, ErrNotInView)
	}

	msg, gwErr := e.gw.EditMessage(ctx, id, content)
	var result error
	err = e.call(context.WithoutCancel(ctx), func() {
		if gwErr != nil {
			// Revert only if nothing else changed the body meanwhile.
			if cur, ok := e.conv.Get(id); ok && cur.Message.Content == content {
				restored := cur.Message
				restored.Content = prev.Message.Content
				restored.Edited = prev.Message.Edited
				restored.EditedAt = prev.Message.EditedAt
				e.conv.Replace(restored)
				metrics.IncRollback("edit")
				e.publish()
			}
			result = fmt.Errorf("chat.Edit %s: %w", id, gwErr)
			return
		}
		if msg.EditedAt != nil {
			e.conv.ApplyEdited(id, msg.Content, *msg.EditedAt)
			e.publish()
		}
	})
	if err != nil {
		return err
	}
	return result
}

// Delete removes a message at once and puts it back in place if the backend refuses.
// A message the backend no longer has counts as deleted.
func (e *Engine) Delete(ctx context.Context, id string) error {
	var removed reconcile.Entry
	var pos int
	var ok bool
	err := e.call(ctx, func() {
		removed, pos, ok = e.conv.ApplyDeleted(id)
		if ok {
			e.publish()
		}
	})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("chat.Delete %s: %w", id, ErrNotInView)
	}

	gwErr := e.gw.DeleteMessage(ctx, id)
	if gwErr == nil || errors.Is(gwErr, gateway.ErrNotFound) {
		return nil
	}
	metrics.IncRollback("delete")
	if err := e.call(context.WithoutCancel(ctx), func() {
		e.conv.Restore(removed, pos)
		e.publish()
	}); err != nil {
		return err
	}
	return fmt.Errorf("chat.Delete %s: %w", id, gwErr)
}

// React toggles the signed-in user's emoji on a message and reports whether it is now
// present. The toggle is undone if the backend refuses.
func (e *Engine) React(ctx context.Context, id, emoji string) (bool, error) {
	if e.self.ID == "" {
		return false, ErrNotSignedIn
	}
	var add, ok bool
	err := e.call(ctx, func() {
		add = !e.conv.HasReaction(id, emoji, e.self.ID)
		ok = e.conv.ApplyReaction(id, emoji, e.self.ID, add)
		if ok {
			e.publish()
		}
	})
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("chat.React %s: %w", id, ErrNotInView)
	}

	var gwErr error
	if add {
		gwErr = e.gw.AddReaction(ctx, id, emoji)
	} else {
		gwErr = e.gw.RemoveReaction(ctx, id, emoji)
	}
	if gwErr == nil {
		return add, nil
	}
	metrics.IncRollback("react")
	if err := e.call(context.WithoutCancel(ctx), func() {
		e.conv.ApplyReaction(id, emoji, e.self.ID, !add)
		e.publish()
	}); err != nil {
		return !add, err
	}
	return !add, fmt.Errorf("chat.React %s: %w", id, gwErr)
}

// Search passes text to the backend search; blank text finds nothing.
func (e *Engine) Search(ctx context.Context, text string) ([]model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	return e.gw.SearchMessages(ctx, text)
}

func (e *Engine) LoadNotifications(ctx context.Context) error {
	items, err := e.gw.ListNotifications(ctx)
	if err != nil {
		return fmt.Errorf("chat.LoadNotifications: %w", err)
	}
	return e.call(ctx, func() {
		e.feed.Seed(items)
		e.publish()
	})
}

// MarkNotificationRead sets the read flag once the backend has accepted it; read
// never goes back to unread, so nothing is shown before that.
func (e *Engine) MarkNotificationRead(ctx context.Context, id string) error {
	if err := e.gw.MarkNotificationRead(ctx, id); err != nil {
		return fmt.Errorf("chat.MarkNotificationRead %s: %w", id, err)
	}
	return e.call(context.WithoutCancel(ctx), func() {
		if e.feed.MarkRead(id) {
			e.publish()
		}
	})
}

func (e *Engine) MarkAllNotificationsRead(ctx context.Context) error {
	if err := e.gw.MarkAllNotificationsRead(ctx); err != nil {
		return fmt.Errorf("chat.MarkAllNotificationsRead: %w", err)
	}
	return e.call(context.WithoutCancel(ctx), func() {
		if e.feed.MarkAllRead() > 0 {
			e.publish()
		}
	})
}

// Keystroke reports composer input; the open conversation sees typing until the
// input goes idle or the message is sent.
func (e *Engine) Keystroke() {
	e.debounce.Keystroke()
}

// StopTyping ends the typing indicator at once, e.g. when the composer is cleared.
func (e *Engine) StopTyping() {
	e.debounce.Flush()
}

func (e *Engine) announceTyping(active bool) {
	if e.pub == nil {
		return
	}
	t := live.EventStopTyping
	if active {
		t = live.EventTyping
	}
	ev, err := live.NewEvent(t, live.TypingPayload{RecipientID: e.currentScope().Peer})
	if err != nil {
		logger.Errorf("chat: %v", err)
		return
	}
	select {
	case e.typingOut <- ev:
	default:
		logger.Debugf("chat: %s dropped, publisher backlog full", t)
	}
}

// publishTyping hands typing notices to the publisher in order, off the caller's
// goroutine; a polling Send is a full HTTP round trip.
func (e *Engine) publishTyping(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-e.typingOut:
			e.sendTyping(ev)
		}
	}
}

func (e *Engine) drainTyping() {
	for {
		select {
		case ev := <-e.typingOut:
			e.sendTyping(ev)
		default:
			return
		}
	}
}

func (e *Engine) sendTyping(ev live.Event) {
	if err := e.pub.Send(ev); err != nil {
		logger.Debugf("chat: %s not sent: %v", ev.Type, err)
	}
}
