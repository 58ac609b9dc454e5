// Package chat drives the reconciler: it owns the open conversation, unread counters,
// presence, typing and the notification feed, and applies live events, fetch results
// and user intents to them one at a time on a single goroutine.
package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/moses-Dera/TaskFlow-sub000/internal/gateway"
	"github.com/moses-Dera/TaskFlow-sub000/internal/live"
	"github.com/moses-Dera/TaskFlow-sub000/internal/model"
	"github.com/moses-Dera/TaskFlow-sub000/internal/reconcile"
	"github.com/moses-Dera/TaskFlow-sub000/internal/typing"
)

var (
	// ErrSuperseded is returned by SwitchScope when another switch started before its
	// snapshot arrived; the snapshot was discarded.
	ErrSuperseded  = errors.New("chat: scope switch superseded")
	ErrClosed      = errors.New("chat: engine stopped")
	ErrEmpty       = errors.New("chat: message has no content")
	ErrNotInView   = errors.New("chat: message is not in the open conversation")
	ErrNotSignedIn = errors.New("chat: no signed-in user")
)

// Gateway is the subset of *gateway.Client the engine calls.
type Gateway interface {
	ListMessages(ctx context.Context, scope model.Scope) ([]model.Message, error)
	SendMessage(ctx context.Context, in gateway.SendRequest) (model.Message, error)
	EditMessage(ctx context.Context, id, content string) (model.Message, error)
	DeleteMessage(ctx context.Context, id string) error
	AddReaction(ctx context.Context, id, emoji string) error
	RemoveReaction(ctx context.Context, id, emoji string) error
	SearchMessages(ctx context.Context, text string) ([]model.Message, error)
	MarkScopeRead(ctx context.Context, scope model.Scope) error
	ListNotifications(ctx context.Context) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
	UploadAttachment(ctx context.Context, up gateway.Upload) (model.Attachment, error)
}

// Publisher sends outgoing live events; *live.Client implements it.
type Publisher interface {
	Send(live.Event) error
}

type Options struct {
	Gateway Gateway
	Self    model.UserRef
	// Publisher may be nil, in which case typing is not announced.
	Publisher  Publisher
	TypingIdle time.Duration
	TypingTTL  time.Duration
}

// View is a snapshot of everything the presentation layer shows.
type View struct {
	Scope               model.Scope
	Loading             bool
	Entries             []reconcile.Entry
	Unread              map[string]int
	Online              []string
	Typing              []string
	Notifications       []model.Notification
	UnreadNotifications int
	Connection          live.State
}

type Engine struct {
	gw   Gateway
	self model.UserRef
	pub  Publisher
	now  func() time.Time

	ops     chan func()
	stopped chan struct{}
	running sync.Once

	debounce  *typing.Debouncer
	typingOut chan live.Event
	scopeMu   sync.RWMutex
	scope     model.Scope // mirror of conv.Scope() for the typing publisher

	// Owned by the Run goroutine.
	conv          *reconcile.Conversation
	unread        reconcile.Unread
	feed          *reconcile.Feed
	presence      reconcile.Presence
	typing        *reconcile.Typing
	connection    live.State
	wasConnected  bool
	typingShown   bool
	gen           uint64
	seeding       bool
	seedScope     model.Scope
	buffered      []live.Event
	subscribers   map[int]func(View)
	nextSubscribe int
}

func New(opts Options) *Engine {
	e := &Engine{
		gw:          opts.Gateway,
		self:        opts.Self,
		pub:         opts.Publisher,
		now:         time.Now,
		ops:         make(chan func(), 256),
		stopped:     make(chan struct{}),
		typingOut:   make(chan live.Event, 16),
		conv:        reconcile.NewConversation(model.Group()),
		unread:      reconcile.Unread{},
		feed:        reconcile.NewFeed(),
		presence:    reconcile.Presence{},
		typing:      reconcile.NewTyping(opts.TypingTTL),
		subscribers: make(map[int]func(View)),
	}
	e.debounce = typing.New(opts.TypingIdle, e.announceTyping)
	return e
}

// Run processes work until ctx is done. Exactly one Run may be active per engine.
func (e *Engine) Run(ctx context.Context) {
	started := false
	e.running.Do(func() { started = true })
	if !started {
		return
	}
	defer close(e.stopped)
	go e.publishTyping(ctx)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			e.debounce.Flush()
			e.drainTyping()
			return
		case fn := <-e.ops:
			fn()
		case <-ticker.C:
			// Typing indicators expire without an event.
			if len(e.typing.Active(e.now())) > 0 || e.typingShown {
				e.publish()
			}
		}
	}
}

// call runs fn on the loop and waits for it.
func (e *Engine) call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case e.ops <- func() { fn(); close(done) }:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.stopped:
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-e.stopped:
		return ErrClosed
	}
}

// post queues fn on the loop without waiting for it to run.
func (e *Engine) post(fn func()) {
	select {
	case e.ops <- fn:
	case <-e.stopped:
	}
}

// Subscribe registers fn to receive a View after every change, starting with the
// current one. fn runs on the engine goroutine and must not call back into the engine.
func (e *Engine) Subscribe(ctx context.Context, fn func(View)) (unsubscribe func(), err error) {
	var id int
	err = e.call(ctx, func() {
		id = e.nextSubscribe
		e.nextSubscribe++
		e.subscribers[id] = fn
		fn(e.view())
	})
	if err != nil {
		return func() {}, err
	}
	return func() {
		e.post(func() { delete(e.subscribers, id) })
	}, nil
}

// Snapshot returns the current View.
func (e *Engine) Snapshot(ctx context.Context) (View, error) {
	var v View
	err := e.call(ctx, func() { v = e.view() })
	return v, err
}

func (e *Engine) view() View {
	active := e.typing.Active(e.now())
	e.typingShown = len(active) > 0
	return View{
		Scope:               e.conv.Scope(),
		Loading:             e.seeding,
		Entries:             e.conv.Entries(),
		Unread:              e.unread.Snapshot(),
		Online:              e.presence.Users(),
		Typing:              active,
		Notifications:       e.feed.Items(),
		UnreadNotifications: e.feed.UnreadCount(),
		Connection:          e.connection,
	}
}

func (e *Engine) publish() {
	if len(e.subscribers) == 0 {
		e.typingShown = len(e.typing.Active(e.now())) > 0
		return
	}
	v := e.view()
	for _, fn := range e.subscribers {
		fn(v)
	}
}

func (e *Engine) setScope(s model.Scope) {
	e.scopeMu.Lock()
	e.scope = s
	e.scopeMu.Unlock()
}

func (e *Engine) currentScope() model.Scope {
	e.scopeMu.RLock()
	defer e.scopeMu.RUnlock()
	return e.scope
}
