package live

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/moses-Dera/TaskFlow-sub000/internal/gateway"
	"github.com/moses-Dera/TaskFlow-sub000/internal/logger"
)

const defaultPollInterval = 2 * time.Second

// Polling receives events by repeatedly asking the backend for everything after the
// last cursor. It is used where a WebSocket cannot be opened.
type Polling struct {
	Gateway  *gateway.Client
	Interval time.Duration
}

func (p *Polling) Name() string { return "polling" }

// Dial performs the first poll as the handshake: it establishes the cursor and
// surfaces a rejected credential before the connection counts as open.
func (p *Polling) Dial(ctx context.Context, token string) (Conn, error) {
	gw := p.Gateway.WithCredential(token)
	batch, err := gw.PollEvents(ctx, "")
	if err != nil {
		if gateway.IsAuthRejected(err) {
			return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return nil, fmt.Errorf("live: poll handshake: %w", err)
	}

	pctx, cancel := context.WithCancel(context.Background())
	c := &pollConn{
		gw:       gw,
		interval: p.Interval,
		cursor:   batch.Cursor,
		events:   make(chan Event, eventBufSize),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	if c.interval <= 0 {
		c.interval = defaultPollInterval
	}
	go c.loop(pctx, batch.Events)
	return c, nil
}

type pollConn struct {
	gw       *gateway.Client
	interval time.Duration
	cursor   string
	events   chan Event
	cancel   context.CancelFunc
	done     chan struct{}
	once     sync.Once

	mu  sync.Mutex
	err error
}

func (c *pollConn) Events() <-chan Event { return c.events }

func (c *pollConn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Send publishes the event through the REST API.
func (c *pollConn) Send(ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("live: encode %s: %w", ev.Type, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return c.gw.PublishEvent(ctx, raw)
}

func (c *pollConn) Close() error {
	c.once.Do(c.cancel)
	<-c.done
	return nil
}

func (c *pollConn) loop(ctx context.Context, first []json.RawMessage) {
	defer close(c.done)
	defer close(c.events)

	if !c.deliver(ctx, first) {
		return
	}
	for {
		batch, err := c.gw.PollEvents(ctx, c.cursor)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if gateway.IsAuthRejected(err) {
				err = fmt.Errorf("%w: %v", ErrUnauthorized, err)
			}
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
			return
		}
		if batch.Cursor != "" {
			c.cursor = batch.Cursor
		}
		if !c.deliver(ctx, batch.Events) {
			return
		}
		if len(batch.Events) == 0 && !sleep(ctx, c.interval) {
			return
		}
	}
}

func (c *pollConn) deliver(ctx context.Context, raws []json.RawMessage) bool {
	for _, raw := range raws {
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil || ev.Type == "" {
			logger.Errorf("live: poll: skipping malformed event: %s", raw)
			continue
		}
		select {
		case c.events <- ev:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// Fallback dials Primary and, when that fails for any reason other than a rejected
// credential, Secondary.
type Fallback struct {
	Primary   Transport
	Secondary Transport
}

func (f *Fallback) Name() string {
	return f.Primary.Name() + "+" + f.Secondary.Name()
}

func (f *Fallback) Dial(ctx context.Context, token string) (Conn, error) {
	conn, err := f.Primary.Dial(ctx, token)
	if err == nil || ctx.Err() != nil || isUnauthorized(err) {
		return conn, err
	}
	logger.Infof("live: %s unavailable (%v), using %s", f.Primary.Name(), err, f.Secondary.Name())
	return f.Secondary.Dial(ctx, token)
}
