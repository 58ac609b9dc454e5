// Package live keeps a push channel to the backend open while a credential is present
// and hands every incoming event to registered listeners.
//
// Lifecycle: New -> Start(token) -> [Connecting -> Connected -> Disconnected]* -> Stop.
// A failed handshake or a dropped connection is retried after a fixed delay, a bounded
// number of times. A credential rejected at the handshake is never retried.
package live

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/moses-Dera/TaskFlow-sub000/internal/logger"
	"github.com/moses-Dera/TaskFlow-sub000/internal/metrics"
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

var (
	// ErrUnauthorized is returned by Transport.Dial when the backend refuses the credential.
	ErrUnauthorized = errors.New("live: credential rejected")
	ErrNotConnected = errors.New("live: not connected")
	ErrSendBufFull  = errors.New("live: send buffer full")
)

const (
	DefaultRetryDelay = time.Second
	DefaultMaxRetries = 5
)

// Conn is one established connection. Events is closed when the connection ends;
// Err then tells why (nil after Close).
type Conn interface {
	Events() <-chan Event
	Send(Event) error
	Err() error
	Close() error
}

// Transport opens connections. Dial returns an error wrapping ErrUnauthorized when
// the credential is refused, so the client does not retry it.
type Transport interface {
	Name() string
	Dial(ctx context.Context, token string) (Conn, error)
}

type Options struct {
	Transport  Transport
	RetryDelay time.Duration
	// MaxRetries bounds the attempts after the first failure; 0 means never retry.
	MaxRetries int
}

type Client struct {
	transport  Transport
	retryDelay time.Duration
	maxRetries int

	mu     sync.Mutex
	state  State
	token  string
	cancel context.CancelFunc
	done   chan struct{}
	conn   Conn

	lmu            sync.RWMutex
	stateListeners map[int]func(State)
	eventListeners map[int]func(Event)
	nextID         int
}

func New(opts Options) *Client {
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	retries := opts.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &Client{
		transport:      opts.Transport,
		retryDelay:     delay,
		maxRetries:     retries,
		stateListeners: make(map[int]func(State)),
		eventListeners: make(map[int]func(Event)),
	}
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start connects with token. Calling it again with the same token while running is a
// no-op; a different token replaces the running connection.
func (c *Client) Start(token string) {
	c.mu.Lock()
	if c.cancel != nil && c.token == token {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.mu.Lock()
	c.token, c.cancel, c.done = token, cancel, done
	c.mu.Unlock()

	logger.Infof("live: starting %s transport", c.transport.Name())
	go c.run(ctx, token, done)
}

// Stop tears the connection down and waits for the run loop to exit. It is safe to
// call repeatedly but must not be called from a listener.
func (c *Client) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done, c.token = nil, nil, ""
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	c.setState(Disconnected)
}

// Send writes an outgoing event on the current connection.
func (c *Client) Send(ev Event) error {
	c.mu.Lock()
	conn, state := c.conn, c.state
	c.mu.Unlock()
	if conn == nil || state != Connected {
		return ErrNotConnected
	}
	return conn.Send(ev)
}

// OnState registers fn for every state transition. The returned func unregisters it.
func (c *Client) OnState(fn func(State)) func() {
	c.lmu.Lock()
	id := c.nextID
	c.nextID++
	c.stateListeners[id] = fn
	c.lmu.Unlock()
	return func() {
		c.lmu.Lock()
		delete(c.stateListeners, id)
		c.lmu.Unlock()
	}
}

// OnEvent registers fn for every incoming event, called on the client's goroutine.
func (c *Client) OnEvent(fn func(Event)) func() {
	c.lmu.Lock()
	id := c.nextID
	c.nextID++
	c.eventListeners[id] = fn
	c.lmu.Unlock()
	return func() {
		c.lmu.Lock()
		delete(c.eventListeners, id)
		c.lmu.Unlock()
	}
}

func (c *Client) run(ctx context.Context, token string, done chan struct{}) {
	defer close(done)

	failures := 0
	for {
		if failures > 0 {
			metrics.IncReconnect()
		}
		c.setState(Connecting)
		conn, err := c.transport.Dial(ctx, token)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.setState(Disconnected)
			if errors.Is(err, ErrUnauthorized) {
				logger.Errorf("live: %v; waiting for a new credential", err)
				return
			}
			failures++
			if failures > c.maxRetries {
				logger.Errorf("live: giving up after %d attempts: %v", failures, err)
				return
			}
			logger.Infof("live: connect failed (%v), retry %d/%d in %v", err, failures, c.maxRetries, c.retryDelay)
			if !sleep(ctx, c.retryDelay) {
				return
			}
			continue
		}

		failures = 0
		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		c.setState(Connected)

		stopped, dropErr := c.pump(ctx, conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		if stopped {
			return
		}
		c.setState(Disconnected)
		if errors.Is(dropErr, ErrUnauthorized) {
			logger.Errorf("live: connection closed: %v", dropErr)
			return
		}
		failures = 1
		if failures > c.maxRetries {
			logger.Errorf("live: connection lost (%v), retries disabled", dropErr)
			return
		}
		logger.Infof("live: connection lost (%v), retry 1/%d in %v", dropErr, c.maxRetries, c.retryDelay)
		if !sleep(ctx, c.retryDelay) {
			return
		}
	}
}

// pump delivers events until the connection ends. stopped is true when ctx was cancelled.
func (c *Client) pump(ctx context.Context, conn Conn) (stopped bool, err error) {
	defer conn.Close()
	events := conn.Events()
	for {
		select {
		case <-ctx.Done():
			return true, nil
		case ev, ok := <-events:
			if !ok {
				if err := conn.Err(); err != nil {
					return false, err
				}
				return false, errors.New("live: connection closed by peer")
			}
			c.emit(ev)
		}
	}
}

func (c *Client) emit(ev Event) {
	metrics.IncEvent(string(ev.Type))
	c.lmu.RLock()
	ls := make([]func(Event), 0, len(c.eventListeners))
	for _, fn := range c.eventListeners {
		ls = append(ls, fn)
	}
	c.lmu.RUnlock()
	for _, fn := range ls {
		fn(ev)
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()

	metrics.SetConnectionState(int(s))
	logger.Debugf("live: state %s", s)
	c.lmu.RLock()
	ls := make([]func(State), 0, len(c.stateListeners))
	for _, fn := range c.stateListeners {
		ls = append(ls, fn)
	}
	c.lmu.RUnlock()
	for _, fn := range ls {
		fn(s)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func isUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
