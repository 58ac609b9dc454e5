package live

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/moses-Dera/TaskFlow-sub000/internal/logger"
)

const (
	defaultWriteWait      = 10 * time.Second
	defaultPongWait       = 60 * time.Second
	defaultMaxMessageSize = 1 << 20
	sendBufSize           = 256
	eventBufSize          = 256
)

// bufPool pools bytes.Buffer for JSON encoding in writePump.
var bufPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// WebSocket dials the backend's /ws endpoint with the credential as a bearer header.
type WebSocket struct {
	URL            string
	Dialer         *websocket.Dialer
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
}

func (w *WebSocket) Name() string { return "websocket" }

func (w *WebSocket) Dial(ctx context.Context, token string) (Conn, error) {
	dialer := w.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := dialer.DialContext(ctx, w.URL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: handshake returned %d", ErrUnauthorized, resp.StatusCode)
		}
		return nil, fmt.Errorf("live: dial %s: %w", w.URL, err)
	}

	c := &wsConn{
		conn:           conn,
		events:         make(chan Event, eventBufSize),
		send:           make(chan Event, sendBufSize),
		done:           make(chan struct{}),
		writeWait:      orDefault(w.WriteWait, defaultWriteWait),
		pongWait:       orDefault(w.PongWait, defaultPongWait),
		maxMessageSize: w.MaxMessageSize,
	}
	if c.maxMessageSize <= 0 {
		c.maxMessageSize = defaultMaxMessageSize
	}
	c.start()
	return c, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// wsConn runs readPump and writePump for one connection.
// Lifecycle: start -> [readPump, writePump] -> Close -> both pumps exit.
type wsConn struct {
	conn   *websocket.Conn
	events chan Event
	send   chan Event

	writeWait      time.Duration
	pongWait       time.Duration
	maxMessageSize int64

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup

	mu  sync.Mutex
	err error
}

func (c *wsConn) start() {
	c.wg.Add(2)
	go c.writePump()
	go c.readPump()
}

func (c *wsConn) Events() <-chan Event { return c.events }

func (c *wsConn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *wsConn) Send(ev Event) error {
	select {
	case <-c.done:
		return ErrNotConnected
	default:
	}
	select {
	case c.send <- ev:
		return nil
	default:
		return ErrSendBufFull
	}
}

// Close stops both pumps and waits for them. Safe to call multiple times.
func (c *wsConn) Close() error {
	c.once.Do(func() {
		close(c.done)
	})
	c.wg.Wait()
	return nil
}

func (c *wsConn) fail(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
}

func (c *wsConn) closing() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// readPump decodes frames into events. It owns c.events and closes it on exit.
func (c *wsConn) readPump() {
	defer c.wg.Done()
	defer close(c.events)
	defer c.conn.Close()

	c.conn.SetReadLimit(c.maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
		c.fail(err)
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})
	c.conn.SetPingHandler(func(data string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
			return err
		}
		return c.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(c.writeWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if c.closing() {
				return
			}
			if ce, ok := err.(*websocket.CloseError); ok && ce.Code == websocket.ClosePolicyViolation {
				c.fail(fmt.Errorf("%w: %s", ErrUnauthorized, ce.Text))
				return
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Errorf("live: ws read error: %v", err)
			}
			c.fail(err)
			return
		}

		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			logger.Errorf("live: ws unmarshal error: %v", err)
			continue
		}
		if ev.Type == "" {
			continue
		}
		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}

// writePump writes queued events and keeps the connection alive with pings.
// Exits on Close, write error, or when readPump closed the connection.
func (c *wsConn) writePump() {
	defer c.wg.Done()
	ticker := time.NewTicker((c.pongWait * 9) / 10)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			if err := c.conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
				logger.Debugf("live: ws close message: %v", err)
			}
			return
		case ev := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
				c.fail(err)
				return
			}
			buf := bufPool.Get().(*bytes.Buffer)
			buf.Reset()
			if err := json.NewEncoder(buf).Encode(ev); err != nil {
				bufPool.Put(buf)
				logger.Errorf("live: ws marshal error: %v", err)
				continue
			}
			data := buf.Bytes()
			// json.Encoder appends '\n'; trim it for WebSocket text messages.
			if len(data) > 0 && data[len(data)-1] == '\n' {
				data = data[:len(data)-1]
			}
			writeErr := c.conn.WriteMessage(websocket.TextMessage, data)
			bufPool.Put(buf)
			if writeErr != nil {
				c.fail(writeErr)
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
				c.fail(err)
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.fail(err)
				return
			}
		}
	}
}
