package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/moses-Dera/TaskFlow-sub000/internal/model"
)

func (c *Client) ListNotifications(ctx context.Context) ([]model.Notification, error) {
	var out []model.Notification
	err := c.do(ctx, request{
		op:     "ListNotifications",
		method: http.MethodGet,
		path:   "/api/notifications",
	}, &out)
	return out, err
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, request{
		op:     "MarkNotificationRead",
		method: http.MethodPut,
		path:   "/api/notifications/" + url.PathEscape(id) + "/read",
	}, nil)
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.do(ctx, request{
		op:     "MarkAllNotificationsRead",
		method: http.MethodPut,
		path:   "/api/notifications/read-all",
	}, nil)
}

// EventBatch is one page of the polling event feed. Events are undecoded
// {"type","payload"} objects; Cursor is passed back on the next poll.
type EventBatch struct {
	Events []json.RawMessage `json:"events"`
	Cursor string            `json:"cursor"`
}

// PollEvents waits server-side for events after cursor (empty: from now).
func (c *Client) PollEvents(ctx context.Context, cursor string) (EventBatch, error) {
	var out EventBatch
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	err := c.do(ctx, request{
		op:     "PollEvents",
		method: http.MethodGet,
		path:   "/api/events",
		query:  q,
	}, &out)
	return out, err
}

// PublishEvent posts an outgoing {"type","payload"} event (typing indicators) for
// clients that are not on the WebSocket.
func (c *Client) PublishEvent(ctx context.Context, event json.RawMessage) error {
	return c.do(ctx, request{
		op:     "PublishEvent",
		method: http.MethodPost,
		path:   "/api/events",
		body:   event,
	}, nil)
}
