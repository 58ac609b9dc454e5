package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/moses-Dera/TaskFlow-sub000/internal/model"
)

// LoginResult is what the backend returns for a successful sign-in.
type LoginResult struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// Login exchanges email and password for a bearer credential. It is the only call
// that needs none.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var out LoginResult
	err := c.do(ctx, request{
		op:        "Login",
		method:    http.MethodPost,
		path:      "/api/auth/login",
		body:      map[string]string{"email": email, "password": password},
		anonymous: true,
	}, &out)
	return out, err
}

func scopeQuery(scope model.Scope) url.Values {
	q := url.Values{}
	if scope.IsGroup() {
		q.Set("scope", model.GroupKey)
	} else {
		q.Set("recipient_id", scope.Peer)
	}
	return q
}

// ListMessages fetches the snapshot of one conversation, oldest first.
func (c *Client) ListMessages(ctx context.Context, scope model.Scope) ([]model.Message, error) {
	var out []model.Message
	err := c.do(ctx, request{
		op:     "ListMessages",
		method: http.MethodGet,
		path:   "/api/chat/messages",
		query:  scopeQuery(scope),
	}, &out)
	return out, err
}

// SendRequest is a new message. RecipientID empty means the group conversation.
// ClientMessageID is echoed back on the created message and its live event.
type SendRequest struct {
	Content         string             `json:"content"`
	RecipientID     string             `json:"recipient_id,omitempty"`
	ReplyToID       string             `json:"reply_to,omitempty"`
	Attachments     []model.Attachment `json:"attachments,omitempty"`
	ClientMessageID string             `json:"client_message_id,omitempty"`
}

func (c *Client) SendMessage(ctx context.Context, in SendRequest) (model.Message, error) {
	var out model.Message
	err := c.do(ctx, request{
		op:     "SendMessage",
		method: http.MethodPost,
		path:   "/api/chat/messages",
		body:   in,
	}, &out)
	return out, err
}

func (c *Client) EditMessage(ctx context.Context, id, content string) (model.Message, error) {
	var out model.Message
	err := c.do(ctx, request{
		op:     "EditMessage",
		method: http.MethodPut,
		path:   "/api/chat/messages/" + url.PathEscape(id),
		body:   map[string]string{"content": content},
	}, &out)
	return out, err
}

func (c *Client) DeleteMessage(ctx context.Context, id string) error {
	return c.do(ctx, request{
		op:     "DeleteMessage",
		method: http.MethodDelete,
		path:   "/api/chat/messages/" + url.PathEscape(id),
	}, nil)
}

func (c *Client) AddReaction(ctx context.Context, id, emoji string) error {
	return c.do(ctx, request{
		op:     "AddReaction",
		method: http.MethodPost,
		path:   "/api/chat/messages/" + url.PathEscape(id) + "/reactions",
		body:   map[string]string{"emoji": emoji},
	}, nil)
}

func (c *Client) RemoveReaction(ctx context.Context, id, emoji string) error {
	return c.do(ctx, request{
		op:     "RemoveReaction",
		method: http.MethodDelete,
		path:   "/api/chat/messages/" + url.PathEscape(id) + "/reactions",
		query:  url.Values{"emoji": {emoji}},
	}, nil)
}

// SearchMessages runs a free-text search across the conversations the user can see.
func (c *Client) SearchMessages(ctx context.Context, text string) ([]model.Message, error) {
	var out []model.Message
	err := c.do(ctx, request{
		op:     "SearchMessages",
		method: http.MethodGet,
		path:   "/api/chat/messages/search",
		query:  url.Values{"q": {text}},
	}, &out)
	return out, err
}

// MarkScopeRead tells the backend everything in scope has been seen.
func (c *Client) MarkScopeRead(ctx context.Context, scope model.Scope) error {
	body := map[string]string{"scope": model.GroupKey}
	if !scope.IsGroup() {
		body = map[string]string{"recipient_id": scope.Peer}
	}
	return c.do(ctx, request{
		op:     "MarkScopeRead",
		method: http.MethodPut,
		path:   "/api/chat/read",
		body:   body,
	}, nil)
}
