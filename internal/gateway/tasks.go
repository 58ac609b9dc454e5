package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/moses-Dera/TaskFlow-sub000/internal/model"
)

// Tasks and performance are shown as the backend returns them; the client applies no rules.

func (c *Client) ListTasks(ctx context.Context) ([]model.Task, error) {
	var out []model.Task
	err := c.do(ctx, request{
		op:     "ListTasks",
		method: http.MethodGet,
		path:   "/api/tasks",
	}, &out)
	return out, err
}

func (c *Client) UpdateTaskStatus(ctx context.Context, id string, status model.TaskStatus) (model.Task, error) {
	var out model.Task
	err := c.do(ctx, request{
		op:     "UpdateTaskStatus",
		method: http.MethodPut,
		path:   "/api/tasks/" + url.PathEscape(id),
		body:   map[string]model.TaskStatus{"status": status},
	}, &out)
	return out, err
}

func (c *Client) ListPerformance(ctx context.Context) ([]model.Performance, error) {
	var out []model.Performance
	err := c.do(ctx, request{
		op:     "ListPerformance",
		method: http.MethodGet,
		path:   "/api/performance",
	}, &out)
	return out, err
}
