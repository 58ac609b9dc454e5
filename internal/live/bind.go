package live

import "github.com/moses-Dera/TaskFlow-sub000/internal/session"

// Bind ties the client to the session credential: connected while one is present,
// torn down when it is cleared. The returned func stops following the session and
// stops the client.
func Bind(s *session.Session, c *Client) (unbind func()) {
	unsubscribe := s.Subscribe(func(token string, present bool) {
		if present {
			c.Start(token)
			return
		}
		c.Stop()
	})
	return func() {
		unsubscribe()
		c.Stop()
	}
}
