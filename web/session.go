package web

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/zalepa/crimedash/dashboard"
)

// session holds one client's two dashboards over the shared dataset.
type session struct {
	admin *dashboard.Controller
	user  *dashboard.Controller
}

func (s *session) controller(v dashboard.View) *dashboard.Controller {
	if v == dashboard.Admin {
		return s.admin
	}
	return s.user
}

// session returns the client's dashboards, creating them on first use.
func (s *Server) session(ctx context.Context, id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions.Get(id); ok {
		return sess, nil
	}

	sess := &session{
		admin: dashboard.New(dashboard.Admin, s.cfg),
		user:  dashboard.New(dashboard.User, s.cfg),
	}
	if s.loaded {
		for _, c := range []*dashboard.Controller{sess.admin, sess.user} {
			if err := c.Attach(ctx, s.records); err != nil {
				return nil, goerr.Wrap(err, "failed to prepare dashboard", goerr.V("view", c.View()))
			}
		}
	}

	if evicted := s.sessions.Add(id, sess); evicted {
		ctxlog.From(ctx).Debug("session cache full, evicted least recent client")
	}
	return sess, nil
}

func (s *Server) dropSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions.Remove(id)
}
