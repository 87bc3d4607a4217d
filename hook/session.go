package hook

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/fxsml/devbridge/message"
)

// Session is one registered editor view.
type Session struct {
	id   string
	view View
	hook *Hook

	disconnected atomic.Bool

	mu   sync.Mutex
	last map[string]any
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// View returns the registered view.
func (s *Session) View() View {
	return s.view
}

// UpdateState posts an updateState envelope with state. A later init for
// this session carries state instead of the view's initial state.
func (s *Session) UpdateState(ctx context.Context, state map[string]any) error {
	if s.disconnected.Load() {
		return ErrDisconnected
	}
	s.mu.Lock()
	s.last = state
	s.mu.Unlock()

	if err := s.hook.post(ctx, message.NewUpdateState(state)); err != nil {
		return err
	}
	s.hook.config.Logger.Debug("State updated",
		"component", "hook",
		"session", s.id)
	return nil
}

// Disconnect unregisters the session.
func (s *Session) Disconnect() {
	if s.disconnected.Swap(true) {
		return
	}
	s.hook.remove(s)
	s.hook.config.Logger.Info("Editor disconnected",
		"component", "hook",
		"session", s.id)
}

func (s *Session) state() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last != nil {
		return s.last
	}
	return s.view.StateJSON()
}
