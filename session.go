package tex2html

import (
	"context"
	"sync/atomic"
)

// Renderer runs render passes. *Converter implements it.
type Renderer interface {
	Convert(ctx context.Context, input Input) (*Result, error)
}

// Compile-time interface implementation check.
var _ Renderer = (*Converter)(nil)

// Session serializes the results of repeated renders of one view, such as
// a page re-rendered while its source is being edited. Each Render starts a
// new pass; a pass that finishes after a newer one started reports
// ErrSuperseded and its result is dropped. Passes are not cancelled early.
type Session struct {
	conv Renderer
	gen  atomic.Uint64
}

// NewSession returns a session rendering through conv.
func NewSession(conv Renderer) *Session {
	return &Session{conv: conv}
}

// Render runs a pass and returns its result unless a newer pass began
// meanwhile.
func (s *Session) Render(ctx context.Context, input Input) (*Result, error) {
	gen := s.gen.Add(1)

	res, err := s.conv.Convert(ctx, input)
	if s.gen.Load() != gen {
		return nil, ErrSuperseded
	}
	return res, err
}

// Current reports how many passes have been started.
func (s *Session) Current() uint64 {
	return s.gen.Load()
}
