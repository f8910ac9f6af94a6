package body

import (
	"io"
	"sync"
)

// Generator writes a body exactly once.
type Generator interface {
	WriteOnce(w io.Writer) error
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(w io.Writer) error

// WriteOnce calls f(w).
func (f GeneratorFunc) WriteOnce(w io.Writer) error { return f(w) }

// SingleUseSource guards a Generator so that it is written at most once,
// even under concurrent callers.
type SingleUseSource struct {
	mu       sync.Mutex
	gen      Generator
	consumed bool
}

// SingleUse wraps gen.
func SingleUse(gen Generator) *SingleUseSource {
	return &SingleUseSource{gen: gen}
}

func (s *SingleUseSource) Kind() Kind       { return KindSingleUse }
func (s *SingleUseSource) Replayable() bool { return false }
func (s *SingleUseSource) sealed()          {}

// Write delegates to the generator on the first call. Later calls return
// ErrGeneratorConsumed without touching w.
func (s *SingleUseSource) Write(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.consumed {
		return ErrGeneratorConsumed
	}
	s.consumed = true
	return s.gen.WriteOnce(w)
}

// Consumed reports whether Write has been called.
func (s *SingleUseSource) Consumed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consumed
}
