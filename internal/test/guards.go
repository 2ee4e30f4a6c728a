package test

import (
	"sync"

	"RSA256/pkg/passgate"
)

// GuardInput is a settable guard source, standing in for the physical
// switches in tests. It is safe for concurrent use: the controller samples
// it from its own goroutine while the test flips the guards.
type GuardInput struct {
	mu sync.Mutex
	g  passgate.Guards
}

// NewGuardInput returns a GuardInput holding the initial sample.
func NewGuardInput(initial passgate.Guards) *GuardInput {
	return &GuardInput{g: initial}
}

// Sample implements passgate.Source.
func (s *GuardInput) Sample() passgate.Guards {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g
}

// Set replaces the live guard values.
func (s *GuardInput) Set(g passgate.Guards) {
	s.mu.Lock()
	s.g = g
	s.mu.Unlock()
}
