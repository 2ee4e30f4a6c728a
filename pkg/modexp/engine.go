// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package modexp implements 256-bit modular exponentiation by square-and-
// multiply over Montgomery residues. Each exponent bit runs two Montgomery
// multiplications — the conditional accumulate and the unconditional square —
// as a pair of tasks joined under a barrier before the round advances.
package modexp

import (
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"RSA256/internal/params"
	"RSA256/pkg/montgomery"
	"RSA256/pkg/uint256"
)

// ErrBusy is returned when a computation is started while another one is
// still running. A running exponentiation cannot be re-triggered; callers
// wait for completion and then restart freely.
var ErrBusy = errors.New("modexp: engine busy")

// State of the engine, mirroring its lifecycle: idle until first use,
// running for the duration of one exponentiation, done afterwards.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateDone
)

// Engine computes c^d mod n. The zero value is not usable; construct with
// New. An Engine is safe for concurrent use, but only one computation runs
// at a time.
type Engine struct {
	mu     sync.Mutex
	state  State
	result uint256.Int
}

// New returns an idle Engine.
func New() *Engine {
	return &Engine{state: StateIdle}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Result returns the result of the last completed computation, and whether
// one has completed.
func (e *Engine) Result() (uint256.Int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result, e.state == StateDone
}

// ModExp computes c^d mod n and records the result. Re-triggering after
// completion restarts from scratch and yields the same result for the same
// inputs; triggering while a computation is in flight returns ErrBusy.
// n must be odd and non-zero, which is not checked.
func (e *Engine) ModExp(c, d, n uint256.Int) (uint256.Int, error) {
	e.mu.Lock()
	if e.state == StateRunning {
		e.mu.Unlock()
		return uint256.Int{}, ErrBusy
	}
	e.state = StateRunning
	e.mu.Unlock()

	log.Debugln("modexp: computation started")
	res := Exp(c, d, n)
	log.Debugln("modexp: computation done")

	e.mu.Lock()
	e.result = res
	e.state = StateDone
	e.mu.Unlock()
	return res, nil
}

// Exp is the pure exponentiation: it converts c into the Montgomery residue
// t = c*R mod n, seeds a plain-form accumulator with 1, and runs 256 rounds.
// Round i multiplies the accumulator by t when bit i of d is set, and squares
// t unconditionally; both multiplications run concurrently and the round only
// advances once both have finished.
//
// The accumulator stays in plain form throughout: each accumulate folds in
// one factor of R^-1, cancelling the single factor of R the residue carries,
// so no final conversion out of Montgomery form is needed. The pairing of a
// plain accumulator with a Montgomery residue is load-bearing and must not be
// "fixed" by adding a trailing reduction.
func Exp(c, d, n uint256.Int) uint256.Int {
	t := montgomery.ToResidue(c, n)
	var m uint256.Int
	m.SetUint64(1)

	for i := 0; i < params.BitsWord; i++ {
		var (
			g     errgroup.Group
			mNext uint256.Int
			tNext uint256.Int
		)
		mult := d.Bit(i) == 1
		if mult {
			g.Go(func() error {
				mNext = montgomery.Multiply(m, t, n)
				return nil
			})
		}
		g.Go(func() error {
			tNext = montgomery.Multiply(t, t, n)
			return nil
		})
		// Barrier: m and t only advance once both multiplications are in.
		_ = g.Wait()

		if mult {
			m = mNext
		}
		t = tNext
	}
	return m
}
