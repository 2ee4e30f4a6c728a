// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package passgate implements the password authentication overlay that
// decides whether genuine plaintext bytes or zero bytes leave the device.
// The gate samples a 16-bit candidate plus two guard flags from an external
// source and recomputes its verdict on every sample; authentication is
// continuous, never latched.
package passgate

import (
	log "github.com/sirupsen/logrus"
)

// Guards is one sample of the external guard inputs: the password candidate
// and the enable/change flags.
type Guards struct {
	Candidate uint16
	Enable    bool
	Change    bool
}

// Source supplies guard samples. Implementations are typically backed by
// physical switches; tests use a settable fake.
type Source interface {
	Sample() Guards
}

// State of the gate.
type State int

const (
	// StateNormal compares the candidate against the stored password.
	StateNormal State = iota
	// StateChangePassword previews the live candidate as the new stored
	// password until the change guard is released.
	StateChangePassword
)

// Gate holds the stored password and the change-mode state machine.
// State persists across computations and protocol stages; it is only the
// caller's sampling cadence that varies.
type Gate struct {
	stored uint16
	state  State
}

// NewGate returns a Gate in normal mode holding the given initial password.
func NewGate(initial uint16) *Gate {
	return &Gate{stored: initial, state: StateNormal}
}

// State returns the current gate state.
func (g *Gate) State() State {
	return g.state
}

// Step advances the state machine with one guard sample and returns the
// authentication verdict at that instant.
//
// With Enable false the verdict is always true: protection is disabled and
// the change machinery is inert. With Enable true the verdict is the
// equality test Candidate == stored. Change mode is entered only from
// normal mode, with Enable and Change both set and the candidate matching
// the current password; while it is held the stored password tracks the
// live candidate, and releasing Change commits whatever the candidate last
// was.
func (g *Gate) Step(gu Guards) bool {
	if !gu.Enable {
		// A released change guard still commits: entering change mode
		// required a correct password while enabled.
		if g.state == StateChangePassword && !gu.Change {
			g.commit()
		}
		return true
	}

	switch g.state {
	case StateNormal:
		if gu.Change && gu.Candidate == g.stored {
			g.state = StateChangePassword
			g.stored = gu.Candidate
			log.Infoln("passgate: entering password change mode")
		}
	case StateChangePassword:
		if gu.Change {
			g.stored = gu.Candidate
		} else {
			g.commit()
		}
	}
	return gu.Candidate == g.stored
}

func (g *Gate) commit() {
	g.state = StateNormal
	log.Infoln("passgate: password change committed")
}
