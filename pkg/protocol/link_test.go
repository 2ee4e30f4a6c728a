// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package protocol_test

import (
	"context"

	"golang.org/x/sync/errgroup"

	"RSA256/communication"
	"RSA256/internal/test"
	"RSA256/pkg/passgate"
	"RSA256/pkg/protocol"
)

// testLink simulates a host/device pair over an in-memory register link. The
// controller runs on its own goroutine, as it would on the device; the test
// drives the Host end and flips the Guards while the link is live.
type testLink struct {
	Host   *protocol.Host
	Guards *test.GuardInput
	Gate   *passgate.Gate

	hostConn communication.RegisterConn
	cancel   context.CancelFunc
	g        *errgroup.Group
}

// startLink wires a loopback link of the given FIFO depth to a fresh
// controller and starts serving epochs.
func startLink(depth int, password uint16, initial passgate.Guards) *testLink {
	hostConn, devConn := communication.Loopback(depth)
	guards := test.NewGuardInput(initial)
	gate := passgate.NewGate(password)
	ctrl := protocol.NewController(devConn, guards, gate)

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ctrl.Run(ctx)
	})
	return &testLink{
		Host:     protocol.NewHost(hostConn),
		Guards:   guards,
		Gate:     gate,
		hostConn: hostConn,
		cancel:   cancel,
		g:        g,
	}
}

// Shutdown closes the host end and waits for the controller to drain out.
// The controller observes end-of-stream at the next register poll.
func (l *testLink) Shutdown() error {
	_ = l.hostConn.Close()
	err := l.g.Wait()
	l.cancel()
	return err
}
