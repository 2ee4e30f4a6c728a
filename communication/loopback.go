// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.
package communication

import (
	"io"
	"sync"
)

// queue is one direction of a loopback link: a bounded byte FIFO whose fill
// level drives the readiness bits.
type queue struct {
	mu     sync.Mutex
	buf    []byte
	depth  int
	closed bool
}

func (q *queue) push(b byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return io.ErrClosedPipe
	}
	if len(q.buf) >= q.depth {
		return ErrNotReady
	}
	q.buf = append(q.buf, b)
	return nil
}

func (q *queue) pop() (byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buf) == 0 {
		if q.closed {
			return 0, io.EOF
		}
		return 0, ErrNotReady
	}
	b := q.buf[0]
	q.buf = q.buf[1:]
	return b, nil
}

func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// loopEnd is one end of an in-memory register link.
type loopEnd struct {
	in  *queue
	out *queue
}

// Loopback returns the two ends of an in-memory register link with the given
// FIFO depth per direction. It stands in for the physical bus in tests and
// the demo driver; a full FIFO makes TX not ready, an empty one makes RX not
// ready, so poll loops are exercised for real.
func Loopback(depth int) (a, b RegisterConn) {
	if depth <= 0 {
		depth = 1
	}
	ab := &queue{depth: depth}
	ba := &queue{depth: depth}
	return &loopEnd{in: ba, out: ab}, &loopEnd{in: ab, out: ba}
}

func (e *loopEnd) Status() (byte, error) {
	var st byte
	e.in.mu.Lock()
	rxEmpty := len(e.in.buf) == 0
	rxClosed := e.in.closed
	e.in.mu.Unlock()
	if !rxEmpty {
		st |= StatusRxReady
	} else if rxClosed {
		// Peer is gone and everything buffered has been drained.
		return 0, io.EOF
	}
	e.out.mu.Lock()
	if !e.out.closed && len(e.out.buf) < e.out.depth {
		st |= StatusTxReady
	}
	e.out.mu.Unlock()
	return st, nil
}

func (e *loopEnd) ReadByte() (byte, error) {
	return e.in.pop()
}

func (e *loopEnd) WriteByte(b byte) error {
	return e.out.push(b)
}

func (e *loopEnd) Close() error {
	e.out.close()
	e.in.close()
	return nil
}
