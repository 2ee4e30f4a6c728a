// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.
package communication

import (
	"bufio"
	"net"
	"os"
	"time"

	"github.com/pkg/errors"
)

// The device is addressed through three byte-wide registers: RX delivers the
// next inbound byte, TX accepts the next outbound byte, and STATUS reports
// channel readiness. Callers poll STATUS before every transfer; a transfer
// against a not-ready channel is deferred by the caller, never dropped.
const (
	// StatusRxReady is set in STATUS when RX holds an unread byte.
	StatusRxReady byte = 0x80
	// StatusTxReady is set in STATUS when TX can accept a byte.
	StatusTxReady byte = 0x40
)

// ErrNotReady is returned when a register transfer is issued against a
// channel whose readiness bit is clear.
var ErrNotReady = errors.New("communication: register not ready")

// RegisterConn is one end of the register file. Both ends of a link expose
// the same interface; RX of one end is fed by TX of the other.
type RegisterConn interface {
	// Status returns the current STATUS byte.
	Status() (byte, error)
	// ReadByte pops the RX register. The caller must have seen StatusRxReady.
	ReadByte() (byte, error)
	// WriteByte pushes the TX register. The caller must have seen StatusTxReady.
	WriteByte(b byte) error
	// Close tears the link down. The peer observes end-of-stream.
	Close() error
}

// netRegister adapts a stream connection to the register file. TX is always
// ready (writes land in the kernel buffer); RX readiness is probed with a
// short read deadline.
type netRegister struct {
	conn  net.Conn
	r     *bufio.Reader
	probe time.Duration
}

// NewNetRegister wraps an established connection. probe bounds how long one
// STATUS read may block while checking for inbound data; zero selects a
// small default.
func NewNetRegister(conn net.Conn, probe time.Duration) RegisterConn {
	if probe <= 0 {
		probe = 5 * time.Millisecond
	}
	return &netRegister{
		conn:  conn,
		r:     bufio.NewReader(conn),
		probe: probe,
	}
}

func (c *netRegister) Status() (byte, error) {
	st := StatusTxReady
	if c.r.Buffered() > 0 {
		return st | StatusRxReady, nil
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(c.probe)); err != nil {
		return 0, errors.Wrap(err, "set status probe deadline")
	}
	_, err := c.r.Peek(1)
	if derr := c.conn.SetReadDeadline(time.Time{}); derr != nil {
		return 0, errors.Wrap(derr, "clear status probe deadline")
	}
	switch {
	case err == nil:
		st |= StatusRxReady
	case os.IsTimeout(err):
		// RX stays not ready, the caller re-polls.
	default:
		return 0, errors.Wrap(err, "probe rx register")
	}
	return st, nil
}

func (c *netRegister) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err != nil {
		return 0, errors.Wrap(err, "read rx register")
	}
	return b, nil
}

func (c *netRegister) WriteByte(b byte) error {
	if _, err := c.conn.Write([]byte{b}); err != nil {
		return errors.Wrap(err, "write tx register")
	}
	return nil
}

func (c *netRegister) Close() error {
	return c.conn.Close()
}
