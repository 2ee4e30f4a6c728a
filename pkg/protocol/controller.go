// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package protocol implements the byte-stream host protocol of the decryption
// device. The device side (Controller) sequences key intake, package intake,
// computation and result drain over the register file; the host side (Host)
// speaks the matching other half. One key epoch on the wire is
//
//	[n: 32 bytes][d: 32 bytes][count: 1 byte]
//	count × { [ciphertext: 32 bytes] in, [plaintext: 31 bytes] out }
//
// with all words MSB-first. The most significant plaintext byte is never
// transmitted. After the last package the device returns to key intake; keys
// are not cached across epochs.
package protocol

import (
	"context"
	"errors"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"RSA256/communication"
	"RSA256/internal/params"
	"RSA256/internal/save"
	"RSA256/pkg/hash"
	"RSA256/pkg/modexp"
	"RSA256/pkg/passgate"
	"RSA256/pkg/uint256"
)

// Stage names the protocol stage a controller is in. Stages advance strictly
// in order within an epoch.
type Stage string

const (
	StageKeyLoad Stage = "key-load"
	StageCount   Stage = "count"
	StageCipher  Stage = "cipher"
	StageCompute Stage = "compute"
	StageDrain   Stage = "drain"
)

// ErrPollTimeout is returned when a register poll exceeded its configured
// bound. With no bound configured a stuck link stalls the controller
// indefinitely, which is the faithful behaviour of the bus.
var ErrPollTimeout = errors.New("protocol: register poll timed out")

// pollInterval is the idle delay between two STATUS reads of a spin poll.
const pollInterval = 100 * time.Microsecond

// EpochResult records one completed key epoch.
type EpochResult struct {
	// Fingerprint identifies the key epoch.
	Fingerprint string
	// Plaintexts holds the 31 transmitted result bytes per package, after
	// gating. Suppressed bytes appear as zero here exactly as they did on
	// the wire.
	Plaintexts [][]byte
}

// Controller is the device side of the protocol. It owns the modulus,
// exponent and ciphertext words between transport and engine, and consults
// the password gate before every result byte leaves the device.
type Controller struct {
	conn   communication.RegisterConn
	engine *modexp.Engine
	gate   *passgate.Gate
	guards passgate.Source

	pollTimeout time.Duration
	fixtureDir  string
}

// NewController returns a Controller reading guard samples from guards and
// gating output through gate.
func NewController(conn communication.RegisterConn, guards passgate.Source, gate *passgate.Gate) *Controller {
	return &Controller{
		conn:   conn,
		engine: modexp.New(),
		gate:   gate,
		guards: guards,
	}
}

// SetPollTimeout bounds every register spin poll. Zero, the default, spins
// forever.
func (c *Controller) SetPollTimeout(d time.Duration) {
	c.pollTimeout = d
}

// SetFixtureDir enables saving one fixture per completed epoch under dir.
func (c *Controller) SetFixtureDir(dir string) {
	c.fixtureDir = dir
}

// Run serves key epochs until the link closes or ctx is cancelled. A closed
// link observed at a key-epoch boundary is a clean shutdown.
func (c *Controller) Run(ctx context.Context) error {
	for {
		if _, err := c.RunEpoch(ctx); err != nil {
			if errors.Is(err, io.EOF) {
				log.Infoln("controller: link closed, shutting down")
				return nil
			}
			return err
		}
	}
}

// RunEpoch serves exactly one key epoch: key intake, package count, then
// count packages of ciphertext intake, computation and gated result drain.
// The key words live only for the duration of the call.
func (c *Controller) RunEpoch(ctx context.Context) (*EpochResult, error) {
	n, err := c.readWord(ctx)
	if err != nil {
		return nil, Error{Stage: StageKeyLoad, Err: err}
	}
	d, err := c.readWord(ctx)
	if err != nil {
		return nil, Error{Stage: StageKeyLoad, Err: err}
	}
	count, err := c.readByte(ctx)
	if err != nil {
		return nil, Error{Stage: StageCount, Err: err}
	}

	fp := hash.KeyFingerprint(&n, &d)
	log.Infof("controller: key epoch %s loaded, %d package(s)", fp, count)

	result := &EpochResult{Fingerprint: fp}
	for pkg := 0; pkg < int(count); pkg++ {
		cipher, err := c.readWord(ctx)
		if err != nil {
			return nil, Error{Stage: StageCipher, Err: err}
		}
		plain, err := c.engine.ModExp(cipher, d, n)
		if err != nil {
			return nil, Error{Stage: StageCompute, Err: err}
		}
		sent, err := c.drain(ctx, &plain)
		if err != nil {
			return nil, Error{Stage: StageDrain, Err: err}
		}
		result.Plaintexts = append(result.Plaintexts, sent)
		log.Debugf("controller: epoch %s package %d/%d done", fp, pkg+1, count)
	}

	if c.fixtureDir != "" {
		fixture := &save.EpochFixture{
			Fingerprint: fp,
			Modulus:     n.Bytes(),
			Exponent:    d.Bytes(),
			Plaintexts:  result.Plaintexts,
		}
		if err := save.SaveEpochFixture(c.fixtureDir, fixture); err != nil {
			// Fixture saving is best effort and never fails the epoch.
			log.Errorf("controller: fail save epoch fixture: %v", err)
		}
	}
	return result, nil
}

// drain writes the 31 transmitted bytes of one plaintext word, consulting the
// gate before each byte. Byte 0, the most significant, is dropped.
func (c *Controller) drain(ctx context.Context, plain *uint256.Int) ([]byte, error) {
	raw := plain.Bytes()
	sent := make([]byte, 0, params.BytesResult)
	suppressed := 0
	for _, b := range raw[params.BytesWord-params.BytesResult:] {
		if err := c.await(ctx, communication.StatusTxReady); err != nil {
			return nil, err
		}
		if !c.gate.Step(c.guards.Sample()) {
			b = 0
			suppressed++
		}
		if err := c.conn.WriteByte(b); err != nil {
			return nil, err
		}
		sent = append(sent, b)
	}
	if suppressed > 0 {
		log.Warnf("controller: authentication failed, %d byte(s) suppressed", suppressed)
	}
	return sent, nil
}

// readWord reads one 32-byte MSB-first word, polling RX before every byte.
func (c *Controller) readWord(ctx context.Context) (uint256.Int, error) {
	buf := make([]byte, params.BytesWord)
	for i := range buf {
		b, err := c.readByte(ctx)
		if err != nil {
			return uint256.Int{}, err
		}
		buf[i] = b
	}
	var w uint256.Int
	w.SetBytes(buf)
	return w, nil
}

func (c *Controller) readByte(ctx context.Context) (byte, error) {
	if err := c.await(ctx, communication.StatusRxReady); err != nil {
		return 0, err
	}
	return c.conn.ReadByte()
}

// await spins on STATUS until one of the bits in mask is set. The spin is
// bounded by the configured poll timeout, if any, and by ctx. The guard
// inputs keep being sampled while the controller waits, so a password change
// can run to completion even with the protocol paused mid-stage.
func (c *Controller) await(ctx context.Context, mask byte) error {
	var deadline time.Time
	if c.pollTimeout > 0 {
		deadline = time.Now().Add(c.pollTimeout)
	}
	for {
		st, err := c.conn.Status()
		if err != nil {
			return err
		}
		if st&mask != 0 {
			return nil
		}
		c.gate.Step(c.guards.Sample())
		if err := ctx.Err(); err != nil {
			return err
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return ErrPollTimeout
		}
		time.Sleep(pollInterval)
	}
}
