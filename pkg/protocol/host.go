// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.
package protocol

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"RSA256/communication"
	"RSA256/internal/params"
	"RSA256/pkg/uint256"
)

// Host is the feeding side of the protocol: it writes the key words and
// ciphertexts and collects the 31-byte plaintexts. Like the controller it
// polls STATUS before every transfer.
type Host struct {
	conn        communication.RegisterConn
	pollTimeout time.Duration
}

// NewHost returns a Host on the given register file.
func NewHost(conn communication.RegisterConn) *Host {
	return &Host{conn: conn}
}

// SetPollTimeout bounds every register spin poll. Zero, the default, spins
// forever.
func (h *Host) SetPollTimeout(d time.Duration) {
	h.pollTimeout = d
}

// RunEpoch drives one full key epoch: it loads (n, d), announces
// len(ciphers) packages, and per package writes the ciphertext and reads
// back the 31 transmitted plaintext bytes.
func (h *Host) RunEpoch(ctx context.Context, n, d uint256.Int, ciphers []uint256.Int) ([][]byte, error) {
	if len(ciphers) > 255 {
		return nil, errors.Errorf("host: %d packages exceed the one-byte package count", len(ciphers))
	}
	if err := h.writeWord(ctx, &n); err != nil {
		return nil, Error{Stage: StageKeyLoad, Err: err}
	}
	if err := h.writeWord(ctx, &d); err != nil {
		return nil, Error{Stage: StageKeyLoad, Err: err}
	}
	if err := h.writeByte(ctx, byte(len(ciphers))); err != nil {
		return nil, Error{Stage: StageCount, Err: err}
	}
	log.Infof("host: key epoch loaded, sending %d package(s)", len(ciphers))

	plaintexts := make([][]byte, 0, len(ciphers))
	for i := range ciphers {
		if err := h.writeWord(ctx, &ciphers[i]); err != nil {
			return nil, Error{Stage: StageCipher, Err: err}
		}
		plain := make([]byte, params.BytesResult)
		for j := range plain {
			b, err := h.readByte(ctx)
			if err != nil {
				return nil, Error{Stage: StageDrain, Err: err}
			}
			plain[j] = b
		}
		plaintexts = append(plaintexts, plain)
	}
	return plaintexts, nil
}

func (h *Host) writeWord(ctx context.Context, w *uint256.Int) error {
	for _, b := range w.Bytes() {
		if err := h.writeByte(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

func (h *Host) writeByte(ctx context.Context, b byte) error {
	if err := h.await(ctx, communication.StatusTxReady); err != nil {
		return err
	}
	return h.conn.WriteByte(b)
}

func (h *Host) readByte(ctx context.Context) (byte, error) {
	if err := h.await(ctx, communication.StatusRxReady); err != nil {
		return 0, err
	}
	return h.conn.ReadByte()
}

func (h *Host) await(ctx context.Context, mask byte) error {
	var deadline time.Time
	if h.pollTimeout > 0 {
		deadline = time.Now().Add(h.pollTimeout)
	}
	for {
		st, err := h.conn.Status()
		if err != nil {
			return err
		}
		if st&mask != 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return ErrPollTimeout
		}
		time.Sleep(pollInterval)
	}
}
