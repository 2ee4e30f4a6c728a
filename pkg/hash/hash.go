// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package hash provides blake3-based digests over engine values, used for
// key-epoch fingerprints and deterministic byte streams.
package hash

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/zeebo/blake3"

	"RSA256/pkg/uint256"
)

// Hash is an incremental blake3 digest with domain separation.
type Hash struct {
	h *blake3.Hasher
}

// New creates a Hash struct where the internal hash function is initialized
// with the given domain string.
func New(domain string) *Hash {
	h := &Hash{h: blake3.New()}
	_, _ = h.h.Write([]byte(domain))
	return h
}

// WriteAny writes a supported value into the digest. Supported types are
// *uint256.Int, []byte and string; anything else is an error.
func (hash *Hash) WriteAny(vs ...interface{}) error {
	for _, v := range vs {
		switch data := v.(type) {
		case *uint256.Int:
			_, _ = hash.h.Write(data.Bytes())
		case []byte:
			_, _ = hash.h.Write(data)
		case string:
			_, _ = hash.h.Write([]byte(data))
		default:
			return fmt.Errorf("hash: unsupported type %T", v)
		}
	}
	return nil
}

// Sum returns the 32-byte digest of everything written so far.
func (hash *Hash) Sum() []byte {
	return hash.h.Sum(nil)
}

// Stream returns an unbounded deterministic byte stream derived from
// everything written so far, backed by the blake3 XOF.
func (hash *Hash) Stream() io.Reader {
	return hash.h.Digest()
}

// KeyFingerprint returns a short hex fingerprint of a (modulus, exponent)
// pair. It identifies a key epoch in logs and fixture file names without
// exposing key material.
func KeyFingerprint(n, d *uint256.Int) string {
	h := New("RSA256_KEY_EPOCH")
	_ = h.WriteAny(n, d)
	return hex.EncodeToString(h.Sum()[:8])
}
