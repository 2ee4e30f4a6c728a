// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package keygen produces 256-bit RSA keypairs for the decryption engine.
// Keys can be drawn from a system randomness source or derived
// deterministically from a BIP-39 mnemonic, which is how reproducible test
// and demo keys are made. Key material here is host-side tooling; the device
// engine itself only ever sees the raw (n, d) words.
package keygen

import (
	"errors"
	"io"
	"math/big"

	log "github.com/sirupsen/logrus"
	"github.com/tyler-smith/go-bip39"

	"RSA256/pkg/hash"
	"RSA256/pkg/uint256"
)

// PublicExponent is the fixed public exponent of generated keys.
const PublicExponent = 65537

const primeBits = 128

// The number of Miller-Rabin iterations when checking candidate primes.
// 20 is the same number that Go uses internally.
const primalityIterations = 20

// tryPrime draws one 128-bit prime candidate from rand. The candidate bytes
// come straight from the reader with no extra consumption, so a given byte
// stream always yields the same prime sequence. The top two bits are forced
// so that the product of two primes fills the full word.
func tryPrime(rand io.Reader) (*big.Int, error) {
	bytes := make([]byte, primeBits/8)
	for {
		if _, err := io.ReadFull(rand, bytes); err != nil {
			return nil, err
		}
		bytes[0] |= 0xC0
		bytes[len(bytes)-1] |= 1
		p := new(big.Int).SetBytes(bytes)
		if p.ProbablyPrime(primalityIterations) {
			return p, nil
		}
	}
}

// Key is one RSA keypair sized for the engine: n = p*q with 128-bit primes,
// d the private exponent for e = 65537.
type Key struct {
	N uint256.Int
	D uint256.Int
}

// Generate draws a fresh keypair from random. Primes are regenerated until
// the public exponent is invertible modulo the totient. The draw consumes
// random byte-exactly, so a deterministic reader yields a deterministic key.
func Generate(random io.Reader) (*Key, error) {
	e := big.NewInt(PublicExponent)
	one := big.NewInt(1)
	for attempt := 0; attempt < 64; attempt++ {
		p, err := tryPrime(random)
		if err != nil {
			return nil, err
		}
		q, err := tryPrime(random)
		if err != nil {
			return nil, err
		}
		if p.Cmp(q) == 0 {
			continue
		}
		n := new(big.Int).Mul(p, q)
		phi := new(big.Int).Mul(new(big.Int).Sub(p, one), new(big.Int).Sub(q, one))
		d := new(big.Int).ModInverse(e, phi)
		if d == nil {
			continue
		}
		k := &Key{}
		k.N.SetBig(n)
		k.D.SetBig(d)
		log.Debugf("keygen: generated key epoch %s", hash.KeyFingerprint(&k.N, &k.D))
		return k, nil
	}
	return nil, errors.New("keygen: no usable prime pair found")
}

// FromMnemonic derives a deterministic keypair from a BIP-39 mnemonic and
// passphrase. The mnemonic seed feeds a blake3 XOF, which in turn feeds the
// prime search, so the same mnemonic always yields the same key.
func FromMnemonic(mnemonic, passphrase string) (*Key, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("keygen: invalid mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, passphrase)
	h := hash.New("RSA256_KEYGEN_SEED")
	if err := h.WriteAny(seed); err != nil {
		return nil, err
	}
	return Generate(h.Stream())
}

// NewMnemonic returns a fresh 12-word mnemonic from system entropy.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// Encrypt computes m^e mod n with the fixed public exponent. It is the host
// half of a round trip; the engine performs the matching decryption.
func (k *Key) Encrypt(m uint256.Int) uint256.Int {
	c := new(big.Int).Exp(m.Big(), big.NewInt(PublicExponent), k.N.Big())
	var out uint256.Int
	out.SetBig(c)
	return out
}
