// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package uint256 implements the fixed-width 256-bit unsigned integers the
// decryption engine computes on. An Int is four 64-bit limbs in little-endian
// limb order. Arithmetic is plain integer arithmetic modulo 2^256; carries and
// borrows are returned explicitly so callers can build wider accumulators.
package uint256

import (
	"encoding/hex"
	"math/big"
	"math/bits"

	"RSA256/internal/params"
)

// Int is a 256-bit unsigned integer. The zero value is ready to use and
// represents 0. Limb 0 is the least significant.
type Int [params.LimbsWord]uint64

// SetBytes interprets buf as a big-endian unsigned integer, stores its low
// 256 bits in z, and returns z. Short buffers are zero-extended.
func (z *Int) SetBytes(buf []byte) *Int {
	*z = Int{}
	limb := 0
	shift := uint(0)
	for i := len(buf) - 1; i >= 0 && limb < len(z); i-- {
		z[limb] |= uint64(buf[i]) << shift
		shift += 8
		if shift == 64 {
			shift = 0
			limb++
		}
	}
	return z
}

// SetUint64 stores v in z and returns z.
func (z *Int) SetUint64(v uint64) *Int {
	*z = Int{v, 0, 0, 0}
	return z
}

// SetBig stores the low 256 bits of v in z and returns z.
// v must not be negative.
func (z *Int) SetBig(v *big.Int) *Int {
	return z.SetBytes(v.Bytes())
}

// Bytes returns x as exactly 32 big-endian bytes. The output is always the
// announced width regardless of the magnitude of x.
func (x *Int) Bytes() []byte {
	buf := make([]byte, params.BytesWord)
	for i := 0; i < len(x); i++ {
		limb := x[i]
		for j := 0; j < 8; j++ {
			buf[params.BytesWord-1-(i*8+j)] = byte(limb >> (uint(j) * 8))
		}
	}
	return buf
}

// Big returns x as a new math/big integer.
func (x *Int) Big() *big.Int {
	return new(big.Int).SetBytes(x.Bytes())
}

// Hex returns x as 64 lowercase hex digits.
func (x *Int) Hex() string {
	return hex.EncodeToString(x.Bytes())
}

// IsZero reports whether x is 0.
func (x *Int) IsZero() bool {
	return x[0]|x[1]|x[2]|x[3] == 0
}

// Bit returns the value of the i'th bit of x, that is (x>>i)&1.
// The bit index must be in [0, 255].
func (x *Int) Bit(i int) uint64 {
	return (x[i/64] >> (uint(i) % 64)) & 1
}

// Cmp compares x and y and returns -1, 0 or +1.
func (x *Int) Cmp(y *Int) int {
	for i := len(x) - 1; i >= 0; i-- {
		if x[i] < y[i] {
			return -1
		}
		if x[i] > y[i] {
			return 1
		}
	}
	return 0
}

// Add sets z = x + y mod 2^256 and returns the outgoing carry.
func (z *Int) Add(x, y *Int) (carry uint64) {
	z[0], carry = bits.Add64(x[0], y[0], 0)
	z[1], carry = bits.Add64(x[1], y[1], carry)
	z[2], carry = bits.Add64(x[2], y[2], carry)
	z[3], carry = bits.Add64(x[3], y[3], carry)
	return carry
}

// Sub sets z = x - y mod 2^256 and returns the outgoing borrow.
func (z *Int) Sub(x, y *Int) (borrow uint64) {
	z[0], borrow = bits.Sub64(x[0], y[0], 0)
	z[1], borrow = bits.Sub64(x[1], y[1], borrow)
	z[2], borrow = bits.Sub64(x[2], y[2], borrow)
	z[3], borrow = bits.Sub64(x[3], y[3], borrow)
	return borrow
}

// Lsh1 sets z = x << 1 mod 2^256 and returns the bit shifted out.
func (z *Int) Lsh1(x *Int) (out uint64) {
	out = x[3] >> 63
	z[3] = x[3]<<1 | x[2]>>63
	z[2] = x[2]<<1 | x[1]>>63
	z[1] = x[1]<<1 | x[0]>>63
	z[0] = x[0] << 1
	return out
}

// Rsh1 sets z = x >> 1 with in shifted into the top bit, and returns z.
func (z *Int) Rsh1(x *Int, in uint64) *Int {
	z[0] = x[0]>>1 | x[1]<<63
	z[1] = x[1]>>1 | x[2]<<63
	z[2] = x[2]>>1 | x[3]<<63
	z[3] = x[3]>>1 | in<<63
	return z
}

// IsOdd reports whether the least significant bit of x is set.
func (x *Int) IsOdd() bool {
	return x[0]&1 == 1
}
