// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package montgomery implements bit-serial Montgomery multiplication for
// 256-bit operands, using only add, subtract and shift primitives. R is fixed
// at 2^256. The functions are pure and reentrant: two multiplications may run
// concurrently with no shared state, which is how the exponentiation engine
// drives them.
package montgomery

import (
	"RSA256/internal/params"
	"RSA256/pkg/uint256"
)

// Multiply returns a*b*R^-1 mod n for R = 2^256.
//
// Operands are first reduced below n by repeated subtraction, then the
// accumulator runs the classic bit-serial loop: for each bit of a (LSB first)
// conditionally add b, add n if the sum is odd, and halve. The working value
// never exceeds 2n after a halving step, so one trailing conditional subtract
// leaves the result fully reduced in [0, n).
//
// n must be odd and non-zero; neither is checked.
func Multiply(a, b, n uint256.Int) uint256.Int {
	for a.Cmp(&n) >= 0 {
		a.Sub(&a, &n)
	}
	for b.Cmp(&n) >= 0 {
		b.Sub(&b, &n)
	}

	var r uint256.Int
	var hi uint64 // bit 256 of the working accumulator
	for i := 0; i < params.BitsWord; i++ {
		if a.Bit(i) == 1 {
			hi += r.Add(&r, &b)
		}
		if r.IsOdd() {
			hi += r.Add(&r, &n)
		}
		r.Rsh1(&r, hi&1)
		hi >>= 1
	}
	if hi != 0 || r.Cmp(&n) >= 0 {
		r.Sub(&r, &n)
	}
	return r
}

// ToResidue converts x into Montgomery form, returning x*R mod n. The
// conversion is 256 double-and-conditional-subtract steps, the same shift/add
// primitive set as Multiply.
func ToResidue(x, n uint256.Int) uint256.Int {
	for x.Cmp(&n) >= 0 {
		x.Sub(&x, &n)
	}
	for i := 0; i < params.BitsWord; i++ {
		out := x.Lsh1(&x)
		if out != 0 || x.Cmp(&n) >= 0 {
			x.Sub(&x, &n)
		}
	}
	return x
}

// FromResidue converts x out of Montgomery form, returning x*R^-1 mod n.
// It is Multiply against the constant 1.
func FromResidue(x, n uint256.Int) uint256.Int {
	var one uint256.Int
	one.SetUint64(1)
	return Multiply(x, one, n)
}
