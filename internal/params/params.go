// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.
package params

const (
	// BitsWord is the fixed operand width of the decryption engine.
	// The modulus, exponent, ciphertext and plaintext are all BitsWord wide.
	BitsWord = 256

	// BytesWord is the number of bytes in one engine word.
	BytesWord = BitsWord / 8

	// LimbsWord is the number of 64-bit limbs in one engine word.
	LimbsWord = BitsWord / 64

	// BytesResult is the number of plaintext bytes returned to the host per
	// package. The most significant byte of the result is never transmitted.
	BytesResult = BytesWord - 1

	// BitsPassword is the width of the password candidate sampled from the
	// guard inputs.
	BitsPassword = 16
)
