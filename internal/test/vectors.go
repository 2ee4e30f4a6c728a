package test

import (
	"encoding/hex"

	"RSA256/pkg/uint256"
)

// A fixed RSA-256 keypair with e = 65537, used across the package tests so
// failures reproduce byte for byte. The hex strings are the 32-byte MSB-first
// wire form of each word.
const (
	TestModulusHex  = "8ccbca01bc5cb4e93af74227250a732de2685549efd4917e2892e9887f65c9bf"
	TestExponentHex = "1bf8b09d3faabb564a9caccbd2140d6598cfa601426aff2fff57d7466ede3021"

	// TestPlaintextHex is 0x00 then bytes 1..31: the top byte is zero, so
	// the 31-byte result drain loses nothing for this message.
	TestPlaintextHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	// TestCiphertextHex is TestPlaintextHex^65537 mod TestModulusHex.
	TestCiphertextHex = "6f76f3300f36b09d48b0ef2902ae1688c5a814a5afce87262be9afa2e66e2922"
)

// Word parses a 64-digit hex word. It panics on malformed input; the inputs
// are compile-time constants.
func Word(hexWord string) uint256.Int {
	buf, err := hex.DecodeString(hexWord)
	if err != nil || len(buf) != 32 {
		panic("test: word must be 64 hex digits")
	}
	var w uint256.Int
	w.SetBytes(buf)
	return w
}

// WordBytes parses a 64-digit hex word into its 32-byte wire form.
func WordBytes(hexWord string) []byte {
	w := Word(hexWord)
	return w.Bytes()
}
