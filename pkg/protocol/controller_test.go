// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package protocol_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RSA256/communication"
	"RSA256/internal/test"
	"RSA256/pkg/keygen"
	"RSA256/pkg/passgate"
	"RSA256/pkg/protocol"
	"RSA256/pkg/uint256"
)

const (
	oldPassword uint16 = 0xBEEF
	newPassword uint16 = 0xCAFE
)

// disabled returns guards with protection switched off.
func disabled() passgate.Guards {
	return passgate.Guards{Enable: false}
}

func testKeyWords() (n, d uint256.Int) {
	return test.Word(test.TestModulusHex), test.Word(test.TestExponentHex)
}

// A depth-1 FIFO forces a not-ready poll on nearly every transfer, so the
// deferred-transfer path is exercised along with the happy path.
func TestRoundTripSinglePackage(t *testing.T) {
	link := startLink(1, oldPassword, disabled())
	n, d := testKeyWords()
	cipher := test.Word(test.TestCiphertextHex)

	plaintexts, err := link.Host.RunEpoch(context.Background(), n, d, []uint256.Int{cipher})
	require.NoError(t, err)
	require.Len(t, plaintexts, 1)

	want := test.WordBytes(test.TestPlaintextHex)[1:]
	assert.Equal(t, want, plaintexts[0])

	require.NoError(t, link.Shutdown())
}

// The most significant plaintext byte never crosses the link, even when it
// carries information.
func TestTopByteIsDropped(t *testing.T) {
	link := startLink(4, oldPassword, disabled())
	defer link.Shutdown()
	n, d := testKeyWords()
	key := &keygen.Key{N: n, D: d}

	var m uint256.Int
	m.SetBytes(test.WordBytes("7f112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"))
	c := key.Encrypt(m)

	plaintexts, err := link.Host.RunEpoch(context.Background(), n, d, []uint256.Int{c})
	require.NoError(t, err)
	require.Len(t, plaintexts, 1)
	assert.Equal(t, m.Bytes()[1:], plaintexts[0], "31 transmitted bytes are the low 31 of the word")
	assert.Len(t, plaintexts[0], 31)
}

func TestMultiplePackagesPerEpoch(t *testing.T) {
	link := startLink(8, oldPassword, disabled())
	defer link.Shutdown()
	n, d := testKeyWords()
	key := &keygen.Key{N: n, D: d}

	var m1, m2 uint256.Int
	m1.SetBytes([]byte("first package"))
	m2.SetBytes([]byte("second package"))
	ciphers := []uint256.Int{key.Encrypt(m1), key.Encrypt(m2)}

	plaintexts, err := link.Host.RunEpoch(context.Background(), n, d, ciphers)
	require.NoError(t, err)
	require.Len(t, plaintexts, 2)
	assert.Equal(t, m1.Bytes()[1:], plaintexts[0])
	assert.Equal(t, m2.Bytes()[1:], plaintexts[1])
}

// After the last package the controller returns to key intake: a second
// epoch with a different key must work, the first key is not cached.
func TestKeyIsRereadEachEpoch(t *testing.T) {
	link := startLink(8, oldPassword, disabled())
	defer link.Shutdown()
	ctx := context.Background()

	n1, d1 := testKeyWords()
	key1 := &keygen.Key{N: n1, D: d1}
	key2, err := keygen.FromMnemonic(
		"legal winner thank year wave sausage worth useful legal winner thank yellow", "")
	require.NoError(t, err)
	require.NotEqual(t, key1.N, key2.N)

	var m uint256.Int
	m.SetBytes([]byte("same message, two keys"))

	for _, key := range []*keygen.Key{key1, key2} {
		plaintexts, err := link.Host.RunEpoch(ctx, key.N, key.D, []uint256.Int{key.Encrypt(m)})
		require.NoError(t, err)
		require.Len(t, plaintexts, 1)
		assert.Equal(t, m.Bytes()[1:], plaintexts[0])
	}
}

// A zero package count is accepted: the epoch carries no packages and the
// controller goes straight back to key intake.
func TestCountZero(t *testing.T) {
	link := startLink(8, oldPassword, disabled())
	defer link.Shutdown()
	ctx := context.Background()
	n, d := testKeyWords()

	plaintexts, err := link.Host.RunEpoch(ctx, n, d, nil)
	require.NoError(t, err)
	assert.Empty(t, plaintexts)

	// The link is still in protocol: a normal epoch follows.
	cipher := test.Word(test.TestCiphertextHex)
	plaintexts, err = link.Host.RunEpoch(ctx, n, d, []uint256.Int{cipher})
	require.NoError(t, err)
	require.Len(t, plaintexts, 1)
	assert.Equal(t, test.WordBytes(test.TestPlaintextHex)[1:], plaintexts[0])
}

func TestWrongPasswordSuppressesOutput(t *testing.T) {
	link := startLink(4, oldPassword,
		passgate.Guards{Candidate: 0xDEAD, Enable: true})
	defer link.Shutdown()
	ctx := context.Background()
	n, d := testKeyWords()
	cipher := test.Word(test.TestCiphertextHex)

	plaintexts, err := link.Host.RunEpoch(ctx, n, d, []uint256.Int{cipher})
	require.NoError(t, err)
	require.Len(t, plaintexts, 1)
	assert.Equal(t, make([]byte, 31), plaintexts[0], "every byte must be zero")

	// Correcting the candidate restores genuine output on the next package;
	// the computation itself was never affected.
	link.Guards.Set(passgate.Guards{Candidate: oldPassword, Enable: true})
	plaintexts, err = link.Host.RunEpoch(ctx, n, d, []uint256.Int{cipher})
	require.NoError(t, err)
	assert.Equal(t, test.WordBytes(test.TestPlaintextHex)[1:], plaintexts[0])
}

func TestEnableFalseIgnoresCandidate(t *testing.T) {
	link := startLink(4, oldPassword,
		passgate.Guards{Candidate: 0xDEAD, Enable: false})
	defer link.Shutdown()
	n, d := testKeyWords()
	cipher := test.Word(test.TestCiphertextHex)

	plaintexts, err := link.Host.RunEpoch(context.Background(), n, d, []uint256.Int{cipher})
	require.NoError(t, err)
	assert.Equal(t, test.WordBytes(test.TestPlaintextHex)[1:], plaintexts[0])
}

// Change the password over the live link: hold change with the old password,
// preview the new one, release change, then verify old fails and new works.
func TestPasswordChangeOverLink(t *testing.T) {
	link := startLink(4, oldPassword,
		passgate.Guards{Candidate: oldPassword, Enable: true, Change: true})
	defer link.Shutdown()
	ctx := context.Background()
	n, d := testKeyWords()
	cipher := test.Word(test.TestCiphertextHex)
	want := test.WordBytes(test.TestPlaintextHex)[1:]

	// Epoch 1: the gate enters change mode; previewing keeps it authenticated.
	plaintexts, err := link.Host.RunEpoch(ctx, n, d, []uint256.Int{cipher})
	require.NoError(t, err)
	assert.Equal(t, want, plaintexts[0])

	// Epoch 2: the candidate moves to the new password while change is held.
	link.Guards.Set(passgate.Guards{Candidate: newPassword, Enable: true, Change: true})
	plaintexts, err = link.Host.RunEpoch(ctx, n, d, []uint256.Int{cipher})
	require.NoError(t, err)
	assert.Equal(t, want, plaintexts[0])

	// Epoch 3: releasing change commits the new password.
	link.Guards.Set(passgate.Guards{Candidate: newPassword, Enable: true, Change: false})
	plaintexts, err = link.Host.RunEpoch(ctx, n, d, []uint256.Int{cipher})
	require.NoError(t, err)
	assert.Equal(t, want, plaintexts[0])

	// The old password is dead.
	link.Guards.Set(passgate.Guards{Candidate: oldPassword, Enable: true})
	plaintexts, err = link.Host.RunEpoch(ctx, n, d, []uint256.Int{cipher})
	require.NoError(t, err)
	assert.True(t, bytes.Equal(make([]byte, 31), plaintexts[0]))

	// The new one lives.
	link.Guards.Set(passgate.Guards{Candidate: newPassword, Enable: true})
	plaintexts, err = link.Host.RunEpoch(ctx, n, d, []uint256.Int{cipher})
	require.NoError(t, err)
	assert.Equal(t, want, plaintexts[0])
}

// A peer that never transfers anything must surface as a poll timeout once
// one is configured, instead of spinning forever.
func TestPollTimeoutOnDeadPeer(t *testing.T) {
	_, devConn := communication.Loopback(4)
	guards := test.NewGuardInput(disabled())
	ctrl := protocol.NewController(devConn, guards, passgate.NewGate(oldPassword))
	ctrl.SetPollTimeout(20 * time.Millisecond)

	_, err := ctrl.RunEpoch(context.Background())
	require.ErrorIs(t, err, protocol.ErrPollTimeout)
}

func TestShutdownIsClean(t *testing.T) {
	link := startLink(4, oldPassword, disabled())
	n, d := testKeyWords()
	cipher := test.Word(test.TestCiphertextHex)
	_, err := link.Host.RunEpoch(context.Background(), n, d, []uint256.Int{cipher})
	require.NoError(t, err)
	assert.NoError(t, link.Shutdown(), "closing between epochs is a clean stop")
}
