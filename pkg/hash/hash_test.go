package hash

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RSA256/pkg/uint256"
)

func TestHash_WriteAny(t *testing.T) {
	testFunc := func(vs ...interface{}) error {
		h := New("TEST")
		for _, v := range vs {
			if err := h.WriteAny(v); err != nil {
				return err
			}
		}
		return nil
	}
	w := new(uint256.Int).SetUint64(35)

	assert.NoError(t, testFunc(w))
	assert.NoError(t, testFunc([]byte{1, 4, 6}))
	assert.NoError(t, testFunc("some string"))
	assert.Error(t, testFunc(42))
}

func TestSumIsDeterministic(t *testing.T) {
	mk := func() []byte {
		h := New("TEST")
		require.NoError(t, h.WriteAny([]byte{1, 2, 3}))
		return h.Sum()
	}
	assert.Equal(t, mk(), mk())
	assert.Len(t, mk(), 32)
}

func TestDomainSeparation(t *testing.T) {
	a := New("DOMAIN_A")
	b := New("DOMAIN_B")
	require.NoError(t, a.WriteAny([]byte{9}))
	require.NoError(t, b.WriteAny([]byte{9}))
	assert.NotEqual(t, a.Sum(), b.Sum())
}

func TestStreamIsDeterministic(t *testing.T) {
	mk := func(count int) []byte {
		h := New("TEST_STREAM")
		require.NoError(t, h.WriteAny("seed"))
		buf := make([]byte, count)
		_, err := io.ReadFull(h.Stream(), buf)
		require.NoError(t, err)
		return buf
	}
	long := mk(128)
	assert.Equal(t, long[:64], mk(64))
}

func TestKeyFingerprint(t *testing.T) {
	n := new(uint256.Int).SetUint64(77)
	d := new(uint256.Int).SetUint64(99)

	fp := KeyFingerprint(n, d)
	assert.Len(t, fp, 16)
	assert.Equal(t, fp, KeyFingerprint(n, d))
	// Swapping the words changes the fingerprint.
	assert.NotEqual(t, fp, KeyFingerprint(d, n))
}
