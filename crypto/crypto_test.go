package crypto

import (
	"crypto/aes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pairedChannels runs the handshake between two endpoints and returns both.
func pairedChannels(t *testing.T) (*DiffieHellmanChannel, *DiffieHellmanChannel) {
	t.Helper()

	server, err := NewDiffieHellmanChannel()
	require.NoError(t, err)
	client, err := NewDiffieHellmanChannel()
	require.NoError(t, err)

	require.NoError(t, server.GenerateSharedKey(client.PublicValue()))
	require.NoError(t, client.GenerateSharedKey(server.PublicValue()))
	return server, client
}

func TestDiffieHellmanChannel(t *testing.T) {
	server, client := pairedChannels(t)

	t.Run("both sides derive the same key", func(t *testing.T) {
		blob, err := server.Encrypt([]byte("SCAN x=2 y=3"))
		require.NoError(t, err)

		plaintext, err := client.Decrypt(blob)
		require.NoError(t, err)
		assert.Equal(t, "SCAN x=2 y=3", string(plaintext))
	})

	t.Run("round trip", func(t *testing.T) {
		for _, msg := range []string{"", "a", "STATUS", string(make([]byte, 1000))} {
			blob, err := server.Encrypt([]byte(msg))
			require.NoError(t, err)
			plaintext, err := server.Decrypt(blob)
			require.NoError(t, err)
			assert.Equal(t, msg, string(plaintext))
		}
	})

	t.Run("fresh IV per call", func(t *testing.T) {
		first, err := server.Encrypt([]byte("same plaintext"))
		require.NoError(t, err)
		second, err := server.Encrypt([]byte("same plaintext"))
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("encrypt before handshake", func(t *testing.T) {
		ch, err := NewDiffieHellmanChannel()
		require.NoError(t, err)
		_, err = ch.Encrypt([]byte("too early"))
		assert.ErrorIs(t, err, ErrNoSharedKey)
	})

	t.Run("rejects malformed peer values", func(t *testing.T) {
		ch, err := NewDiffieHellmanChannel()
		require.NoError(t, err)
		assert.ErrorIs(t, ch.GenerateSharedKey("not a number"), ErrInvalidPeerKey)
		assert.ErrorIs(t, ch.GenerateSharedKey("0"), ErrPeerKeyOutOfSet)
		assert.ErrorIs(t, ch.GenerateSharedKey("-5"), ErrPeerKeyOutOfSet)
	})
}

func TestCBCCipher(t *testing.T) {
	key := []byte("0123456789abcdef")
	c, err := NewCBCCipher(key)
	require.NoError(t, err)

	t.Run("wrong key fails to unpad", func(t *testing.T) {
		other, err := NewCBCCipher([]byte("fedcba9876543210"))
		require.NoError(t, err)

		blob, err := c.Encrypt([]byte("secret"))
		require.NoError(t, err)

		_, err = other.Decrypt(blob)
		assert.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("truncated blob", func(t *testing.T) {
		blob, err := c.Encrypt([]byte("secret"))
		require.NoError(t, err)

		_, err = c.Decrypt(blob[:len(blob)-1])
		assert.ErrorIs(t, err, ErrDecrypt)

		_, err = c.Decrypt(blob[:16])
		assert.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("corrupted stream", func(t *testing.T) {
		blob, err := c.Encrypt([]byte("a message spanning two aes blocks"))
		require.NoError(t, err)

		// Flipping the last byte of the second-to-last ciphertext block
		// flips the final padding byte to a value above the block size.
		blob[len(blob)-aes.BlockSize-1] ^= 0xff
		_, err = c.Decrypt(blob)
		assert.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("rejects short keys", func(t *testing.T) {
		_, err := NewCBCCipher([]byte("short"))
		assert.Error(t, err)
	})
}
