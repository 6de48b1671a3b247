// Package crypto implements the per-connection secure channel: an
// unauthenticated Diffie-Hellman exchange over a fixed prime, followed by
// AES-128-CBC framing of all traffic.
//
// The exchange provides confidentiality against passive eavesdropping only.
// Neither side proves its identity, so an active man-in-the-middle can
// substitute keys; deployments that need that protection must add a
// certificate- or pre-shared-key-based authentication step on top.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"math/big"
)

// Diffie-Hellman group parameters shared with every client.
var (
	dhPrime     = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 2048), big.NewInt(159)) // 2^2048 - 159
	dhGenerator = big.NewInt(2)
)

var (
	ErrNoSharedKey     = errors.New("shared key has not been derived yet")
	ErrInvalidPeerKey  = errors.New("peer public value is not a valid decimal integer")
	ErrPeerKeyOutOfSet = errors.New("peer public value is outside the group")
)

// DiffieHellmanChannel holds one endpoint's key material. The shared key is
// derived once per connection and never rotated or transmitted.
type DiffieHellmanChannel struct {
	private *big.Int
	public  *big.Int
	cipher  *CBCCipher
}

// NewDiffieHellmanChannel generates a fresh private exponent in [2, p-2]
// and its public value.
func NewDiffieHellmanChannel() (*DiffieHellmanChannel, error) {
	// rand.Int yields [0, p-4); shifting by 2 lands in [2, p-2).
	max := new(big.Int).Sub(dhPrime, big.NewInt(3))
	private, err := rand.Int(rand.Reader, max)
	if err != nil {
		return nil, err
	}
	private.Add(private, big.NewInt(2))

	return &DiffieHellmanChannel{
		private: private,
		public:  new(big.Int).Exp(dhGenerator, private, dhPrime),
	}, nil
}

// PublicValue returns this endpoint's public value as a decimal ASCII string,
// the form it is sent in during the handshake.
func (c *DiffieHellmanChannel) PublicValue() string {
	return c.public.String()
}

// GenerateSharedKey derives the 128-bit symmetric key from the peer's public
// value. The key is the first 16 bytes of SHA-256 over the decimal string of
// the shared secret.
func (c *DiffieHellmanChannel) GenerateSharedKey(peerPublic string) error {
	peer, ok := new(big.Int).SetString(peerPublic, 10)
	if !ok {
		return ErrInvalidPeerKey
	}
	if peer.Sign() <= 0 || peer.Cmp(dhPrime) >= 0 {
		return ErrPeerKeyOutOfSet
	}

	secret := new(big.Int).Exp(peer, c.private, dhPrime)
	digest := sha256.Sum256([]byte(secret.String()))

	cipher, err := NewCBCCipher(digest[:16])
	if err != nil {
		return err
	}
	c.cipher = cipher
	return nil
}

// Encrypt encrypts plaintext with the derived shared key.
func (c *DiffieHellmanChannel) Encrypt(plaintext []byte) ([]byte, error) {
	if c.cipher == nil {
		return nil, ErrNoSharedKey
	}
	return c.cipher.Encrypt(plaintext)
}

// Decrypt decrypts a blob produced by the peer's Encrypt.
func (c *DiffieHellmanChannel) Decrypt(blob []byte) ([]byte, error) {
	if c.cipher == nil {
		return nil, ErrNoSharedKey
	}
	return c.cipher.Decrypt(blob)
}
