package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
)

// ErrDecrypt is returned for any undecryptable blob: wrong key, corrupted
// stream, truncated data, or malformed padding. Callers treat it as fatal
// for the connection.
var ErrDecrypt = errors.New("decrypt failed: malformed or truncated ciphertext")

var errInvalidKeySize = errors.New("symmetric key must be 16 bytes")

// CBCCipher performs AES-128-CBC encryption with PKCS#7 padding. Every
// Encrypt call uses a fresh random IV, which is prepended to the ciphertext.
type CBCCipher struct {
	block cipher.Block
}

// NewCBCCipher creates a cipher from a 16-byte key.
func NewCBCCipher(key []byte) (*CBCCipher, error) {
	if len(key) != 16 {
		return nil, errInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &CBCCipher{block: block}, nil
}

// Encrypt pads plaintext to the block boundary, encrypts it in CBC mode and
// returns iv || ciphertext.
func (c *CBCCipher) Encrypt(plaintext []byte) ([]byte, error) {
	padded := pkcs7Pad(plaintext, aes.BlockSize)

	out := make([]byte, aes.BlockSize+len(padded))
	iv := out[:aes.BlockSize]
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}

	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out[aes.BlockSize:], padded)
	return out, nil
}

// Decrypt splits off the leading IV, decrypts the rest and removes padding.
func (c *CBCCipher) Decrypt(blob []byte) ([]byte, error) {
	if len(blob) < 2*aes.BlockSize || len(blob)%aes.BlockSize != 0 {
		return nil, ErrDecrypt
	}

	iv, ciphertext := blob[:aes.BlockSize], blob[aes.BlockSize:]
	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(padded, ciphertext)

	return pkcs7Unpad(padded, aes.BlockSize)
}

// pkcs7Pad appends n bytes of value n so the result is a multiple of blockSize.
func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

// pkcs7Unpad validates and strips PKCS#7 padding.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrDecrypt
	}

	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrDecrypt
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrDecrypt
		}
	}
	return data[:len(data)-n], nil
}
