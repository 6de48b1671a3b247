// Package protocol implements the wire grammar of the game protocol: the
// length-prefixed encrypted framing and the text command codec.
package protocol

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Channel is the confidentiality boundary every frame passes through after
// the handshake.
type Channel interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(blob []byte) ([]byte, error)
}

// lengthFieldSize is the fixed width of the decimal length header.
const lengthFieldSize = 8

const maxFrameSize = 100_000_000 // largest length expressible in 8 digits, exclusive

var ErrFrameTooLarge = errors.New("encrypted frame length does not fit in the 8-digit header")

// Send encrypts message over ch and writes it to w as one frame: an
// 8-character zero-padded decimal length followed by the encrypted bytes.
func Send(w io.Writer, ch Channel, message string) error {
	encrypted, err := ch.Encrypt([]byte(message))
	if err != nil {
		return err
	}
	if len(encrypted) >= maxFrameSize {
		return ErrFrameTooLarge
	}

	frame := make([]byte, 0, lengthFieldSize+len(encrypted))
	frame = append(frame, fmt.Sprintf("%08d", len(encrypted))...)
	frame = append(frame, encrypted...)
	_, err = w.Write(frame)
	return err
}

// Receive reads exactly one frame from r and decrypts it over ch.
//
// A peer that closes before the length header, sends an unparseable header,
// or closes mid-payload yields io.EOF: the caller must treat it as a
// disconnect and run cleanup, not as a protocol fault. Decrypt failures are
// returned as-is and are fatal for the connection.
func Receive(r io.Reader, ch Channel) (string, error) {
	header := make([]byte, lengthFieldSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return "", io.EOF
	}

	length, err := strconv.Atoi(strings.TrimSpace(string(header)))
	if err != nil || length < 0 {
		return "", io.EOF
	}

	encrypted := make([]byte, length)
	if _, err := io.ReadFull(r, encrypted); err != nil {
		return "", io.EOF
	}

	plaintext, err := ch.Decrypt(encrypted)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
