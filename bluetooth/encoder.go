package bluetooth

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// Encoder builds the encrypted 16-byte command frames the strip accepts.
// The plaintext frame is exactly one AES block and is encrypted standalone
// with the fixed firmware key (no chaining, no IV), so identical inputs
// always produce byte-identical ciphertext. Safe for concurrent use.
type Encoder struct {
	block cipher.Block
}

func NewEncoder() *Encoder {
	block, err := aes.NewCipher(cipherKey)
	if err != nil {
		// The key is a compile-time constant of valid length.
		panic(fmt.Sprintf("bluetooth: invalid cipher key: %v", err))
	}
	return &Encoder{block: block}
}

// EncodeColor returns the encrypted frame for an RGB command. Inputs are
// raw bytes; range clamping is the caller's responsibility.
func (e *Encoder) EncodeColor(r, g, b, brightness, speed byte) []byte {
	frame := make([]byte, frameSize)
	copy(frame[0:4], frameHeader[:])
	frame[4] = commandTypeRGB
	frame[5] = groupID
	frame[7] = r
	frame[8] = g
	frame[9] = b
	frame[10] = brightness
	frame[11] = speed
	return e.encrypt(frame)
}

// EncodeOff returns the encrypted frame that turns the strip off. The
// firmware has no distinct off command: off is an RGB command with zeroed
// color. Brightness is normally 0 here; the speed byte is kept even then,
// matching what the firmware is known to accept.
func (e *Encoder) EncodeOff(brightness, speed byte) []byte {
	return e.EncodeColor(0, 0, 0, brightness, speed)
}

func (e *Encoder) encrypt(frame []byte) []byte {
	if len(frame) != frameSize {
		panic(fmt.Sprintf("bluetooth: frame is %d bytes, want %d", len(frame), frameSize))
	}
	out := make([]byte, frameSize)
	e.block.Encrypt(out, frame)
	return out
}
