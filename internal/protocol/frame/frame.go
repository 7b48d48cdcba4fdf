package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// HeaderLen is the fixed length prefix: one unsigned 32-bit big-endian byte count.
const HeaderLen = 4

var (
	ErrShortHeader     = errors.New("frame: short length header")
	ErrShortBody       = errors.New("frame: short body")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
)

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes uint32
}

func DefaultLimits() Limits {
	return Limits{
		MaxPayloadBytes: 64 * 1024 * 1024,
	}
}

// ReadHeader reads exactly one length prefix.
func ReadHeader(r io.Reader, limits Limits) (uint32, error) {
	var hb [HeaderLen]byte
	if _, err := io.ReadFull(r, hb[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, ErrShortHeader
		}
		return 0, err
	}
	n := DecodeHeader(hb)
	if limits.MaxPayloadBytes > 0 && n > limits.MaxPayloadBytes {
		return 0, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, n, limits.MaxPayloadBytes)
	}
	return n, nil
}

// ReadBody reads exactly n body bytes. A short read is an error, never a partial result.
func ReadBody(r io.Reader, n uint32) ([]byte, error) {
	body := make([]byte, n)
	if n == 0 {
		return body, nil
	}
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, ErrShortBody
		}
		return nil, err
	}
	return body, nil
}

// ReadFrame reads one length-prefixed body.
func ReadFrame(r io.Reader, limits Limits) ([]byte, error) {
	n, err := ReadHeader(r, limits)
	if err != nil {
		return nil, err
	}
	return ReadBody(r, n)
}

// WriteHeader writes the length prefix for a body of n bytes.
func WriteHeader(w io.Writer, n int, limits Limits) error {
	if n < 0 || uint64(n) > uint64(^uint32(0)) {
		return ErrPayloadTooLarge
	}
	if limits.MaxPayloadBytes > 0 && uint32(n) > limits.MaxPayloadBytes {
		return fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, n, limits.MaxPayloadBytes)
	}
	hb := EncodeHeader(uint32(n))
	return writeFull(w, hb[:])
}

// WriteBody writes body in full.
func WriteBody(w io.Writer, body []byte) error {
	if len(body) == 0 {
		return nil
	}
	return writeFull(w, body)
}

// WriteFrame writes the length prefix followed by body.
func WriteFrame(w io.Writer, body []byte, limits Limits) error {
	if err := WriteHeader(w, len(body), limits); err != nil {
		return err
	}
	return WriteBody(w, body)
}

func EncodeHeader(n uint32) [HeaderLen]byte {
	var hb [HeaderLen]byte
	binary.BigEndian.PutUint32(hb[:], n)
	return hb
}

func DecodeHeader(hb [HeaderLen]byte) uint32 {
	return binary.BigEndian.Uint32(hb[:])
}

func writeFull(w io.Writer, b []byte) error {
	n, err := w.Write(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return io.ErrShortWrite
	}
	return nil
}
