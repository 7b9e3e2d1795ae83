// Package wire implements the framed message codec used on every pipe the
// supervisor and its workers share: an 8-byte little-endian unsigned length
// prefix followed by exactly that many bytes of msgpack-encoded payload.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// prefixSize is the fixed width of the length prefix preceding every frame.
const prefixSize = 8

// ErrTruncatedFrame reports that the stream ended part way through a frame.
// It is distinct from io.EOF, which Decode returns when the stream ends
// cleanly at a frame boundary.
var ErrTruncatedFrame = errors.New("stream closed mid-frame")

// Encode serializes v and returns a complete frame ready to be written to a
// stream: length prefix followed by the msgpack payload.
func Encode(v any) ([]byte, error) {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode frame payload: %w", err)
	}
	frame := make([]byte, prefixSize+len(payload))
	binary.LittleEndian.PutUint64(frame, uint64(len(payload)))
	copy(frame[prefixSize:], payload)
	return frame, nil
}

// Decode reads one frame from r and deserializes its payload into a generic
// value. Maps decode as map[string]any, integers as int64 and floats as
// float64. A clean end of stream at the frame boundary is reported as io.EOF;
// a stream that dies inside a frame is reported as ErrTruncatedFrame.
func Decode(r io.Reader) (any, error) {
	payload, err := next(r)
	if err != nil {
		return nil, err
	}
	dec := msgpack.NewDecoder(bytes.NewReader(payload))
	dec.UseLooseInterfaceDecoding(true)
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode frame payload: %w", err)
	}
	return v, nil
}

// DecodeTo reads one frame from r and deserializes its payload into dst,
// which must be a pointer. Error semantics match Decode.
func DecodeTo(r io.Reader, dst any) error {
	payload, err := next(r)
	if err != nil {
		return err
	}
	dec := msgpack.NewDecoder(bytes.NewReader(payload))
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode frame payload: %w", err)
	}
	return nil
}

// next reads the length prefix and then accumulates payload bytes until the
// declared length is satisfied or the stream runs dry.
//
// Zero bytes at the prefix boundary, or a complete prefix followed by zero
// payload bytes, both count as a clean close. Only a stream that produced
// part of the prefix or part of the payload is treated as truncated.
func next(r io.Reader) ([]byte, error) {
	var head [prefixSize]byte
	if n, err := io.ReadFull(r, head[:]); err != nil {
		if n == 0 && (errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)) {
			return nil, io.EOF
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %d of %d prefix bytes", ErrTruncatedFrame, n, prefixSize)
		}
		return nil, fmt.Errorf("read frame prefix: %w", err)
	}

	size := binary.LittleEndian.Uint64(head[:])
	payload := make([]byte, size)
	read := 0
	for read < int(size) {
		n, err := r.Read(payload[read:])
		read += n
		if err != nil {
			if errors.Is(err, io.EOF) {
				if read == 0 {
					// The peer wrote the prefix and then closed without any
					// payload, which the receive loop treats the same as a
					// close at the frame boundary.
					return nil, io.EOF
				}
				return nil, fmt.Errorf("%w: %d of %d payload bytes", ErrTruncatedFrame, read, size)
			}
			return nil, fmt.Errorf("read frame payload: %w", err)
		}
	}
	return payload, nil
}
