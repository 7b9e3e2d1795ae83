package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"reflect"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	values := []any{
		"hello",
		int64(42),
		int64(-7),
		true,
		nil,
		3.5,
		[]any{"a", int64(1), nil},
		map[string]any{
			"entry": "demo.echo",
			"nested": map[string]any{
				"count": int64(3),
				"items": []any{"x", "y"},
			},
		},
	}

	for _, v := range values {
		frame, err := Encode(v)
		if err != nil {
			t.Fatalf("encode %v: %v", v, err)
		}
		got, err := Decode(bytes.NewReader(frame))
		if err != nil {
			t.Fatalf("decode %v: %v", v, err)
		}
		if !reflect.DeepEqual(got, v) {
			t.Fatalf("round trip mismatch: got %#v want %#v", got, v)
		}
	}
}

func TestDecodeSequentialFrames(t *testing.T) {
	var buf bytes.Buffer
	for _, v := range []string{"first", "second", "third"} {
		frame, err := Encode(v)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		buf.Write(frame)
	}

	for _, want := range []string{"first", "second", "third"} {
		got, err := Decode(&buf)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got != want {
			t.Fatalf("got %v want %v", got, want)
		}
	}
	if _, err := Decode(&buf); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after final frame, got %v", err)
	}
}

func TestDecodeCleanClose(t *testing.T) {
	if _, err := Decode(bytes.NewReader(nil)); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF on empty stream, got %v", err)
	}
}

func TestDecodePrefixThenCloseIsClean(t *testing.T) {
	var head [8]byte
	binary.LittleEndian.PutUint64(head[:], 16)
	if _, err := Decode(bytes.NewReader(head[:])); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF when payload never starts, got %v", err)
	}
}

func TestDecodePartialPrefixIsTruncated(t *testing.T) {
	if _, err := Decode(bytes.NewReader([]byte{1, 2, 3})); !errors.Is(err, ErrTruncatedFrame) {
		t.Fatalf("expected ErrTruncatedFrame on partial prefix, got %v", err)
	}
}

func TestDecodePartialPayloadIsTruncated(t *testing.T) {
	frame, err := Encode(map[string]any{"key": "a longer value to truncate"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, err = Decode(bytes.NewReader(frame[:len(frame)-1]))
	if !errors.Is(err, ErrTruncatedFrame) {
		t.Fatalf("expected ErrTruncatedFrame on partial payload, got %v", err)
	}
	if errors.Is(err, io.EOF) {
		t.Fatalf("truncated payload must not look like a clean close: %v", err)
	}
}

func TestDecodeTo(t *testing.T) {
	type packet struct {
		Entry  string         `msgpack:"entry"`
		Kwargs map[string]any `msgpack:"kwargs"`
	}
	in := packet{Entry: "demo.dump", Kwargs: map[string]any{"n": int64(9)}}
	frame, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var out packet
	if err := DecodeTo(bytes.NewReader(frame), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("got %#v want %#v", out, in)
	}
}
