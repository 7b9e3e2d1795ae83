package ipc

import (
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack extension ids for values that must survive a process boundary.
// Live stream objects are never transmissible; both types travel as raw
// handle tokens and are reconstructed as live descriptors on the receiving
// side.
const (
	extConn    = 1
	extHandles = 2
)

func init() {
	msgpack.RegisterExt(extConn, (*Conn)(nil))
	msgpack.RegisterExt(extHandles, (*Handles)(nil))
}

// Handles is the platform-neutral token form of a Conn: four descriptor
// values in handle order. On POSIX a token is a file descriptor number; on
// Windows it is an inheritable handle value. Tokens are only meaningful in a
// process that actually holds the descriptors they name.
type Handles struct {
	R       uint64
	W       uint64
	RemoteR uint64
	RemoteW uint64
}

// Open reconstructs a passive Conn from handle tokens. The caller owns the
// resulting descriptors and must Activate or Close the connection.
func (h *Handles) Open() *Conn {
	return &Conn{
		r:       os.NewFile(uintptr(h.R), "ipc-read"),
		w:       os.NewFile(uintptr(h.W), "ipc-write"),
		remoteR: os.NewFile(uintptr(h.RemoteR), "ipc-remote-read"),
		remoteW: os.NewFile(uintptr(h.RemoteW), "ipc-remote-write"),
	}
}

func (h *Handles) tokens() [4]uint64 {
	return [4]uint64{h.R, h.W, h.RemoteR, h.RemoteW}
}

// MarshalMsgpack encodes the four handle tokens.
func (h *Handles) MarshalMsgpack() ([]byte, error) {
	t := h.tokens()
	return msgpack.Marshal(t[:])
}

// UnmarshalMsgpack decodes the four handle tokens.
func (h *Handles) UnmarshalMsgpack(data []byte) error {
	var t []uint64
	if err := msgpack.Unmarshal(data, &t); err != nil {
		return fmt.Errorf("decode handle tokens: %w", err)
	}
	if len(t) != 4 {
		return fmt.Errorf("decode handle tokens: got %d tokens, want 4", len(t))
	}
	h.R, h.W, h.RemoteR, h.RemoteW = t[0], t[1], t[2], t[3]
	return nil
}

// Handles returns the token form of the connection's descriptors. Only
// meaningful before activation, while all four ends are still held.
func (c *Conn) Handles() Handles {
	h := Handles{R: token(c.r), W: token(c.w)}
	if c.remoteR != nil {
		h.RemoteR = token(c.remoteR)
	}
	if c.remoteW != nil {
		h.RemoteW = token(c.remoteW)
	}
	return h
}

// MarshalMsgpack encodes a pre-activation Conn as its handle tokens so the
// connection can be handed through the very channel it describes.
func (c *Conn) MarshalMsgpack() ([]byte, error) {
	h := c.Handles()
	return h.MarshalMsgpack()
}

// UnmarshalMsgpack reconstructs a live, passive Conn from handle tokens.
func (c *Conn) UnmarshalMsgpack(data []byte) error {
	var h Handles
	if err := h.UnmarshalMsgpack(data); err != nil {
		return err
	}
	opened := h.Open()
	c.r, c.w = opened.r, opened.w
	c.remoteR, c.remoteW = opened.remoteR, opened.remoteW
	return nil
}

func token(f *os.File) uint64 {
	return uint64(f.Fd())
}
