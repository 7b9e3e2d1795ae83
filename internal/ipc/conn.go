// Package ipc provides the duplex message channel shared by the supervisor
// and its workers: two unidirectional OS pipes presented as one
// bidirectional, concurrency-safe channel of framed msgpack values.
package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/embermill/rekindle/internal/wire"
)

// inboxDepth bounds how many decoded messages may queue ahead of a slow
// consumer before the receive loop stops draining the pipe.
const inboxDepth = 64

var (
	// ErrClosed is the closed sentinel: Recv returns it once the peer has
	// disconnected, and keeps returning it without blocking.
	ErrClosed = errors.New("ipc: connection closed by peer")

	// ErrNotActivated reports use of a connection that is still a passive
	// descriptor holder.
	ErrNotActivated = errors.New("ipc: connection not activated")
)

// Conn is one end of a duplex pipe channel.
//
// A Conn starts life as a passive holder of four descriptors: its own read
// and write ends plus the remote side's ends, which must be closed locally
// once the peer owns them. Activate turns it into a live channel with a
// single background receive goroutine; Send and Recv may then be called from
// any goroutine.
type Conn struct {
	r, w             *os.File
	remoteR, remoteW *os.File

	br *bufio.Reader
	bw *bufio.Writer

	sendMu sync.Mutex
	inbox  chan any

	sentBytes     atomic.Int64
	receivedBytes atomic.Int64

	mu        sync.Mutex
	activated bool
	readErr   error
}

// New wraps an existing pair of unidirectional streams in a passive Conn
// with no remote-side descriptors. Used when both ends of the transport are
// owned by the current process, or when the peer's descriptors were already
// handed off elsewhere.
func New(r, w *os.File) *Conn {
	return &Conn{r: r, w: w}
}

// Pipe creates a connected pair of duplex connections from two OS pipes.
// Each side holds its own ends plus the other side's, so either Conn can be
// handed to another process before activation.
func Pipe() (*Conn, *Conn, error) {
	c2pr, c2pw, err := os.Pipe()
	if err != nil {
		return nil, nil, fmt.Errorf("create pipe: %w", err)
	}
	p2cr, p2cw, err := os.Pipe()
	if err != nil {
		c2pr.Close()
		c2pw.Close()
		return nil, nil, fmt.Errorf("create pipe: %w", err)
	}

	parent := &Conn{r: c2pr, w: p2cw, remoteR: p2cr, remoteW: c2pw}
	child := &Conn{r: p2cr, w: c2pw, remoteR: c2pr, remoteW: p2cw}
	return parent, child, nil
}

// Activate closes the remote-side descriptors, wraps the local ends in
// buffered streams and starts the receive loop. The remote ends belong to
// the peer process; holding them open locally would prevent the peer's close
// from ever being observed as end-of-stream.
func (c *Conn) Activate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activated {
		return errors.New("ipc: connection already activated")
	}

	if c.remoteR != nil {
		c.remoteR.Close()
		c.remoteR = nil
	}
	if c.remoteW != nil {
		c.remoteW.Close()
		c.remoteW = nil
	}

	c.br = bufio.NewReader(&countingReader{f: c.r, n: &c.receivedBytes})
	c.bw = bufio.NewWriter(c.w)
	c.inbox = make(chan any, inboxDepth)
	c.activated = true

	go c.readLoop()
	return nil
}

// readLoop decodes frames onto the inbox until the stream ends. A clean
// close (or our own Close) simply closes the inbox, which is how Recv
// observes the closed sentinel. A mid-frame failure is recorded first so the
// next receiver sees a transport error instead of the sentinel; if nobody is
// waiting the error goes unobserved, matching the one-shot nature of the
// underlying stream.
func (c *Conn) readLoop() {
	for {
		v, err := wire.Decode(c.br)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				c.mu.Lock()
				c.readErr = err
				c.mu.Unlock()
			}
			break
		}
		c.inbox <- v
	}
	close(c.inbox)
}

// Send encodes v as one frame and writes it to the peer. It is safe for
// concurrent use; a per-connection lock keeps frames from interleaving. The
// returned count is the number of bytes written, prefix included.
func (c *Conn) Send(v any) (int, error) {
	c.mu.Lock()
	activated := c.activated
	c.mu.Unlock()
	if !activated {
		return 0, ErrNotActivated
	}

	frame, err := wire.Encode(v)
	if err != nil {
		return 0, err
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if _, err := c.bw.Write(frame); err != nil {
		return 0, fmt.Errorf("write frame: %w", err)
	}
	if err := c.bw.Flush(); err != nil {
		return 0, fmt.Errorf("flush frame: %w", err)
	}
	c.sentBytes.Add(int64(len(frame)))
	return len(frame), nil
}

// BytesSent reports the total bytes written to the peer so far.
func (c *Conn) BytesSent() int64 {
	return c.sentBytes.Load()
}

// BytesReceived reports the total bytes drained from the stream so far,
// read-ahead buffering included. Diagnostic accounting, not frame counts.
func (c *Conn) BytesReceived() int64 {
	return c.receivedBytes.Load()
}

type countingReader struct {
	f *os.File
	n *atomic.Int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.f.Read(p)
	r.n.Add(int64(n))
	return n, err
}

// Recv returns the next message from the peer, blocking until one arrives,
// the context is done, or the peer disconnects. After a clean disconnect it
// returns ErrClosed on every call. If the receive loop died mid-frame the
// recorded transport error is returned instead. Integers in generic payloads
// decode as int64.
func (c *Conn) Recv(ctx context.Context) (any, error) {
	c.mu.Lock()
	activated := c.activated
	c.mu.Unlock()
	if !activated {
		return nil, ErrNotActivated
	}

	select {
	case v, ok := <-c.inbox:
		if !ok {
			c.mu.Lock()
			err := c.readErr
			c.mu.Unlock()
			if err != nil {
				return nil, err
			}
			return nil, ErrClosed
		}
		return v, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close releases both local streams. The receive loop is not joined; its
// next read observes the closed descriptor and the goroutine exits on its
// own, waking any blocked receiver with the closed sentinel.
func (c *Conn) Close() error {
	var firstErr error
	if err := c.r.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.w.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Files returns the connection's descriptors in handle order: local read,
// local write, remote read, remote write. Used by the spawner to pass a
// pre-activation Conn across a process launch boundary.
func (c *Conn) Files() []*os.File {
	return []*os.File{c.r, c.w, c.remoteR, c.remoteW}
}
