package ipc_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/embermill/rekindle/internal/ipc"
	"github.com/embermill/rekindle/internal/wire"
)

// connPair builds two activated in-process connections talking to each
// other. Each side owns distinct descriptors so that activating one side
// does not invalidate the other, unlike Pipe, whose remote ends are only
// meaningful across a process boundary.
func connPair(t *testing.T) (*ipc.Conn, *ipc.Conn) {
	t.Helper()
	a2br, a2bw, err := os.Pipe()
	if err != nil {
		t.Fatalf("create pipe: %v", err)
	}
	b2ar, b2aw, err := os.Pipe()
	if err != nil {
		t.Fatalf("create pipe: %v", err)
	}
	a := ipc.New(b2ar, a2bw)
	b := ipc.New(a2br, b2aw)
	for _, c := range []*ipc.Conn{a, b} {
		if err := c.Activate(); err != nil {
			t.Fatalf("activate: %v", err)
		}
	}
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

func TestSendRecvBothDirections(t *testing.T) {
	a, b := connPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := a.Send(map[string]any{"op": "ping", "seq": int64(1)})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if n <= 8 {
		t.Fatalf("expected frame larger than its prefix, wrote %d bytes", n)
	}

	got, err := b.Recv(ctx)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	m, ok := got.(map[string]any)
	if !ok || m["op"] != "ping" || m["seq"] != int64(1) {
		t.Fatalf("unexpected message: %#v", got)
	}

	if _, err := b.Send("pong"); err != nil {
		t.Fatalf("send reply: %v", err)
	}
	reply, err := a.Recv(ctx)
	if err != nil {
		t.Fatalf("recv reply: %v", err)
	}
	if reply != "pong" {
		t.Fatalf("got %v want pong", reply)
	}
}

func TestConcurrentSendersFrameAtomicity(t *testing.T) {
	a, b := connPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const senders = 25
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := a.Send(map[string]any{"sender": int64(i)}); err != nil {
				t.Errorf("send %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for i := 0; i < senders; i++ {
		v, err := b.Recv(ctx)
		if err != nil {
			t.Fatalf("recv %d: %v", i, err)
		}
		m, ok := v.(map[string]any)
		if !ok {
			t.Fatalf("message %d arrived corrupted: %#v", i, v)
		}
		id, ok := m["sender"].(int64)
		if !ok || seen[id] {
			t.Fatalf("message %d duplicated or malformed: %#v", i, v)
		}
		seen[id] = true
	}
	if len(seen) != senders {
		t.Fatalf("received %d distinct messages, want %d", len(seen), senders)
	}
}

func TestPeerCloseYieldsSentinel(t *testing.T) {
	a, b := connPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := a.Send("last words"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	v, err := b.Recv(ctx)
	if err != nil {
		t.Fatalf("recv before close observed: %v", err)
	}
	if v != "last words" {
		t.Fatalf("got %v", v)
	}

	for i := 0; i < 3; i++ {
		if _, err := b.Recv(ctx); !errors.Is(err, ipc.ErrClosed) {
			t.Fatalf("recv %d after peer close: got %v, want ErrClosed", i, err)
		}
	}
}

func TestRecvContextDone(t *testing.T) {
	_, b := connPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := b.Recv(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want context.DeadlineExceeded", err)
	}
}

func TestTruncatedFrameSurfaces(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("create pipe: %v", err)
	}
	sinkR, sinkW, err := os.Pipe()
	if err != nil {
		t.Fatalf("create pipe: %v", err)
	}
	defer sinkR.Close()

	conn := ipc.New(r, sinkW)
	if err := conn.Activate(); err != nil {
		t.Fatalf("activate: %v", err)
	}
	defer conn.Close()

	frame, err := wire.Encode("a value that will be cut short")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := w.Write(frame[:len(frame)-1]); err != nil {
		t.Fatalf("write: %v", err)
	}
	w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := conn.Recv(ctx); !errors.Is(err, wire.ErrTruncatedFrame) {
		t.Fatalf("got %v, want ErrTruncatedFrame", err)
	}
	// The transport error is sticky, not downgraded to the clean sentinel.
	if _, err := conn.Recv(ctx); !errors.Is(err, wire.ErrTruncatedFrame) {
		t.Fatalf("second recv: got %v, want ErrTruncatedFrame", err)
	}
}

func TestUseBeforeActivate(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("create pipe: %v", err)
	}
	conn := ipc.New(r, w)
	defer conn.Close()

	if _, err := conn.Send("x"); !errors.Is(err, ipc.ErrNotActivated) {
		t.Fatalf("send: got %v, want ErrNotActivated", err)
	}
	if _, err := conn.Recv(context.Background()); !errors.Is(err, ipc.ErrNotActivated) {
		t.Fatalf("recv: got %v, want ErrNotActivated", err)
	}
}

func TestPipeCrossWiring(t *testing.T) {
	left, right, err := ipc.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer left.Close()

	lh, rh := left.Handles(), right.Handles()
	if lh.R != rh.RemoteR || lh.W != rh.RemoteW || lh.RemoteR != rh.R || lh.RemoteW != rh.W {
		t.Fatalf("pipe ends not cross-wired: %+v vs %+v", lh, rh)
	}
	if lh.R == lh.W {
		t.Fatalf("read and write streams share a descriptor: %+v", lh)
	}
}

func TestHandlesRoundTripThroughGenericPayload(t *testing.T) {
	in := map[string]any{
		"entry":   "demo.echo",
		"channel": &ipc.Handles{R: 4, W: 5, RemoteR: 6, RemoteW: 7},
	}
	frame, err := wire.Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := wire.Decode(bytes.NewReader(frame))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	m, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("decoded %#v", out)
	}
	h, ok := m["channel"].(*ipc.Handles)
	if !ok {
		t.Fatalf("channel did not decode to *Handles: %#v", m["channel"])
	}
	if *h != (ipc.Handles{R: 4, W: 5, RemoteR: 6, RemoteW: 7}) {
		t.Fatalf("handle tokens mangled: %+v", *h)
	}
}

func TestConnMarshalsAsHandleTokens(t *testing.T) {
	left, right, err := ipc.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer left.Close()
	defer right.Close()

	data, err := right.MarshalMsgpack()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var h ipc.Handles
	if err := h.UnmarshalMsgpack(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if h != right.Handles() {
		t.Fatalf("got %+v want %+v", h, right.Handles())
	}
}
