package session

import (
	"context"
	"testing"
	"time"

	dap "github.com/google/go-dap"

	"github.com/krotik/godap/internal/facade/fakert"
	"github.com/krotik/godap/internal/godaplog"
)

type fakeConn struct {
	handle   func(dap.Message)
	serveErr chan error
}

func (c *fakeConn) Serve(handle func(dap.Message)) error {
	c.handle = handle
	return <-c.serveErr
}

func TestNewWiresACompleteDispatcher(t *testing.T) {
	fr := fakert.New()
	log := godaplog.New(nil, "test", "error")
	sent := make(chan dap.Message, 8)
	s := New(fr, log, func(m dap.Message) { sent <- m })

	s.Dispatcher.Handle(&dap.InitializeRequest{
		Request: dap.Request{ProtocolMessage: dap.ProtocolMessage{Seq: 1}, Command: "initialize"},
	})

	select {
	case msg := <-sent:
		if _, ok := msg.(*dap.InitializeResponse); !ok {
			t.Fatalf("expected InitializeResponse, got %T", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for InitializeResponse")
	}
}

func TestServeReturnsWhenConnCloses(t *testing.T) {
	fr := fakert.New()
	log := godaplog.New(nil, "test", "error")
	s := New(fr, log, func(dap.Message) {})

	conn := &fakeConn{serveErr: make(chan error, 1)}
	conn.serveErr <- nil

	done := make(chan error, 1)
	go func() { done <- s.Serve(context.Background(), conn) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for Serve to return")
	}
}

func TestServeIgnoresContextCancelUntilConnCloses(t *testing.T) {
	fr := fakert.New()
	log := godaplog.New(nil, "test", "error")
	s := New(fr, log, func(dap.Message) {})

	conn := &fakeConn{serveErr: make(chan error, 1)}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, conn) }()

	cancel()
	select {
	case <-done:
		t.Fatalf("Serve returned before the underlying connection closed")
	case <-time.After(100 * time.Millisecond):
	}

	conn.serveErr <- nil
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for Serve to return")
	}
}
