/*
 * godap
 *
 * Copyright 2024 The godap Authors. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the MIT
 * License, If a copy of the MIT License was not distributed with this
 * file, You can obtain one at https://opensource.org/licenses/MIT.
 */

/*
Package session wires one debug session's worth of collaborators — the
breakpoint store, exception policy, thread/frame registry, tracer, and DAP
dispatcher — around a single Runtime Facade, and runs its connection's read
loop.

Grounded on ECAL's debugTelnetServer (cli/tool/debug.go), which
likewise allocates one interpreter-and-debugger pair per accepted
connection and tears it down when the connection drops; the goroutine
lifecycle here is managed with golang.org/x/sync/errgroup the way
docker-buildx's Adapter.Start runs its server loop under an errgroup.Group
and waits on it in Stop, rather than ECAL's own sync.WaitGroup (which
only signals startup, not shutdown).
*/
package session

import (
	"context"

	dap "github.com/google/go-dap"
	"golang.org/x/sync/errgroup"

	"github.com/krotik/godap/internal/breakpoint"
	"github.com/krotik/godap/internal/dapserver"
	"github.com/krotik/godap/internal/exception"
	"github.com/krotik/godap/internal/facade"
	"github.com/krotik/godap/internal/godaplog"
	"github.com/krotik/godap/internal/registry"
	"github.com/krotik/godap/internal/tracer"
)

/*
Session owns every piece of per-connection debugger state.
*/
type Session struct {
	Facade      facade.RuntimeFacade
	Breakpoints *breakpoint.Store
	Exceptions  *exception.Policy
	Registry    *registry.Registry
	Tracer      *tracer.Tracer
	Dispatcher  *dapserver.Dispatcher
}

/*
New builds a fresh Session around rf, sending every DAP response/event
produced for it through send.
*/
func New(rf facade.RuntimeFacade, log *godaplog.Logger, send func(dap.Message)) *Session {
	var nextBpID int32
	bps := breakpoint.NewStore(func() int32 {
		nextBpID++
		return nextBpID
	})
	exc := exception.New(rf.ControlFlowExceptionTypes())
	reg := registry.New()
	tr := tracer.New(rf, bps, exc, reg, log)
	d := dapserver.New(rf, tr, bps, exc, reg, log, send)

	return &Session{
		Facade:      rf,
		Breakpoints: bps,
		Exceptions:  exc,
		Registry:    reg,
		Tracer:      tr,
		Dispatcher:  d,
	}
}

/*
Conn is the minimal transport surface Serve needs: something that reads
framed DAP messages and dispatches them, matching internal/transport.Conn's
Serve method.
*/
type Conn interface {
	Serve(handle func(dap.Message)) error
}

/*
Serve runs conn's read loop, dispatching every inbound message to
s.Dispatcher.Handle, and returns once the connection reaches a clean EOF or
fails. ctx is wired through errgroup.WithContext so a future second
goroutine (e.g. a heartbeat or idle-timeout watcher) can share its
cancellation with this one; conn itself has no context awareness, so
canceling ctx does not by itself unblock a blocked read — the caller must
close the underlying connection to do that.
*/
func (s *Session) Serve(ctx context.Context, conn Conn) error {
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		return conn.Serve(s.Dispatcher.Handle)
	})
	return g.Wait()
}
