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
Package dapserver maps DAP protocol requests onto the debugger core
(breakpoint store, exception policy, tracer, registries) and turns
tracer.StopEvent / thread lifecycle notifications back into DAP events.

The request-name -> handler-function shape is grounded on
interpreter/debug_cmd.go's DebugCommandsMap (a map from command name to a
util.DebugCommand.Run method), generalized here from a flat
map[string]func to a type switch over *dap.XxxRequest, the idiom used
throughout the retrieved DAP adapters (most directly
rpc/dapserver/session.go's dispatchRequest and dap/adapter.go's Handler
struct) — both amount to the same "one case per request name" dispatch,
just expressed with Go's stronger typing where the request payload shape is
already known, which google/go-dap's typed request/response structs make
possible.
*/
package dapserver

import (
	"encoding/json"
	"fmt"
	"sync"

	dap "github.com/google/go-dap"

	"github.com/krotik/godap/internal/breakpoint"
	"github.com/krotik/godap/internal/exception"
	"github.com/krotik/godap/internal/facade"
	"github.com/krotik/godap/internal/godaperr"
	"github.com/krotik/godap/internal/godaplog"
	"github.com/krotik/godap/internal/registry"
	"github.com/krotik/godap/internal/tracer"
)

/*
Dispatcher owns one DAP client connection's worth of protocol state: the
sequence counter for outgoing messages, the variablesReference table for
the currently suspended frames, and a send queue consumed by the transport.
*/
type Dispatcher struct {
	rf  facade.RuntimeFacade
	tr  *tracer.Tracer
	bps *breakpoint.Store
	exc *exception.Policy
	reg *registry.Registry
	log *godaplog.Logger

	mu   sync.Mutex
	send func(dap.Message)

	nextBpID int32
	bpIDmu   sync.Mutex

	varRefs *varRefTable
}

/*
New wires a Dispatcher to its collaborators. send is called (from whatever
goroutine) for every response or event the dispatcher produces; the
transport owns actually serializing and writing it.
*/
func New(rf facade.RuntimeFacade, tr *tracer.Tracer, bps *breakpoint.Store, exc *exception.Policy, reg *registry.Registry, log *godaplog.Logger, send func(dap.Message)) *Dispatcher {
	d := &Dispatcher{rf: rf, tr: tr, bps: bps, exc: exc, reg: reg, log: log, send: send, varRefs: newVarRefTable()}

	tr.OnStop(d.onStop)
	tr.OnContinue(d.onContinue)
	tr.OnThreadEvent(d.onThreadEvent)

	return d
}

func (d *Dispatcher) onStop(ev tracer.StopEvent) {
	tid, _ := d.reg.ThreadExternalID(ev.Thread)
	body := dap.StoppedEventBody{
		Reason:            string(ev.Reason),
		ThreadId:          int(tid),
		AllThreadsStopped: ev.AllThreadsStopped,
		Text:              ev.Text,
		Description:       ev.Description,
	}
	d.send(&dap.StoppedEvent{Event: newEvent("stopped"), Body: body})
}

func (d *Dispatcher) onContinue(thread facade.ThreadHandle) {
	tid, _ := d.reg.ThreadExternalID(thread)
	d.send(&dap.ContinuedEvent{
		Event: newEvent("continued"),
		Body:  dap.ContinuedEventBody{ThreadId: int(tid), AllThreadsContinued: false},
	})
}

/*
onThreadEvent fires the thread{reason:started/exited} event required the
first time a traced thread becomes known to the client, and again when that
thread's runtime handle ends.
*/
func (d *Dispatcher) onThreadEvent(thread facade.ThreadHandle, started bool) {
	tid, _ := d.reg.ThreadExternalID(thread)
	reason := "exited"
	if started {
		reason = "started"
	}
	d.send(&dap.ThreadEvent{
		Event: newEvent("thread"),
		Body:  dap.ThreadEventBody{Reason: reason, ThreadId: int(tid)},
	})
}

/*
allocBreakpointID is a plain monotonic counter. It is not wired to the
breakpoint store: breakpoint ids come from the allocator passed to
breakpoint.NewStore by whoever builds the store (session.New keeps its own
counter for that).
*/
func (d *Dispatcher) allocBreakpointID() int32 {
	d.bpIDmu.Lock()
	defer d.bpIDmu.Unlock()
	d.nextBpID++
	return d.nextBpID
}

func newEvent(event string) dap.Event {
	return dap.Event{ProtocolMessage: dap.ProtocolMessage{Seq: 0, Type: "event"}, Event: event}
}

func newResponse(requestSeq int, command string) dap.Response {
	return dap.Response{
		ProtocolMessage: dap.ProtocolMessage{Seq: 0, Type: "response"},
		RequestSeq:      requestSeq,
		Success:         true,
		Command:         command,
	}
}

func newErrorResponse(requestSeq int, command string, err error) *dap.ErrorResponse {
	return &dap.ErrorResponse{
		Response: dap.Response{
			ProtocolMessage: dap.ProtocolMessage{Seq: 0, Type: "response"},
			RequestSeq:      requestSeq,
			Success:         false,
			Command:         command,
			Message:         err.Error(),
		},
		Body: dap.ErrorResponseBody{Error: &dap.ErrorMessage{Format: err.Error()}},
	}
}

/*
Handle processes one inbound DAP message, dispatching requests by concrete
type and ignoring anything that is not a RequestMessage (a malformed or
out-of-band message the transport already logged).
*/
func (d *Dispatcher) Handle(msg dap.Message) {
	req, ok := msg.(dap.RequestMessage)
	if !ok {
		return
	}

	var err error
	switch r := msg.(type) {
	case *dap.InitializeRequest:
		err = d.onInitialize(r)
	case *dap.LaunchRequest:
		err = d.onLaunch(r)
	case *dap.AttachRequest:
		err = d.onAttach(r)
	case *dap.ConfigurationDoneRequest:
		err = d.onConfigurationDone(r)
	case *dap.DisconnectRequest:
		err = d.onDisconnect(r)
	case *dap.ThreadsRequest:
		err = d.onThreads(r)
	case *dap.StackTraceRequest:
		err = d.onStackTrace(r)
	case *dap.ScopesRequest:
		err = d.onScopes(r)
	case *dap.VariablesRequest:
		err = d.onVariables(r)
	case *dap.SetVariableRequest:
		err = d.onSetVariable(r)
	case *dap.EvaluateRequest:
		err = d.onEvaluate(r)
	case *dap.SetBreakpointsRequest:
		err = d.onSetBreakpoints(r)
	case *dap.SetExceptionBreakpointsRequest:
		err = d.onSetExceptionBreakpoints(r)
	case *dap.ExceptionInfoRequest:
		err = d.onExceptionInfo(r)
	case *dap.PauseRequest:
		err = d.onPause(r)
	case *dap.ContinueRequest:
		err = d.onContinueReq(r)
	case *dap.NextRequest:
		err = d.onNext(r)
	case *dap.StepInRequest:
		err = d.onStepIn(r)
	case *dap.StepOutRequest:
		err = d.onStepOut(r)
	case *dap.SourceRequest:
		err = d.onSource(r)
	case *dap.ModulesRequest:
		err = d.onModules(r)
	default:
		err = godaperr.NewClientError(req.GetRequest().Command, fmt.Sprintf("unsupported request %T", r))
	}

	if err != nil {
		d.send(newErrorResponse(req.GetRequest().Seq, req.GetRequest().Command, err))
	}
}

func argsErr(command string, body json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(body, v); err != nil {
		return godaperr.NewClientError(command, err.Error())
	}
	return nil
}

func (d *Dispatcher) threadHandle(externalID int) (facade.ThreadHandle, error) {
	h, ok := d.reg.ThreadByExternalID(int32(externalID))
	if !ok {
		return nil, godaperr.NewClientError("thread lookup", fmt.Sprintf("unknown thread id %d", externalID))
	}
	return h, nil
}

func (d *Dispatcher) frameHandle(externalID int) (facade.FrameHandle, error) {
	h, ok := d.reg.FrameByExternalID(int32(externalID))
	if !ok {
		return nil, godaperr.NewClientError("frame lookup", fmt.Sprintf("unknown or stale frame id %d", externalID))
	}
	return h, nil
}
