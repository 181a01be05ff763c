/*
 * godap
 *
 * Copyright 2024 The godap Authors. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the MIT
 * License, If a copy of the MIT License was not distributed with this
 * file, You can obtain one at https://opensource.org/licenses/MIT.
 */

package dapserver

import (
	"fmt"
	"sync"

	dap "github.com/google/go-dap"

	"github.com/krotik/godap/internal/breakpoint"
	"github.com/krotik/godap/internal/exception"
	"github.com/krotik/godap/internal/facade"
	"github.com/krotik/godap/internal/godaperr"
	"github.com/krotik/godap/internal/registry"
	dapsource "github.com/krotik/godap/internal/source"
	"github.com/krotik/godap/internal/tracer"
)

/*
varRefTable hands out DAP variablesReference ids for scopes (local/global)
and compound values, each resolving back to a (frame, kind) pair or a
facade.Value, matching docker-buildx's Adapter which keys its own
variablesReference ids off a thread/frame-scoped table (dap/adapter.go's
Handler threads/variables maps) rather than deriving the reference
arithmetically from the value itself.
*/
type varRefTable struct {
	mu      sync.Mutex
	next    int
	scopes  map[int]scopeRef
	compund map[int]facade.Value
}

type scopeRef struct {
	frame facade.FrameHandle
	kind  string
}

func newVarRefTable() *varRefTable {
	return &varRefTable{
		scopes:  make(map[int]scopeRef),
		compund: make(map[int]facade.Value),
	}
}

func (v *varRefTable) putScope(frame facade.FrameHandle, kind string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.next++
	v.scopes[v.next] = scopeRef{frame: frame, kind: kind}
	return v.next
}

func (v *varRefTable) putValue(val facade.Value) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.next++
	v.compund[v.next] = val
	return v.next
}

func (v *varRefTable) resolveScope(ref int) (scopeRef, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	s, ok := v.scopes[ref]
	return s, ok
}

func (v *varRefTable) resolveValue(ref int) (facade.Value, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	val, ok := v.compund[ref]
	return val, ok
}

/*
reset clears every live variablesReference. Called whenever any thread
resumes: every reference handed out only stays meaningful while the frame
it was scoped to remains suspended, exactly like the frame ids the registry
invalidates on resume.
*/
func (v *varRefTable) reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scopes = make(map[int]scopeRef)
	v.compund = make(map[int]facade.Value)
}

func (d *Dispatcher) onInitialize(req *dap.InitializeRequest) error {
	resp := &dap.InitializeResponse{Response: newResponse(req.Seq, req.Command)}
	resp.Body.SupportsConfigurationDoneRequest = true
	resp.Body.SupportsConditionalBreakpoints = true
	resp.Body.SupportsHitConditionalBreakpoints = true
	resp.Body.SupportsLogPoints = true
	resp.Body.SupportsExceptionOptions = true
	resp.Body.SupportsSetVariable = true
	resp.Body.SupportsEvaluateForHovers = true
	resp.Body.SupportsTerminateRequest = true
	d.send(resp)
	d.send(&dap.InitializedEvent{Event: newEvent("initialized")})
	return nil
}

func (d *Dispatcher) onLaunch(req *dap.LaunchRequest) error {
	d.send(&dap.LaunchResponse{Response: newResponse(req.Seq, req.Command)})
	return nil
}

func (d *Dispatcher) onAttach(req *dap.AttachRequest) error {
	d.send(&dap.AttachResponse{Response: newResponse(req.Seq, req.Command)})
	return nil
}

func (d *Dispatcher) onConfigurationDone(req *dap.ConfigurationDoneRequest) error {
	d.send(&dap.ConfigurationDoneResponse{Response: newResponse(req.Seq, req.Command)})
	return nil
}

func (d *Dispatcher) onDisconnect(req *dap.DisconnectRequest) error {
	d.varRefs.reset()
	for _, th := range d.reg.Threads() {
		src, line := topSourceLine(d.reg.Stack(th))
		d.tr.Continue(th, tracer.ContinueResume, src, line)
	}
	d.send(&dap.DisconnectResponse{Response: newResponse(req.Seq, req.Command)})
	return nil
}

/*
onThreads lists only traced threads: internal/debugger-owned threads are
never surfaced to the client.
*/
func (d *Dispatcher) onThreads(req *dap.ThreadsRequest) error {
	resp := &dap.ThreadsResponse{Response: newResponse(req.Seq, req.Command)}
	for _, th := range d.reg.TracedThreads() {
		id, _ := d.reg.ThreadExternalID(th)
		resp.Body.Threads = append(resp.Body.Threads, dap.Thread{Id: int(id), Name: "thread"})
	}
	d.send(resp)
	return nil
}

func (d *Dispatcher) onStackTrace(req *dap.StackTraceRequest) error {
	th, err := d.threadHandle(req.Arguments.ThreadId)
	if err != nil {
		return err
	}

	stack := d.reg.Stack(th)
	resp := &dap.StackTraceResponse{Response: newResponse(req.Seq, req.Command)}
	resp.Body.TotalFrames = len(stack)

	start := req.Arguments.StartFrame
	end := len(stack)
	if req.Arguments.Levels > 0 && start+req.Arguments.Levels < end {
		end = start + req.Arguments.Levels
	}

	for depth := start; depth < end && depth < len(stack); depth++ {
		fr := stack[depth]
		if fr.Internal {
			continue
		}
		extID, _ := d.reg.FrameExternalID(th, depth)
		resp.Body.StackFrames = append(resp.Body.StackFrames, dap.StackFrame{
			Id:     int(extID),
			Name:   fmt.Sprintf("frame %d", depth),
			Line:   fr.Line,
			Column: 1,
			Source: &dap.Source{Path: fr.SourcePath, Name: dapsource.New(fr.SourcePath).String()},
		})
	}
	d.send(resp)
	return nil
}

func (d *Dispatcher) onScopes(req *dap.ScopesRequest) error {
	fh, err := d.frameHandle(req.Arguments.FrameId)
	if err != nil {
		return err
	}

	resp := &dap.ScopesResponse{Response: newResponse(req.Seq, req.Command)}
	resp.Body.Scopes = []dap.Scope{
		{Name: "Locals", VariablesReference: d.varRefs.putScope(fh, "local"), Expensive: false},
		{Name: "Globals", VariablesReference: d.varRefs.putScope(fh, "global"), Expensive: true},
	}
	d.send(resp)
	return nil
}

func (d *Dispatcher) onVariables(req *dap.VariablesRequest) error {
	resp := &dap.VariablesResponse{Response: newResponse(req.Seq, req.Command)}

	if sref, ok := d.varRefs.resolveScope(req.Arguments.VariablesReference); ok {
		vars, diag := d.rf.ReadScope(sref.frame, sref.kind)
		if diag != nil {
			return godaperr.NewFacadeError("variables", diag)
		}
		for _, v := range vars {
			resp.Body.Variables = append(resp.Body.Variables, d.toDAPVariable(v))
		}
		d.send(resp)
		return nil
	}

	if val, ok := d.varRefs.resolveValue(req.Arguments.VariablesReference); ok {
		children, diag := d.rf.ReadChildren(val)
		if diag != nil {
			return godaperr.NewFacadeError("variables", diag)
		}
		for _, v := range children {
			resp.Body.Variables = append(resp.Body.Variables, d.toDAPVariable(v))
		}
		d.send(resp)
		return nil
	}

	return godaperr.NewClientError("variables", "unknown variablesReference")
}

func (d *Dispatcher) toDAPVariable(v facade.VariableDescriptor) dap.Variable {
	ref := 0
	if v.Children != nil {
		ref = d.varRefs.putValue(v.Children)
	}
	return dap.Variable{Name: v.Name, Value: v.DisplayValue, Type: v.TypeName, VariablesReference: ref}
}

func (d *Dispatcher) onSetVariable(req *dap.SetVariableRequest) error {
	sref, ok := d.varRefs.resolveScope(req.Arguments.VariablesReference)
	if !ok {
		return godaperr.NewClientError("setVariable", "setVariable is only supported on a scope's variablesReference")
	}
	if diag := d.rf.WriteScope(sref.frame, sref.kind, req.Arguments.Name, req.Arguments.Value); diag != nil {
		return godaperr.NewFacadeError("setVariable", diag)
	}
	resp := &dap.SetVariableResponse{Response: newResponse(req.Seq, req.Command)}
	resp.Body.Value = req.Arguments.Value
	d.send(resp)
	return nil
}

func (d *Dispatcher) onEvaluate(req *dap.EvaluateRequest) error {
	var fh facade.FrameHandle
	if req.Arguments.FrameId != 0 {
		var err error
		fh, err = d.frameHandle(req.Arguments.FrameId)
		if err != nil {
			return err
		}
	}

	v, diag := d.rf.Evaluate(fh, req.Arguments.Expression, facade.EvalExpression)
	if diag != nil {
		return godaperr.NewFacadeError("evaluate", diag)
	}

	resp := &dap.EvaluateResponse{Response: newResponse(req.Seq, req.Command)}
	resp.Body.Result = fmt.Sprintf("%v", v)
	d.send(resp)
	return nil
}

func (d *Dispatcher) onSetBreakpoints(req *dap.SetBreakpointsRequest) error {
	src := dapsource.New(req.Arguments.Source.Path)

	specs := make([]breakpoint.Spec, len(req.Arguments.Breakpoints))
	for i, b := range req.Arguments.Breakpoints {
		specs[i] = breakpoint.Spec{Line: b.Line, Condition: b.Condition, HitCondition: b.HitCondition, LogMessage: b.LogMessage}
	}

	bps, errs := d.bps.SetBreakpoints(src, specs)

	resp := &dap.SetBreakpointsResponse{Response: newResponse(req.Seq, req.Command)}
	resp.Body.Breakpoints = make([]dap.Breakpoint, len(specs))
	for i := range specs {
		if errs[i] != nil {
			resp.Body.Breakpoints[i] = dap.Breakpoint{Verified: false, Message: errs[i].Error(), Line: specs[i].Line}
			continue
		}
		resp.Body.Breakpoints[i] = dap.Breakpoint{Verified: true, Id: int(bps[i].ID), Line: bps[i].Line, Source: &req.Arguments.Source}
	}
	d.send(resp)
	return nil
}

func (d *Dispatcher) onSetExceptionBreakpoints(req *dap.SetExceptionBreakpointsRequest) error {
	mode := exception.Never
	for _, f := range req.Arguments.Filters {
		switch f {
		case "always":
			mode = exception.Always
		case "unhandled":
			mode = exception.Unhandled
		case "userUnhandled":
			mode = exception.UserUnhandled
		}
	}

	overrides := make(map[string]exception.BreakMode)
	for _, opt := range req.Arguments.ExceptionOptions {
		m := toBreakMode(opt.BreakMode)
		for _, p := range opt.Path {
			for _, name := range p.Names {
				overrides[name] = m
			}
		}
	}
	if len(req.Arguments.ExceptionOptions) > 0 {
		mode = exception.Never
	}

	d.exc.SetMode(mode, overrides)
	d.send(&dap.SetExceptionBreakpointsResponse{Response: newResponse(req.Seq, req.Command)})
	return nil
}

func toBreakMode(m dap.ExceptionBreakMode) exception.BreakMode {
	switch m {
	case dap.ExceptionBreakModeAlways:
		return exception.Always
	case dap.ExceptionBreakModeUnhandled:
		return exception.Unhandled
	case dap.ExceptionBreakModeUserUnhandled:
		return exception.UserUnhandled
	}
	return exception.Never
}

func (d *Dispatcher) onExceptionInfo(req *dap.ExceptionInfoRequest) error {
	th, err := d.threadHandle(req.Arguments.ThreadId)
	if err != nil {
		return err
	}

	info, ok := d.tr.ExceptionInfo(th)
	if !ok {
		return godaperr.NewClientError("exceptionInfo", "thread is not currently suspended on an exception")
	}

	resp := &dap.ExceptionInfoResponse{Response: newResponse(req.Seq, req.Command)}
	resp.Body.ExceptionId = info.TypeName
	resp.Body.Description = info.Message
	resp.Body.BreakMode = toExceptionBreakMode(info.BreakMode)
	resp.Body.Details = &dap.ExceptionDetails{
		Message:    info.Message,
		TypeName:   info.TypeName,
		StackTrace: info.StackTrace,
	}
	d.send(resp)
	return nil
}

func toExceptionBreakMode(m exception.BreakMode) dap.ExceptionBreakMode {
	switch m {
	case exception.Always:
		return dap.ExceptionBreakModeAlways
	case exception.Unhandled:
		return dap.ExceptionBreakModeUnhandled
	case exception.UserUnhandled:
		return dap.ExceptionBreakModeUserUnhandled
	}
	return dap.ExceptionBreakModeNever
}

func (d *Dispatcher) onPause(req *dap.PauseRequest) error {
	th, err := d.threadHandle(req.Arguments.ThreadId)
	if err != nil {
		return err
	}
	d.tr.Pause(th)
	d.send(&dap.PauseResponse{Response: newResponse(req.Seq, req.Command)})
	return nil
}

func (d *Dispatcher) onContinueReq(req *dap.ContinueRequest) error {
	if err := d.resume(req.Arguments.ThreadId, tracer.ContinueResume); err != nil {
		return err
	}
	resp := &dap.ContinueResponse{Response: newResponse(req.Seq, req.Command)}
	resp.Body.AllThreadsContinued = true
	d.send(resp)
	return nil
}

func (d *Dispatcher) onNext(req *dap.NextRequest) error {
	if err := d.resume(req.Arguments.ThreadId, tracer.ContinueStepOver); err != nil {
		return err
	}
	d.send(&dap.NextResponse{Response: newResponse(req.Seq, req.Command)})
	return nil
}

func (d *Dispatcher) onStepIn(req *dap.StepInRequest) error {
	if err := d.resume(req.Arguments.ThreadId, tracer.ContinueStepIn); err != nil {
		return err
	}
	d.send(&dap.StepInResponse{Response: newResponse(req.Seq, req.Command)})
	return nil
}

func (d *Dispatcher) onStepOut(req *dap.StepOutRequest) error {
	if err := d.resume(req.Arguments.ThreadId, tracer.ContinueStepOut); err != nil {
		return err
	}
	d.send(&dap.StepOutResponse{Response: newResponse(req.Seq, req.Command)})
	return nil
}

/*
resume looks up the thread, reads the (source, line) it is currently
stopped at from the registry's own bookkeeping — needed to arm a step
tracker origin — clears every live variablesReference, and wakes the
thread via the tracer.
*/
func (d *Dispatcher) resume(threadID int, kind tracer.ContinueKind) error {
	th, err := d.threadHandle(threadID)
	if err != nil {
		return err
	}
	src, line := topSourceLine(d.reg.Stack(th))
	d.varRefs.reset()
	d.tr.Continue(th, kind, src, line)
	return nil
}

func topSourceLine(stack []registry.Frame) (string, int) {
	if len(stack) == 0 {
		return "", 0
	}
	return stack[0].SourcePath, stack[0].Line
}

func (d *Dispatcher) onSource(req *dap.SourceRequest) error {
	return godaperr.NewClientError("source", "source content is not available without a live runtime connection")
}

func (d *Dispatcher) onModules(req *dap.ModulesRequest) error {
	resp := &dap.ModulesResponse{Response: newResponse(req.Seq, req.Command)}
	d.send(resp)
	return nil
}
