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
Package facade defines the Runtime Facade: the abstract seam (§6.2)
between the tracing engine and whatever language runtime is actually being
debugged. The core never looks inside a runtime value, a frame, or a thread
handle — it only ever hands them back to the Facade that produced them.

This package intentionally contains no concrete runtime binding. A real
adapter (process bootstrap, interpreter embedding) lives outside this
module, per §1's scoping. internal/facade/fakert provides a scripted
fake used by this module's own tests.
*/
package facade

/*
ThreadHandle, FrameHandle, and CodeHandle are opaque references into the
runtime's own bookkeeping. They must be comparable so they can key maps in
the thread and frame registries.
*/
type (
	ThreadHandle interface{}
	FrameHandle  interface{}
	CodeHandle   interface{}
	Value        interface{}
)

/*
EventKind names one of the tracing callbacks a Facade can deliver.
*/
type EventKind int

const (
	EventLine EventKind = iota
	EventCall
	EventResume
	EventReturn
	EventYield
	EventRaise
	EventReraise
	EventUnwind
	EventExceptionHandled
	EventUnhandled
)

/*
EvalMode selects how Evaluate treats source_text: as an expression, or as a
statement sequence executed for effect.
*/
type EvalMode int

const (
	EvalExpression EvalMode = iota
	EvalExec
)

/*
Diagnostic is returned by the Facade when it cannot satisfy a request —
evaluate, read_scope, read_children, or write_scope.
*/
type Diagnostic struct {
	Message string
	Detail  string
}

func (d *Diagnostic) Error() string {
	if d.Detail != "" {
		return d.Message + ": " + d.Detail
	}
	return d.Message
}

/*
VariableDescriptor is one entry returned by ReadScope or ReadChildren: a
name, its display value, its runtime type name, and — for compound values —
an opaque reference to pass back into ReadChildren.
*/
type VariableDescriptor struct {
	Name         string
	DisplayValue string
	TypeName     string
	Children     Value // nil if the value has no children
}

/*
FrameLocation is the (source, line) a frame is currently stopped at, plus
enough to let the tracer ask the facade to throttle further events for the
code object the frame belongs to.
*/
type FrameLocation struct {
	SourcePath string
	Line       int
	Code       CodeHandle
}

/*
ExceptionValue describes an exception observed by a raise, reraise, or
unhandled-exception callback.
*/
type ExceptionValue struct {
	TypeName    string
	Message     string
	OriginFrame FrameHandle
}

/*
EventSink receives tracing callbacks from the Facade. The Tracer implements
this interface; InstallCallbacks registers it.
*/
type EventSink interface {
	// OnLine is called for every line reached on a traced thread. A sink may
	// call back into RuntimeFacade.DisableEventsFor when no breakpoint or
	// step needs further line events for loc.Code; the Tracer in this module
	// never does, so every line event keeps being delivered and checked.
	OnLine(thread ThreadHandle, frame FrameHandle, loc FrameLocation)

	// OnCall is called when a function/method call begins execution.
	OnCall(thread ThreadHandle, frame FrameHandle, loc FrameLocation)

	// OnResume is called when a generator/coroutine frame resumes.
	OnResume(thread ThreadHandle, frame FrameHandle, loc FrameLocation)

	// OnReturn is called when a frame returns, with its return value if any.
	OnReturn(thread ThreadHandle, frame FrameHandle, value Value)

	// OnYield is called when a generator frame yields, with the yielded value.
	OnYield(thread ThreadHandle, frame FrameHandle, value Value)

	// OnRaise is called when an exception is raised.
	OnRaise(thread ThreadHandle, frame FrameHandle, exc *ExceptionValue)

	// OnReraise is called when a caught exception is reraised.
	OnReraise(thread ThreadHandle, frame FrameHandle, exc *ExceptionValue)

	// OnUnwind is called when a frame unwinds due to an in-flight exception.
	OnUnwind(thread ThreadHandle, frame FrameHandle)

	/*
		OnUnhandled is the unhandled-exception top-level hook. It is called
		once the runtime knows no handler caught exc; the stack trace must be
		recovered from exc itself, since the normal stack has already unwound.
	*/
	OnUnhandled(thread ThreadHandle, exc *ExceptionValue)

	// OnThreadExited is called once when a thread's runtime handle ends.
	OnThreadExited(thread ThreadHandle)
}

/*
RuntimeFacade is the full seam described in §6.2.
*/
type RuntimeFacade interface {
	// InstallCallbacks registers sink to receive all tracing events.
	InstallCallbacks(sink EventSink)

	/*
		DisableEventsFor is an optimization hint: the core no longer needs the
		named event kinds for code, until something (e.g. a breakpoint change)
		requires re-enabling them.
	*/
	DisableEventsFor(code CodeHandle, kinds []EventKind)

	/*
		CurrentThread returns the calling thread's handle, or ok=false during
		interpreter shutdown.
	*/
	CurrentThread() (thread ThreadHandle, ok bool)

	// WalkStack walks from frame toward its callers, innermost first.
	WalkStack(frame FrameHandle) []FrameHandle

	// IsInternalFrame reports whether frame belongs to the debugger itself or
	// to the runtime's own standard library, and so should be hidden from the
	// client and never suspended on.
	IsInternalFrame(frame FrameHandle) bool

	// Locate returns the (source, line) frame is currently positioned at, for
	// stack trace display and frame-id bookkeeping.
	Locate(frame FrameHandle) FrameLocation

	// Evaluate runs sourceText in frame's context.
	Evaluate(frame FrameHandle, sourceText string, mode EvalMode) (Value, *Diagnostic)

	// WriteScope assigns value (parsed from valueText) to name in frame's
	// scope of the given kind ("local" or "global"). Backs the setVariable
	// DAP request.
	WriteScope(frame FrameHandle, kind string, name string, valueText string) *Diagnostic

	// ReadScope lists the variables visible in frame's local or global scope.
	ReadScope(frame FrameHandle, kind string) ([]VariableDescriptor, *Diagnostic)

	// ReadChildren lists the named children of a compound value previously
	// returned as a VariableDescriptor.Children reference.
	ReadChildren(value Value) ([]VariableDescriptor, *Diagnostic)

	// ControlFlowExceptionTypes names exception types the runtime uses for
	// normal control flow (e.g. iterator-end), ignored by the exception
	// policy unless they go unhandled.
	ControlFlowExceptionTypes() map[string]bool

	// NormalizeSourcePath canonicalizes a raw path the way the runtime itself
	// would resolve it (symlinks, working directory, etc).
	NormalizeSourcePath(raw string) string
}
