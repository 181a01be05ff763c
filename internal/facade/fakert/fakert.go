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
Package fakert is a scripted testing double for facade.RuntimeFacade,
grounded on the fake debuggee doubles debugpy tests itself with
(original_source/tests/helpers/pydevd/_fake.py, tests/helpers/vsc/_fake.py):
a small in-process stand-in that plays back a fixed sequence of events and
records what the tracer told it to do, so the tracer/breakpoint/step/
dispatcher suites can drive realistic scenarios without a real interpreter.
*/
package fakert

import (
	"fmt"
	"sync"

	"github.com/krotik/godap/internal/facade"
)

/*
Step describes one scripted tracing event for a thread.
*/
type Step struct {
	Kind      facade.EventKind
	Source    string
	Line      int
	Locals    map[string]string // display values visible via ReadScope(local)
	Return    facade.Value       // for EventReturn/EventYield
	Exception *facade.ExceptionValue
}

type frame struct {
	id       int
	source   string
	line     int
	locals   map[string]string
	internal bool
}

/*
Facade is the fake facade itself.
*/
type Facade struct {
	mu          sync.Mutex
	sink        facade.EventSink
	nextFrameID int
	owner       map[*frame]facade.ThreadHandle
	stacks      map[facade.ThreadHandle][]*frame
	disabled    map[facade.CodeHandle]map[facade.EventKind]bool
	controlFlow map[string]bool
	internal    map[string]bool // source paths considered internal
	current     facade.ThreadHandle
}

/*
New creates an empty Facade. internalSources names source paths that
IsInternalFrame should hide from the client.
*/
func New(internalSources ...string) *Facade {
	internal := make(map[string]bool, len(internalSources))
	for _, s := range internalSources {
		internal[s] = true
	}
	return &Facade{
		owner:       make(map[*frame]facade.ThreadHandle),
		stacks:      make(map[facade.ThreadHandle][]*frame),
		disabled:    make(map[facade.CodeHandle]map[facade.EventKind]bool),
		controlFlow: make(map[string]bool),
		internal:    internal,
	}
}

/*
SetControlFlowExceptionTypes registers the exception type names the policy
should treat as normal control flow.
*/
func (f *Facade) SetControlFlowExceptionTypes(types ...string) {
	for _, t := range types {
		f.controlFlow[t] = true
	}
}

func (f *Facade) InstallCallbacks(sink facade.EventSink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sink = sink
}

func (f *Facade) DisableEventsFor(code facade.CodeHandle, kinds []facade.EventKind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.disabled[code]
	if !ok {
		m = make(map[facade.EventKind]bool)
		f.disabled[code] = m
	}
	for _, k := range kinds {
		m[k] = true
	}
}

/*
EventsDisabledFor reports whether DisableEventsFor(code, [kind]) has been
called — used by tests to check that such calls are recorded.
*/
func (f *Facade) EventsDisabledFor(code facade.CodeHandle, kind facade.EventKind) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disabled[code] != nil && f.disabled[code][kind]
}

func (f *Facade) CurrentThread() (facade.ThreadHandle, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return nil, false
	}
	return f.current, true
}

func (f *Facade) WalkStack(fr facade.FrameHandle) []facade.FrameHandle {
	f.mu.Lock()
	defer f.mu.Unlock()

	ff, ok := fr.(*frame)
	if !ok {
		return nil
	}
	owner := f.owner[ff]
	stack := f.stacks[owner]

	idx := -1
	for i, s := range stack {
		if s == ff {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	out := make([]facade.FrameHandle, 0, idx+1)
	for i := idx; i >= 0; i-- {
		out = append(out, stack[i])
	}
	return out
}

func (f *Facade) IsInternalFrame(fr facade.FrameHandle) bool {
	ff, ok := fr.(*frame)
	return ok && ff.internal
}

func (f *Facade) Locate(fr facade.FrameHandle) facade.FrameLocation {
	ff, ok := fr.(*frame)
	if !ok {
		return facade.FrameLocation{}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locationOf(ff)
}

func (f *Facade) Evaluate(fr facade.FrameHandle, sourceText string, mode facade.EvalMode) (facade.Value, *facade.Diagnostic) {
	ff, ok := fr.(*frame)
	if !ok {
		return nil, &facade.Diagnostic{Message: "invalid frame"}
	}
	if v, ok := ff.locals[sourceText]; ok {
		return facade.Value(v), nil
	}
	return nil, &facade.Diagnostic{Message: "name not found", Detail: sourceText}
}

func (f *Facade) WriteScope(fr facade.FrameHandle, kind string, name string, valueText string) *facade.Diagnostic {
	ff, ok := fr.(*frame)
	if !ok {
		return &facade.Diagnostic{Message: "invalid frame"}
	}
	ff.locals[name] = valueText
	return nil
}

func (f *Facade) ReadScope(fr facade.FrameHandle, kind string) ([]facade.VariableDescriptor, *facade.Diagnostic) {
	ff, ok := fr.(*frame)
	if !ok {
		return nil, &facade.Diagnostic{Message: "invalid frame"}
	}
	if kind != "local" {
		return nil, nil
	}
	out := make([]facade.VariableDescriptor, 0, len(ff.locals))
	for name, val := range ff.locals {
		out = append(out, facade.VariableDescriptor{Name: name, DisplayValue: val, TypeName: "string"})
	}
	return out, nil
}

func (f *Facade) ReadChildren(v facade.Value) ([]facade.VariableDescriptor, *facade.Diagnostic) {
	return nil, nil
}

func (f *Facade) ControlFlowExceptionTypes() map[string]bool {
	return f.controlFlow
}

func (f *Facade) NormalizeSourcePath(raw string) string {
	return raw
}

/*
Drive replays script on thread synchronously in the calling goroutine —
tests that need other threads to keep running concurrently call Drive from
their own goroutine, exactly like ECAL's own debug tests run the
debuggee script on a background goroutine while the test polls for
suspension (interpreter/debug_test.go's waitForThreadSuspension).
*/
func (f *Facade) Drive(thread facade.ThreadHandle, script []Step) {
	for _, step := range script {
		f.mu.Lock()
		f.current = thread
		stack := f.stacks[thread]
		f.mu.Unlock()

		switch step.Kind {
		case facade.EventCall:
			f.mu.Lock()
			f.nextFrameID++
			fr := &frame{
				id:       f.nextFrameID,
				source:   step.Source,
				line:     step.Line,
				locals:   copyLocals(step.Locals),
				internal: f.internal[step.Source],
			}
			f.owner[fr] = thread
			stack = append(stack, fr)
			f.stacks[thread] = stack
			sink := f.sink
			f.mu.Unlock()
			if sink != nil {
				sink.OnCall(thread, fr, f.locationOf(fr))
			}

		case facade.EventReturn:
			f.mu.Lock()
			if len(stack) == 0 {
				f.mu.Unlock()
				continue
			}
			top := stack[len(stack)-1]
			f.stacks[thread] = stack[:len(stack)-1]
			sink := f.sink
			f.mu.Unlock()
			if sink != nil {
				sink.OnReturn(thread, top, step.Return)
			}

		case facade.EventYield:
			f.mu.Lock()
			if len(stack) == 0 {
				f.mu.Unlock()
				continue
			}
			top := stack[len(stack)-1]
			sink := f.sink
			f.mu.Unlock()
			if sink != nil {
				sink.OnYield(thread, top, step.Return)
			}

		case facade.EventLine:
			f.mu.Lock()
			if len(stack) == 0 {
				f.nextFrameID++
				fr := &frame{id: f.nextFrameID, source: step.Source, line: step.Line, locals: copyLocals(step.Locals), internal: f.internal[step.Source]}
				f.owner[fr] = thread
				stack = append(stack, fr)
				f.stacks[thread] = stack
			}
			top := stack[len(stack)-1]
			top.source = step.Source
			top.line = step.Line
			if step.Locals != nil {
				top.locals = copyLocals(step.Locals)
			}
			sink := f.sink
			f.mu.Unlock()
			if sink != nil {
				sink.OnLine(thread, top, f.locationOf(top))
			}

		case facade.EventRaise:
			f.mu.Lock()
			sink := f.sink
			var top *frame
			if len(stack) > 0 {
				top = stack[len(stack)-1]
			}
			f.mu.Unlock()
			if sink != nil {
				sink.OnRaise(thread, top, step.Exception)
			}

		case facade.EventReraise:
			f.mu.Lock()
			sink := f.sink
			var top *frame
			if len(stack) > 0 {
				top = stack[len(stack)-1]
			}
			f.mu.Unlock()
			if sink != nil {
				sink.OnReraise(thread, top, step.Exception)
			}

		case facade.EventUnwind:
			f.mu.Lock()
			var top *frame
			if len(stack) > 0 {
				top = stack[len(stack)-1]
			}
			sink := f.sink
			f.mu.Unlock()
			if sink != nil && top != nil {
				sink.OnUnwind(thread, top)
			}

		case facade.EventUnhandled:
			f.mu.Lock()
			sink := f.sink
			f.mu.Unlock()
			if sink != nil {
				sink.OnUnhandled(thread, step.Exception)
			}

		default:
			panic(fmt.Sprintf("fakert: unsupported step kind %v", step.Kind))
		}
	}
}

/*
ThreadFinished tells the sink a thread has ended, matching the Facade's
normal end-of-life notification.
*/
func (f *Facade) ThreadFinished(thread facade.ThreadHandle) {
	f.mu.Lock()
	sink := f.sink
	delete(f.stacks, thread)
	f.mu.Unlock()
	if sink != nil {
		sink.OnThreadExited(thread)
	}
}

func (f *Facade) locationOf(fr *frame) facade.FrameLocation {
	return facade.FrameLocation{SourcePath: fr.source, Line: fr.line, Code: fr.source}
}

func copyLocals(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
