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
Package tracer implements the central tracing engine of §4.6: it
receives every event the Runtime Facade reports, decides — via the
breakpoint store, exception policy, and per-thread step tracker — whether
the reporting thread (and, per §5's all-threads-stopped rule, every
other live thread) must suspend, and parks suspended threads on a single
shared control variable until a continue/step/pause request wakes them.

Grounded on interpreter/debug.go's ecalDebugger: a lock-guarded struct
whose VisitState/VisitStepInState/VisitStepOutState implement exactly this
per-event contract, and whose interrogationState parks a waiting thread on
a sync.Cond until Continue changes its command and broadcasts. This package
generalizes ECAL's one sync.Cond PER THREAD into a single
shared stopped_by control variable: ECAL's own runtime has no
notion of "stop the whole program", only "stop this thread", whereas the
debugger core here models a GIL-like runtime where a suspended thread
implies every other live thread is also considered stopped from the
client's perspective — so one shared sync.Cond, and one shared "the
debuggee is stopped" flag, replaces ECAL's map of independent
conds.
*/
package tracer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/krotik/common/errorutil"

	"github.com/krotik/godap/internal/breakpoint"
	"github.com/krotik/godap/internal/exception"
	"github.com/krotik/godap/internal/facade"
	"github.com/krotik/godap/internal/godaplog"
	"github.com/krotik/godap/internal/registry"
	"github.com/krotik/godap/internal/source"
	"github.com/krotik/godap/internal/stepper"
)

/*
StopReason names why a thread suspended, surfaced to the DAP layer as the
`stopped` event's reason field.
*/
type StopReason string

const (
	ReasonBreakpoint StopReason = "breakpoint"
	ReasonStep       StopReason = "step"
	ReasonPause      StopReason = "pause"
	ReasonException  StopReason = "exception"
	ReasonEntry      StopReason = "entry"
)

/*
StopEvent is delivered to the Tracer's owner (the DAP dispatcher) every
time a thread suspends.
*/
type StopEvent struct {
	Thread            facade.ThreadHandle
	Reason            StopReason
	Description       string
	Text              string
	AllThreadsStopped bool
}

/*
ContinueKind names the interrogation command a parked thread is woken with,
mirroring ECAL's interrogationCmd enum (Resume/StepIn/StepOver/
StepOut), minus Kill which this core models as disconnect/terminate instead.
*/
type ContinueKind int

const (
	ContinueResume ContinueKind = iota
	ContinueStepIn
	ContinueStepOver
	ContinueStepOut
)

type threadControl struct {
	halted bool
	step   *stepper.Step
	depth  int
	exc    *ExceptionInfo
}

/*
ExceptionInfo is the exception a thread is currently suspended on, surfaced
by the DAP exceptionInfo request. It is set the moment OnRaise/OnUnhandled
halts the thread because of exc, and cleared the moment that thread resumes.
*/
type ExceptionInfo struct {
	TypeName   string
	Message    string
	BreakMode  exception.BreakMode
	StackTrace string
}

/*
Tracer is the central event sink and control-variable owner.
*/
type Tracer struct {
	rf  facade.RuntimeFacade
	bps *breakpoint.Store
	exc *exception.Policy
	reg *registry.Registry
	log *godaplog.Logger

	mu            sync.Mutex
	cond          *sync.Cond
	threads       map[facade.ThreadHandle]*threadControl
	stopAll       bool // once set, every live thread halts at its next event
	onStop        func(StopEvent)
	onContinue    func(thread facade.ThreadHandle)
	onThreadEvent func(thread facade.ThreadHandle, started bool)

	breakOnStartAllThreads bool
}

/*
New wires a Tracer to its collaborators. onStop is invoked (off the
suspending thread's own goroutine is NOT guaranteed — callers must not
block) every time a thread suspends; onContinue is invoked once a thread has
actually resumed running.
*/
func New(rf facade.RuntimeFacade, bps *breakpoint.Store, exc *exception.Policy, reg *registry.Registry, log *godaplog.Logger) *Tracer {
	t := &Tracer{
		rf:      rf,
		bps:     bps,
		exc:     exc,
		reg:     reg,
		log:     log,
		threads: make(map[facade.ThreadHandle]*threadControl),
	}
	t.cond = sync.NewCond(&t.mu)
	rf.InstallCallbacks(t)
	return t
}

/*
OnStop registers the callback fired with every StopEvent.
*/
func (t *Tracer) OnStop(fn func(StopEvent)) { t.onStop = fn }

/*
OnContinue registers the callback fired once a thread resumes running.
*/
func (t *Tracer) OnContinue(fn func(facade.ThreadHandle)) { t.onContinue = fn }

/*
OnThreadEvent registers the callback fired the first time a traced thread
becomes known to the client (started=true) and once more when that thread
exits (started=false). Untraced (internal/debugger-owned) threads never
fire this.
*/
func (t *Tracer) OnThreadEvent(fn func(thread facade.ThreadHandle, started bool)) {
	t.onThreadEvent = fn
}

/*
BreakOnEntry arms a one-shot halt the next time any thread reports its
first event, the way ecalDebugger.breakOnStart does.
*/
func (t *Tracer) BreakOnEntry(flag bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.breakOnStartAllThreads = flag
}

/*
ctrl returns thread's control block, registering it with the thread
registry the first time it is seen. internal marks the frame thread was
executing at the moment of this event; a thread is registered traced (and
so eligible for a thread{reason:started} event and visible in the threads
request) unless its very first observed frame is internal. Once a traced
thread is observed for the first time it is announced via onThreadEvent.
*/
func (t *Tracer) ctrl(thread facade.ThreadHandle, internal bool) *threadControl {
	tc, ok := t.threads[thread]
	if !ok {
		tc = &threadControl{}
		t.threads[thread] = tc
		t.reg.AddThread(thread, !internal)
	}
	if t.reg.MarkKnown(thread) && t.onThreadEvent != nil {
		cb := t.onThreadEvent
		go cb(thread, true)
	}
	return tc
}

/*
halt suspends the calling goroutine (the one delivering the Facade event)
until woken by Continue, recording the snapshot of the call stack at
suspension time in the frame registry. Caller must hold t.mu.
*/
func (t *Tracer) halt(thread facade.ThreadHandle, tc *threadControl, topFrame facade.FrameHandle, reason StopReason, description, text string) {
	tc.halted = true
	t.stopAll = true

	stack := t.rf.WalkStack(topFrame)
	t.reg.SetStack(thread, stack, func(fh facade.FrameHandle) (string, int, bool) {
		loc := t.rf.Locate(fh)
		return loc.SourcePath, loc.Line, t.rf.IsInternalFrame(fh)
	})
	tc.depth = len(stack)

	if t.onStop != nil {
		go t.onStop(StopEvent{Thread: thread, Reason: reason, Description: description, Text: text, AllThreadsStopped: true})
	}

	for tc.halted {
		t.cond.Wait()
	}

	t.reg.ClearStack(thread)
}

/*
Continue arms thread's step tracker for kind and then resumes every
currently parked thread, not just thread itself: the global stop-all flag
means any other live thread may have been swept in regardless of what
suspended thread, and a continue/next/stepIn/stepOut request must wake all
of them (DAP always reports allThreadsContinued: true for these requests,
and stopped_by is cleared globally) rather than leaving the rest hung
forever on a halted flag nothing ever clears again. Only thread gets the
requested step behavior; every other woken thread resumes plainly. depth
and (source,line) describe the frame thread is stopped in, needed to arm a
step tracker for StepOver/StepOut.
*/
func (t *Tracer) Continue(thread facade.ThreadHandle, kind ContinueKind, src string, line int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tc, ok := t.threads[thread]
	if !ok || !tc.halted {
		return
	}

	switch kind {
	case ContinueStepIn:
		tc.step = stepper.New(stepper.In, tc.depth, src, line)
	case ContinueStepOver:
		tc.step = stepper.New(stepper.Over, tc.depth, src, line)
	case ContinueStepOut:
		tc.step = stepper.New(stepper.Out, tc.depth, src, line)
	case ContinueResume:
		tc.step = nil
	}

	var resumed []facade.ThreadHandle
	for th, other := range t.threads {
		if !other.halted {
			continue
		}
		if th != thread {
			other.step = nil
		}
		other.halted = false
		other.exc = nil
		resumed = append(resumed, th)
	}

	t.stopAll = false
	t.cond.Broadcast()

	if t.onContinue != nil {
		cb := t.onContinue
		for _, th := range resumed {
			th := th
			go cb(th)
		}
	}
}

/*
Pause sets the global stop-all flag — the DAP `pause` request. Every traced
thread, thread included, then halts with reason pause at its next line
event outside an internal frame; thread itself is not otherwise singled out.
*/
func (t *Tracer) Pause(thread facade.ThreadHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopAll = true
}

// --- facade.EventSink ---

func (t *Tracer) OnLine(thread facade.ThreadHandle, frame facade.FrameHandle, loc facade.FrameLocation) {
	t.mu.Lock()
	tc := t.ctrl(thread, t.rf.IsInternalFrame(frame))

	if tc.step != nil && tc.step.OnLine(tc.depth, loc.SourcePath, loc.Line) {
		text := ""
		t.halt(thread, tc, frame, ReasonStep, "", text)
		t.mu.Unlock()
		return
	}

	src := source.New(loc.SourcePath)
	if t.bps.HasAnyAt(src, loc.Line) {
		for _, bp := range t.bps.AtLine(src, loc.Line) {
			lookup := t.scopeLookup(frame)
			stop, err := bp.Evaluate(lookup)
			if err != nil {
				if t.log != nil {
					t.log.Errorf("breakpoint condition error at %s:%d: %v", loc.SourcePath, loc.Line, err)
				}
				continue
			}
			if !stop {
				continue
			}
			if bp.IsLogpoint() {
				msg, err := breakpoint.Render(bp.LogMessage, lookup)
				if err != nil && t.log != nil {
					t.log.Errorf("log message render error at %s:%d: %v", loc.SourcePath, loc.Line, err)
				}
				if t.log != nil {
					t.log.Infof("%s", msg)
				}
				continue
			}
			t.halt(thread, tc, frame, ReasonBreakpoint, "", "")
			t.mu.Unlock()
			return
		}
	}

	if t.breakOnStartAllThreads {
		t.breakOnStartAllThreads = false
		t.halt(thread, tc, frame, ReasonEntry, "", "")
		t.mu.Unlock()
		return
	}

	if t.stopAll && !t.rf.IsInternalFrame(frame) {
		t.halt(thread, tc, frame, ReasonPause, "", "")
		t.mu.Unlock()
		return
	}

	t.mu.Unlock()
}

func (t *Tracer) OnCall(thread facade.ThreadHandle, frame facade.FrameHandle, loc facade.FrameLocation) {
	t.mu.Lock()
	tc := t.ctrl(thread, t.rf.IsInternalFrame(frame))
	tc.depth++

	if tc.step != nil && tc.step.OnCall(tc.depth) {
		t.halt(thread, tc, frame, ReasonStep, "", "")
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
}

func (t *Tracer) OnResume(thread facade.ThreadHandle, frame facade.FrameHandle, loc facade.FrameLocation) {
}

func (t *Tracer) OnReturn(thread facade.ThreadHandle, frame facade.FrameHandle, value facade.Value) {
	t.mu.Lock()
	tc := t.ctrl(thread, t.rf.IsInternalFrame(frame))
	if tc.depth > 0 {
		tc.depth--
	}

	if tc.step != nil && tc.step.OnReturn(tc.depth) {
		t.halt(thread, tc, frame, ReasonStep, "", "")
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
}

func (t *Tracer) OnYield(thread facade.ThreadHandle, frame facade.FrameHandle, value facade.Value) {
}

func (t *Tracer) OnRaise(thread facade.ThreadHandle, frame facade.FrameHandle, exc *facade.ExceptionValue) {
	t.mu.Lock()
	tc := t.ctrl(thread, t.rf.IsInternalFrame(frame))

	if t.exc.ShouldBreak(exc.TypeName, false, true) {
		tc.exc = &ExceptionInfo{
			TypeName:   exc.TypeName,
			Message:    exc.Message,
			BreakMode:  t.exc.ModeFor(exc.TypeName),
			StackTrace: t.formatStackTrace(frame),
		}
		t.halt(thread, tc, frame, ReasonException, exc.TypeName, exc.Message)
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
}

func (t *Tracer) OnReraise(thread facade.ThreadHandle, frame facade.FrameHandle, exc *facade.ExceptionValue) {
	t.OnRaise(thread, frame, exc)
}

func (t *Tracer) OnUnwind(thread facade.ThreadHandle, frame facade.FrameHandle) {
	t.mu.Lock()
	tc := t.ctrl(thread, t.rf.IsInternalFrame(frame))
	if tc.depth > 0 {
		tc.depth--
	}
	t.mu.Unlock()
}

func (t *Tracer) OnUnhandled(thread facade.ThreadHandle, exc *facade.ExceptionValue) {
	t.mu.Lock()

	var topFrame facade.FrameHandle
	if exc != nil {
		topFrame = exc.OriginFrame
	}
	tc := t.ctrl(thread, topFrame != nil && t.rf.IsInternalFrame(topFrame))

	if t.exc.ShouldBreak(exc.TypeName, true, true) {
		tc.exc = &ExceptionInfo{
			TypeName:   exc.TypeName,
			Message:    exc.Message,
			BreakMode:  t.exc.ModeFor(exc.TypeName),
			StackTrace: t.formatStackTrace(topFrame),
		}
		t.halt(thread, tc, topFrame, ReasonException, exc.TypeName, exc.Message)
	}
	t.mu.Unlock()
}

/*
ExceptionInfo returns the exception thread is currently suspended on. ok is
false if thread is unknown or has no exception recorded — the exceptionInfo
request must fail in that case rather than fabricate an answer.
*/
func (t *Tracer) ExceptionInfo(thread facade.ThreadHandle) (ExceptionInfo, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tc, ok := t.threads[thread]
	if !ok || tc.exc == nil {
		return ExceptionInfo{}, false
	}
	return *tc.exc, true
}

func (t *Tracer) formatStackTrace(topFrame facade.FrameHandle) string {
	if topFrame == nil {
		return ""
	}
	var b strings.Builder
	for _, fh := range t.rf.WalkStack(topFrame) {
		loc := t.rf.Locate(fh)
		fmt.Fprintf(&b, "%s:%d\n", loc.SourcePath, loc.Line)
	}
	return b.String()
}

func (t *Tracer) OnThreadExited(thread facade.ThreadHandle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tc, ok := t.threads[thread]
	errorutil.AssertTrue(!ok || !tc.halted, "a thread exited while still suspended on the control variable")

	wasKnown := t.reg.IsKnown(thread)
	delete(t.threads, thread)
	t.reg.RemoveThread(thread)

	if wasKnown && t.onThreadEvent != nil {
		cb := t.onThreadEvent
		go cb(thread, false)
	}
}

func (t *Tracer) scopeLookup(frame facade.FrameHandle) breakpoint.Lookup {
	return func(name string) (string, bool) {
		v, diag := t.rf.Evaluate(frame, name, facade.EvalExpression)
		if diag != nil {
			return "", false
		}
		s, ok := v.(string)
		if !ok {
			return "", false
		}
		return s, true
	}
}
