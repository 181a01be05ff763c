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
Package stepper implements the per-thread step tracker of §4.6: given a
step request (in, over, out) issued from some origin frame depth, decide for
each subsequent call/line/return event whether the step has completed.

Grounded directly on ECAL's interrogationCmd state machine
(interpreter/debug.go): StepIn always arms a Stop on the very next node
visited one level deeper (VisitStepInState turns StepIn into Stop as soon as
a call is entered); StepOver re-arms as StepOut captured at the call depth it
started from (is.stepOutStack = threadCallStack), so it only fires once the
stack has unwound back to that depth; StepOut is that same depth comparison
with no re-arm step. This package generalizes the comparison from "compare
whole call-stack slices" to a plain integer depth counter, which is the same
predicate expressed without retaining ECAL's AST-node call stack.
*/
package stepper

/*
Kind names the requested step operation.
*/
type Kind int

const (
	In Kind = iota
	Over
	Out
)

/*
Step tracks one in-flight step request for a single thread.
*/
type Step struct {
	Kind         Kind
	originDepth  int
	originLine   int
	originSource string
}

/*
New begins tracking a step of kind, starting from the frame depth and
(source, line) the thread was suspended at when the step was requested.
depth counts frames the way the Tracer does: the number of frames on the
thread's stack, so 1 inside the entry frame, one more for each nested call.
Only comparisons between depths matter.
*/
func New(kind Kind, depth int, source string, line int) *Step {
	return &Step{Kind: kind, originDepth: depth, originLine: line, originSource: source}
}

/*
OnCall is called when a new frame is entered while a step is in flight.
A step In completes the moment any call is entered, mirroring how
VisitStepInState turns a StepIn command into Stop as soon as the call node
is visited. Over and Out never complete on a call — entering a frame can
only increase depth, never bring it back to or below the origin.
*/
func (s *Step) OnCall(depth int) (complete bool) {
	return s.Kind == In
}

/*
OnLine is called for every line event in the currently running frame. depth
is the call depth of the frame the line event fired in.

  - In completes on the first line event after the step began, at any
    depth — deeper (a call was stepped into), a sibling line in the same
    frame, or a caller's line.
  - Over completes once depth has returned to, or gone shallower than, the
    origin depth; at the origin depth it additionally requires the
    source:line to have actually changed, so re-entering the same line
    (e.g. a loop back edge) does not falsely end the step.
  - Out completes only once depth is shallower than the origin depth.
*/
func (s *Step) OnLine(depth int, source string, line int) (complete bool) {
	switch s.Kind {
	case In:
		return true
	case Over:
		if depth > s.originDepth {
			return false
		}
		return depth < s.originDepth || source != s.originSource || line != s.originLine
	case Out:
		return depth < s.originDepth
	}
	return false
}

/*
OnReturn is called when the frame the step started in (or a frame it called
into) returns. depth is the call depth after the return has popped the
frame, i.e. the depth of the caller now resuming.
*/
func (s *Step) OnReturn(depth int) (complete bool) {
	switch s.Kind {
	case In:
		return true
	case Over, Out:
		return depth < s.originDepth
	}
	return false
}
