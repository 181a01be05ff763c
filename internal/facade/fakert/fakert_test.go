package fakert

import (
	"testing"

	"github.com/krotik/godap/internal/facade"
)

type recordingSink struct {
	lines   []int
	calls   []int
	returns []facade.Value
	raised  []*facade.ExceptionValue
}

func (s *recordingSink) OnLine(thread facade.ThreadHandle, frame facade.FrameHandle, loc facade.FrameLocation) {
	s.lines = append(s.lines, loc.Line)
}
func (s *recordingSink) OnCall(thread facade.ThreadHandle, frame facade.FrameHandle, loc facade.FrameLocation) {
	s.calls = append(s.calls, loc.Line)
}
func (s *recordingSink) OnResume(thread facade.ThreadHandle, frame facade.FrameHandle, loc facade.FrameLocation) {
}
func (s *recordingSink) OnReturn(thread facade.ThreadHandle, frame facade.FrameHandle, value facade.Value) {
	s.returns = append(s.returns, value)
}
func (s *recordingSink) OnYield(thread facade.ThreadHandle, frame facade.FrameHandle, value facade.Value) {
}
func (s *recordingSink) OnRaise(thread facade.ThreadHandle, frame facade.FrameHandle, exc *facade.ExceptionValue) {
	s.raised = append(s.raised, exc)
}
func (s *recordingSink) OnReraise(thread facade.ThreadHandle, frame facade.FrameHandle, exc *facade.ExceptionValue) {
}
func (s *recordingSink) OnUnwind(thread facade.ThreadHandle, frame facade.FrameHandle) {}
func (s *recordingSink) OnUnhandled(thread facade.ThreadHandle, exc *facade.ExceptionValue) {
	s.raised = append(s.raised, exc)
}
func (s *recordingSink) OnThreadExited(thread facade.ThreadHandle) {}

func TestDrivePlaysBackCallLineReturn(t *testing.T) {
	f := New()
	sink := &recordingSink{}
	f.InstallCallbacks(sink)

	thread := "t1"
	f.Drive(thread, []Step{
		{Kind: facade.EventCall, Source: "a.py", Line: 1, Locals: map[string]string{"x": "1"}},
		{Kind: facade.EventLine, Source: "a.py", Line: 2, Locals: map[string]string{"x": "2"}},
		{Kind: facade.EventReturn, Return: facade.Value("done")},
	})

	if len(sink.calls) != 1 || sink.calls[0] != 1 {
		t.Fatalf("expected one call at line 1, got %v", sink.calls)
	}
	if len(sink.lines) != 1 || sink.lines[0] != 2 {
		t.Fatalf("expected one line event at line 2, got %v", sink.lines)
	}
	if len(sink.returns) != 1 || sink.returns[0] != facade.Value("done") {
		t.Fatalf("expected return value %q, got %v", "done", sink.returns)
	}
}

func TestWalkStackInnermostFirst(t *testing.T) {
	f := New()
	f.InstallCallbacks(&recordingSink{})

	thread := "t1"
	f.Drive(thread, []Step{
		{Kind: facade.EventCall, Source: "a.py", Line: 1},
		{Kind: facade.EventCall, Source: "a.py", Line: 5},
	})

	cur, ok := f.CurrentThread()
	if !ok || cur != thread {
		t.Fatalf("CurrentThread() = (%v, %v), want (%v, true)", cur, ok, thread)
	}

	top := f.stacks[thread][len(f.stacks[thread])-1]
	walked := f.WalkStack(top)
	if len(walked) != 2 {
		t.Fatalf("expected 2 frames on stack, got %d", len(walked))
	}
	if walked[0] != top {
		t.Fatalf("expected innermost frame first")
	}
}

func TestDisableEventsForIsRecorded(t *testing.T) {
	f := New()
	code := facade.CodeHandle("a.py")

	if f.EventsDisabledFor(code, facade.EventLine) {
		t.Fatalf("should start enabled")
	}
	f.DisableEventsFor(code, []facade.EventKind{facade.EventLine})
	if !f.EventsDisabledFor(code, facade.EventLine) {
		t.Fatalf("expected line events disabled for %v", code)
	}
}

func TestEvaluateReadsLocals(t *testing.T) {
	f := New()
	f.InstallCallbacks(&recordingSink{})

	thread := "t1"
	f.Drive(thread, []Step{
		{Kind: facade.EventCall, Source: "a.py", Line: 1, Locals: map[string]string{"x": "42"}},
	})

	top := f.stacks[thread][0]
	v, diag := f.Evaluate(top, "x", facade.EvalExpression)
	if diag != nil {
		t.Fatalf("unexpected diagnostic: %v", diag)
	}
	if v != facade.Value("42") {
		t.Fatalf("Evaluate(x) = %v, want 42", v)
	}

	if _, diag := f.Evaluate(top, "missing", facade.EvalExpression); diag == nil {
		t.Fatalf("expected diagnostic for unknown name")
	}
}

func TestRaiseAndUnhandled(t *testing.T) {
	f := New()
	sink := &recordingSink{}
	f.InstallCallbacks(sink)

	exc := &facade.ExceptionValue{TypeName: "ValueError", Message: "boom"}
	f.Drive("t1", []Step{
		{Kind: facade.EventCall, Source: "a.py", Line: 1},
		{Kind: facade.EventRaise, Exception: exc},
		{Kind: facade.EventUnhandled, Exception: exc},
	})

	if len(sink.raised) != 2 {
		t.Fatalf("expected raise and unhandled recorded, got %d", len(sink.raised))
	}
}
