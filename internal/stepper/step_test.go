package stepper

import "testing"

func TestStepInCompletesOnNextLineOrCall(t *testing.T) {
	s := New(In, 0, "a.py", 5)
	if s.OnCall(1) != true {
		t.Fatalf("step in should complete on entering a call")
	}

	s2 := New(In, 0, "a.py", 5)
	if !s2.OnLine(0, "a.py", 6) {
		t.Fatalf("step in should complete on the next line in the same frame")
	}
}

func TestStepOverDoesNotStopInsideCalledFunction(t *testing.T) {
	s := New(Over, 0, "a.py", 5)

	if s.OnCall(1) {
		t.Fatalf("step over should not complete when entering a deeper call")
	}
	if s.OnLine(1, "b.py", 1) {
		t.Fatalf("step over should not complete for lines inside the called function")
	}
	if s.OnReturn(0) {
		t.Fatalf("step over should not complete on the callee's return event itself")
	}
	if !s.OnLine(0, "a.py", 6) {
		t.Fatalf("step over should complete at the next line once the call has returned to the origin depth")
	}
}

func TestStepOverCompletesOnSiblingLineWithoutACall(t *testing.T) {
	s := New(Over, 0, "a.py", 5)
	if !s.OnLine(0, "a.py", 6) {
		t.Fatalf("step over should complete on the next line when no call happened")
	}
}

func TestStepOverIgnoresLoopBackEdgeToSameLine(t *testing.T) {
	s := New(Over, 0, "a.py", 5)
	if s.OnLine(0, "a.py", 5) {
		t.Fatalf("re-reaching the exact same origin line should not complete the step")
	}
}

func TestStepOutCompletesOnlyAfterReturnAboveOrigin(t *testing.T) {
	s := New(Out, 1, "a.py", 5)

	if s.OnLine(1, "a.py", 6) {
		t.Fatalf("step out should not complete while still in the origin frame")
	}
	if s.OnLine(2, "b.py", 1) {
		t.Fatalf("step out should not complete for a nested call's lines")
	}
	if !s.OnReturn(0) {
		t.Fatalf("step out should complete once depth drops below the origin")
	}
}
