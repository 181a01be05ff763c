package exception

import "testing"

func TestDefaultModeNeverBreaks(t *testing.T) {
	p := New(nil)
	if p.ShouldBreak("ValueError", true, true) {
		t.Fatalf("default policy should never break")
	}
}

func TestAlwaysBreaksOnHandledToo(t *testing.T) {
	p := New(nil)
	p.SetMode(Always, nil)
	if !p.ShouldBreak("ValueError", false, true) {
		t.Fatalf("always mode should break on a handled raise too")
	}
}

func TestUnhandledOnlyBreaksWhenUnhandled(t *testing.T) {
	p := New(nil)
	p.SetMode(Unhandled, nil)
	if p.ShouldBreak("ValueError", false, true) {
		t.Fatalf("unhandled mode should not break on a handled raise")
	}
	if !p.ShouldBreak("ValueError", true, true) {
		t.Fatalf("unhandled mode should break once the exception goes unhandled")
	}
}

func TestUserUnhandledRequiresUserCode(t *testing.T) {
	p := New(nil)
	p.SetMode(UserUnhandled, nil)
	if p.ShouldBreak("ValueError", true, false) {
		t.Fatalf("userUnhandled mode should not break for library code")
	}
	if !p.ShouldBreak("ValueError", true, true) {
		t.Fatalf("userUnhandled mode should break for user code gone unhandled")
	}
}

func TestPerTypeOverride(t *testing.T) {
	p := New(nil)
	p.SetMode(Never, map[string]BreakMode{"KeyError": Always})
	if p.ShouldBreak("ValueError", false, true) {
		t.Fatalf("global mode Never should still apply to types without an override")
	}
	if !p.ShouldBreak("KeyError", false, true) {
		t.Fatalf("per-type override Always should apply to KeyError")
	}
}

func TestControlFlowExceptionsIgnoredUnlessUnhandled(t *testing.T) {
	p := New(map[string]bool{"StopIteration": true})
	p.SetMode(Always, nil)

	if p.ShouldBreak("StopIteration", false, true) {
		t.Fatalf("control-flow exception should be ignored while handled, even in always mode")
	}
	if !p.ShouldBreak("StopIteration", true, true) {
		t.Fatalf("control-flow exception escaping unhandled should still break")
	}
	if !p.IsControlFlow("StopIteration") {
		t.Fatalf("IsControlFlow should report StopIteration as control flow")
	}
}

func TestSetModeClearsPreviousOverrides(t *testing.T) {
	p := New(nil)
	p.SetMode(Never, map[string]BreakMode{"KeyError": Always})
	p.SetMode(Never, nil)

	if p.ShouldBreak("KeyError", false, true) {
		t.Fatalf("SetMode should replace the whole filter set, clearing stale overrides")
	}
}

func TestModeForReportsGlobalModeByDefault(t *testing.T) {
	p := New(nil)
	p.SetMode(Unhandled, nil)
	if m := p.ModeFor("ValueError"); m != Unhandled {
		t.Fatalf("ModeFor = %v, want %v", m, Unhandled)
	}
}

func TestModeForReportsPerTypeOverride(t *testing.T) {
	p := New(nil)
	p.SetMode(Never, map[string]BreakMode{"KeyError": Always})
	if m := p.ModeFor("KeyError"); m != Always {
		t.Fatalf("ModeFor(KeyError) = %v, want %v", m, Always)
	}
	if m := p.ModeFor("ValueError"); m != Never {
		t.Fatalf("ModeFor(ValueError) = %v, want %v", m, Never)
	}
}
