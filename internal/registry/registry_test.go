package registry

import (
	"testing"

	"github.com/krotik/godap/internal/facade"
)

func locate(fh facade.FrameHandle) (string, int, bool) {
	f := fh.(string)
	return f, 1, false
}

func TestAddThreadAllocatesStableID(t *testing.T) {
	r := New()
	id1 := r.AddThread("t1", true)
	id2 := r.AddThread("t1", true)
	if id1 != id2 {
		t.Fatalf("AddThread should be idempotent for the same handle")
	}
}

func TestRemoveThreadInvalidatesFrames(t *testing.T) {
	r := New()
	r.AddThread("t1", true)
	frameIDs := r.SetStack("t1", []facade.FrameHandle{"f0", "f1"}, locate)

	r.RemoveThread("t1")

	if _, ok := r.ThreadByExternalID(func() int32 { id, _ := r.ThreadExternalID("t1"); return id }()); ok {
		t.Fatalf("removed thread should not resolve by external id")
	}
	if _, ok := r.FrameByExternalID(frameIDs[0]); ok {
		t.Fatalf("removing a thread should invalidate its frame ids")
	}
}

func TestSetStackInvalidatesPriorGeneration(t *testing.T) {
	r := New()
	r.AddThread("t1", true)

	firstIDs := r.SetStack("t1", []facade.FrameHandle{"f0"}, locate)
	secondIDs := r.SetStack("t1", []facade.FrameHandle{"f0", "f1"}, locate)

	if _, ok := r.FrameByExternalID(firstIDs[0]); ok {
		t.Fatalf("a stale generation's frame id should no longer resolve")
	}
	if _, ok := r.FrameByExternalID(secondIDs[0]); !ok {
		t.Fatalf("current generation's frame id should resolve")
	}
}

func TestClearStackInvalidatesWithoutRecordingNew(t *testing.T) {
	r := New()
	r.AddThread("t1", true)
	frameIDs := r.SetStack("t1", []facade.FrameHandle{"f0"}, locate)

	r.ClearStack("t1")

	if _, ok := r.FrameByExternalID(frameIDs[0]); ok {
		t.Fatalf("ClearStack should invalidate outstanding frame ids")
	}
	if stack := r.Stack("t1"); len(stack) != 0 {
		t.Fatalf("ClearStack should leave an empty stack, got %d frames", len(stack))
	}
}

func TestStackOrderInnermostFirst(t *testing.T) {
	r := New()
	r.AddThread("t1", true)
	r.SetStack("t1", []facade.FrameHandle{"f0", "f1", "f2"}, locate)

	stack := r.Stack("t1")
	if len(stack) != 3 || stack[0].Handle != facade.FrameHandle("f0") {
		t.Fatalf("expected stack to preserve order, got %+v", stack)
	}
}

func TestThreadsListsAllLive(t *testing.T) {
	r := New()
	r.AddThread("t1", true)
	r.AddThread("t2", true)

	threads := r.Threads()
	if len(threads) != 2 {
		t.Fatalf("expected 2 live threads, got %d", len(threads))
	}
}

func TestUntracedThreadHiddenFromTracedThreads(t *testing.T) {
	r := New()
	r.AddThread("debugger-internal", false)
	r.AddThread("user", true)

	threads := r.Threads()
	if len(threads) != 2 {
		t.Fatalf("Threads should still list every live thread, got %d", len(threads))
	}

	traced := r.TracedThreads()
	if len(traced) != 1 || traced[0] != facade.ThreadHandle("user") {
		t.Fatalf("TracedThreads should list only the traced thread, got %+v", traced)
	}
}

func TestMarkKnownFiresOnlyOnceForTracedThreads(t *testing.T) {
	r := New()
	r.AddThread("t1", true)

	if !r.MarkKnown("t1") {
		t.Fatalf("expected the first MarkKnown to report a transition")
	}
	if r.MarkKnown("t1") {
		t.Fatalf("a thread already known should not transition again")
	}
	if !r.IsKnown("t1") {
		t.Fatalf("expected t1 to be known after MarkKnown")
	}
}

func TestMarkKnownNeverFiresForUntracedThreads(t *testing.T) {
	r := New()
	r.AddThread("internal", false)

	if r.MarkKnown("internal") {
		t.Fatalf("an untraced thread should never become known")
	}
	if r.IsKnown("internal") {
		t.Fatalf("an untraced thread should never report known")
	}
}
