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
Package registry tracks live threads and their frame stacks for external
(DAP) id translation, per §3/§5.

It generalizes ECAL's per-thread bookkeeping in
interpreter/debug.go — ecalDebugger.callStacks / callStackVsSnapshots /
callStackGlobalVsSnapshots, three parallel maps keyed by thread id — into a
single ThreadState per thread holding a stack of Frame values, plus the
generation tag §5 calls for: frame ids handed out before a resume must
read back as stale (not silently reused) once the thread has moved on,
exactly the failure mode callStacks avoids by always pushing/popping the
live slice rather than caching frame identities across a resume.
*/
package registry

import (
	"sync"

	"github.com/krotik/godap/internal/facade"
	"github.com/krotik/godap/internal/ids"
)

/*
Frame is one entry in a thread's call stack, tagged with the generation the
thread was at when the frame was captured.
*/
type Frame struct {
	Handle     facade.FrameHandle
	SourcePath string
	Line       int
	Generation int
	Internal   bool
}

type threadState struct {
	handle     facade.ThreadHandle
	generation int
	stack      []Frame
	traced     bool // false for debugger/internal-owned threads, hidden from the client
	known      bool // true once a thread{reason:started} event has been sent for this thread
}

/*
Registry owns the live thread set and, for each thread, its current frame
stack and external-id translation tables.
*/
type Registry struct {
	mu        sync.RWMutex
	threadIDs *ids.Map[facade.ThreadHandle]
	frameIDs  *ids.Map[frameKey]
	threads   map[facade.ThreadHandle]*threadState
}

type frameKey struct {
	thread     facade.ThreadHandle
	generation int
	depth      int
}

/*
New creates an empty Registry.
*/
func New() *Registry {
	return &Registry{
		threadIDs: ids.New[facade.ThreadHandle](),
		frameIDs:  ids.New[frameKey](),
		threads:   make(map[facade.ThreadHandle]*threadState),
	}
}

/*
AddThread registers a newly observed thread and returns its external id,
allocating one if this is the first time the thread has been seen. traced
tags the thread at creation time only — a thread later seen executing an
internal frame does not retroactively lose the traced status it started
with.
*/
func (r *Registry) AddThread(handle facade.ThreadHandle, traced bool) int32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.threads[handle]; !ok {
		r.threads[handle] = &threadState{handle: handle, traced: traced}
	}
	return r.threadIDs.Allocate(handle)
}

/*
IsTraced reports whether handle was marked traced when first observed.
Debugger/internal-owned threads are untraced and never surfaced to the
client.
*/
func (r *Registry) IsTraced(handle facade.ThreadHandle) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ts, ok := r.threads[handle]
	return ok && ts.traced
}

/*
MarkKnown marks a traced thread as announced to the client, returning true
the first time this happens for handle. Untraced threads are never
considered known and MarkKnown is always a no-op for them.
*/
func (r *Registry) MarkKnown(handle facade.ThreadHandle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ts, ok := r.threads[handle]
	if !ok || !ts.traced || ts.known {
		return false
	}
	ts.known = true
	return true
}

/*
IsKnown reports whether handle has already been announced to the client.
*/
func (r *Registry) IsKnown(handle facade.ThreadHandle) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ts, ok := r.threads[handle]
	return ok && ts.known
}

/*
TracedThreads returns every currently live thread handle marked traced —
the set the client is allowed to see. Internal/debugger-owned threads are
excluded even though Threads still reports them.
*/
func (r *Registry) TracedThreads() []facade.ThreadHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]facade.ThreadHandle, 0, len(r.threads))
	for h, ts := range r.threads {
		if ts.traced {
			out = append(out, h)
		}
	}
	return out
}

/*
RemoveThread drops a thread that has exited, invalidating every frame id it
ever handed out.
*/
func (r *Registry) RemoveThread(handle facade.ThreadHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ts, ok := r.threads[handle]; ok {
		for depth := range ts.stack {
			r.frameIDs.RemoveInternal(frameKey{thread: handle, generation: ts.generation, depth: depth})
		}
	}
	delete(r.threads, handle)
	r.threadIDs.RemoveInternal(handle)
}

/*
ThreadExternalID looks up the external id for a known thread.
*/
func (r *Registry) ThreadExternalID(handle facade.ThreadHandle) (int32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.threadIDs.ToExternal(handle)
}

/*
ThreadByExternalID resolves an external thread id back to its handle.
*/
func (r *Registry) ThreadByExternalID(id int32) (facade.ThreadHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.threadIDs.ToInternal(id)
}

/*
Threads returns every currently live thread handle.
*/
func (r *Registry) Threads() []facade.ThreadHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]facade.ThreadHandle, 0, len(r.threads))
	for h := range r.threads {
		out = append(out, h)
	}
	return out
}

/*
SetStack replaces the full frame stack captured for thread at the moment it
suspended, innermost frame first, matching the order WalkStack returns. It
bumps the thread's generation, so any frame id previously handed out for
this thread becomes unresolvable — the invalidation §5 requires once a
thread has resumed and stopped again.
*/
func (r *Registry) SetStack(handle facade.ThreadHandle, frames []facade.FrameHandle, locate func(facade.FrameHandle) (path string, line int, internal bool)) []int32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts, ok := r.threads[handle]
	if !ok {
		ts = &threadState{handle: handle}
		r.threads[handle] = ts
	}

	for depth := range ts.stack {
		r.frameIDs.RemoveInternal(frameKey{thread: handle, generation: ts.generation, depth: depth})
	}

	ts.generation++
	ts.stack = make([]Frame, len(frames))

	ids := make([]int32, len(frames))
	for depth, fh := range frames {
		path, line, internal := locate(fh)
		ts.stack[depth] = Frame{Handle: fh, SourcePath: path, Line: line, Generation: ts.generation, Internal: internal}
		ids[depth] = r.frameIDs.Allocate(frameKey{thread: handle, generation: ts.generation, depth: depth})
	}
	return ids
}

/*
ClearStack invalidates every frame id outstanding for thread without
recording a new stack — called on resume, before the thread's next
suspension (if any) calls SetStack again.
*/
func (r *Registry) ClearStack(handle facade.ThreadHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts, ok := r.threads[handle]
	if !ok {
		return
	}
	for depth := range ts.stack {
		r.frameIDs.RemoveInternal(frameKey{thread: handle, generation: ts.generation, depth: depth})
	}
	ts.stack = nil
}

/*
Stack returns the frames last recorded for thread via SetStack, outermost
call last.
*/
func (r *Registry) Stack(handle facade.ThreadHandle) []Frame {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ts, ok := r.threads[handle]
	if !ok {
		return nil
	}
	out := make([]Frame, len(ts.stack))
	copy(out, ts.stack)
	return out
}

/*
FrameExternalID returns the external id currently assigned to the frame at
depth in thread's recorded stack, as handed out by the most recent
SetStack call.
*/
func (r *Registry) FrameExternalID(handle facade.ThreadHandle, depth int) (int32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ts, ok := r.threads[handle]
	if !ok || depth < 0 || depth >= len(ts.stack) {
		return 0, false
	}
	return r.frameIDs.ToExternal(frameKey{thread: handle, generation: ts.generation, depth: depth})
}

/*
FrameByExternalID resolves a client-supplied frame id back to its handle,
reporting ok=false if the id is stale (the thread has resumed since) or
never existed.
*/
func (r *Registry) FrameByExternalID(id int32) (facade.FrameHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.frameIDs.ToInternal(id)
	if !ok {
		return nil, false
	}
	ts, ok := r.threads[key.thread]
	if !ok || key.generation != ts.generation || key.depth >= len(ts.stack) {
		return nil, false
	}
	return ts.stack[key.depth].Handle, true
}
