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
Package exception implements the exception break policy described in
§4.3: a global break mode (never/always/unhandled/userUnhandled), a
per-exception-type override table, and a control-flow-exception ignore set
supplied by the Runtime Facade.

This generalizes ECAL's single ecalDebugger.breakOnError bool
(interpreter/debug.go) into the four-mode policy the DAP
setExceptionBreakpoints request needs, the way util.ECALDebugger's
BreakOnError toggle is the one-bit special case of this richer table.
*/
package exception

import "sync"

/*
BreakMode names when an exception of a given type should suspend the
thread that raised it.
*/
type BreakMode string

const (
	Never         BreakMode = "never"
	Always        BreakMode = "always"
	Unhandled     BreakMode = "unhandled"
	UserUnhandled BreakMode = "userUnhandled"
)

/*
Policy holds the global mode, per-type overrides, and the runtime's
control-flow exception types.
*/
type Policy struct {
	mu          sync.RWMutex
	mode        BreakMode
	overrides   map[string]BreakMode
	controlFlow map[string]bool
}

/*
New creates a Policy defaulting to Never, the DAP default before any
setExceptionBreakpoints request arrives. controlFlow names exception types
the Runtime Facade uses for normal control flow (e.g. iterator
exhaustion) — these are ignored unless they escape unhandled.
*/
func New(controlFlow map[string]bool) *Policy {
	cf := make(map[string]bool, len(controlFlow))
	for k, v := range controlFlow {
		cf[k] = v
	}
	return &Policy{
		mode:        Never,
		overrides:   make(map[string]BreakMode),
		controlFlow: cf,
	}
}

/*
SetMode replaces the global break mode, clearing all per-type overrides —
this mirrors how setExceptionBreakpoints always sends the client's complete
current filter set, never a delta.
*/
func (p *Policy) SetMode(mode BreakMode, overrides map[string]BreakMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = mode
	p.overrides = make(map[string]BreakMode, len(overrides))
	for t, m := range overrides {
		p.overrides[t] = m
	}
}

/*
ShouldBreak decides whether an exception of typeName, just raised
(unhandled=false) or about to propagate unhandled (unhandled=true), should
stop the thread; userCode gates the userUnhandled mode. Whether typeName is
a control-flow exception is looked up in the policy's own set:
control-flow exceptions only ever stop the thread when they go fully
unhandled, regardless of mode.
*/
func (p *Policy) ShouldBreak(typeName string, unhandled bool, userCode bool) bool {
	p.mu.RLock()
	mode := p.mode
	if m, ok := p.overrides[typeName]; ok {
		mode = m
	}
	isControlFlow := p.controlFlow[typeName]
	p.mu.RUnlock()

	if isControlFlow && !unhandled {
		return false
	}

	switch mode {
	case Never:
		return false
	case Always:
		return true
	case Unhandled:
		return unhandled
	case UserUnhandled:
		return unhandled && userCode
	default:
		return false
	}
}

/*
ModeFor returns the break mode that actually applies to typeName: its
per-type override if one was set by the last setExceptionBreakpoints
request, otherwise the global mode.
*/
func (p *Policy) ModeFor(typeName string) BreakMode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if m, ok := p.overrides[typeName]; ok {
		return m
	}
	return p.mode
}

/*
IsControlFlow reports whether typeName is one of the runtime's own
control-flow exception types.
*/
func (p *Policy) IsControlFlow(typeName string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.controlFlow[typeName]
}
