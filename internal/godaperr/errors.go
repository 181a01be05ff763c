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
Package godaperr defines the error kinds used across the debugger core.

The core distinguishes three catchable error kinds (client protocol
violations, expression evaluation failures, and Runtime Facade failures) from
a fourth, uncatchable kind: fatal internal invariant violations, which abort
the process instead of propagating as a value.
*/
package godaperr

import (
	"fmt"

	"github.com/krotik/common/errorutil"
)

/*
ClientError represents a client protocol violation: a malformed request, a
reference to an unknown or stale id, or an operation illegal in the current
state. It is always surfaced as a DAP success:false response.
*/
type ClientError struct {
	Op     string // Request or operation during which the error occurred
	Detail string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Detail)
}

/*
NewClientError creates a new ClientError.
*/
func NewClientError(op, detail string) error {
	return &ClientError{Op: op, Detail: detail}
}

/*
EvalError represents a breakpoint condition, hit-condition, or log-message
expression that failed to compile or raised while evaluating.
*/
type EvalError struct {
	Source string // Source file the expression belongs to
	Line   int
	Detail string
	Cause  error
}

func (e *EvalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("eval error in %s:%d: %s (%v)", e.Source, e.Line, e.Detail, e.Cause)
	}
	return fmt.Sprintf("eval error in %s:%d: %s", e.Source, e.Line, e.Detail)
}

func (e *EvalError) Unwrap() error {
	return e.Cause
}

/*
NewEvalError creates a new EvalError.
*/
func NewEvalError(source string, line int, detail string, cause error) error {
	return &EvalError{Source: source, Line: line, Detail: detail, Cause: cause}
}

/*
FacadeError wraps a diagnostic returned by the Runtime Facade in response to
an evaluate, variables, or setVariable request.
*/
type FacadeError struct {
	Op    string
	Cause error
}

func (e *FacadeError) Error() string {
	return fmt.Sprintf("runtime facade error during %s: %v", e.Op, e.Cause)
}

func (e *FacadeError) Unwrap() error {
	return e.Cause
}

/*
NewFacadeError creates a new FacadeError.
*/
func NewFacadeError(op string, cause error) error {
	return &FacadeError{Op: op, Cause: cause}
}

/*
AssertTrue panics with a fatal invariant violation if the given condition is
false. This is the debugger's "fatal internal invariant violation" error
kind: it aborts the process and must never be caught by the debuggee. Thin
wrapper around errorutil.AssertTrue so call sites read the same way they do
in ECAL's own code.
*/
func AssertTrue(b bool, msg string) {
	errorutil.AssertTrue(b, msg)
}
