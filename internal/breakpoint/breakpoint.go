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
Package breakpoint implements the per-source breakpoint store described in
§4.2: setBreakpoints replaces the whole set for one source atomically,
each line carries an optional condition, hit condition, and log message, and
hits are counted per breakpoint for as long as that breakpoint exists (a
later setBreakpoints for the same source starts every count again at zero).

The triggering rule (hit count advanced and the hit condition satisfied,
then the condition true, then either log-and-continue or stop) is grounded on the breakpoint map in ECAL's
interpreter/debug.go (ecalDebugger.breakPoints / VisitState's break check),
generalized from a plain boolean per line to the richer per-line rule this
spec needs. Condition expressions and log-message "{expr}" fragments are
compiled and evaluated with ECAL's own expression engine, github.com/krotik/ecal/parser + interpreter + scope,
exactly the way interpreter/debug_cmd.go's commands parse small argument
expressions through the same engine. Hit conditions are not ECAL
expressions: ParseHitCondition reads them as an operator and an integer.
*/
package breakpoint

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/krotik/ecal/interpreter"
	"github.com/krotik/ecal/parser"
	"github.com/krotik/ecal/scope"

	"github.com/krotik/godap/internal/godaperr"
	dapsource "github.com/krotik/godap/internal/source"
)

/*
HitOperator is the comparison a hit condition applies to the running hit
count: "==", ">", ">=", "<", "<=", or "%" (every Nth hit).
*/
type HitOperator string

const (
	HitEQ  HitOperator = "=="
	HitGT  HitOperator = ">"
	HitGE  HitOperator = ">="
	HitLT  HitOperator = "<"
	HitLE  HitOperator = "<="
	HitMod HitOperator = "%"
)

/*
HitCondition is a compiled "hitCondition" string, e.g. ">= 3" or "%5".
*/
type HitCondition struct {
	Op    HitOperator
	Value int
}

/*
Satisfied reports whether count (the 1-based hit number, counted AFTER this
hit) satisfies h.
*/
func (h HitCondition) Satisfied(count int) bool {
	switch h.Op {
	case HitEQ:
		return count == h.Value
	case HitGT:
		return count > h.Value
	case HitGE:
		return count >= h.Value
	case HitLT:
		return count < h.Value
	case HitLE:
		return count <= h.Value
	case HitMod:
		return h.Value > 0 && count%h.Value == 0
	}
	return false
}

/*
ParseHitCondition parses the raw DAP hitCondition string.
*/
func ParseHitCondition(raw string) (HitCondition, error) {
	raw = strings.TrimSpace(raw)
	for _, op := range []HitOperator{HitGE, HitLE, HitEQ, HitGT, HitLT, HitMod} {
		if strings.HasPrefix(raw, string(op)) {
			n, err := strconv.Atoi(strings.TrimSpace(raw[len(op):]))
			if err != nil {
				return HitCondition{}, godaperr.NewClientError("setBreakpoints", fmt.Sprintf("invalid hitCondition %q: %v", raw, err))
			}
			return HitCondition{Op: op, Value: n}, nil
		}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return HitCondition{}, godaperr.NewClientError("setBreakpoints", fmt.Sprintf("invalid hitCondition %q", raw))
	}
	return HitCondition{Op: HitEQ, Value: n}, nil
}

/*
Lookup resolves a variable name to its display value in the current frame.
The breakpoint engine never evaluates expressions itself; it asks the Runtime
Facade for values (via Lookup) while the ECAL parser/interpreter do the
actual condition and template evaluation, matching ECAL's own split
between "parse the rule" (parser) and "run it against live state"
(interpreter).
*/
type Lookup func(name string) (string, bool)

/*
compiled is a parsed ECAL expression ready to re-evaluate against any frame.
*/
type compiled struct {
	source string
	ast    *parser.ASTNode
}

func compileExpr(exprSource string) (*compiled, error) {
	ast, err := parser.ParseWithRuntime("breakpoint", exprSource, ecalProvider)
	if err != nil {
		return nil, godaperr.NewEvalError("<breakpoint>", 0, exprSource, err)
	}
	if err := ast.Runtime.Validate(); err != nil {
		return nil, godaperr.NewEvalError("<breakpoint>", 0, exprSource, err)
	}
	return &compiled{source: exprSource, ast: ast}, nil
}

/*
eval runs c against lookup, exposing every name lookup resolves as a
top-level ECAL variable.
*/
func (c *compiled) eval(lookup Lookup) (interface{}, error) {
	vs := scope.NewScope("breakpoint")
	for _, name := range identifiersIn(c.ast) {
		if val, ok := lookup(name); ok {
			_ = vs.SetValue(name, val)
		}
	}
	return c.ast.Runtime.Eval(vs, make(map[string]interface{}), 0)
}

func identifiersIn(n *parser.ASTNode) []string {
	var names []string
	var walk func(*parser.ASTNode)
	walk = func(n *parser.ASTNode) {
		if n == nil {
			return
		}
		if n.Name == parser.NodeIDENTIFIER && n.Token != nil {
			names = append(names, n.Token.Val)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(n)
	return names
}

/*
ecalProvider adapts the interpreter package's runtime factory so
standalone expressions (outside of any ECAL sink/program) can be parsed and
evaluated, matching how interpreter/debug_cmd.go evaluates small argument
expressions.
*/
var ecalProvider = interpreter.NewECALRuntimeProvider("breakpoint", nil, nil)

/*
LogFragment is one piece of a compiled log message: either literal text, or
a "{expr}" expression to evaluate and stringify.
*/
type LogFragment struct {
	Literal string
	Expr    *compiled
}

func compileLogMessage(msg string) ([]LogFragment, error) {
	var frags []LogFragment
	rest := msg
	for {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			frags = append(frags, LogFragment{Literal: rest})
			break
		}
		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			frags = append(frags, LogFragment{Literal: rest})
			break
		}
		end += start
		if start > 0 {
			frags = append(frags, LogFragment{Literal: rest[:start]})
		}
		exprSource := rest[start+1 : end]
		c, err := compileExpr(exprSource)
		if err != nil {
			return nil, err
		}
		frags = append(frags, LogFragment{Expr: c})
		rest = rest[end+1:]
	}
	return frags, nil
}

/*
Render evaluates every expression fragment against lookup and concatenates
the result, per §4.2's log-message breakpoints.
*/
func Render(frags []LogFragment, lookup Lookup) (string, error) {
	var b strings.Builder
	for _, f := range frags {
		if f.Expr == nil {
			b.WriteString(f.Literal)
			continue
		}
		v, err := f.Expr.eval(lookup)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%v", v)
	}
	return b.String(), nil
}

/*
Breakpoint is one compiled line breakpoint.
*/
type Breakpoint struct {
	ID           int32
	Source       dapsource.Source
	Line         int
	Condition    *compiled
	HitCondition *HitCondition
	LogMessage   []LogFragment
	hits         int
}

/*
IsLogpoint reports whether hitting bp should log and continue rather than
suspend the thread.
*/
func (bp *Breakpoint) IsLogpoint() bool {
	return bp.LogMessage != nil
}

/*
Evaluate decides whether this hit should stop the thread. The hit counter
advances unconditionally on every call — every enabled line-match counts,
even one a condition later rejects — then the hit condition (if any) is
checked against the new count, then the condition (if any) is checked.
*/
func (bp *Breakpoint) Evaluate(lookup Lookup) (stop bool, err error) {
	bp.hits++

	if bp.HitCondition != nil && !bp.HitCondition.Satisfied(bp.hits) {
		return false, nil
	}

	if bp.Condition != nil {
		v, err := bp.Condition.eval(lookup)
		if err != nil {
			return false, err
		}
		if !truthy(v) {
			return false, nil
		}
	}

	return true, nil
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case nil:
		return false
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return true
	}
}

/*
Spec is the client-supplied definition of one breakpoint, before compilation.
*/
type Spec struct {
	Line         int
	Condition    string
	HitCondition string
	LogMessage   string
}

/*
Store holds every breakpoint, keyed by source, and assigns each a stable
external id via the caller-supplied allocator.
*/
type Store struct {
	mu    sync.RWMutex
	byID  map[int32]*Breakpoint
	idGen func() int32
}

/*
NewStore creates an empty Store. allocateID must return a fresh, never
reused external id on every call (internal/ids.Map.Allocate is the intended
caller).
*/
func NewStore(allocateID func() int32) *Store {
	return &Store{
		byID:  make(map[int32]*Breakpoint),
		idGen: allocateID,
	}
}

/*
SetBreakpoints atomically replaces the full set of breakpoints for src with
specs, compiling every condition/hitCondition/logMessage up front so a bad
expression is reported to the client immediately rather than at hit time —
matching §4.2's requirement that setBreakpoints either fully succeeds or
reports per-breakpoint verification failures. Breakpoints previously set for
src and not present in specs are discarded; breakpoints for every other
source are untouched.
*/
func (s *Store) SetBreakpoints(src dapsource.Source, specs []Spec) ([]*Breakpoint, []error) {
	compiledBps := make([]*Breakpoint, len(specs))
	errs := make([]error, len(specs))

	for i, spec := range specs {
		bp := &Breakpoint{Source: src, Line: spec.Line}

		if spec.Condition != "" {
			c, err := compileExpr(spec.Condition)
			if err != nil {
				errs[i] = err
				continue
			}
			bp.Condition = c
		}

		if spec.HitCondition != "" {
			hc, err := ParseHitCondition(spec.HitCondition)
			if err != nil {
				errs[i] = err
				continue
			}
			bp.HitCondition = &hc
		}

		if spec.LogMessage != "" {
			frags, err := compileLogMessage(spec.LogMessage)
			if err != nil {
				errs[i] = err
				continue
			}
			bp.LogMessage = frags
		}

		compiledBps[i] = bp
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, bp := range s.byID {
		if bp.Source == src {
			delete(s.byID, id)
		}
	}
	for i, bp := range compiledBps {
		if bp == nil {
			continue
		}
		bp.ID = s.idGen()
		s.byID[bp.ID] = bp
		compiledBps[i] = bp
	}

	return compiledBps, errs
}

/*
AtLine returns every breakpoint currently set at (src, line), in no
particular order.
*/
func (s *Store) AtLine(src dapsource.Source, line int) []*Breakpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Breakpoint
	for _, bp := range s.byID {
		if bp.Source == src && bp.Line == line {
			out = append(out, bp)
		}
	}
	return out
}

/*
HasAnyAt reports whether src has at least one breakpoint at line, without
allocating — used by the tracer to decide whether a line event needs the
full lookup/eval machinery at all.
*/
func (s *Store) HasAnyAt(src dapsource.Source, line int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, bp := range s.byID {
		if bp.Source == src && bp.Line == line {
			return true
		}
	}
	return false
}

/*
Clear removes every breakpoint from the store.
*/
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[int32]*Breakpoint)
}
