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
Command godap-repl is a minimal line-oriented developer client for a running
godap server: it connects over TCP, translates short typed commands into DAP
requests, and prints the responses and events it receives.

Grounded on goja-debug's DebugConsole (examples/debugger/goja-debug/main.go)
for its command-dispatch-by-name shape and colored status lines — not its
full-screen box-drawing layout, which has no DAP analog here.
*/
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	dap "github.com/google/go-dap"
	"github.com/peterh/liner"

	"github.com/krotik/godap/internal/transport"
)

var (
	cyan   = color.New(color.FgCyan)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
)

type repl struct {
	conn    *transport.Conn
	seq     int
	threads map[int]string
}

func (r *repl) nextSeq() int {
	r.seq++
	return r.seq
}

func (r *repl) send(command string, arguments interface{}) {
	req := &dap.Request{
		ProtocolMessage: dap.ProtocolMessage{Seq: r.nextSeq(), Type: "request"},
		Command:         command,
	}
	msg := wrapRequest(req, arguments)
	if err := r.conn.Send(msg); err != nil {
		red.Fprintf(os.Stderr, "send failed: %v\n", err)
	}
}

/*
wrapRequest builds the concrete *dap.XRequest type for the handful of
commands this REPL issues. Unknown commands are rejected before reaching
here (see dispatchLine).
*/
func wrapRequest(base *dap.Request, arguments interface{}) dap.Message {
	switch base.Command {
	case "initialize":
		return &dap.InitializeRequest{Request: *base, Arguments: dap.InitializeRequestArguments{AdapterID: "godap-repl"}}
	case "configurationDone":
		return &dap.ConfigurationDoneRequest{Request: *base}
	case "threads":
		return &dap.ThreadsRequest{Request: *base}
	case "continue":
		return &dap.ContinueRequest{Request: *base, Arguments: dap.ContinueArguments{ThreadId: arguments.(int)}}
	case "next":
		return &dap.NextRequest{Request: *base, Arguments: dap.NextArguments{ThreadId: arguments.(int)}}
	case "stepIn":
		return &dap.StepInRequest{Request: *base, Arguments: dap.StepInArguments{ThreadId: arguments.(int)}}
	case "stepOut":
		return &dap.StepOutRequest{Request: *base, Arguments: dap.StepOutArguments{ThreadId: arguments.(int)}}
	case "pause":
		return &dap.PauseRequest{Request: *base, Arguments: dap.PauseArguments{ThreadId: arguments.(int)}}
	case "stackTrace":
		return &dap.StackTraceRequest{Request: *base, Arguments: dap.StackTraceArguments{ThreadId: arguments.(int)}}
	case "setBreakpoints":
		args := arguments.(dap.SetBreakpointsArguments)
		return &dap.SetBreakpointsRequest{Request: *base, Arguments: args}
	default:
		return &dap.Request{ProtocolMessage: base.ProtocolMessage, Command: base.Command}
	}
}

func (r *repl) onMessage(m dap.Message) {
	switch v := m.(type) {
	case *dap.ThreadsResponse:
		for _, th := range v.Body.Threads {
			fmt.Printf("  thread %d: %s\n", th.Id, th.Name)
		}
	case *dap.StackTraceResponse:
		for _, f := range v.Body.StackFrames {
			fmt.Printf("  #%d %s at %s:%d\n", f.Id, f.Name, f.Source.Path, f.Line)
		}
	case *dap.SetBreakpointsResponse:
		for _, bp := range v.Body.Breakpoints {
			status := green.Sprintf("verified")
			if !bp.Verified {
				status = red.Sprintf("rejected")
			}
			fmt.Printf("  breakpoint %d: %s (%s)\n", bp.Id, status, bp.Message)
		}
	case *dap.StoppedEvent:
		yellow.Printf("stopped: thread %d, reason %s\n", v.Body.ThreadId, v.Body.Reason)
	case *dap.ContinuedEvent:
		cyan.Printf("continued: thread %d\n", v.Body.ThreadId)
	case *dap.OutputEvent:
		fmt.Print(v.Body.Output)
	case *dap.ErrorResponse:
		red.Printf("error: %s\n", v.Message)
	case *dap.InitializedEvent:
		green.Println("initialized")
	}
}

func (r *repl) dispatchLine(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, rest := fields[0], fields[1:]

	switch cmd {
	case "init":
		r.send("initialize", nil)
		r.send("configurationDone", nil)
	case "threads":
		r.send("threads", nil)
	case "stack":
		tid, err := threadArg(rest)
		if err != nil {
			return err
		}
		r.send("stackTrace", tid)
	case "continue", "c":
		tid, err := threadArg(rest)
		if err != nil {
			return err
		}
		r.send("continue", tid)
	case "next", "n":
		tid, err := threadArg(rest)
		if err != nil {
			return err
		}
		r.send("next", tid)
	case "stepin", "si":
		tid, err := threadArg(rest)
		if err != nil {
			return err
		}
		r.send("stepIn", tid)
	case "stepout", "so":
		tid, err := threadArg(rest)
		if err != nil {
			return err
		}
		r.send("stepOut", tid)
	case "pause":
		tid, err := threadArg(rest)
		if err != nil {
			return err
		}
		r.send("pause", tid)
	case "break", "b":
		if len(rest) < 2 {
			return fmt.Errorf("usage: break <path> <line>[,<line>...]")
		}
		path := rest[0]
		var bps []dap.SourceBreakpoint
		for _, l := range strings.Split(rest[1], ",") {
			line, err := strconv.Atoi(l)
			if err != nil {
				return fmt.Errorf("bad line %q: %w", l, err)
			}
			bps = append(bps, dap.SourceBreakpoint{Line: line})
		}
		r.send("setBreakpoints", dap.SetBreakpointsArguments{Source: dap.Source{Path: path}, Breakpoints: bps})
	case "help":
		printHelp()
	default:
		return fmt.Errorf("unknown command %q; type help", cmd)
	}
	return nil
}

func threadArg(rest []string) (int, error) {
	if len(rest) == 0 {
		return 0, fmt.Errorf("usage: <command> <threadId>")
	}
	return strconv.Atoi(rest[0])
}

func printHelp() {
	fmt.Println(`commands:
  init                   send initialize + configurationDone
  break <path> <lines>   set breakpoints, e.g. break a.py 3,7
  threads                list threads
  stack <tid>            print a thread's call stack
  continue|c <tid>       resume a stopped thread
  next|n <tid>           step over
  stepin|si <tid>        step into
  stepout|so <tid>       step out
  pause <tid>            request a pause
  help                   this message`)
}

func main() {
	addr := flag.String("addr", "localhost:4711", "address of a running godap server")
	flag.Parse()

	nc, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer nc.Close()

	r := &repl{conn: transport.New(nc, nc), threads: map[int]string{}}
	go func() {
		if err := r.conn.Serve(r.onMessage); err != nil {
			red.Fprintf(os.Stderr, "connection closed: %v\n", err)
		}
	}()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	printHelp()
	for {
		input, err := line.Prompt("godap> ")
		if err != nil {
			break
		}
		line.AppendHistory(input)
		if input == "quit" || input == "exit" {
			break
		}
		if err := r.dispatchLine(input); err != nil {
			red.Printf("%v\n", err)
		}
	}
}
