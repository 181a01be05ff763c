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
Command godap runs a Debug Adapter Protocol server: -addr serves one
Session per accepted TCP connection, the way ECAL's debugTelnetServer
accepts one connection per client; omitting -addr serves a single Session
over stdio, the framing a DAP client spawning this binary as a subprocess
expects.

This binary carries no concrete language-runtime binding — that is out of
scope for this module — so it wires internal/facade/fakert.Facade, a
scripted stand-in, as a reference Runtime Facade. A real embedder replaces
newFacade with one backed by an actual runtime.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"

	dap "github.com/google/go-dap"

	"github.com/krotik/godap/internal/facade"
	"github.com/krotik/godap/internal/facade/fakert"
	"github.com/krotik/godap/internal/godaplog"
	"github.com/krotik/godap/internal/session"
	"github.com/krotik/godap/internal/transport"
)

func main() {
	addr := flag.String("addr", "", "TCP address to serve on (e.g. localhost:4711); empty means serve over stdio")
	logLevel := flag.String("loglevel", "info", "log level: debug, info, or error")
	flag.Parse()

	log := godaplog.New(os.Stderr, "godap", *logLevel)

	var err error
	if *addr == "" {
		err = serveOne(os.Stdin, os.Stdout, log)
	} else {
		err = serveTCP(*addr, log)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newFacade() facade.RuntimeFacade {
	return fakert.New()
}

func serveOne(r *os.File, w *os.File, log *godaplog.Logger) error {
	conn := transport.New(r, w)
	sess := session.New(newFacade(), log, func(m dap.Message) { conn.Send(m) })
	return sess.Serve(context.Background(), conn)
}

func serveTCP(addr string, log *godaplog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()
	log.Infof("listening on %v", addr)

	for {
		nc, err := ln.Accept()
		if err != nil {
			return err
		}
		go func() {
			defer nc.Close()
			conn := transport.New(nc, nc)
			sess := session.New(newFacade(), log, func(m dap.Message) { conn.Send(m) })
			if err := sess.Serve(context.Background(), conn); err != nil {
				log.Errorf("session on %v ended: %v", nc.RemoteAddr(), err)
			}
		}()
	}
}
