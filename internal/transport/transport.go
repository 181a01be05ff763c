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
Package transport frames DAP messages over a raw byte stream (stdio pipes
or a TCP connection), the same Content-Length-prefixed framing every DAP
adapter speaks. Grounded on ECAL's cli/tool/debug.go debugTelnetServer
— a bufio.Reader-fed read loop handed a connection-scoped output sink — and
on rpc/dapserver/session.go's split between decoding inbound messages and a
single writer goroutine serializing outbound ones, generalized here from
that package's own framing to google/go-dap's ReadProtocolMessage /
WriteProtocolMessage so this module never hand-rolls the Content-Length
header parsing DAP already standardizes.
*/
package transport

import (
	"bufio"
	"io"
	"sync"

	dap "github.com/google/go-dap"
)

/*
Conn is one framed DAP connection: a reader side the Serve loop drains, and
a writer side Send protects with a mutex so concurrent goroutines (the
tracer's onStop/onContinue callbacks alongside the request-handling
goroutine) can never interleave a partial message.
*/
type Conn struct {
	r *bufio.Reader

	wmu sync.Mutex
	w   io.Writer
}

/*
New wraps r/w (the same io.ReadWriteCloser twice for a socket, or
os.Stdin/os.Stdout for stdio) as one framed connection.
*/
func New(r io.Reader, w io.Writer) *Conn {
	return &Conn{r: bufio.NewReader(r), w: w}
}

/*
Send serializes and writes one outbound DAP message, safe for concurrent use.
*/
func (c *Conn) Send(msg dap.Message) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return dap.WriteProtocolMessage(c.w, msg)
}

/*
Serve reads framed DAP messages until the connection closes or a read fails,
calling handle synchronously for each one (matching ECAL's telnet
server, which processes one line of input at a time per connection rather
than fanning requests out across goroutines). It returns nil on a clean EOF.
*/
func (c *Conn) Serve(handle func(dap.Message)) error {
	for {
		msg, err := dap.ReadProtocolMessage(c.r)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		handle(msg)
	}
}
