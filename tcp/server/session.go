/*
 * MIT License
 *
 * Copyright (c) 2024 lecnet contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package server

import (
	"errors"
	"fmt"
	"io"
	"net"

	lecatomic "github.com/alecmus/lecnet/atomic"
	"github.com/alecmus/lecnet/frame"
	"github.com/alecmus/lecnet/timeutil"
)

// readChunk is the scratch buffer size for a single socket read, matching
// spec.md section 4.2's 64 KiB figure.
const readChunk = 64 * 1024

// session is one accepted connection's state machine (spec.md component
// C2): Accepted -> [Denied -> Closed] or Accepted -> Registered ->
// Reading <-> Writing -> Closed.
type session struct {
	server  *Server
	conn    net.Conn
	magic   uint32
	address string

	// lastError holds the most recent protocol-level error this session
	// observed (spec.md section 3's per-session last-error slot). Not yet
	// surfaced through GetClientInfo; kept here for parity with the client.
	lastError lecatomic.Value[string]
}

func (s *session) run(denied bool) {
	s.address = s.conn.RemoteAddr().String()

	if denied {
		_ = s.conn.Close()
		return
	}

	entry := &registryEntry{conn: s.conn}
	s.server.registry.Store(s.address, entry)
	s.server.sessionsWG.Add(1)

	s.server.log(timeutil.Stamp(), fmt.Sprintf("%s - connected", s.address))

	reason := s.readLoop(entry)

	s.server.registry.Delete(s.address)
	s.server.release()
	s.server.sessionsWG.Done()

	if reason == "" {
		s.server.log(timeutil.Stamp(), fmt.Sprintf("%s - disconnected", s.address))
	} else {
		s.server.log(timeutil.Stamp(), fmt.Sprintf("%s - disconnected [%s]", s.address, reason))
	}
}

// readLoop drives the Reading <-> Writing cycle until the socket errors or
// is closed by Server.Close/CloseAll. It returns a short reason string for
// the disconnect log line, or "" for a clean close.
func (s *session) readLoop(entry *registryEntry) string {
	scratch := make([]byte, readChunk)
	var accumulator []byte

	for {
		n, err := s.conn.Read(scratch)
		if n > 0 {
			accumulator = append(accumulator, scratch[:n]...)
			entry.trafficIn.Add(uint64(n))
			s.server.totalIn.Add(uint64(n))
		}

		if err != nil {
			return readErrReason(err)
		}

		for {
			decoded := frame.TryDecode(accumulator, s.magic)

			switch decoded.Status {
			case frame.Ready:
				payload := append([]byte(nil), decoded.Payload...)
				accumulator = accumulator[decoded.Consumed:]

				reply := s.server.params.OnReceive(s.address, payload)
				if len(reply) > 0 {
					out, encErr := frame.Encode(s.magic, decoded.MsgID, reply)
					if encErr != nil {
						return encErr.Error()
					}
					if _, werr := s.conn.Write(out); werr != nil {
						return werr.Error()
					}
					entry.trafficOut.Add(uint64(len(out)))
					s.server.totalOut.Add(uint64(len(out)))
				}
				continue

			case frame.BadMagic:
				// spec.md section 4.2: the session stays open on bad magic or a
				// malformed length prefix, recording the event rather than closing.
				// The accumulator is discarded here so a hostile/confused peer
				// cannot wedge the loop replaying the same unparsable prefix.
				s.server.log(timeutil.Stamp(), fmt.Sprintf("%s - Invalid data received", s.address))
				s.lastError.Store("Invalid data received")
				accumulator = nil

			case frame.Incomplete:
			}

			break
		}
	}
}

func readErrReason(err error) string {
	if errors.Is(err, io.EOF) {
		return ""
	}
	return err.Error()
}
