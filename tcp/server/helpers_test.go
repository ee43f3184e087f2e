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

package server_test

import (
	"fmt"
	"net"
	"time"

	"github.com/alecmus/lecnet/frame"
)

func getFreePort() int {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic(err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func echoHandler(_ string, payload []byte) []byte {
	out := make([]byte, len(payload))
	copy(out, payload)
	return out
}

func dial(port int) (net.Conn, error) {
	return net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 2*time.Second)
}

func sendFrame(conn net.Conn, magic, msgID uint32, payload []byte) error {
	out, err := frame.Encode(magic, msgID, payload)
	if err != nil {
		return err
	}
	_, err = conn.Write(out)
	return err
}

// recvFrame reads from conn until a complete frame decodes, or the deadline
// passes. It mirrors the client read loop's accumulator discipline without
// pulling in the client package.
func recvFrame(conn net.Conn, magic uint32, deadline time.Duration) (frame.Decoded, error) {
	_ = conn.SetReadDeadline(time.Now().Add(deadline))

	var accumulator []byte
	scratch := make([]byte, 64*1024)

	for {
		decoded := frame.TryDecode(accumulator, magic)
		if decoded.Status == frame.Ready {
			return decoded, nil
		}

		n, err := conn.Read(scratch)
		if n > 0 {
			accumulator = append(accumulator, scratch[:n]...)
		}
		if err != nil {
			return frame.Decoded{}, err
		}
	}
}
