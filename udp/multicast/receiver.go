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

package multicast

import (
	"fmt"
	"net"
	"time"

	"github.com/alecmus/lecnet/frame"
	"golang.org/x/net/ipv4"
)

// ReceiverParams configures a Receiver.
type ReceiverParams struct {
	// Group is the multicast group to join, e.g. "239.0.0.1".
	Group string
	Port  int
	Magic uint32
	// Iface optionally pins the group join to one network interface. Nil
	// joins on the interface the system assigns for multicast, which is
	// correct for most single-homed hosts.
	Iface *net.Interface
}

// Received is one decoded datagram, annotated with the sender's address.
type Received struct {
	From    string
	Payload []byte
}

// Receiver listens for datagrams sent to a multicast group.
type Receiver struct {
	params ReceiverParams
	conn   *net.UDPConn
}

// NewReceiver binds params.Port and joins params.Group.
func NewReceiver(params ReceiverParams) (*Receiver, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: params.Port})
	if err != nil {
		return nil, fmt.Errorf("multicast: listen: %w", err)
	}

	group := net.ParseIP(params.Group)
	if group == nil {
		_ = conn.Close()
		return nil, fmt.Errorf("multicast: invalid group address %q", params.Group)
	}

	pc := ipv4.NewPacketConn(conn)
	if err := pc.JoinGroup(params.Iface, &net.UDPAddr{IP: group}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("multicast: join group: %w", err)
	}

	return &Receiver{params: params, conn: conn}, nil
}

// Close releases the underlying socket, unblocking any in-flight Receive.
func (r *Receiver) Close() error { return r.conn.Close() }

// Receive blocks for one datagram matching the configured magic, up to
// timeout. A non-matching datagram is silently dropped and the read
// continues until the deadline.
func (r *Receiver) Receive(timeout time.Duration) (Received, error) {
	deadline := time.Now().Add(timeout)
	scratch := make([]byte, 64*1024)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Received{}, fmt.Errorf("multicast: receive timeout")
		}
		if err := r.conn.SetReadDeadline(deadline); err != nil {
			return Received{}, err
		}

		n, addr, err := r.conn.ReadFromUDP(scratch)
		if err != nil {
			return Received{}, err
		}

		decoded := frame.TryDecode(scratch[:n], r.params.Magic)
		if decoded.Status != frame.Ready {
			continue
		}

		payload := append([]byte(nil), decoded.Payload...)
		return Received{From: addr.String(), Payload: payload}, nil
	}
}
