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

// Package multicast implements the UDP multicast sender/receiver pair named
// in spec.md section 1 item 2, with the same bounded-retransmission send and
// deadline-bounded receive contract as udp/broadcast, scoped to a multicast
// group instead of the broadcast address.
package multicast

import (
	"fmt"
	"net"
	"sync/atomic"
	"time"

	lecatomic "github.com/alecmus/lecnet/atomic"
	"github.com/alecmus/lecnet/frame"
	"golang.org/x/net/ipv4"
)

// SenderParams configures a Sender.
type SenderParams struct {
	// Group is the multicast group address, e.g. "239.0.0.1".
	Group string
	Port  int
	Magic uint32
	// Retries is how many times a Send repeats the datagram. Default 3.
	Retries int
	// RetryInterval is the delay between repeats. Default 20ms.
	RetryInterval time.Duration
	// TTL bounds how many router hops the datagram may cross. Default 1
	// (link-local), matching a conservative LAN-scoped default.
	TTL int
}

func (p SenderParams) withDefaults() SenderParams {
	if p.Retries <= 0 {
		p.Retries = 3
	}
	if p.RetryInterval <= 0 {
		p.RetryInterval = 20 * time.Millisecond
	}
	if p.TTL <= 0 {
		p.TTL = 1
	}
	return p
}

// Sender sends framed datagrams to a multicast group.
type Sender struct {
	params SenderParams
	conn   *net.UDPConn
	dst    *net.UDPAddr

	nextDataID atomic.Uint32
	async      lecatomic.MapTyped[uint32, *asyncSend]
}

type asyncSend struct {
	sending atomic.Bool
	err     lecatomic.Value[string]
}

// NewSender opens a UDP socket for sending to params.Group:params.Port.
func NewSender(params SenderParams) (*Sender, error) {
	params = params.withDefaults()

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("multicast: open send socket: %w", err)
	}

	if err := ipv4.NewPacketConn(conn).SetMulticastTTL(params.TTL); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("multicast: set ttl: %w", err)
	}

	return &Sender{
		params: params,
		conn:   conn,
		dst:    &net.UDPAddr{IP: net.ParseIP(params.Group), Port: params.Port},
		async:  lecatomic.NewMapTyped[uint32, *asyncSend](),
	}, nil
}

// Close releases the underlying socket.
func (s *Sender) Close() error { return s.conn.Close() }

// Send blocks until the datagram has been written Retries times.
func (s *Sender) Send(payload []byte) error {
	out, err := frame.Encode(s.params.Magic, 0, payload)
	if err != nil {
		return err
	}

	for i := 0; i < s.params.Retries; i++ {
		if _, err := s.conn.WriteToUDP(out, s.dst); err != nil {
			return fmt.Errorf("multicast: send attempt %d: %w", i+1, err)
		}
		if i < s.params.Retries-1 {
			time.Sleep(s.params.RetryInterval)
		}
	}

	return nil
}

// SendAsync starts a background Send and returns a data id for polling via
// Sending/Result.
func (s *Sender) SendAsync(payload []byte) uint32 {
	dataID := nextID(&s.nextDataID)

	entry := &asyncSend{err: lecatomic.NewValue[string]()}
	entry.sending.Store(true)
	s.async.Store(dataID, entry)

	go func() {
		defer entry.sending.Store(false)
		if err := s.Send(payload); err != nil {
			entry.err.Store(err.Error())
		}
	}()

	return dataID
}

// Sending reports whether the background send for dataID is still running.
func (s *Sender) Sending(dataID uint32) bool {
	entry, ok := s.async.Load(dataID)
	return ok && entry.sending.Load()
}

// Result retrieves and removes the outcome of a completed async send; an
// empty string means success.
func (s *Sender) Result(dataID uint32) string {
	entry, ok := s.async.Load(dataID)
	if !ok {
		return ""
	}
	s.async.Delete(dataID)
	return entry.err.Load()
}

func nextID(counter *atomic.Uint32) uint32 {
	for {
		v := counter.Load()
		next := v + 1
		if next == 0 || next == ^uint32(0) {
			next = 1
		}
		if counter.CompareAndSwap(v, next) {
			return next
		}
	}
}
