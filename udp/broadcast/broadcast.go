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

// Package broadcast implements the UDP broadcast sender/receiver pair named
// in spec.md section 1 item 2: bounded retransmission on send, deadline-
// bounded receive. It is an independent collaborator, not used by the TCP
// core (spec.md section 1's explicit out-of-scope list), and shares the same
// wire frame (the frame package) purely for payload self-description.
package broadcast

import (
	"fmt"
	"net"
	"sync/atomic"
	"time"

	lecatomic "github.com/alecmus/lecnet/atomic"
	"github.com/alecmus/lecnet/frame"
)

// SenderParams configures a Sender.
type SenderParams struct {
	// BroadcastAddr is the destination, e.g. "255.255.255.255" or a subnet's
	// directed broadcast address. Default "255.255.255.255".
	BroadcastAddr string
	// Port is the destination UDP port.
	Port int
	// Magic tags outgoing datagrams the way the TCP frame tags its messages.
	Magic uint32
	// Retries is how many times a Send repeats the datagram, since UDP
	// broadcast delivery is not guaranteed. Default 3.
	Retries int
	// RetryInterval is the delay between repeats. Default 20ms.
	RetryInterval time.Duration
}

func (p SenderParams) withDefaults() SenderParams {
	if p.BroadcastAddr == "" {
		p.BroadcastAddr = "255.255.255.255"
	}
	if p.Retries <= 0 {
		p.Retries = 3
	}
	if p.RetryInterval <= 0 {
		p.RetryInterval = 20 * time.Millisecond
	}
	return p
}

// Sender sends framed datagrams to a broadcast address, repeating each send
// to improve the odds of delivery over an inherently unreliable transport.
type Sender struct {
	params SenderParams
	conn   *net.UDPConn

	nextDataID atomic.Uint32
	async      lecatomic.MapTyped[uint32, *asyncSend]
}

type asyncSend struct {
	sending atomic.Bool
	err     lecatomic.Value[string]
}

// NewSender opens a UDP socket with broadcast permission enabled.
func NewSender(params SenderParams) (*Sender, error) {
	params = params.withDefaults()

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("broadcast: open send socket: %w", err)
	}

	if err := enableBroadcast(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("broadcast: enable SO_BROADCAST: %w", err)
	}

	return &Sender{
		params: params,
		conn:   conn,
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

	dst := &net.UDPAddr{IP: net.ParseIP(s.params.BroadcastAddr), Port: s.params.Port}

	for i := 0; i < s.params.Retries; i++ {
		if _, err := s.conn.WriteToUDP(out, dst); err != nil {
			return fmt.Errorf("broadcast: send attempt %d: %w", i+1, err)
		}
		if i < s.params.Retries-1 {
			time.Sleep(s.params.RetryInterval)
		}
	}

	return nil
}

// SendAsync starts a background Send and returns a data id for polling via
// Sending/Result, mirroring the TCP client's asynchronous send pattern.
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
