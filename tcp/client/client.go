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

// Package client implements the framed-TCP connecting client (spec.md
// component C4): connect with timeout, optional TLS, a read loop that
// routes replies by message id into a correlation map, and synchronous
// (SendData) plus asynchronous (SendDataAsync/Sending/GetResponse) sends.
package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	lecatomic "github.com/alecmus/lecnet/atomic"
	"github.com/alecmus/lecnet/frame"
	"github.com/alecmus/lecnet/netlog"
	"github.com/alecmus/lecnet/timeutil"

	"golang.org/x/sync/semaphore"
)

const readChunk = 64 * 1024

// maxConcurrentAsyncSends bounds the short-lived goroutines SendDataAsync
// spawns, grounded on the teacher's semaphore/sem admission pattern.
const maxConcurrentAsyncSends = 256

// pendingReply is the pending map's value (spec.md section 3): a correlation
// slot for one in-flight request, closed by the read loop or a timeout.
type pendingReply struct {
	done    chan struct{}
	closeMu sync.Mutex
	closed  bool
	payload []byte
	err     string
}

func (p *pendingReply) resolve(payload []byte, err string) {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.payload = payload
	p.err = err
	close(p.done)
}

// AsyncResult is what GetResponse returns for a completed async send.
type AsyncResult struct {
	OK      bool
	Payload []byte
	Err     string
}

type asyncEntry struct {
	sending atomic.Bool
	result  lecatomic.Value[AsyncResult]
}

func newAsyncEntry() *asyncEntry {
	return &asyncEntry{result: lecatomic.NewValue[AsyncResult]()}
}

// Client is the connecting side of the framed TCP transport. The zero value
// is not usable; construct with New.
type Client struct {
	params Params
	log    netlog.Func

	conn   lecatomic.Value[net.Conn]
	connMu sync.Mutex // serializes writes across SendData callers

	connecting atomic.Bool
	connected  atomic.Bool
	running    atomic.Bool

	lastError lecatomic.Value[string]

	nextMsgID  atomic.Uint32
	nextDataID atomic.Uint32

	pending lecatomic.MapTyped[uint32, *pendingReply]
	async   lecatomic.MapTyped[uint32, *asyncEntry]

	totalIn  atomic.Uint64
	totalOut atomic.Uint64

	sem *semaphore.Weighted

	ioDone chan struct{}
}

// New constructs an idle Client. Call Connect to start the I/O task.
func New(params Params) *Client {
	return &Client{
		params:    params,
		log:       params.logFunc(),
		conn:      lecatomic.NewValue[net.Conn](),
		lastError: lecatomic.NewValue[string](),
		pending:   lecatomic.NewMapTyped[uint32, *pendingReply](),
		async:     lecatomic.NewMapTyped[uint32, *asyncEntry](),
		sem:       semaphore.NewWeighted(maxConcurrentAsyncSends),
	}
}

// Connecting reports whether the I/O task is still establishing the socket.
func (c *Client) Connecting() bool { return c.connecting.Load() }

// Connected reports the connection state; when false, it also returns the
// last recorded error description.
func (c *Client) Connected() (bool, string) {
	if c.connected.Load() {
		return true, ""
	}
	return false, c.lastError.Load()
}

// Running reports whether the background I/O task is still alive.
func (c *Client) Running() bool { return c.running.Load() }

// Traffic returns cumulative byte counters since Connect.
func (c *Client) Traffic() Traffic {
	return Traffic{In: c.totalIn.Load(), Out: c.totalOut.Load()}
}

// Connect spawns the background I/O task: resolve, dial, optional TLS
// handshake, then the read loop. It returns quickly; failures surface later
// through Connected/last_error, matching spec.md section 4.4.
func (c *Client) Connect() bool {
	if c.running.Load() || c.connecting.Load() {
		return true
	}

	c.connecting.Store(true)
	c.ioDone = make(chan struct{})

	go c.ioTask()

	return true
}

func (c *Client) ioTask() {
	defer close(c.ioDone)

	addr := fmt.Sprintf("%s:%d", c.params.Address, c.params.Port)

	var dialer net.Dialer
	if c.params.TimeoutSeconds > 0 {
		dialer.Timeout = time.Duration(c.params.TimeoutSeconds) * time.Second
	}

	rawConn, err := dialer.Dial("tcp", addr)
	if err != nil {
		c.failConnect(fmt.Sprintf("Connect failed: %v", err))
		return
	}

	var conn net.Conn = rawConn

	if c.params.UseSSL {
		tlsConn, err := c.handshake(rawConn)
		if err != nil {
			_ = rawConn.Close()
			c.failConnect(fmt.Sprintf("Handshake failed: %v", err))
			return
		}
		conn = tlsConn
	}

	c.conn.Store(conn)
	c.connecting.Store(false)
	c.connected.Store(true)
	c.running.Store(true)

	reason := c.readLoop(conn)

	c.connected.Store(false)
	c.running.Store(false)
	_ = conn.Close()

	if reason != "" {
		c.lastError.Store(fmt.Sprintf("Client disconnected from server: %s", reason))
		c.log(timeutil.Stamp(), fmt.Sprintf("Client disconnected from server: %s", reason))
	}

	c.failAllPending(c.lastError.Load())
}

func (c *Client) handshake(raw net.Conn) (*tls.Conn, error) {
	pool := x509.NewCertPool()
	caPEM, err := os.ReadFile(c.params.CACertPath)
	if err != nil {
		return nil, err
	}
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, errors.New("no certificates found in ca cert path")
	}

	cfg := &tls.Config{RootCAs: pool, ServerName: c.params.Address}

	if c.params.TimeoutSeconds > 0 {
		_ = raw.SetDeadline(time.Now().Add(time.Duration(c.params.TimeoutSeconds) * time.Second))
	}

	tlsConn := tls.Client(raw, cfg)
	if err := tlsConn.Handshake(); err != nil {
		return nil, err
	}

	_ = raw.SetDeadline(time.Time{})
	return tlsConn, nil
}

func (c *Client) failConnect(msg string) {
	c.connecting.Store(false)
	c.connected.Store(false)
	c.lastError.Store(msg)
	c.log(timeutil.Stamp(), msg)
}

func (c *Client) readLoop(conn net.Conn) string {
	scratch := make([]byte, readChunk)
	var accumulator []byte

	for {
		n, err := conn.Read(scratch)
		if n > 0 {
			accumulator = append(accumulator, scratch[:n]...)
			c.totalIn.Add(uint64(n))
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return ""
			}
			return err.Error()
		}

		for {
			decoded := frame.TryDecode(accumulator, c.params.MagicNumber)

			switch decoded.Status {
			case frame.Ready:
				payload := append([]byte(nil), decoded.Payload...)
				accumulator = accumulator[decoded.Consumed:]

				if entry, ok := c.pending.Load(decoded.MsgID); ok {
					entry.resolve(payload, "")
				}
				continue

			case frame.BadMagic:
				c.log(timeutil.Stamp(), "Invalid data received")
				c.lastError.Store("Invalid data received")
				accumulator = nil

			case frame.Incomplete:
			}

			break
		}
	}
}

func (c *Client) failAllPending(reason string) {
	c.pending.Range(func(_ uint32, entry *pendingReply) bool {
		entry.resolve(nil, reason)
		return true
	})
}

func nextWrappingID(counter *atomic.Uint32) uint32 {
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

// SendData writes payload as a new frame and blocks for a reply (or a
// timeout/disconnect), per spec.md section 4.4. busyFn, if non-nil, is
// invoked repeatedly while waiting; its return value is ignored by
// contract — it exists purely so a caller can pump its own event loop.
func (c *Client) SendData(payload []byte, timeoutSec int, busyFn func()) (bool, []byte, string) {
	if !c.running.Load() {
		return false, nil, "Not connected to server"
	}

	msgID := nextWrappingID(&c.nextMsgID)
	entry := &pendingReply{done: make(chan struct{})}
	c.pending.Store(msgID, entry)

	out, err := frame.Encode(c.params.MagicNumber, msgID, payload)
	if err != nil {
		c.pending.Delete(msgID)
		return false, nil, err.Error()
	}

	conn := c.conn.Load()
	if conn == nil {
		c.pending.Delete(msgID)
		return false, nil, "Not connected to server"
	}

	c.connMu.Lock()
	_, werr := conn.Write(out)
	c.connMu.Unlock()
	if werr != nil {
		c.pending.Delete(msgID)
		return false, nil, werr.Error()
	}
	c.totalOut.Add(uint64(len(out)))

	var deadline <-chan time.Time
	if timeoutSec > 0 {
		timer := time.NewTimer(time.Duration(timeoutSec) * time.Second)
		defer timer.Stop()
		deadline = timer.C
	}

	poll := time.NewTicker(10 * time.Millisecond)
	defer poll.Stop()

waitLoop:
	for {
		select {
		case <-entry.done:
			break waitLoop
		case <-deadline:
			entry.resolve(nil, "Send/Receive timeout")
			break waitLoop
		case <-poll.C:
			if !c.running.Load() {
				entry.resolve(nil, "Not connected to server")
				break waitLoop
			}
			if busyFn != nil {
				busyFn()
			}
		}
	}

	c.pending.Delete(msgID)

	if len(entry.payload) > 0 {
		return true, entry.payload, ""
	}

	reason := entry.err
	if reason == "" {
		reason = c.lastError.Load()
	}
	if reason == "" {
		reason = "Not connected to server"
	}
	return false, nil, reason
}

// SendDataAsync enqueues payload for sending on a short-lived background
// task and returns immediately with a data id used to poll Sending/GetResponse.
func (c *Client) SendDataAsync(payload []byte, timeoutSec int) (bool, uint32) {
	dataID := nextWrappingID(&c.nextDataID)

	entry := newAsyncEntry()
	entry.sending.Store(true)
	c.async.Store(dataID, entry)

	go func() {
		_ = c.sem.Acquire(context.Background(), 1)
		defer c.sem.Release(1)
		defer entry.sending.Store(false)

		ok, reply, errStr := c.SendData(payload, timeoutSec, nil)
		entry.result.Store(AsyncResult{OK: ok, Payload: reply, Err: errStr})
	}()

	return true, dataID
}

// Sending reports whether the background task for dataID is still running.
func (c *Client) Sending(dataID uint32) bool {
	entry, ok := c.async.Load(dataID)
	if !ok {
		return false
	}
	return entry.sending.Load()
}

// GetResponse atomically retrieves and removes the result for dataID.
// Calling it before Sending returns false is, per spec.md section 4.4,
// explicitly not a contract.
func (c *Client) GetResponse(dataID uint32) (bool, []byte, string) {
	entry, ok := c.async.Load(dataID)
	if !ok {
		return false, nil, ""
	}
	res := entry.result.Load()
	c.async.Delete(dataID)
	return res.OK, res.Payload, res.Err
}

// Disconnect shuts down the socket and waits until Connected returns false.
// Safe to call on a never-connected client.
func (c *Client) Disconnect() {
	conn := c.conn.Load()
	if conn == nil {
		return
	}
	_ = conn.Close()
	if c.ioDone != nil {
		<-c.ioDone
	}
}
