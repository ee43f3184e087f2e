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

// Package server implements the framed-TCP accept loop (spec.md component
// C3) and per-connection session state machine (C2): a bounded-concurrency
// request/response listener with an admission cap, a client registry, and
// plain or TLS sockets.
//
// A session that receives bad magic or a malformed length prefix logs
// "Invalid data received" and stays open, so a hostile peer can hold an
// admission slot for as long as it keeps its connection up.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"

	lecatomic "github.com/alecmus/lecnet/atomic"
	"github.com/alecmus/lecnet/certgen"
	"github.com/alecmus/lecnet/netlog"
	"github.com/alecmus/lecnet/timeutil"

	"golang.org/x/sync/semaphore"
)

// registryEntry is the registry's ClientEntry (spec.md section 3): per-client
// traffic counters plus enough to force-close the session from Server.Close.
type registryEntry struct {
	conn       net.Conn
	trafficIn  atomic.Uint64
	trafficOut atomic.Uint64
}

// Server is the accept loop and session registry described in spec.md
// sections 4.2-4.3. The zero value is not usable; construct with New.
type Server struct {
	params Params
	log    netlog.Func

	tlsConfig *tls.Config

	listener net.Listener
	sem      *semaphore.Weighted

	registry lecatomic.MapTyped[string, *registryEntry]

	starting atomic.Bool
	running  atomic.Bool

	totalIn  atomic.Uint64
	totalOut atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc

	wg         sync.WaitGroup
	sessionsWG sync.WaitGroup

	acceptDone chan struct{}
}

// New constructs a Server. params.OnReceive must be set before Start.
func New(params Params) *Server {
	if params.MaxClients <= 0 {
		params.MaxClients = 1000
	}

	return &Server{
		params: params,
		log:    params.logFunc(),
		sem:    semaphore.NewWeighted(int64(params.MaxClients)),
	}
}

// Starting reports whether the listener is in the process of binding.
func (s *Server) Starting() bool { return s.starting.Load() }

// Running reports whether the accept loop is active.
func (s *Server) Running() bool { return s.running.Load() }

// Start binds the listener and spawns the accept loop. It is idempotent:
// calling Start while already running logs "Server already running" and
// returns true without rebinding.
func (s *Server) Start() bool {
	if s.running.Load() {
		s.log(timeutil.Stamp(), "Server already running")
		return true
	}

	s.starting.Store(true)
	defer s.starting.Store(false)

	if s.params.OnReceive == nil {
		s.log(timeutil.Stamp(), "Configuration error: OnReceive is required")
		return false
	}

	addr := fmt.Sprintf("%s:%d", s.params.IP, s.params.Port)

	var (
		ln  net.Listener
		err error
	)

	variant := "Async"
	if s.params.UseTLS {
		variant = "Async SSL"
		s.tlsConfig, err = s.loadTLSConfig()
		if err != nil {
			s.log(timeutil.Stamp(), fmt.Sprintf("Configuration error: %v", err))
			return false
		}
		ln, err = tls.Listen("tcp", addr, s.tlsConfig)
	} else {
		ln, err = net.Listen("tcp", addr)
	}

	if err != nil {
		s.log(timeutil.Stamp(), fmt.Sprintf("Fatal listener error: %v", err))
		return false
	}

	s.listener = ln
	s.registry = lecatomic.NewMapTyped[string, *registryEntry]()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.acceptDone = make(chan struct{})
	s.running.Store(true)

	s.log(timeutil.Stamp(), fmt.Sprintf("Server listening: %s (%s)", addr, variant))
	s.log(timeutil.Stamp(), fmt.Sprintf("Clients: Max %d", s.params.MaxClients))

	go s.acceptLoop()

	return true
}

func (s *Server) loadTLSConfig() (*tls.Config, error) {
	certPath := s.params.ServerCert
	keyPath := s.params.ServerCertKey
	if keyPath == "" {
		keyPath = certPath
	}

	if s.params.ServerCertKeyPassword == "" {
		cert, err := tls.LoadX509KeyPair(certPath, keyPath)
		if err != nil {
			return nil, err
		}
		return &tls.Config{Certificates: []tls.Certificate{cert}}, nil
	}

	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, err
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}

	rsaKey, err := certgen.DecodeKeyPEM(keyPEM, s.params.ServerCertKeyPassword)
	if err != nil {
		return nil, err
	}
	keyPlainPEM, err := certgen.EncodeKeyPEM(rsaKey, "")
	if err != nil {
		return nil, err
	}

	cert, err := tls.X509KeyPair(certPEM, keyPlainPEM)
	if err != nil {
		return nil, err
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}}, nil
}

func (s *Server) acceptLoop() {
	defer close(s.acceptDone)

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			s.log(timeutil.Stamp(), fmt.Sprintf("Transient accept error: %v", err))
			continue
		}

		denied := !s.sem.TryAcquire(1)

		sess := &session{
			server: s,
			conn:   conn,
			magic:  s.params.MagicNumber,
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			sess.run(denied)
		}()
	}
}

// Close shuts down a single session's socket, given its registry address.
// The session observes the close, de-registers itself, and returns.
func (s *Server) Close(address string) {
	if entry, ok := s.registry.Load(address); ok {
		_ = entry.conn.Close()
	}
}

// CloseAll shuts down every active session and blocks until the registry is
// empty. The listener stays open so clients may reconnect.
func (s *Server) CloseAll() {
	s.log(timeutil.Stamp(), "Closing all connections ...")

	s.registry.Range(func(_ string, entry *registryEntry) bool {
		_ = entry.conn.Close()
		return true
	})

	s.sessionsWG.Wait()

	s.log(timeutil.Stamp(), "All connections closed")
}

// Stop closes all sessions, stops the accept task, and waits until Running
// is false. Idempotent: calling it twice both times returns true.
func (s *Server) Stop() bool {
	if !s.running.Load() {
		return true
	}

	s.CloseAll()

	s.cancel()
	_ = s.listener.Close()

	<-s.acceptDone
	s.wg.Wait()

	s.running.Store(false)
	s.log(timeutil.Stamp(), "Server stopped")
	return true
}

// GetClientInfo returns a snapshot of the registry.
func (s *Server) GetClientInfo() []ClientInfo {
	var out []ClientInfo
	s.registry.Range(func(addr string, entry *registryEntry) bool {
		out = append(out, ClientInfo{
			Address:    addr,
			TrafficIn:  entry.trafficIn.Load(),
			TrafficOut: entry.trafficOut.Load(),
		})
		return true
	})
	return out
}

// Traffic returns cumulative totals since Start.
func (s *Server) Traffic() Traffic {
	return Traffic{In: s.totalIn.Load(), Out: s.totalOut.Load()}
}

func (s *Server) release() { s.sem.Release(1) }
