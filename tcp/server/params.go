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

import "github.com/alecmus/lecnet/netlog"

// OnReceive is invoked inline on the session's read loop for every complete
// frame. Its return value becomes the reply payload; a nil or empty return
// means "no reply" (spec section 4.2 allows skipping the write entirely).
//
// Implementations that need to do heavy work must offload it themselves
// (e.g. to a worker pool) — the session will not read the next frame until
// OnReceive returns.
type OnReceive func(address string, payload []byte) []byte

// Traffic is a cumulative byte counter snapshot.
type Traffic struct {
	In  uint64
	Out uint64
}

// ClientInfo is a registry snapshot row returned by Server.GetClientInfo.
type ClientInfo struct {
	Address    string
	TrafficIn  uint64
	TrafficOut uint64
}

// Params configures a Server. Field names and defaults mirror spec.md's
// server_params table exactly.
type Params struct {
	// IP is the bind address. Default "0.0.0.0".
	IP string
	// Port is the bind port. Default 50001.
	Port int
	// MaxClients is the admission cap enforced by the accept loop. Default 1000.
	MaxClients int

	// UseTLS enables the TLS listener variant.
	UseTLS bool
	// ServerCert is a PEM certificate chain file path (TLS only). Default "server.crt".
	ServerCert string
	// ServerCertKey is a PEM private key file path; empty means "load the key
	// from ServerCert", a single combined PEM file. Default "server.crt".
	ServerCertKey string
	// ServerCertKeyPassword decrypts an encrypted PEM private key, if any.
	ServerCertKeyPassword string

	// MagicNumber is the per-deployment frame tag. Default 0.
	MagicNumber uint32

	// OnReceive dispatches a decoded frame's payload to application logic.
	OnReceive OnReceive
	// Log receives the event taxonomy described in spec.md section 6.
	// A nil Log is replaced with netlog.Discard().
	Log netlog.Func
}

// DefaultParams returns the spec.md section 6 defaults. OnReceive and Log
// are left nil; callers must set OnReceive before Start.
func DefaultParams() Params {
	return Params{
		IP:            "0.0.0.0",
		Port:          50001,
		MaxClients:    1000,
		ServerCert:    "server.crt",
		ServerCertKey: "server.crt",
		MagicNumber:   0,
	}
}

func (p Params) logFunc() netlog.Func {
	if p.Log != nil {
		return p.Log
	}
	return netlog.Discard()
}
