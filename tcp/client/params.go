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

package client

import "github.com/alecmus/lecnet/netlog"

// Traffic is a cumulative byte counter snapshot.
type Traffic struct {
	In  uint64
	Out uint64
}

// Params configures a Client. Field names and defaults mirror spec.md's
// client_params table exactly.
type Params struct {
	// Address is the server host. Default "127.0.0.1".
	Address string
	// Port is the server port. Default 50001.
	Port int
	// TimeoutSeconds is the connect timeout; non-positive means no timeout.
	// Default 10. Governs connect only — the per-send timeout is a separate
	// parameter to SendData (spec.md section 9 open question, preserved).
	TimeoutSeconds int

	// UseSSL enables the TLS handshake after connect.
	UseSSL bool
	// CACertPath is the CA certificate verifying the server's chain, used
	// when UseSSL is set. Default "ca.crt".
	CACertPath string

	// MagicNumber is the per-deployment frame tag. Default 0.
	MagicNumber uint32

	// Log receives the event taxonomy described in spec.md section 6.
	Log netlog.Func
}

// DefaultParams returns the spec.md section 6 defaults.
func DefaultParams() Params {
	return Params{
		Address:        "127.0.0.1",
		Port:           50001,
		TimeoutSeconds: 10,
		UseSSL:         true,
		CACertPath:     "ca.crt",
	}
}

func (p Params) logFunc() netlog.Func {
	if p.Log != nil {
		return p.Log
	}
	return netlog.Discard()
}
