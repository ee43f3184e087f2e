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

package certgen

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// ServerBundle is a signed server certificate together with its private key,
// ready to satisfy the tcp server's server_cert/server_cert_key_password
// configuration (a single combined PEM file when KeyPEM is appended to
// CertPEM, as the lecnet usage example in cert.h recommends).
type ServerBundle struct {
	CertPEM []byte
	KeyPEM  []byte
}

// Combined returns CertPEM followed by KeyPEM, the single-file layout the
// tcp server's TLS loader accepts when server_cert_key is left empty.
func (b ServerBundle) Combined() []byte {
	out := make([]byte, 0, len(b.CertPEM)+len(b.KeyPEM))
	out = append(out, b.CertPEM...)
	out = append(out, b.KeyPEM...)
	return out
}

// IssueServerCertificate performs the full workflow cert.h's usage comment
// documents: generate a server key+CSR, sign it under the supplied CA
// certificate+key, and return the combined server certificate+key bundle.
// The intermediate CSR is never written to disk, removing the "delete the
// CSR file afterwards" step the C++ workflow required.
func IssueServerCertificate(caCertPEM, caKeyPEM []byte, caKeyPassword string, kp KeyParams, rp CSRParams) (ServerBundle, error) {
	gen, err := GenerateCSR(kp, rp)
	if err != nil {
		return ServerBundle{}, err
	}

	csrPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: gen.CSR})

	certPEM, err := SignCSRFromFiles(caCertPEM, caKeyPEM, caKeyPassword, csrPEM, rp.Days)
	if err != nil {
		return ServerBundle{}, err
	}

	keyPEM, err := EncodeKeyPEM(gen.Key, kp.Password)
	if err != nil {
		return ServerBundle{}, err
	}

	return ServerBundle{CertPEM: certPEM, KeyPEM: keyPEM}, nil
}

// IssueCA generates a self-signed CA key+certificate and returns both as PEM
// (Combined joins them cert then key), matching step 1 of cert.h's usage example.
func IssueCA(kp KeyParams, cp CertParams) (ServerBundle, error) {
	gen, err := GenerateSelfSigned(kp, cp)
	if err != nil {
		return ServerBundle{}, err
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: gen.Cert})

	keyPEM, err := EncodeKeyPEM(gen.Key, kp.Password)
	if err != nil {
		return ServerBundle{}, err
	}

	return ServerBundle{CertPEM: certPEM, KeyPEM: keyPEM}, nil
}

// ParseCertificatePEM is a small helper for tests and callers that need an
// *x509.Certificate from a PEM-encoded blob (e.g. a freshly issued CA cert).
func ParseCertificatePEM(data []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("certgen: no PEM block found")
	}
	return x509.ParseCertificate(block.Bytes)
}
