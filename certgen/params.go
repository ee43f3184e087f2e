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

// Package certgen generates an RSA private key together with either a
// self-signed X.509 certificate or a certificate-signing request, and signs
// CSRs under a CA — the Go counterpart of lecnet's cert.h.
//
// The tcp server consumes the file paths and key password this package
// produces; the tcp client consumes the CA certificate path. How those
// files are produced is not the tcp core's concern (spec section 1).
package certgen

import "time"

// KeyParams describes the RSA private key to generate.
type KeyParams struct {
	// Bits is the RSA modulus size. 2048 is the lecnet default; use 3072 or
	// 4096 for longer-lived CA keys.
	Bits int
	// Password, if non-empty, encrypts the PEM-encoded private key.
	Password string
}

// DefaultKeyParams mirrors lecnet's private_key defaults (2048 bits, no password).
func DefaultKeyParams() KeyParams {
	return KeyParams{Bits: 2048}
}

// CertParams describes a self-signed certificate's subject and validity.
type CertParams struct {
	Country string
	Issuer  string // common name
	Days    int
}

// DefaultCertParams mirrors lecnet's certificate defaults (3 years, ZW/liblec).
func DefaultCertParams() CertParams {
	return CertParams{Country: "ZW", Issuer: "liblec", Days: 365 * 3}
}

func (c CertParams) validity() time.Duration {
	days := c.Days
	if days <= 0 {
		days = 365 * 3
	}
	return time.Duration(days) * 24 * time.Hour
}

// CSRParams describes a certificate-signing request's subject and the
// validity the caller intends to request once it is signed.
type CSRParams struct {
	Country string
	Issuer  string // common name
	Days    int    // validity in days IssueServerCertificate signs the certificate for; not encoded in the CSR

	// Hosts are the server names the issued certificate must be valid for —
	// each parsed as an IP literal (IPAddresses) or, failing that, a DNS
	// name (DNSNames). Modern TLS clients verify against these SANs, not
	// the subject CommonName, so a server cert a client's ServerName is
	// expected to match needs at least one entry here.
	Hosts []string
}

// DefaultCSRParams mirrors lecnet's certificate_request defaults (1 year, ZW/lecnet).
func DefaultCSRParams() CSRParams {
	return CSRParams{Country: "ZW", Issuer: "lecnet", Days: 365}
}
