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
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"net"
)

// KeyAndCSR is a generated private key together with its matching
// DER-encoded certificate-signing request.
type KeyAndCSR struct {
	Key *rsa.PrivateKey
	CSR []byte // DER
}

// GenerateCSR produces an RSA key and a certificate-signing request over it,
// the Go equivalent of lecnet's gen_rsa_and_csr. The request still needs to
// be signed by a CA (see SignCSR) before it is a usable certificate.
func GenerateCSR(kp KeyParams, rp CSRParams) (KeyAndCSR, error) {
	key, err := GenerateKey(kp)
	if err != nil {
		return KeyAndCSR{}, err
	}

	var ips []net.IP
	var dnsNames []string
	for _, host := range rp.Hosts {
		if ip := net.ParseIP(host); ip != nil {
			ips = append(ips, ip)
		} else {
			dnsNames = append(dnsNames, host)
		}
	}

	template := &x509.CertificateRequest{
		Subject: pkix.Name{
			Country:    []string{rp.Country},
			CommonName: rp.Issuer,
		},
		SignatureAlgorithm: x509.SHA256WithRSA,
		IPAddresses:        ips,
		DNSNames:           dnsNames,
	}

	der, err := x509.CreateCertificateRequest(rand.Reader, template, key)
	if err != nil {
		return KeyAndCSR{}, fmt.Errorf("certgen: create certificate request: %w", err)
	}

	return KeyAndCSR{Key: key, CSR: der}, nil
}
