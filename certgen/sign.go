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
	"encoding/pem"
	"fmt"
	"time"
)

// SignCSR signs a DER-encoded certificate-signing request under a CA
// certificate and key, returning a DER-encoded certificate valid for days.
// This is the Go equivalent of lecnet's sign_csr.
func SignCSR(csrDER []byte, caCert *x509.Certificate, caKey *rsa.PrivateKey, days int) ([]byte, error) {
	csr, err := x509.ParseCertificateRequest(csrDER)
	if err != nil {
		return nil, fmt.Errorf("certgen: parse certificate request: %w", err)
	}

	if err = csr.CheckSignature(); err != nil {
		return nil, fmt.Errorf("certgen: certificate request has an invalid signature: %w", err)
	}

	if days <= 0 {
		days = 365
	}

	serial, err := randomSerial()
	if err != nil {
		return nil, fmt.Errorf("certgen: random serial: %w", err)
	}

	notBefore := time.Now()
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               csr.Subject,
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(time.Duration(days) * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		DNSNames:              csr.DNSNames,
		IPAddresses:           csr.IPAddresses,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, caCert, csr.PublicKey, caKey)
	if err != nil {
		return nil, fmt.Errorf("certgen: sign certificate request: %w", err)
	}

	return der, nil
}

// SignCSRFromFiles loads a CA certificate+key bundle (PEM, optionally in a
// single combined file matching server_cert/server_cert_key conventions) and
// a CSR, signs it, and returns the new certificate's PEM encoding. Mirrors
// the three-string-argument form of lecnet's sign_csr(ca_cert_file,
// ca_key_file/password, csr_file, certificate_file, days).
func SignCSRFromFiles(caCertPEM, caKeyPEM []byte, caKeyPassword string, csrPEM []byte, days int) ([]byte, error) {
	caCertBlock, _ := pem.Decode(caCertPEM)
	if caCertBlock == nil {
		return nil, fmt.Errorf("certgen: no PEM block found in CA certificate")
	}

	caCert, err := x509.ParseCertificate(caCertBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("certgen: parse CA certificate: %w", err)
	}

	caKey, err := DecodeKeyPEM(caKeyPEM, caKeyPassword)
	if err != nil {
		return nil, fmt.Errorf("certgen: decode CA private key: %w", err)
	}

	csrBlock, _ := pem.Decode(csrPEM)
	if csrBlock == nil {
		return nil, fmt.Errorf("certgen: no PEM block found in certificate request")
	}

	der, err := SignCSR(csrBlock.Bytes, caCert, caKey, days)
	if err != nil {
		return nil, err
	}

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), nil
}
