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
	"math/big"
	"time"
)

const serialRandBits = 64

func randomSerial() (*big.Int, error) {
	max := new(big.Int).Lsh(big.NewInt(1), serialRandBits)
	return rand.Int(rand.Reader, max)
}

// KeyAndCert is a generated private key together with its matching
// DER-encoded certificate.
type KeyAndCert struct {
	Key  *rsa.PrivateKey
	Cert []byte // DER
}

// GenerateSelfSigned produces an RSA key and a self-signed X.509 certificate
// over it, the Go equivalent of lecnet's gen_rsa_and_cert. The certificate is
// valid from now for CertParams.Days days.
func GenerateSelfSigned(kp KeyParams, cp CertParams) (KeyAndCert, error) {
	key, err := GenerateKey(kp)
	if err != nil {
		return KeyAndCert{}, err
	}

	serial, err := randomSerial()
	if err != nil {
		return KeyAndCert{}, fmt.Errorf("certgen: random serial: %w", err)
	}

	notBefore := time.Now()
	notAfter := notBefore.Add(cp.validity())

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Country:    []string{cp.Country},
			CommonName: cp.Issuer,
		},
		Issuer: pkix.Name{
			Country:    []string{cp.Country},
			CommonName: cp.Issuer,
		},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return KeyAndCert{}, fmt.Errorf("certgen: create certificate: %w", err)
	}

	return KeyAndCert{Key: key, Cert: der}, nil
}
