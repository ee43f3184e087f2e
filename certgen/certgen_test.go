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

package certgen_test

import (
	"encoding/pem"

	"github.com/alecmus/lecnet/certgen"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("certgen", func() {
	Describe("GenerateKey", func() {
		It("generates a key of the requested size", func() {
			key, err := certgen.GenerateKey(certgen.KeyParams{Bits: 2048})
			Expect(err).ToNot(HaveOccurred())
			Expect(key.N.BitLen()).To(BeNumerically("~", 2048, 8))
		})

		It("defaults to 2048 bits when unset", func() {
			key, err := certgen.GenerateKey(certgen.KeyParams{})
			Expect(err).ToNot(HaveOccurred())
			Expect(key.N.BitLen()).To(BeNumerically("~", 2048, 8))
		})
	})

	Describe("PEM round trip", func() {
		It("round-trips an unencrypted key", func() {
			key, err := certgen.GenerateKey(certgen.DefaultKeyParams())
			Expect(err).ToNot(HaveOccurred())

			pemBytes, err := certgen.EncodeKeyPEM(key, "")
			Expect(err).ToNot(HaveOccurred())

			back, err := certgen.DecodeKeyPEM(pemBytes, "")
			Expect(err).ToNot(HaveOccurred())
			Expect(back.Equal(key)).To(BeTrue())
		})

		It("round-trips a password-protected key", func() {
			key, err := certgen.GenerateKey(certgen.DefaultKeyParams())
			Expect(err).ToNot(HaveOccurred())

			pemBytes, err := certgen.EncodeKeyPEM(key, "hunter2")
			Expect(err).ToNot(HaveOccurred())

			back, err := certgen.DecodeKeyPEM(pemBytes, "hunter2")
			Expect(err).ToNot(HaveOccurred())
			Expect(back.Equal(key)).To(BeTrue())
		})

		It("fails to decode a password-protected key with the wrong password", func() {
			key, err := certgen.GenerateKey(certgen.DefaultKeyParams())
			Expect(err).ToNot(HaveOccurred())

			pemBytes, err := certgen.EncodeKeyPEM(key, "hunter2")
			Expect(err).ToNot(HaveOccurred())

			_, err = certgen.DecodeKeyPEM(pemBytes, "wrong")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("GenerateSelfSigned", func() {
		It("produces a certificate parseable back to itself", func() {
			kc, err := certgen.GenerateSelfSigned(certgen.DefaultKeyParams(), certgen.DefaultCertParams())
			Expect(err).ToNot(HaveOccurred())
			Expect(kc.Cert).ToNot(BeEmpty())

			cert, err := certgen.ParseCertificatePEM(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: kc.Cert}))
			Expect(err).ToNot(HaveOccurred())
			Expect(cert.Subject.CommonName).To(Equal("liblec"))
			Expect(cert.IsCA).To(BeTrue())
		})
	})

	Describe("full CA -> CSR -> sign workflow", func() {
		It("issues a server certificate signed by a freshly minted CA", func() {
			ca, err := certgen.IssueCA(certgen.DefaultKeyParams(), certgen.DefaultCertParams())
			Expect(err).ToNot(HaveOccurred())

			bundle, err := certgen.IssueServerCertificate(
				ca.CertPEM, ca.KeyPEM, "",
				certgen.DefaultKeyParams(), certgen.DefaultCSRParams(),
			)
			Expect(err).ToNot(HaveOccurred())
			Expect(bundle.CertPEM).ToNot(BeEmpty())
			Expect(bundle.KeyPEM).ToNot(BeEmpty())

			combined := bundle.Combined()
			Expect(combined).To(HaveLen(len(bundle.CertPEM) + len(bundle.KeyPEM)))

			serverCert, err := certgen.ParseCertificatePEM(bundle.CertPEM)
			Expect(err).ToNot(HaveOccurred())
			Expect(serverCert.Subject.CommonName).To(Equal("lecnet"))

			caCert, err := certgen.ParseCertificatePEM(ca.CertPEM)
			Expect(err).ToNot(HaveOccurred())
			Expect(serverCert.CheckSignatureFrom(caCert)).ToNot(HaveOccurred())
		})

		It("issues a server certificate signed by a password-protected CA key", func() {
			ca, err := certgen.IssueCA(certgen.KeyParams{Bits: 2048, Password: "ca-secret"}, certgen.DefaultCertParams())
			Expect(err).ToNot(HaveOccurred())

			bundle, err := certgen.IssueServerCertificate(
				ca.CertPEM, ca.KeyPEM, "ca-secret",
				certgen.DefaultKeyParams(), certgen.DefaultCSRParams(),
			)
			Expect(err).ToNot(HaveOccurred())
			Expect(bundle.CertPEM).ToNot(BeEmpty())
		})
	})
})
