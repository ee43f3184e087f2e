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

package netconfig_test

import (
	"github.com/spf13/viper"

	"github.com/alecmus/lecnet/netconfig"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LoadServerParams", func() {
	It("fills in spec.md's documented defaults when nothing is set", func() {
		p, err := netconfig.LoadServerParams(nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(p.IP).To(Equal("0.0.0.0"))
		Expect(p.Port).To(Equal(50001))
		Expect(p.MaxClients).To(Equal(1000))
		Expect(p.ServerCert).To(Equal("server.crt"))
		Expect(p.ServerCertKey).To(Equal("server.crt"))
		Expect(p.MagicNumber).To(Equal(uint32(0)))
	})

	It("reuses server_cert for server_cert_key when the latter is blank", func() {
		v := viper.New()
		v.Set("server_cert", "combined.pem")
		v.Set("server_cert_key", "")
		p, err := netconfig.LoadServerParams(v)
		Expect(err).ToNot(HaveOccurred())
		Expect(p.ServerCertKey).To(Equal("combined.pem"))
	})

	It("rejects an out-of-range port", func() {
		v := viper.New()
		v.Set("port", 70000)
		_, err := netconfig.LoadServerParams(v)
		Expect(err).To(HaveOccurred())
	})

	It("converts into tcp/server.Params", func() {
		p, err := netconfig.LoadServerParams(nil)
		Expect(err).ToNot(HaveOccurred())

		sp := p.ToServerParams(func(_ string, payload []byte) []byte { return payload }, nil)
		Expect(sp.IP).To(Equal(p.IP))
		Expect(sp.Port).To(Equal(p.Port))
		Expect(sp.OnReceive).ToNot(BeNil())
	})
})

var _ = Describe("LoadClientParams", func() {
	It("fills in spec.md's documented defaults when nothing is set", func() {
		p, err := netconfig.LoadClientParams(nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(p.Address).To(Equal("127.0.0.1"))
		Expect(p.Port).To(Equal(50001))
		Expect(p.TimeoutSeconds).To(Equal(10))
		Expect(p.UseSSL).To(BeTrue())
		Expect(p.CACertPath).To(Equal("ca.crt"))
	})

	It("allows a non-positive timeout through validation (means no timeout)", func() {
		v := viper.New()
		v.Set("timeout_seconds", -1)
		p, err := netconfig.LoadClientParams(v)
		Expect(err).ToNot(HaveOccurred())
		Expect(p.TimeoutSeconds).To(Equal(-1))
	})

	It("converts into tcp/client.Params", func() {
		p, err := netconfig.LoadClientParams(nil)
		Expect(err).ToNot(HaveOccurred())

		cp := p.ToClientParams(nil)
		Expect(cp.Address).To(Equal(p.Address))
		Expect(cp.Port).To(Equal(p.Port))
	})
})
