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

package server_test

import (
	"bytes"
	"sync"
	"time"

	"github.com/alecmus/lecnet/tcp/server"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const testMagic = 0x4C45434E

var _ = Describe("Server", func() {
	var (
		port int
		logs []string
		mu   sync.Mutex
		srv  *server.Server
	)

	logEvent := func(_, event string) {
		mu.Lock()
		logs = append(logs, event)
		mu.Unlock()
	}

	hasLogContaining := func(substr string) bool {
		mu.Lock()
		defer mu.Unlock()
		for _, l := range logs {
			if bytes.Contains([]byte(l), []byte(substr)) {
				return true
			}
		}
		return false
	}

	BeforeEach(func() {
		port = getFreePort()
		logs = nil
	})

	AfterEach(func() {
		if srv != nil {
			srv.Stop()
			srv = nil
		}
	})

	Describe("plain echo, one shot", func() {
		It("echoes a single request and logs connect/disconnect", func() {
			srv = server.New(server.Params{
				IP: "127.0.0.1", Port: port, MaxClients: 1,
				MagicNumber: testMagic, OnReceive: echoHandler, Log: logEvent,
			})
			Expect(srv.Start()).To(BeTrue())

			conn, err := dial(port)
			Expect(err).ToNot(HaveOccurred())

			Expect(sendFrame(conn, testMagic, 1, []byte("ping"))).To(Succeed())

			decoded, err := recvFrame(conn, testMagic, 5*time.Second)
			Expect(err).ToNot(HaveOccurred())
			Expect(decoded.MsgID).To(Equal(uint32(1)))
			Expect(string(decoded.Payload)).To(Equal("ping"))

			conn.Close()
			Eventually(func() bool { return hasLogContaining("disconnected") }, time.Second).Should(BeTrue())
			Expect(hasLogContaining("connected")).To(BeTrue())
		})
	})

	Describe("magic mismatch", func() {
		It("records invalid data and leaves the connection open", func() {
			srv = server.New(server.Params{
				IP: "127.0.0.1", Port: port, MaxClients: 1,
				MagicNumber: testMagic, OnReceive: echoHandler, Log: logEvent,
			})
			Expect(srv.Start()).To(BeTrue())

			conn, err := dial(port)
			Expect(err).ToNot(HaveOccurred())
			defer conn.Close()

			Expect(sendFrame(conn, 0, 1, []byte("ping"))).To(Succeed())

			_, err = recvFrame(conn, testMagic, 500*time.Millisecond)
			Expect(err).To(HaveOccurred())

			Eventually(func() bool { return hasLogContaining("Invalid data received") }, time.Second).Should(BeTrue())
		})
	})

	Describe("admission cap", func() {
		It("denies the connection beyond max_clients with no connected log line", func() {
			srv = server.New(server.Params{
				IP: "127.0.0.1", Port: port, MaxClients: 2,
				MagicNumber: testMagic, OnReceive: echoHandler, Log: logEvent,
			})
			Expect(srv.Start()).To(BeTrue())

			var conns []interface{ Close() error }
			for i := 0; i < 2; i++ {
				conn, err := dial(port)
				Expect(err).ToNot(HaveOccurred())
				Expect(sendFrame(conn, testMagic, uint32(i+1), []byte("x"))).To(Succeed())
				_, err = recvFrame(conn, testMagic, 2*time.Second)
				Expect(err).ToNot(HaveOccurred())
				conns = append(conns, conn)
			}

			third, err := dial(port)
			Expect(err).ToNot(HaveOccurred())
			defer third.Close()

			// the denied session closes its socket immediately without ever
			// calling OnReceive; the peer observes EOF on its next read.
			_, err = recvFrame(third, testMagic, 2*time.Second)
			Expect(err).To(HaveOccurred())

			count := 0
			mu.Lock()
			for _, l := range logs {
				if bytes.Contains([]byte(l), []byte("connected")) && !bytes.Contains([]byte(l), []byte("disconnected")) {
					count++
				}
			}
			mu.Unlock()
			Expect(count).To(Equal(2))

			for _, c := range conns {
				c.Close()
			}
		})
	})

	Describe("fragmented send", func() {
		It("stitches a payload larger than the read buffer into one frame", func() {
			srv = server.New(server.Params{
				IP: "127.0.0.1", Port: port, MaxClients: 1,
				MagicNumber: testMagic, OnReceive: echoHandler, Log: logEvent,
			})
			Expect(srv.Start()).To(BeTrue())

			conn, err := dial(port)
			Expect(err).ToNot(HaveOccurred())
			defer conn.Close()

			big := bytes.Repeat([]byte("z"), 200*1024)
			Expect(sendFrame(conn, testMagic, 1, big)).To(Succeed())

			decoded, err := recvFrame(conn, testMagic, 5*time.Second)
			Expect(err).ToNot(HaveOccurred())
			Expect(decoded.Payload).To(HaveLen(len(big)))
			Expect(decoded.Payload).To(Equal(big))
		})
	})

	Describe("traffic accounting", func() {
		It("matches 2*(12+len(payload)) after a successful exchange", func() {
			srv = server.New(server.Params{
				IP: "127.0.0.1", Port: port, MaxClients: 1,
				MagicNumber: testMagic, OnReceive: echoHandler, Log: logEvent,
			})
			Expect(srv.Start()).To(BeTrue())

			conn, err := dial(port)
			Expect(err).ToNot(HaveOccurred())
			defer conn.Close()

			payload := []byte("hello")
			Expect(sendFrame(conn, testMagic, 1, payload)).To(Succeed())
			_, err = recvFrame(conn, testMagic, 2*time.Second)
			Expect(err).ToNot(HaveOccurred())

			Eventually(func() []server.ClientInfo { return srv.GetClientInfo() }, time.Second).Should(HaveLen(1))

			info := srv.GetClientInfo()[0]
			Expect(info.TrafficIn + info.TrafficOut).To(Equal(uint64(2 * (12 + len(payload)))))
		})
	})

	Describe("idempotent stop", func() {
		It("returns ok both times and Running is false after the first", func() {
			srv = server.New(server.Params{
				IP: "127.0.0.1", Port: port, MaxClients: 1,
				MagicNumber: testMagic, OnReceive: echoHandler, Log: logEvent,
			})
			Expect(srv.Start()).To(BeTrue())

			Expect(srv.Stop()).To(BeTrue())
			Expect(srv.Running()).To(BeFalse())
			Expect(srv.Stop()).To(BeTrue())
		})
	})

	Describe("already running", func() {
		It("logs Server already running and returns true", func() {
			srv = server.New(server.Params{
				IP: "127.0.0.1", Port: port, MaxClients: 1,
				MagicNumber: testMagic, OnReceive: echoHandler, Log: logEvent,
			})
			Expect(srv.Start()).To(BeTrue())
			Expect(srv.Start()).To(BeTrue())
			Expect(hasLogContaining("Server already running")).To(BeTrue())
		})
	})
})
