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

package multicast_test

import (
	"time"

	"github.com/alecmus/lecnet/udp/multicast"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const (
	testMagic = 0x4C45434E
	testGroup = "239.255.10.10"
)

var _ = Describe("Sender and Receiver", func() {
	var (
		port  int
		iface = multicastInterface()
	)

	BeforeEach(func() {
		port = getFreePort()
		if iface == nil {
			Skip("no multicast-capable network interface available")
		}
	})

	It("round-trips a payload to a joined group", func() {
		recv, err := multicast.NewReceiver(multicast.ReceiverParams{
			Group: testGroup, Port: port, Magic: testMagic, Iface: iface,
		})
		Expect(err).ToNot(HaveOccurred())
		defer recv.Close()

		send, err := multicast.NewSender(multicast.SenderParams{
			Group: testGroup, Port: port, Magic: testMagic, TTL: 1,
		})
		Expect(err).ToNot(HaveOccurred())
		defer send.Close()

		done := make(chan multicast.Received, 1)
		errCh := make(chan error, 1)
		go func() {
			got, err := recv.Receive(2 * time.Second)
			if err != nil {
				errCh <- err
				return
			}
			done <- got
		}()

		time.Sleep(20 * time.Millisecond)
		Expect(send.Send([]byte("hello group"))).To(Succeed())

		select {
		case got := <-done:
			Expect(string(got.Payload)).To(Equal("hello group"))
		case err := <-errCh:
			Expect(err).ToNot(HaveOccurred())
		case <-time.After(3 * time.Second):
			Fail("timed out waiting for datagram")
		}
	})

	It("reports async send completion via Sending and Result", func() {
		send, err := multicast.NewSender(multicast.SenderParams{
			Group: testGroup, Port: port, Magic: testMagic, Retries: 1,
		})
		Expect(err).ToNot(HaveOccurred())
		defer send.Close()

		dataID := send.SendAsync([]byte("async"))
		Eventually(func() bool { return !send.Sending(dataID) }, time.Second).Should(BeTrue())
		Expect(send.Result(dataID)).To(BeEmpty())
	})
})
