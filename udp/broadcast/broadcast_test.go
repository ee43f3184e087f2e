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

package broadcast_test

import (
	"time"

	"github.com/alecmus/lecnet/udp/broadcast"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const testMagic = 0x4C45434E

var _ = Describe("Sender and Receiver", func() {
	var port int

	BeforeEach(func() {
		port = getFreePort()
	})

	It("round-trips a payload over loopback", func() {
		recv, err := broadcast.NewReceiver(broadcast.ReceiverParams{Port: port, Magic: testMagic})
		Expect(err).ToNot(HaveOccurred())
		defer recv.Close()

		send, err := broadcast.NewSender(broadcast.SenderParams{
			BroadcastAddr: "127.0.0.1", Port: port, Magic: testMagic,
		})
		Expect(err).ToNot(HaveOccurred())
		defer send.Close()

		done := make(chan broadcast.Received, 1)
		errCh := make(chan error, 1)
		go func() {
			got, err := recv.Receive(2 * time.Second)
			if err != nil {
				errCh <- err
				return
			}
			done <- got
		}()

		time.Sleep(20 * time.Millisecond) // let the receive loop start listening
		Expect(send.Send([]byte("hello"))).To(Succeed())

		select {
		case got := <-done:
			Expect(string(got.Payload)).To(Equal("hello"))
		case err := <-errCh:
			Expect(err).ToNot(HaveOccurred())
		case <-time.After(3 * time.Second):
			Fail("timed out waiting for datagram")
		}
	})

	It("drops datagrams with a mismatched magic and keeps waiting", func() {
		recv, err := broadcast.NewReceiver(broadcast.ReceiverParams{Port: port, Magic: testMagic})
		Expect(err).ToNot(HaveOccurred())
		defer recv.Close()

		wrongSend, err := broadcast.NewSender(broadcast.SenderParams{
			BroadcastAddr: "127.0.0.1", Port: port, Magic: 0xDEADBEEF, Retries: 1,
		})
		Expect(err).ToNot(HaveOccurred())
		defer wrongSend.Close()

		Expect(wrongSend.Send([]byte("nope"))).To(Succeed())

		_, err = recv.Receive(200 * time.Millisecond)
		Expect(err).To(HaveOccurred())
	})

	It("reports async send completion via Sending and Result", func() {
		send, err := broadcast.NewSender(broadcast.SenderParams{
			BroadcastAddr: "127.0.0.1", Port: port, Magic: testMagic, Retries: 1,
		})
		Expect(err).ToNot(HaveOccurred())
		defer send.Close()

		dataID := send.SendAsync([]byte("async"))
		Eventually(func() bool { return !send.Sending(dataID) }, time.Second).Should(BeTrue())
		Expect(send.Result(dataID)).To(BeEmpty())
	})
})
