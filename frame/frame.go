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

// Package frame implements the length-prefixed wire frame shared by the
// tcp client and server: MAGIC (u32le) | MSG_ID (u32le) | TOTAL_LEN (u32le) | PAYLOAD.
//
// TOTAL_LEN counts the full frame, including the 12 header bytes. The decoder
// is peek-only: callers own removing Consumed bytes from their accumulator.
package frame

import (
	"encoding/binary"
	"errors"
)

// HeaderSize is the number of bytes preceding the payload in every frame.
const HeaderSize = 12

// MaxPayload is the largest payload representable in a single frame, given
// TOTAL_LEN must fit in a u32 and counts the 12 header bytes.
const MaxPayload = uint64(^uint32(0)) - HeaderSize

// ErrPayloadTooLarge is returned by Encode when payload would overflow TOTAL_LEN.
var ErrPayloadTooLarge = errors.New("frame: payload exceeds maximum representable size")

// Status classifies the result of TryDecode.
type Status int

const (
	// Incomplete means fewer than 4 bytes are buffered, or the magic matched
	// but fewer than 12 bytes, or fewer than TOTAL_LEN bytes, are buffered.
	Incomplete Status = iota
	// BadMagic means the leading 4 bytes did not match the configured magic,
	// or TOTAL_LEN is smaller than the 12-byte header.
	// This is a fatal framing error for the connection.
	BadMagic
	// Ready means a complete, well-formed frame was found.
	Ready
)

// Decoded is the result of a TryDecode call.
type Decoded struct {
	Status   Status
	MsgID    uint32
	Payload  []byte // only valid when Status == Ready; aliases buf, do not retain beyond the caller's copy
	Consumed int    // number of leading bytes of buf that make up this frame; only valid when Status == Ready
}

// Encode returns magic ++ msgID ++ totalLen ++ payload, all three header
// fields little-endian u32. It returns ErrPayloadTooLarge if payload would
// make TOTAL_LEN (12+len(payload)) overflow a u32.
func Encode(magic, msgID uint32, payload []byte) ([]byte, error) {
	if uint64(len(payload)) > MaxPayload {
		return nil, ErrPayloadTooLarge
	}

	total := HeaderSize + len(payload)
	out := make([]byte, total)

	binary.LittleEndian.PutUint32(out[0:4], magic)
	binary.LittleEndian.PutUint32(out[4:8], msgID)
	binary.LittleEndian.PutUint32(out[8:12], uint32(total))
	copy(out[HeaderSize:], payload)

	return out, nil
}

// TryDecode inspects buf for a complete frame prefixed with magic.
//
// It never mutates or retains buf: the caller removes Consumed bytes from
// its own accumulator on a Ready result, and keeps accumulating on
// Incomplete. A BadMagic result means the connection has spoken a
// different protocol and, per the frame format's contract, should be
// treated as a fatal framing error by the caller (see the tcp/server and
// tcp/client packages for how each side reacts).
func TryDecode(buf []byte, magic uint32) Decoded {
	if len(buf) < 4 {
		return Decoded{Status: Incomplete}
	}

	if binary.LittleEndian.Uint32(buf[0:4]) != magic {
		return Decoded{Status: BadMagic}
	}

	if len(buf) < HeaderSize {
		return Decoded{Status: Incomplete}
	}

	total := binary.LittleEndian.Uint32(buf[8:12])
	if total < HeaderSize {
		// malformed length prefix; not recoverable by waiting for more bytes
		return Decoded{Status: BadMagic}
	}

	if uint64(len(buf)) < uint64(total) {
		return Decoded{Status: Incomplete}
	}

	msgID := binary.LittleEndian.Uint32(buf[4:8])
	payload := buf[HeaderSize:total]

	return Decoded{
		Status:   Ready,
		MsgID:    msgID,
		Payload:  payload,
		Consumed: int(total),
	}
}
