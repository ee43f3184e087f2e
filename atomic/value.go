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

// Package atomic holds the handful of generic, type-safe atomic containers
// the tcp and udp packages share: a single typed slot (Value) and a typed
// concurrent map (MapTyped), both built directly on sync/atomic and
// sync.Map. Connection state, last-error strings, and in-flight reply
// tables are the only things that need this; plain counters and flags use
// sync/atomic.Uint32/Bool straight from the call site.
package atomic

import "sync/atomic"

// Value is a single slot of T that can be read and written from multiple
// goroutines without a lock. The zero Value is ready to use and Loads the
// zero value of T; NewValue returns exactly that.
type Value[T any] struct {
	v atomic.Value
}

// box wraps T so Value can hold types whose zero value would otherwise be
// an invalid argument to atomic.Value.Store (e.g. nil interfaces, or a
// first Store whose type must match every later Store).
type box[T any] struct {
	val T
}

// NewValue returns a Value holding the zero value of T.
func NewValue[T any]() Value[T] {
	return Value[T]{}
}

// Load returns the most recently stored value, or the zero value of T if
// Store has never been called.
func (v *Value[T]) Load() T {
	b, ok := v.v.Load().(box[T])
	if !ok {
		var zero T
		return zero
	}
	return b.val
}

// Store sets the value returned by subsequent Loads.
func (v *Value[T]) Store(val T) {
	v.v.Store(box[T]{val: val})
}
