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

package atomic

import "sync"

// MapTyped is a concurrent map from K to V built on sync.Map, without the
// any/any erasure sync.Map exposes at its boundary. The registries it backs
// (the tcp server's session registry, pending-reply tables, in-flight async
// sends) are all keyed by a comparable ID and never need the full sync.Map
// surface, so only Store/Load/Delete/Range are exposed. The zero MapTyped is
// an empty map ready to use; NewMapTyped returns exactly that.
type MapTyped[K comparable, V any] struct {
	m sync.Map
}

// NewMapTyped returns an empty MapTyped.
func NewMapTyped[K comparable, V any]() MapTyped[K, V] {
	return MapTyped[K, V]{}
}

// Store sets the value for key, replacing any existing entry.
func (m *MapTyped[K, V]) Store(key K, value V) {
	m.m.Store(key, value)
}

// Load returns the value stored for key and whether it was present.
func (m *MapTyped[K, V]) Load(key K) (value V, ok bool) {
	raw, ok := m.m.Load(key)
	if !ok {
		var zero V
		return zero, false
	}
	return raw.(V), true
}

// Delete removes key, if present.
func (m *MapTyped[K, V]) Delete(key K) {
	m.m.Delete(key)
}

// Range calls f for each key/value pair. Iteration stops early if f returns
// false. The contract matches sync.Map.Range: f must not be called again
// once it has returned false, and entries added during Range may or may not
// be visited.
func (m *MapTyped[K, V]) Range(f func(key K, value V) bool) {
	m.m.Range(func(k, v any) bool {
		return f(k.(K), v.(V))
	})
}
