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

// Package netlog provides the default Func implementations used to back the
// server's and client's log(timestamp, event) callback (spec section 6).
// Callers are free to supply their own func(timestamp, event string) instead;
// nothing in tcp/server or tcp/client requires logrus.
package netlog

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Func is the log callback signature shared by the server and client:
// invoked inline with an already-formatted "YYYY-MM-DD HH:MM:SS" timestamp
// and a one-line event description from the taxonomy in spec section 6.
type Func func(timestamp, event string)

// Logrus returns a Func that emits each event as a structured logrus entry
// tagged with component, at a level inferred from the event text (events
// mentioning invalid data, disconnects, closing or errors at Warn, everything
// else at Info). Mirrors the teacher's
// logger package building Fields{...} entries around a plain message string.
func Logrus(log *logrus.Logger, component string) Func {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return func(timestamp, event string) {
		entry := log.WithFields(logrus.Fields{
			"component": component,
			"event_ts":  timestamp,
		})

		if isWarnEvent(event) {
			entry.Warn(event)
		} else {
			entry.Info(event)
		}
	}
}

func isWarnEvent(event string) bool {
	lower := strings.ToLower(event)
	return strings.Contains(lower, "invalid") ||
		strings.Contains(lower, "disconnected") ||
		strings.Contains(lower, "closing") ||
		strings.Contains(lower, "error")
}

// Discard returns a Func that drops every event, for tests and headless
// embedding where no log sink is wired up.
func Discard() Func {
	return func(string, string) {}
}
