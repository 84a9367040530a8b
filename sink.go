// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compositor

import (
	"fmt"
	"time"

	"github.com/gogpu/compositor/buffer"
	"github.com/gogpu/compositor/surface"
)

// Notification is an output of the event loop for the protocol layer.
type Notification interface {
	notification()
}

// BufferReleased tells the client it may reuse a buffer. It is sent once
// per commit cycle of the buffer, when no surface state and no in-flight
// frame holds it.
type BufferReleased struct {
	Buffer buffer.ID
}

// FrameDone answers a frame request. It is sent at most once per surface
// per output refresh in which the surface was composited, or would have
// been had it not been occluded.
type FrameDone struct {
	Surface   surface.ID
	Output    OutputID
	Timestamp time.Time
}

// ImportFailed reports a buffer that could not be turned into a texture.
// The surface is left out of composition until a new buffer imports.
type ImportFailed struct {
	Buffer buffer.ID
	Reason string
	Err    error
}

func (BufferReleased) notification() {}
func (FrameDone) notification()      {}
func (ImportFailed) notification()   {}

func (n BufferReleased) String() string { return fmt.Sprintf("release(buffer %d)", n.Buffer) }
func (n FrameDone) String() string {
	return fmt.Sprintf("done(surface %d, output %d)", n.Surface, n.Output)
}
func (n ImportFailed) String() string {
	return fmt.Sprintf("import-failed(buffer %d: %s)", n.Buffer, n.Reason)
}

// Sink receives notifications. Notify is called on the event loop and
// must not block.
type Sink interface {
	Notify(n Notification)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Notification)

// Notify calls f(n).
func (f SinkFunc) Notify(n Notification) { f(n) }

// ChanSink returns a Sink that sends to ch. When ch is full the
// notification is dropped and a warning logged, so ch must be drained
// faster than frames complete.
func ChanSink(ch chan<- Notification) Sink {
	return SinkFunc(func(n Notification) {
		select {
		case ch <- n:
		default:
			Logger().Warn("compositor: notification dropped", "notification", n)
		}
	})
}

type discardSink struct{}

func (discardSink) Notify(Notification) {}
