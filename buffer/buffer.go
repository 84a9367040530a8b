// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package buffer

// ID identifies a client buffer. IDs are assigned by the protocol layer.
type ID uint32

// Buffer is a client-supplied pixel store attached to surfaces.
//
// A buffer moves through commit cycles. A client commit submits the
// buffer, and a release is owed from then on. When the committed state
// becomes current the generation is bumped, since the client may have
// changed the contents. State cached for a synchronized subsurface is
// submitted but not yet current. Within a cycle the buffer is busy while any frame samples it and
// attached while a surface (or a synchronized subsurface cache) holds it.
// Exactly one release is due per cycle, once it is neither.
//
// Buffer is not safe for concurrent use; it is owned by the event loop.
type Buffer struct {
	id     ID
	shm    *Shm
	dmabuf *Dmabuf

	generation uint64
	busy       int
	attached   int
	released   bool
	destroyed  bool
}

// NewShm creates a shared-memory buffer after validating its layout.
func NewShm(id ID, desc Shm) (*Buffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return &Buffer{id: id, shm: &desc, released: true}, nil
}

// NewDmabuf creates an external-memory buffer after validating its planes.
func NewDmabuf(id ID, desc Dmabuf) (*Buffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return &Buffer{id: id, dmabuf: &desc, released: true}, nil
}

// ID returns the buffer identity.
func (b *Buffer) ID() ID { return b.id }

// Shm returns the shared-memory descriptor, or nil for external buffers.
func (b *Buffer) Shm() *Shm { return b.shm }

// Dmabuf returns the external-memory descriptor, or nil for shm buffers.
func (b *Buffer) Dmabuf() *Dmabuf { return b.dmabuf }

// Width returns the buffer width in pixels.
func (b *Buffer) Width() int32 {
	if b.shm != nil {
		return b.shm.Width
	}
	return b.dmabuf.Width
}

// Height returns the buffer height in pixels.
func (b *Buffer) Height() int32 {
	if b.shm != nil {
		return b.shm.Height
	}
	return b.dmabuf.Height
}

// Format returns the pixel format.
func (b *Buffer) Format() Format {
	if b.shm != nil {
		return b.shm.Format
	}
	return b.dmabuf.Format
}

// Generation identifies the contents of the current commit cycle.
// It is 0 until the buffer is first committed.
func (b *Buffer) Generation() uint64 { return b.generation }

// Submit records a client commit of the buffer. The generation is kept
// until the committed state becomes current.
func (b *Buffer) Submit() { b.released = false }

// Commit starts a new commit cycle with new contents.
func (b *Buffer) Commit() {
	b.generation++
	b.released = false
}

// Attach records that a surface state holds the buffer.
func (b *Buffer) Attach() { b.attached++ }

// Detach drops one surface-state reference.
func (b *Buffer) Detach() {
	if b.attached > 0 {
		b.attached--
	}
}

// Attached reports whether any surface state holds the buffer.
func (b *Buffer) Attached() bool { return b.attached > 0 }

// Acquire marks the buffer as sampled by one more in-flight frame.
func (b *Buffer) Acquire() { b.busy++ }

// Unacquire drops one in-flight frame reference.
func (b *Buffer) Unacquire() {
	if b.busy > 0 {
		b.busy--
	}
}

// Busy reports whether an in-flight frame still samples the buffer.
func (b *Buffer) Busy() bool { return b.busy > 0 }

// ReleaseDue reports whether the release for the current cycle may be sent.
func (b *Buffer) ReleaseDue() bool {
	return !b.released && b.attached == 0 && b.busy == 0
}

// MarkReleased records that the release for the current cycle was sent.
func (b *Buffer) MarkReleased() { b.released = true }

// Released reports whether the current cycle has been released.
func (b *Buffer) Released() bool { return b.released }

// Destroy marks the buffer as destroyed by the client. Destroyed buffers
// are never released again.
func (b *Buffer) Destroy() {
	b.destroyed = true
	b.released = true
}

// Destroyed reports whether the client destroyed the buffer.
func (b *Buffer) Destroyed() bool { return b.destroyed }
