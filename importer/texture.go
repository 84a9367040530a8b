// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package importer

import (
	"github.com/gogpu/compositor/buffer"
	"github.com/gogpu/compositor/render"
)

// Texture is the imported form of a buffer. It implements render.Source.
type Texture struct {
	bufferID   buffer.ID
	image      render.Texture
	generation uint64
	dmabuf     bool

	refs    int
	retired bool
	freed   bool
}

// Image returns the backend texture.
func (t *Texture) Image() render.Texture { return t.image }

// Generation returns the buffer generation whose contents the texture holds.
func (t *Texture) Generation() uint64 { return t.generation }

// Stale reports whether the texture no longer represents its buffer:
// a newer generation was imported into a different texture, or the
// buffer was destroyed.
func (t *Texture) Stale() bool { return t.retired }

// BufferID returns the source buffer.
func (t *Texture) BufferID() buffer.ID { return t.bufferID }

// Refs returns the number of in-flight frames sampling the texture.
func (t *Texture) Refs() int { return t.refs }

// Freed reports whether the texture's GPU memory has been released.
func (t *Texture) Freed() bool { return t.freed }
