// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package buffer

import (
	"errors"
	"fmt"
)

// ErrBadDescriptor is returned for descriptors whose geometry does not
// fit their memory.
var ErrBadDescriptor = errors.New("buffer: bad descriptor")

// Shm describes a buffer in a shared-memory pool.
type Shm struct {
	Data   []byte
	Offset int32
	Width  int32
	Height int32
	Stride int32
	Format Format
}

// Validate checks that the described image lies inside Data.
func (s *Shm) Validate() error {
	if !s.Format.Known() || s.Format.Planes() != 1 {
		return fmt.Errorf("%w: shm format %v", ErrBadDescriptor, s.Format)
	}
	if s.Width <= 0 || s.Height <= 0 || s.Offset < 0 {
		return fmt.Errorf("%w: shm size %dx%d offset %d", ErrBadDescriptor, s.Width, s.Height, s.Offset)
	}
	if s.Stride < s.Width*s.Format.BytesPerPixel() {
		return fmt.Errorf("%w: stride %d too small for width %d", ErrBadDescriptor, s.Stride, s.Width)
	}
	need := int64(s.Offset) + int64(s.Stride)*int64(s.Height)
	if need > int64(len(s.Data)) {
		return fmt.Errorf("%w: shm needs %d bytes, pool has %d", ErrBadDescriptor, need, len(s.Data))
	}
	return nil
}

// Pixels returns the bytes of the image, starting at the first row.
func (s *Shm) Pixels() []byte {
	return s.Data[s.Offset : int64(s.Offset)+int64(s.Stride)*int64(s.Height)]
}

// Plane is one memory plane of an external buffer. Data is the mapped
// memory backing the plane.
type Plane struct {
	Data   []byte
	Offset uint32
	Stride uint32
}

// Dmabuf describes an external-memory buffer made of one or more planes.
type Dmabuf struct {
	Width    int32
	Height   int32
	Format   Format
	Modifier Modifier
	Planes   []Plane
}

// Validate checks that every plane is large enough for its rows. It does
// not check the plane count against the format; backends reject
// unsupported plane layouts at import time.
func (d *Dmabuf) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: dmabuf size %dx%d", ErrBadDescriptor, d.Width, d.Height)
	}
	if len(d.Planes) == 0 {
		return fmt.Errorf("%w: dmabuf has no planes", ErrBadDescriptor)
	}
	for i, p := range d.Planes {
		rows := uint64(d.Height)
		if d.Format == NV12 && i > 0 {
			// Chroma plane is subsampled vertically.
			rows = (rows + 1) / 2
		}
		need := uint64(p.Offset) + uint64(p.Stride)*rows
		if p.Stride == 0 || need > uint64(len(p.Data)) {
			return fmt.Errorf("%w: plane %d needs %d bytes, has %d", ErrBadDescriptor, i, need, len(p.Data))
		}
	}
	return nil
}
