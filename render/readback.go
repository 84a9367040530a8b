// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"
	"fmt"

	"github.com/gogpu/compositor/buffer"
	"github.com/gogpu/compositor/region"
)

// ErrReadback is returned by ReadPixels for a rectangle or destination
// the read cannot be served into.
var ErrReadback = errors.New("render: bad readback")

// CheckReadback validates a ReadPixels request: rect must be non-empty
// and inside the target, and dst must be a valid 32-bit RGB buffer of
// the same size as rect.
func CheckReadback(target Target, rect region.Rect, dst *buffer.Shm) error {
	if rect.Empty() {
		return fmt.Errorf("%w: empty rect %v", ErrReadback, rect)
	}
	bounds := region.NewRect(0, 0, int32(target.Width()), int32(target.Height())) //nolint:gosec // target sizes fit int32
	if !bounds.ContainsRect(rect) {
		return fmt.Errorf("%w: %v outside target %v", ErrReadback, rect, bounds)
	}
	if err := dst.Validate(); err != nil {
		return err
	}
	if dst.Width != rect.Width() || dst.Height != rect.Height() {
		return fmt.Errorf("%w: destination %dx%d for rect %v", ErrReadback, dst.Width, dst.Height, rect)
	}
	switch dst.Format {
	case buffer.ARGB8888, buffer.XRGB8888, buffer.ABGR8888, buffer.XBGR8888:
		return nil
	}
	return fmt.Errorf("%w: destination format %v", ErrReadback, dst.Format)
}

// PackPixel stores a premultiplied pixel at (x, y) of dst in dst's
// format. Formats without alpha store an opaque pixel.
func PackPixel(dst *buffer.Shm, x, y int, r, g, b, a uint8) {
	i := int(dst.Offset) + y*int(dst.Stride) + x*4
	p := dst.Data[i : i+4 : i+4]
	switch dst.Format {
	case buffer.ARGB8888:
		p[0], p[1], p[2], p[3] = b, g, r, a
	case buffer.XRGB8888:
		p[0], p[1], p[2], p[3] = b, g, r, 0xff
	case buffer.ABGR8888:
		p[0], p[1], p[2], p[3] = r, g, b, a
	case buffer.XBGR8888:
		p[0], p[1], p[2], p[3] = r, g, b, 0xff
	}
}
