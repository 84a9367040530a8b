// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package buffer

import "fmt"

// Format is a DRM fourcc pixel format code.
type Format uint32

func fourcc(a, b, c, d byte) Format {
	return Format(uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24)
}

// Supported formats. Byte order in memory is little-endian, so ARGB8888
// is stored as B, G, R, A.
var (
	ARGB8888 = fourcc('A', 'R', '2', '4')
	XRGB8888 = fourcc('X', 'R', '2', '4')
	ABGR8888 = fourcc('A', 'B', '2', '4')
	XBGR8888 = fourcc('X', 'B', '2', '4')
	NV12     = fourcc('N', 'V', '1', '2')
)

// Shm format codes that differ from the fourcc value.
const (
	shmARGB8888 = 0
	shmXRGB8888 = 1
)

type formatInfo struct {
	name   string
	alpha  bool
	bpp    int32
	planes int
}

var formats = map[Format]formatInfo{
	ARGB8888: {name: "argb8888", alpha: true, bpp: 4, planes: 1},
	XRGB8888: {name: "xrgb8888", alpha: false, bpp: 4, planes: 1},
	ABGR8888: {name: "abgr8888", alpha: true, bpp: 4, planes: 1},
	XBGR8888: {name: "xbgr8888", alpha: false, bpp: 4, planes: 1},
	NV12:     {name: "nv12", alpha: false, bpp: 1, planes: 2},
}

// Known reports whether the format is in the compositor's format table.
func (f Format) Known() bool {
	_, ok := formats[f]
	return ok
}

// Name returns the lower-case format name, or the raw fourcc.
func (f Format) Name() string {
	if info, ok := formats[f]; ok {
		return info.name
	}
	return fmt.Sprintf("fourcc(%#08x)", uint32(f))
}

func (f Format) String() string { return f.Name() }

// HasAlpha reports whether the format carries a meaningful alpha channel.
// For X formats the fourth byte is undefined and must be ignored.
func (f Format) HasAlpha() bool {
	return formats[f].alpha
}

// BytesPerPixel returns the size of one pixel of the first plane.
func (f Format) BytesPerPixel() int32 {
	return formats[f].bpp
}

// Planes returns the number of memory planes the format needs.
func (f Format) Planes() int {
	return formats[f].planes
}

// ShmCode returns the wl_shm format code for f.
func (f Format) ShmCode() uint32 {
	switch f {
	case ARGB8888:
		return shmARGB8888
	case XRGB8888:
		return shmXRGB8888
	}
	return uint32(f)
}

// FormatFromShm converts a wl_shm format code into a Format.
func FormatFromShm(code uint32) (Format, bool) {
	var f Format
	switch code {
	case shmARGB8888:
		f = ARGB8888
	case shmXRGB8888:
		f = XRGB8888
	default:
		f = Format(code)
	}
	return f, f.Known()
}

// Modifier is a DRM format modifier describing the memory layout of an
// external buffer.
type Modifier uint64

const (
	// ModifierLinear is the plain row-major layout.
	ModifierLinear Modifier = 0
	// ModifierInvalid marks an implicit, driver-chosen layout.
	ModifierInvalid Modifier = 0x00ffffffffffffff
)

func (m Modifier) String() string {
	switch m {
	case ModifierLinear:
		return "linear"
	case ModifierInvalid:
		return "invalid"
	}
	return fmt.Sprintf("%#x", uint64(m))
}
