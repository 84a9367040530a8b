// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compositor

import (
	"time"

	"github.com/gogpu/compositor/buffer"
	"github.com/gogpu/compositor/region"
	"github.com/gogpu/compositor/surface"
)

// OutputID identifies an output.
type OutputID uint32

// Event is an input to the event loop. Events are delivered by the
// protocol layer already validated.
type Event interface {
	event()
}

// SurfaceCreate creates a surface with default state.
type SurfaceCreate struct {
	Surface surface.ID
}

// SurfaceCommit carries the requests a client made since its last commit
// followed by the commit itself. Nil and zero fields leave the state
// unchanged.
type SurfaceCommit struct {
	Surface surface.ID
	// Attach is set when the client attached a buffer. Attaching a nil
	// Buffer unmaps the surface.
	Attach bool
	Buffer *buffer.Buffer
	// Damage is in surface coordinates.
	Damage []region.Rect
	// DX and DY move the surface origin.
	DX, DY    int32
	Opaque    *region.Region
	Input     *region.Region
	Transform *region.Transform
	Scale     int32
	Viewport  *surface.Viewport
	Alpha     *float32
	// Frame requests a FrameDone once the commit is shown.
	Frame bool
}

// SurfaceDestroy destroys a surface.
type SurfaceDestroy struct {
	Surface surface.ID
}

// SurfaceMap places a top-level surface in the global layout and raises
// it. Unmap removes it instead.
type SurfaceMap struct {
	Surface surface.ID
	X, Y    int32
	Unmap   bool
}

// SurfaceRaise moves a mapped top-level surface to the top.
type SurfaceRaise struct {
	Surface surface.ID
}

// SubsurfaceAttach gives Surface the subsurface role under Parent.
type SubsurfaceAttach struct {
	Surface, Parent surface.ID
}

// SubsurfaceSetSync switches a subsurface between synchronized and
// desynchronized commits.
type SubsurfaceSetSync struct {
	Surface surface.ID
	Sync    bool
}

// SubsurfacePlace restacks a subsurface next to a sibling or its parent.
// It takes effect on the parent's next commit.
type SubsurfacePlace struct {
	Surface, Sibling surface.ID
	Above            bool
}

// SubsurfacePosition moves a subsurface relative to its parent. It takes
// effect on the parent's next commit.
type SubsurfacePosition struct {
	Surface surface.ID
	X, Y    int32
}

// BufferDestroy reports that a client destroyed a buffer.
type BufferDestroy struct {
	Buffer buffer.ID
}

// Mode is an output video mode.
type Mode struct {
	Width, Height int32
	// Refresh is the refresh rate in millihertz. Zero selects 60 Hz.
	Refresh int32
}

// OutputAttach adds an output at (X, Y) in the global layout. Attaching
// a known output again changes its mode.
type OutputAttach struct {
	Output OutputID
	Mode   Mode
	X, Y   int32
}

// OutputDetach removes an output.
type OutputDetach struct {
	Output OutputID
}

// OutputVSync reports a refresh of an output.
type OutputVSync struct {
	Output    OutputID
	Timestamp time.Time
}

// fenceCheck polls the fence of a submitted frame.
type fenceCheck struct {
	flight *flight
}

// watchdogFired reports a vsync watchdog expiry.
type watchdogFired struct {
	output *output
	gen    uint64
}

func (SurfaceCreate) event()      {}
func (SurfaceCommit) event()      {}
func (SurfaceDestroy) event()     {}
func (SurfaceMap) event()         {}
func (SurfaceRaise) event()       {}
func (SubsurfaceAttach) event()   {}
func (SubsurfaceSetSync) event()  {}
func (SubsurfacePlace) event()    {}
func (SubsurfacePosition) event() {}
func (BufferDestroy) event()      {}
func (OutputAttach) event()       {}
func (OutputDetach) event()       {}
func (OutputVSync) event()        {}
func (fenceCheck) event()         {}
func (watchdogFired) event()      {}
