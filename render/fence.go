// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

// SignaledFence is a fence that completed at creation, with Err as its
// outcome. Backends that execute synchronously return it from EndFrame.
type SignaledFence struct {
	Err error
}

// Poll reports completion immediately.
func (f SignaledFence) Poll() (bool, error) { return true, f.Err }
