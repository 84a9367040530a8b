// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import "errors"

var (
	ErrUnknownSurface        = errors.New("surface: unknown surface")
	ErrSurfaceExists         = errors.New("surface: surface already exists")
	ErrBadScale              = errors.New("surface: scale must be at least 1")
	ErrBadTransform          = errors.New("surface: invalid buffer transform")
	ErrBadAlpha              = errors.New("surface: alpha outside [0, 1]")
	ErrBadViewport           = errors.New("surface: invalid viewport")
	ErrViewportOutsideBuffer = errors.New("surface: viewport source outside buffer")
	ErrCycle                 = errors.New("surface: subsurface would create a cycle")
	ErrHasRole               = errors.New("surface: surface already has a role")
	ErrNotSubsurface         = errors.New("surface: not a subsurface")
	ErrNotSibling            = errors.New("surface: reference is neither sibling nor parent")
)
