// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package surface implements the double-buffered surface state model.
//
// Surfaces live in a [Tree], an arena keyed by the protocol's surface IDs.
// Parent and child relations are stored as IDs, never as pointers, so a
// destroyed parent leaves no dangling references behind.
//
// Requests mutate a surface's pending state. [Tree.Commit] promotes the
// pending state to current atomically and reports the global damage the
// change caused, the buffers that became current and the buffers that
// were superseded. A synchronized subsurface caches its commit instead;
// the cache is applied when its parent's state is applied.
//
// Rendering reads current state only.
package surface
