// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package soft is a GL-style immediate renderer executed on the CPU.
//
// It follows the same program model as a GL backend: each pipeline
// variant is a program compiled on first use, a draw binds the program,
// uploads the 64-byte parameter block and runs once per clip rectangle.
// Programs read every input back from the parameter block, so the
// block layout is exercised exactly as a shader would see it.
//
// Shared-memory buffers are uploaded into premultiplied RGBA images.
// Linear external buffers are sampled in place without copying.
//
// Importing this package registers the "soft" backend with
// [render.Register].
package soft
