// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package wgpu is the explicit GPU renderer built on the wgpu HAL.
//
// Pipelines are compiled per variant from WGSL to SPIR-V on first use.
// A frame records one render pass over the output target, loading the
// previous contents: damaged pixels are cleared with the fill pipeline
// and every draw is scissored to its clip rectangles. Submission returns
// a fence that compares the submission index with the queue's completed
// index, so it never blocks.
//
// Shared-memory buffers are uploaded with queue writes. The HAL exposes
// no external memory import, so external buffers are rejected by the
// format table and reported as import failures.
//
// Importing this package registers the "wgpu" backend, opened on the
// Vulkan HAL backend.
package wgpu
