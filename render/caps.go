// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import "strings"

// Caps selects a pipeline variant.
type Caps uint8

const (
	// CapAlpha samples the source alpha channel. Without it the source is
	// treated as opaque.
	CapAlpha Caps = 1 << iota
	// CapAlphaMultiplier scales the output by the opacity multiplier
	// stored in the parameter block.
	CapAlphaMultiplier
	// CapFill draws a solid colour instead of sampling a texture.
	CapFill
)

// AllCaps lists every valid variant.
var AllCaps = []Caps{
	0,
	CapAlpha,
	CapAlphaMultiplier,
	CapAlpha | CapAlphaMultiplier,
	CapFill,
}

func (c Caps) String() string {
	if c == 0 {
		return "base"
	}
	var parts []string
	if c&CapAlpha != 0 {
		parts = append(parts, "alpha")
	}
	if c&CapAlphaMultiplier != 0 {
		parts = append(parts, "alpha-multiplier")
	}
	if c&CapFill != 0 {
		parts = append(parts, "fill")
	}
	return strings.Join(parts, "|")
}

// PipelineCache compiles pipeline variants on first use and keeps them
// for the lifetime of a context. It is not safe for concurrent use.
type PipelineCache[P any] struct {
	compile   func(Caps) (P, error)
	pipelines map[Caps]P
}

// NewPipelineCache creates a cache that calls compile for each variant
// the first time it is requested.
func NewPipelineCache[P any](compile func(Caps) (P, error)) *PipelineCache[P] {
	return &PipelineCache[P]{
		compile:   compile,
		pipelines: make(map[Caps]P),
	}
}

// Get returns the pipeline for caps, compiling it if needed. Failed
// compilations are not cached.
func (c *PipelineCache[P]) Get(caps Caps) (P, error) {
	if p, ok := c.pipelines[caps]; ok {
		return p, nil
	}
	p, err := c.compile(caps)
	if err != nil {
		var zero P
		return zero, err
	}
	c.pipelines[caps] = p
	return p, nil
}

// Len returns the number of compiled variants.
func (c *PipelineCache[P]) Len() int {
	return len(c.pipelines)
}

// Each calls fn for every compiled variant.
func (c *PipelineCache[P]) Each(fn func(Caps, P)) {
	for caps, p := range c.pipelines {
		fn(caps, p)
	}
}

// Reset drops every compiled variant. Callers destroy them first with Each.
func (c *PipelineCache[P]) Reset() {
	clear(c.pipelines)
}
