// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package shader generates and compiles the WGSL programs of the GPU
// renderer. Every pipeline variant is instantiated from one template, so
// all variants share the parameter block declaration.
package shader

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/gogpu/naga"

	"github.com/gogpu/compositor/render"
)

// Bind group 0 layout shared by every variant.
const (
	ParamsBinding  = 0
	TextureBinding = 1
	SamplerBinding = 2
)

// Entry points.
const (
	VertexEntry   = "vs_main"
	FragmentEntry = "fs_main"
)

//go:embed shaders/surface.wgsl
var surfaceTemplate string

var tmpl = template.Must(template.New("surface").Parse(surfaceTemplate))

type variant struct {
	Fill       bool
	Alpha      bool
	Multiplier bool
}

// Source returns the WGSL source of the variant selected by caps.
func Source(caps render.Caps) (string, error) {
	if caps&render.CapFill != 0 && caps != render.CapFill {
		return "", fmt.Errorf("shader: invalid variant %v", caps)
	}
	var sb strings.Builder
	err := tmpl.Execute(&sb, variant{
		Fill:       caps&render.CapFill != 0,
		Alpha:      caps&render.CapAlpha != 0,
		Multiplier: caps&render.CapAlphaMultiplier != 0,
	})
	if err != nil {
		return "", fmt.Errorf("shader: %w", err)
	}
	return sb.String(), nil
}

// CompileSPIRV compiles WGSL source to SPIR-V words.
func CompileSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("shader: compile: %w", err)
	}
	// SPIR-V is a stream of little-endian 32-bit words.
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return code, nil
}

// Compile returns the SPIR-V of the variant selected by caps.
func Compile(caps render.Caps) ([]uint32, error) {
	src, err := Source(caps)
	if err != nil {
		return nil, err
	}
	return CompileSPIRV(src)
}

// UsesTexture reports whether the variant samples a texture.
func UsesTexture(caps render.Caps) bool {
	return caps&render.CapFill == 0
}
