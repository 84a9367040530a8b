// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package shader

import (
	"strings"
	"testing"

	"github.com/gogpu/compositor/render"
)

const paramsDecl = `struct Params {
    dst: vec4<f32>,
    uv01: vec4<f32>,
    uv23: vec4<f32>,
    alpha: f32,
}`

func TestVariantsShareParamBlock(t *testing.T) {
	for _, caps := range render.AllCaps {
		src, err := Source(caps)
		if err != nil {
			t.Fatalf("%v: %v", caps, err)
		}
		if !strings.Contains(src, paramsDecl) {
			t.Errorf("%v: parameter block declaration differs", caps)
		}
		for _, want := range []string{"@vertex", "@fragment", VertexEntry, FragmentEntry} {
			if !strings.Contains(src, want) {
				t.Errorf("%v: missing %q", caps, want)
			}
		}
	}
}

func TestVariantBodies(t *testing.T) {
	tests := []struct {
		caps   render.Caps
		has    []string
		hasNot []string
	}{
		{0, []string{"textureSample", "vec4<f32>(c.rgb, 1.0)"}, []string{"params.alpha;"}},
		{render.CapAlpha, []string{"textureSample"}, []string{"c.rgb, 1.0", "params.alpha;"}},
		{render.CapAlphaMultiplier, []string{"c.rgb, 1.0", "c * params.alpha"}, nil},
		{render.CapAlpha | render.CapAlphaMultiplier, []string{"c * params.alpha"}, []string{"c.rgb, 1.0"}},
		{render.CapFill, []string{"return params.uv01;"}, []string{"textureSample", "src_tex"}},
	}
	for _, tt := range tests {
		t.Run(tt.caps.String(), func(t *testing.T) {
			src, err := Source(tt.caps)
			if err != nil {
				t.Fatal(err)
			}
			for _, s := range tt.has {
				if !strings.Contains(src, s) {
					t.Errorf("missing %q", s)
				}
			}
			for _, s := range tt.hasNot {
				if strings.Contains(src, s) {
					t.Errorf("unexpected %q", s)
				}
			}
		})
	}
}

func TestInvalidVariant(t *testing.T) {
	if _, err := Source(render.CapFill | render.CapAlpha); err == nil {
		t.Error("fill combined with alpha accepted")
	}
}

func TestCompile(t *testing.T) {
	for _, caps := range render.AllCaps {
		t.Run(caps.String(), func(t *testing.T) {
			code, err := Compile(caps)
			if err != nil {
				msg := err.Error()
				if strings.Contains(msg, "not yet implemented") || strings.Contains(msg, "not supported") {
					t.Skipf("naga feature not yet implemented: %v", err)
				}
				t.Fatalf("Compile: %v", err)
			}
			if len(code) == 0 || code[0] != 0x07230203 {
				t.Errorf("bad SPIR-V header")
			}
		})
	}
}
