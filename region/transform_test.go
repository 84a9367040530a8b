// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package region

import "testing"

func TestTransformMapUVCorners(t *testing.T) {
	// Surface top-left corner maps to the buffer corner it was rotated to.
	tests := []struct {
		tr        Transform
		wantS     float64
		wantT     float64
		swapsAxes bool
		inverseOf Transform
	}{
		{Normal, 0, 0, false, Normal},
		{Rotate90, 0, 1, true, Rotate270},
		{Rotate180, 1, 1, false, Rotate180},
		{Rotate270, 1, 0, true, Rotate90},
		{Flipped, 1, 0, false, Flipped},
		{Flipped90, 0, 0, true, Flipped90},
		{Flipped180, 0, 1, false, Flipped180},
		{Flipped270, 1, 1, true, Flipped270},
	}
	for _, tt := range tests {
		t.Run(tt.tr.String(), func(t *testing.T) {
			s, tv := tt.tr.MapUV(0, 0)
			if s != tt.wantS || tv != tt.wantT {
				t.Errorf("MapUV(0,0) = (%v,%v), want (%v,%v)", s, tv, tt.wantS, tt.wantT)
			}
			if got := tt.tr.SwapsAxes(); got != tt.swapsAxes {
				t.Errorf("SwapsAxes() = %v, want %v", got, tt.swapsAxes)
			}
			if got := tt.tr.Invert(); got != tt.inverseOf {
				t.Errorf("Invert() = %v, want %v", got, tt.inverseOf)
			}
		})
	}
}

func TestTransformInvertRoundTrip(t *testing.T) {
	points := [][2]float64{{0, 0}, {1, 0}, {0, 1}, {0.25, 0.75}}
	for tr := Normal; tr <= Flipped270; tr++ {
		inv := tr.Invert()
		for _, p := range points {
			s, tv := tr.MapUV(p[0], p[1])
			u, v := inv.MapUV(s, tv)
			if u != p[0] || v != p[1] {
				t.Errorf("%v: round trip of %v = (%v,%v)", tr, p, u, v)
			}
		}
	}
}

func TestTransformSize(t *testing.T) {
	w, h := Rotate90.Size(800, 600)
	if w != 600 || h != 800 {
		t.Errorf("Rotate90.Size = %dx%d, want 600x800", w, h)
	}
	if Transform(9).Valid() {
		t.Error("Transform(9) reported valid")
	}
}
