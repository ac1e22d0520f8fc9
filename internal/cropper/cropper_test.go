package cropper

import (
	"errors"
	"math"
	"testing"
)

func TestComputeCrop(t *testing.T) {
	tests := []struct {
		name     string
		sourceW  int
		sourceH  int
		targetW  int
		targetH  int
		xOffset  float64
		yOffset  float64
		expected Rect
	}{
		{
			name:    "wide source centered for 2x3",
			sourceW: 4000, sourceH: 3000,
			targetW: 3600, targetH: 5400,
			expected: Rect{Left: 1000, Top: 0, Width: 2000, Height: 3000},
		},
		{
			name:    "x offset lands exactly on the clamp boundary",
			sourceW: 4000, sourceH: 3000,
			targetW: 3600, targetH: 5400,
			xOffset:  50,
			expected: Rect{Left: 2000, Top: 0, Width: 2000, Height: 3000},
		},
		{
			name:    "x offset beyond the boundary saturates",
			sourceW: 4000, sourceH: 3000,
			targetW: 3600, targetH: 5400,
			xOffset:  100,
			expected: Rect{Left: 2000, Top: 0, Width: 2000, Height: 3000},
		},
		{
			name:    "negative x offset saturates at zero",
			sourceW: 4000, sourceH: 3000,
			targetW: 3600, targetH: 5400,
			xOffset:  -100,
			expected: Rect{Left: 0, Top: 0, Width: 2000, Height: 3000},
		},
		{
			name:    "tall source crops height for 4x5",
			sourceW: 3000, sourceH: 6000,
			targetW: 3600, targetH: 4500,
			expected: Rect{Left: 0, Top: 1125, Width: 3000, Height: 3750},
		},
		{
			name:    "matching aspect uses the whole source",
			sourceW: 1200, sourceH: 1800,
			targetW: 3600, targetH: 5400,
			expected: Rect{Left: 0, Top: 0, Width: 1200, Height: 1800},
		},
		{
			name:    "y offset moves the window down",
			sourceW: 1200, sourceH: 2400,
			targetW: 3600, targetH: 5400,
			yOffset:  10,
			expected: Rect{Left: 0, Top: 480, Width: 1200, Height: 1800},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeCrop(tt.sourceW, tt.sourceH, tt.targetW, tt.targetH, tt.xOffset, tt.yOffset)
			if err != nil {
				t.Fatalf("ComputeCrop returned error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
			if got.Right() > tt.sourceW || got.Bottom() > tt.sourceH {
				t.Errorf("Rectangle %v escapes %dx%d source", got, tt.sourceW, tt.sourceH)
			}
		})
	}
}

func TestComputeCrop_InvalidGeometry(t *testing.T) {
	tests := []struct {
		name    string
		sourceW int
		sourceH int
		targetW int
		targetH int
	}{
		{"zero source width", 0, 100, 100, 100},
		{"zero source height", 100, 0, 100, 100},
		{"negative source width", -5, 100, 100, 100},
		{"zero target width", 100, 100, 0, 100},
		{"zero target height", 100, 100, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeCrop(tt.sourceW, tt.sourceH, tt.targetW, tt.targetH, 0, 0)
			if !errors.Is(err, ErrInvalidGeometry) {
				t.Errorf("Expected ErrInvalidGeometry, got %v", err)
			}
		})
	}
}

func TestComputeCrop_AspectMatchesTarget(t *testing.T) {
	sources := []struct{ w, h int }{
		{4000, 3000},
		{3000, 4000},
		{5123, 2999},
		{640, 480},
		{481, 640},
		{100, 10000},
	}
	targets := []struct{ w, h int }{
		{3600, 5400},
		{2700, 3600},
		{3600, 4500},
		{3508, 4967},
		{1650, 2100},
	}

	for _, src := range sources {
		for _, tgt := range targets {
			rect, err := ComputeCrop(src.w, src.h, tgt.w, tgt.h, 0, 0)
			if err != nil {
				t.Fatalf("ComputeCrop(%dx%d -> %dx%d): %v", src.w, src.h, tgt.w, tgt.h, err)
			}
			if rect.Left < 0 || rect.Top < 0 || rect.Right() > src.w || rect.Bottom() > src.h {
				t.Errorf("Rectangle %v escapes %dx%d source", rect, src.w, src.h)
			}
			gotRatio := float64(rect.Width) / float64(rect.Height)
			wantRatio := float64(tgt.w) / float64(tgt.h)
			if math.Abs(gotRatio-wantRatio) > 0.01 {
				t.Errorf("Aspect %.4f for %dx%d -> %dx%d, want %.4f",
					gotRatio, src.w, src.h, tgt.w, tgt.h, wantRatio)
			}
		}
	}
}

func TestComputeCrop_OffsetMonotonic(t *testing.T) {
	prev := -1
	for pct := 0.0; pct <= 100; pct += 5 {
		rect, err := ComputeCrop(4000, 3000, 3600, 5400, pct, 0)
		if err != nil {
			t.Fatalf("offset %v: %v", pct, err)
		}
		if rect.Left < prev {
			t.Fatalf("Left edge moved backwards at offset %v: %d < %d", pct, rect.Left, prev)
		}
		if maxLeft := 4000 - rect.Width; rect.Left > maxLeft {
			t.Fatalf("Left edge beyond clamp at offset %v: %d > %d", pct, rect.Left, maxLeft)
		}
		prev = rect.Left
	}
}

func TestComputeCrop_FullAxisOffsetIsNoop(t *testing.T) {
	// Source already matches the target aspect, so the crop spans the
	// full source and any offset must saturate back to the same window.
	centered, err := ComputeCrop(1200, 1800, 3600, 5400, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	shifted, err := ComputeCrop(1200, 1800, 3600, 5400, 100, -100)
	if err != nil {
		t.Fatal(err)
	}
	if shifted != centered {
		t.Errorf("Expected %v, got %v", centered, shifted)
	}
}

func TestComputeCrop_Deterministic(t *testing.T) {
	first, err := ComputeCrop(4321, 2987, 3508, 4967, 17.5, -42.25)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := ComputeCrop(4321, 2987, 3508, 4967, 17.5, -42.25)
		if err != nil {
			t.Fatal(err)
		}
		if again != first {
			t.Fatalf("Run %d produced %v, want %v", i, again, first)
		}
	}
}

func TestBoundedSize(t *testing.T) {
	tests := []struct {
		name  string
		w, h  int
		wantW int
		wantH int
	}{
		{"within bounds untouched", 4000, 3000, 4000, 3000},
		{"at performance bound untouched", 6000, 4000, 6000, 4000},
		{"above performance bound", 7000, 3500, 6000, 3000},
		{"above safety bound wide", 9000, 4500, 8000, 4000},
		{"above safety bound tall", 3000, 12000, 2000, 8000},
		{"huge square", 20000, 20000, 8000, 8000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotW, gotH := BoundedSize(tt.w, tt.h)
			if gotW != tt.wantW || gotH != tt.wantH {
				t.Errorf("Expected %dx%d, got %dx%d", tt.wantW, tt.wantH, gotW, gotH)
			}
		})
	}
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		name  string
		w, h  int
		bound int
		wantW int
		wantH int
	}{
		{"landscape", 8000, 4000, 6000, 6000, 3000},
		{"portrait", 4000, 8000, 6000, 3000, 6000},
		{"square", 9000, 9000, 8000, 8000, 8000},
		{"fractional dimension truncates", 7000, 3333, 6000, 6000, 2856},
		{"degenerate strip keeps at least one pixel", 10000, 1, 6000, 6000, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotW, gotH := FitWithin(tt.w, tt.h, tt.bound)
			if gotW != tt.wantW || gotH != tt.wantH {
				t.Errorf("Expected %dx%d, got %dx%d", tt.wantW, tt.wantH, gotW, gotH)
			}
		})
	}
}
