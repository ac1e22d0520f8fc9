package imagemeta

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func encodeJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// pngWithDensity splices a pHYs chunk directly after IHDR. The encoder in
// image/png never writes one itself.
func pngWithDensity(t *testing.T, ppm uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()

	body := make([]byte, 13)
	copy(body[0:4], "pHYs")
	binary.BigEndian.PutUint32(body[4:8], ppm)
	binary.BigEndian.PutUint32(body[8:12], ppm)
	body[12] = 1 // unit: meters

	chunk := make([]byte, 0, 21)
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], 9)
	chunk = append(chunk, length[:]...)
	chunk = append(chunk, body...)
	var crc [4]byte
	binary.BigEndian.PutUint32(crc[:], crc32.ChecksumIEEE(body))
	chunk = append(chunk, crc[:]...)

	// Signature is 8 bytes, IHDR is 25, so the splice point is 33.
	out := make([]byte, 0, len(data)+len(chunk))
	out = append(out, data[:33]...)
	out = append(out, chunk...)
	out = append(out, data[33:]...)
	return out
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStampDensityRoundtrip(t *testing.T) {
	plain := encodeJPEG(t)
	if plain[3] == 0xE0 {
		t.Fatal("Expected encoder output without an APP0 segment")
	}

	data := StampDensity(plain, 300)
	if len(data) != len(plain)+18 {
		t.Fatalf("Expected an 18 byte insert, got %d bytes over %d", len(data), len(plain))
	}
	if data[2] != 0xFF || data[3] != 0xE0 {
		t.Fatal("Expected a JFIF APP0 segment directly after SOI")
	}
	if !bytes.Equal(data[20:], plain[2:]) {
		t.Error("Expected the original stream to follow the inserted segment")
	}
	if data[13] != 1 {
		t.Errorf("Expected DPI units byte, got %d", data[13])
	}
	if got := binary.BigEndian.Uint16(data[14:16]); got != 300 {
		t.Errorf("Expected X density 300, got %d", got)
	}
	if got := binary.BigEndian.Uint16(data[16:18]); got != 300 {
		t.Errorf("Expected Y density 300, got %d", got)
	}

	if _, err := jpeg.DecodeConfig(bytes.NewReader(data)); err != nil {
		t.Fatalf("Stamped data no longer decodes: %v", err)
	}

	path := writeTemp(t, "stamped.jpg", data)
	x, y, ok := Density(path)
	if !ok {
		t.Fatal("Expected density to be readable after stamping")
	}
	if x != 300 || y != 300 {
		t.Errorf("Expected 300x300 DPI, got %.1fx%.1f", x, y)
	}
}

func TestStampDensity_PatchesExistingHeader(t *testing.T) {
	data := StampDensity(encodeJPEG(t), 300)

	again := StampDensity(data, 240)
	if len(again) != len(data) {
		t.Fatalf("Expected an in-place patch, grew from %d to %d bytes", len(data), len(again))
	}
	if got := binary.BigEndian.Uint16(again[14:16]); got != 240 {
		t.Errorf("Expected X density 240, got %d", got)
	}
	if got := binary.BigEndian.Uint16(again[16:18]); got != 240 {
		t.Errorf("Expected Y density 240, got %d", got)
	}
}

func TestStampDensity_InsertsAheadOfOtherSegments(t *testing.T) {
	// EXIF-style streams open with APP1 instead of a JFIF header.
	app1 := append([]byte{0xFF, 0xD8, 0xFF, 0xE1, 0x00, 0x08}, []byte("Exif\x00\x00")...)
	got := StampDensity(append([]byte(nil), app1...), 300)

	if len(got) != len(app1)+18 {
		t.Fatalf("Expected an 18 byte insert, got %d bytes over %d", len(got), len(app1))
	}
	if got[3] != 0xE0 || !bytes.Equal(got[6:11], []byte("JFIF\x00")) {
		t.Error("Expected the JFIF segment directly after SOI")
	}
	if got[20] != 0xFF || got[21] != 0xE1 {
		t.Error("Expected the APP1 segment to follow the stamp")
	}
}

func TestStampDensity_LeavesForeignDataAlone(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"too short", []byte{0xFF, 0xD8}},
		{"not a JPEG", []byte("\x89PNG\r\n\x1a\n0123456789")},
		{"no marker after SOI", []byte{0xFF, 0xD8, 0x00, 0x11, 0x22, 0x33}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := append([]byte(nil), tt.data...)
			got := StampDensity(tt.data, 300)
			if !bytes.Equal(got, before) {
				t.Error("Expected data to pass through unchanged")
			}
		})
	}
}

func TestDensity_UnstampedJPEG(t *testing.T) {
	// The encoder writes no APP0 segment, so there is no density to read.
	path := writeTemp(t, "plain.jpg", encodeJPEG(t))
	if _, _, ok := Density(path); ok {
		t.Error("Expected no usable density from an unstamped JPEG")
	}
}

func TestDensity_DotsPerCentimeter(t *testing.T) {
	data := StampDensity(encodeJPEG(t), 0)
	data[13] = 2 // dots per centimeter
	binary.BigEndian.PutUint16(data[14:16], 118)
	binary.BigEndian.PutUint16(data[16:18], 118)

	path := writeTemp(t, "dpcm.jpg", data)
	x, _, ok := Density(path)
	if !ok {
		t.Fatal("Expected density to be readable")
	}
	if want := 118 * 2.54; math.Abs(x-want) > 0.001 {
		t.Errorf("Expected %.2f DPI, got %.2f", want, x)
	}
}

func TestDensity_PNG(t *testing.T) {
	// 11811 pixels per meter is the conventional encoding of 300 DPI.
	path := writeTemp(t, "dense.png", pngWithDensity(t, 11811))
	x, y, ok := Density(path)
	if !ok {
		t.Fatal("Expected pHYs density to be readable")
	}
	if math.Abs(x-300) > 0.01 || math.Abs(y-300) > 0.01 {
		t.Errorf("Expected ~300x300 DPI, got %.4fx%.4f", x, y)
	}
}

func TestDensity_PNGWithoutPhys(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	path := writeTemp(t, "plain.png", buf.Bytes())
	if _, _, ok := Density(path); ok {
		t.Error("Expected no density from a PNG without pHYs")
	}
}

func TestDensity_Unreadable(t *testing.T) {
	if _, _, ok := Density(filepath.Join(t.TempDir(), "missing.jpg")); ok {
		t.Error("Expected no density for a missing file")
	}
	path := writeTemp(t, "tiny.jpg", []byte{0xFF, 0xD8, 0xFF})
	if _, _, ok := Density(path); ok {
		t.Error("Expected no density for a truncated file")
	}
}

func TestPrintResolutionWarning(t *testing.T) {
	stamped := writeTemp(t, "print.jpg", StampDensity(encodeJPEG(t), 300))
	if warning := PrintResolutionWarning(stamped); warning != "" {
		t.Errorf("Expected no warning for a 300 DPI file, got %q", warning)
	}

	low := writeTemp(t, "screen.jpg", StampDensity(encodeJPEG(t), 72))
	warning := PrintResolutionWarning(low)
	if !strings.Contains(warning, "Low Resolution") {
		t.Errorf("Expected a low resolution warning, got %q", warning)
	}

	unknown := writeTemp(t, "unknown.jpg", encodeJPEG(t))
	if warning := PrintResolutionWarning(unknown); warning == "" {
		t.Error("Expected a warning when density metadata is absent")
	}
}
