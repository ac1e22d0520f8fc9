// Package imagemeta reads and stamps embedded resolution metadata in image
// files. It handles the two formats that carry density in practice: the
// JFIF APP0 segment in JPEG files and the pHYs chunk in PNG files.
package imagemeta

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
)

// PrintDPI is the resolution stamped on full-resolution outputs and the
// threshold below which an upload gets a low-resolution warning.
const PrintDPI = 300

const (
	markerSOS  = 0xDA
	markerEOI  = 0xD9
	markerAPP0 = 0xE0

	unitsDPI  = 1
	unitsDPCM = 2
)

var (
	jfifID       = []byte("JFIF\x00")
	pngSignature = []byte("\x89PNG\r\n\x1a\n")
)

// StampDensity sets the JFIF APP0 pixel density of encoded JPEG data to dpi
// on both axes. The image/jpeg encoder emits no APP0 segment at all, so the
// usual path inserts a fresh 18-byte JFIF header directly after SOI; a
// stream that already opens with a JFIF header is patched in place. Both
// paths leave the density fields at the same fixed offsets. Data that does
// not look like a JPEG is returned unchanged.
func StampDensity(data []byte, dpi int) []byte {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 || data[2] != 0xFF {
		return data
	}
	if len(data) >= 18 && data[3] == markerAPP0 && bytes.Equal(data[6:11], jfifID) {
		data[13] = unitsDPI
		binary.BigEndian.PutUint16(data[14:16], uint16(dpi))
		binary.BigEndian.PutUint16(data[16:18], uint16(dpi))
		return data
	}

	// Marker, length 16, "JFIF\0", version 1.02, DPI units, X and Y
	// density, no thumbnail.
	seg := [18]byte{0xFF, markerAPP0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01, 0x02, unitsDPI}
	binary.BigEndian.PutUint16(seg[12:14], uint16(dpi))
	binary.BigEndian.PutUint16(seg[14:16], uint16(dpi))

	out := make([]byte, 0, len(data)+len(seg))
	out = append(out, data[:2]...)
	out = append(out, seg[:]...)
	out = append(out, data[2:]...)
	return out
}

// Density reports the embedded pixel density of the image file at path in
// dots per inch. ok is false when the file cannot be read or carries no
// usable density metadata.
func Density(path string) (xDPI, yDPI float64, ok bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, false
	}
	defer f.Close()

	var sig [8]byte
	if _, err := io.ReadFull(f, sig[:]); err != nil {
		return 0, 0, false
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, 0, false
	}

	switch {
	case sig[0] == 0xFF && sig[1] == 0xD8:
		return jpegDensity(f)
	case bytes.Equal(sig[:], pngSignature):
		return pngDensity(f)
	}
	return 0, 0, false
}

// PrintResolutionWarning returns a warning message when the file at path
// does not positively declare a density of at least PrintDPI on both axes,
// and "" when it does. Files without density metadata are treated as
// screen resolution and warned about.
func PrintResolutionWarning(path string) string {
	x, y, ok := Density(path)
	if ok && x >= PrintDPI && y >= PrintDPI {
		return ""
	}
	return "Low Resolution Detected: This file may not print clearly at large sizes."
}

// jpegDensity walks JPEG segments up to SOS looking for a JFIF APP0
// density declaration.
func jpegDensity(r io.Reader) (float64, float64, bool) {
	br := bufio.NewReader(r)

	var soi [2]byte
	if _, err := io.ReadFull(br, soi[:]); err != nil || soi[0] != 0xFF || soi[1] != 0xD8 {
		return 0, 0, false
	}

	for {
		marker, err := nextMarker(br)
		if err != nil || marker == markerSOS || marker == markerEOI {
			return 0, 0, false
		}

		var lenBuf [2]byte
		if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
			return 0, 0, false
		}
		segLen := int(binary.BigEndian.Uint16(lenBuf[:])) - 2
		if segLen < 0 {
			return 0, 0, false
		}

		if marker != markerAPP0 {
			if _, err := io.CopyN(io.Discard, br, int64(segLen)); err != nil {
				return 0, 0, false
			}
			continue
		}

		payload := make([]byte, segLen)
		if _, err := io.ReadFull(br, payload); err != nil {
			return 0, 0, false
		}
		if segLen < 12 || !bytes.Equal(payload[:5], jfifID) {
			continue
		}

		x := float64(binary.BigEndian.Uint16(payload[8:10]))
		y := float64(binary.BigEndian.Uint16(payload[10:12]))
		switch payload[7] {
		case unitsDPI:
			return x, y, true
		case unitsDPCM:
			return x * 2.54, y * 2.54, true
		}
		// Units 0 declares only a pixel aspect ratio, not a density.
		return 0, 0, false
	}
}

// nextMarker reads the next JPEG marker byte, tolerating fill bytes.
func nextMarker(br *bufio.Reader) (byte, error) {
	b, err := br.ReadByte()
	if err != nil {
		return 0, err
	}
	if b != 0xFF {
		return 0, errors.New("expected marker")
	}
	for {
		m, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if m != 0xFF {
			return m, nil
		}
	}
}

// pngDensity scans PNG chunks for a pHYs declaration in meters.
func pngDensity(r io.Reader) (float64, float64, bool) {
	br := bufio.NewReader(r)

	sig := make([]byte, 8)
	if _, err := io.ReadFull(br, sig); err != nil || !bytes.Equal(sig, pngSignature) {
		return 0, 0, false
	}

	for {
		var hdr [8]byte
		if _, err := io.ReadFull(br, hdr[:]); err != nil {
			return 0, 0, false
		}
		length := binary.BigEndian.Uint32(hdr[0:4])

		switch string(hdr[4:8]) {
		case "pHYs":
			if length != 9 {
				return 0, 0, false
			}
			var data [13]byte // 9 data bytes + 4 CRC bytes
			if _, err := io.ReadFull(br, data[:]); err != nil {
				return 0, 0, false
			}
			if data[8] != 1 { // unit must be meters
				return 0, 0, false
			}
			xppm := float64(binary.BigEndian.Uint32(data[0:4]))
			yppm := float64(binary.BigEndian.Uint32(data[4:8]))
			return xppm * 0.0254, yppm * 0.0254, true
		case "IDAT", "IEND":
			// pHYs must precede IDAT; nothing to find past here.
			return 0, 0, false
		default:
			if _, err := io.CopyN(io.Discard, br, int64(length)+4); err != nil {
				return 0, 0, false
			}
		}
	}
}
