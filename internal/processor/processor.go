// Package processor renders print-ready crops of an uploaded image. Each
// render decodes the source fresh, crops it to a target aspect ratio and
// resizes the crop to exact print dimensions, so batch runs hold at most
// one source bitmap in memory at a time.
package processor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/shutterworks/printready/internal/artifact"
	"github.com/shutterworks/printready/internal/cropper"
	"github.com/shutterworks/printready/internal/imagemeta"
	"github.com/shutterworks/printready/internal/ratio"
)

const (
	previewMaxSide = 300
	previewQuality = 85
	outputQuality  = 90
)

var (
	// ErrUnsupportedFormat means the source exists but cannot be decoded.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrAllRatiosFailed means a batch render produced no output at all.
	ErrAllRatiosFailed = errors.New("no ratios could be rendered")
)

// Adjustment shifts a crop window away from center, expressed as a
// percentage of the crop dimensions on each axis.
type Adjustment struct {
	XOffset float64 `json:"x_offset"`
	YOffset float64 `json:"y_offset"`
}

// PreviewInfo describes one ratio's preview for the client. Exactly one of
// URL or Error is set.
type PreviewInfo struct {
	URL         string `json:"url,omitempty"`
	Dimensions  string `json:"dimensions"`
	PreviewSize string `json:"preview_size,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Output is one rendered full-resolution file.
type Output struct {
	Ratio string
	Path  string
}

// BatchError reports the ratios that failed during a partially successful
// batch render.
type BatchError struct {
	Failed map[string]error
}

func (e *BatchError) Error() string {
	return "failed ratios: " + strings.Join(failedNames(e.Failed), ", ")
}

func failedNames(failed map[string]error) []string {
	names := make([]string, 0, len(failed))
	for name := range failed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Processor renders one uploaded source into session-scoped artifacts.
type Processor struct {
	sourcePath string
	sessionID  string
	outputDir  string
	ratios     ratio.Set
}

// New builds a Processor for one uploaded source. Renders write into
// outputDir under names derived from the session ID.
func New(sourcePath, sessionID, outputDir string, ratios ratio.Set) *Processor {
	return &Processor{
		sourcePath: sourcePath,
		sessionID:  sessionID,
		outputDir:  outputDir,
		ratios:     ratios,
	}
}

// CreatePreviews renders a centered preview for every ratio in the set.
// Ratios fail independently; a failed ratio carries its error message so
// the client can still show the rest.
func (p *Processor) CreatePreviews() map[string]PreviewInfo {
	previews := make(map[string]PreviewInfo, len(p.ratios))
	for _, spec := range p.ratios {
		info := PreviewInfo{Dimensions: spec.Dimensions()}
		name := artifact.PreviewName(p.sessionID, spec.Name)
		if err := p.PreviewAt(spec, Adjustment{}, filepath.Join(p.outputDir, name)); err != nil {
			slog.Error("preview render failed", "ratio", spec.Name, "err", err)
			info.Error = err.Error()
		} else {
			info.URL = "/preview/" + name
			info.PreviewSize = fmt.Sprintf("%dx%d px", previewMaxSide, previewMaxSide)
		}
		previews[spec.Name] = info
	}
	return previews
}

// AdjustCrop re-renders one ratio with the given offsets, refreshing both
// the full-resolution output and its preview from the same render. It
// returns the preview filename for the client to reload.
func (p *Processor) AdjustCrop(ratioName string, xOffset, yOffset float64) (string, error) {
	spec, err := p.ratios.Lookup(ratioName)
	if err != nil {
		return "", err
	}

	img, err := p.renderRatio(spec, Adjustment{XOffset: xOffset, YOffset: yOffset})
	if err != nil {
		return "", err
	}

	outPath := filepath.Join(p.outputDir, artifact.OutputName(p.sessionID, spec.Name))
	if err := writeJPEG(img, outPath, outputQuality, true); err != nil {
		return "", err
	}

	previewName := artifact.PreviewName(p.sessionID, spec.Name)
	thumb := imaging.Fit(img, previewMaxSide, previewMaxSide, imaging.Lanczos)
	if err := writeJPEG(thumb, filepath.Join(p.outputDir, previewName), previewQuality, false); err != nil {
		return "", err
	}
	return previewName, nil
}

// ProcessAll renders the full-resolution output for every ratio, applying
// per-ratio adjustments where given and centering otherwise. Ratios fail
// independently: partial failure returns the successful outputs alongside
// a *BatchError, total failure returns ErrAllRatiosFailed.
func (p *Processor) ProcessAll(adjustments map[string]Adjustment) ([]Output, error) {
	outputs := make([]Output, 0, len(p.ratios))
	failed := make(map[string]error)

	for _, spec := range p.ratios {
		outPath := filepath.Join(p.outputDir, artifact.OutputName(p.sessionID, spec.Name))
		if err := p.RenderAt(spec, adjustments[spec.Name], outPath); err != nil {
			slog.Error("ratio render failed", "ratio", spec.Name, "err", err)
			failed[spec.Name] = err
			continue
		}
		outputs = append(outputs, Output{Ratio: spec.Name, Path: outPath})
	}

	if len(failed) == 0 {
		return outputs, nil
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrAllRatiosFailed, strings.Join(failedNames(failed), ", "))
	}
	return outputs, &BatchError{Failed: failed}
}

// RenderAt renders one ratio's full-resolution output to outPath. It is
// the primitive behind ProcessAll, exposed for callers that manage their
// own output naming.
func (p *Processor) RenderAt(spec ratio.Spec, adj Adjustment, outPath string) error {
	img, err := p.renderRatio(spec, adj)
	if err != nil {
		return err
	}
	return writeJPEG(img, outPath, outputQuality, true)
}

// PreviewAt renders one ratio's preview thumbnail to outPath.
func (p *Processor) PreviewAt(spec ratio.Spec, adj Adjustment, outPath string) error {
	img, err := p.renderRatio(spec, adj)
	if err != nil {
		return err
	}
	thumb := imaging.Fit(img, previewMaxSide, previewMaxSide, imaging.Lanczos)
	return writeJPEG(thumb, outPath, previewQuality, false)
}

// SupportedExtension reports whether name carries an extension the
// processor accepts.
func SupportedExtension(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".tiff", ".tif":
		return true
	}
	return false
}

// renderRatio decodes the source and produces the exact target-size image
// for one ratio.
func (p *Processor) renderRatio(spec ratio.Spec, adj Adjustment) (image.Image, error) {
	src, err := p.loadBounded()
	if err != nil {
		return nil, err
	}

	b := src.Bounds()
	rect, err := cropper.ComputeCrop(b.Dx(), b.Dy(), spec.Width, spec.Height, adj.XOffset, adj.YOffset)
	if err != nil {
		return nil, fmt.Errorf("crop %s: %w", spec.Name, err)
	}

	cropped := imaging.Crop(src, image.Rect(rect.Left, rect.Top, rect.Right(), rect.Bottom()))
	return imaging.Resize(cropped, spec.Width, spec.Height, imaging.Lanczos), nil
}

// loadBounded decodes the source image, normalizing CMYK scans to RGB and
// downscaling oversized sources before any cropping happens.
func (p *Processor) loadBounded() (image.Image, error) {
	img, err := imaging.Open(p.sourcePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	// The JPEG encoder cannot write four-component images, so CMYK scans
	// become RGB here rather than failing at encode time.
	if _, ok := img.(*image.CMYK); ok {
		slog.Warn("converting CMYK source to RGB", "source", filepath.Base(p.sourcePath))
		img = imaging.Clone(img)
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	bw, bh := cropper.BoundedSize(w, h)
	if bw != w || bh != h {
		if w > cropper.MaxSafeDimension || h > cropper.MaxSafeDimension {
			slog.Warn("source exceeds safe dimensions, downscaling", "width", w, "height", h)
		} else {
			slog.Info("downscaling large source for performance", "width", w, "height", h)
		}
		img = imaging.Resize(img, bw, bh, imaging.Lanczos)
	}
	return img, nil
}

// writeJPEG encodes img to path, optionally stamping the print density
// into the JFIF header. The bytes land under a temporary name first so
// readers never observe a partial file.
func writeJPEG(img image.Image, path string, quality int, stampDensity bool) error {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	data := buf.Bytes()
	if stampDensity {
		data = imagemeta.StampDensity(data, imagemeta.PrintDPI)
	}

	tmp := path + ".partial"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
