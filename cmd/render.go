package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/shutterworks/printready/internal/artifact"
	"github.com/shutterworks/printready/internal/imagemeta"
	"github.com/shutterworks/printready/internal/processor"
	"github.com/shutterworks/printready/internal/ratio"
	"github.com/spf13/cobra"
)

func newRenderCmd() *cobra.Command {
	var (
		outDir     string
		ratiosPath string
		previews   bool
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "render [image]...",
		Short: "Render print-ready crops for one or more images",
		Long: `Renders every target ratio for each input image into the output
directory. Output files are named after the source image and ratio, for
example photo_2x3.jpg. Low-resolution sources are reported but still
rendered.`,
		Example: `  # Render the default ratio set
  printready render photo.jpg

  # Custom output directory, with previews alongside
  printready render --out ./prints --previews vacation1.jpg vacation2.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ratios, err := loadRatios(ratiosPath)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}

			var bar *progressbar.ProgressBar
			if !quiet {
				bar = progressbar.NewOptions(len(args)*len(ratios),
					progressbar.OptionSetDescription("rendering"),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
			}

			rendered := 0
			for _, src := range args {
				n, err := renderFile(src, outDir, ratios, previews, bar)
				if err != nil {
					slog.Error("render failed", "image", src, "err", err)
					continue
				}
				rendered += n
			}
			if rendered == 0 {
				return errors.New("no output produced")
			}
			if !quiet {
				fmt.Printf("rendered %d file(s) into %s\n", rendered, outDir)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "./printready", "Output directory")
	cmd.Flags().StringVar(&ratiosPath, "ratios", "", "YAML file with a custom ratio set")
	cmd.Flags().BoolVar(&previews, "previews", false, "Also write 300px previews")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output")

	return cmd
}

// renderFile renders all ratios for one source image and reports how many
// files it wrote. Ratios fail independently; an error is returned only
// when nothing could be written at all.
func renderFile(src, outDir string, ratios ratio.Set, previews bool, bar *progressbar.ProgressBar) (int, error) {
	if !processor.SupportedExtension(src) {
		return 0, fmt.Errorf("unsupported file type: %s", filepath.Base(src))
	}
	if warning := imagemeta.PrintResolutionWarning(src); warning != "" {
		slog.Warn(warning, "image", src)
	}

	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	proc := processor.New(src, base, outDir, ratios)

	wrote := 0
	var firstErr error
	for _, spec := range ratios {
		outName := artifact.ArchiveEntryName(filepath.Base(src), spec.Name)
		err := proc.RenderAt(spec, processor.Adjustment{}, filepath.Join(outDir, outName))
		if bar != nil {
			bar.Add(1)
		}
		if err != nil {
			slog.Error("ratio failed", "image", src, "ratio", spec.Name, "err", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		wrote++

		if previews {
			previewName := strings.TrimSuffix(outName, ".jpg") + "_preview.jpg"
			if err := proc.PreviewAt(spec, processor.Adjustment{}, filepath.Join(outDir, previewName)); err != nil {
				slog.Warn("preview failed", "image", src, "ratio", spec.Name, "err", err)
			} else {
				wrote++
			}
		}
	}

	if wrote == 0 && firstErr != nil {
		return 0, firstErr
	}
	return wrote, nil
}
