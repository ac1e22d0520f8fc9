package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shutterworks/printready/internal/watcher"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var (
		outDir     string
		ratiosPath string
		debounce   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch [directory]",
		Short: "Watch a directory and render new images automatically",
		Long: `Watches a directory for new images and renders the full ratio set for
each one as it arrives. Files are picked up once they stop changing, so
slow copies and network transfers are handled safely. Runs until
interrupted.`,
		Example: `  # Render everything dropped into ./inbox
  printready watch ./inbox --out ./prints`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]

			ratios, err := loadRatios(ratiosPath)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}

			// Rendering into the watched directory would feed outputs back
			// into the watcher.
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return err
			}
			absOut, err := filepath.Abs(outDir)
			if err != nil {
				return err
			}
			if absOut == absDir || strings.HasPrefix(absOut, absDir+string(os.PathSeparator)) {
				return fmt.Errorf("output directory %s must be outside the watched directory", outDir)
			}

			w, err := watcher.New(dir, debounce)
			if err != nil {
				return err
			}
			defer w.Close()

			slog.Info("Watching for images", "dir", dir, "out", outDir, "ratios", ratios.Names())

			for src := range w.Watch(cmd.Context()) {
				n, err := renderFile(src, outDir, ratios, false, nil)
				if err != nil {
					slog.Error("render failed", "image", src, "err", err)
					continue
				}
				slog.Info("Rendered", "image", src, "files", n)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "./printready", "Output directory")
	cmd.Flags().StringVar(&ratiosPath, "ratios", "", "YAML file with a custom ratio set")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "How long a file must be quiet before rendering")

	return cmd
}
