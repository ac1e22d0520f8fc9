package cmd

import (
	"github.com/joho/godotenv"
	"github.com/shutterworks/printready/internal/ratio"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "printready",
		Short: "Photo print preparation tool with aspect-ratio cropping",
		Long: `Printready prepares photos for printing at standard aspect ratios.

It crops an image to each target ratio around an adjustable window, resizes
the crop to exact print dimensions and stamps the result at 300 DPI. Run it
as a web service for interactive adjustment or as a batch tool on the
command line.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newRenderCmd())
	cmd.AddCommand(newWatchCmd())

	return cmd
}

// loadRatios resolves the ratio set shared by every subcommand.
func loadRatios(path string) (ratio.Set, error) {
	if path == "" {
		return ratio.DefaultSet(), nil
	}
	return ratio.LoadFile(path)
}
