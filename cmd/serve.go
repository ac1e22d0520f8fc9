package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/shutterworks/printready/internal/config"
	"github.com/shutterworks/printready/internal/handlers"
	"github.com/shutterworks/printready/internal/storage"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

const janitorInterval = 10 * time.Minute

func newServeCmd() *cobra.Command {
	var (
		port       string
		logFile    string
		ratiosPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the print preparation web service",
		Long: `Starts the printready web service on the specified port.

The service accepts photo uploads, renders a preview for every target
ratio, applies crop adjustments and packages the full-resolution results
into a ZIP archive. Expired session files are swept in the background.`,
		Example: `  # Start server on default port 8080
  printready serve

  # Custom port with rotating JSON logs
  printready serve --port 3000 --log-file /var/log/printready.log`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if logFile != "" {
				configureFileLogging(logFile)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ratios, err := loadRatios(ratiosPath)
			if err != nil {
				return err
			}

			store, err := storage.New(cfg.UploadDir, cfg.ProcessedDir)
			if err != nil {
				return err
			}

			// PORT is the conventional deployment override; an explicit
			// flag still wins.
			if env := os.Getenv("PORT"); env != "" && !cmd.Flags().Changed("port") {
				port = env
			}

			janitor := storage.NewJanitor(store, cfg.Retention, janitorInterval)
			go janitor.Start(cmd.Context())

			handler := handlers.New(cfg, store, ratios)

			// Set up routes
			mux := http.NewServeMux()
			mux.HandleFunc("/upload", handler.HandleUpload)
			mux.HandleFunc("/adjust", handler.HandleAdjust)
			mux.HandleFunc("/preview/", handler.HandlePreview)
			mux.HandleFunc("/download", handler.HandleDownload)
			mux.HandleFunc("/health", handler.HandleHealth)
			mux.HandleFunc("/debug", handler.HandleDebug)
			mux.HandleFunc("/cleanup", handler.HandleCleanup)
			mux.HandleFunc("/", handler.HandleStatic)

			slog.Info("Print preparation service starting",
				"upload_dir", cfg.UploadDir,
				"processed_dir", cfg.ProcessedDir,
				"max_upload_mb", cfg.MaxUploadMB(),
				"retention", cfg.Retention,
				"ratios", ratios.Names())

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Printready interface available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8080", "Port to listen on")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Write JSON logs to this rotating file instead of stderr")
	cmd.Flags().StringVar(&ratiosPath, "ratios", "", "YAML file with a custom ratio set")

	return cmd
}

// configureFileLogging routes slog through a size-rotated file.
func configureFileLogging(path string) {
	out := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 2,
		MaxAge:     28, // days
		Compress:   true,
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(out, nil)))
}
