package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"invoicer/internal/extract"
	"invoicer/internal/logger"
	"invoicer/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the invoice engine over HTTP",
	Long: `Start an HTTP server with an upload form and a JSON API:

  POST /api/invoices/render   JSON record → PDF (optional ?number=YYYYMM-NNNN)
  POST /api/invoices/scan     multipart "receipt" image → PDF
  GET  /healthz               liveness probe

Receipt scanning is enabled when the configured extractor can be created;
otherwise /api/invoices/scan answers 503 and rendering still works.`,
	Example: `  invoicer serve --addr :8080`,
	Args:    cobra.NoArgs,
	RunE:    runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default: HTTP_ADDR)")
	addRenderFlags(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.RequireServer(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	addr := cfg.HTTPAddr
	if flagAddr, _ := cmd.Flags().GetString("addr"); flagAddr != "" {
		addr = flagAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var extractor extract.Extractor
	if ex, err := newExtractor(ctx, cfg); err != nil {
		log.Warn().
			Err(err).
			Str("extractor", cfg.Extractor).
			Msg("Receipt scanning disabled")
	} else {
		extractor = ex
		defer closeClient(ex, log)
	}

	srv := server.New(newEngine(cmd, cfg), server.Options{
		Extractor:         extractor,
		AllowedOrigins:    cfg.CORSAllowedOrigins,
		MaxUploadBytes:    int64(cfg.MaxUploadMB) << 20,
		ExtractionTimeout: 2 * time.Minute,
	})

	return srv.ListenAndServe(ctx, addr)
}
