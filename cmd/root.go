package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"invoicer/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "invoicer",
	Short: "Turn receipts into French VAT invoices (PDF)",
	Long: `invoicer reads receipts (photos or extracted JSON records) and lays them
out as A4 invoices with seller and buyer blocks, an item table, VAT totals and
the legal payment notice.

Records can come from a JSON file (render), from a receipt photo through a
vision model, OCR or Document AI (scan, batch), or over HTTP (serve).`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
