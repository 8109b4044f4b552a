package commands

import (
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"github.com/spf13/cobra"

	"github.com/dvloznov/money-assistant/internal/export"
)

// export --month --year: build the monthly report and upload it.
func exportCmd() *cobra.Command {
	var (
		month int
		year  int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Upload a monthly report to Cloud Storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.GCSBucket == "" {
				return fmt.Errorf("GCS_BUCKET is not configured")
			}

			now := time.Now()
			if month == 0 {
				month = int(now.Month())
			}
			if year == 0 {
				year = now.Year()
			}
			if month < 1 || month > 12 {
				return fmt.Errorf("invalid month %d", month)
			}

			client, err := storage.NewClient(cmd.Context())
			if err != nil {
				return fmt.Errorf("create storage client: %w", err)
			}
			defer client.Close()

			exporter := export.NewExporter(st, export.NewGCSUploader(client, cfg.GCSBucket), log, nil)
			object, err := exporter.ExportMonth(cmd.Context(), time.Month(month), year)
			if err != nil {
				return err
			}

			fmt.Printf("Exported gs://%s/%s\n", cfg.GCSBucket, object)
			return nil
		},
	}

	cmd.Flags().IntVar(&month, "month", 0, "month to export (default: current)")
	cmd.Flags().IntVar(&year, "year", 0, "year to export (default: current)")
	return cmd
}
