package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/2hard2touch/smart-data-sanitizer/internal/config"
	"github.com/2hard2touch/smart-data-sanitizer/internal/document"
	"github.com/2hard2touch/smart-data-sanitizer/internal/pii"
	"github.com/2hard2touch/smart-data-sanitizer/internal/sanitizer"
)

var scanFormat string

var scanCmd = &cobra.Command{
	Use:   "scan <input>",
	Short: "Report where PII was found without writing anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "scan")
		defer span.End()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		raw, err := document.ReadRaw(args[0], cfg.MaxDocumentBytes())
		if err != nil {
			return err
		}
		doc, err := document.Parse(raw)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", args[0], err)
		}
		san, err := buildSanitizer(cfg)
		if err != nil {
			return err
		}
		report, err := san.Scan(ctx, doc)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		switch scanFormat {
		case "json":
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		case "text", "":
			renderScanReport(w, report)
			return nil
		}
		return fmt.Errorf("unknown format %q (use text or json)", scanFormat)
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanFormat, "format", "text", "Output format (text, json)")
	rootCmd.AddCommand(scanCmd)
}

// renderScanReport writes findings to w without their values (testable).
func renderScanReport(w io.Writer, r *sanitizer.ScanReport) {
	fmt.Fprintf(w, "Records scanned: %d\n", r.RecordsScanned)
	fmt.Fprintf(w, "PII findings: %d\n", len(r.Findings))
	for _, c := range pii.Categories {
		if n := r.ByCategory[c]; n > 0 {
			fmt.Fprintf(w, "  %s: %d\n", c, n)
		}
	}
	if r.DetectorFailures > 0 {
		fmt.Fprintf(w, "Detector failures: %d\n", r.DetectorFailures)
	}
	if len(r.Findings) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, f := range r.Findings {
		fmt.Fprintf(w, "  %s [%d:%d] %s (%.2f, %s)\n", f.Path, f.Start, f.End, f.Category, f.Confidence, f.Detector)
	}
}
