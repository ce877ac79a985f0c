package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/2hard2touch/smart-data-sanitizer/internal/config"
	"github.com/2hard2touch/smart-data-sanitizer/internal/document"
	"github.com/2hard2touch/smart-data-sanitizer/internal/ledger"
	"github.com/2hard2touch/smart-data-sanitizer/internal/pii"
	"github.com/2hard2touch/smart-data-sanitizer/internal/sanitizer"
)

var sanitizeCmd = &cobra.Command{
	Use:   "sanitize <input> <output>",
	Short: "Sanitize a JSON file and write the result",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "sanitize")
		defer span.End()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return runSanitize(ctx, cfg, args[0], args[1], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(sanitizeCmd)
}

// runSanitize reads input, sanitizes it and writes output. Nothing is
// written when any step fails.
func runSanitize(ctx context.Context, cfg *config.Config, input, output string, w io.Writer) error {
	start := time.Now()
	if verbose {
		fmt.Fprintln(w, "Smart Data Sanitizer")
		fmt.Fprintln(w, "==================================================")
		fmt.Fprintf(w, "Input file: %s\n", input)
		fmt.Fprintf(w, "Output file: %s\n\n", output)
	}

	raw, err := document.ReadRaw(input, cfg.MaxDocumentBytes())
	if err != nil {
		return err
	}
	doc, err := document.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", input, err)
	}

	san, err := buildSanitizer(cfg)
	if err != nil {
		return err
	}
	if verbose {
		fmt.Fprintln(w, "Initialized detectors:")
		for _, name := range san.Detectors() {
			fmt.Fprintf(w, "  - %s\n", name)
		}
		fmt.Fprintln(w)
	}

	store, err := openLedger(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	res, err := san.Sanitize(ctx, doc)
	if err != nil {
		return fmt.Errorf("sanitizing %s: %w", input, err)
	}
	if err := document.WriteFile(output, res.Document); err != nil {
		return err
	}

	if store != nil {
		out, err := document.Encode(res.Document)
		if err != nil {
			return fmt.Errorf("encoding output: %w", err)
		}
		rec, err := ledger.NewRecorder(store).Record(ctx, ledger.Run{
			Source:    ledger.SourceCLI,
			Result:    res,
			Input:     raw,
			Output:    out,
			Detectors: san.Detectors(),
			Seeded:    cfg.Seed != nil,
			Duration:  time.Since(start),
		})
		if err != nil {
			log.Error().Err(err).Str("run_id", res.RunID).Msg("ledger_append_failed")
		} else {
			log.Info().Str("ledger_id", rec.ID).Msg("run recorded")
		}
	}

	renderSummary(w, res.Summary, output)
	return nil
}

// renderSummary writes the run summary to w (testable).
func renderSummary(w io.Writer, s sanitizer.Summary, output string) {
	fmt.Fprintln(w, "Sanitization completed successfully!")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  Records processed: %d\n", s.RecordsProcessed)
	fmt.Fprintf(w, "  PII fields detected: %d\n", s.FieldsWithPII)
	fmt.Fprintf(w, "  PII replacements made: %d\n", s.ReplacementsMade)
	if verbose {
		for _, c := range pii.Categories {
			if n := s.ByCategory[c]; n > 0 {
				fmt.Fprintf(w, "    %s: %d\n", c, n)
			}
		}
		if s.DetectorFailures > 0 {
			fmt.Fprintf(w, "  Detector failures: %d\n", s.DetectorFailures)
		}
		if s.IdentityConflicts > 0 {
			fmt.Fprintf(w, "  Identity conflicts: %d\n", s.IdentityConflicts)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Sanitized data written to: %s\n", output)
}
