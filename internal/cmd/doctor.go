package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/2hard2touch/smart-data-sanitizer/internal/config"
	"github.com/2hard2touch/smart-data-sanitizer/internal/doctor"
)

var (
	doctorFormat       string
	doctorSkipUpstream bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run preflight checks (patterns, detectors, ledger)",
	Long:  "Verifies the pattern file and name dictionaries load, configured Presidio and LLM endpoints answer, and the run ledger is usable.",
	RunE:  runDoctor,
}

func init() {
	doctorCmd.Flags().StringVar(&doctorFormat, "format", "text", "Output format (text, json)")
	doctorCmd.Flags().BoolVar(&doctorSkipUpstream, "skip-upstream", false, "Skip network checks against Presidio and the LLM API")
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	report := doctor.Run(ctx, cfg, doctor.Options{SkipUpstream: doctorSkipUpstream})

	out := cmd.OutOrStdout()
	if doctorFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		renderDoctorReport(out, report)
	}
	if report.Status == doctor.StatusFail {
		return fmt.Errorf("preflight checks failed")
	}
	return nil
}

// renderDoctorReport writes one line per check to w (testable).
func renderDoctorReport(w io.Writer, r *doctor.Report) {
	for _, c := range r.Checks {
		mark := "✓"
		switch c.Status {
		case doctor.StatusWarn:
			mark = "⚠"
		case doctor.StatusFail:
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s: %s\n", mark, c.Name, c.Message)
		if c.Fix != "" && c.Status != doctor.StatusPass {
			fmt.Fprintf(w, "    fix: %s\n", c.Fix)
		}
	}
	fmt.Fprintf(w, "\n%d passed, %d warnings, %d failed\n", r.Summary.Pass, r.Summary.Warn, r.Summary.Fail)
}
