package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/2hard2touch/smart-data-sanitizer/internal/config"
	"github.com/2hard2touch/smart-data-sanitizer/internal/ledger"
)

var (
	historySource string
	historyLimit  int
	historyFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query the signed run ledger",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs",
	RunE:  historyList,
}

var historyVerifyCmd = &cobra.Command{
	Use:   "verify [run-id]",
	Short: "Verify the HMAC signature of a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE:  historyVerify,
}

func init() {
	historyListCmd.Flags().StringVar(&historySource, "source", "", "Filter by source (cli, api)")
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum records to show")
	historyListCmd.Flags().StringVar(&historyFormat, "format", "text", "Output format (text, json, csv)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyVerifyCmd)
	rootCmd.AddCommand(historyCmd)
}

// openLedgerStore opens the ledger whether or not recording is enabled.
func openLedgerStore() (*ledger.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return ledger.Open(cfg.LedgerDBPath(), cfg.SigningKey)
}

func historyList(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	store, err := openLedgerStore()
	if err != nil {
		return fmt.Errorf("initializing run ledger: %w", err)
	}
	defer store.Close()

	records, err := store.List(ctx, ledger.Filter{Source: historySource, Limit: historyLimit})
	if err != nil {
		return fmt.Errorf("querying run ledger: %w", err)
	}

	w := cmd.OutOrStdout()
	switch historyFormat {
	case "json":
		return renderHistoryJSON(w, records)
	case "csv":
		return renderHistoryCSV(w, records)
	case "text", "":
		if len(records) == 0 {
			fmt.Fprintln(w, "No runs recorded.")
			return nil
		}
		renderHistoryList(w, records)
		return nil
	}
	return fmt.Errorf("unknown format %q (use text, json or csv)", historyFormat)
}

func historyVerify(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	id := args[0]
	store, err := openLedgerStore()
	if err != nil {
		return fmt.Errorf("initializing run ledger: %w", err)
	}
	defer store.Close()

	valid, err := store.Verify(ctx, id)
	if err != nil {
		return fmt.Errorf("verifying run: %w", err)
	}
	renderVerifyResult(cmd.OutOrStdout(), id, valid)
	if !valid {
		return fmt.Errorf("signature verification failed for %s", id)
	}
	return nil
}

// renderHistoryList writes one line per run to w (testable).
func renderHistoryList(w io.Writer, records []ledger.Record) {
	fmt.Fprintf(w, "Runs (showing %d):\n\n", len(records))
	for i := range records {
		r := &records[i]
		warn := ""
		if r.Summary.DetectorFailures > 0 {
			warn = fmt.Sprintf(" [%d detector failures]", r.Summary.DetectorFailures)
		}
		fmt.Fprintf(w, "  %s | %s | %-3s | %d records | %d replacements | %dms%s\n",
			r.ID,
			r.Timestamp.Format("2006-01-02 15:04:05"),
			r.Source,
			r.Summary.RecordsProcessed,
			r.Summary.ReplacementsMade,
			r.DurationMS,
			warn,
		)
	}
}

func renderHistoryJSON(w io.Writer, records []ledger.Record) error {
	if records == nil {
		records = []ledger.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

var historyCSVHeader = []string{
	"id", "run_id", "timestamp", "source", "records", "fields_with_pii",
	"replacements", "detector_failures", "duration_ms", "input_hash", "output_hash",
}

func renderHistoryCSV(w io.Writer, records []ledger.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(historyCSVHeader); err != nil {
		return err
	}
	for i := range records {
		r := &records[i]
		row := []string{
			r.ID,
			r.RunID,
			r.Timestamp.UTC().Format(time.RFC3339),
			r.Source,
			strconv.Itoa(r.Summary.RecordsProcessed),
			strconv.Itoa(r.Summary.FieldsWithPII),
			strconv.Itoa(r.Summary.ReplacementsMade),
			strconv.Itoa(r.Summary.DetectorFailures),
			strconv.FormatInt(r.DurationMS, 10),
			r.InputHash,
			r.OutputHash,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// renderVerifyResult writes the verify outcome to w (testable).
func renderVerifyResult(w io.Writer, id string, valid bool) {
	if valid {
		fmt.Fprintf(w, "✓ Run %s: signature VALID (HMAC-SHA256 intact)\n", id)
	} else {
		fmt.Fprintf(w, "✗ Run %s: signature INVALID (possible tampering)\n", id)
	}
}
