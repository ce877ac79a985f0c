package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/2hard2touch/smart-data-sanitizer/internal/config"
	"github.com/2hard2touch/smart-data-sanitizer/internal/otel"
)

// resolvedVersion returns Version unless it is "dev" and Go build info
// carries a real module version (e.g. from go install ...@v0.3.1).
func resolvedVersion() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}

var tracer = otel.Tracer("github.com/2hard2touch/smart-data-sanitizer/internal/cmd")

var (
	otelShutdown func(context.Context) error

	// Version info injected via ldflags at build time
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	// Global flags
	cfgFile   string
	verbose   bool
	logLevel  string
	logFormat string
	otelFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "data-sanitizer <input> <output>",
	Short: "Replace PII in JSON documents with realistic synthetic data",
	Long: `data-sanitizer reads a JSON array of records, detects personal data
(emails, phone numbers, credit cards, names) in every string, and writes the
same document with each value replaced by a synthetic one:

- the same original always gets the same replacement within a run
- phone and card replacements keep the original punctuation
- names and name-based emails in one record stay one consistent person`,
	Args:         cobra.MaximumNArgs(2),
	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()

		otelEnabled := otelFlag || os.Getenv("SANITIZER_OTEL_ENABLED") == "true"
		shutdown, err := otel.Setup("data-sanitizer", resolvedVersion(), otelEnabled)
		if err != nil {
			return fmt.Errorf("initializing OpenTelemetry: %w", err)
		}
		otelShutdown = shutdown
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		switch len(args) {
		case 0:
			return cmd.Help()
		case 1:
			return fmt.Errorf("missing output file: usage %s", cmd.Use)
		}
		return sanitizeCmd.RunE(cmd, args)
	},
}

func setupLogging() {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Logs go to stderr so stdout stays clean for summaries and reports.
	if logFormat == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			With().
			Timestamp().
			Logger()
	}

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./sanitizer.config.yaml or ~/.data-sanitizer/sanitizer.config.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "console", "log format (console, json)")
	pf.BoolVar(&otelFlag, "otel", false, "enable OpenTelemetry (traces and metrics to stdout)")

	pf.Int64("seed", 0, "seed the generator for reproducible output")
	pf.Float64("min-score", config.DefaultMinScore, "ignore detections below this confidence")
	pf.String("patterns", "", "YAML recognizer file merged over the built-in patterns")
	pf.StringSlice("entities", nil, "only detect these entities (e.g. EMAIL_ADDRESS,PHONE_NUMBER)")
	pf.StringSlice("disable-entities", nil, "never detect these entities")
	pf.String("ner-url", "", "Presidio analyzer URL for an additional NER detector")
	pf.String("llm-model", "", "chat model for an additional LLM detector")
	pf.Bool("ledger", false, "record each run in the signed run ledger")
	pf.String("data-dir", "", "directory for the run ledger (default ~/.data-sanitizer)")

	for key, flag := range map[string]string{
		config.KeySeed:             "seed",
		config.KeyMinScore:         "min-score",
		config.KeyPatternFile:      "patterns",
		config.KeyEnabledEntities:  "entities",
		config.KeyDisabledEntities: "disable-entities",
		config.KeyNERURL:           "ner-url",
		config.KeyLLMModel:         "llm-model",
		config.KeyLedger:           "ledger",
		config.KeyDataDir:          "data-dir",
		"verbose":                  "verbose",
		"otel":                     "otel",
		"log_level":                "log-level",
		"log_format":               "log-format",
	} {
		_ = viper.BindPFlag(key, pf.Lookup(flag))
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home + "/.data-sanitizer")
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("sanitizer.config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.AutomaticEnv()

	// The file is optional.
	_ = viper.ReadInConfig()
}

// Execute runs the root command and flushes OTel on exit.
func Execute() error {
	err := rootCmd.Execute()
	if otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelShutdown(ctx)
	}
	return err
}
