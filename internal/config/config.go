// Package config holds operator-level configuration for the sanitizer.
//
// Values come from SANITIZER_* environment variables, sanitizer.config.yaml
// (./ or ~/.data-sanitizer/) and command-line flags bound to the same viper
// keys. Nothing here is per-document: detectors, the generator seed and the
// optional run ledger are configured once per process.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Viper keys. Each maps to an env var with the SANITIZER_ prefix
// (e.g. "min_score" → SANITIZER_MIN_SCORE) and to a YAML field.
const (
	KeyDataDir          = "data_dir"
	KeySigningKey       = "signing_key"
	KeySeed             = "seed"
	KeyMinScore         = "min_score"
	KeyPatternFile      = "pattern_file"
	KeyEnabledEntities  = "enabled_entities"
	KeyDisabledEntities = "disabled_entities"
	KeyNERURL           = "ner_url"
	KeyLLMModel         = "llm_model"
	KeyLLMBaseURL       = "llm_base_url"
	KeyLLMAPIKey        = "llm_api_key"
	KeyLedger           = "ledger"
	KeyMaxDocumentMB    = "max_document_mb"
	KeyRateLimitRPM     = "rate_limit_rpm"
	KeyAPIKeys          = "api_keys"
	KeyListenAddr       = "listen_addr"
)

// EnvPrefix is prepended to every key for environment lookups.
const EnvPrefix = "SANITIZER"

const (
	DefaultMinScore      = 0.5
	DefaultMaxDocumentMB = 10
	DefaultRateLimitRPM  = 120
	DefaultLLMBaseURL    = "https://api.openai.com"
	DefaultListenAddr    = ":8080"
)

// Config is the resolved configuration of one process.
type Config struct {
	DataDir          string
	SigningKey       string
	Seed             *int64 // nil draws a fresh seed per process
	MinScore         float64
	PatternFile      string
	EnabledEntities  []string
	DisabledEntities []string
	NERURL           string // Presidio analyzer; empty disables the detector
	LLMModel         string // empty disables the LLM detector
	LLMBaseURL       string
	LLMAPIKey        string
	Ledger           bool
	MaxDocumentMB    int
	RateLimitRPM     int
	APIKeys          []string
	ListenAddr       string

	usingDefaultSigningKey bool
}

// UsingDefaultSigningKey reports whether the ledger key was derived rather
// than configured.
func (c *Config) UsingDefaultSigningKey() bool {
	return c.usingDefaultSigningKey
}

// LedgerDBPath is the SQLite file of the run ledger.
func (c *Config) LedgerDBPath() string {
	return filepath.Join(c.DataDir, "ledger.db")
}

// MaxDocumentBytes is the size limit applied to input documents.
func (c *Config) MaxDocumentBytes() int64 {
	return int64(c.MaxDocumentMB) << 20
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o700)
}

// WarnIfDefaultKeys logs when the ledger is signed with a derived key.
func (c *Config) WarnIfDefaultKeys() {
	if c.Ledger && c.usingDefaultSigningKey {
		log.Warn().Msg("Using generated default SANITIZER_SIGNING_KEY, set it explicitly for production")
	}
}

func init() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()
	SetDefaults(viper.GetViper())
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyMinScore, DefaultMinScore)
	v.SetDefault(KeyMaxDocumentMB, DefaultMaxDocumentMB)
	v.SetDefault(KeyRateLimitRPM, DefaultRateLimitRPM)
	v.SetDefault(KeyLLMBaseURL, DefaultLLMBaseURL)
	v.SetDefault(KeyListenAddr, DefaultListenAddr)
}

// Load reads configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads and validates configuration from v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DataDir:          resolveDataDir(v),
		SigningKey:       v.GetString(KeySigningKey),
		MinScore:         v.GetFloat64(KeyMinScore),
		PatternFile:      v.GetString(KeyPatternFile),
		EnabledEntities:  listOf(v, KeyEnabledEntities),
		DisabledEntities: listOf(v, KeyDisabledEntities),
		NERURL:           v.GetString(KeyNERURL),
		LLMModel:         v.GetString(KeyLLMModel),
		LLMBaseURL:       v.GetString(KeyLLMBaseURL),
		LLMAPIKey:        v.GetString(KeyLLMAPIKey),
		Ledger:           v.GetBool(KeyLedger),
		MaxDocumentMB:    v.GetInt(KeyMaxDocumentMB),
		RateLimitRPM:     v.GetInt(KeyRateLimitRPM),
		APIKeys:          listOf(v, KeyAPIKeys),
		ListenAddr:       v.GetString(KeyListenAddr),
	}
	if v.IsSet(KeySeed) && v.GetString(KeySeed) != "" {
		seed := v.GetInt64(KeySeed)
		cfg.Seed = &seed
	}
	if cfg.LLMAPIKey == "" {
		cfg.LLMAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.SigningKey == "" {
		cfg.SigningKey = deriveDefaultKey(cfg.DataDir)
		cfg.usingDefaultSigningKey = true
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// listOf accepts a YAML list or a comma-separated string.
func listOf(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func resolveDataDir(v *viper.Viper) string {
	if dir := v.GetString(KeyDataDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".data-sanitizer"
	}
	return filepath.Join(home, ".data-sanitizer")
}

// deriveDefaultKey produces a per-machine fallback signing key so the
// ledger works without setup. It is not a secret.
func deriveDefaultKey(dataDir string) string {
	h := sha256.Sum256([]byte("data-sanitizer:" + dataDir + ":ledger-signing"))
	return hex.EncodeToString(h[:])
}

func (c *Config) validate() error {
	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("min_score must be between 0 and 1 (got %g)", c.MinScore)
	}
	if c.MaxDocumentMB <= 0 {
		return fmt.Errorf("max_document_mb must be positive")
	}
	if c.RateLimitRPM < 0 {
		return fmt.Errorf("rate_limit_rpm must not be negative")
	}
	if len(c.SigningKey) < 32 {
		return fmt.Errorf("signing_key must be at least 32 bytes or 64+ hex characters (got %d); set SANITIZER_SIGNING_KEY", len(c.SigningKey))
	}
	for key, raw := range map[string]string{KeyNERURL: c.NERURL, KeyLLMBaseURL: c.LLMBaseURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL (got %q)", key, raw)
		}
	}
	if c.LLMModel != "" && c.LLMAPIKey == "" {
		return fmt.Errorf("llm_model is set but no API key: set SANITIZER_LLM_API_KEY or OPENAI_API_KEY")
	}
	return nil
}
