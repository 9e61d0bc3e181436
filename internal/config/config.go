// Package config loads service configuration from defaults, an optional
// config file, and CHECKER_* environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/sterlixo/chilli-checker/internal/batch"
	"github.com/sterlixo/chilli-checker/internal/rules"
	"github.com/sterlixo/chilli-checker/internal/scoring"
	"github.com/sterlixo/chilli-checker/internal/verify"
)

// EnvPrefix namespaces environment overrides, e.g. CHECKER_LOG_LEVEL.
const EnvPrefix = "CHECKER"

// Config is the full service configuration.
type Config struct {
	Port      int    `mapstructure:"port"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	RuleSet string         `mapstructure:"rule_set"`
	Scoring scoring.Config `mapstructure:"scoring"`
	Batch   batch.Policy   `mapstructure:"batch"`

	VerifyTimeout time.Duration `mapstructure:"verify_timeout"`

	MaxBatchLines int `mapstructure:"max_batch_lines"`
	MaxGenerate   int `mapstructure:"max_generate"`

	// Webhooks receive a count-only summary when a batch finishes.
	Webhooks []string `mapstructure:"webhooks"`
	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// Defaults registers every key with its default value on v.
func Defaults(v *viper.Viper) {
	sc := scoring.DefaultConfig()
	bp := batch.DefaultPolicy()

	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("rule_set", rules.RuleSetStandard)
	v.SetDefault("scoring.checksum_weight", sc.ChecksumWeight)
	v.SetDefault("scoring.format_weight", sc.FormatWeight)
	v.SetDefault("scoring.expiry_weight", sc.ExpiryWeight)
	v.SetDefault("scoring.bin_miss_penalty", sc.BinMissPenalty)
	v.SetDefault("scoring.suspicious_penalty", sc.SuspiciousPenalty)
	v.SetDefault("scoring.known_test_bonus", sc.KnownTestBonus)
	v.SetDefault("scoring.live_threshold", sc.LiveThreshold)
	v.SetDefault("batch.local_delay", bp.LocalDelay)
	v.SetDefault("batch.verified_delay", bp.VerifiedDelay)
	v.SetDefault("verify_timeout", verify.DefaultTimeout)
	v.SetDefault("max_batch_lines", 1000)
	v.SetDefault("max_generate", 1000)
	v.SetDefault("webhooks", []string{})
	v.SetDefault("cors_origins", []string{"*"})
}

// Load reads configuration into a Config. file may be empty.
//
// PORT, when set, takes precedence over everything else so the service runs
// unchanged on platforms that inject it.
func Load(v *viper.Viper, file string) (Config, error) {
	Defaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config file %s", file)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}

	cfg.Webhooks = splitList(cfg.Webhooks)
	cfg.CORSOrigins = splitList(cfg.CORSOrigins)

	if envPort := os.Getenv("PORT"); envPort != "" {
		if p, err := strconv.Atoi(envPort); err == nil {
			cfg.Port = p
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and names.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("port must be 1-65535, got %d", c.Port)
	}
	if _, err := rules.ByName(c.RuleSet); err != nil {
		return errors.Wrap(err, "rule_set")
	}
	if c.Scoring.BinMissPenalty < 0 || c.Scoring.SuspiciousPenalty < 0 {
		return errors.New("scoring penalties must be non-negative")
	}
	if c.Batch.LocalDelay < 0 || c.Batch.VerifiedDelay < 0 {
		return errors.New("batch delays must be non-negative")
	}
	if c.VerifyTimeout <= 0 {
		return errors.New("verify_timeout must be positive")
	}
	if c.MaxBatchLines < 1 || c.MaxGenerate < 1 {
		return errors.New("max_batch_lines and max_generate must be at least 1")
	}
	return nil
}

// splitList expands comma-separated env values, which arrive as a single
// string element.
func splitList(in []string) []string {
	if len(in) != 1 || !strings.Contains(in[0], ",") {
		return in
	}
	out := make([]string, 0, 4)
	for _, p := range strings.Split(in[0], ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
