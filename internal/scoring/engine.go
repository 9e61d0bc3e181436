// Package scoring implements the record classification engine.
//
// Architecture:
//   The engine is stateless and pure: the same record always yields the same
//   result for a given clock reading. Reference data comes from a rules.RuleSet
//   and every weight and threshold from a Config, so behavioural variants are
//   configuration rather than separate code paths.
//
// Pipeline (fixed order):
//   1. Hard checks, short-circuiting to DEAD with confidence 0:
//      checksum, then format, then expiry.
//   2. Base score: the sum of the three hard-check weights.
//   3. BIN lookup: the matched rule's confidence is added, a miss is penalised.
//   4. Pattern check: suspicious numbers are penalised, otherwise known test
//      numbers get a bonus. Suspicious wins when both match.
//   5. Status: LIVE when the raw score reaches the threshold, DEAD otherwise.
//
// The raw score is unbounded (a known test number with a singleton BIN match
// reaches 160 under the default config). Confidence is the raw score clamped
// to [0, 100]; the LIVE decision always uses the raw score.
package scoring

import (
	"fmt"
	"strings"
	"time"

	"github.com/sterlixo/chilli-checker/internal/domain"
	"github.com/sterlixo/chilli-checker/internal/luhn"
	"github.com/sterlixo/chilli-checker/internal/rules"
)

// Config enumerates the scoring weights. Penalties are positive numbers that
// are subtracted.
type Config struct {
	ChecksumWeight    int `mapstructure:"checksum_weight"`
	FormatWeight      int `mapstructure:"format_weight"`
	ExpiryWeight      int `mapstructure:"expiry_weight"`
	BinMissPenalty    int `mapstructure:"bin_miss_penalty"`
	SuspiciousPenalty int `mapstructure:"suspicious_penalty"`
	KnownTestBonus    int `mapstructure:"known_test_bonus"`
	LiveThreshold     int `mapstructure:"live_threshold"`
}

// DefaultConfig returns the reference weights: 20+15+15 for the hard checks,
// -20 for a BIN miss, -30 suspicious, +30 known test, LIVE at >= 70.
func DefaultConfig() Config {
	return Config{
		ChecksumWeight:    20,
		FormatWeight:      15,
		ExpiryWeight:      15,
		BinMissPenalty:    20,
		SuspiciousPenalty: 30,
		KnownTestBonus:    30,
		LiveThreshold:     70,
	}
}

// Reasons attached to results. Hard-failure reasons are the text of the
// matching domain errors.
var (
	ReasonChecksum = domain.ErrChecksum.Error()
	ReasonFormat   = domain.ErrFormat.Error()
	ReasonExpired  = domain.ErrExpired.Error()
)

const (
	ReasonUnknownBIN = "unknown BIN"
	ReasonSuspicious = "suspicious pattern"
	ReasonKnownTest  = "known test card"
)

// Engine classifies card records.
type Engine struct {
	cfg   Config
	rules rules.RuleSet
	now   func() time.Time
}

// Option customises an Engine.
type Option func(*Engine)

// WithConfig overrides the scoring weights.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithClock overrides the clock used by the expiry check.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine over the given rule set.
func New(rs rules.RuleSet, opts ...Option) *Engine {
	e := &Engine{cfg: DefaultConfig(), rules: rs, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the weights in use.
func (e *Engine) Config() Config { return e.cfg }

// ─── Public API ───────────────────────────────────────────────────────────────

// ClassifyLine parses a pipe-delimited line and classifies it. Lines that do
// not parse are DEAD with an invalid-format reason.
func (e *Engine) ClassifyLine(line string) domain.ClassificationResult {
	rec, err := domain.ParseRecord(line)
	if err != nil {
		number := strings.TrimSpace(strings.SplitN(line, domain.FieldSeparator, 2)[0])
		return dead(rules.IdentifyNetwork(number), domain.CardRecord{Number: number}.Last4(), err.Error())
	}
	return e.Classify(rec)
}

// Classify runs the full pipeline over a parsed record.
func (e *Engine) Classify(rec domain.CardRecord) domain.ClassificationResult {
	network := rules.IdentifyNetwork(rec.Number)
	last4 := rec.Last4()

	if !luhn.Valid(rec.Number) {
		return dead(network, last4, ReasonChecksum)
	}
	if !formatValid(rec, network) {
		return dead(network, last4, ReasonFormat)
	}
	if !rules.ExpiryValid(rec.Month, rec.Year, e.now()) {
		return dead(network, last4, ReasonExpired)
	}

	score := e.cfg.ChecksumWeight + e.cfg.FormatWeight + e.cfg.ExpiryWeight
	var reasons []string

	bin := e.rules.LookupBin(rec.Number, network)
	if bin.Matched {
		score += bin.Confidence
		reasons = append(reasons, fmt.Sprintf("valid %s BIN", network))
	} else {
		score -= e.cfg.BinMissPenalty
		reasons = append(reasons, ReasonUnknownBIN)
	}

	pattern := e.rules.MatchPattern(rec.Number)
	switch {
	case pattern.IsSuspicious:
		score -= e.cfg.SuspiciousPenalty
		reasons = append(reasons, ReasonSuspicious)
	case pattern.IsKnownTest:
		score += e.cfg.KnownTestBonus
		reasons = append(reasons, ReasonKnownTest)
	}

	status := domain.StatusDead
	if score >= e.cfg.LiveThreshold {
		status = domain.StatusLive
	}
	confidence := clamp(score, 0, 100)

	return domain.ClassificationResult{
		Status:     status,
		Confidence: confidence,
		Score:      score,
		Reasons:    reasons,
		Network:    network,
		BinMatched: bin.Matched,
		Last4:      last4,
		Message:    buildMessage(status, confidence, reasons),
	}
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func formatValid(rec domain.CardRecord, network domain.Network) bool {
	return rules.NumberLengthValid(rec.Number) &&
		rec.Month >= 1 && rec.Month <= 12 &&
		rec.Year >= 2000 && rec.Year <= 9999 &&
		rules.CVVValid(rec.CVV, network)
}

func dead(network domain.Network, last4, reason string) domain.ClassificationResult {
	return domain.ClassificationResult{
		Status:   domain.StatusDead,
		Rejected: true,
		Reasons:  []string{reason},
		Network:  network,
		Last4:    last4,
		Message:  buildMessage(domain.StatusDead, 0, []string{reason}),
	}
}

// buildMessage formats a result into a single readable line such as
// "LIVE - Confidence: 100% (valid visa BIN, known test card)".
func buildMessage(status domain.Status, confidence int, reasons []string) string {
	return fmt.Sprintf("%s - Confidence: %d%% (%s)", status, confidence, strings.Join(reasons, ", "))
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
