// Package generator synthesizes syntactically valid test records from a
// partial BIN pattern, for seeding demo batches and exercising the classifier.
package generator

import (
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/sterlixo/chilli-checker/internal/domain"
	"github.com/sterlixo/chilli-checker/internal/luhn"
	"github.com/sterlixo/chilli-checker/internal/rules"
)

// MaxAttempts bounds the search for a checksum-valid completion.
const MaxAttempts = 500

// MinPrefixDigits is the shortest accepted prefix.
const MinPrefixDigits = 6

// Placeholder marks a position to fill with a random digit.
const Placeholder = 'x'

// ErrPrefix is returned for prefixes that cannot seed a template.
var ErrPrefix = errors.New("invalid prefix")

// Options fixes parts of the generated records. Zero values are randomized.
type Options struct {
	Month int    // 1-12
	Year  int    // two or four digits
	CVV   string // digits
}

// Generator produces records from a random source. It is safe for
// concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// New creates a Generator seeded from src.
func New(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src), now: time.Now}
}

// NewSeeded creates a Generator with a deterministic seed.
func NewSeeded(seed int64) *Generator {
	return New(rand.NewSource(seed))
}

// Template normalizes a prefix pattern: whitespace is dropped, 'X' becomes
// 'x', and anything other than digits and 'x' is removed. The result is
// padded with placeholders to 15 characters when it starts with '3' and to
// 16 otherwise, and truncated to that length when longer.
func Template(prefix string) (string, error) {
	var b strings.Builder
	digits := 0
	for _, c := range prefix {
		switch {
		case c >= '0' && c <= '9':
			b.WriteRune(c)
			digits++
		case c == 'x' || c == 'X':
			b.WriteRune(Placeholder)
		}
	}
	t := b.String()
	if len(t) < MinPrefixDigits || digits == 0 {
		return "", errors.Wrapf(ErrPrefix, "need at least %d characters, got %q", MinPrefixDigits, prefix)
	}

	length := 16
	if t[0] == '3' {
		length = 15
	}
	if len(t) > length {
		return t[:length], nil
	}
	return t + strings.Repeat(string(Placeholder), length-len(t)), nil
}

// Numbers returns count card numbers completed from prefix.
//
// Each number is searched for by filling the template's placeholders with
// random digits, up to MaxAttempts times, until one passes the Luhn check.
// If no attempt succeeds the last random completion is returned as is; the
// result is then best-effort and may fail the checksum. This only happens
// for templates with few or no placeholders.
func (g *Generator) Numbers(prefix string, count int) ([]string, error) {
	tmpl, err := Template(prefix)
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, errors.Errorf("count must be non-negative, got %d", count)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, g.complete(tmpl))
	}
	return out, nil
}

// Generate returns count pipe-delimited records built from prefix with
// random expiry (two to five years ahead) and CVV unless fixed by opts.
func (g *Generator) Generate(prefix string, count int, opts Options) ([]string, error) {
	if opts.Month != 0 && (opts.Month < 1 || opts.Month > 12) {
		return nil, errors.Errorf("month must be 1-12, got %d", opts.Month)
	}
	if opts.CVV != "" && !domain.IsDigits(opts.CVV) {
		return nil, errors.Errorf("cvv must be numeric, got %q", opts.CVV)
	}

	numbers, err := g.Numbers(prefix, count)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]string, len(numbers))
	for i, n := range numbers {
		rec := domain.CardRecord{Number: n, Month: opts.Month, Year: opts.Year, CVV: opts.CVV}
		if rec.Month == 0 {
			rec.Month = 1 + g.rng.Intn(12)
		}
		if rec.Year > 0 && rec.Year < 100 {
			rec.Year += 2000
		}
		if rec.Year == 0 {
			rec.Year = g.now().Year() + 2 + g.rng.Intn(4)
		}
		if rec.CVV == "" {
			rec.CVV = g.digits(cvvLength(n))
		}
		out[i] = rec.String()
	}
	return out, nil
}

func (g *Generator) complete(tmpl string) string {
	var candidate string
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		candidate = g.fill(tmpl)
		if luhn.Valid(candidate) {
			return candidate
		}
	}
	return candidate
}

func (g *Generator) fill(tmpl string) string {
	b := []byte(tmpl)
	for i, c := range b {
		if c == Placeholder {
			b[i] = byte('0' + g.rng.Intn(10))
		}
	}
	return string(b)
}

func (g *Generator) digits(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString(strconv.Itoa(g.rng.Intn(10)))
	}
	return b.String()
}

// cvvLength follows the CVV rule: 4 digits for amex, 3 otherwise.
func cvvLength(number string) int {
	if rules.IdentifyNetwork(number) == domain.NetworkAmex {
		return 4
	}
	return 3
}
