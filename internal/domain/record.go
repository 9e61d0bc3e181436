package domain

import (
	stderrors "errors"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Error taxonomy. None of these escape the classification or batch
// boundary; they are converted into a DEAD or UNKNOWN result with a reason.
var (
	ErrFormat   = stderrors.New("invalid format")
	ErrChecksum = stderrors.New("failed checksum")
	ErrExpired  = stderrors.New("card expired")
	ErrAdapter  = stderrors.New("verification unavailable")
)

// FieldSeparator splits the four fields of an input line.
const FieldSeparator = "|"

// ParseRecord parses a `number|month|year|cvv` line.
//
// Spaces and dashes inside the number are ignored. A two-digit year is
// normalized to 2000+year. Range checks (number length, month 1-12, CVV
// length) are left to the classifier; ParseRecord only rejects lines that
// are missing a field or carry non-numeric values, wrapping ErrFormat.
func ParseRecord(line string) (CardRecord, error) {
	parts := strings.Split(strings.TrimSpace(line), FieldSeparator)
	if len(parts) != 4 {
		return CardRecord{}, errors.Wrapf(ErrFormat, "expected 4 fields, got %d", len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	number := strings.NewReplacer(" ", "", "-", "").Replace(parts[0])
	if number == "" || !IsDigits(number) {
		return CardRecord{}, errors.Wrap(ErrFormat, "number must be numeric")
	}

	if parts[1] == "" || len(parts[1]) > 2 || !IsDigits(parts[1]) {
		return CardRecord{}, errors.Wrap(ErrFormat, "month must be 1-2 digits")
	}
	month, _ := strconv.Atoi(parts[1])

	if (len(parts[2]) != 2 && len(parts[2]) != 4) || !IsDigits(parts[2]) {
		return CardRecord{}, errors.Wrap(ErrFormat, "year must be 2 or 4 digits")
	}
	year, _ := strconv.Atoi(parts[2])
	if len(parts[2]) == 2 {
		year += 2000
	}

	if parts[3] == "" || !IsDigits(parts[3]) {
		return CardRecord{}, errors.Wrap(ErrFormat, "cvv must be numeric")
	}

	return CardRecord{Number: number, Month: month, Year: year, CVV: parts[3]}, nil
}

// String renders the record back into its pipe-delimited form with a
// two-digit month and four-digit year.
func (r CardRecord) String() string {
	var b strings.Builder
	b.Grow(len(r.Number) + 13)
	b.WriteString(r.Number)
	b.WriteString(FieldSeparator)
	if r.Month < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.Itoa(r.Month))
	b.WriteString(FieldSeparator)
	b.WriteString(strconv.Itoa(r.Year))
	b.WriteString(FieldSeparator)
	b.WriteString(r.CVV)
	return b.String()
}

// IsDigits reports whether s is non-empty and made only of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
