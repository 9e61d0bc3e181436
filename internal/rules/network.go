// Package rules holds the individual record checks used by the classifier:
// network detection, expiry and CVV checks, BIN confidence lookup, and
// known/suspicious pattern matching.
package rules

import (
	"strconv"
	"time"

	"github.com/sterlixo/chilli-checker/internal/domain"
	"github.com/sterlixo/chilli-checker/internal/luhn"
)

// prefixRule maps a numeric prefix range of a fixed width to a network.
type prefixRule struct {
	network domain.Network
	width   int
	lo, hi  int
}

// networkPrefixes is evaluated top to bottom and the first match wins.
// Order matters: amex is tested before diners/jcb, mastercard's 2-series
// before anything else starting with 2.
var networkPrefixes = []prefixRule{
	{domain.NetworkAmex, 2, 34, 34},
	{domain.NetworkAmex, 2, 37, 37},
	{domain.NetworkMastercard, 2, 51, 55},
	{domain.NetworkMastercard, 4, 2221, 2720},
	{domain.NetworkVisa, 1, 4, 4},
	{domain.NetworkDiscover, 4, 6011, 6011},
	{domain.NetworkDiscover, 2, 65, 65},
	{domain.NetworkDiners, 3, 300, 305},
	{domain.NetworkDiners, 2, 36, 36},
	{domain.NetworkDiners, 2, 38, 38},
	{domain.NetworkJCB, 2, 35, 35},
}

// IdentifyNetwork returns the issuer network for a digit string by prefix
// matching, or NetworkUnknown when no prefix applies.
func IdentifyNetwork(digits string) domain.Network {
	for _, r := range networkPrefixes {
		if len(digits) < r.width {
			continue
		}
		p, err := strconv.Atoi(digits[:r.width])
		if err != nil {
			continue
		}
		if p >= r.lo && p <= r.hi {
			return r.network
		}
	}
	return domain.NetworkUnknown
}

// ExpiryValid reports whether (year, month) is not strictly before the
// month containing now. A card expiring in the current month is valid.
// Two-digit years are read as 2000+year.
func ExpiryValid(month, year int, now time.Time) bool {
	if month < 1 || month > 12 {
		return false
	}
	if year < 100 {
		year += 2000
	}
	cy, cm := now.Year(), int(now.Month())
	if year != cy {
		return year > cy
	}
	return month >= cm
}

// CVVValid reports whether cvv is all digits with the length required by
// the network: 4 for amex, 3 for everything else.
func CVVValid(cvv string, network domain.Network) bool {
	want := 3
	if network == domain.NetworkAmex {
		want = 4
	}
	return len(cvv) == want && domain.IsDigits(cvv)
}

// NumberLengthValid reports whether digits has a card-number length.
func NumberLengthValid(digits string) bool {
	return len(digits) >= luhn.MinLength && len(digits) <= luhn.MaxLength && domain.IsDigits(digits)
}

