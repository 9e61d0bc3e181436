// Package luhn implements the mod-10 checksum used by card numbers.
package luhn

// Card numbers are 13 to 19 digits long.
const (
	MinLength = 13
	MaxLength = 19
)

// Valid reports whether digits is a 13-19 digit string passing the Luhn check.
//
// Digits are processed right to left; every second digit starting from the
// second-from-rightmost is doubled, and 9 is subtracted when the doubled
// value exceeds 9. The number is valid when the sum is divisible by 10.
// Out-of-range lengths and non-digit characters yield false, not an error.
//
//	Valid("4111111111111111") => true
//	Valid("4111111111111112") => false
func Valid(digits string) bool {
	n := len(digits)
	if n < MinLength || n > MaxLength {
		return false
	}
	sum, ok := weightedSum(digits, false)
	return ok && sum%10 == 0
}

// CheckDigit returns the digit that, appended to payload, makes a Luhn-valid
// number. It returns -1 if payload contains a non-digit.
func CheckDigit(payload string) int {
	// Appending a digit shifts every position by one, so the rightmost
	// payload digit is the first to be doubled.
	sum, ok := weightedSum(payload, true)
	if !ok {
		return -1
	}
	return (10 - sum%10) % 10
}

func weightedSum(digits string, doubleFirst bool) (int, bool) {
	sum := 0
	double := doubleFirst
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum, true
}
