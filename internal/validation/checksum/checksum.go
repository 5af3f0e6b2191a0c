// Package checksum verifies the two check digits of a CPF, the Brazilian
// individual taxpayer number.
package checksum

import "strings"

// Length is the digit count of a normalized CPF.
const Length = 11

// checkPositions are the indexes of the two check digits.
var checkPositions = [2]int{9, 10}

// Normalize strips every non-digit character.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Verify reports whether raw, once normalized, is an 11-digit CPF whose check
// digits match. Malformed input is simply invalid.
func Verify(raw string) bool {
	digits := Normalize(raw)
	if len(digits) != Length || isUniform(digits) {
		return false
	}
	for _, pos := range checkPositions {
		if checkDigit(digits[:pos]) != int(digits[pos]-'0') {
			return false
		}
	}
	return true
}

// Format renders a valid-length CPF as 000.000.000-00. Other input is
// returned as given.
func Format(raw string) string {
	digits := Normalize(raw)
	if len(digits) != Length {
		return raw
	}
	return digits[0:3] + "." + digits[3:6] + "." + digits[6:9] + "-" + digits[9:11]
}

// checkDigit weights the preceding digits from len(prefix)+1 down to 2.
func checkDigit(prefix string) int {
	sum := 0
	weight := len(prefix) + 1
	for i := 0; i < len(prefix); i++ {
		sum += int(prefix[i]-'0') * weight
		weight--
	}
	rest := 11 - sum%11
	if rest == 10 || rest == 11 {
		return 0
	}
	return rest
}

// isUniform catches 00000000000 through 99999999999, which pass the
// arithmetic but are not issued.
func isUniform(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}
