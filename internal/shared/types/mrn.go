package types

import (
	"fmt"
	"regexp"
)

// MRN represents a medical record number as issued by the facility
// registration system. Format: FFFF-NNNNNNN where:
// - FFFF: facility code (2-4 uppercase letters)
// - NNNNNNN: 6-8 digit serial, last digit is a Luhn check digit
type MRN string

var mrnRegex = regexp.MustCompile(`^[A-Z]{2,4}-\d{6,8}$`)

// ParseMRN validates and parses an MRN string
func ParseMRN(s string) (MRN, error) {
	if !mrnRegex.MatchString(s) {
		return "", fmt.Errorf("MRN must match FFFF-NNNNNNN format")
	}

	mrn := MRN(s)
	if !mrn.IsValid() {
		return "", fmt.Errorf("invalid MRN check digit")
	}

	return mrn, nil
}

// String returns the string representation
func (m MRN) String() string {
	return string(m)
}

// Masked returns a masked version for display (facility code and last two digits visible)
func (m MRN) Masked() string {
	s := string(m)
	dash := -1
	for i, c := range s {
		if c == '-' {
			dash = i
			break
		}
	}
	if dash < 0 || len(s)-dash < 4 {
		return "****"
	}
	masked := s[:dash+1]
	for i := dash + 1; i < len(s)-2; i++ {
		masked += "*"
	}
	return masked + s[len(s)-2:]
}

// IsValid validates the Luhn check digit over the numeric part
func (m MRN) IsValid() bool {
	s := string(m)
	dash := -1
	for i, c := range s {
		if c == '-' {
			dash = i
			break
		}
	}
	if dash < 0 {
		return false
	}
	digits := s[dash+1:]

	sum := 0
	double := true
	for i := len(digits) - 2; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		double = !double
		sum += d
	}

	check := (10 - sum%10) % 10
	return int(digits[len(digits)-1]-'0') == check
}

// IsZero checks if the MRN is empty
func (m MRN) IsZero() bool {
	return m == ""
}
