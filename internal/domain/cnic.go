package domain

import "regexp"

// 00000-0000000-0; ASCII digits only.
var cnicPattern = regexp.MustCompile(`^[0-9]{5}-[0-9]{7}-[0-9]$`)

// IsValidCNIC reports whether s is exactly a CNIC number. No trimming or normalization is applied.
func IsValidCNIC(s string) bool {
	return cnicPattern.MatchString(s)
}
