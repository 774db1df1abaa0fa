package domain

import "strings"

// NormalizeEmail is the canonical form used for every user lookup and every
// ledger read or write.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
