package db

import "strings"

// IsUniqueViolation reports whether the provided error is a unique-constraint
// violation. When constraintName is provided it is matched first; sqlite
// reports violations as "UNIQUE constraint failed: table.column" rather than
// by constraint name, so the generic driver texts are accepted as well.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" && strings.Contains(msg, constraintName) {
		return true
	}
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}
