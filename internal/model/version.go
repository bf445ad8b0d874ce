package model

import (
	"strconv"
	"strings"
)

// Accepted plan schema version range, inclusive on both ends.
const (
	minSchemaVersion = "1.0.0"
	maxSchemaVersion = "1.1.0"
)

func validateVersion(version string) error {
	v, err := parseVersion(version)
	if err != nil {
		return Invalid("invalid plan schema version %q", version)
	}
	lo, _ := parseVersion(minSchemaVersion)
	hi, _ := parseVersion(maxSchemaVersion)
	if compareVersion(v, lo) < 0 || compareVersion(v, hi) > 0 {
		return Invalid("unsupported plan schema version %q: expected %s through %s",
			version, minSchemaVersion, maxSchemaVersion)
	}
	return nil
}

func parseVersion(version string) ([3]int, error) {
	var parsed [3]int
	parts := strings.Split(strings.TrimSpace(version), ".")
	if len(parts) != 3 {
		return parsed, strconv.ErrSyntax
	}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return parsed, strconv.ErrSyntax
		}
		parsed[i] = n
	}
	return parsed, nil
}

func compareVersion(a, b [3]int) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
