// Package testutil holds small helpers shared across package tests.
package testutil

import (
	"fmt"
	"time"
)

// MustParseRFC3339 parses an RFC3339 timestamp or panics. Only for use in
// tests with literal inputs.
func MustParseRFC3339(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(fmt.Sprintf("testutil: bad RFC3339 literal %q: %v", value, err))
	}
	return t
}

// NowAt returns a clock function pinned to a fixed instant.
func NowAt(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
