package utils

import "testing"

// EnsureCleanup registers fn to run when t and all of its subtests finish,
// regardless of whether the test passed, failed, or called t.Fatal.
func EnsureCleanup(t *testing.T, fn func()) {
	t.Cleanup(fn)
}
