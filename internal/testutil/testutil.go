// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"math"
	"testing"

	"github.com/banshee-data/mocap.report/internal/geom"
)

// TB is the subset of testing.TB the helpers need.
type TB interface {
	Helper()
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
	Fatal(args ...any)
}

var _ TB = (*testing.T)(nil)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// Close reports whether got is within tol of want. NaN matches NaN.
func Close(got, want, tol float64) bool {
	if math.IsNaN(want) {
		return math.IsNaN(got)
	}
	return math.Abs(got-want) <= tol
}

// AssertClose checks a scalar against want within tol.
func AssertClose(t TB, got, want, tol float64, what string) {
	t.Helper()
	if !Close(got, want, tol) {
		t.Errorf("%s = %g, want %g (tol %g)", what, got, want, tol)
	}
}

// AssertVecClose checks each component of a vector within tol.
func AssertVecClose(t TB, got, want geom.Vec3, tol float64, what string) {
	t.Helper()
	for k := 0; k < 3; k++ {
		if !Close(got[k], want[k], tol) {
			t.Errorf("%s = %v, want %v (tol %g)", what, got, want, tol)
			return
		}
	}
}
