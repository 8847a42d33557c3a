// Package testutil provides shared test infrastructure for the dasim packages:
// locating the scenarios shipped in examples/ and tolerant float comparison.
package testutil

import (
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
)

// RepoPath resolves a path relative to the repository root.
// The root is found relative to this source file: sim/internal/testutil/ → ../../..
func RepoPath(t *testing.T, elem ...string) string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	root := filepath.Join(filepath.Dir(thisFile), "..", "..", "..")
	return filepath.Join(append([]string{root}, elem...)...)
}

// ExampleScenarios returns the paths of every scenario in examples/, sorted.
func ExampleScenarios(t *testing.T) []string {
	t.Helper()

	dir := RepoPath(t, "examples")
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read examples: %v", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		t.Fatalf("No scenarios in %s", dir)
	}
	return paths
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
