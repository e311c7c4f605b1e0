package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// GoldenPath returns the golden file of a scenario file:
// <dir>/golden/<name>.golden.
func GoldenPath(scenarioFile string) string {
	dir, base := filepath.Split(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// CompareGolden reports whether the result's snapshot equals the golden
// file. A missing golden file is an error wrapping os.ErrNotExist.
func CompareGolden(path string, r *Result) (bool, error) {
	want, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read golden: %w", err)
	}
	got, err := r.Snapshot()
	if err != nil {
		return false, err
	}
	return bytes.Equal(want, got), nil
}

// UpdateGolden writes the result's snapshot to path.
func UpdateGolden(path string, r *Result) error {
	data, err := r.Snapshot()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create golden directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// HasGolden reports whether a golden file exists at path.
func HasGolden(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}

// AssertGolden compares the result's snapshot with dir/<name>.golden
// using goldie; run the test with -update to regenerate it.
func AssertGolden(t *testing.T, dir, name string, r *Result) {
	t.Helper()
	data, err := r.Snapshot()
	if err != nil {
		t.Fatalf("snapshot %s: %v", name, err)
	}
	g := goldie.New(t,
		goldie.WithFixtureDir(dir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
