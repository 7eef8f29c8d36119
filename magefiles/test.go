//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups the test targets.
type Test mg.Namespace

const coverProfile = "coverage.out"

// All runs every test in the module.
func (Test) All() error {
	return sh.RunV("go", "test", "./...")
}

// Unit runs the in-memory tests; the SQLite-backed packages are skipped.
func (Test) Unit() error {
	return sh.RunV("go", "test",
		"./pkg/...",
		"./internal/catalog/...",
		"./internal/deps/...",
		"./internal/slots/...",
		"./internal/guard/...",
		"./internal/paths/...",
	)
}

// Store runs the SQLite backend tests, including the guard and slot
// scenarios over a real database.
func (Test) Store() error {
	return sh.RunV("go", "test", "-race", "./internal/sqlite/...")
}

// Golden regenerates the guard report golden files.
func (Test) Golden() error {
	return sh.RunV("go", "test", "./internal/guard/...", "-update")
}

// Cover runs every test with a coverage profile and prints the summary.
func (Test) Cover() error {
	if err := sh.RunV("go", "test", "-coverprofile="+coverProfile, "./..."); err != nil {
		return err
	}
	return sh.RunV("go", "tool", "cover", "-func="+coverProfile)
}
