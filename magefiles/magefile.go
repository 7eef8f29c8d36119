//go:build mage

// Build tasks for powdertrack. Run `mage -l` for the target list.
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName = "powdertrack"
	binaryDir  = "bin"
	cmdDir     = "./cmd/powdertrack"
	versionVar = "github.com/mesh-intelligence/powdertrack/internal/cli.Version"
)

// Default is the target run by a bare `mage`.
var Default = Build

// version returns the stamp for the binary: POWDERTRACK_VERSION when set,
// otherwise the output of git describe, otherwise "dev".
func version() string {
	if v := os.Getenv("POWDERTRACK_VERSION"); v != "" {
		return v
	}
	v, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || v == "" {
		return "dev"
	}
	return v
}

// Build compiles the powdertrack binary into bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	ldflags := "-X " + versionVar + "=" + version()
	return sh.RunV("go", "build", "-ldflags", ldflags,
		"-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV("go", "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output("go", "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
