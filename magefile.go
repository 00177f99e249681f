//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

var Default = Build

// Build compiles every executable into ./bin.
func Build() error {
	mg.Deps(BuildReducer)
	fmt.Println("Compilation finished")
	return nil
}

// BuildReducer needs cgo for the HDF5 bindings; CGO_CFLAGS and CGO_LDFLAGS
// are forwarded from the environment.
func BuildReducer() error {
	fmt.Println("Building reducer executable...")
	return goCmd("build", "-o", "./bin/reducer", "./reducer")
}

func Test() error {
	fmt.Println("Running tests...")
	return goCmd("test", "./...")
}

func Vet() error {
	return goCmd("vet", "./...")
}

func goCmd(args ...string) error {
	cmd := exec.Command("go", args...)
	cmd.Env = append(os.Environ(),
		"CGO_ENABLED=1",
		"CGO_LDFLAGS="+os.Getenv("CGO_LDFLAGS"),
		"CGO_CFLAGS="+os.Getenv("CGO_CFLAGS"))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
