//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

func project() string {
	if dir := os.Getenv("ANIMA_PROJECT_DIR"); dir != "" {
		return dir
	}
	return "assets"
}

// Loads every asset of the project and prints the report.
func (Run) Inspect() error {
	mg.Deps(Build.Cli)
	fmt.Println("Inspecting", project())
	_, err := executeCmd("bin/anima-assets", withArgs("inspect", "--project", project()), withStream())
	return err
}

// Keeps the project loaded and reloads changed files, with metrics on :9090.
func (Run) Watch() error {
	mg.Deps(Build.Cli)
	_, err := executeCmd("bin/anima-assets", withArgs("watch", "--project", project(), "--metrics-addr", ":9090"), withStream())
	return err
}
