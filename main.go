// Copyright (c) 2025 ToeiRei
// Sshman - declarative SSH access manager for Ansible fleets
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for sshman.
//
// Usage:
//
//	go run . [flags]
//	./sshman [flags]
//
// This launches the sshman CLI. See --help for options.
package main

import (
	"errors"
	"os"

	"github.com/toeirei/sshman/ui/cli"
)

// main is the entrypoint for the sshman CLI. When a run relays the
// orchestration engine's failure, the process mirrors the engine's exit
// code; every other error exits 1.
func main() {
	if err := cli.Execute(); err != nil {
		var exitErr *cli.ExitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
