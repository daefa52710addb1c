// Copyright (c) 2025 ToeiRei
// Sshman - declarative SSH access manager for Ansible fleets
// This source code is licensed under the MIT license found in the LICENSE file.

package ansible

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/toeirei/sshman/internal/logging"
	"github.com/toeirei/sshman/internal/plan"
)

// execCommand builds the engine process. Tests swap it to capture the argv
// and fake exit behavior without an Ansible install.
var execCommand = exec.CommandContext

// Runner invokes the external orchestration engine. The zero value is not
// usable; construct with NewRunner.
type Runner struct {
	PlaybookBin  string
	InventoryBin string
	Stdout       io.Writer
	Stderr       io.Writer
	Stdin        io.Reader
}

// NewRunner returns a Runner bound to the default engine binaries and the
// process's standard streams.
func NewRunner() *Runner {
	return &Runner{
		PlaybookBin:  "ansible-playbook",
		InventoryBin: "ansible-inventory",
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		Stdin:        os.Stdin,
	}
}

// WritePlaybook renders the plan and writes it to w.
func WritePlaybook(p plan.Plan, w io.Writer) error {
	data, err := Render(p)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WritePlaybookFile renders the plan into the named file. "-" means stdout.
func WritePlaybookFile(p plan.Plan, path string) error {
	if path == "-" {
		return WritePlaybook(p, os.Stdout)
	}
	data, err := Render(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// RunPlaybook renders the plan into a temporary file, hands it to
// ansible-playbook with any extra engine arguments, and returns the engine's
// exit code. The temp file is removed on every exit path. A non-zero exit
// code is not an error here; it is the engine's verdict, relayed to the
// caller. The returned error covers only failures to render, stage, or spawn.
func (r *Runner) RunPlaybook(ctx context.Context, p plan.Plan, extraArgs []string) (int, error) {
	data, err := Render(p)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp("", "sshman-playbook-*.yml")
	if err != nil {
		return 0, fmt.Errorf("staging playbook: %w", err)
	}
	defer func() {
		if rmErr := os.Remove(tmp.Name()); rmErr != nil && !os.IsNotExist(rmErr) {
			logging.Warnf("could not remove staged playbook %s: %v", tmp.Name(), rmErr)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("staging playbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("staging playbook: %w", err)
	}

	args := append(append([]string{}, extraArgs...), tmp.Name())
	cmd := execCommand(ctx, r.PlaybookBin, args...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.Stdin = r.Stdin

	logging.Debugf("running %s with %d plays", r.PlaybookBin, len(p))
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 0, fmt.Errorf("running %s: %w", r.PlaybookBin, err)
	}
	return 0, nil
}
