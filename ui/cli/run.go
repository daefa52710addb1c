// Copyright (c) 2025 ToeiRei
// Sshman - declarative SSH access manager for Ansible fleets
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/toeirei/sshman/internal/i18n"
	"golang.org/x/term"
)

// ExitCodeError carries the orchestration engine's exit status up to the
// process entrypoint, so sshman exits with exactly the code ansible-playbook
// produced.
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf(i18n.T("run.engine_exit"), e.Code)
}

// newRunCmd compiles a fleet config and hands the playbook straight to
// ansible-playbook. Arguments after "--" are passed through to the engine.
func newRunCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "run <fleet-config> [-- <ansible-playbook args>]",
		Short: "Compile the fleet config and execute it with ansible-playbook",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := compileFromFile(args[0])
			if err != nil {
				return err
			}

			if !yes && !confirmRun(cmd) {
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("run.aborted"))
				return nil
			}

			code, err := newRunner().RunPlaybook(cmd.Context(), p, args[1:])
			if err != nil {
				return fmt.Errorf(i18n.T("run.error_engine"), err)
			}
			if code != 0 {
				return &ExitCodeError{Code: code}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "run without asking for confirmation")
	return cmd
}

// confirmRun asks before mutating the fleet. The terminal check and the
// reply read target the same stream: only when the command's input is an
// actual terminal is a prompt shown. Non-interactive callers (CI, cron,
// redirected stdin) get no prompt and proceed; they are expected to pass
// --yes when they want that explicit.
func confirmRun(cmd *cobra.Command) bool {
	in, ok := cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(in.Fd())) {
		return true
	}
	fmt.Fprint(cmd.OutOrStdout(), i18n.T("run.confirm_prompt"))
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "j", "ja":
		return true
	}
	return false
}
