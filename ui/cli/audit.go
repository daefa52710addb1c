// Copyright (c) 2025 ToeiRei
// Sshman - declarative SSH access manager for Ansible fleets
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/toeirei/sshman/internal/ansible"
	"github.com/toeirei/sshman/internal/i18n"
	"github.com/toeirei/sshman/internal/logging"
	"github.com/toeirei/sshman/internal/plan"
)

// newAuditCmd compiles the read-only drift audit and runs it against the
// fleet: the engine fails when any host carries an authorized key the fleet
// config does not grant. With --output the audit playbook is written instead
// of run. Nothing in the audit mutates a host, so there is no confirmation.
func newAuditCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "audit <fleet-config> [-- <ansible-playbook args>]",
		Short: "Check fleet hosts for authorized keys the config does not grant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := parseFleetFile(args[0])
			if err != nil {
				return err
			}
			p, err := plan.CompileAudit(cfg)
			if err != nil {
				return fmt.Errorf(i18n.T("generate.error_compile"), err)
			}

			if output != "" {
				if err := ansible.WritePlaybookFile(p, output); err != nil {
					return fmt.Errorf(i18n.T("generate.error_write"), err)
				}
				if output != "-" {
					logging.Infof(i18n.T("generate.wrote_playbook"), len(p), output)
				}
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

	cmd.Flags().StringVarP(&output, "output", "o", "", `write the audit playbook instead of running it ("-" for stdout)`)
	return cmd
}
