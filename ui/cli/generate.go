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
)

// newGenerateCmd compiles a fleet config and writes the playbook without
// touching any host.
func newGenerateCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "generate <fleet-config>",
		Short: "Compile the fleet config into an Ansible playbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := compileFromFile(args[0])
			if err != nil {
				return err
			}
			if err := ansible.WritePlaybookFile(p, output); err != nil {
				return fmt.Errorf(i18n.T("generate.error_write"), err)
			}
			if output != "-" {
				logging.Infof(i18n.T("generate.wrote_playbook"), len(p), output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", `write the playbook to this file ("-" for stdout)`)
	return cmd
}
