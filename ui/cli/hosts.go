// Copyright (c) 2025 ToeiRei
// Sshman - declarative SSH access manager for Ansible fleets
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/toeirei/sshman/internal/i18n"
)

// newHostsCmd resolves a host pattern against the Ansible inventory, which
// is handy for checking what an access entry will actually touch before
// running it.
func newHostsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hosts <pattern>",
		Short: "List the hosts a pattern selects in the Ansible inventory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hosts, err := newRunner().ListHosts(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf(i18n.T("hosts.error_list"), err)
			}
			if len(hosts) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), i18n.T("hosts.none_matched")+"\n", args[0])
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			for _, h := range hosts {
				fmt.Fprintf(w, "%s\t%s\n", h.Name, h.Address)
			}
			return w.Flush()
		},
	}
}
