// Copyright (c) 2025 ToeiRei
// Sshman - declarative SSH access manager for Ansible fleets
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the command-line interface (CLI) for sshman using the
// Cobra library. It defines the root command, the subcommands (generate,
// run, hosts), flags, and the shared service setup.

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/toeirei/sshman/buildvars"
	"github.com/toeirei/sshman/internal/ansible"
	"github.com/toeirei/sshman/internal/config"
	"github.com/toeirei/sshman/internal/i18n"
	"github.com/toeirei/sshman/internal/logging"
	"github.com/toeirei/sshman/internal/model"
	"github.com/toeirei/sshman/internal/plan"
)

var version = "dev" // this will be set by the linker

var cfgFile string
var verbose bool
var showVersionFlag bool

var appConfig config.Config

// configDefaults is the single source of fallback settings; LoadConfig and
// the post-load backfill both read from it.
var configDefaults = map[string]any{
	"language":              "en",
	"ansible.playbook_bin":  "ansible-playbook",
	"ansible.inventory_bin": "ansible-inventory",
}

// setupDefaultServices loads the app settings and initializes i18n and
// logging. It runs before every subcommand.
func setupDefaultServices(cmd *cobra.Command, args []string) error {
	optionalConfigPath, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}

	appConfig, err = config.LoadConfig[config.Config](cmd, configDefaults, optionalConfigPath)
	if err != nil {
		return fmt.Errorf(i18n.T("config.error_load"), err)
	}

	// Backfill values a user config file left empty.
	if appConfig.Language == "" {
		appConfig.Language = configDefaults["language"].(string)
	}
	if appConfig.Ansible.PlaybookBin == "" {
		appConfig.Ansible.PlaybookBin = configDefaults["ansible.playbook_bin"].(string)
	}
	if appConfig.Ansible.InventoryBin == "" {
		appConfig.Ansible.InventoryBin = configDefaults["ansible.inventory_bin"].(string)
	}

	i18n.Init(appConfig.Language)
	logging.SetVerbose(verbose)
	return nil
}

// Execute runs the CLI entrypoint. The root main package should call this
// function and handle process exit.
func Execute() error {
	return NewRootCmd().Execute()
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	// Only proceed if the user has explicitly set the --config flag.
	if cmd.Flags().Changed("config") {
		path, err := cmd.Flags().GetString("config")
		if err != nil {
			return nil, fmt.Errorf("could not read --config flag: %w", err)
		}
		if path == "" {
			return nil, nil
		}
		// Make sure the user-provided file exists to avoid unwanted behavior.
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
		}
		return &path, nil
	}
	return nil, nil
}

// NewRootCmd creates and configures a new root cobra command. This function
// is used to create the main application command as well as fresh instances
// for isolated testing.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sshman",
		Short: "Sshman compiles declarative SSH access rules into Ansible playbooks.",
		Long: `Sshman reads a fleet config describing users, their public keys
and their per-host-group roles, and compiles it into an idempotent
Ansible playbook that plants accounts, sudo policy and authorized
keys across the fleet. Revoking access only removes keys and managed
group membership; accounts and home directories are never deleted.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if showVersionFlag {
				fmt.Printf("%s\n", compositeVersion())
				os.Exit(0)
			}
			return setupDefaultServices(cmd, args)
		},
	}

	cmd.Version = compositeVersion()

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVarP(&showVersionFlag, "version", "V", false, "Print version and exit")
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	cmd.PersistentFlags().String("language", "en", `CLI language ("en", "de")`)

	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newAuditCmd())
	cmd.AddCommand(newHostsCmd())

	return cmd
}

func compositeVersion() string {
	v := buildvars.VersionOrDefault(version)
	if buildvars.Commit != "" {
		v = v + " (" + buildvars.Commit + ")"
	}
	return v
}

// newRunner binds an engine runner to the configured binaries.
func newRunner() *ansible.Runner {
	r := ansible.NewRunner()
	r.PlaybookBin = appConfig.Ansible.PlaybookBin
	r.InventoryBin = appConfig.Ansible.InventoryBin
	return r
}

// parseFleetFile reads and validates a fleet config file. All failures
// surface before anything is compiled, written or run.
func parseFleetFile(path string) (*model.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf(i18n.T("generate.error_read_config"), path, err)
	}
	cfg, err := model.ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf(i18n.T("generate.error_invalid_config"), err)
	}
	return cfg, nil
}

// compileFromFile parses a fleet config file and compiles the provisioning
// plan. No partial plan ever leaves this function.
func compileFromFile(path string) (plan.Plan, error) {
	cfg, err := parseFleetFile(path)
	if err != nil {
		return nil, err
	}
	p, err := plan.Compile(cfg)
	if err != nil {
		return nil, fmt.Errorf(i18n.T("generate.error_compile"), err)
	}
	return p, nil
}
