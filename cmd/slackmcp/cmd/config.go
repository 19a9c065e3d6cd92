package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/slackmcp/configs"
	"github.com/Aman-CERP/slackmcp/internal/config"
	"github.com/Aman-CERP/slackmcp/internal/output"
)

func newConfigCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage the slackmcp configuration.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/slackmcp/config.yaml)
  3. Project config (.slackmcp.yaml)
  4. .env in the project directory
  5. Environment variables (SLACKMCP_*, DATABASE_URL, OPENAI_API_KEY)`,
		Example: `  # Create user config from template
  slackmcp config init

  # Show effective configuration (merged from all sources)
  slackmcp config show

  # Print user config file path
  slackmcp config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd(g))
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create user configuration file",
		Long: `Create the user configuration file from a commented template.

The file is created at ~/.config/slackmcp/config.yaml
(or $XDG_CONFIG_HOME/slackmcp/config.yaml if XDG_CONFIG_HOME is set).
With --force an existing file is backed up and replaced.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Back up and overwrite an existing configuration")

	return cmd
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())
	configPath := config.GetUserConfigPath()

	if config.UserConfigExists() {
		if !force {
			out.Warning("User configuration already exists")
			out.Statusf("📁", "Location: %s", configPath)
			out.Status("💡", "Use --force to back it up and start from the template")
			return nil
		}
		backupPath, err := config.BackupUserConfig()
		if err != nil {
			return fmt.Errorf("failed to backup config: %w", err)
		}
		out.Statusf("💾", "Backup: %s", backupPath)
	}

	if err := os.MkdirAll(config.GetUserConfigDir(), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(configs.UserConfigTemplate), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out.Success("Created user configuration")
	out.Statusf("📁", "Location: %s", configPath)
	out.Newline()
	out.Status("📋", "Next steps:")
	out.Status("", "  1. Set database.url or DATABASE_URL")
	out.Status("", "  2. Set OPENAI_API_KEY for semantic search")
	out.Status("", "  3. Run 'slackmcp doctor' to verify")
	return nil
}

func newConfigShowCmd(g *globals) *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long: `Show the configuration with secrets masked.

--source selects what to show: merged (default), user, project or defaults.
user and project show that file applied over the defaults.`,
		Example: `  slackmcp config show
  slackmcp config show --json
  slackmcp config show --source user`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.runConfigShow(cmd, jsonOutput, source)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, user, project, defaults")

	return cmd
}

func (g *globals) runConfigShow(cmd *cobra.Command, jsonOutput bool, source string) error {
	out := output.New(cmd.OutOrStdout())

	var (
		cfg *config.Config
		err error
	)
	switch source {
	case "merged":
		cfg, err = config.Load(g.projectDir())
	case "defaults":
		cfg = config.NewConfig()
	case "user":
		path := config.GetUserConfigPath()
		if !config.UserConfigExists() {
			out.Warning("No user configuration file found")
			out.Statusf("📁", "Expected at: %s", path)
			out.Status("💡", "Run 'slackmcp config init' to create one")
			return nil
		}
		cfg, err = config.LoadFile(path)
	case "project":
		path := config.ProjectConfigPath(g.projectDir())
		if path == "" {
			out.Warning("No project configuration file found")
			out.Status("💡", "Create .slackmcp.yaml in the project directory")
			return nil
		}
		cfg, err = config.LoadFile(path)
	default:
		return fmt.Errorf("unknown source %q: use merged, user, project or defaults", source)
	}
	if err != nil {
		return err
	}

	cfg = cfg.Redacted()
	if jsonOutput {
		return out.JSON(cfg)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}
