package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"followsync/pkg/config"
	"followsync/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage followsync configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (FOLLOWSYNC_*)
  - Configuration file
  - Default values (lowest priority)`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created as '.followsync.yaml' in the current directory
unless a different path is given with --config.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values,
and check that the input list exists and the output directories can be
created.`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# followsync configuration file
#
# Every option can also be set with an environment variable prefixed
# with FOLLOWSYNC_, for example FOLLOWSYNC_MIRRORS or FOLLOWSYNC_LOG_LEVEL.

# Mirrors are tried in this order for every account
mirrors:
  endpoints:
%s
  profile_path: "/i/user/"
  timeout: 10s
  # user_agent: "Mozilla/5.0 ..."
  # Style fragment that marks a banner container with no image
  banner_default_marker: "background-color"

# Rules for turning mirror proxy links into origin URLs
canonical:
  proxy_marker: "/pic/"
  origin_host: "pbs.twimg.com"
  default_asset_host: "abs.twimg.com"

input:
  following_file: "data/following.js"

store:
  success_log: "logs/success.jsonl"

assets:
  base_directory: "images"
  concurrent_downloads: 6
  download_timeout: 10s
  # 0 means no limit
  requests_per_minute: 0
  # auto, symlink or copy
  latest_alias: "auto"

# Random delay between accounts
pacing:
  min_delay: 700ms
  max_delay: 1500ms

export:
  output_file: "output/cosense_followings.json"

logging:
  # debug, info, warn, error
  level: "info"
  # Optional JSON log file
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".followsync.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	var mirrors strings.Builder
	for i, m := range config.DefaultMirrors {
		if i > 0 {
			mirrors.WriteByte('\n')
		}
		fmt.Fprintf(&mirrors, "    - %q", m)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, []byte(fmt.Sprintf(exampleConfig, mirrors.String())), 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	term := ui.NewTerminal(os.Stdout, false)
	term.Info("Created", configPath)
	term.Line("Run 'followsync config validate' to check it")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, commandLineFlags(cmd))
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	fmt.Print(string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, commandLineFlags(cmd))
	if err != nil {
		return err
	}

	var problems []string
	if _, err := os.Stat(cfg.Input.FollowingFile); err != nil {
		problems = append(problems, fmt.Sprintf("input list not readable: %v", err))
	}
	for _, dir := range []string{
		filepath.Dir(cfg.Store.SuccessLog),
		cfg.Assets.BaseDirectory,
		filepath.Dir(cfg.Export.OutputFile),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create %s: %v", dir, err))
		}
	}

	term := ui.NewTerminal(os.Stdout, false)
	if len(problems) > 0 {
		for _, p := range problems {
			term.Warn("  - " + p)
		}
		return fmt.Errorf("configuration has %d problems", len(problems))
	}

	term.Info("Mirrors", strings.Join(cfg.Mirrors.Endpoints, ", "))
	term.Info("Input", cfg.Input.FollowingFile)
	term.Info("Store", cfg.Store.SuccessLog)
	term.Info("Images", cfg.Assets.BaseDirectory)
	term.Info("Export", cfg.Export.OutputFile)
	term.Line("Configuration is valid")
	return nil
}
