package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
	verbose    bool

	// Mode flags
	resumeRun          bool
	forceRun           bool
	singleRun          bool
	exportOnly         bool
	validateRun        bool
	validateImages     bool
	fetchMissingImages bool

	// Overrides
	inputFile   string
	successLog  string
	imagesDir   string
	exportFile  string
	concurrent  int
	mirrorsFlag []string
)

// rootCmd fetches profiles for every account in the following list
var rootCmd = &cobra.Command{
	Use:   "followsync",
	Short: "Resumable profile and avatar sync from Nitter-style mirrors",
	Long: `followsync reads an exported following list, fetches each account's
profile from an ordered list of mirrors and stores every result in an
append-only log. Avatar and banner images are downloaded as new versions
whenever their URL changes.

A run can be stopped at any time with Ctrl-C and resumed later without
fetching stored accounts again.`,
	Example: `  # Fetch accounts not yet stored
  followsync

  # Continue after an interrupt
  followsync --resume

  # Refetch every account
  followsync --force

  # List stored accounts with missing or broken image URLs
  followsync --validate-images

  # Rebuild the Cosense export only
  followsync --export-only`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSync,
}

// Execute runs the root command and exits 1 on fatal errors
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.followsync.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only print failures and the summary")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	flags := rootCmd.Flags()
	flags.BoolVar(&resumeRun, "resume", false, "fetch only accounts not yet stored")
	flags.BoolVar(&forceRun, "force", false, "fetch every account again")
	flags.BoolVar(&singleRun, "single", false, "fetch one account and print it without saving")
	flags.BoolVar(&exportOnly, "export-only", false, "write the Cosense export from stored records and exit")
	flags.BoolVar(&validateRun, "validate", false, "list input accounts missing from the store")
	flags.BoolVar(&validateImages, "validate-images", false, "list stored accounts with missing or malformed image URLs")
	flags.BoolVar(&fetchMissingImages, "fetch-missing-images", false, "refetch accounts reported by --validate-images")

	flags.StringVar(&inputFile, "input", "", "following list (default data/following.js)")
	flags.StringVar(&successLog, "success-log", "", "result log (default logs/success.jsonl)")
	flags.StringVar(&imagesDir, "images-dir", "", "image directory (default images)")
	flags.StringVar(&exportFile, "export-file", "", "Cosense export path (default output/cosense_followings.json)")
	flags.IntVar(&concurrent, "concurrent", 0, "number of concurrent image downloads")
	flags.StringSliceVar(&mirrorsFlag, "mirror", nil, "mirror base URL, repeatable, in priority order")

	rootCmd.MarkFlagsMutuallyExclusive("resume", "force", "export-only", "validate", "validate-images", "fetch-missing-images")
	rootCmd.MarkFlagsMutuallyExclusive("single", "export-only")
	rootCmd.MarkFlagsMutuallyExclusive("single", "validate")
	rootCmd.MarkFlagsMutuallyExclusive("single", "validate-images")
	rootCmd.MarkFlagsMutuallyExclusive("quiet", "verbose")

	rootCmd.SetVersionTemplate(`followsync {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// commandLineFlags collects the overrides that were set explicitly
func commandLineFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	if inputFile != "" {
		flags["input"] = inputFile
	}
	if successLog != "" {
		flags["success-log"] = successLog
	}
	if imagesDir != "" {
		flags["images-dir"] = imagesDir
	}
	if exportFile != "" {
		flags["export-file"] = exportFile
	}
	if cmd.Flags().Changed("concurrent") {
		flags["concurrent"] = concurrent
	}
	if len(mirrorsFlag) > 0 {
		flags["mirrors"] = mirrorsFlag
	}
	switch {
	case verbose:
		flags["log-level"] = "debug"
	case logLevel != "":
		flags["log-level"] = logLevel
	}
	return flags
}
