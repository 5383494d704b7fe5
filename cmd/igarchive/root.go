package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"igarchive/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	noColor    bool
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "igarchive",
	Short: "Archive Instagram profiles, highlights, stories and posts",
	Long: `igarchive drives a real browser session through Instagram pages and
keeps what the pages load: the API responses, the highlight and story
reels, and every photo and video they reference.

Targets can be usernames (@alice), profile, story, highlight, post or reel
URLs, or highlight:<id> shorthands. Re-running over the same archive only
fetches what is new.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.SetColor(false)
		}
		if !quiet && cmd.Name() == "archive" {
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.igarchive.yaml or ~/.config/igarchive/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "do not print the logo")

	rootCmd.SetVersionTemplate(`igarchive {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
