package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"igarchive/pkg/auth"
	"igarchive/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored Instagram credentials",
	Long: `Manage the Instagram login used when the browser session is logged out.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables IGARCHIVE_USERNAME and IGARCHIVE_PASSWORD (read only)

Never share your credentials or config files!`,
}

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store Instagram credentials securely",
	Example: `  # Interactive login
  igarchive auth login

  # Login with username
  igarchive auth login myusername`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout <username>",
	Short: "Remove stored credentials",
	Args:  cobra.ExactArgs(1),
	Run:   runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List stored accounts",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(statusCmd)
}

func newManager() *auth.Manager {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}
	return manager
}

func runLogin(cmd *cobra.Command, args []string) {
	manager := newManager()

	var username string
	if len(args) > 0 {
		username = args[0]
	}

	creds, err := auth.NewTerminalPrompter().Prompt(context.Background(), username)
	if err != nil {
		ui.PrintError("Failed to read credentials", err.Error())
		os.Exit(1)
	}

	if err := manager.Store(creds); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess(fmt.Sprintf("Account saved: %s", creds.Username))
	fmt.Println("\nThe password is only checked the next time the browser has to log in:")
	fmt.Println("  igarchive archive <target>")
}

func runLogout(cmd *cobra.Command, args []string) {
	manager := newManager()

	if err := manager.Delete(args[0]); err != nil {
		ui.PrintError("Failed to remove account", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Account removed: " + args[0])
}

func runStatus(cmd *cobra.Command, args []string) {
	manager := newManager()

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		os.Exit(1)
	}

	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'igarchive auth login' to add an account")
		return
	}

	ui.PrintHighlight("Stored Accounts")
	fmt.Println()
	for i, account := range accounts {
		sanitized := auth.Sanitize(account)
		fmt.Printf("%d. Username: %s\n", i+1, sanitized.Username)
		fmt.Printf("   Password: %s\n", sanitized.Password)
		if !sanitized.LastModified.IsZero() {
			fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Println()
	}
}
