// Package cli holds the passwordanalyzer command line.
package cli

import (
	"github.com/spf13/cobra"
)

// RootCmd is the root command for passwordanalyzer
var RootCmd = &cobra.Command{
	Use:   "passwordanalyzer",
	Short: "Check passwords against a fixed checklist and score their strength",
	Long: `passwordanalyzer scores a password from 0 to 100, classifies it as Weak,
Medium or Strong and lists which requirements it meets.

Passwords are never logged or stored. Only the redacted analysis is kept
for report downloads.

Examples:
  # Start the web form on :8080
  passwordanalyzer serve

  # Analyze a single password
  passwordanalyzer analyze 'Tr0ub4dor&3'

  # Read the password from stdin and print JSON
  printf 'hunter2' | passwordanalyzer analyze --json`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}
