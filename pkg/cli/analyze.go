package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/payback159/passwordanalyzer/pkg/analyzer"
	"github.com/payback159/passwordanalyzer/pkg/models"
	"github.com/payback159/passwordanalyzer/pkg/security"
	"github.com/spf13/cobra"
)

var analyzeJSON bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze [password]",
	Short: "Analyze a password and print the checklist",
	Long: `Analyze a single password. Without an argument the first line of stdin is read,
which keeps the password out of the shell history.`,
	Example: `  passwordanalyzer analyze 'Passw0rd!'
  printf 'Passw0rd!' | passwordanalyzer analyze --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the result as JSON")
	RootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	var password string
	if len(args) == 1 {
		password = args[0]
	} else {
		var err error
		password, err = readPassword(cmd.InOrStdin())
		if err != nil {
			return err
		}
	}

	if err := security.ValidatePassword(password, models.MaxPasswordLength); err != nil {
		return err
	}

	result := analyzer.Analyze(password).Redacted()
	out := cmd.OutOrStdout()
	if analyzeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printResult(out, result)
	return nil
}

// readPassword returns the first line of r without its line ending
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printResult(w io.Writer, result models.AnalysisResult) {
	fmt.Fprintf(w, "Strength: %s\n", result.Strength)
	fmt.Fprintf(w, "Score:    %d/%d\n", result.Score, result.MaxScore)
	fmt.Fprintf(w, "Length:   %d\n", result.Length)
	fmt.Fprintln(w)
	for _, req := range result.RequirementsMet {
		fmt.Fprintf(w, "  [x] %s\n", req)
	}
	for _, req := range result.RequirementsMissing {
		fmt.Fprintf(w, "  [ ] %s\n", req)
	}
}
