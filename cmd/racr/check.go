package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	racrparser "github.com/bitkis/racr-parser"
	"github.com/bitkis/racr-parser/racr"
)

var checkCmd = &cobra.Command{
	Use:   "check <file>...",
	Short: "Parse and lint racr files",
	Long:  "Parse each file and run the semantic checks (field overlap, duplicate idents, reset value width). Exits non-zero on the first file with errors.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().Bool("no-lint", false, "Stop after parsing, skip semantic checks")

	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	verbose := viper.GetBool("verbose")
	noLint, _ := cmd.Flags().GetBool("no-lint")

	failed := false
	for _, file := range args {
		src, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("reading %s: %w", file, err)
		}

		items, err := racrparser.ParseContent(src)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", file, err)
			failed = true
			continue
		}

		if verbose {
			fmt.Fprintf(os.Stderr, "%s: %d item(s)\n", file, len(items))
		}

		if noLint {
			continue
		}

		diags, err := racr.ValidateOrError(items)
		for _, d := range diags {
			fmt.Fprintf(os.Stderr, "%s: %s\n", file, d)
		}
		if err != nil {
			failed = true
		}
	}

	if failed {
		return fmt.Errorf("check failed")
	}
	return nil
}
