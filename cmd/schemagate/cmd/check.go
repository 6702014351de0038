package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	valid "github.com/raywall/json-schema-gate"
)

var checkDraft string

var checkCmd = &cobra.Command{
	Use:   "check <schema-file>...",
	Short: "Check schema files without starting the server",
	Long: `Check that every schema file is a well-formed JSON Schema: valid
against its draft's meta-schema with every $ref resolvable.

Exits non-zero if any file fails.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkDraft, "draft", "draft-04", "draft for schemas without $schema (draft-04, draft-06, draft-07, hybrid)")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	draft, err := valid.ParseDraft(checkDraft)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		if _, err := valid.New(path, valid.WithDraft(draft)); err != nil {
			failed++
			fmt.Fprintf(out, "FAIL  %s\n      %v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "ok    %s\n", path)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d schemas failed the check", failed, len(args))
	}
	return nil
}
