package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	valid "github.com/raywall/json-schema-gate"
)

var (
	validateSchema string
	validateDraft  string
)

var validateCmd = &cobra.Command{
	Use:   "validate --schema <schema-file> <document-file>...",
	Short: "Validate documents against a schema",
	Long: `Validate JSON documents against a schema and print every violation,
ordered by document path.

Exits non-zero if any document is malformed or does not conform.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateSchema, "schema", "s", "", "schema file (JSON or YAML)")
	validateCmd.Flags().StringVar(&validateDraft, "draft", "draft-04", "draft for schemas without $schema")
	_ = validateCmd.MarkFlagRequired("schema")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	draft, err := valid.ParseDraft(validateDraft)
	if err != nil {
		return err
	}

	validator, err := valid.New(validateSchema, valid.WithDraft(draft))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read document '%s': %w", path, err)
		}

		_, err = validator.ValidateBytes(data)
		var ve *valid.ValidationError
		switch {
		case err == nil:
			fmt.Fprintf(out, "ok    %s\n", path)
		case errors.As(err, &ve):
			failed++
			fmt.Fprintf(out, "FAIL  %s\n", path)
			for _, v := range ve.Violations {
				fmt.Fprintf(out, "      %-24s %-32s %s\n", pointer(v.Path), v.Constraint, v.Message)
			}
		default:
			failed++
			fmt.Fprintf(out, "FAIL  %s\n      %v\n", path, err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed validation", failed, len(args))
	}
	return nil
}

// pointer renders the root path visibly.
func pointer(p valid.Path) string {
	if len(p) == 0 {
		return "/"
	}
	return p.String()
}
