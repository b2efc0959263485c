package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a local file without touching the repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	// Local validation needs no repository credentials; use defaults.
	validator := &Validator{
		maxFileSizeMB: 50,
		pdf:           pdfTextExtractor{},
		ocr:           NewTesseractOCR(),
	}

	out := cmd.OutOrStdout()
	path := args[0]

	if ok, reason := validator.ValidateSafety(path); !ok {
		fmt.Fprintf(out, "unsafe: %s\n", reason)
		return nil
	}

	verdict := validator.Validate(path)
	if verdict.Valid {
		fmt.Fprintf(out, "valid: %s\n", verdict.Reason)
	} else {
		fmt.Fprintf(out, "invalid: %s\n", verdict.Reason)
	}
	return nil
}
