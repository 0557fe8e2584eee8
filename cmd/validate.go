// =============================================================================
// Z Report Exporter - Validate Command
// =============================================================================
//
// COMMAND USAGE:
//   zreport validate [files...]
//
// Checks every record and prints the problems found and the document name
// each record would export to. Nothing is written.
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/zreport/internal/naming"
	"github.com/ginjaninja78/zreport/internal/validation"
)

var strictValidation bool

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Check Z reports without exporting them",
	Long: `The validate command checks Z reports for missing fields, invalid
transaction codes and cash count problems. Without arguments every input in
the input directory is checked.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&strictValidation, "strict", false, "Treat warnings as errors")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	files, err := inputFiles(cfg, args)
	if err != nil {
		return err
	}

	validator := validation.NewValidatorWithOptions(validation.ValidationOptions{TreatWarningsAsErrors: strictValidation})
	out := cmd.OutOrStdout()
	invalid := 0

	for _, file := range files {
		records, err := readRecords(cfg, file)
		if err != nil {
			invalid++
			fmt.Fprintf(out, "%s: %v\n", file, err)
			continue
		}

		for i, record := range records {
			result := validator.Validate(record)
			status := "ok"
			if !result.IsValid {
				status = "INVALID"
				invalid++
			}

			fmt.Fprintf(out, "%s #%d [%s] %s -> %s\n", file, i+1, status, naming.Identity(record.Z.String()), naming.Filename(record))
			if len(result.Errors) > 0 {
				fmt.Fprintln(out, validation.FormatErrors(result.Errors))
			}
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%d invalid record(s)", invalid)
	}
	return nil
}
