package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/zreport/internal/naming"
	"github.com/ginjaninja78/zreport/internal/store"
)

// listCmd prints the records of the JSON log.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the records in the JSON log",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		records, err := store.New(cfg.LogFile).Load()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-5s %-20s %-12s %s\n", "#", "Z", "Date", "Document")
		for i, record := range records {
			fmt.Fprintf(out, "%-5d %-20s %-12s %s\n",
				i+1,
				naming.Identity(record.Z.String()),
				record.Date.String(),
				naming.Filename(record),
			)
		}
		fmt.Fprintf(out, "%d record(s) in %s\n", len(records), cfg.LogFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
