package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"jobfeed/internal/service"
)

func newRunCmd(c *cli) *cobra.Command {
	var inputFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once",
		Long: `Fetch the feed, validate and transform every record, and insert the batch
into the destination table in a single transaction. Any failure aborts the run
and leaves the table unchanged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := c.openService(inputFile)
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := svc.RunOnce(cmd.Context(), service.TriggerManual)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Committed %d record(s) to %s in %s\n",
				result.RowsWritten, c.cfg.Database.Table, result.Duration.Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "Read the feed from a saved JSON file instead of source.url")
	return cmd
}
