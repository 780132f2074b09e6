package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"jobfeed/internal/errors"
	"jobfeed/internal/storage"
	"jobfeed/internal/vantaa"
)

func newInitDBCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the destination table if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Database.URL == "" {
				return errors.WithHint(
					errors.Wrap(errors.ErrInvalidConfig, "database.url is required"),
					"set database.url in jobfeed.toml or JOBFEED_DATABASE_URL",
				)
			}
			err := storage.Provision(cmd.Context(), c.cfg.Database.URL, c.cfg.Database.Table,
				vantaa.PersistedSchema(), vantaa.PrimaryKey, c.log.Named("init-db"))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Table %s is ready\n", c.cfg.Database.Table)
			return nil
		},
	}
}
