package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"greenmetrics/adapters/db/postgres/migrations"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, logger, db, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()
			return migrations.NewMigrator(db.DB, logger).Up(ctx)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, logger, db, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			statuses, err := migrations.NewMigrator(db.DB, logger).Status(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tNAME\tAPPLIED")
			for _, s := range statuses {
				fmt.Fprintf(tw, "%s\t%s\t%t\n", s.Version, s.Name, s.Applied)
			}
			return tw.Flush()
		},
	})
	return cmd
}
