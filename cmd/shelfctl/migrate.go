package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shelfwise/shelfwise-server/internal/store/sqlite"
)

func newMigrateCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the SQLite schema",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "shelfwise.db", "Path to the SQLite database")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := sqlite.OpenDB(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := sqlite.Migrate(cmd.Context(), db, newLogger().Logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s) to %s\n", applied, dbPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show which migrations have been applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := sqlite.OpenDB(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			statuses, err := sqlite.Status(cmd.Context(), db)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tSTATE\tSOURCE")
			for _, st := range statuses {
				state := "pending"
				if st.Applied {
					state = "applied"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\n", st.Version, state, st.Source)
			}
			return w.Flush()
		},
	})

	return cmd
}
