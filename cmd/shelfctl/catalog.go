package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shelfwise/shelfwise-server/internal/catalog"
	"github.com/shelfwise/shelfwise-server/internal/search"
	"github.com/shelfwise/shelfwise-server/internal/service"
	"github.com/shelfwise/shelfwise-server/internal/store/sqlite"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Import or export the book catalog",
	}
	cmd.AddCommand(newCatalogImportCmd())
	cmd.AddCommand(newCatalogExportCmd())
	return cmd
}

func newCatalogImportCmd() *cobra.Command {
	var dataPath string

	cmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Upsert a YAML catalog and index it for search",
		Long: `Reads a YAML catalog and upserts every book into the database of the data
directory, then indexes the books for search. Books without a slug get one
derived from the title. Existing slugs keep their catalog position.

Stop the server first: the search index allows a single writer.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			books, err := catalog.Decode(f)
			if err != nil {
				return err
			}

			log := newLogger().Logger

			db, err := sqlite.Open(filepath.Join(dataPath, "shelfwise.db"), log)
			if err != nil {
				return err
			}
			defer db.Close()

			index, err := search.NewSearchIndex(search.Options{DataPath: dataPath, Logger: log})
			if err != nil {
				return err
			}
			defer index.Close()

			result, err := service.NewBookService(db, index, log).Import(cmd.Context(), books)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d book(s): %d new, %d updated\n",
				len(books), result.Inserted, result.Updated)
			return nil
		},
	}
	cmd.Flags().StringVar(&dataPath, "data", ".", "Server data directory")

	return cmd
}

func newCatalogExportCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the catalog as YAML to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := sqlite.Open(dbPath, newLogger().Logger)
			if err != nil {
				return err
			}
			defer db.Close()

			books, err := db.ListAllBooks(cmd.Context())
			if err != nil {
				return fmt.Errorf("list books: %w", err)
			}
			return catalog.Encode(cmd.OutOrStdout(), books)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "shelfwise.db", "Path to the SQLite database")

	return cmd
}
