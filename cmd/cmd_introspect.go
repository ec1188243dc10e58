package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func introspectCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "introspect [table]",
		Short: "Generate a query model from a database table",
		Long: "Read the columns of a table from the configured database and print a " +
			"query model for it. Without a table the tables of the current schema are listed.",
		Args: cobra.MaximumNArgs(1),
		RunE: cmdIntrospect,
	}
	c.Flags().StringP("schema", "s", "", "schema of the table, defaults to the current schema")
	return c
}

func cmdIntrospect(cmd *cobra.Command, args []string) error {
	if err := setup(cpath); err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := initDB(ctx); err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	d, err := conf.DatabaseDialect()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		return listTables(ctx, cmd.OutOrStdout(), db, d)
	}

	schema, _ := cmd.Flags().GetString("schema")
	return introspectTable(ctx, cmd.OutOrStdout(), db, d, schema, args[0])
}

func listTables(ctx context.Context, w io.Writer, db *sql.DB, d core.Dialect) error {
	tables, err := core.Tables(ctx, db, d)
	if err != nil {
		return err
	}
	for _, t := range tables {
		fmt.Fprintln(w, t)
	}
	return nil
}

func introspectTable(ctx context.Context, w io.Writer, db *sql.DB, d core.Dialect, schema, table string) error {
	cols, err := core.Introspect(ctx, db, d, schema, table)
	if err != nil {
		return err
	}
	log.Infof("Introspected %d columns of %s", len(cols), table)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(core.ModelFromColumns(table, cols)); err != nil {
		return err
	}
	return enc.Close()
}
