// Command sqlframe-cli inspects relations in a SQLite database through the
// sqlframe virtual dataframe: it compiles lazy pipelines to SQL, shows the
// generated statements and materializes small previews.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sqlframe/sqlframe"
	"github.com/sqlframe/sqlframe/internal/version"
)

var (
	dbPath   string
	printSQL bool
	noCache  bool
	filters  []string

	sqlColor  = color.New(color.FgCyan)
	warnColor = color.New(color.FgYellow)
)

func main() {
	root := &cobra.Command{
		Use:           "sqlframe-cli",
		Short:         "Lazy SQL dataframe inspector",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "", "path to the SQLite database")
	root.PersistentFlags().BoolVar(&printSQL, "print-sql", false, "echo every executed statement")
	root.PersistentFlags().BoolVar(&noCache, "no-cache", false, "disable the aggregate catalog")
	root.PersistentFlags().StringArrayVar(&filters, "filter", nil, "WHERE condition to apply (repeatable)")

	root.AddCommand(headCmd(), shapeCmd(), sqlCmd(), aggCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sqlframe-cli:", err)
		os.Exit(1)
	}
}

func openFrame(ctx context.Context, relationName string) (*sqlframe.VDataFrame, func(), error) {
	if dbPath == "" {
		return nil, nil, fmt.Errorf("--db is required")
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open %s", dbPath)
	}
	closeDB := func() { _ = db.Close() }

	if printSQL {
		if err := sqlframe.SetOption("print_sql", true); err != nil {
			closeDB()
			return nil, nil, err
		}
	}
	if noCache {
		if err := sqlframe.SetOption("cache_enabled", false); err != nil {
			closeDB()
			return nil, nil, err
		}
	}
	sqlframe.SetWarnSink(func(format string, args ...interface{}) {
		warnColor.Fprintf(os.Stderr, format+"\n", args...)
	})

	df, err := sqlframe.FromRelation(ctx, sqlframe.NewDBExecutor(db), relationName)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	for _, f := range filters {
		if err := df.Filter(ctx, sqlframe.Raw(f, sqlframe.CatBool)); err != nil {
			closeDB()
			return nil, nil, errors.Wrapf(err, "filter %q", f)
		}
	}
	return df, closeDB, nil
}

func headCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "head <relation>",
		Short: "Print the first rows of a relation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			df, closeDB, err := openFrame(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer closeDB()

			table, err := df.Head(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			fmt.Print(table.String())
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of rows to print")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of rows to skip")
	return cmd
}

func shapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shape <relation>",
		Short: "Print (rows, columns) of a relation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			df, closeDB, err := openFrame(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer closeDB()

			rows, cols, err := df.Shape(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("(%d, %d)\n", rows, cols)
			return nil
		},
	}
}

func sqlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sql <relation>",
		Short: "Print the SQL the pipeline compiles to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			df, closeDB, err := openFrame(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer closeDB()

			sqlColor.Println(df.CurrentSQL())
			return nil
		},
	}
}

func aggCmd() *cobra.Command {
	var funcsFlag, colsFlag string
	cmd := &cobra.Command{
		Use:   "agg <relation>",
		Short: "Compute aggregates over columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			df, closeDB, err := openFrame(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer closeDB()

			funcs := splitList(funcsFlag)
			if len(funcs) == 0 {
				return fmt.Errorf("--funcs is required, e.g. --funcs min,max,avg")
			}
			table, err := df.Aggregate(cmd.Context(), funcs, splitList(colsFlag))
			if err != nil {
				return err
			}
			fmt.Print(table.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&funcsFlag, "funcs", "", "comma-separated aggregate functions")
	cmd.Flags().StringVar(&colsFlag, "columns", "", "comma-separated columns (default: all)")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Print(version.Info().String())
		},
	}
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
