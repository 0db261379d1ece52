// Command dimtable prints a registered table in the terminal.
//
//	dimtable --list
//	dimtable --table daily_sales --start 2024-03-04 --days 7
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/JonMunkholm/dimtable/internal/config"
	"github.com/JonMunkholm/dimtable/internal/core"
	_ "github.com/JonMunkholm/dimtable/internal/core/tables" // Register all tables
	"github.com/JonMunkholm/dimtable/internal/logging"
	"github.com/JonMunkholm/dimtable/internal/postgres"
)

type options struct {
	table   string
	start   string
	days    int
	list    bool
	verbose bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := pflag.NewFlagSet("dimtable", pflag.ContinueOnError)
	fs.StringVarP(&o.table, "table", "t", "", "key of the table to print")
	fs.StringVarP(&o.start, "start", "s", "", "first day column (YYYY-MM-DD), default today")
	fs.IntVarP(&o.days, "days", "d", 0, "number of day columns, default TABLE_DATE_WINDOW_DAYS")
	fs.BoolVarP(&o.list, "list", "l", false, "list the registered tables")
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "log queries and timings")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if !o.list && o.table == "" {
		return o, errors.New("--table is required unless --list is given")
	}
	return o, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(context.Background(), opts, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "dimtable:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	if opts.list {
		var infos []core.TableInfo
		for _, def := range core.All() {
			infos = append(infos, def.Info)
		}
		return listTables(out, infos)
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.start != "" {
		cfg.Table.StartDate = opts.start
	}
	if opts.days > 0 {
		cfg.Table.DateWindowDays = opts.days
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	logger := logging.New(os.Stderr, level, "text")

	pool, err := postgres.Connect(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	tbl, err := core.NewService(pool, cfg.Table, logger).Open(ctx, opts.table)
	if err != nil {
		return err
	}
	return printTable(out, tbl.Render())
}

func listTables(out io.Writer, infos []core.TableInfo) error {
	for _, info := range infos {
		mode := "editable"
		if info.ReadOnly {
			mode = "read-only"
		}
		if _, err := fmt.Fprintf(out, "%-24s %-12s %s (%s)\n", info.Key, info.Group, info.Label, mode); err != nil {
			return err
		}
	}
	return nil
}
