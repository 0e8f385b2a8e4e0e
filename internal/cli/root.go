// Package cli implements the docquery command line tool.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/goliatone/go-docquery/config"
	"github.com/goliatone/go-docquery/docstore"
	"github.com/goliatone/go-docquery/docstore/sqlstore"
	"github.com/goliatone/go-docquery/logging"
	"github.com/goliatone/go-docquery/pkg/di"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	ConfigPath string
	Driver     string
	DSN        string
	Debug      bool
	Output     string
}

// app is built once per invocation by the root PersistentPreRunE.
type app struct {
	settings  config.Settings
	store     *sqlstore.Store
	container *di.Container
	logger    logging.Logger
	out       io.Writer
	format    string
}

func (a *app) close() error {
	if z, ok := a.logger.(*logging.ZapLogger); ok {
		_ = z.Sync()
	}
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// Execute runs the command line in args and releases the database and
// logger afterwards, whether or not the command succeeded.
func Execute(ctx context.Context, args []string, out, errOut io.Writer) error {
	cmd, a := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	err := cmd.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

func newRootCommand() (*cobra.Command, *app) {
	opts := &rootOptions{}
	a := &app{}

	cmd := &cobra.Command{
		Use:           "docquery",
		Short:         "Query and edit documents through the docquery cache layer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "path to a YAML settings file")
	flags.StringVar(&opts.Driver, "driver", "", "database driver (sqlite3, postgres)")
	flags.StringVar(&opts.DSN, "dsn", "", "database connection string")
	flags.BoolVar(&opts.Debug, "debug", false, "log hook timing and store activity")
	flags.StringVarP(&opts.Output, "output", "o", formatTable, "output format (table, json)")

	cmd.AddCommand(
		newListCommand(a),
		newGetCommand(a),
		newAddCommand(a),
		newUpdateCommand(a),
		newDeleteCommand(a),
		newStatsCommand(a),
	)
	return cmd, a
}

func (a *app) open(ctx context.Context, opts *rootOptions, out io.Writer) error {
	if opts.Output != formatTable && opts.Output != formatJSON {
		return fmt.Errorf("unknown output format %q", opts.Output)
	}

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.Driver != "" {
		settings.Database.Driver = opts.Driver
	}
	if opts.DSN != "" {
		settings.Database.DSN = opts.DSN
	}
	if opts.Debug {
		settings.Debug = true
	}

	var logger logging.Logger = logging.NoOpLogger{}
	if settings.Debug {
		zl, err := logging.NewDevelopmentZapLogger()
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		logger = zl
	}

	store, err := sqlstore.Open(ctx, settings.Database.Driver, settings.Database.DSN, sqlstore.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	diOpts := append(settings.Options(afero.NewOsFs()),
		di.WithLogger(logger),
		di.WithErrorHandler(func(err error, context string) {
			logger.Error("docquery: operation failed", "context", context, "error", err)
		}),
	)
	container, err := di.NewContainer(docstore.NewClient(store, docstore.WithClientLogger(logger)), diOpts...)
	if err != nil {
		_ = store.Close()
		return err
	}

	a.settings = settings
	a.store = store
	a.container = container
	a.logger = logger
	a.out = out
	a.format = opts.Output
	return nil
}
