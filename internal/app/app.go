// Package app wires configuration, logging, the API client and the
// exporters behind the shiphero command line.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/saturnines/shiphero-core/pkg/config"
	"github.com/saturnines/shiphero-core/pkg/core"
	"github.com/saturnines/shiphero-core/pkg/errors"
	"github.com/saturnines/shiphero-core/pkg/export"
	"github.com/saturnines/shiphero-core/pkg/logging"
	"github.com/saturnines/shiphero-core/pkg/record"
	"github.com/saturnines/shiphero-core/pkg/shiphero"
	"github.com/saturnines/shiphero-core/pkg/store"
)

// App holds the flags and the services built from them for one run.
type App struct {
	configPath string
	envFile    string
	outputDir  string
	logLevel   string
	table      string
	maxRecords int
	upload     bool

	out    io.Writer
	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer
	runID  string
	svc    *shiphero.Service
	db     *store.DB
}

// New creates an App writing command output to stdout.
func New() *App {
	return &App{out: os.Stdout, logger: slog.Default()}
}

// RootCommand builds the command tree.
func (a *App) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "shiphero",
		Short: "Export ShipHero inventory, products, kits and snapshots",
		Long: `Query the ShipHero GraphQL API and export the results as CSV files
or database rows. Credentials come from the config file or from
SHIPHERO_REFRESH_TOKEN and SHIPHERO_EMAIL.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.setup() },
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.Close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "path to the YAML config file")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the config")
	flags.StringVarP(&a.outputDir, "output-dir", "o", "", "directory for CSV exports (overrides output.dir)")
	flags.IntVar(&a.maxRecords, "max-records", 0, "stop after this many records (overrides paging.max_records)")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides log.level)")
	flags.StringVar(&a.table, "table", "", "append results to this database table instead of writing CSV")
	flags.BoolVar(&a.upload, "upload", false, "upload CSV exports to the object store")

	root.AddCommand(
		a.inventoryCommand(),
		a.statusCommand(),
		a.productsCommand(),
		a.kitsCommand(),
		a.warehousesCommand(),
		a.snapshotCommand(),
	)
	return root
}

// Execute runs the command line and logs a failure before returning it.
func (a *App) Execute(ctx context.Context, args []string) error {
	root := a.RootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		a.logger.Error("command failed", "error", err)
		a.Close()
	}
	return err
}

func (a *App) setup() error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !os.IsNotExist(err) {
			return errors.WrapError(err, errors.ErrConfiguration, "load env file")
		}
	}

	cfg, err := config.NewDefaultLoader().Load(a.configPath)
	if err != nil {
		return err
	}
	if a.outputDir != "" {
		cfg.Output.Dir = a.outputDir
	}
	if a.maxRecords != 0 {
		cfg.Paging.MaxRecords = a.maxRecords
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.runID = uuid.NewString()
	a.cfg = cfg
	a.closer = closer
	a.logger = logger.With("run_id", a.runID)

	client, _ := core.NewFromConfig(cfg, a.logger)
	a.svc = shiphero.NewServiceFromConfig(client, cfg, a.logger)
	a.logger.Debug("configured", "endpoint", cfg.API.Endpoint, "max_records", cfg.Paging.MaxRecords)
	return nil
}

// Close releases the database and the log file.
func (a *App) Close() error {
	var err error
	if a.db != nil {
		err = a.db.Close()
		a.db = nil
	}
	if a.closer != nil {
		if cerr := a.closer.Close(); err == nil {
			err = cerr
		}
		a.closer = nil
	}
	return err
}

func (a *App) database(ctx context.Context) (*store.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	if a.cfg.Database.DSN == "" {
		return nil, errors.WrapError(fmt.Errorf("database.dsn or %s is required", config.EnvDatabaseURL), errors.ErrConfiguration, "open database")
	}
	db, err := store.Open(ctx, a.cfg.Database)
	if err != nil {
		return nil, err
	}
	if a.cfg.Database.Migrate {
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, err
		}
	}
	a.db = db
	return db, nil
}

// emit sends a result set to the database when --table is given and to a
// CSV file otherwise, uploading the file when --upload is set.
func (a *App) emit(ctx context.Context, set *record.Set, prefix string) error {
	if set.Len() == 0 {
		a.logger.Warn("no records returned", "resource", set.Resource)
		return nil
	}

	if a.table != "" {
		db, err := a.database(ctx)
		if err != nil {
			return err
		}
		exporter := export.NewDBExporter(db, a.logger)
		exporter.Types = shiphero.ColumnTypes(set.Resource)
		n, err := exporter.Export(ctx, set, a.table)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Inserted %d %s records into %s\n", n, set.Resource, a.table)
		return nil
	}

	path, err := export.NewCSVExporter(a.cfg.Output.Dir, a.cfg.Output.Separator, a.logger).Export(set, prefix)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exported %d %s records to %s\n", set.Len(), set.Resource, path)

	if a.upload {
		uploader, err := export.NewUploader(a.cfg.ObjectStore, a.logger)
		if err != nil {
			return err
		}
		key, err := uploader.Upload(ctx, path)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Uploaded %s\n", key)
	}
	return nil
}

func (a *App) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
