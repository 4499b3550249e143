// Command migrate manages the ledger PostgreSQL schema.
//
// Without --path the schema compiled into the binary is applied; --path
// points at a directory of NNN_name.up.sql / .down.sql files instead.
package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/migration"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	path        string
	table       string
	databaseURL string
	logLevel    string
	log         *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply and inspect ledger schema migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to load .env: %w", err)
			}
			log, err := logger.New(&logger.Config{
				Level:      opts.logLevel,
				Format:     "console",
				Output:     "stdout",
				TimeFormat: "2006-01-02 15:04:05",
			})
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			opts.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.log != nil {
				_ = opts.log.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.path, "path", "", "migrations directory (default: embedded ledger schema)")
	flags.StringVar(&opts.table, "table", "", "version table name (default schema_migrations)")
	flags.StringVar(&opts.databaseURL, "database-url", "", "postgres:// URL used instead of the LEDGER_DATABASE_* settings")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		migratorCmd(opts, "up", "Apply all pending migrations", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error { return m.Up() }),
		migratorCmd(opts, "down", "Roll back all migrations", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error { return m.Down() }),
		migratorCmd(opts, "steps N", "Apply N migrations (negative rolls back)", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count %q: %w", args[0], err)
				}
				return m.Steps(n)
			}),
		migratorCmd(opts, "goto VERSION", "Migrate up or down to VERSION", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				v, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				return m.GoTo(uint(v))
			}),
		migratorCmd(opts, "force VERSION", "Set the version without migrating (repairs a dirty schema)", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				return m.Force(v)
			}),
		migratorCmd(opts, "version", "Print the current schema version", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Printf("version %d (dirty: %t)\n", v, dirty)
				return nil
			}),
		createCmd(opts),
		listCmd(opts),
	)
	return root
}

// migratorCmd builds a command that runs fn against the configured database
func migratorCmd(opts *options, use, short string, args cobra.PositionalArgs, fn func(*migration.Migrator, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, target, err := openMigrator(cmd, opts)
			if err != nil {
				return err
			}
			defer m.Close()

			opts.log.Info("Running migration command",
				zap.String("command", cmd.Name()),
				zap.String("database", target),
				zap.Bool("embedded", opts.path == ""),
			)
			return fn(m, args)
		},
	}
}

// openMigrator connects with --database-url when given, otherwise with the
// configured database. It returns the database name for logging.
func openMigrator(cmd *cobra.Command, opts *options) (*migration.Migrator, string, error) {
	mcfg := migration.Config{MigrationsPath: opts.path, TableName: opts.table}
	if opts.databaseURL != "" {
		u, err := url.Parse(opts.databaseURL)
		if err != nil {
			return nil, "", fmt.Errorf("invalid --database-url: %w", err)
		}
		if opts.table != "" {
			q := u.Query()
			q.Set("x-migrations-table", opts.table)
			u.RawQuery = q.Encode()
		}
		mcfg.DatabaseURL = u.String()
		m, err := migration.NewFromURL(mcfg, opts.log)
		if err != nil {
			return nil, "", err
		}
		return m, strings.TrimPrefix(u.Path, "/"), nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, "", fmt.Errorf("failed to load configuration: %w", err)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(cmd.Context()); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("failed to ping database: %w", err)
	}
	m, err := migration.New(db, mcfg, opts.log)
	if err != nil {
		_ = db.Close()
		return nil, "", err
	}
	return m, cfg.Database.DBName, nil
}

func createCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME [DESCRIPTION]",
		Short: "Write an empty up/down migration pair into --path",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.path == "" {
				return errors.New("--path is required for create; the embedded schema is read-only")
			}
			description := ""
			if len(args) > 1 {
				description = args[1]
			}
			mf, err := migration.CreateMigration(opts.path, args[0], description)
			if err != nil {
				return err
			}
			opts.log.Info("Migration created",
				zap.String("version", mf.Version),
				zap.String("up_file", mf.UpPath),
				zap.String("down_file", mf.DownPath),
			)
			return nil
		},
	}
}

func listCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys, dir := migration.Embedded(), migration.EmbeddedDir
			if opts.path != "" {
				fsys, dir = os.DirFS(opts.path), "."
			}
			names, err := migration.ListMigrations(fsys, dir)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				opts.log.Info("No migrations found")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
