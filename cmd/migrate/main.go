package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/ogurasousui/shiftboard/internal/platform/config"
)

const defaultConfigPath = "assets/local.yaml"

// options は migrate コマンドの引数です。
type options struct {
	configPath    string
	migrationsDir string
	action        string
	version       int
	steps         int
	verbose       bool
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("invalid arguments: %v", err)
	}

	cfg, err := config.Load(effectiveConfigPath(opts.configPath, os.Getenv("CONFIG_PATH")))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		log.Fatalf("database driver %q has no schema to migrate", cfg.Database.Driver)
	}

	if err := runMigration(opts, cfg.Database.DSN()); err != nil {
		log.Fatalf("migration %s failed: %v", opts.action, err)
	}
	log.Printf("migration %s completed", opts.action)
}

// parseArgs はフラグと action を解釈し、接続前に検証します。
func parseArgs(args []string, output io.Writer) (options, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(output)

	var opts options
	fs.StringVar(&opts.configPath, "config", "", "path to config file (defaults to CONFIG_PATH env or "+defaultConfigPath+")")
	fs.StringVar(&opts.migrationsDir, "dir", "assets/migrations", "directory containing migration files")
	fs.IntVar(&opts.version, "version", -1, "target version for the force action")
	fs.IntVar(&opts.steps, "steps", 0, "number of steps for the steps action (negative rolls back)")
	fs.BoolVar(&opts.verbose, "v", false, "log each applied migration")
	fs.Usage = func() {
		fmt.Fprintln(output, "usage: migrate [flags] [up|down|drop|force|steps|version]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts.action = "up"
	if fs.NArg() > 1 {
		return options{}, fmt.Errorf("expected at most one action, got %d", fs.NArg())
	}
	if fs.NArg() == 1 {
		opts.action = fs.Arg(0)
	}

	switch opts.action {
	case "up", "down", "drop", "version":
	case "force":
		if opts.version < 0 {
			return options{}, errors.New("force requires -version")
		}
	case "steps":
		if opts.steps == 0 {
			return options{}, errors.New("steps requires a non-zero -steps")
		}
	default:
		return options{}, fmt.Errorf("unsupported action %q", opts.action)
	}
	return opts, nil
}

func effectiveConfigPath(flagValue, envValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue != "" {
		return envValue
	}
	return defaultConfigPath
}

// sourceURL は golang-migrate の file ソース URL を組み立てます。
func sourceURL(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve path for %s: %w", dir, err)
	}
	return "file://" + filepath.ToSlash(absDir), nil
}

func runMigration(opts options, dsn string) error {
	src, err := sourceURL(opts.migrationsDir)
	if err != nil {
		return err
	}

	m, err := migrate.New(src, dsn)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()
	m.Log = migrateLogger{verbose: opts.verbose}

	switch opts.action {
	case "up":
		return ignoreNoChange(m.Up())
	case "down":
		return ignoreNoChange(m.Down())
	case "steps":
		return ignoreNoChange(m.Steps(opts.steps))
	case "drop":
		return m.Drop()
	case "force":
		return m.Force(opts.version)
	default:
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Printf("no migration applied")
			return nil
		}
		if err != nil {
			return err
		}
		log.Printf("version=%d dirty=%t", version, dirty)
		return nil
	}
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		log.Printf("no change")
		return nil
	}
	return err
}

// migrateLogger は golang-migrate のログを標準 log に流します。
type migrateLogger struct {
	verbose bool
}

func (l migrateLogger) Printf(format string, v ...any) {
	log.Printf("migrate: "+format, v...)
}

func (l migrateLogger) Verbose() bool {
	return l.verbose
}
