package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/ancsystem/anc-notifier/internal/config"
	"github.com/ancsystem/anc-notifier/internal/database"
	"github.com/ancsystem/anc-notifier/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "migrate",
	Short:         "Schema and seed tool for the ANC notifier database",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE:  runUp,
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back applied migrations",
	RunE:  runDown,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the applied schema version",
	RunE:  runStatus,
}

var forceCmd = &cobra.Command{
	Use:   "force [version]",
	Short: "Mark a version as applied and clear the dirty flag",
	Args:  cobra.ExactArgs(1),
	RunE:  runForce,
}

var createCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a new pair of migration files",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreate,
}

var (
	migrationsDir string
	downSteps     int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "dir", "migrations", "migrations directory")
	downCmd.Flags().IntVar(&downSteps, "steps", 1, "number of migrations to roll back")

	rootCmd.AddCommand(upCmd, downCmd, statusCmd, forceCmd, createCmd, seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// withMigrator opens the configured database, runs fn and releases both the
// source and the database connection.
func withMigrator(fn func(m *migrate.Migrate, log *logger.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg.Log.Level, "text").WithComponent("migrate")

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsDir, "postgres", driver)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Warn().AnErr("source", srcErr).AnErr("database", dbErr).Msg("failed to close migrator")
		}
	}()

	return fn(m, log)
}

func runUp(cmd *cobra.Command, args []string) error {
	return withMigrator(func(m *migrate.Migrate, log *logger.Logger) error {
		err := m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info().Msg("schema already up to date")
			return nil
		}
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logVersion(m, log, "migrations applied")
		return nil
	})
}

func runDown(cmd *cobra.Command, args []string) error {
	if downSteps < 1 {
		return fmt.Errorf("--steps must be at least 1")
	}
	return withMigrator(func(m *migrate.Migrate, log *logger.Logger) error {
		if err := m.Steps(-downSteps); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		logVersion(m, log, "rollback completed")
		return nil
	})
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withMigrator(func(m *migrate.Migrate, log *logger.Logger) error {
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("No migrations have been applied")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get version: %w", err)
		}
		fmt.Printf("Current version: %d\nDirty: %v\n", version, dirty)
		return nil
	})
}

func runForce(cmd *cobra.Command, args []string) error {
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	return withMigrator(func(m *migrate.Migrate, log *logger.Logger) error {
		if err := m.Force(version); err != nil {
			return fmt.Errorf("force failed: %w", err)
		}
		log.Warn().Int("version", version).Msg("schema version forced")
		return nil
	})
}

func logVersion(m *migrate.Migrate, log *logger.Logger, msg string) {
	version, dirty, err := m.Version()
	if err != nil {
		log.Info().Msg(msg)
		return
	}
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg(msg)
}

func runCreate(cmd *cobra.Command, args []string) error {
	name := args[0]

	if err := os.MkdirAll(migrationsDir, 0755); err != nil {
		return fmt.Errorf("failed to create migrations directory: %w", err)
	}

	version, err := nextVersion(migrationsDir)
	if err != nil {
		return err
	}

	upFile := filepath.Join(migrationsDir, fmt.Sprintf("%06d_%s.up.sql", version, name))
	downFile := filepath.Join(migrationsDir, fmt.Sprintf("%06d_%s.down.sql", version, name))

	if err := os.WriteFile(upFile, []byte("-- Add migration SQL here\n"), 0644); err != nil {
		return fmt.Errorf("failed to create up migration: %w", err)
	}

	if err := os.WriteFile(downFile, []byte("-- Add rollback SQL here\n"), 0644); err != nil {
		return fmt.Errorf("failed to create down migration: %w", err)
	}

	fmt.Printf("Created migration files:\n  %s\n  %s\n", upFile, downFile)
	return nil
}

// nextVersion returns one past the highest numeric prefix in dir
func nextVersion(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	highest := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		prefix, _, ok := strings.Cut(entry.Name(), "_")
		if !ok {
			continue
		}
		if v, err := strconv.Atoi(prefix); err == nil && v > highest {
			highest = v
		}
	}
	return highest + 1, nil
}
