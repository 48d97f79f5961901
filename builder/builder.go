// Package builder recreates a database from a script directory. Scripts are
// grouped into stages by category and retried inside each stage until their
// dependencies are satisfied.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sqldef/schemadir/database"
	"github.com/sqldef/schemadir/layout"
)

// SessionResetter is implemented by executors that can drop their session
// and continue on a new one.
type SessionResetter interface {
	ResetSession() error
}

// DataImporter loads the data files of a script directory into the database
// under construction.
type DataImporter interface {
	ImportData(ctx context.Context, dataDir string) error
}

type Builder struct {
	Dir        string
	Categories layout.Categories
	Executor   database.Executor

	// Importer is optional; without it the data directory is ignored.
	Importer DataImporter
	Logger   database.Logger
}

// CreateFromDir runs props.sql, then every stage in order, importing data
// before stage 2. The target database must already exist and be empty.
func (b *Builder) CreateFromDir(ctx context.Context) error {
	logger := b.Logger
	if logger == nil {
		logger = database.NullLogger{}
	}

	if err := b.runProps(ctx, logger); err != nil {
		return err
	}

	stager := &Stager{Categories: b.Categories}
	stages, err := stager.Stages(b.Dir)
	if err != nil {
		return err
	}

	logger.Println("Creating database objects...")
	for _, stage := range stages {
		if stage.Index == DataStage {
			if err := b.importData(ctx, logger); err != nil {
				return err
			}
		}

		scripts, err := stage.Scripts()
		if err != nil {
			return err
		}
		slog.Debug("Running stage", "stage", stage.Index, "items", stage.Items, "scripts", len(scripts))
		scheduler := NewScheduler(b.Executor, stage.Index)
		if err := scheduler.Run(ctx, scripts); err != nil {
			logger.Println("Aborting due to unresolved errors")
			return err
		}
	}
	return nil
}

func (b *Builder) runProps(ctx context.Context, logger database.Logger) error {
	if !b.Categories.Contains(layout.Props) {
		return nil
	}
	path := filepath.Join(b.Dir, layout.PropsFile)
	script, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}

	logger.Println("Setting database properties...")
	if err := b.Executor.ExecuteBatch(ctx, string(script)); err != nil {
		return &SQLFileError{Path: path, Err: err}
	}

	// COLLATE can reset the session, continue on a fresh connection
	if resetter, ok := b.Executor.(SessionResetter); ok {
		if err := resetter.ResetSession(); err != nil {
			return fmt.Errorf("failed to reset connection: %w", err)
		}
	}
	return nil
}

func (b *Builder) importData(ctx context.Context, logger database.Logger) error {
	dataDir := filepath.Join(b.Dir, layout.Data)
	if b.Importer == nil || !b.Categories.Contains(layout.Data) {
		return nil
	}
	if info, err := os.Stat(dataDir); os.IsNotExist(err) || (err == nil && !info.IsDir()) {
		slog.Debug("No data to import")
		return nil
	} else if err != nil {
		return err
	}

	logger.Println("Importing data...")
	if err := b.Importer.ImportData(ctx, dataDir); err != nil {
		return err
	}
	logger.Println("Data imported successfully.")
	return nil
}
