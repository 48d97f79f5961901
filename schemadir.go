// Package schemadir scripts SQL Server databases into directory trees, builds
// databases back from them and compares live databases.
package schemadir

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/sqldef/schemadir/builder"
	"github.com/sqldef/schemadir/database"
	"github.com/sqldef/schemadir/database/mssql"
	"github.com/sqldef/schemadir/diff"
	"github.com/sqldef/schemadir/layout"
	"github.com/sqldef/schemadir/model"
	"github.com/sqldef/schemadir/scripter"
	"github.com/sqldef/schemadir/util"
)

type Options struct {
	Dir        string
	Categories layout.Categories

	// Script only
	DataTables        string
	DataTablesExclude string
	TableHint         string
	Concurrency       int

	// Create only
	Overwrite bool
	DryRun    bool
}

// dataTables selects the tables whose rows are exported. Nothing is selected
// unless a pattern is given.
func (o *Options) dataTables(db *model.Database) ([]*model.Table, error) {
	if o.DataTables == "" && o.DataTablesExclude == "" {
		return nil, nil
	}
	return db.FindTablesRegex(o.DataTables, o.DataTablesExclude)
}

// Script writes the database config points at into options.Dir.
func Script(ctx context.Context, config database.Config, options *Options, logger database.Logger) error {
	db, err := mssql.Open(config)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Println("Loading database schema...")
	snapshot, err := mssql.Load(ctx, db, config.DbName)
	if err != nil {
		return err
	}
	snapshot.DataTables, err = options.dataTables(snapshot)
	if err != nil {
		return fmt.Errorf("invalid data table pattern: %w", err)
	}

	logger.Printf("Scripting %s to %s...\n", config.DbName, options.Dir)
	writer := scripter.NewWriter(options.Dir, options.Categories, logger)
	if err := writer.Write(snapshot); err != nil {
		return err
	}
	exporter := &mssql.Exporter{DB: db, TableHint: options.TableHint}
	if err := writer.WriteData(ctx, exporter, snapshot.DataTables, options.Concurrency); err != nil {
		return err
	}

	for category, count := range util.CanonicalMapIter(objectCounts(snapshot)) {
		slog.Info("Scripted", "category", category, "objects", count)
	}
	logger.Println("Snapshot successfully created.")
	return nil
}

func objectCounts(db *model.Database) map[string]int {
	return map[string]int{
		layout.Tables:           len(db.Tables),
		layout.TableTypes:       len(db.TableTypes),
		layout.ForeignKeys:      len(db.ForeignKeys),
		layout.UserDefinedTypes: len(db.UserDefinedTypes),
		layout.Assemblies:       len(db.Assemblies),
		layout.Users:            len(db.Users),
		layout.Roles:            len(db.Roles),
		layout.Synonyms:         len(db.Synonyms),
		layout.Permissions:      len(db.Permissions),
		layout.Schemas:          len(db.Schemas),
		"routines":              len(db.Routines),
		"view indexes":          len(db.ViewIndexes),
		layout.Data:             len(db.DataTables),
	}
}

// Create builds the database config points at from options.Dir. An existing
// database is only replaced with options.Overwrite. A dry run prints the
// scripts instead of touching the server.
func Create(ctx context.Context, config database.Config, options *Options, logger database.Logger) error {
	if info, err := os.Stat(options.Dir); err != nil {
		return err
	} else if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", options.Dir)
	}

	if options.DryRun {
		logger.Println("-- dry run --")
		dryRun := database.OpenDryRun(logger)
		defer dryRun.Close()
		executor := database.NewSQLExecutor(dryRun, 0)
		defer executor.Close()
		b := &builder.Builder{
			Dir:        options.Dir,
			Categories: options.Categories,
			Executor:   executor,
			Logger:     database.NullLogger{},
		}
		return b.CreateFromDir(ctx)
	}

	if err := prepareDatabase(ctx, config, options.Overwrite, logger); err != nil {
		return err
	}

	db, err := mssql.Open(config)
	if err != nil {
		return err
	}
	defer db.Close()

	executor := database.NewSQLExecutor(db, config.Timeout)
	defer executor.Close()
	b := &builder.Builder{
		Dir:        options.Dir,
		Categories: options.Categories,
		Executor:   executor,
		Importer:   &mssql.Importer{DB: db, Name: config.DbName, Logger: logger},
		Logger:     logger,
	}
	if err := b.CreateFromDir(ctx); err != nil {
		return err
	}
	logger.Printf("Database %s successfully created.\n", config.DbName)
	return nil
}

func prepareDatabase(ctx context.Context, config database.Config, overwrite bool, logger database.Logger) error {
	master, err := mssql.OpenMaster(config)
	if err != nil {
		return err
	}
	defer master.Close()

	exists, err := mssql.DatabaseExists(ctx, master, config.DbName)
	if err != nil {
		return err
	}
	if exists && !overwrite {
		return fmt.Errorf("database %s already exists, use --overwrite to replace it", model.QuoteName(config.DbName))
	}
	return mssql.RecreateDatabase(ctx, master, config.DbName, "", logger)
}

// Compare loads both databases and diffs source against target. Objects only
// in source are reported as added.
func Compare(ctx context.Context, source, target database.Config) (*diff.SchemaDiff, error) {
	sourceDB, err := load(ctx, source)
	if err != nil {
		return nil, err
	}
	targetDB, err := load(ctx, target)
	if err != nil {
		return nil, err
	}
	return diff.Compare(sourceDB, targetDB), nil
}

func load(ctx context.Context, config database.Config) (*model.Database, error) {
	db, err := mssql.Open(config)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	snapshot, err := mssql.Load(ctx, db, config.DbName)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", model.QuoteName(config.DbName), err)
	}
	return snapshot, nil
}
