// Package mssql reads SQL Server catalogs into a model.Database and manages
// the databases a build writes to.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/sqldef/schemadir/database"
	"github.com/sqldef/schemadir/model"
)

const masterDB = "master"

// Open connects to the database named in config.
func Open(config database.Config) (*sql.DB, error) {
	return sql.Open("sqlserver", mssqlBuildDSN(config))
}

// OpenMaster connects to the master database of the server in config, where
// databases are created and dropped.
func OpenMaster(config database.Config) (*sql.DB, error) {
	return Open(config.WithDbName(masterDB))
}

func mssqlBuildDSN(config database.Config) string {
	query := url.Values{}
	query.Add("database", config.DbName)
	if config.Timeout > 0 {
		query.Add("dial timeout", fmt.Sprint(int(config.Timeout.Seconds())))
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(config.User, config.Password),
		Host:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		RawQuery: query.Encode(),
	}
	return u.String()
}

func DatabaseExists(ctx context.Context, master *sql.DB, name string) (bool, error) {
	var count int
	err := master.QueryRowContext(ctx, "SELECT count(*) FROM sys.databases WHERE name = @p1", name).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DropDatabase closes the other sessions of the database and drops it.
func DropDatabase(ctx context.Context, master *sql.DB, name string) error {
	quoted := model.QuoteName(name)
	_, err := master.ExecContext(ctx, fmt.Sprintf("ALTER DATABASE %s SET SINGLE_USER WITH ROLLBACK IMMEDIATE; DROP DATABASE %s", quoted, quoted))
	if err != nil {
		return fmt.Errorf("failed to drop database %s: %w", quoted, err)
	}
	return nil
}

// CreateDatabase creates an empty database. filesPath, when set, is the
// directory of its data and log files.
func CreateDatabase(ctx context.Context, master *sql.DB, name, filesPath string) error {
	query := "CREATE DATABASE " + model.QuoteName(name)
	if filesPath != "" {
		query += fmt.Sprintf(" ON PRIMARY (NAME = %s, FILENAME = %s) LOG ON (NAME = %s, FILENAME = %s)",
			model.QuoteName(name),
			model.StringLiteral(filesPath+"/"+name+".mdf"),
			model.QuoteName(name+"_log"),
			model.StringLiteral(filesPath+"/"+name+"_log.ldf"))
	}
	if _, err := master.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create database %s: %w", model.QuoteName(name), err)
	}
	return nil
}

// RecreateDatabase drops name when it exists and creates it again.
func RecreateDatabase(ctx context.Context, master *sql.DB, name, filesPath string, logger database.Logger) error {
	exists, err := DatabaseExists(ctx, master, name)
	if err != nil {
		return err
	}
	if exists {
		logger.Println("Dropping existing database...")
		if err := DropDatabase(ctx, master, name); err != nil {
			return err
		}
	}
	logger.Println("Creating database...")
	return CreateDatabase(ctx, master, name, filesPath)
}
