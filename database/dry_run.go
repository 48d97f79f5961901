package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
)

// OpenDryRun returns a *sql.DB that prints every statement to logger instead
// of running it. Queries return no rows.
func OpenDryRun(logger Logger) *sql.DB {
	return sql.OpenDB(&dryRunConnector{logger: logger})
}

type dryRunConnector struct {
	logger Logger
}

func (c *dryRunConnector) Connect(ctx context.Context) (driver.Conn, error) {
	return &dryRunConn{logger: c.logger}, nil
}

func (c *dryRunConnector) Driver() driver.Driver {
	return &dryRunDriver{logger: c.logger}
}

type dryRunDriver struct {
	logger Logger
}

func (d *dryRunDriver) Open(name string) (driver.Conn, error) {
	return &dryRunConn{logger: d.logger}, nil
}

type dryRunConn struct {
	logger Logger
}

func (c *dryRunConn) Prepare(query string) (driver.Stmt, error) {
	return &dryRunStmt{query: query, logger: c.logger}, nil
}

func (c *dryRunConn) Close() error {
	return nil
}

func (c *dryRunConn) Begin() (driver.Tx, error) {
	return &dryRunTx{}, nil
}

type dryRunTx struct{}

func (tx *dryRunTx) Commit() error {
	return nil
}

func (tx *dryRunTx) Rollback() error {
	return nil
}

type dryRunStmt struct {
	query  string
	logger Logger
}

func (s *dryRunStmt) Close() error {
	return nil
}

func (s *dryRunStmt) NumInput() int {
	return -1
}

func (s *dryRunStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.logger.Println(s.query)
	s.logger.Println(batchSeparator)
	return &dryRunResult{}, nil
}

func (s *dryRunStmt) Query(args []driver.Value) (driver.Rows, error) {
	return &dryRunRows{}, nil
}

type dryRunResult struct{}

func (r *dryRunResult) LastInsertId() (int64, error) {
	return 0, nil
}

func (r *dryRunResult) RowsAffected() (int64, error) {
	return 0, nil
}

type dryRunRows struct{}

func (r *dryRunRows) Columns() []string {
	return []string{}
}

func (r *dryRunRows) Close() error {
	return nil
}

func (r *dryRunRows) Next(dest []driver.Value) error {
	return io.EOF
}
