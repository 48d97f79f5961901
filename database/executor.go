package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/batch"
)

const batchSeparator = "GO"

// Executor runs a whole script against the target database.
type Executor interface {
	ExecuteBatch(ctx context.Context, script string) error
}

// BatchError reports the failing batch of a script. Line is the 1-based line
// of the script the failure points at.
type BatchError struct {
	Message string
	Line    int
	Err     error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// SQLExecutor splits scripts on GO lines and executes the batches in order on
// one connection, so session settings survive from batch to batch.
type SQLExecutor struct {
	db      *sql.DB
	conn    *sql.Conn
	timeout time.Duration
}

var _ Executor = (*SQLExecutor)(nil)

func NewSQLExecutor(db *sql.DB, timeout time.Duration) *SQLExecutor {
	return &SQLExecutor{db: db, timeout: timeout}
}

func (e *SQLExecutor) ExecuteBatch(ctx context.Context, script string) error {
	if e.conn == nil {
		conn, err := e.db.Conn(ctx)
		if err != nil {
			return err
		}
		e.conn = conn
	}

	offset := 0
	for _, b := range batch.Split(script, batchSeparator) {
		line := 1 + strings.Count(script[:offset], "\n")
		if i := strings.Index(script[offset:], b); i >= 0 {
			line += strings.Count(script[offset:offset+i], "\n")
			offset += i + len(b)
		}
		if strings.TrimSpace(b) == "" {
			continue
		}
		line += leadingLines(b)

		if err := e.exec(ctx, b); err != nil {
			return &BatchError{Message: errorMessage(err), Line: line + errorLine(err), Err: err}
		}
	}
	return nil
}

func (e *SQLExecutor) exec(ctx context.Context, query string) error {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	_, err := e.conn.ExecContext(ctx, query)
	return err
}

// Close releases the pinned connection. The executor can be used again.
func (e *SQLExecutor) Close() error {
	if e.conn == nil {
		return nil
	}
	err := e.conn.Close()
	e.conn = nil
	return err
}

// ResetSession throws the pinned connection away instead of returning it to
// the pool, so the next batch runs on a new session.
func (e *SQLExecutor) ResetSession() error {
	if e.conn == nil {
		return nil
	}
	err := e.conn.Raw(func(any) error { return driver.ErrBadConn })
	e.conn.Close()
	e.conn = nil
	if errors.Is(err, driver.ErrBadConn) {
		return nil
	}
	return err
}

// leadingLines counts the blank lines before the first statement of a batch.
func leadingLines(b string) int {
	trimmed := strings.TrimLeft(b, " \t\r\n")
	return strings.Count(b[:len(b)-len(trimmed)], "\n")
}

// errorLine is the offset of the failing statement inside its batch, as
// reported by SQL Server.
func errorLine(err error) int {
	var sqlErr mssql.Error
	if errors.As(err, &sqlErr) && sqlErr.LineNo > 0 {
		return int(sqlErr.LineNo) - 1
	}
	return 0
}

func errorMessage(err error) string {
	var sqlErr mssql.Error
	if errors.As(err, &sqlErr) {
		return sqlErr.Message
	}
	return err.Error()
}
