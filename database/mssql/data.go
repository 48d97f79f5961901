package mssql

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sqldef/schemadir/database"
	"github.com/sqldef/schemadir/layout"
	"github.com/sqldef/schemadir/model"
)

// Markers of the data file format. Values are separated by tabs and rows by
// CRLF, so those characters are escaped inside values.
const (
	NullMarker = "--SchemaZenNull--"
	TabMarker  = "--SchemaZenTAB--"
	CRMarker   = "--SchemaZenCR--"
	LFMarker   = "--SchemaZenLF--"

	fieldSeparator = "\t"
	rowSeparator   = "\r\n"

	timeLayout           = "2006-01-02 15:04:05.9999999"
	timeWithOffsetLayout = "2006-01-02 15:04:05.9999999 -07:00"
)

var (
	valueEscaper   = strings.NewReplacer("\t", TabMarker, "\r", CRMarker, "\n", LFMarker)
	valueUnescaper = strings.NewReplacer(TabMarker, "\t", CRMarker, "\r", LFMarker, "\n")
)

// DataFileError is a data file that could not be imported. Line is 0 when the
// failure is not tied to a row.
type DataFileError struct {
	Path string
	Line int
	Err  error
}

func (e *DataFileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Err)
}

func (e *DataFileError) Unwrap() error {
	return e.Err
}

// dataColumns are the columns carried by data files; computed columns are
// derived on import.
func dataColumns(t *model.Table) []*model.Column {
	var columns []*model.Column
	for _, c := range t.Columns {
		if c.Computed == "" {
			columns = append(columns, c)
		}
	}
	return columns
}

func isBinary(c *model.Column) bool {
	switch c.Type {
	case "binary", "varbinary", "image", "timestamp", "rowversion":
		return true
	}
	return false
}

func isTime(c *model.Column) bool {
	switch c.Type {
	case "date", "datetime", "datetime2", "smalldatetime", "time", "datetimeoffset":
		return true
	}
	return false
}

func selectExpression(c *model.Column) string {
	if c.Type == "uniqueidentifier" {
		return fmt.Sprintf("CONVERT(char(36), %s)", model.QuoteName(c.Name))
	}
	return model.QuoteName(c.Name)
}

func encodeValue(c *model.Column, v any) string {
	switch v := v.(type) {
	case nil:
		return NullMarker
	case []byte:
		if isBinary(c) {
			return strings.ToUpper(hex.EncodeToString(v))
		}
		return valueEscaper.Replace(string(v))
	case string:
		return valueEscaper.Replace(v)
	case bool:
		if v {
			return "1"
		}
		return "0"
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case time.Time:
		if c.Type == "datetimeoffset" {
			return v.Format(timeWithOffsetLayout)
		}
		return v.Format(timeLayout)
	default:
		return valueEscaper.Replace(fmt.Sprint(v))
	}
}

func decodeValue(c *model.Column, s string) (any, error) {
	if s == NullMarker {
		return nil, nil
	}
	switch {
	case isBinary(c):
		return hex.DecodeString(s)
	case isTime(c):
		format := timeLayout
		if c.Type == "datetimeoffset" {
			format = timeWithOffsetLayout
		}
		return time.Parse(format, s)
	default:
		return valueUnescaper.Replace(s), nil
	}
}

// Exporter writes table rows in the data file format.
type Exporter struct {
	DB *sql.DB

	// TableHint is added to the SELECT of every table, e.g. NOLOCK.
	TableHint string
}

func ExportData(ctx context.Context, db *sql.DB, t *model.Table, w io.Writer) error {
	return (&Exporter{DB: db}).ExportData(ctx, t, w)
}

// ExportData writes every row of t, ordered by primary key when there is one.
// A table without rows writes nothing.
func (e *Exporter) ExportData(ctx context.Context, t *model.Table, w io.Writer) error {
	columns := dataColumns(t)
	if len(columns) == 0 {
		return nil
	}

	var expressions []string
	for _, c := range columns {
		expressions = append(expressions, selectExpression(c))
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(expressions, ", "), t.QualifiedName())
	if e.TableHint != "" {
		query += fmt.Sprintf(" WITH (%s)", e.TableHint)
	}
	if pk := t.PrimaryKey(); pk != nil {
		var keys []string
		for _, c := range pk.Columns {
			keys = append(keys, model.QuoteName(c.Name))
		}
		query += " ORDER BY " + strings.Join(keys, ", ")
	}

	rows, err := e.DB.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	bw := bufio.NewWriter(w)
	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}
	fields := make([]string, len(columns))
	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return err
		}
		for i, c := range columns {
			fields[i] = encodeValue(c, values[i])
		}
		bw.WriteString(strings.Join(fields, fieldSeparator))
		bw.WriteString(rowSeparator)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return bw.Flush()
}

func hasIdentity(columns []*model.Column) bool {
	for _, c := range columns {
		if c.Identity != nil {
			return true
		}
	}
	return false
}

// ImportData inserts the rows of a data file into t in one transaction.
// Failures are reported as *DataFileError.
func ImportData(ctx context.Context, db *sql.DB, t *model.Table, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return &DataFileError{Path: path, Err: err}
	}
	if len(content) == 0 {
		return nil
	}

	columns := dataColumns(t)
	var names, params []string
	for i, c := range columns {
		names = append(names, model.QuoteName(c.Name))
		params = append(params, fmt.Sprintf("@p%d", i+1))
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.QualifiedName(), strings.Join(names, ", "), strings.Join(params, ", "))

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return &DataFileError{Path: path, Err: err}
	}
	defer tx.Rollback()

	identity := hasIdentity(columns)
	if identity {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET IDENTITY_INSERT %s ON", t.QualifiedName())); err != nil {
			return &DataFileError{Path: path, Err: err}
		}
	}

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return &DataFileError{Path: path, Err: err}
	}
	defer stmt.Close()

	lines := strings.Split(string(content), rowSeparator)
	for i, line := range lines {
		if line == "" && i == len(lines)-1 {
			break
		}
		args, err := decodeRow(columns, line)
		if err != nil {
			return &DataFileError{Path: path, Line: i + 1, Err: err}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return &DataFileError{Path: path, Line: i + 1, Err: err}
		}
	}

	if identity {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET IDENTITY_INSERT %s OFF", t.QualifiedName())); err != nil {
			return &DataFileError{Path: path, Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &DataFileError{Path: path, Err: err}
	}
	return nil
}

func decodeRow(columns []*model.Column, line string) ([]any, error) {
	fields := strings.Split(line, fieldSeparator)
	if len(fields) != len(columns) {
		return nil, fmt.Errorf("expected %d values but found %d", len(columns), len(fields))
	}
	args := make([]any, len(fields))
	for i, field := range fields {
		v, err := decodeValue(columns[i], field)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", model.QuoteName(columns[i].Name), err)
		}
		args[i] = v
	}
	return args, nil
}

// Importer loads a data directory into the database it is connected to.
type Importer struct {
	DB     *sql.DB
	Name   string
	Logger database.Logger
}

// dataFileTables maps data file names back to tables by rendering the name each
// table exports to, so names with replaced characters still match.
func dataFileTables(db *model.Database) map[string]*model.Table {
	tables := make(map[string]*model.Table, len(db.Tables))
	for _, t := range db.Tables {
		name := layout.ObjectFileName(t) + layout.DataExt
		if _, ok := tables[name]; !ok {
			tables[name] = t
		}
	}
	return tables
}

// ImportData reads the schema the build created so far and imports every
// data file whose table exists. Files without a table are skipped with a
// warning.
func (i *Importer) ImportData(ctx context.Context, dataDir string) error {
	slog.Debug("Loading database schema...")
	db, err := Load(ctx, i.DB, i.Name)
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return err
	}
	tables := dataFileTables(db)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != layout.DataExt {
			continue
		}
		path := filepath.Join(dataDir, entry.Name())
		t, ok := tables[entry.Name()]
		if !ok {
			slog.Warn(fmt.Sprintf("found data file '%s', but no corresponding table in database", entry.Name()))
			continue
		}
		if i.Logger != nil {
			i.Logger.Printf("Importing data for table %s...\n", t.QualifiedName())
		}
		if err := ImportData(ctx, i.DB, t, path); err != nil {
			return err
		}
	}
	return nil
}
