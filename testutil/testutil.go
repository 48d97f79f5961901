// Package testutil holds helpers shared by the package tests: YAML build
// fixtures, script directory setup and throwaway sqlite databases.
package testutil

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"testing"

	"github.com/sqldef/schemadir/util"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	_ "modernc.org/sqlite"
)

var stripHeredocRegex = regexp.MustCompilePOSIX("^\t*")

// BuildCase describes a script directory and what building it must produce.
type BuildCase struct {
	Files   map[string]string // path relative to the script directory -> content
	Exclude []string          // excluded categories
	Tables  []string          // tables expected after the build, in any order
	Error   *string           // default: nil
	Stage   *int              // stage that aborts, requires Error
}

func init() {
	util.InitSlog()
}

// ReadBuildCases loads every case of the YAML files matching pattern.
func ReadBuildCases(pattern string) (map[string]BuildCase, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}

	ret := map[string]BuildCase{}
	caseFile := map[string]string{}
	for _, file := range files {
		buf, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}

		var cases map[string]BuildCase
		if err := yaml.UnmarshalStrict(buf, &cases); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}

		for name, c := range cases {
			if c.Stage != nil && c.Error == nil {
				return nil, fmt.Errorf("%s: test case '%s': 'stage' requires 'error'", file, name)
			}
			if existing, ok := caseFile[name]; ok {
				return nil, fmt.Errorf("duplicate test case name '%s': defined in both '%s' and '%s'", name, existing, file)
			}
			caseFile[name] = file
			ret[name] = c
		}
	}
	return ret, nil
}

// WriteFiles creates files (slash separated paths) under dir.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// OpenSQLite opens an empty file backed sqlite database closed with the test.
func OpenSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// SQLiteTables lists the user tables of a sqlite database, sorted.
func SQLiteTables(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type = 'table'")
	require.NoError(t, err)
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		tables = append(tables, name)
	}
	require.NoError(t, rows.Err())
	sort.Strings(tables)
	return tables
}

func StripHeredoc(heredoc string) string {
	heredoc = strings.TrimPrefix(heredoc, "\n")
	return stripHeredocRegex.ReplaceAllLiteralString(heredoc, "")
}
