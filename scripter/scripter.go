// Package scripter writes a database snapshot into a directory tree with one
// script file per object.
package scripter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sqldef/schemadir/database"
	"github.com/sqldef/schemadir/layout"
	"github.com/sqldef/schemadir/model"
)

// objectSeparator ends every object appended to a script file.
const objectSeparator = "\r\n" + model.BatchSeparator + "\r\n"

// DataExporter streams the rows of one table in the data file format.
type DataExporter interface {
	ExportData(ctx context.Context, t *model.Table, w io.Writer) error
}

type Writer struct {
	Dir        string
	Categories layout.Categories
	Logger     database.Logger
}

func NewWriter(dir string, categories layout.Categories, logger database.Logger) *Writer {
	if logger == nil {
		logger = database.NullLogger{}
	}
	return &Writer{Dir: dir, Categories: categories, Logger: logger}
}

// Write replaces the scripts under w.Dir with the objects of db.
func (w *Writer) Write(db *model.Database) error {
	if err := w.clean(); err != nil {
		return err
	}

	if err := w.writeProps(db.Props); err != nil {
		return err
	}
	if err := writeDir(w, layout.Schemas, db.Schemas); err != nil {
		return err
	}
	if err := writeDir(w, layout.Tables, db.Tables); err != nil {
		return err
	}
	for _, t := range db.Tables {
		if err := writeDir(w, layout.CheckConstraints, t.CheckConstraints()); err != nil {
			return err
		}
		if err := writeDir(w, layout.Defaults, t.Defaults()); err != nil {
			return err
		}
	}
	if err := writeDir(w, layout.TableTypes, db.TableTypes); err != nil {
		return err
	}
	if err := writeDir(w, layout.UserDefinedTypes, db.UserDefinedTypes); err != nil {
		return err
	}
	if err := writeDir(w, layout.ForeignKeys, sortedForeignKeys(db.ForeignKeys)); err != nil {
		return err
	}
	for _, group := range groupRoutines(db.Routines) {
		if err := writeDir(w, layout.RoutineDir(group[0].Kind), group); err != nil {
			return err
		}
	}
	if err := writeDir(w, layout.Views, db.ViewIndexes); err != nil {
		return err
	}
	if err := writeDir(w, layout.Assemblies, db.Assemblies); err != nil {
		return err
	}
	if err := writeDir(w, layout.Roles, db.Roles); err != nil {
		return err
	}
	if err := writeDir(w, layout.Users, db.Users); err != nil {
		return err
	}
	if err := writeDir(w, layout.Synonyms, db.Synonyms); err != nil {
		return err
	}
	return writeDir(w, layout.Permissions, db.Permissions)
}

// clean removes the files a previous run left in the enabled category
// directories, or creates the root directory.
func (w *Writer) clean() error {
	if _, err := os.Stat(w.Dir); os.IsNotExist(err) {
		return os.MkdirAll(w.Dir, 0755)
	} else if err != nil {
		return err
	}

	slog.Debug("Deleting existing files", "dir", w.Dir)
	for _, category := range w.Categories.Names() {
		entries, err := os.ReadDir(filepath.Join(w.Dir, category))
		if os.IsNotExist(err) {
			continue
		} else if err != nil {
			return err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if err := os.Remove(filepath.Join(w.Dir, category, entry.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Writer) writeProps(props []*model.DBProp) error {
	if !w.Categories.Contains(layout.Props) {
		return nil
	}
	w.Logger.Println("Scripting database properties...")
	text := model.ScriptPropList(props) + model.BatchSeparator + "\n\n"
	return os.WriteFile(filepath.Join(w.Dir, layout.PropsFile), []byte(text), 0644)
}

func writeDir[T model.Scriptable](w *Writer, category string, objects []T) error {
	if len(objects) == 0 || !w.Categories.Contains(category) {
		return nil
	}

	dir := filepath.Join(w.Dir, category)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for i, obj := range objects {
		slog.Debug(fmt.Sprintf("Scripting %s %d of %d", category, i+1, len(objects)))
		if err := appendFile(layout.ScriptPath(w.Dir, category, obj), obj.ScriptCreate()+objectSeparator); err != nil {
			return err
		}
	}
	return nil
}

func appendFile(path, text string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func sortedForeignKeys(fks []*model.ForeignKey) []*model.ForeignKey {
	sorted := slices.Clone(fks)
	slices.SortStableFunc(sorted, func(a, b *model.ForeignKey) int {
		if c := strings.Compare(a.Table.Owner, b.Table.Owner); c != 0 {
			return c
		}
		if c := strings.Compare(a.Table.Name, b.Table.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return sorted
}

// groupRoutines groups routines by kind, in order of first appearance.
func groupRoutines(routines []*model.Routine) [][]*model.Routine {
	var groups [][]*model.Routine
	index := map[model.RoutineKind]int{}
	for _, r := range routines {
		i, ok := index[r.Kind]
		if !ok {
			i = len(groups)
			index[r.Kind] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], r)
	}
	return groups
}

// WriteData exports the rows of tables into the data directory. Tables are
// read with up to concurrency exporters at once (0 reads them one by one);
// files are written afterwards in table order. A table without rows leaves
// no file.
func (w *Writer) WriteData(ctx context.Context, exporter DataExporter, tables []*model.Table, concurrency int) error {
	if len(tables) == 0 || !w.Categories.Contains(layout.Data) {
		return nil
	}
	w.Logger.Println("Exporting data...")

	contents, err := database.ConcurrentMapFuncWithError(tables, concurrency, func(t *model.Table) ([]byte, error) {
		slog.Debug("Exporting data", "table", t.Owner+"."+t.Name)
		var buf bytes.Buffer
		if err := exporter.ExportData(ctx, t, &buf); err != nil {
			return nil, fmt.Errorf("failed to export data from %s: %w", t.QualifiedName(), err)
		}
		return buf.Bytes(), nil
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Join(w.Dir, layout.Data), 0755); err != nil {
		return err
	}
	for i, t := range tables {
		if len(contents[i]) == 0 {
			slog.Debug("No data to export", "table", t.Owner+"."+t.Name)
			continue
		}
		if err := os.WriteFile(layout.DataPath(w.Dir, t), contents[i], 0644); err != nil {
			return err
		}
	}
	return nil
}
