package layout

import (
	"path/filepath"
	"strings"

	"github.com/sqldef/schemadir/model"
)

const (
	ScriptExt = ".sql"
	DataExt   = ".tsv"

	// PropsFile lives at the root of the script directory.
	PropsFile = Props + ScriptExt

	tableTypePrefix = "TYPE_"
)

// FileName builds the base file name of an object. The owner is left out for
// objects in the default schema.
func FileName(owner, name string) string {
	fileName := name
	if owner != "" && !strings.EqualFold(owner, model.DefaultSchema) {
		fileName = owner + "." + name
	}
	return strings.Map(func(r rune) rune {
		if isInvalidFileNameChar(r) {
			return '-'
		}
		return r
	}, fileName)
}

func isInvalidFileNameChar(r rune) bool {
	if r < 0x20 {
		return true
	}
	return strings.ContainsRune(`<>:"/\|?*`, r)
}

// ObjectFileName returns the base file name an object is scripted to.
// Foreign keys, defaults and check constraints share their table's file.
func ObjectFileName(obj model.Scriptable) string {
	switch o := obj.(type) {
	case *model.ForeignKey:
		return ObjectFileName(o.Table)
	case *model.Default:
		return ObjectFileName(o.Table)
	case *model.Constraint:
		if o.Type == model.Check && o.Table != nil {
			return ObjectFileName(o.Table)
		}
		return FileName("", o.Name)
	case *model.Table:
		fileName := FileName(o.Owner, o.Name)
		if o.IsType {
			return tableTypePrefix + fileName
		}
		return fileName
	case model.Owned:
		return FileName(o.ObjectOwner(), o.ObjectName())
	case *model.Role:
		return FileName("", o.Name)
	case *model.SQLUser:
		return FileName("", o.Name)
	case *model.Schema:
		return FileName("", o.Name)
	case *model.SQLAssembly:
		return FileName("", o.Name)
	case *model.Permission:
		return FileName("", o.Name())
	default:
		return ""
	}
}

// RoutineDir is the category directory of a routine kind, e.g. "procedures".
func RoutineDir(kind model.RoutineKind) string {
	return strings.ToLower(kind.String()) + "s"
}

// ScriptPath is the path of the .sql file obj is written to under dir.
func ScriptPath(dir, category string, obj model.Scriptable) string {
	return filepath.Join(dir, category, ObjectFileName(obj)+ScriptExt)
}

// DataPath is the path of the data file of a table under dir.
func DataPath(dir string, t *model.Table) string {
	return filepath.Join(dir, Data, ObjectFileName(t)+DataExt)
}
