// Package diff compares two schema snapshots category by category.
//
// Compare never fails and never mutates its inputs. Added and changed objects
// are collected by walking the first snapshot, deleted ones by walking the
// second, so the output keeps load order and is not sorted.
package diff

import (
	"strings"

	"github.com/sqldef/schemadir/model"
)

// SchemaDiff describes how a snapshot (the "source") differs from another one
// (the "target"). Added objects exist only in the source, deleted ones only in
// the target.
type SchemaDiff struct {
	Target *model.Database

	PropsChanged []*model.DBProp

	TablesAdded    []*model.Table
	TablesDiff     []*TableDiff
	TableTypesDiff []*model.Table // table types cannot be altered, only recreated
	TablesDeleted  []*model.Table

	RoutinesAdded   []*model.Routine
	RoutinesDiff    []*model.Routine
	RoutinesDeleted []*model.Routine

	ForeignKeysAdded   []*model.ForeignKey
	ForeignKeysDiff    []*model.ForeignKey
	ForeignKeysDeleted []*model.ForeignKey

	AssembliesAdded   []*model.SQLAssembly
	AssembliesDiff    []*model.SQLAssembly
	AssembliesDeleted []*model.SQLAssembly

	UsersAdded   []*model.SQLUser
	UsersDiff    []*model.SQLUser
	UsersDeleted []*model.SQLUser

	ViewIndexesAdded   []*model.Constraint
	ViewIndexesDiff    []*model.Constraint
	ViewIndexesDeleted []*model.Constraint

	SynonymsAdded   []*model.Synonym
	SynonymsDiff    []*model.Synonym
	SynonymsDeleted []*model.Synonym

	PermissionsAdded   []*model.Permission
	PermissionsDiff    []*model.Permission
	PermissionsDeleted []*model.Permission
}

// IsDiff reports whether any category holds a difference.
func (d *SchemaDiff) IsDiff() bool {
	return len(d.PropsChanged) > 0 ||
		len(d.TablesAdded) > 0 || len(d.TablesDiff) > 0 || len(d.TableTypesDiff) > 0 || len(d.TablesDeleted) > 0 ||
		len(d.RoutinesAdded) > 0 || len(d.RoutinesDiff) > 0 || len(d.RoutinesDeleted) > 0 ||
		len(d.ForeignKeysAdded) > 0 || len(d.ForeignKeysDiff) > 0 || len(d.ForeignKeysDeleted) > 0 ||
		len(d.AssembliesAdded) > 0 || len(d.AssembliesDiff) > 0 || len(d.AssembliesDeleted) > 0 ||
		len(d.UsersAdded) > 0 || len(d.UsersDiff) > 0 || len(d.UsersDeleted) > 0 ||
		len(d.ViewIndexesAdded) > 0 || len(d.ViewIndexesDiff) > 0 || len(d.ViewIndexesDeleted) > 0 ||
		len(d.SynonymsAdded) > 0 || len(d.SynonymsDiff) > 0 || len(d.SynonymsDeleted) > 0 ||
		len(d.PermissionsAdded) > 0 || len(d.PermissionsDiff) > 0 || len(d.PermissionsDeleted) > 0
}

// Compare classifies every object of self and other as added, changed or
// deleted from the point of view of self.
func Compare(self, other *model.Database) *SchemaDiff {
	d := &SchemaDiff{Target: other}

	for _, p := range self.Props {
		p2 := other.FindProp(p.Name)
		if p2 == nil || p.Script() != p2.Script() {
			d.PropsChanged = append(d.PropsChanged, p)
		}
	}

	for _, tables := range [][]*model.Table{self.Tables, self.TableTypes} {
		for _, t := range tables {
			t2 := other.FindTable(t.Name, t.Owner, t.IsType)
			if t2 == nil {
				d.TablesAdded = append(d.TablesAdded, t)
				continue
			}
			tableDiff := CompareTables(t, t2)
			if !tableDiff.IsDiff() {
				continue
			}
			if t.IsType {
				d.TableTypesDiff = append(d.TableTypesDiff, t)
			} else {
				d.TablesDiff = append(d.TablesDiff, tableDiff)
			}
		}
	}
	for _, tables := range [][]*model.Table{other.Tables, other.TableTypes} {
		for _, t := range tables {
			if self.FindTable(t.Name, t.Owner, t.IsType) == nil {
				d.TablesDeleted = append(d.TablesDeleted, t)
			}
		}
	}

	d.RoutinesAdded, d.RoutinesDiff, d.RoutinesDeleted = compareObjects(self, other, self.Routines, other.Routines,
		func(db *model.Database, r *model.Routine) *model.Routine { return db.FindRoutine(r.Name, r.Owner) },
		func(a, b *model.Routine) bool { return strings.TrimSpace(a.Text) == strings.TrimSpace(b.Text) })

	d.ForeignKeysAdded, d.ForeignKeysDiff, d.ForeignKeysDeleted = compareObjects(self, other, self.ForeignKeys, other.ForeignKeys,
		func(db *model.Database, fk *model.ForeignKey) *model.ForeignKey {
			return db.FindForeignKey(fk.Name, fk.Table.Owner)
		},
		sameScript[*model.ForeignKey])

	d.AssembliesAdded, d.AssembliesDiff, d.AssembliesDeleted = compareObjects(self, other, self.Assemblies, other.Assemblies,
		func(db *model.Database, a *model.SQLAssembly) *model.SQLAssembly { return db.FindAssembly(a.Name) },
		sameScript[*model.SQLAssembly])

	d.UsersAdded, d.UsersDiff, d.UsersDeleted = compareObjects(self, other, self.Users, other.Users,
		func(db *model.Database, u *model.SQLUser) *model.SQLUser { return db.FindUser(u.Name) },
		sameScript[*model.SQLUser])

	d.ViewIndexesAdded, d.ViewIndexesDiff, d.ViewIndexesDeleted = compareObjects(self, other, self.ViewIndexes, other.ViewIndexes,
		func(db *model.Database, c *model.Constraint) *model.Constraint { return db.FindViewIndex(c.Name) },
		sameScript[*model.Constraint])

	d.SynonymsAdded, d.SynonymsDiff, d.SynonymsDeleted = compareObjects(self, other, self.Synonyms, other.Synonyms,
		func(db *model.Database, s *model.Synonym) *model.Synonym { return db.FindSynonym(s.Name, s.Owner) },
		func(a, b *model.Synonym) bool { return a.BaseObjectName == b.BaseObjectName })

	d.PermissionsAdded, d.PermissionsDiff, d.PermissionsDeleted = compareObjects(self, other, self.Permissions, other.Permissions,
		func(db *model.Database, p *model.Permission) *model.Permission { return db.FindPermission(p.Name()) },
		sameScript[*model.Permission])

	return d
}

func sameScript[T model.Scriptable](a, b T) bool {
	return a.ScriptCreate() == b.ScriptCreate()
}

// compareObjects matches mine against theirs with find, which returns the zero
// value when the key is absent from the given snapshot.
func compareObjects[T comparable](self, other *model.Database, mine, theirs []T,
	find func(*model.Database, T) T, equal func(a, b T) bool) (added, changed, deleted []T) {
	var zero T
	for _, o := range mine {
		o2 := find(other, o)
		if o2 == zero {
			added = append(added, o)
			continue
		}
		if !equal(o, o2) {
			changed = append(changed, o)
		}
	}
	for _, o := range theirs {
		if find(self, o) == zero {
			deleted = append(deleted, o)
		}
	}
	return added, changed, deleted
}
