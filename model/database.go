package model

import (
	"regexp"
	"strings"
)

// Database is the root aggregate of a snapshot. Collections keep the order in
// which the objects were loaded.
type Database struct {
	Name string

	Tables           []*Table
	TableTypes       []*Table
	ForeignKeys      []*ForeignKey
	Routines         []*Routine
	Assemblies       []*SQLAssembly
	Users            []*SQLUser
	Roles            []*Role
	Synonyms         []*Synonym
	Permissions      []*Permission
	ViewIndexes      []*Constraint
	Schemas          []*Schema
	Props            []*DBProp
	UserDefinedTypes []*UserDefinedType

	// DataTables are the tables whose rows are exported with the scripts.
	DataTables []*Table
}

func NewDatabase(name string) *Database {
	db := &Database{Name: name}
	db.ResetProps()
	return db
}

func (db *Database) FindProp(name string) *DBProp {
	for _, p := range db.Props {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

// FindTable looks a table up among ordinary tables or, with isType, among table types.
func (db *Database) FindTable(name, owner string, isType bool) *Table {
	tables := db.Tables
	if isType {
		tables = db.TableTypes
	}
	return findTable(tables, name, owner)
}

func findTable(tables []*Table, name, owner string) *Table {
	for _, t := range tables {
		if t.Name == name && t.Owner == owner {
			return t
		}
	}
	return nil
}

func (db *Database) FindConstraint(name string) *Constraint {
	for _, t := range db.Tables {
		if c := t.FindConstraint(name); c != nil {
			return c
		}
	}
	return nil
}

// FindForeignKey matches by name and the owner of the table holding the key.
func (db *Database) FindForeignKey(name, owner string) *ForeignKey {
	for _, fk := range db.ForeignKeys {
		if fk.Name == name && fk.Table != nil && fk.Table.Owner == owner {
			return fk
		}
	}
	return nil
}

func (db *Database) FindRoutine(name, owner string) *Routine {
	for _, r := range db.Routines {
		if r.Name == name && r.Owner == owner {
			return r
		}
	}
	return nil
}

func (db *Database) FindAssembly(name string) *SQLAssembly {
	for _, a := range db.Assemblies {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// FindUser is case-insensitive, like principal names on the server.
func (db *Database) FindUser(name string) *SQLUser {
	for _, u := range db.Users {
		if strings.EqualFold(u.Name, name) {
			return u
		}
	}
	return nil
}

func (db *Database) FindRole(name string) *Role {
	for _, r := range db.Roles {
		if r.Name == name {
			return r
		}
	}
	return nil
}

func (db *Database) FindViewIndex(name string) *Constraint {
	for _, c := range db.ViewIndexes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (db *Database) FindSynonym(name, owner string) *Synonym {
	for _, s := range db.Synonyms {
		if s.Name == name && s.Owner == owner {
			return s
		}
	}
	return nil
}

func (db *Database) FindPermission(name string) *Permission {
	for _, p := range db.Permissions {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// FindTablesRegex returns the tables whose name matches pattern (everything
// when empty) and does not match exclude (nothing when empty).
func (db *Database) FindTablesRegex(pattern, exclude string) ([]*Table, error) {
	var include, skip *regexp.Regexp
	var err error
	if pattern != "" {
		if include, err = regexp.Compile(pattern); err != nil {
			return nil, err
		}
	}
	if exclude != "" {
		if skip, err = regexp.Compile(exclude); err != nil {
			return nil, err
		}
	}

	var tables []*Table
	for _, t := range db.Tables {
		if include != nil && !include.MatchString(t.Name) {
			continue
		}
		if skip != nil && skip.MatchString(t.Name) {
			continue
		}
		tables = append(tables, t)
	}
	return tables, nil
}
