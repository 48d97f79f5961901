package model

import (
	"fmt"
	"strings"
)

// Table is an ordinary table or, when IsType is set, a table type. Table types
// cannot be altered in place.
type Table struct {
	Name        string
	Owner       string
	IsType      bool
	Columns     []*Column
	Constraints []*Constraint
}

var _ Owned = (*Table)(nil)

func NewTable(owner, name string) *Table {
	return &Table{Owner: owner, Name: name}
}

func (t *Table) scriptable()         {}
func (t *Table) ObjectName() string  { return t.Name }
func (t *Table) ObjectOwner() string { return t.Owner }

func (t *Table) QualifiedName() string {
	return QualifiedName(t.Owner, t.Name)
}

func (t *Table) FindColumn(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (t *Table) FindConstraint(name string) *Constraint {
	for _, c := range t.Constraints {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// AddConstraint attaches c to the table and sets its back-reference.
func (t *Table) AddConstraint(c *Constraint) {
	c.Table = t
	t.Constraints = append(t.Constraints, c)
}

func (t *Table) PrimaryKey() *Constraint {
	for _, c := range t.Constraints {
		if c.Type == PrimaryKey {
			return c
		}
	}
	return nil
}

// CheckConstraints returns the CHECK constraints, which are scripted apart from
// ordinary tables.
func (t *Table) CheckConstraints() []*Constraint {
	var checks []*Constraint
	for _, c := range t.Constraints {
		if c.Type == Check {
			checks = append(checks, c)
		}
	}
	return checks
}

func (t *Table) Defaults() []*Default {
	var defaults []*Default
	for _, c := range t.Columns {
		if c.Default != nil {
			defaults = append(defaults, c.Default)
		}
	}
	return defaults
}

// ScriptCreate renders CREATE TABLE (or CREATE TYPE … AS TABLE) with the primary
// key and unique constraints inline and indexes as separate statements. Defaults
// and CHECK constraints of ordinary tables are scripted on their own.
func (t *Table) ScriptCreate() string {
	var b strings.Builder
	if t.IsType {
		fmt.Fprintf(&b, "CREATE TYPE %s AS TABLE (", t.QualifiedName())
	} else {
		fmt.Fprintf(&b, "CREATE TABLE %s (", t.QualifiedName())
	}

	var lines []string
	for _, c := range t.Columns {
		lines = append(lines, c.ScriptCreate(t.IsType))
	}
	for _, c := range t.Constraints {
		switch c.Type {
		case PrimaryKey, Unique:
			lines = append(lines, c.scriptInline())
		case Check:
			if t.IsType {
				lines = append(lines, c.scriptInline())
			}
		case Index:
			if t.IsType {
				lines = append(lines, c.scriptInline())
			}
		}
	}
	for i, line := range lines {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("\n   ")
		b.WriteString(line)
	}
	b.WriteString("\n)")

	if !t.IsType {
		for _, c := range t.Constraints {
			if c.Type == Index {
				b.WriteString("\n\n")
				b.WriteString(c.ScriptCreate())
			}
		}
	}
	return b.String()
}

func (t *Table) ScriptDrop() string {
	if t.IsType {
		return "DROP TYPE " + t.QualifiedName()
	}
	return "DROP TABLE " + t.QualifiedName()
}
