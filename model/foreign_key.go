package model

import (
	"fmt"
	"strings"
)

// ForeignKey references its owning and referenced tables without owning them.
// Columns and RefColumns are paired by position.
type ForeignKey struct {
	Name          string
	Table         *Table
	Columns       []string
	RefTable      *Table
	RefColumns    []string
	OnUpdate      string
	OnDelete      string
	Check         bool
	IsSystemNamed bool
}

var _ Scriptable = (*ForeignKey)(nil)

func NewForeignKey(name string) *ForeignKey {
	return &ForeignKey{Name: name, Check: true}
}

func (fk *ForeignKey) scriptable() {}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = QuoteName(n)
	}
	return strings.Join(quoted, ", ")
}

func (fk *ForeignKey) checkText() string {
	if fk.Check {
		return "CHECK"
	}
	return "NOCHECK"
}

func (fk *ForeignKey) ScriptCreate() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ALTER TABLE %s WITH %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		fk.Table.QualifiedName(), fk.checkText(), QuoteName(fk.Name), quoteList(fk.Columns),
		fk.RefTable.QualifiedName(), quoteList(fk.RefColumns))
	if fk.OnUpdate != "" && fk.OnUpdate != "NO ACTION" {
		fmt.Fprintf(&b, " ON UPDATE %s", fk.OnUpdate)
	}
	if fk.OnDelete != "" && fk.OnDelete != "NO ACTION" {
		fmt.Fprintf(&b, " ON DELETE %s", fk.OnDelete)
	}
	if !fk.Check {
		fmt.Fprintf(&b, "\nALTER TABLE %s NOCHECK CONSTRAINT %s", fk.Table.QualifiedName(), QuoteName(fk.Name))
	}
	return b.String()
}

func (fk *ForeignKey) ScriptDrop() string {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", fk.Table.QualifiedName(), QuoteName(fk.Name))
}
