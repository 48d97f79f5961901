package diff

import (
	"fmt"
	"strings"

	"github.com/sqldef/schemadir/model"
)

// Script renders a best-effort migration turning the target snapshot into the
// source one. Drops come first, foreign keys are created last.
func (d *SchemaDiff) Script() string {
	var batches []string
	add := func(statements ...string) {
		for _, s := range statements {
			if s != "" {
				batches = append(batches, s)
			}
		}
	}

	if len(d.PropsChanged) > 0 {
		add(strings.TrimSuffix(model.ScriptPropList(d.PropsChanged), "\n"))
	}

	for _, fk := range d.ForeignKeysDeleted {
		add(fk.ScriptDrop())
	}
	for _, fk := range d.ForeignKeysDiff {
		add(fk.ScriptDrop())
	}
	for _, p := range d.PermissionsDeleted {
		add(p.ScriptDrop())
	}
	for _, r := range d.RoutinesDeleted {
		add(r.ScriptDrop())
	}
	for _, c := range d.ViewIndexesDeleted {
		add(c.ScriptDrop())
	}
	for _, s := range d.SynonymsDeleted {
		add(s.ScriptDrop())
	}
	for _, t := range d.TablesDeleted {
		add(t.ScriptDrop())
	}
	for _, u := range d.UsersDeleted {
		add("DROP USER " + model.QuoteName(u.Name))
	}
	for _, a := range d.AssembliesDeleted {
		add(a.ScriptDrop())
	}

	for _, t := range d.TablesAdded {
		add(t.ScriptCreate())
		if !t.IsType {
			for _, c := range t.CheckConstraints() {
				add(c.ScriptCreate())
			}
			for _, def := range t.Defaults() {
				add(def.ScriptCreate())
			}
		}
	}
	for _, td := range d.TablesDiff {
		add(td.Script()...)
	}
	for _, t := range d.TableTypesDiff {
		add(t.ScriptDrop(), t.ScriptCreate())
	}

	for _, a := range d.AssembliesAdded {
		add(a.ScriptCreate())
	}
	for _, a := range d.AssembliesDiff {
		add(a.ScriptDrop(), a.ScriptCreate())
	}
	for _, u := range d.UsersAdded {
		add(u.ScriptCreate())
	}
	for _, u := range d.UsersDiff {
		add("DROP USER "+model.QuoteName(u.Name), u.ScriptCreate())
	}
	for _, r := range d.RoutinesAdded {
		add(r.ScriptCreate())
	}
	for _, r := range d.RoutinesDiff {
		add(r.ScriptDrop(), r.ScriptCreate())
	}
	for _, c := range d.ViewIndexesAdded {
		add(c.ScriptCreate())
	}
	for _, c := range d.ViewIndexesDiff {
		add(c.ScriptDrop(), c.ScriptCreate())
	}
	for _, s := range d.SynonymsAdded {
		add(s.ScriptCreate())
	}
	for _, s := range d.SynonymsDiff {
		add(s.ScriptDrop(), s.ScriptCreate())
	}
	for _, p := range d.PermissionsAdded {
		add(p.ScriptCreate())
	}
	for _, p := range d.PermissionsDiff {
		add(p.ScriptDrop(), p.ScriptCreate())
	}

	for _, fk := range d.ForeignKeysAdded {
		add(fk.ScriptCreate())
	}
	for _, fk := range d.ForeignKeysDiff {
		add(fk.ScriptCreate())
	}

	var b strings.Builder
	for _, s := range batches {
		b.WriteString(s)
		b.WriteString("\n" + model.BatchSeparator + "\n")
	}
	return b.String()
}

// Script returns the statements altering the target table into the source one.
// Columns that only moved are reported as comments: moving a column needs a
// table rebuild, which is left to the user.
func (d *TableDiff) Script() []string {
	var statements []string
	table := d.Source

	for _, c := range d.ConstraintsDeleted {
		statements = append(statements, c.ScriptDrop())
	}
	for _, c := range d.ConstraintsChanged {
		statements = append(statements, c.ScriptDrop())
	}
	for _, c := range d.ColumnsDropped {
		if c.Default != nil {
			statements = append(statements, dropDefault(d.Target, c.Default))
		}
		statements = append(statements, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", table.QualifiedName(), model.QuoteName(c.Name)))
	}
	for _, c := range d.ColumnsAdded {
		statements = append(statements, fmt.Sprintf("ALTER TABLE %s ADD %s", table.QualifiedName(), c.ScriptCreate(true)))
	}
	for _, cd := range d.ColumnsDiff {
		if cd.OnlyPositionChanged() {
			statements = append(statements, fmt.Sprintf("-- %s: column %s moved from position %d to %d, rebuild the table to reorder it",
				table.QualifiedName(), model.QuoteName(cd.Source.Name), cd.Target.Position, cd.Source.Position))
			continue
		}
		if cd.DefaultIsDiff() && cd.Target.Default != nil {
			statements = append(statements, dropDefault(d.Target, cd.Target.Default))
		}
		statements = append(statements, cd.Source.ScriptAlter(table))
		if cd.DefaultIsDiff() && cd.Source.Default != nil {
			statements = append(statements, fmt.Sprintf("ALTER TABLE %s ADD %s FOR %s",
				table.QualifiedName(), cd.Source.Default.ScriptInline(), model.QuoteName(cd.Source.Name)))
		}
	}
	for _, c := range d.ConstraintsChanged {
		statements = append(statements, c.ScriptCreate())
	}
	for _, c := range d.ConstraintsAdded {
		statements = append(statements, c.ScriptCreate())
	}
	return statements
}

func dropDefault(t *model.Table, def *model.Default) string {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", t.QualifiedName(), model.QuoteName(def.Name))
}
