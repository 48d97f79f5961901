package diff

import (
	"fmt"
	"strings"

	"github.com/sqldef/schemadir/model"
)

// Report renders a human readable summary of the differences.
func (d *SchemaDiff) Report() string {
	if !d.IsDiff() {
		return "Databases are identical.\n"
	}

	var b strings.Builder
	section := func(title string, names []string) {
		if len(names) == 0 {
			return
		}
		fmt.Fprintf(&b, "%s:\n", title)
		for _, name := range names {
			fmt.Fprintf(&b, "  %s\n", name)
		}
	}

	section("Properties changed", names(d.PropsChanged, func(p *model.DBProp) string {
		target := ""
		if d.Target != nil {
			if p2 := d.Target.FindProp(p.Name); p2 != nil {
				target = p2.Value
			}
		}
		return fmt.Sprintf("%s: %q -> %q", p.Name, target, p.Value)
	}))

	section("Tables added", names(d.TablesAdded, tableName))
	if len(d.TablesDiff) > 0 {
		b.WriteString("Tables changed:\n")
		for _, td := range d.TablesDiff {
			fmt.Fprintf(&b, "  %s\n", td.Source.QualifiedName())
			for _, line := range td.reportLines() {
				fmt.Fprintf(&b, "    %s\n", line)
			}
		}
	}
	section("Table types changed (must be recreated)", names(d.TableTypesDiff, tableName))
	section("Tables deleted", names(d.TablesDeleted, tableName))

	section("Routines added", names(d.RoutinesAdded, routineName))
	section("Routines changed", names(d.RoutinesDiff, routineName))
	section("Routines deleted", names(d.RoutinesDeleted, routineName))

	section("Foreign keys added", names(d.ForeignKeysAdded, foreignKeyName))
	section("Foreign keys changed", names(d.ForeignKeysDiff, foreignKeyName))
	section("Foreign keys deleted", names(d.ForeignKeysDeleted, foreignKeyName))

	section("Assemblies added", names(d.AssembliesAdded, assemblyName))
	section("Assemblies changed", names(d.AssembliesDiff, assemblyName))
	section("Assemblies deleted", names(d.AssembliesDeleted, assemblyName))

	section("Users added", names(d.UsersAdded, userName))
	section("Users changed", names(d.UsersDiff, userName))
	section("Users deleted", names(d.UsersDeleted, userName))

	section("View indexes added", names(d.ViewIndexesAdded, constraintName))
	section("View indexes changed", names(d.ViewIndexesDiff, constraintName))
	section("View indexes deleted", names(d.ViewIndexesDeleted, constraintName))

	section("Synonyms added", names(d.SynonymsAdded, synonymName))
	section("Synonyms changed", names(d.SynonymsDiff, synonymName))
	section("Synonyms deleted", names(d.SynonymsDeleted, synonymName))

	section("Permissions added", names(d.PermissionsAdded, (*model.Permission).Name))
	section("Permissions changed", names(d.PermissionsDiff, (*model.Permission).Name))
	section("Permissions deleted", names(d.PermissionsDeleted, (*model.Permission).Name))

	return b.String()
}

func (d *TableDiff) reportLines() []string {
	var lines []string
	for _, c := range d.ColumnsAdded {
		lines = append(lines, fmt.Sprintf("column %s added", model.QuoteName(c.Name)))
	}
	for _, cd := range d.ColumnsDiff {
		if cd.OnlyPositionChanged() {
			lines = append(lines, fmt.Sprintf("column %s moved from position %d to %d",
				model.QuoteName(cd.Source.Name), cd.Target.Position, cd.Source.Position))
		} else {
			lines = append(lines, fmt.Sprintf("column %s changed", model.QuoteName(cd.Source.Name)))
		}
	}
	for _, c := range d.ColumnsDropped {
		lines = append(lines, fmt.Sprintf("column %s dropped", model.QuoteName(c.Name)))
	}
	for _, c := range d.ConstraintsAdded {
		lines = append(lines, fmt.Sprintf("constraint %s added", model.QuoteName(c.Name)))
	}
	for _, c := range d.ConstraintsChanged {
		lines = append(lines, fmt.Sprintf("constraint %s changed", model.QuoteName(c.Name)))
	}
	for _, c := range d.ConstraintsDeleted {
		lines = append(lines, fmt.Sprintf("constraint %s deleted", model.QuoteName(c.Name)))
	}
	return lines
}

func names[T any](objects []T, name func(T) string) []string {
	out := make([]string, len(objects))
	for i, o := range objects {
		out[i] = name(o)
	}
	return out
}

func tableName(t *model.Table) string           { return t.QualifiedName() }
func routineName(r *model.Routine) string       { return model.QualifiedName(r.Owner, r.Name) }
func assemblyName(a *model.SQLAssembly) string  { return model.QuoteName(a.Name) }
func userName(u *model.SQLUser) string          { return model.QuoteName(u.Name) }
func constraintName(c *model.Constraint) string { return model.QuoteName(c.Name) }
func synonymName(s *model.Synonym) string       { return model.QualifiedName(s.Owner, s.Name) }
func foreignKeyName(fk *model.ForeignKey) string {
	return fk.Table.QualifiedName() + "." + model.QuoteName(fk.Name)
}
