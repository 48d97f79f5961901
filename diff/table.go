package diff

import (
	"github.com/sqldef/schemadir/model"
)

// TableDiff is the structural difference of one table present in both
// snapshots. Source is the table of the first snapshot.
type TableDiff struct {
	Source *model.Table
	Target *model.Table

	ColumnsAdded   []*model.Column
	ColumnsDropped []*model.Column
	ColumnsDiff    []*ColumnDiff

	ConstraintsAdded   []*model.Constraint
	ConstraintsChanged []*model.Constraint
	ConstraintsDeleted []*model.Constraint
}

func (d *TableDiff) IsDiff() bool {
	return len(d.ColumnsAdded) > 0 || len(d.ColumnsDropped) > 0 || len(d.ColumnsDiff) > 0 ||
		len(d.ConstraintsAdded) > 0 || len(d.ConstraintsChanged) > 0 || len(d.ConstraintsDeleted) > 0
}

// CompareTables compares columns by name and constraints by name.
func CompareTables(source, target *model.Table) *TableDiff {
	d := &TableDiff{Source: source, Target: target}

	for _, c := range source.Columns {
		c2 := target.FindColumn(c.Name)
		if c2 == nil {
			d.ColumnsAdded = append(d.ColumnsAdded, c)
			continue
		}
		if cd := (&ColumnDiff{Source: c, Target: c2}); cd.IsDiff() {
			d.ColumnsDiff = append(d.ColumnsDiff, cd)
		}
	}
	for _, c := range target.Columns {
		if source.FindColumn(c.Name) == nil {
			d.ColumnsDropped = append(d.ColumnsDropped, c)
		}
	}

	for _, c := range source.Constraints {
		c2 := target.FindConstraint(c.Name)
		if c2 == nil {
			d.ConstraintsAdded = append(d.ConstraintsAdded, c)
			continue
		}
		if c.ScriptCreate() != c2.ScriptCreate() {
			d.ConstraintsChanged = append(d.ConstraintsChanged, c)
		}
	}
	for _, c := range target.Constraints {
		if source.FindConstraint(c.Name) == nil {
			d.ConstraintsDeleted = append(d.ConstraintsDeleted, c)
		}
	}
	return d
}

type ColumnDiff struct {
	Source *model.Column
	Target *model.Column
}

func (d *ColumnDiff) IsDiff() bool {
	return d.IsDiffBesidesPosition() || d.Source.Position != d.Target.Position
}

// IsDiffBesidesPosition compares every attribute of the column definition
// except its ordinal position.
func (d *ColumnDiff) IsDiffBesidesPosition() bool {
	s, t := d.Source, d.Target
	return s.Type != t.Type ||
		s.Nullable != t.Nullable ||
		s.Length != t.Length ||
		s.Precision != t.Precision ||
		s.Scale != t.Scale ||
		s.IsRowGuid != t.IsRowGuid ||
		identityText(s.Identity) != identityText(t.Identity) ||
		d.DefaultIsDiff() ||
		s.Computed != t.Computed ||
		s.Persisted != t.Persisted
}

func (d *ColumnDiff) OnlyPositionChanged() bool {
	return !d.IsDiffBesidesPosition() && d.Source.Position != d.Target.Position
}

func (d *ColumnDiff) DefaultIsDiff() bool {
	return defaultText(d.Source.Default) != defaultText(d.Target.Default)
}

func identityText(i *model.Identity) string {
	if i == nil {
		return ""
	}
	return i.Script()
}

// defaultText leaves out the generated name of system named defaults, which
// differs between otherwise identical databases.
func defaultText(d *model.Default) string {
	if d == nil {
		return ""
	}
	return d.ScriptInline()
}
