package model

import (
	"fmt"
	"strings"
)

type RoutineKind int

const (
	Procedure RoutineKind = iota
	Function
	Trigger
	View
	XMLSchemaCollection
)

var routineKindNames = map[RoutineKind]string{
	Procedure:           "Procedure",
	Function:            "Function",
	Trigger:             "Trigger",
	View:                "View",
	XMLSchemaCollection: "XmlSchemaCollection",
}

func (k RoutineKind) String() string {
	if name, ok := routineKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("RoutineKind(%d)", int(k))
}

// Routine is any object defined by module text: procedures, functions,
// triggers, views and XML schema collections.
type Routine struct {
	Name     string
	Owner    string
	Kind     RoutineKind
	Text     string
	AnsiNull bool
	QuotedID bool

	// Triggers only
	RelatedTableName   string
	RelatedTableSchema string
	Disabled           bool
}

var _ Owned = (*Routine)(nil)

func (r *Routine) scriptable()         {}
func (r *Routine) ObjectName() string  { return r.Name }
func (r *Routine) ObjectOwner() string { return r.Owner }

func (r *Routine) ScriptCreate() string {
	if r.Kind == XMLSchemaCollection {
		return r.Text
	}
	statements := []string{
		"SET QUOTED_IDENTIFIER " + onOff(r.QuotedID),
		"SET ANSI_NULLS " + onOff(r.AnsiNull),
		r.Text,
	}
	if r.Kind == Trigger && r.Disabled {
		statements = append(statements, fmt.Sprintf("DISABLE TRIGGER %s ON %s",
			QualifiedName(r.Owner, r.Name), QualifiedName(r.RelatedTableSchema, r.RelatedTableName)))
	}
	return batch(statements...)
}

func (r *Routine) ScriptDrop() string {
	var keyword string
	switch r.Kind {
	case Procedure:
		keyword = "PROCEDURE"
	case Function:
		keyword = "FUNCTION"
	case Trigger:
		keyword = "TRIGGER"
	case View:
		keyword = "VIEW"
	case XMLSchemaCollection:
		keyword = "XML SCHEMA COLLECTION"
	}
	return fmt.Sprintf("DROP %s %s", keyword, QualifiedName(r.Owner, r.Name))
}

// ScriptAlter turns the CREATE of the module text into ALTER, used to update a
// routine without dropping its permissions.
func (r *Routine) ScriptAlter() string {
	if r.Kind == XMLSchemaCollection {
		return ""
	}
	idx := strings.Index(strings.ToUpper(r.Text), "CREATE")
	if idx < 0 {
		return ""
	}
	return r.Text[:idx] + "ALTER" + r.Text[idx+len("CREATE"):]
}
