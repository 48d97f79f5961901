package model

import (
	"fmt"
	"strings"
)

// DBProp is a database level setting. An empty Value means the setting was not
// read and is not scripted.
type DBProp struct {
	Name  string
	Value string
}

var propNames = []string{
	"COMPATIBILITY_LEVEL",
	"COLLATE",
	"AUTO_CLOSE",
	"AUTO_SHRINK",
	"ALLOW_SNAPSHOT_ISOLATION",
	"READ_COMMITTED_SNAPSHOT",
	"RECOVERY",
	"PAGE_VERIFY",
	"AUTO_CREATE_STATISTICS",
	"AUTO_UPDATE_STATISTICS",
	"AUTO_UPDATE_STATISTICS_ASYNC",
	"ANSI_NULL_DEFAULT",
	"ANSI_NULLS",
	"ANSI_PADDING",
	"ANSI_WARNINGS",
	"ARITHABORT",
	"CONCAT_NULL_YIELDS_NULL",
	"NUMERIC_ROUNDABORT",
	"QUOTED_IDENTIFIER",
	"RECURSIVE_TRIGGERS",
	"CURSOR_CLOSE_ON_COMMIT",
	"CURSOR_DEFAULT",
	"TRUSTWORTHY",
	"DB_CHAINING",
	"PARAMETERIZATION",
	"DATE_CORRELATION_OPTIMIZATION",
}

// ResetProps replaces Props with the full list of known settings, all unset.
func (db *Database) ResetProps() {
	db.Props = make([]*DBProp, len(propNames))
	for i, name := range propNames {
		db.Props[i] = &DBProp{Name: name}
	}
}

func (p *DBProp) scriptable() {}

var _ Scriptable = (*DBProp)(nil)

func (p *DBProp) ScriptCreate() string {
	return p.Script()
}

// Script renders the statement applying the setting to the database named by
// the @DB variable declared in the props preamble.
func (p *DBProp) Script() string {
	if p.Value == "" {
		return ""
	}
	var clause string
	switch p.Name {
	case "COLLATE":
		clause = "COLLATE " + p.Value
	case "COMPATIBILITY_LEVEL":
		clause = "SET COMPATIBILITY_LEVEL = " + p.Value
	default:
		clause = fmt.Sprintf("SET %s %s", p.Name, p.Value)
	}
	return fmt.Sprintf("EXEC('ALTER DATABASE [' + @DB + '] %s')", strings.ReplaceAll(clause, "'", "''"))
}

// ScriptPropList renders the preamble declaring @DB followed by one statement
// per set property.
func ScriptPropList(props []*DBProp) string {
	var b strings.Builder
	b.WriteString("DECLARE @DB VARCHAR(255)\n")
	b.WriteString("SET @DB = DB_NAME()\n")
	for _, p := range props {
		if s := p.Script(); s != "" {
			b.WriteString(s)
			b.WriteString("\n")
		}
	}
	return b.String()
}
