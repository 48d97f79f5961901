// Package model holds the in-memory representation of one database snapshot.
// It has no knowledge of how a snapshot is loaded, written or compared.
package model

import (
	"strings"
)

// DefaultSchema is the schema objects live in when no owner is spelled out.
const DefaultSchema = "dbo"

// BatchSeparator ends every batch written into a script file.
const BatchSeparator = "GO"

// Scriptable is implemented by every object kind that can render its own
// creation script. The set is closed: only types of this package satisfy it.
type Scriptable interface {
	ScriptCreate() string
	scriptable()
}

// Owned is implemented by objects living inside a schema.
type Owned interface {
	Scriptable
	ObjectName() string
	ObjectOwner() string
}

// QuoteName brackets an identifier, doubling any closing bracket.
func QuoteName(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// QualifiedName renders [owner].[name].
func QualifiedName(owner, name string) string {
	return QuoteName(owner) + "." + QuoteName(name)
}

// StringLiteral renders an N-prefixed Unicode string constant.
func StringLiteral(s string) string {
	return "N'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func batch(statements ...string) string {
	return strings.Join(statements, "\n"+BatchSeparator+"\n")
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}
