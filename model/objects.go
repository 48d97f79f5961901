package model

import (
	"encoding/hex"
	"fmt"
	"strings"
)

type Synonym struct {
	Name           string
	Owner          string
	BaseObjectName string
}

var _ Owned = (*Synonym)(nil)

func (s *Synonym) scriptable()         {}
func (s *Synonym) ObjectName() string  { return s.Name }
func (s *Synonym) ObjectOwner() string { return s.Owner }

func (s *Synonym) ScriptCreate() string {
	return fmt.Sprintf("CREATE SYNONYM %s FOR %s", QualifiedName(s.Owner, s.Name), s.BaseObjectName)
}

func (s *Synonym) ScriptDrop() string {
	return "DROP SYNONYM " + QualifiedName(s.Owner, s.Name)
}

type AssemblyFile struct {
	Name    string
	Content []byte
}

// SQLAssembly is a CLR assembly; the first file is the assembly itself and the
// rest are added to it.
type SQLAssembly struct {
	Name          string
	PermissionSet string
	Files         []AssemblyFile
}

var _ Scriptable = (*SQLAssembly)(nil)

func (a *SQLAssembly) scriptable() {}

// permissionSet maps the catalog description (SAFE_ACCESS, ...) to the
// CREATE ASSEMBLY keyword.
func (a *SQLAssembly) permissionSet() string {
	set := strings.TrimSuffix(a.PermissionSet, "_ACCESS")
	if set == "EXTERNAL" {
		return "EXTERNAL_ACCESS"
	}
	return set
}

func binaryLiteral(b []byte) string {
	return "0x" + strings.ToUpper(hex.EncodeToString(b))
}

func (a *SQLAssembly) ScriptCreate() string {
	if len(a.Files) == 0 {
		return ""
	}
	statements := []string{
		fmt.Sprintf("CREATE ASSEMBLY %s\nFROM %s\nWITH PERMISSION_SET = %s",
			QuoteName(a.Name), binaryLiteral(a.Files[0].Content), a.permissionSet()),
	}
	for _, f := range a.Files[1:] {
		statements = append(statements, fmt.Sprintf("ALTER ASSEMBLY %s\nADD FILE FROM %s\nAS %s",
			QuoteName(a.Name), binaryLiteral(f.Content), StringLiteral(f.Name)))
	}
	return batch(statements...)
}

func (a *SQLAssembly) ScriptDrop() string {
	return "DROP ASSEMBLY " + QuoteName(a.Name)
}

// UserDefinedType is an alias type. MaxLength is in bytes as reported by the
// catalog; -1 means max.
type UserDefinedType struct {
	Name         string
	Owner        string
	BaseTypeName string
	MaxLength    int
	Nullable     bool
}

var _ Owned = (*UserDefinedType)(nil)

func (u *UserDefinedType) scriptable()         {}
func (u *UserDefinedType) ObjectName() string  { return u.Name }
func (u *UserDefinedType) ObjectOwner() string { return u.Owner }

func (u *UserDefinedType) ScriptCreate() string {
	typeName := QuoteName(u.BaseTypeName)
	switch u.BaseTypeName {
	case "binary", "char", "varbinary", "varchar":
		if u.MaxLength == -1 {
			typeName += "(max)"
		} else {
			typeName += fmt.Sprintf("(%d)", u.MaxLength)
		}
	case "nchar", "nvarchar":
		if u.MaxLength == -1 {
			typeName += "(max)"
		} else {
			typeName += fmt.Sprintf("(%d)", u.MaxLength/2)
		}
	}
	null := "NOT NULL"
	if u.Nullable {
		null = "NULL"
	}
	return fmt.Sprintf("CREATE TYPE %s FROM %s %s", QualifiedName(u.Owner, u.Name), typeName, null)
}
