package model

import (
	"encoding/hex"
	"fmt"
	"strings"
)

type Role struct {
	Name string
}

var _ Scriptable = (*Role)(nil)

func (r *Role) scriptable() {}

func (r *Role) ScriptCreate() string {
	return "CREATE ROLE " + QuoteName(r.Name)
}

// SQLUser is a database user, optionally mapped to a SQL login whose password
// hash was readable on the source server.
type SQLUser struct {
	Name          string
	DefaultSchema string
	DatabaseRoles []string
	PasswordHash  []byte
}

var _ Scriptable = (*SQLUser)(nil)

func NewSQLUser(name, defaultSchema string) *SQLUser {
	return &SQLUser{Name: name, DefaultSchema: defaultSchema}
}

func (u *SQLUser) scriptable() {}

func (u *SQLUser) AddRole(role string) {
	for _, r := range u.DatabaseRoles {
		if r == role {
			return
		}
	}
	u.DatabaseRoles = append(u.DatabaseRoles, role)
}

func (u *SQLUser) ScriptCreate() string {
	var statements []string
	schema := ""
	if u.DefaultSchema != "" {
		schema = " WITH DEFAULT_SCHEMA = " + QuoteName(u.DefaultSchema)
	}
	if u.PasswordHash != nil {
		statements = append(statements,
			fmt.Sprintf("IF SUSER_ID(%s) IS NULL BEGIN CREATE LOGIN %s WITH PASSWORD = 0x%s HASHED END",
				StringLiteral(u.Name), QuoteName(u.Name), strings.ToUpper(hex.EncodeToString(u.PasswordHash))),
			fmt.Sprintf("CREATE USER %s FOR LOGIN %s%s", QuoteName(u.Name), QuoteName(u.Name), schema))
	} else {
		statements = append(statements, fmt.Sprintf("CREATE USER %s WITHOUT LOGIN%s", QuoteName(u.Name), schema))
	}
	for _, role := range u.DatabaseRoles {
		statements = append(statements, fmt.Sprintf("ALTER ROLE %s ADD MEMBER %s", QuoteName(role), QuoteName(u.Name)))
	}
	return strings.Join(statements, "\n")
}

// Schema is a user schema and the principal that owns it.
type Schema struct {
	Name          string
	PrincipalName string
}

var _ Scriptable = (*Schema)(nil)

func (s *Schema) scriptable() {}

func (s *Schema) ScriptCreate() string {
	return fmt.Sprintf("CREATE SCHEMA %s AUTHORIZATION %s", QuoteName(s.Name), QuoteName(s.PrincipalName))
}

// Permission is a grant of one permission on one object to one principal.
type Permission struct {
	UserName       string
	ObjectOwner    string
	ObjectName     string
	PermissionName string
}

var _ Scriptable = (*Permission)(nil)

func (p *Permission) scriptable() {}

// Name identifies the grant; it is unique within a database.
func (p *Permission) Name() string {
	return fmt.Sprintf("%s.%s.%s.%s", p.ObjectOwner, p.ObjectName, p.PermissionName, p.UserName)
}

func (p *Permission) ScriptCreate() string {
	return fmt.Sprintf("GRANT %s ON %s TO %s", p.PermissionName, QualifiedName(p.ObjectOwner, p.ObjectName), QuoteName(p.UserName))
}

func (p *Permission) ScriptDrop() string {
	return fmt.Sprintf("REVOKE %s ON %s FROM %s", p.PermissionName, QualifiedName(p.ObjectOwner, p.ObjectName), QuoteName(p.UserName))
}
