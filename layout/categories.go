// Package layout defines the on-disk shape of a scripted database: the closed
// set of category directories and the file naming rules.
package layout

import (
	"fmt"
	"slices"
	"strings"
)

const (
	UserDefinedTypes     = "user_defined_types"
	Tables               = "tables"
	ForeignKeys          = "foreign_keys"
	Assemblies           = "assemblies"
	Functions            = "functions"
	Procedures           = "procedures"
	Triggers             = "triggers"
	Views                = "views"
	XMLSchemaCollections = "xmlschemacollections"
	Data                 = "data"
	Roles                = "roles"
	Users                = "users"
	Synonyms             = "synonyms"
	TableTypes           = "table_types"
	Schemas              = "schemas"
	Props                = "props"
	Permissions          = "permissions"
	CheckConstraints     = "check_constraints"
	Defaults             = "defaults"
)

// AfterData holds hand written scripts that run once data has been imported.
// It is never produced by scripting, only consumed by a build.
const AfterData = "after_data"

var allCategories = []string{
	UserDefinedTypes, Tables, ForeignKeys, Assemblies, Functions, Procedures,
	Triggers, Views, XMLSchemaCollections, Data, Roles, Users, Synonyms,
	TableTypes, Schemas, Props, Permissions, CheckConstraints, Defaults,
}

// AllCategories returns every known category in canonical order.
func AllCategories() []string {
	return slices.Clone(allCategories)
}

func IsCategory(name string) bool {
	return slices.Contains(allCategories, name)
}

// Categories is the set of categories a run works on. It is immutable once
// built; use NewCategories to derive one from the excluded names.
type Categories struct {
	enabled []string
}

// NewCategories enables every category except the excluded ones. An unknown
// name is an error.
func NewCategories(excluded []string) (Categories, error) {
	for _, name := range excluded {
		if !IsCategory(name) {
			return Categories{}, fmt.Errorf("unknown category '%s', valid categories are: %s", name, strings.Join(allCategories, ", "))
		}
	}

	enabled := make([]string, 0, len(allCategories))
	for _, name := range allCategories {
		if !slices.Contains(excluded, name) {
			enabled = append(enabled, name)
		}
	}
	return Categories{enabled: enabled}, nil
}

// DefaultCategories enables everything.
func DefaultCategories() Categories {
	return Categories{enabled: AllCategories()}
}

func (c Categories) Contains(name string) bool {
	return slices.Contains(c.enabled, name)
}

// Names returns the enabled categories in canonical order.
func (c Categories) Names() []string {
	return slices.Clone(c.enabled)
}
