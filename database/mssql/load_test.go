package mssql

import (
	"context"
	"errors"
	"testing"

	"github.com/sqldef/schemadir/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNotSupported = errors.New("invalid object name 'sys.table_types'")

func TestRunStepsResetsFailedOptionalStep(t *testing.T) {
	db := model.NewDatabase("shop")
	user := model.NewSQLUser("app", "dbo")
	steps := []loadStep{
		{category: "tables", load: func() error {
			db.Tables = append(db.Tables, model.NewTable("dbo", "orders"))
			return nil
		}},
		{category: "table types", optional: true, reset: clearTableTypes, load: func() error {
			t := model.NewTable("dbo", "id_list")
			t.IsType = true
			db.TableTypes = append(db.TableTypes, t)
			return nil
		}},
		{category: "table type columns", optional: true, reset: clearTableTypes, load: func() error {
			return errNotSupported
		}},
		{category: "routines", load: func() error {
			db.Routines = append(db.Routines, &model.Routine{Name: "recent", Owner: "dbo", Kind: model.View})
			return nil
		}},
		{category: "xml schema collections", optional: true, reset: clearXMLSchemas, load: func() error {
			db.Routines = append(db.Routines, &model.Routine{Name: "shapes", Owner: "dbo", Kind: model.XMLSchemaCollection})
			return errNotSupported
		}},
		{category: "assemblies", optional: true, reset: clearAssemblies, load: func() error {
			db.Assemblies = append(db.Assemblies, &model.SQLAssembly{Name: "Geo"})
			return errNotSupported
		}},
		{category: "users", load: func() error {
			db.Users = append(db.Users, user)
			return nil
		}},
		{category: "logins", optional: true, reset: clearLogins, load: func() error {
			user.PasswordHash = []byte{0x02}
			return errNotSupported
		}},
	}

	require.NoError(t, runSteps(context.Background(), db, steps))
	assert.Len(t, db.Tables, 1)
	assert.Empty(t, db.TableTypes)
	require.Len(t, db.Routines, 1)
	assert.Equal(t, "recent", db.Routines[0].Name)
	assert.Empty(t, db.Assemblies)
	require.Len(t, db.Users, 1)
	assert.Nil(t, db.Users[0].PasswordHash)
}

func TestRunStepsFailsOnRequiredStep(t *testing.T) {
	ran := false
	steps := []loadStep{
		{category: "tables", load: func() error { return errNotSupported }},
		{category: "columns", load: func() error { ran = true; return nil }},
	}

	err := runSteps(context.Background(), model.NewDatabase("shop"), steps)
	var queryErr *CatalogQueryError
	require.True(t, errors.As(err, &queryErr), "unexpected error: %v", err)
	assert.Equal(t, "tables", queryErr.Category)
	assert.ErrorIs(t, err, errNotSupported)
	assert.False(t, ran)
}

func TestRunStepsFailsOptionalStepOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	steps := []loadStep{
		{category: "assemblies", optional: true, reset: clearAssemblies, load: func() error { return ctx.Err() }},
	}
	assert.ErrorIs(t, runSteps(ctx, model.NewDatabase("shop"), steps), context.Canceled)
}
