package builder

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sqldef/schemadir/database"
	"github.com/sqldef/schemadir/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// objectExecutor understands two statements, one per line: "REQUIRE x" fails
// unless x was created earlier and "CREATE x" creates x.
type objectExecutor struct {
	created map[string]bool
	calls   int
}

func newObjectExecutor() *objectExecutor {
	return &objectExecutor{created: map[string]bool{}}
}

func (e *objectExecutor) ExecuteBatch(ctx context.Context, script string) error {
	e.calls++
	for i, line := range strings.Split(script, "\n") {
		verb, name, _ := strings.Cut(strings.TrimSpace(line), " ")
		switch verb {
		case "REQUIRE":
			if !e.created[name] {
				return &database.BatchError{Message: fmt.Sprintf("Invalid object name '%s'.", name), Line: i + 1}
			}
		case "CREATE":
			e.created[name] = true
		}
	}
	return nil
}

func scriptPaths(dir string, names ...string) []string {
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name+".sql")
	}
	return paths
}

func TestSchedulerRun(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		order   []string
		rounds  int
		failing []string
	}{
		{
			name: "independent scripts succeed in the first round",
			files: map[string]string{
				"a.sql": "CREATE a",
				"b.sql": "CREATE b",
			},
			order:  []string{"a", "b"},
			rounds: 1,
		},
		{
			name: "dependency chain in reverse order takes one round per link",
			files: map[string]string{
				"c.sql": "REQUIRE b\nCREATE c",
				"b.sql": "REQUIRE a\nCREATE b",
				"a.sql": "CREATE a",
			},
			order:  []string{"c", "b", "a"},
			rounds: 3,
		},
		{
			name: "mutual dependency aborts after the second round",
			files: map[string]string{
				"a.sql": "REQUIRE b\nCREATE a",
				"b.sql": "REQUIRE a\nCREATE b",
			},
			order:   []string{"a", "b"},
			rounds:  2,
			failing: []string{"a", "b"},
		},
		{
			name: "a missing object stalls while the rest succeeds",
			files: map[string]string{
				"a.sql": "CREATE a",
				"x.sql": "REQUIRE missing\nCREATE x",
				"y.sql": "REQUIRE x\nCREATE y",
			},
			order:   []string{"y", "x", "a"},
			rounds:  2,
			failing: []string{"y", "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			testutil.WriteFiles(t, dir, tt.files)

			scheduler := NewScheduler(newObjectExecutor(), 1)
			err := scheduler.Run(context.Background(), scriptPaths(dir, tt.order...))
			assert.Equal(t, tt.rounds, scheduler.Rounds())

			if tt.failing == nil {
				assert.NoError(t, err)
				return
			}

			var abortErr *StageAbortError
			require.True(t, errors.As(err, &abortErr), "unexpected error: %v", err)
			assert.Equal(t, 1, abortErr.Stage)
			var failing []string
			for _, scriptErr := range abortErr.Errors {
				failing = append(failing, scriptErr.Path)
			}
			assert.Equal(t, scriptPaths(dir, tt.failing...), failing)
		})
	}
}

func TestSchedulerRunsSucceededScriptsOnce(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"b.sql": "REQUIRE a\nCREATE b",
		"a.sql": "CREATE a",
	})

	executor := newObjectExecutor()
	scheduler := NewScheduler(executor, 0)
	require.NoError(t, scheduler.Run(context.Background(), scriptPaths(dir, "b", "a")))
	assert.Equal(t, 2, scheduler.Rounds())
	assert.Equal(t, 3, executor.calls)
}

func TestSchedulerEmptyStage(t *testing.T) {
	scheduler := NewScheduler(newObjectExecutor(), 3)
	assert.NoError(t, scheduler.Run(context.Background(), nil))
	assert.Equal(t, 0, scheduler.Rounds())
}

func TestStageAbortErrorUnwrapsToScriptErrors(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"a.sql": "\nREQUIRE missing",
	})

	err := NewScheduler(newObjectExecutor(), 2).Run(context.Background(), scriptPaths(dir, "a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage 2 aborted with 1 unresolved errors:")
	assert.Contains(t, err.Error(), "a.sql: line 2: Invalid object name 'missing'.")

	var scriptErr *ScriptError
	require.True(t, errors.As(err, &scriptErr))
	assert.Equal(t, filepath.Join(dir, "a.sql"), scriptErr.Path)

	var batchErr *database.BatchError
	require.True(t, errors.As(err, &batchErr))
	assert.Equal(t, 2, batchErr.Line)
}

func TestSchedulerMissingScript(t *testing.T) {
	err := NewScheduler(newObjectExecutor(), 1).Run(context.Background(), []string{filepath.Join(t.TempDir(), "missing.sql")})
	var abortErr *StageAbortError
	assert.False(t, errors.As(err, &abortErr))
	assert.Error(t, err)
}

func TestSchedulerWithSQLite(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"c.sql": "CREATE TABLE c AS SELECT * FROM b\nGO\n",
		"b.sql": "CREATE TABLE b AS SELECT * FROM a\nGO\n",
		"a.sql": "CREATE TABLE a (id int)\nGO\nINSERT INTO a VALUES (1)\nGO\n",
	})

	db := testutil.OpenSQLite(t)
	executor := database.NewSQLExecutor(db, 0)
	defer executor.Close()

	scheduler := NewScheduler(executor, 1)
	require.NoError(t, scheduler.Run(context.Background(), scriptPaths(dir, "c", "b", "a")))
	assert.Equal(t, 3, scheduler.Rounds())

	var id int
	require.NoError(t, db.QueryRow("SELECT id FROM c").Scan(&id))
	assert.Equal(t, 1, id)
}
