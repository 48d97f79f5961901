package builder

import (
	"fmt"
	"strings"
)

// ScriptError is a script file that failed to run.
type ScriptError struct {
	Path string
	Err  error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Err)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

// StageAbortError ends a build when a retry round of a stage resolved no
// failure. Errors are the failures of that last round.
type StageAbortError struct {
	Stage  int
	Errors []*ScriptError
}

func (e *StageAbortError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "stage %d aborted with %d unresolved errors:", e.Stage, len(e.Errors))
	for _, err := range e.Errors {
		b.WriteString("\n  ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *StageAbortError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		errs[i] = err
	}
	return errs
}

// SQLFileError is a failure of a script that runs outside the staged build,
// such as props.sql.
type SQLFileError struct {
	Path string
	Err  error
}

func (e *SQLFileError) Error() string {
	return fmt.Sprintf("failed to run %s: %s", e.Path, e.Err)
}

func (e *SQLFileError) Unwrap() error {
	return e.Err
}
