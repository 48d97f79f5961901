package builder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/sqldef/schemadir/database"
)

// Scheduler runs the scripts of one stage without knowing their
// dependencies: failed scripts are retried in rounds for as long as every
// round leaves fewer failures than the one before.
type Scheduler struct {
	executor database.Executor
	stage    int
	rounds   int
}

func NewScheduler(executor database.Executor, stage int) *Scheduler {
	return &Scheduler{executor: executor, stage: stage}
}

// Rounds is the number of rounds the last Run went through.
func (s *Scheduler) Rounds() int {
	return s.rounds
}

// Run executes every script until all succeeded or a round made no progress,
// in which case a *StageAbortError lists the failures of that round. Reading a
// script or a cancelled ctx stops the run at once.
func (s *Scheduler) Run(ctx context.Context, scripts []string) error {
	worklist := slices.Clone(scripts)
	s.rounds = 0

	var errs []*ScriptError
	prevCount := -1
	for len(worklist) > 0 && (prevCount == -1 || len(errs) < prevCount) {
		if len(errs) > 0 {
			prevCount = len(errs)
			slog.Info(fmt.Sprintf("%d errors occurred, retrying...", len(errs)), "stage", s.stage)
		}
		s.rounds++

		errs = nil
		var remaining []string
		for i, path := range worklist {
			slog.Debug(fmt.Sprintf("Executing script %d of %d", i+1, len(worklist)), "stage", s.stage, "round", s.rounds, "file", path)
			script, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			if err := s.executor.ExecuteBatch(ctx, string(script)); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				slog.Debug(fmt.Sprintf("attempt %d: %s %s", s.rounds, path, err))
				errs = append(errs, &ScriptError{Path: path, Err: err})
				remaining = append(remaining, path)
			}
		}
		worklist = remaining
	}

	if len(errs) == 0 {
		return nil
	}
	for _, err := range errs {
		slog.Error(err.Error())
	}
	return &StageAbortError{Stage: s.stage, Errors: errs}
}
