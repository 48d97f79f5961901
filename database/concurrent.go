package database

import (
	"golang.org/x/sync/errgroup"
)

// ConcurrentMapFuncWithError maps inputs through f with at most concurrency
// calls in flight. Zero disables concurrency and a negative value removes the
// limit. Outputs keep the order of inputs.
func ConcurrentMapFuncWithError[Tin any, Tout any](inputs []Tin, concurrency int, f func(Tin) (Tout, error)) ([]Tout, error) {
	eg := errgroup.Group{}
	if concurrency == 0 {
		eg.SetLimit(1)
	} else if concurrency > 0 {
		eg.SetLimit(concurrency)
	}

	outputs := make([]Tout, len(inputs))
	for i, in := range inputs {
		eg.Go(func() error {
			out, err := f(in)
			if err != nil {
				return err
			}
			outputs[i] = out
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}
