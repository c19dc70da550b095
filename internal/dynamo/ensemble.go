package dynamo

import (
	"context"
	"sync"
)

// Ensemble runs independent simulations concurrently, e.g. a sweep over
// contact angles. Each member gets its own mesh and fields.
type Ensemble struct {
	Configs []Config
	// Setup, if set, attaches observers and metrics to member i.
	Setup func(i int, s *Simulator) error
}

// Run initialises every member from scratch and runs them to their end
// times. Results are in Configs order; the first error is returned after
// all members have stopped.
func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, len(e.Configs))
	errs := make([]error, len(e.Configs))

	var wg sync.WaitGroup
	for i := range e.Configs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			s, err := New(e.Configs[idx])
			if err != nil {
				errs[idx] = err
				return
			}
			if e.Setup != nil {
				if errs[idx] = e.Setup(idx, s); errs[idx] != nil {
					return
				}
			}
			if errs[idx] = s.Init(""); errs[idx] != nil {
				return
			}
			results[idx], errs[idx] = s.Run(ctx)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}
