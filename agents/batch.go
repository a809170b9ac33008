package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/reusee/taiplan/logs"
	"github.com/reusee/taiplan/oracles"
	"github.com/reusee/taiplan/storages"
	"github.com/reusee/taiplan/syncs"
	"golang.org/x/sync/errgroup"
)

type BatchResult struct {
	Task    string
	Outcome Outcome
	// infrastructure failure of this task only
	Err error
}

// RunBatch runs every task in its own Session, at most n at a time.
// newOracle is called once per task. Results are in the order of tasks.
type RunBatch func(
	ctx context.Context,
	tasks []string,
	n int,
	newOracle func(task string) (oracles.Oracle, error),
	ledger *storages.Ledger,
) ([]BatchResult, error)

func (Module) RunBatch(
	newSession NewSession,
	newSpan logs.NewSpan,
	logger logs.Logger,
) RunBatch {
	return func(
		ctx context.Context,
		tasks []string,
		n int,
		newOracle func(task string) (oracles.Oracle, error),
		ledger *storages.Ledger,
	) ([]BatchResult, error) {
		results := make([]BatchResult, len(tasks))
		sem := syncs.NewSemaphore(n)
		group, ctx := errgroup.WithContext(ctx)

		for i, task := range tasks {
			results[i].Task = task
			group.Go(func() error {
				if err := sem.Acquire(ctx); err != nil {
					return err
				}
				defer sem.Release()

				ctx, _ := newSpan(ctx, "", "batch task")
				outcome, err := func() (Outcome, error) {
					oracle, err := newOracle(task)
					if err != nil {
						return Outcome{}, fmt.Errorf("oracle: %w", err)
					}
					session, err := newSession(oracle)
					if err != nil {
						return Outcome{}, err
					}
					session.Ledger = ledger
					return session.RunTask(ctx, task)
				}()
				results[i].Outcome = outcome
				results[i].Err = err

				if err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return err
					}
					logger.ErrorContext(ctx, "batch task", "task", task, "error", err)
				}
				return nil
			})
		}

		err := group.Wait()
		return results, err
	}
}
