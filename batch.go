package hitchhike

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// OutcomeStatus is the result kind of a single batch query
type OutcomeStatus uint16

const (
	OUTCOME_OK = OutcomeStatus(iota + 1)
	OUTCOME_NO_ROUTE
	OUTCOME_INFEASIBLE
	OUTCOME_FAILED
	OUTCOME_CANCELLED
)

func (iotaIdx OutcomeStatus) String() string {
	if iotaIdx < OUTCOME_OK || iotaIdx > OUTCOME_CANCELLED {
		return "undefined"
	}
	return [...]string{"ok", "no_route", "infeasible", "failed", "cancelled"}[iotaIdx-1]
}

// QueryOutcome holds result or error of the query with the same index
type QueryOutcome struct {
	Index  int
	Query  Query
	Status OutcomeStatus
	Result *SizingResult
	Err    error
}

// BatchReport keeps outcomes in query order
type BatchReport struct {
	Outcomes []QueryOutcome
	Elapsed  time.Duration
}

// Results returns successful results in query order
func (report *BatchReport) Results() []*SizingResult {
	out := make([]*SizingResult, 0, len(report.Outcomes))
	for _, outcome := range report.Outcomes {
		if outcome.Status == OUTCOME_OK {
			out = append(out, outcome.Result)
		}
	}
	return out
}

// Count returns number of outcomes with given status
func (report *BatchReport) Count(status OutcomeStatus) int {
	n := 0
	for _, outcome := range report.Outcomes {
		if outcome.Status == status {
			n++
		}
	}
	return n
}

func (report *BatchReport) String() string {
	return fmt.Sprintf("%d queries: %d ok, %d no route, %d infeasible, %d failed, %d cancelled in %v",
		len(report.Outcomes),
		report.Count(OUTCOME_OK),
		report.Count(OUTCOME_NO_ROUTE),
		report.Count(OUTCOME_INFEASIBLE),
		report.Count(OUTCOME_FAILED),
		report.Count(OUTCOME_CANCELLED),
		report.Elapsed,
	)
}

func classifyOutcome(err error) OutcomeStatus {
	switch {
	case err == nil:
		return OUTCOME_OK
	case errors.Is(err, ErrNoRouteFound):
		return OUTCOME_NO_ROUTE
	case errors.Is(err, ErrInfeasibleBattery):
		return OUTCOME_INFEASIBLE
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OUTCOME_CANCELLED
	}
	return OUTCOME_FAILED
}

// RunBatch sizes battery for every query on up to workers goroutines (NumCPU when workers <= 0).
// A failing query never stops the others. Once ctx is cancelled no new queries are started
// and the rest are reported as cancelled.
func RunBatch(ctx context.Context, engine *Engine, queries []Query, workers int) BatchReport {
	st := time.Now()
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	report := BatchReport{
		Outcomes: make([]QueryOutcome, len(queries)),
	}
	logger := engine.logger
	var done atomic.Int64

	var eg errgroup.Group
	eg.SetLimit(workers)
	for i := range queries {
		outcome := &report.Outcomes[i]
		outcome.Index = i
		outcome.Query = queries[i]
		if err := ctx.Err(); err != nil {
			outcome.Status = OUTCOME_CANCELLED
			outcome.Err = err
			continue
		}
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcome.Status = OUTCOME_CANCELLED
				outcome.Err = err
				return nil
			}
			result, err := engine.Size(outcome.Query)
			outcome.Result = result
			outcome.Err = err
			outcome.Status = classifyOutcome(err)
			switch outcome.Status {
			case OUTCOME_NO_ROUTE:
				logger.With(slog.Int("query", outcome.Index)).Infof("skipping destination without route: %v", err)
			case OUTCOME_INFEASIBLE, OUTCOME_FAILED:
				logger.With(slog.Int("query", outcome.Index), slog.String("status", outcome.Status.String())).Warnf("query failed: %v", err)
			}
			if n := done.Add(1); engine.verbose && n%1000 == 0 {
				fmt.Printf("\tDone %d of %d queries in %v\n", n, len(queries), time.Since(st))
			}
			return nil
		})
	}
	_ = eg.Wait()
	report.Elapsed = time.Since(st)
	logger.Info("batch finished",
		slog.Int("queries", len(queries)),
		slog.Int("ok", report.Count(OUTCOME_OK)),
		slog.Int("no_route", report.Count(OUTCOME_NO_ROUTE)),
		slog.Int("infeasible", report.Count(OUTCOME_INFEASIBLE)),
		slog.Duration("elapsed", report.Elapsed))
	return report
}
