package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pable/go-cs-demostats/internal/log"
)

// Sink receives each successfully processed demo. Calls are serialized.
type Sink func(Result) error

// Failure is a demo that could not be processed or stored.
type Failure struct {
	Path string
	Err  error
}

type BatchReport struct {
	Succeeded []Result
	Failed    []Failure
}

// RunBatch processes paths with at most workers demos in flight. A failing
// demo is logged and recorded; the rest of the batch continues. Cancelling
// ctx stops new demos from starting.
func RunBatch(ctx context.Context, paths []string, workers int, opts Options, env Env, sink Sink) BatchReport {
	if workers < 1 {
		workers = 1
	}

	var (
		report   BatchReport
		mu       sync.Mutex
		errGroup errgroup.Group
		logger   = env.logger()
	)
	errGroup.SetLimit(workers)

	for idx, path := range paths {
		if ctx.Err() != nil {
			mu.Lock()
			for _, skipped := range paths[idx:] {
				report.Failed = append(report.Failed, Failure{Path: skipped, Err: ctx.Err()})
			}
			mu.Unlock()
			break
		}

		errGroup.Go(func() error {
			res, err := ProcessFile(path, opts, env)

			mu.Lock()
			defer mu.Unlock()

			if err == nil && sink != nil {
				err = sink(res)
			}
			if err != nil {
				logger.Error("Failed to process demo", slog.String("path", path), log.ErrAttr(err))
				report.Failed = append(report.Failed, Failure{Path: path, Err: err})
				return nil
			}

			logger.Info("Processed demo", slog.String("path", path),
				slog.String("match_id", res.Records.Match.MatchID),
				slog.Int("rounds", len(res.Records.Rounds)),
				slog.Duration("took", res.Duration))
			report.Succeeded = append(report.Succeeded, res)
			return nil
		})
	}

	_ = errGroup.Wait()

	return report
}
