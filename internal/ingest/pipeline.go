package ingest

import (
	"context"
	"log/slog"

	"airtriage/internal/model"
	"airtriage/internal/storage"
	"airtriage/internal/tracker"
)

// StartPipeline drains the sample channel into the tracker and persists
// fresh scores. Persistence is telemetry only; failures are logged and
// dropped.
func StartPipeline(ctx context.Context, in <-chan model.ScanSample, trk *tracker.Tracker, persist storage.Store, logger *slog.Logger) {
	go func() {
		for {
			select {
			case sample := <-in:
				result, updated := trk.Observe(sample)
				if !updated {
					continue
				}
				if logger != nil {
					logger.Debug("target rescored",
						"identifier", sample.Observation.Identifier,
						"score", result.Score,
						"priority", result.Priority,
						"source", sample.Source,
					)
				}
				if persist != nil {
					if err := persist.SaveScore(ctx, sample.Observation, result); err != nil && logger != nil {
						logger.Warn("score persist error", "err", err)
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
