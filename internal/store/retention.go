package store

import (
	"context"

	"github.com/JaimeStill/sift/pkg/lifecycle"
)

func (r *repo) Start(lc *lifecycle.Coordinator) {
	r.logger.Info(
		"metric retention scheduled",
		"retention", r.options.MetricRetention,
		"interval", r.options.PurgeInterval,
	)

	lc.Every(r.options.PurgeInterval, func(ctx context.Context) {
		n, err := r.PurgeExpiredMetrics(ctx)
		if err != nil {
			if ctx.Err() == nil {
				r.logger.Warn("metric purge failed", "error", err)
			}
			return
		}
		if n > 0 {
			r.logger.Info("expired metrics purged", "count", n)
		}
	})
}
