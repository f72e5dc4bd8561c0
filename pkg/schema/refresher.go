package schema

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Refresher re-fetches the catalog on a cron schedule so conversions rarely
// pay for a cold fetch.
type Refresher struct {
	catalog *Catalog
	cron    *cron.Cron
	logger  *slog.Logger
}

func NewRefresher(catalog *Catalog, logger *slog.Logger) *Refresher {
	return &Refresher{
		catalog: catalog,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
		logger: logger.With("module", "schema_refresher"),
	}
}

// Start schedules refreshes using a standard cron expression or a
// descriptor such as "@every 5m".
func (r *Refresher) Start(ctx context.Context, spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schema refresh schedule '%s': %w", spec, err)
	}

	_, err := r.cron.AddFunc(spec, func() {
		r.RefreshNow(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule schema refresh: %w", err)
	}

	r.cron.Start()
	r.logger.InfoContext(ctx, "Schema refresher started", "schedule", spec)

	return nil
}

// RefreshNow runs one refresh and logs the outcome.
func (r *Refresher) RefreshNow(ctx context.Context) {
	snapshot, err := r.catalog.Refresh(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Schema refresh failed", "error", err)

		return
	}

	r.logger.InfoContext(ctx, "Schema refreshed", "node_types", len(snapshot))
}

// Stop halts the schedule and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}
