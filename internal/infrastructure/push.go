package infrastructure

import (
	"context"
	"fmt"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushJob is the Pushgateway job name of every run
const PushJob = "cohortetl"

// PushMetrics sends the gathered metrics of a finished run to a Pushgateway.
// A batch job has no scrape window, so the final values are pushed instead.
func PushMetrics(ctx context.Context, url, runID string, gatherer promclient.Gatherer) error {
	if gatherer == nil {
		gatherer = promclient.DefaultGatherer
	}
	err := push.New(url, PushJob).
		Gatherer(gatherer).
		Grouping("run_id", runID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
