package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends every metric gathered from g to a Pushgateway under job. A batch
// job has no scrape endpoint, so this is how its metrics leave the process.
func Push(ctx context.Context, gatewayURL, job string, g prometheus.Gatherer) error {
	if gatewayURL == "" {
		return nil
	}
	if job == "" {
		job = "stationsync"
	}
	if err := push.New(gatewayURL, job).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
