package engine

import "github.com/VictoriaMetrics/metrics"

var (
	refreshRuns     = metrics.NewCounter("vplan_refresh_runs_total")
	refreshFailures = metrics.NewCounter("vplan_refresh_failures_total")
	rulesReplaced   = metrics.NewCounter("vplan_rules_replaced_total")
	deviceToggles   = metrics.NewCounter("vplan_device_toggles_total")
)
