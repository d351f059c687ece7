/*
Package metrics defines the Prometheus metrics for the orchestrator.

All metrics are registered against the default registry at package init
and exposed through Handler on /metrics. Two kinds of instrumentation
feed them:

  - inline counters and histograms updated at the point of work
    (task executions, scan duration, API requests)
  - the Collector, which polls the store on an interval and refreshes
    the by-status gauges for modules, assets, and tasks

Gauge families are zero-initialised for every known status on each
collection pass, so a status that drains to zero reports 0 rather than
disappearing from the scrape.

	recomp_modules_total{status}            gauge
	recomp_assets_total{status}             gauge
	recomp_tasks_total{status}              gauge
	recomp_module_scan_duration_seconds    histogram
	recomp_task_executions_total{result}    counter
	recomp_task_execution_duration_seconds histogram
	recomp_api_requests_total{method,status} counter

The Timer helper wraps the measure-then-observe pattern used by the
registry and the engine.
*/
package metrics
