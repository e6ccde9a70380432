// Package metrics provides the observability hooks of PageBuilder.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check:
//
//	resolver := pages.NewResolver(exec, logger) // NoopRecorder
//	resolver.WithRecorder(metrics.NewPrometheusRecorder(reg))
//
// PrometheusRecorder registers its collectors on the registry it is given;
// HTTPHandler exposes that registry for scraping.
package metrics
