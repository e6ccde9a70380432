package metrics

import "time"

// ResultLabel enumerates operation outcomes for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
	ResultSkipped ResultLabel = "skipped"
)

// CacheResultLabel enumerates response cache lookups.
type CacheResultLabel string

const (
	CacheHit    CacheResultLabel = "hit"
	CacheStale  CacheResultLabel = "stale"
	CacheMiss   CacheResultLabel = "miss"
	CacheBypass CacheResultLabel = "bypass"
)

// Recorder defines observability hooks for content fetches, the response
// cache, block dispatch and route resolution.
type Recorder interface {
	ObserveFetch(operation string, preview bool, d time.Duration, result ResultLabel)
	IncCacheResult(result CacheResultLabel)
	IncBlockDispatch(kind string, result ResultLabel)
	ObserveRoute(strategy, outcome string, d time.Duration)
	IncRevalidation(scope string)
	ObserveBuildDuration(d time.Duration)
	SetGeneratedRoutes(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveFetch(string, bool, time.Duration, ResultLabel) {}
func (NoopRecorder) IncCacheResult(CacheResultLabel)                       {}
func (NoopRecorder) IncBlockDispatch(string, ResultLabel)                  {}
func (NoopRecorder) ObserveRoute(string, string, time.Duration)            {}
func (NoopRecorder) IncRevalidation(string)                                {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)                    {}
func (NoopRecorder) SetGeneratedRoutes(int)                                {}

// OrNoop returns r, or NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
