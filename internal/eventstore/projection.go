package eventstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// Run kinds.
const (
	KindBuild      = "build"
	KindRevalidate = "revalidate"
	KindWarm       = "warm"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunSummary is the read model of one run.
type RunSummary struct {
	RunID       string        `json:"run_id"`
	Kind        string        `json:"kind"`
	Status      string        `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`

	Output      string `json:"output,omitempty"`
	Targets     int    `json:"targets,omitempty"`
	Routes      int    `json:"routes,omitempty"`
	NotFound    int    `json:"not_found,omitempty"`
	Failed      int    `json:"failed,omitempty"`
	BrokenLinks int    `json:"broken_links,omitempty"`

	All     bool   `json:"all,omitempty"`
	Slug    string `json:"slug,omitempty"`
	Source  string `json:"source,omitempty"`
	Removed int    `json:"removed,omitempty"`

	ErrorStage   string `json:"error_stage,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// HistoryProjection folds the event log into run summaries.
type HistoryProjection struct {
	mu       sync.RWMutex
	store    Store
	runs     map[string]*RunSummary
	history  []*RunSummary // newest first
	maxSize  int
	lastSync time.Time
}

// NewHistoryProjection creates a projection backed by store.
func NewHistoryProjection(store Store, maxHistorySize int) *HistoryProjection {
	if maxHistorySize <= 0 {
		maxHistorySize = 100
	}
	return &HistoryProjection{
		store:   store,
		runs:    make(map[string]*RunSummary),
		history: make([]*RunSummary, 0, maxHistorySize),
		maxSize: maxHistorySize,
	}
}

// Rebuild reconstructs the projection from every stored event.
func (p *HistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.runs = make(map[string]*RunSummary)
	p.history = make([]*RunSummary, 0, p.maxSize)
	for _, event := range events {
		p.applyLocked(event)
	}
	sort.SliceStable(p.history, func(i, j int) bool {
		return p.history[i].StartedAt.After(p.history[j].StartedAt)
	})
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
	p.pruneLocked()
	p.lastSync = time.Now()
	return nil
}

// Apply folds a single event into the projection.
func (p *HistoryProjection) Apply(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyLocked(event)
}

func (p *HistoryProjection) applyLocked(event Event) {
	runID := event.RunID()
	if runID == "" {
		return
	}
	summary, ok := p.runs[runID]
	if !ok {
		summary = &RunSummary{RunID: runID, Kind: KindBuild, Status: StatusRunning, StartedAt: event.Timestamp()}
		p.runs[runID] = summary
	}

	switch event.Type() {
	case TypeGenerationStarted:
		var data GenerationStartedData
		if json.Unmarshal(event.Payload(), &data) == nil {
			summary.Output = data.Output
			summary.Targets = data.Targets
		}
		summary.StartedAt = event.Timestamp()

	case TypeRouteGenerated:
		summary.Routes++

	case TypeGenerationCompleted:
		var data GenerationCompletedData
		if json.Unmarshal(event.Payload(), &data) == nil {
			summary.Routes = data.Routes
			summary.NotFound = data.NotFound
			summary.Failed = data.Failed
			summary.BrokenLinks = data.BrokenLinks
		}
		p.completeLocked(summary, event.Timestamp(), StatusCompleted)

	case TypeGenerationFailed:
		var data GenerationFailedData
		if json.Unmarshal(event.Payload(), &data) == nil {
			summary.ErrorStage = data.Stage
			summary.ErrorMessage = data.Error
		}
		p.completeLocked(summary, event.Timestamp(), StatusFailed)

	case TypeRevalidated:
		summary.Kind = KindRevalidate
		var data RevalidatedData
		if json.Unmarshal(event.Payload(), &data) == nil {
			summary.All = data.All
			summary.Slug = data.Slug
			summary.Source = data.Source
			summary.Removed = data.Removed
		}
		p.completeLocked(summary, event.Timestamp(), StatusCompleted)

	case TypeCacheWarmed:
		summary.Kind = KindWarm
		var data CacheWarmedData
		if json.Unmarshal(event.Payload(), &data) == nil {
			summary.Routes = data.Slugs
			summary.Failed = data.Failed
			summary.StartedAt = event.Timestamp().Add(-time.Duration(data.DurationMS) * time.Millisecond)
		}
		status := StatusCompleted
		if summary.Failed > 0 {
			status = StatusFailed
		}
		p.completeLocked(summary, event.Timestamp(), status)
	}
}

func (p *HistoryProjection) completeLocked(summary *RunSummary, at time.Time, status string) {
	summary.CompletedAt = &at
	summary.Duration = at.Sub(summary.StartedAt)
	summary.Status = status

	for _, h := range p.history {
		if h.RunID == summary.RunID {
			return
		}
	}
	p.history = append([]*RunSummary{summary}, p.history...)
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
	p.pruneLocked()
}

// pruneLocked drops finished runs that fell out of the bounded history.
func (p *HistoryProjection) pruneLocked() {
	keep := make(map[string]struct{}, len(p.history))
	for _, h := range p.history {
		keep[h.RunID] = struct{}{}
	}
	for id, summary := range p.runs {
		if summary.Status == StatusRunning {
			continue
		}
		if _, ok := keep[id]; !ok {
			delete(p.runs, id)
		}
	}
}

// History returns finished runs, newest first.
func (p *HistoryProjection) History() []RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]RunSummary, len(p.history))
	for i, h := range p.history {
		out[i] = *h
	}
	return out
}

// Run returns the summary of one run.
func (p *HistoryProjection) Run(runID string) (RunSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	summary, ok := p.runs[runID]
	if !ok {
		return RunSummary{}, false
	}
	return *summary, true
}

// LastCompleted returns the most recently finished run of kind.
func (p *HistoryProjection) LastCompleted(kind string) (RunSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, h := range p.history {
		if h.Kind == kind {
			return *h, true
		}
	}
	return RunSummary{}, false
}

// LastSyncTime returns when the projection was last rebuilt.
func (p *HistoryProjection) LastSyncTime() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastSync
}
