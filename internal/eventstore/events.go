package eventstore

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
)

// Event type names as stored in the log.
const (
	TypeGenerationStarted   = "GenerationStarted"
	TypeRouteGenerated      = "RouteGenerated"
	TypeGenerationCompleted = "GenerationCompleted"
	TypeGenerationFailed    = "GenerationFailed"
	TypeRevalidated         = "Revalidated"
	TypeCacheWarmed         = "CacheWarmed"
)

// Revalidation sources.
const (
	SourceAPI       = "api"
	SourceWebhook   = "webhook"
	SourceBroadcast = "broadcast"
)

func newEvent(runID, eventType string, payload any) (BaseEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return BaseEvent{}, errors.WrapError(err, errors.CategoryEventStore, "failed to marshal event payload").
			WithContext("run_id", runID).
			WithContext("event_type", eventType).
			Build()
	}
	return BaseEvent{
		EventRunID:     runID,
		EventType:      eventType,
		EventTimestamp: time.Now(),
		EventPayload:   data,
	}, nil
}

// GenerationStartedData opens a static build run.
type GenerationStartedData struct {
	Output  string `json:"output"`
	Targets int    `json:"targets"`
}

// NewGenerationStarted creates a GenerationStarted event.
func NewGenerationStarted(runID string, data GenerationStartedData) (*BaseEvent, error) {
	e, err := newEvent(runID, TypeGenerationStarted, data)
	return &e, err
}

// RouteGeneratedData records one written route.
type RouteGeneratedData struct {
	Slug       string `json:"slug"`
	Strategy   string `json:"strategy"`
	Outcome    string `json:"outcome"`
	DurationMS int64  `json:"duration_ms"`
}

// NewRouteGenerated creates a RouteGenerated event.
func NewRouteGenerated(runID string, data RouteGeneratedData) (*BaseEvent, error) {
	e, err := newEvent(runID, TypeRouteGenerated, data)
	return &e, err
}

// GenerationCompletedData closes a build run.
type GenerationCompletedData struct {
	Routes      int   `json:"routes"`
	NotFound    int   `json:"not_found"`
	Failed      int   `json:"failed"`
	BrokenLinks int   `json:"broken_links"`
	DurationMS  int64 `json:"duration_ms"`
}

// NewGenerationCompleted creates a GenerationCompleted event.
func NewGenerationCompleted(runID string, data GenerationCompletedData) (*BaseEvent, error) {
	e, err := newEvent(runID, TypeGenerationCompleted, data)
	return &e, err
}

// GenerationFailedData closes a build run that did not finish.
type GenerationFailedData struct {
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// NewGenerationFailed creates a GenerationFailed event.
func NewGenerationFailed(runID, stage string, cause error) (*BaseEvent, error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	e, err := newEvent(runID, TypeGenerationFailed, GenerationFailedData{Stage: stage, Error: msg})
	return &e, err
}

// RevalidatedData records one applied invalidation. Slug is empty when the
// whole cache was dropped.
type RevalidatedData struct {
	All     bool   `json:"all"`
	Slug    string `json:"slug,omitempty"`
	Source  string `json:"source"`
	Removed int    `json:"removed"`
}

// NewRevalidated creates a Revalidated event.
func NewRevalidated(runID string, data RevalidatedData) (*BaseEvent, error) {
	e, err := newEvent(runID, TypeRevalidated, data)
	return &e, err
}

// CacheWarmedData records one warm sweep.
type CacheWarmedData struct {
	Slugs      int   `json:"slugs"`
	Failed     int   `json:"failed"`
	DurationMS int64 `json:"duration_ms"`
}

// NewCacheWarmed creates a CacheWarmed event.
func NewCacheWarmed(runID string, data CacheWarmedData) (*BaseEvent, error) {
	e, err := newEvent(runID, TypeCacheWarmed, data)
	return &e, err
}
