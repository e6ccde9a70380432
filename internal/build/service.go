package build

import (
	"context"
	"io"
	"time"

	"git.home.luguber.info/inful/pagebuilder/internal/config"
	"git.home.luguber.info/inful/pagebuilder/internal/linkaudit"
	"git.home.luguber.info/inful/pagebuilder/internal/site"
)

// Router is route assembly as used by the generation pass.
type Router interface {
	WarmStatic(ctx context.Context) *site.Result
	GenerationTargets(ctx context.Context) []site.RouteParams
	Resolve(ctx context.Context, segments []string, preview bool) *site.Result
	Config() config.SiteConfig
}

// PageRenderer writes a complete document for an assembled route.
type PageRenderer interface {
	Render(w io.Writer, res *site.Result, cfg config.SiteConfig, preview bool) error
}

// Request describes one generation pass.
type Request struct {
	// OutputDir receives the generated site.
	OutputDir string

	// Clean empties OutputDir before writing.
	Clean bool

	// LinkAudit checks the output for broken internal links.
	LinkAudit bool

	// StrictLinks fails the pass when the audit finds broken links.
	StrictLinks bool

	// Concurrency bounds parallel route generation; zero or less is sequential.
	Concurrency int
}

// Result contains the outcome of a generation pass.
type Result struct {
	RunID      string
	Status     Status
	OutputPath string
	Routes     []RouteOutcome
	NotFound   int
	Failed     int
	Audit      *linkaudit.Report
	Duration   time.Duration
	StartTime  time.Time
	EndTime    time.Time
}

// RouteOutcome is one entry of routes.json.
type RouteOutcome struct {
	Slug         string        `json:"slug"`
	Segments     []string      `json:"segments"`
	Strategy     site.Strategy `json:"strategy"`
	State        site.State    `json:"state"`
	CacheControl string        `json:"cache_control"`
	File         string        `json:"file,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// Status is the outcome of a generation pass.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsSuccess returns true if the pass completed.
func (s Status) IsSuccess() bool { return s == StatusSuccess }
