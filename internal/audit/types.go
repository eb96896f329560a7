package audit

import (
	"errors"
	"net/http"
	"time"
)

// UnavailableText is the placeholder text of a page that could not be fetched.
const UnavailableText = "Unable to load website content"

// ErrRecordNotFound is returned by record stores when an ID is unknown.
var ErrRecordNotFound = errors.New("audit record not found")

// TaskName identifies one member of the fixed analysis panel.
type TaskName string

// Panel members, in the fixed order used for fan-out and recommendation merging.
const (
	TaskBusiness   TaskName = "business"
	TaskStyle      TaskName = "style"
	TaskHero       TaskName = "hero"
	TaskProblem    TaskName = "problem"
	TaskSEO        TaskName = "seo"
	TaskConversion TaskName = "conversion"
)

// TaskNames returns the panel in its fixed iteration order.
func TaskNames() []TaskName {
	return []TaskName{TaskBusiness, TaskStyle, TaskHero, TaskProblem, TaskSEO, TaskConversion}
}

// Status represents the lifecycle state of an audit record.
type Status string

// Record status values persisted in the record store.
const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
)

// Source tells whether an agent result came from the model or the fallback table.
type Source string

// Agent result sources.
const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// Request is the inbound audit request.
type Request struct {
	WebsiteURL string `json:"website_url"`
	SocialURL  string `json:"social_url,omitempty"`
	Email      string `json:"email,omitempty"`
}

// ExtractedPage holds the bounded text fragments derived from a fetched page.
type ExtractedPage struct {
	Title           string `json:"title"`
	MetaDescription string `json:"metaDescription"`
	H1              string `json:"h1"`
	HeroSection     string `json:"heroSection"`
	TextContent     string `json:"textContent"`
	URL             string `json:"url"`
}

// UnavailablePage returns the degraded page used when a fetch fails.
func UnavailablePage(url string) ExtractedPage {
	return ExtractedPage{TextContent: UnavailableText, URL: url}
}

// Degraded reports whether p is the placeholder for an unreachable page.
func (p ExtractedPage) Degraded() bool {
	return p.TextContent == UnavailableText && p.Title == "" && p.H1 == "" && p.HeroSection == ""
}

// AgentResult is the fixed-shape output of one analysis task.
type AgentResult struct {
	Score           int      `json:"score"`
	Insights        []string `json:"insights"`
	Recommendations []string `json:"recommendations"`
}

// AgentOutcome wraps an AgentResult with where it came from.
type AgentOutcome struct {
	Task     TaskName
	Result   AgentResult
	Source   Source
	Reason   string
	Duration time.Duration
}

// Genuine reports whether the result was produced by the model.
func (o AgentOutcome) Genuine() bool {
	return o.Source == SourceModel
}

// Report is the aggregated audit output.
type Report struct {
	WebsiteURL         string                   `json:"website_url"`
	SocialURL          string                   `json:"social_url,omitempty"`
	OverallScore       int                      `json:"overall_score"`
	ScoringMode        string                   `json:"scoring_mode"`
	Agents             map[TaskName]AgentResult `json:"agents"`
	AgentSources       map[TaskName]Source      `json:"agent_sources"`
	TopRecommendations []string                 `json:"top_recommendations"`
	ExtractedPage      ExtractedPage            `json:"extracted_page"`
	Timestamp          time.Time                `json:"timestamp"`
}

// Record is the persisted audit row.
type Record struct {
	ID           string    `json:"id"`
	WebsiteURL   string    `json:"website_url"`
	SocialURL    string    `json:"social_url,omitempty"`
	Email        string    `json:"email,omitempty"`
	Status       Status    `json:"status"`
	OverallScore *int      `json:"overall_score,omitempty"`
	Results      *Report   `json:"audit_results,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RecordUpdate carries the fields written when an audit finishes.
type RecordUpdate struct {
	Status       Status
	OverallScore int
	Results      Report
	UpdatedAt    time.Time
}

// FetchRequest captures everything needed to fetch a page.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// GenerationRequest is one call to the text-generation capability.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
}

// CompletedEvent is published after an audit record is finalized.
type CompletedEvent struct {
	AuditID      string    `json:"audit_id"`
	WebsiteURL   string    `json:"website_url"`
	OverallScore int       `json:"overall_score"`
	ReportURI    string    `json:"report_uri,omitempty"`
	Persisted    bool      `json:"persisted"`
	CompletedAt  time.Time `json:"completed_at"`
}
