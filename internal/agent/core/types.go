package core

import (
	"context"
	"time"
)

// NewsItem is one headline as returned by a news source, before any
// generative processing has touched it.
type NewsItem struct {
	ID           string `json:"id"`
	Headline     string `json:"headline"`
	Source       string `json:"source"`
	Link         string `json:"link"`
	Snippet      string `json:"snippet,omitempty"`
	Date         string `json:"date,omitempty"` // relative date string as the source reports it
	Position     int    `json:"position"`
	ThumbnailURL string `json:"thumbnail,omitempty"`
}

// Topic is one story selected as worth expert commentary.
type Topic struct {
	TopicID           int      `json:"topic_id"`
	Headline          string   `json:"headline"`
	Summary           string   `json:"summary"`
	NeedForCommentary string   `json:"need_for_commentary"`
	ExpertAngles      []string `json:"expert_angles"`
}

// TopicSelection is the ranked result of topic selection over a fetch batch.
type TopicSelection struct {
	SelectedTopics []Topic `json:"selected_topics"`
}

// TopicAnalysis is the topic-selection flow's result: the selected topics
// stamped with when the analysis ran.
type TopicAnalysis struct {
	SelectedTopics    []Topic   `json:"selected_topics"`
	AnalysisTimestamp time.Time `json:"analysis_timestamp"`
}

// Expert is one recommended commentator for a topic.
type Expert struct {
	Name               string   `json:"name"`
	Institution        string   `json:"institution"`
	Expertise          string   `json:"expertise"`
	NotableWork        string   `json:"notable_work"`
	UniquePerspective  string   `json:"unique_perspective"`
	ContactMethod      string   `json:"contact_method"`
	SuggestedQuestions []string `json:"suggested_questions"`
	ContactInfo        string   `json:"contact_info"`
}

// ExpertRecommendationSet holds the experts matched to one topic. Advisory is
// set when the set survived validation only partially; Degraded mirrors it for
// callers that branch without string inspection.
type ExpertRecommendationSet struct {
	Topic    string   `json:"topic"`
	Experts  []Expert `json:"experts"`
	Advisory string   `json:"advisory,omitempty"`
	Degraded bool     `json:"-"`
}

// TopicExperts pairs a selected topic with its recommendation set in the
// combined analysis result.
type TopicExperts struct {
	Topic   Topic                   `json:"topic"`
	Experts ExpertRecommendationSet `json:"experts"`
}

// AnalysisResult is the full pipeline output: topics plus experts per topic.
type AnalysisResult struct {
	RunID       string         `json:"run_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Topics      []TopicExperts `json:"topics"`
	Advisory    string         `json:"advisory,omitempty"`
}

// EmailTemplate is a deterministic outreach email rendered for one
// recommended expert.
type EmailTemplate struct {
	ExpertName string `json:"expert_name"`
	Topic      string `json:"topic"`
	Subject    string `json:"subject"`
	Greeting   string `json:"greeting"`
	EmailBody  string `json:"email_body"`
	Signature  string `json:"signature"`
}

// FreeformDraft is a journalist's raw email to be formatted. Subject and
// recipient name are optional hints; Body is the draft itself.
type FreeformDraft struct {
	Subject string `json:"subject"`
	Name    string `json:"name"`
	Body    string `json:"body"`
}

// EmailDraft is a ready-to-send outreach email for one expert.
type EmailDraft struct {
	Subject       string   `json:"subject"`
	Greeting      string   `json:"greeting"`
	Introduction  string   `json:"introduction"`
	FormattedBody string   `json:"formatted_body"`
	Closing       string   `json:"closing"`
	KeyPoints     []string `json:"key_points"`
	WordCount     int      `json:"word_count,omitempty"`
}

// ModelInfo contains information about an LLM model
type ModelInfo struct {
	Name            string
	Provider        string
	MaxTokens       int
	CostPer1KInput  float64
	CostPer1KOutput float64
}

// LLMProvider interface defines the contract for LLM providers
type LLMProvider interface {
	// Generate generates text using the specified model
	Generate(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, error)

	// GenerateWithTokens generates text and returns token usage
	GenerateWithTokens(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, int64, int64, error)

	// GetAvailableModels returns available models
	GetAvailableModels() []string

	// GetModelInfo returns information about a specific model
	GetModelInfo(model string) (ModelInfo, error)

	// CalculateCost calculates the cost of a request
	CalculateCost(inputTokens, outputTokens int64, model string) float64
}

// NewsSource interface defines the contract for headline providers.
// An empty category means the source's top-news feed for the last day.
type NewsSource interface {
	// Fetch returns current headlines, optionally narrowed to a category
	Fetch(ctx context.Context, category string) ([]NewsItem, error)

	// Name identifies the source in logs and telemetry
	Name() string
}
