package server

import "github.com/pressroomlabs/pressroom/internal/agent/core"

// Meta is the trailing element of every response envelope.
type Meta struct {
	Status     string `json:"status"`
	StatusCode int    `json:"status_code"`
	Advisory   string `json:"advisory,omitempty"`
}

// HTTPError is the error payload inside an error envelope.
type HTTPError struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// AnalysisRequest narrows an analysis run to a category.
type AnalysisRequest struct {
	Category string `json:"category"`
}

// ExpertRequest asks for expert recommendations on a caller-supplied topic.
// Either a bare topic string or a full topic literal works.
type ExpertRequest struct {
	Topic             string   `json:"topic"`
	Headline          string   `json:"headline"`
	Summary           string   `json:"summary"`
	NeedForCommentary string   `json:"need_for_commentary"`
	ExpertAngles      []string `json:"expert_angles"`
}

func (r ExpertRequest) toTopic() core.Topic {
	headline := r.Headline
	if headline == "" {
		headline = r.Topic
	}
	return core.Topic{
		Headline:          headline,
		Summary:           r.Summary,
		NeedForCommentary: r.NeedForCommentary,
		ExpertAngles:      r.ExpertAngles,
	}
}

// ExpertsResponse wraps one or more recommendation sets.
type ExpertsResponse struct {
	ExpertRecommendations []core.ExpertRecommendationSet `json:"expert_recommendations"`
}

// StructuredEmailRequest builds outreach emails for recommended experts.
// A single expert or a list both work.
type StructuredEmailRequest struct {
	Topic   string        `json:"topic"`
	Expert  *core.Expert  `json:"expert,omitempty"`
	Experts []core.Expert `json:"experts,omitempty"`
}

func (r StructuredEmailRequest) allExperts() []core.Expert {
	if r.Expert != nil {
		return append([]core.Expert{*r.Expert}, r.Experts...)
	}
	return r.Experts
}

// StructuredEmailResponse wraps the rendered templates.
type StructuredEmailResponse struct {
	EmailTemplates []core.EmailTemplate `json:"email_templates"`
}

// FreeformEmailRequest formats a journalist's raw draft. Subject and name
// are optional hints.
type FreeformEmailRequest struct {
	Subject string `json:"subject"`
	Name    string `json:"name"`
	Body    string `json:"body"`
}

// FormattedEmailBody is the formatted email without its side channels.
type FormattedEmailBody struct {
	Subject       string `json:"subject"`
	Greeting      string `json:"greeting"`
	Introduction  string `json:"introduction"`
	FormattedBody string `json:"formatted_body"`
	Closing       string `json:"closing"`
}

// FreeformEmailResponse carries the formatted email plus the locally
// computed word count and extracted key points.
type FreeformEmailResponse struct {
	FormattedEmail FormattedEmailBody `json:"formatted_email"`
	WordCount      int                `json:"word_count"`
	KeyPoints      []string           `json:"key_points"`
}
