package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/pressroomlabs/pressroom/config"
	"github.com/pressroomlabs/pressroom/internal/agent/telemetry"
)

// scriptedLLM replays canned responses in order, failing when the script
// runs out or an error is queued in its place.
type scriptedLLM struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
	prompts   []string

	// respond, when set, overrides the canned script so concurrent callers
	// get answers keyed off the prompt instead of call order
	respond func(prompt string) (string, error)
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt, model string, options map[string]interface{}) (string, error) {
	resp, _, _, err := s.GenerateWithTokens(ctx, prompt, model, options)
	return resp, err
}

func (s *scriptedLLM) GenerateWithTokens(ctx context.Context, prompt, model string, options map[string]interface{}) (string, int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	s.prompts = append(s.prompts, prompt)
	if s.respond != nil {
		resp, err := s.respond(prompt)
		return resp, 100, 50, err
	}
	if i < len(s.errs) && s.errs[i] != nil {
		return "", 0, 0, s.errs[i]
	}
	if i >= len(s.responses) {
		return "", 0, 0, fmt.Errorf("script exhausted after %d calls", len(s.responses))
	}
	return s.responses[i], 100, 50, nil
}

func (s *scriptedLLM) GetAvailableModels() []string { return []string{"fast"} }

func (s *scriptedLLM) GetModelInfo(model string) (ModelInfo, error) {
	return ModelInfo{Name: model, Provider: "test"}, nil
}

func (s *scriptedLLM) CalculateCost(inputTokens, outputTokens int64, model string) float64 {
	return 0
}

func (s *scriptedLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testConfig() *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{
			Providers: map[string]config.LLMProvider{
				"openai": {Type: "openai", Models: map[string]config.LLMModel{"fast": {Name: "fast"}}},
			},
			Routing: config.LLMRoutingConfig{Selection: "fast", Matching: "fast", Composition: "fast", Fallback: "fast"},
		},
		Pipeline: config.PipelineConfig{
			TopicCount:         3,
			ExpertsPerTopic:    3,
			QuestionsPerExpert: 2,
			MinExpertsPerSet:   1,
			RepairAttempts:     1,
			FetchRetries:       1,
			MaxConcurrentCalls: 2,
			PromptTokenBudget:  2000,
		},
		Email: config.EmailConfig{
			ResponseWindowHours: 6,
			SenderName:          "Jordan Avery",
			SenderTitle:         "Staff Reporter",
			SenderOutlet:        "The Meridian Times",
			SenderContact:       "jordan.avery@meridiantimes.com",
		},
	}
}

func testTelemetry() *telemetry.Telemetry {
	return telemetry.NewTelemetry(config.TelemetryConfig{})
}

func sampleHeadlines() []NewsItem {
	return []NewsItem{
		{ID: "1", Headline: "Grid operators brace for heat wave", Source: "Wire Desk", Position: 1},
		{ID: "2", Headline: "New gene therapy clears trial", Source: "Health Daily", Position: 2},
		{ID: "3", Headline: "Port strike enters second week", Source: "Trade Journal", Position: 3},
		{ID: "4", Headline: "Markets flat ahead of jobs report", Source: "Finance Now", Position: 4},
	}
}

const validTopicsResponse = `{
  "selected_topics": [
    {"headline": "Grid operators brace for heat wave", "summary": "Utilities warn of rolling outages across three states.", "need_for_commentary": "Readers need context on grid resilience.", "expert_angles": ["energy policy", "infrastructure engineering"]},
    {"headline": "New gene therapy clears trial", "summary": "A rare disease treatment passed its phase three trial.", "need_for_commentary": "Approval timelines and access questions are open.", "expert_angles": ["clinical trials", "bioethics"]},
    {"headline": "Port strike enters second week", "summary": "Shipping delays are rippling through retail supply chains.", "need_for_commentary": "The economic impact needs quantifying.", "expert_angles": ["labor economics", "logistics"]}
  ]
}`

const validExpertsResponse = `{
  "topic": "Grid operators brace for heat wave",
  "experts": [
    {"name": "Dana Whitfield", "institution": "Ridgeline University", "expertise": "power systems", "notable_work": "grid stress modeling under extreme heat", "unique_perspective": "former control room operator", "contact_method": "email", "suggested_questions": ["How close is the grid to capacity?", "What should regulators change first?"], "contact_info": "dana.whitfield@ridgeline.edu"},
    {"name": "Omar Reyes", "institution": "Calder Institute", "expertise": "energy markets", "notable_work": "wholesale pricing during scarcity events", "unique_perspective": "market design focus", "contact_method": "email", "suggested_questions": ["Do price caps make outages worse?", "What happens next summer?"], "contact_info": "omar.reyes@calder.edu"},
    {"name": "Ira Novak", "institution": "Hale College", "expertise": "public policy", "notable_work": "state outage response review", "unique_perspective": "works with state legislatures", "contact_method": "email", "suggested_questions": ["Who bears the cost of hardening?", "Is federal action likely?"], "contact_info": "ira.novak@hale.edu"}
  ]
}`
