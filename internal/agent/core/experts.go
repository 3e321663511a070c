package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/pressroomlabs/pressroom/config"
	"github.com/pressroomlabs/pressroom/internal/agent/telemetry"
	"github.com/pressroomlabs/pressroom/internal/schema"
)

// ExpertMatcher finds commentators for a selected topic.
type ExpertMatcher struct {
	llm       LLMProvider
	model     string
	pipeline  config.PipelineConfig
	logger    *log.Logger
	telemetry *telemetry.Telemetry
}

func NewExpertMatcher(cfg *config.Config, llm LLMProvider, tele *telemetry.Telemetry) *ExpertMatcher {
	return &ExpertMatcher{
		llm:       llm,
		model:     ModelFor(cfg.LLM, "matching"),
		pipeline:  cfg.Pipeline,
		logger:    log.New(log.Writer(), "[EXPERTS] ", log.LstdFlags),
		telemetry: tele,
	}
}

// Match recommends experts for one topic. When repair cannot restore a fully
// valid set, field-complete experts are salvaged and the set is returned
// degraded with an advisory, as long as enough experts survive.
func (m *ExpertMatcher) Match(ctx context.Context, topic Topic) (ExpertRecommendationSet, error) {
	started := time.Now()
	set, err := m.match(ctx, topic)
	m.telemetry.RecordStage("expert_matching", time.Since(started), err)
	if err == nil && set.Degraded {
		m.telemetry.RecordDegraded()
	}
	return set, err
}

func (m *ExpertMatcher) match(ctx context.Context, topic Topic) (ExpertRecommendationSet, error) {
	if strings.TrimSpace(topic.Headline) == "" {
		return ExpertRecommendationSet{}, invalidInput("expert_matching", "topic is empty")
	}

	prompt := expertMatchPrompt(topic, m.pipeline.ExpertsPerTopic, m.pipeline.QuestionsPerExpert)
	raw, err := m.generate(ctx, prompt)
	if err != nil {
		return ExpertRecommendationSet{}, err
	}

	var set ExpertRecommendationSet
	decodeErr := schema.Decode(schema.ExpertSet, raw, &set)
	for attempt := 0; decodeErr != nil && attempt < m.pipeline.RepairAttempts; attempt++ {
		re, ok := decodeErr.(*schema.RepairableError)
		if !ok {
			return ExpertRecommendationSet{}, analysisFailed("expert_matching", decodeErr)
		}
		m.logger.Printf("expert output rejected (%s), attempting repair", re.Detail)
		raw, err = m.generate(ctx, repairPrompt(raw, re.Detail))
		if err != nil {
			return ExpertRecommendationSet{}, err
		}
		set = ExpertRecommendationSet{}
		decodeErr = schema.Decode(schema.ExpertSet, raw, &set)
		m.telemetry.RecordRepair(string(schema.ExpertSet), decodeErr == nil)
	}
	if decodeErr != nil {
		return m.salvage(topic, raw, decodeErr)
	}

	if set.Topic == "" {
		set.Topic = topic.Headline
	}
	return set, nil
}

// salvage keeps whatever field-complete experts a rejected reply contains.
// Below the configured minimum the whole stage fails instead.
func (m *ExpertMatcher) salvage(topic Topic, raw string, cause error) (ExpertRecommendationSet, error) {
	var loose ExpertRecommendationSet
	if err := json.Unmarshal([]byte(schema.ExtractJSON(raw)), &loose); err != nil {
		return ExpertRecommendationSet{}, analysisFailed("expert_matching", cause)
	}

	var kept []Expert
	for _, e := range loose.Experts {
		if m.complete(e) {
			kept = append(kept, e)
		}
	}
	if len(kept) < m.pipeline.MinExpertsPerSet {
		return ExpertRecommendationSet{}, analysisFailed("expert_matching", cause)
	}

	dropped := len(loose.Experts) - len(kept)
	m.logger.Printf("salvaged %d of %d experts for %q", len(kept), len(loose.Experts), topic.Headline)
	return ExpertRecommendationSet{
		Topic:    topic.Headline,
		Experts:  kept,
		Advisory: fmt.Sprintf("expert list is incomplete: %d recommendation(s) failed validation and were dropped", dropped),
		Degraded: true,
	}, nil
}

func (m *ExpertMatcher) complete(e Expert) bool {
	if e.Name == "" || e.Institution == "" || e.Expertise == "" ||
		e.NotableWork == "" || e.UniquePerspective == "" ||
		e.ContactMethod == "" || e.ContactInfo == "" {
		return false
	}
	if len(e.SuggestedQuestions) != m.pipeline.QuestionsPerExpert {
		return false
	}
	for _, q := range e.SuggestedQuestions {
		if strings.TrimSpace(q) == "" {
			return false
		}
	}
	return true
}

func (m *ExpertMatcher) generate(ctx context.Context, prompt string) (string, error) {
	options := map[string]interface{}{
		"temperature":     0.7,
		"response_format": "json_object",
	}
	raw, inTok, outTok, err := m.llm.GenerateWithTokens(ctx, prompt, m.model, options)
	if err != nil {
		return "", upstreamUnavailable("expert_matching", err)
	}
	m.telemetry.RecordLLMUsage(m.model, inTok, outTok, m.llm.CalculateCost(inTok, outTok, m.model))
	return raw, nil
}
