package core

import (
	"context"
	"log"
	"time"

	"github.com/pressroomlabs/pressroom/config"
	"github.com/pressroomlabs/pressroom/internal/agent/telemetry"
	"github.com/pressroomlabs/pressroom/internal/schema"
)

// TopicSelector ranks a headline batch and keeps the stories most in need of
// expert commentary.
type TopicSelector struct {
	llm       LLMProvider
	model     string
	pipeline  config.PipelineConfig
	logger    *log.Logger
	telemetry *telemetry.Telemetry
}

func NewTopicSelector(cfg *config.Config, llm LLMProvider, tele *telemetry.Telemetry) *TopicSelector {
	return &TopicSelector{
		llm:       llm,
		model:     ModelFor(cfg.LLM, "selection"),
		pipeline:  cfg.Pipeline,
		logger:    log.New(log.Writer(), "[SELECTOR] ", log.LstdFlags),
		telemetry: tele,
	}
}

// Select picks the configured number of topics from items. Contract
// violations in the model output get one targeted repair before the stage
// gives up.
func (s *TopicSelector) Select(ctx context.Context, items []NewsItem) (TopicSelection, error) {
	started := time.Now()
	sel, err := s.selectTopics(ctx, items)
	s.telemetry.RecordStage("topic_selection", time.Since(started), err)
	return sel, err
}

func (s *TopicSelector) selectTopics(ctx context.Context, items []NewsItem) (TopicSelection, error) {
	// an empty batch is a quiet news day, not an error; the prompt tells the
	// model to synthesize topics from ongoing stories instead
	prompt := topicSelectionPrompt(items, s.pipeline.TopicCount, s.pipeline.PromptTokenBudget)
	raw, err := s.generate(ctx, prompt)
	if err != nil {
		return TopicSelection{}, err
	}

	var sel TopicSelection
	decodeErr := schema.Decode(schema.Topics, raw, &sel)
	for attempt := 0; decodeErr != nil && attempt < s.pipeline.RepairAttempts; attempt++ {
		re, ok := decodeErr.(*schema.RepairableError)
		if !ok {
			return TopicSelection{}, analysisFailed("topic_selection", decodeErr)
		}
		s.logger.Printf("selection output rejected (%s), attempting repair", re.Detail)
		raw, err = s.generate(ctx, repairPrompt(raw, re.Detail))
		if err != nil {
			return TopicSelection{}, err
		}
		sel = TopicSelection{}
		decodeErr = schema.Decode(schema.Topics, raw, &sel)
		s.telemetry.RecordRepair(string(schema.Topics), decodeErr == nil)
	}
	if decodeErr != nil {
		return TopicSelection{}, analysisFailed("topic_selection", decodeErr)
	}

	// topic_id is assigned here, never trusted from the model
	for i := range sel.SelectedTopics {
		sel.SelectedTopics[i].TopicID = i + 1
	}
	return sel, nil
}

func (s *TopicSelector) generate(ctx context.Context, prompt string) (string, error) {
	options := map[string]interface{}{
		"temperature":     0.7,
		"response_format": "json_object",
	}
	raw, inTok, outTok, err := s.llm.GenerateWithTokens(ctx, prompt, s.model, options)
	if err != nil {
		return "", upstreamUnavailable("topic_selection", err)
	}
	s.telemetry.RecordLLMUsage(s.model, inTok, outTok, s.llm.CalculateCost(inTok, outTok, s.model))
	return raw, nil
}
