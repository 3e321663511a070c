package config

import (
	"strings"
	"testing"
)

func validPipeline() PipelineConfig {
	return PipelineConfig{
		TopicCount:         3,
		ExpertsPerTopic:    3,
		QuestionsPerExpert: 2,
		MinExpertsPerSet:   1,
		RepairAttempts:     1,
		MaxConcurrentCalls: 3,
	}
}

func TestPipelineValidateAcceptsContractShape(t *testing.T) {
	if err := validPipeline().Validate(); err != nil {
		t.Fatalf("valid pipeline config rejected: %v", err)
	}
}

func TestPipelineValidateRejectsContractMismatch(t *testing.T) {
	// the schema contracts pin these cardinalities; any other value would
	// make every model reply fail validation, so it must be refused up front
	cases := []struct {
		name   string
		mutate func(*PipelineConfig)
		want   string
	}{
		{"topic count", func(p *PipelineConfig) { p.TopicCount = 5 }, "topic_count"},
		{"experts per topic", func(p *PipelineConfig) { p.ExpertsPerTopic = 4 }, "experts_per_topic"},
		{"questions per expert", func(p *PipelineConfig) { p.QuestionsPerExpert = 3 }, "questions_per_expert"},
		{"min experts above set size", func(p *PipelineConfig) { p.MinExpertsPerSet = 4 }, "min_experts_per_set"},
	}
	for _, tc := range cases {
		p := validPipeline()
		tc.mutate(&p)
		err := p.Validate()
		if err == nil {
			t.Errorf("%s: expected validation error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: error should name the offending knob, got %q", tc.name, err)
		}
	}
}
