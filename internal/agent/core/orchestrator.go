package core

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"github.com/pressroomlabs/pressroom/config"
	"github.com/pressroomlabs/pressroom/internal/agent/telemetry"
)

// Pipeline is the surface the HTTP layer consumes. Orchestrator is the only
// production implementation; tests substitute their own.
type Pipeline interface {
	FetchNews(ctx context.Context, category string) ([]NewsItem, error)
	AnalyzeTopics(ctx context.Context, category string) (TopicAnalysis, error)
	Analyze(ctx context.Context, category string) (AnalysisResult, error)
	ExpertsForTopic(ctx context.Context, topic Topic) (ExpertRecommendationSet, error)
	ComposeStructured(expert Expert, topic string) (EmailTemplate, error)
	ComposeFreeform(ctx context.Context, draft FreeformDraft) (EmailDraft, error)
}

// Orchestrator wires the pipeline stages together: fetch headlines, select
// topics, match experts, compose emails.
type Orchestrator struct {
	sources   []NewsSource
	selector  *TopicSelector
	matcher   *ExpertMatcher
	composer  *EmailComposer
	pipeline  config.PipelineConfig
	logger    *log.Logger
	telemetry *telemetry.Telemetry
}

// NewOrchestrator creates the full pipeline from configuration.
func NewOrchestrator(cfg *config.Config, tele *telemetry.Telemetry) (*Orchestrator, error) {
	llm, err := NewLLMProvider(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	sources, err := NewNewsSources(cfg.Sources)
	if err != nil {
		return nil, fmt.Errorf("news sources: %w", err)
	}
	return &Orchestrator{
		sources:   sources,
		selector:  NewTopicSelector(cfg, llm, tele),
		matcher:   NewExpertMatcher(cfg, llm, tele),
		composer:  NewEmailComposer(cfg, llm, tele),
		pipeline:  cfg.Pipeline,
		logger:    log.New(log.Writer(), "[ORCH] ", log.LstdFlags),
		telemetry: tele,
	}, nil
}

// NewOrchestratorWith assembles an orchestrator from pre-built parts.
func NewOrchestratorWith(sources []NewsSource, selector *TopicSelector, matcher *ExpertMatcher, composer *EmailComposer, pcfg config.PipelineConfig, tele *telemetry.Telemetry) *Orchestrator {
	return &Orchestrator{
		sources:   sources,
		selector:  selector,
		matcher:   matcher,
		composer:  composer,
		pipeline:  pcfg,
		logger:    log.New(log.Writer(), "[ORCH] ", log.LstdFlags),
		telemetry: tele,
	}
}

// FetchNews returns current headlines, trying each configured source in
// order. Transient failures are retried per source before falling through to
// the next one.
func (o *Orchestrator) FetchNews(ctx context.Context, category string) ([]NewsItem, error) {
	started := time.Now()
	items, err := o.fetchNews(ctx, category)
	o.telemetry.RecordStage("news_fetch", time.Since(started), err)
	return items, err
}

func (o *Orchestrator) fetchNews(ctx context.Context, category string) ([]NewsItem, error) {
	var lastErr error
	for _, src := range o.sources {
		var items []NewsItem
		err := retry.Do(
			func() error {
				var ferr error
				items, ferr = src.Fetch(ctx, category)
				return ferr
			},
			retry.Attempts(uint(o.pipeline.FetchRetries+1)),
			retry.Delay(500*time.Millisecond),
			retry.RetryIf(IsTransient),
			retry.LastErrorOnly(true),
			retry.Context(ctx),
		)
		o.telemetry.RecordFetch(src.Name(), err)
		if err != nil {
			o.logger.Printf("source %s failed: %v", src.Name(), err)
			lastErr = err
			continue
		}
		if len(items) == 0 {
			o.logger.Printf("source %s returned no headlines", src.Name())
		}
		return items, nil
	}
	return nil, upstreamUnavailable("news_fetch", fmt.Errorf("all news sources failed: %w", lastErr))
}

// AnalyzeTopics runs the first half of the pipeline: fetch headlines and
// select the topics most in need of commentary.
func (o *Orchestrator) AnalyzeTopics(ctx context.Context, category string) (TopicAnalysis, error) {
	items, err := o.FetchNews(ctx, category)
	if err != nil {
		return TopicAnalysis{}, err
	}
	sel, err := o.selector.Select(ctx, items)
	if err != nil {
		return TopicAnalysis{}, err
	}
	return TopicAnalysis{SelectedTopics: sel.SelectedTopics, AnalysisTimestamp: time.Now().UTC()}, nil
}

// Analyze runs the full pipeline: fetch, select topics, match experts per
// topic. Expert matching runs concurrently with a bounded number of in-flight
// calls. Topics whose matching fails outright are dropped with an advisory;
// if every topic fails, so does the analysis.
func (o *Orchestrator) Analyze(ctx context.Context, category string) (AnalysisResult, error) {
	items, err := o.FetchNews(ctx, category)
	if err != nil {
		return AnalysisResult{}, err
	}
	sel, err := o.selector.Select(ctx, items)
	if err != nil {
		return AnalysisResult{}, err
	}

	type slot struct {
		set ExpertRecommendationSet
		err error
	}
	slots := make([]slot, len(sel.SelectedTopics))

	sem := make(chan struct{}, max1(o.pipeline.MaxConcurrentCalls, 1))
	var wg sync.WaitGroup
	for i, topic := range sel.SelectedTopics {
		wg.Add(1)
		go func(i int, topic Topic) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			set, err := o.matcher.Match(ctx, topic)
			slots[i] = slot{set: set, err: err}
		}(i, topic)
	}
	wg.Wait()

	result := AnalysisResult{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
	}
	var dropped []string
	var firstErr error
	for i, topic := range sel.SelectedTopics {
		if slots[i].err != nil {
			o.logger.Printf("dropping topic %q: %v", topic.Headline, slots[i].err)
			dropped = append(dropped, topic.Headline)
			if firstErr == nil {
				firstErr = slots[i].err
			}
			continue
		}
		result.Topics = append(result.Topics, TopicExperts{Topic: topic, Experts: slots[i].set})
	}
	if len(result.Topics) == 0 {
		return AnalysisResult{}, firstErr
	}
	if len(dropped) > 0 {
		result.Advisory = fmt.Sprintf("expert matching failed for: %s", strings.Join(dropped, "; "))
		o.telemetry.RecordDegraded()
	}
	return result, nil
}

// ExpertsForTopic matches experts for a caller-supplied topic, outside the
// daily selection flow.
func (o *Orchestrator) ExpertsForTopic(ctx context.Context, topic Topic) (ExpertRecommendationSet, error) {
	if strings.TrimSpace(topic.Headline) == "" {
		return ExpertRecommendationSet{}, invalidInput("expert_matching", "topic is empty")
	}
	return o.matcher.Match(ctx, topic)
}

// ComposeStructured builds an outreach email for one recommended expert.
func (o *Orchestrator) ComposeStructured(expert Expert, topic string) (EmailTemplate, error) {
	return o.composer.ComposeStructured(expert, topic)
}

// ComposeFreeform formats a journalist's raw draft into a sendable email.
func (o *Orchestrator) ComposeFreeform(ctx context.Context, draft FreeformDraft) (EmailDraft, error) {
	return o.composer.ComposeFreeform(ctx, draft)
}
