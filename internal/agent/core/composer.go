package core

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/pressroomlabs/pressroom/config"
	"github.com/pressroomlabs/pressroom/internal/agent/telemetry"
	"github.com/pressroomlabs/pressroom/internal/schema"
)

// EmailComposer turns expert recommendations and journalist drafts into
// ready-to-send outreach emails. Structured composition is deterministic;
// only freeform formatting touches the model.
type EmailComposer struct {
	llm       LLMProvider
	model     string
	pipeline  config.PipelineConfig
	email     config.EmailConfig
	logger    *log.Logger
	telemetry *telemetry.Telemetry
}

func NewEmailComposer(cfg *config.Config, llm LLMProvider, tele *telemetry.Telemetry) *EmailComposer {
	return &EmailComposer{
		llm:       llm,
		model:     ModelFor(cfg.LLM, "composition"),
		pipeline:  cfg.Pipeline,
		email:     cfg.Email,
		logger:    log.New(log.Writer(), "[COMPOSER] ", log.LstdFlags),
		telemetry: tele,
	}
}

// ComposeStructured renders an outreach template for an expert without a
// model call, so the output is reproducible and never hallucinated.
func (c *EmailComposer) ComposeStructured(expert Expert, topic string) (EmailTemplate, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return EmailTemplate{}, invalidInput("email_composition", "topic is empty")
	}
	if strings.TrimSpace(expert.Name) == "" {
		return EmailTemplate{}, invalidInput("email_composition", "expert name is empty")
	}

	hours := c.email.ResponseWindowHours
	subject := fmt.Sprintf("Expert Commentary Request: %s - Response Needed in %d Hours", topic, hours)
	greeting := fmt.Sprintf("Dear Dr. %s,", surname(expert.Name))

	var body strings.Builder
	fmt.Fprintf(&body, "My name is %s, %s at %s. We are preparing a story on %s and your background in %s makes you the voice we would most like to include.\n\n",
		c.email.SenderName, c.email.SenderTitle, c.email.SenderOutlet, topic, orDefault(expert.Expertise, "this area"))
	if expert.NotableWork != "" {
		fmt.Fprintf(&body, "Your work on %s speaks directly to the questions our readers are asking. ", expert.NotableWork)
	}
	if len(expert.SuggestedQuestions) > 0 {
		fmt.Fprintf(&body, "In particular, we would value your perspective on: %s\n\n", expert.SuggestedQuestions[0])
	}
	fmt.Fprintf(&body, "A few sentences over email are ample, though we are glad to arrange a short call if you prefer. Because the story is moving, we would need your response within %d hours to include it.", hours)

	signature := fmt.Sprintf("With thanks,\n%s\n%s, %s\n%s",
		c.email.SenderName, c.email.SenderTitle, c.email.SenderOutlet, c.email.SenderContact)

	return EmailTemplate{
		ExpertName: expert.Name,
		Topic:      topic,
		Subject:    subject,
		Greeting:   greeting,
		EmailBody:  body.String(),
		Signature:  signature,
	}, nil
}

// ComposeFreeform formats a journalist's raw draft through the model,
// enforcing the output contract and that every quoted passage is lifted
// verbatim from the draft.
func (c *EmailComposer) ComposeFreeform(ctx context.Context, draft FreeformDraft) (EmailDraft, error) {
	started := time.Now()
	out, err := c.composeFreeform(ctx, draft)
	c.telemetry.RecordStage("email_composition", time.Since(started), err)
	return out, err
}

func (c *EmailComposer) composeFreeform(ctx context.Context, draft FreeformDraft) (EmailDraft, error) {
	if strings.TrimSpace(draft.Body) == "" {
		return EmailDraft{}, invalidInput("email_composition", "email body is empty")
	}

	raw, err := c.generate(ctx, freeformEmailPrompt(draft, c.pipeline.PromptTokenBudget))
	if err != nil {
		return EmailDraft{}, err
	}

	var out EmailDraft
	decodeErr := c.decodeAndVerify(raw, draft.Body, &out)
	for attempt := 0; decodeErr != nil && attempt < c.pipeline.RepairAttempts; attempt++ {
		re, ok := decodeErr.(*schema.RepairableError)
		if !ok {
			return EmailDraft{}, analysisFailed("email_composition", decodeErr)
		}
		c.logger.Printf("formatted email rejected (%s), attempting repair", re.Detail)
		raw, err = c.generate(ctx, repairPrompt(raw, re.Detail))
		if err != nil {
			return EmailDraft{}, err
		}
		out = EmailDraft{}
		decodeErr = c.decodeAndVerify(raw, draft.Body, &out)
		c.telemetry.RecordRepair(string(schema.FormattedEmail), decodeErr == nil)
	}
	if decodeErr != nil {
		return EmailDraft{}, analysisFailed("email_composition", decodeErr)
	}

	// word count is computed locally, never taken from the model
	out.WordCount = wordCount(out)
	return out, nil
}

func (c *EmailComposer) decodeAndVerify(raw, sourceBody string, out *EmailDraft) error {
	if err := schema.Decode(schema.FormattedEmail, raw, out); err != nil {
		return err
	}
	for _, field := range []string{out.Introduction, out.FormattedBody, out.Closing} {
		if q, ok := fabricatedQuote(field, sourceBody); ok {
			return &schema.RepairableError{
				Contract: schema.FormattedEmail,
				Detail:   fmt.Sprintf("the quoted passage %q does not appear in the draft; remove the quotation marks or quote the draft verbatim", q),
			}
		}
	}
	return nil
}

func (c *EmailComposer) generate(ctx context.Context, prompt string) (string, error) {
	options := map[string]interface{}{
		"temperature":     0.7,
		"response_format": "json_object",
	}
	raw, inTok, outTok, err := c.llm.GenerateWithTokens(ctx, prompt, c.model, options)
	if err != nil {
		return "", upstreamUnavailable("email_composition", err)
	}
	c.telemetry.RecordLLMUsage(c.model, inTok, outTok, c.llm.CalculateCost(inTok, outTok, c.model))
	return raw, nil
}

var quotedSpan = regexp.MustCompile(`["\x{201C}]([^"\x{201C}\x{201D}]+)["\x{201D}]`)

// fabricatedQuote returns the first quoted span in text that is not a
// verbatim passage of source, comparing with normalized whitespace.
func fabricatedQuote(text, source string) (string, bool) {
	normSource := normalizeSpace(source)
	for _, m := range quotedSpan.FindAllStringSubmatch(text, -1) {
		span := normalizeSpace(m[1])
		if span == "" {
			continue
		}
		if !strings.Contains(normSource, span) {
			return m[1], true
		}
	}
	return "", false
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func wordCount(d EmailDraft) int {
	total := 0
	for _, part := range []string{d.Greeting, d.Introduction, d.FormattedBody, d.Closing} {
		total += len(strings.Fields(part))
	}
	return total
}

func surname(name string) string {
	fields := strings.Fields(strings.TrimSpace(name))
	if len(fields) == 0 {
		return name
	}
	return strings.Trim(fields[len(fields)-1], ".,")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
