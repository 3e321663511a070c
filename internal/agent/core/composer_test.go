package core

import (
	"context"
	"strings"
	"testing"
)

func TestComposeStructured(t *testing.T) {
	c := NewEmailComposer(testConfig(), &scriptedLLM{}, testTelemetry())
	expert := Expert{
		Name:               "Dana Whitfield",
		Institution:        "Ridgeline University",
		Expertise:          "power systems",
		NotableWork:        "grid stress modeling under extreme heat",
		SuggestedQuestions: []string{"How close is the grid to capacity?", "What should regulators change first?"},
		ContactInfo:        "dana.whitfield@ridgeline.edu",
	}

	tmpl, err := c.ComposeStructured(expert, "Grid Reliability")
	if err != nil {
		t.Fatalf("ComposeStructured failed: %v", err)
	}
	want := "Expert Commentary Request: Grid Reliability - Response Needed in 6 Hours"
	if tmpl.Subject != want {
		t.Errorf("subject = %q, want %q", tmpl.Subject, want)
	}
	if tmpl.Greeting != "Dear Dr. Whitfield," {
		t.Errorf("greeting = %q", tmpl.Greeting)
	}
	if !strings.Contains(tmpl.EmailBody, expert.SuggestedQuestions[0]) {
		t.Error("body should cite the first suggested question")
	}
	if !strings.Contains(tmpl.Signature, "Jordan Avery") {
		t.Error("signature should carry the sender")
	}
	if tmpl.ExpertName != expert.Name || tmpl.Topic != "Grid Reliability" {
		t.Errorf("template attribution = %q / %q", tmpl.ExpertName, tmpl.Topic)
	}
}

func TestComposeStructuredIsDeterministic(t *testing.T) {
	c := NewEmailComposer(testConfig(), &scriptedLLM{}, testTelemetry())
	expert := Expert{Name: "Omar Reyes", Expertise: "energy markets"}

	a, err := c.ComposeStructured(expert, "Grid Reliability")
	if err != nil {
		t.Fatalf("ComposeStructured failed: %v", err)
	}
	b, _ := c.ComposeStructured(expert, "Grid Reliability")
	if a != b {
		t.Error("structured composition must be reproducible")
	}
}

func TestComposeStructuredRejectsEmptyTopic(t *testing.T) {
	c := NewEmailComposer(testConfig(), &scriptedLLM{}, testTelemetry())
	_, err := c.ComposeStructured(Expert{Name: "Dana Whitfield"}, "  ")
	if KindOf(err) != KindInvalidInput {
		t.Fatalf("expected invalid_input, got %v", err)
	}
}

func TestComposeFreeform(t *testing.T) {
	formatted := `{"subject": "Commentary request on grid strain", "greeting": "Dear Professor,", "introduction": "I am writing about this week's grid strain.", "formatted_body": "Your recent paper is directly relevant and we would value a short comment.", "closing": "Best regards, Jordan", "key_points": ["short deadline", "email quotes are fine"]}`
	llm := &scriptedLLM{responses: []string{formatted}}
	c := NewEmailComposer(testConfig(), llm, testTelemetry())

	raw := "hey professor -- writing about the grid strain this week, your recent paper is super relevant, could you give a short comment? deadline is tight. thanks, jordan"
	draft, err := c.ComposeFreeform(context.Background(), FreeformDraft{Body: raw})
	if err != nil {
		t.Fatalf("ComposeFreeform failed: %v", err)
	}
	if draft.Subject == "" || draft.FormattedBody == "" {
		t.Fatal("draft missing fields")
	}
	wantWords := len(strings.Fields(draft.Greeting)) + len(strings.Fields(draft.Introduction)) +
		len(strings.Fields(draft.FormattedBody)) + len(strings.Fields(draft.Closing))
	if draft.WordCount != wantWords {
		t.Errorf("word count = %d, want %d", draft.WordCount, wantWords)
	}
}

func TestComposeFreeformPassesHints(t *testing.T) {
	formatted := `{"subject": "Grid strain", "greeting": "Dear Dr. Whitfield,", "introduction": "Quick question on grid strain.", "formatted_body": "Could you give a short comment?", "closing": "Best, Jordan", "key_points": ["deadline"]}`
	llm := &scriptedLLM{responses: []string{formatted}}
	c := NewEmailComposer(testConfig(), llm, testTelemetry())

	_, err := c.ComposeFreeform(context.Background(), FreeformDraft{
		Subject: "Grid strain",
		Name:    "Dana Whitfield",
		Body:    "quick question on the grid strain, could you comment? best, jordan",
	})
	if err != nil {
		t.Fatalf("ComposeFreeform failed: %v", err)
	}
	if !strings.Contains(llm.prompts[0], "Recipient: Dana Whitfield") {
		t.Error("prompt should carry the recipient hint")
	}
	if !strings.Contains(llm.prompts[0], "Working subject: Grid strain") {
		t.Error("prompt should carry the subject hint")
	}
}

func TestComposeFreeformEmptyBody(t *testing.T) {
	llm := &scriptedLLM{}
	c := NewEmailComposer(testConfig(), llm, testTelemetry())

	_, err := c.ComposeFreeform(context.Background(), FreeformDraft{Body: "   \n  "})
	if KindOf(err) != KindInvalidInput {
		t.Fatalf("expected invalid_input, got %v", err)
	}
	if llm.callCount() != 0 {
		t.Fatal("empty body must not reach the model")
	}
}

func TestComposeFreeformRejectsFabricatedQuote(t *testing.T) {
	// both replies quote words that are not in the draft
	fabricated := `{"subject": "Request", "greeting": "Dear Professor,", "introduction": "You said \"the grid is doomed\" recently.", "formatted_body": "We would value a comment.", "closing": "Best, Jordan", "key_points": ["deadline"]}`
	llm := &scriptedLLM{responses: []string{fabricated, fabricated}}
	c := NewEmailComposer(testConfig(), llm, testTelemetry())

	_, err := c.ComposeFreeform(context.Background(), FreeformDraft{Body: "could you comment on the grid situation? thanks, jordan"})
	if KindOf(err) != KindAnalysisFailed {
		t.Fatalf("expected analysis_failed, got %v", err)
	}
	if llm.callCount() != 2 {
		t.Fatalf("expected one repair attempt, got %d calls", llm.callCount())
	}
}

func TestFabricatedQuote(t *testing.T) {
	source := "the committee said the merger would reduce competition in three markets"
	ok := `The committee warned that the merger "would reduce competition" in its filing.`
	if q, bad := fabricatedQuote(ok, source); bad {
		t.Errorf("verbatim quote flagged as fabricated: %q", q)
	}
	badText := `They called it "an outrageous land grab" during the hearing.`
	if _, bad := fabricatedQuote(badText, source); !bad {
		t.Error("fabricated quote not flagged")
	}
}
