package schema

import (
	"strings"
	"testing"
)

const validTopicsDoc = `{
  "selected_topics": [
    {"headline": "Grid operators brace for heat wave", "summary": "Regional utilities warn of rolling outages.", "need_for_commentary": "Readers need context on grid resilience.", "expert_angles": ["energy policy", "infrastructure engineering"]},
    {"headline": "New gene therapy clears trial", "summary": "A rare disease treatment passed phase three.", "need_for_commentary": "Approval timelines are unclear.", "expert_angles": ["clinical trials", "bioethics"]},
    {"headline": "Port strike enters second week", "summary": "Shipping delays ripple through retail supply chains.", "need_for_commentary": "Economic impact needs quantifying.", "expert_angles": ["labor economics", "logistics"]}
  ]
}`

func TestValidateTopics(t *testing.T) {
	if err := Validate(Topics, []byte(validTopicsDoc)); err != nil {
		t.Fatalf("expected valid document, got %v", err)
	}
}

func TestValidateTopicsWrongCount(t *testing.T) {
	doc := `{"selected_topics": [{"headline": "a", "summary": "b", "need_for_commentary": "c", "expert_angles": ["x", "y"]}]}`
	err := Validate(Topics, []byte(doc))
	if err == nil {
		t.Fatal("expected violation for one topic, got nil")
	}
	re, ok := err.(*RepairableError)
	if !ok {
		t.Fatalf("expected *RepairableError, got %T", err)
	}
	if re.Contract != Topics {
		t.Fatalf("expected topics contract in error, got %s", re.Contract)
	}
}

func TestValidateNotJSON(t *testing.T) {
	err := Validate(Topics, []byte("I could not find any suitable topics today."))
	if _, ok := err.(*RepairableError); !ok {
		t.Fatalf("expected *RepairableError for non-JSON, got %T", err)
	}
}

func TestValidateExpertSetMissingField(t *testing.T) {
	doc := `{"topic": "grid reliability", "experts": [
      {"name": "Dana Whitfield", "institution": "Ridgeline University", "expertise": "power systems", "notable_work": "grid stress modeling", "unique_perspective": "field operations background", "suggested_questions": ["How close are we to capacity?", "What should regulators change?"], "contact_info": "dana.whitfield@ridgeline.edu"},
      {"name": "Omar Reyes", "institution": "Calder Institute", "expertise": "energy markets", "notable_work": "pricing studies", "unique_perspective": "market design", "contact_method": "email", "suggested_questions": ["Do price caps help?", "What happens next summer?"], "contact_info": "omar.reyes@calder.edu"},
      {"name": "Ira Novak", "institution": "Hale College", "expertise": "public policy", "notable_work": "outage response review", "unique_perspective": "state level view", "contact_method": "email", "suggested_questions": ["Who bears the cost?", "Is federal action likely?"], "contact_info": "ira.novak@hale.edu"}
    ]}`
	err := Validate(ExpertSet, []byte(doc))
	if err == nil {
		t.Fatal("expected violation for missing contact_method, got nil")
	}
	if !strings.Contains(err.Error(), "contact_method") {
		t.Fatalf("expected detail to name the missing field, got %q", err.Error())
	}
}

func TestDecodeFormattedEmail(t *testing.T) {
	raw := "Here is the email you asked for:\n```json\n{\"subject\": \"Expert Commentary Request: Grid Reliability - Response Needed in 6 Hours\", \"greeting\": \"Dear Dr. Whitfield,\", \"introduction\": \"I am reaching out about a story on grid reliability.\", \"formatted_body\": \"We would value your perspective.\", \"closing\": \"Best regards\", \"key_points\": [\"deadline is tight\", \"short phone call works too\"]}\n```\nLet me know if you need changes."
	var out struct {
		Subject   string   `json:"subject"`
		KeyPoints []string `json:"key_points"`
	}
	if err := Decode(FormattedEmail, raw, &out); err != nil {
		t.Fatalf("expected decode to succeed, got %v", err)
	}
	if !strings.HasPrefix(out.Subject, "Expert Commentary Request") {
		t.Fatalf("unexpected subject: %q", out.Subject)
	}
	if len(out.KeyPoints) != 2 {
		t.Fatalf("expected 2 key points, got %d", len(out.KeyPoints))
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"prose before {\"a\": {\"b\": 2}} prose after", `{"a": {"b": 2}}`},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{`{"s": "brace } in string"}`, `{"s": "brace } in string"}`},
		{"no json here", "no json here"},
	}
	for _, c := range cases {
		if got := ExtractJSON(c.in); got != c.want {
			t.Errorf("ExtractJSON(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
