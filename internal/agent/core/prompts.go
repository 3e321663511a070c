package core

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encoderOnce sync.Once
	encoder     *tiktoken.Tiktoken
)

// truncateTokens trims s to at most budget tokens so a large headline batch
// cannot blow the model's context window. Falls back to a rough character cut
// if the encoding is unavailable.
func truncateTokens(s string, budget int) string {
	if budget <= 0 {
		return s
	}
	encoderOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoder = enc
		}
	})
	if encoder == nil {
		if len(s) > budget*4 {
			return s[:budget*4]
		}
		return s
	}
	tokens := encoder.Encode(s, nil, nil)
	if len(tokens) <= budget {
		return s
	}
	return encoder.Decode(tokens[:budget])
}

// newsDigest renders a headline batch as a numbered list the selection model
// can cite positions from.
func newsDigest(items []NewsItem) string {
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s (%s", i+1, item.Headline, item.Source)
		if item.Date != "" {
			fmt.Fprintf(&b, ", %s", item.Date)
		}
		b.WriteString(")")
		if item.Snippet != "" {
			fmt.Fprintf(&b, "\n   %s", item.Snippet)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func topicSelectionPrompt(items []NewsItem, count, tokenBudget int) string {
	digest := truncateTokens(newsDigest(items), tokenBudget)
	if strings.TrimSpace(digest) == "" {
		digest = "(no headlines were retrieved; choose ongoing stories of broad public interest from your own knowledge)\n"
	}
	return fmt.Sprintf(`You are an experienced news editor deciding which of today's stories most need expert commentary.

Evaluate each story against these criteria:
- Complexity: does the story involve technical, scientific, legal, or economic nuance a layperson cannot unpack alone?
- Public interest: how many readers are affected or care?
- Timeliness: is commentary needed now, before the story moves on?
- Impact: what are the stakes if the story develops further?
- Controversy: are there competing credible interpretations worth airing?

Today's headlines:
%s
Select exactly %d stories. If fewer distinct stories qualify, split the most substantial ones into separate angles so you still return exactly that many. Respond with JSON only, in this shape:
{
  "selected_topics": [
    {
      "headline": "the story headline",
      "summary": "two to three sentences on what happened",
      "need_for_commentary": "why this story needs an expert voice",
      "expert_angles": ["first field of expertise to seek", "second field of expertise to seek"]
    }
  ]
}
Each story must have exactly 2 expert_angles. Do not include any text outside the JSON object.`, digest, count)
}

func expertMatchPrompt(topic Topic, expertCount, questionCount int) string {
	angles := strings.Join(topic.ExpertAngles, "; ")
	return fmt.Sprintf(`You are a research assistant for a newsroom, finding academic and professional experts who can comment on a story.

Story: %s
Summary: %s
Why commentary is needed: %s
Angles to cover: %s

Recommend exactly %d real, currently active experts. Favor university faculty and researchers with published work directly relevant to the story. For contact_info, use the pattern firstname.lastname@institution.edu unless you know the real address.

Respond with JSON only, in this shape:
{
  "topic": "the story headline",
  "experts": [
    {
      "name": "full name",
      "institution": "current affiliation",
      "expertise": "their relevant specialty",
      "notable_work": "one relevant publication or project",
      "unique_perspective": "what they add that others would not",
      "contact_method": "email",
      "suggested_questions": ["first question to ask them", "second question to ask them"],
      "contact_info": "firstname.lastname@institution.edu"
    }
  ]
}
Each expert must have exactly %d suggested_questions. Do not include any text outside the JSON object.`, topic.Headline, topic.Summary, topic.NeedForCommentary, angles, expertCount, questionCount)
}

func freeformEmailPrompt(draft FreeformDraft, tokenBudget int) string {
	body := truncateTokens(draft.Body, tokenBudget)
	var hints strings.Builder
	if draft.Subject != "" {
		fmt.Fprintf(&hints, "Working subject: %s\n", draft.Subject)
	}
	if draft.Name != "" {
		fmt.Fprintf(&hints, "Recipient: %s\n", draft.Name)
	}
	return fmt.Sprintf(`You are an editorial assistant formatting a journalist's draft outreach email so it is ready to send.

Rules:
- Preserve the writer's meaning and tone. Tighten wording where it helps, but never invent facts, names, or commitments that are not in the draft.
- Any passage you place in quotation marks must appear verbatim in the draft.
- Produce a clear subject line, a proper greeting and closing, and a body in short paragraphs.
- Address the recipient by name when one is given; if the draft names no recipient, use "Dear Editor," as the greeting.

%sDraft:
---
%s
---

Respond with JSON only, in this shape:
{
  "subject": "the subject line",
  "greeting": "the greeting line",
  "introduction": "one or two opening sentences",
  "formatted_body": "the main body text",
  "closing": "the sign-off line",
  "key_points": ["first key point of the email", "second key point"]
}
Do not include any text outside the JSON object.`, hints.String(), body)
}

// repairPrompt asks the model to fix its previous reply against the named
// violation. One shot only; the caller gives up after that.
func repairPrompt(previous, violation string) string {
	return fmt.Sprintf(`Your previous reply did not match the required JSON shape.

Problem: %s

Your previous reply:
---
%s
---

Return the corrected JSON object only, fixing the problem above without changing anything that was already correct. Do not include any text outside the JSON object.`, violation, previous)
}
