package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Contract names a declared field contract for generative output. All model
// output must pass its contract before any stage treats it as typed data.
type Contract string

const (
	Topics         Contract = "topics"
	ExpertSet      Contract = "expert_set"
	FormattedEmail Contract = "formatted_email"
)

// Cardinalities the embedded contracts pin. Configuration that disagrees
// with these would reject every model reply, so it is refused at load time.
const (
	TopicCount         = 3
	ExpertsPerSet      = 3
	QuestionsPerExpert = 2
)

//go:embed contracts/topics.json
var topicsJSON string

//go:embed contracts/expert_set.json
var expertSetJSON string

//go:embed contracts/formatted_email.json
var formattedEmailJSON string

var contractSources = map[Contract]string{
	Topics:         topicsJSON,
	ExpertSet:      expertSetJSON,
	FormattedEmail: formattedEmailJSON,
}

var (
	compileOnce sync.Once
	compiled    map[Contract]*jsonschema.Schema
	compileErr  error
)

func compiledContracts() (map[Contract]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		out := make(map[Contract]*jsonschema.Schema, len(contractSources))
		for name, src := range contractSources {
			compiler := jsonschema.NewCompiler()
			resource := string(name) + ".json"
			if err := compiler.AddResource(resource, strings.NewReader(src)); err != nil {
				compileErr = fmt.Errorf("add contract %s: %w", name, err)
				return
			}
			s, err := compiler.Compile(resource)
			if err != nil {
				compileErr = fmt.Errorf("compile contract %s: %w", name, err)
				return
			}
			out[name] = s
		}
		compiled = out
	})
	return compiled, compileErr
}

// RepairableError reports a contract violation that the calling stage can
// turn into a single targeted clarification re-prompt. It is not a terminal
// failure until the repair attempt has also been exhausted.
type RepairableError struct {
	Contract Contract
	Detail   string
}

func (e *RepairableError) Error() string {
	return fmt.Sprintf("output violates %s contract: %s", e.Contract, e.Detail)
}

// Validate checks raw JSON bytes against the named contract. Violations come
// back as *RepairableError; any other error is a programming error (unknown
// contract, bad embedded schema).
func Validate(contract Contract, data []byte) error {
	schemas, err := compiledContracts()
	if err != nil {
		return err
	}
	s, ok := schemas[contract]
	if !ok {
		return fmt.Errorf("unknown contract: %s", contract)
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return &RepairableError{Contract: contract, Detail: fmt.Sprintf("response is not valid JSON: %v", err)}
	}
	if err := s.Validate(doc); err != nil {
		return &RepairableError{Contract: contract, Detail: violationDetail(err)}
	}
	return nil
}

// Decode extracts the first JSON object from raw model output, validates it
// against the contract, and unmarshals into out. This is the single
// chokepoint between generative output and typed pipeline data.
func Decode(contract Contract, raw string, out interface{}) error {
	data := []byte(ExtractJSON(raw))
	if err := Validate(contract, data); err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &RepairableError{Contract: contract, Detail: fmt.Sprintf("response does not map to the expected fields: %v", err)}
	}
	return nil
}

func violationDetail(err error) string {
	var ve *jsonschema.ValidationError
	if ok := asValidationError(err, &ve); ok {
		leaf := leafCause(ve)
		loc := leaf.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return fmt.Sprintf("%s: %s", loc, leaf.Message)
	}
	return err.Error()
}

func asValidationError(err error, target **jsonschema.ValidationError) bool {
	ve, ok := err.(*jsonschema.ValidationError)
	if ok {
		*target = ve
	}
	return ok
}

// leafCause walks to the most specific nested violation so the repair prompt
// names the actual offending field rather than the document root.
func leafCause(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}

// ExtractJSON returns the first balanced JSON object embedded in s, tolerating
// markdown fences and prose around the payload. If no object is found the
// input is returned unchanged so validation can report the real problem.
func ExtractJSON(s string) string {
	s = stripFences(s)
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, ch := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
			if depth == 0 && start != -1 {
				return s[start : i+1]
			}
		}
	}
	return s
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
