package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/ppiankov/dossier/internal/model"
)

// ErrEmptyInput is returned when there is no report text to extract from
var ErrEmptyInput = errors.New("no report text to extract from")

// ErrNoJSONObject is returned when the model reply holds no JSON object
var ErrNoJSONObject = errors.New("no JSON object in model reply")

const extractionSystem = "You extract structured company registration data from research reports. " +
	"Use only facts stated in the report. Leave a field empty when the report does not state it."

var extractionPromptTmpl = template.Must(template.New("extraction").Parse(`Extract the company information from the research report below.

Respond with one JSON object using exactly these keys:
{{range .Fields}}- "{{.Key}}" ({{.Type}}{{if .Required}}, required{{end}}): {{.Description}}
{{end}}
"contact_information" is an object with optional "email", "phone" and "website" strings.
"directors_shareholders" is an array with one person or company per element.
Use an empty string for values the report does not mention. Do not include any text outside the JSON object.

Research report:
{{.Report}}
`))

// Extractor turns free-text research reports into company drafts with a
// JSON-mode completion
type Extractor struct {
	provider  Provider
	model     string
	maxTokens int
	logger    *zap.Logger
}

// NewExtractor creates an extractor. model and maxTokens of zero value
// fall back to the provider configuration.
func NewExtractor(provider Provider, model string, maxTokens int, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		provider:  provider,
		model:     model,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// Extract asks the provider for the company fields found in text
func (e *Extractor) Extract(ctx context.Context, text string) (model.Draft, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	prompt, err := renderExtractionPrompt(text)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	var temperature float32
	resp, err := e.provider.Complete(ctx, CompletionRequest{
		System:      extractionSystem,
		Prompt:      prompt,
		Model:       e.model,
		MaxTokens:   e.maxTokens,
		Temperature: &temperature,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s extraction: %w", e.provider.Name(), err)
	}

	e.logger.Debug("extraction completed",
		zap.String("provider", e.provider.Name()),
		zap.String("model", resp.Model),
		zap.Int("tokens", resp.TokensUsed))

	draft, err := DecodeDraft(resp.Text)
	if err != nil {
		return nil, err
	}
	return draft, nil
}

// DecodeDraft parses a model reply into a draft. Markdown code fences and
// any text around the outermost JSON object are ignored.
func DecodeDraft(reply string) (model.Draft, error) {
	object, err := outermostObject(stripCodeFence(reply))
	if err != nil {
		return nil, err
	}

	// numbers stay json.Number so long registration numbers keep every digit
	dec := json.NewDecoder(strings.NewReader(object))
	dec.UseNumber()

	var draft model.Draft
	if err := dec.Decode(&draft); err != nil {
		return nil, fmt.Errorf("decoding extraction reply: %w", err)
	}
	return draft, nil
}

func renderExtractionPrompt(report string) (string, error) {
	var buf bytes.Buffer
	err := extractionPromptTmpl.Execute(&buf, struct {
		Fields []model.FieldDescription
		Report string
	}{
		Fields: model.FieldDescriptions,
		Report: report,
	})
	return buf.String(), err
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:] // drop the language tag line
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

// outermostObject returns the text from the first '{' to its matching '}',
// skipping braces inside JSON strings
func outermostObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", ErrNoJSONObject
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", ErrNoJSONObject
}
