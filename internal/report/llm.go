package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/TimurManjosov/licadvisor/internal/profile"
	"github.com/TimurManjosov/licadvisor/internal/rules"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 30 * time.Second
)

var errNoAPIKey = errors.New("no LLM API key configured")

// LLMConfig configures an LLMGenerator.
type LLMConfig struct {
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
	MockMode bool
}

// LLMGenerator asks an OpenAI-compatible chat-completions endpoint for the
// report. Any failure falls back to the template report.
type LLMGenerator struct {
	cfg      LLMConfig
	client   openai.Client
	Fallback Generator
	log      zerolog.Logger
}

// NewLLMGenerator fills defaults for empty config fields.
func NewLLMGenerator(cfg LLMConfig, log zerolog.Logger) *LLMGenerator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	// retries are off: a failed call falls back to the template instead
	client := openai.NewClient(
		option.WithBaseURL(cfg.BaseURL+"/"),
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		option.WithMaxRetries(0),
	)

	return &LLMGenerator{
		cfg:      cfg,
		client:   client,
		Fallback: TemplateGenerator{},
		log:      log.With().Str("component", "report_llm").Logger(),
	}
}

// Generate validates input, then tries the LLM unless mock mode is on or no
// key is configured.
func (g *LLMGenerator) Generate(ctx context.Context, p profile.BusinessProfile, matched []*rules.Rule) (*Report, error) {
	if err := validateInput(matched); err != nil {
		return nil, err
	}
	if g.cfg.MockMode {
		g.log.Debug().Msg("mock mode, using template report")
		return g.Fallback.Generate(ctx, p, matched)
	}

	r, err := g.generate(ctx, p, matched)
	if err != nil {
		g.log.Warn().Err(err).Int("rules", len(matched)).Msg("LLM report failed, falling back to template")
		return g.Fallback.Generate(ctx, p, matched)
	}
	return r, nil
}

func (g *LLMGenerator) generate(ctx context.Context, p profile.BusinessProfile, matched []*rules.Rule) (*Report, error) {
	if g.cfg.APIKey == "" {
		return nil, errNoAPIKey
	}

	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(g.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildPrompt(p, matched)),
		},
		Temperature: openai.Float(0.3),
		MaxTokens:   openai.Int(2000),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("LLM response has no choices")
	}

	return parseReport(completion.Choices[0].Message.Content, matched)
}

// parseReport decodes the model output and replaces the figures the model
// may get wrong with values computed from the match list.
func parseReport(content string, matched []*rules.Rule) (*Report, error) {
	content = stripCodeFence(content)

	var r Report
	if err := json.Unmarshal([]byte(content), &r); err != nil {
		return nil, fmt.Errorf("LLM output is not report JSON: %w", err)
	}
	if strings.TrimSpace(r.Summary) == "" || len(r.Sections) == 0 && len(matched) > 0 {
		return nil, errors.New("LLM report is missing summary or sections")
	}
	if err := ValidateReferences(&r, ruleIDs(matched)); err != nil {
		return nil, err
	}

	r.TotalRules = len(matched)
	r.HighPriorityCount = highPriorityCount(matched)
	r.Authorities = sortedAuthorities(matched)
	if r.Recommendations == nil {
		r.Recommendations = recommendations(r.HighPriorityCount)
	}
	return &r, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Mode selects the report generator.
type Mode string

const (
	ModeOff      Mode = "off"
	ModeTemplate Mode = "template"
	ModeLLM      Mode = "llm"
)

// New returns the generator for mode, or nil for ModeOff.
func New(mode Mode, cfg LLMConfig, log zerolog.Logger) (Generator, error) {
	switch mode {
	case ModeOff:
		return nil, nil
	case ModeTemplate, "":
		return TemplateGenerator{}, nil
	case ModeLLM:
		return NewLLMGenerator(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown report mode %q", mode)
	}
}
