package gemini

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"github.com/forPelevin/vidscope/internal/apperr"
	"github.com/forPelevin/vidscope/internal/domain/summary"
	"github.com/forPelevin/vidscope/internal/types"
)

const (
	ProviderName = "gemini"
	defaultModel = "gemini-2.5-flash"
)

type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the Gemini API endpoint.
	BaseURL string
}

type Adapter struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, cfg Config) (*Adapter, error) {
	const op = "gemini.New"

	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperr.Config(op, nil, "GEMINI_API_KEY is required for the gemini summary provider")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, apperr.Config(op, err, "create gemini client")
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Adapter{client: client, model: model}, nil
}

func (a *Adapter) Summarize(ctx context.Context, tr types.Transcript, moments []types.Moment) (types.Summary, error) {
	const op = "gemini.Summarize"

	prompt := summary.BuildPrompt(tr, moments)
	result, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return types.Summary{}, apperr.Model(op, err, "gemini generate content")
	}

	content := responseText(result)
	if content == "" {
		return types.Summary{}, apperr.Model(op, nil, "empty response from Gemini")
	}
	text, points, err := summary.ParseResponse(content)
	if err != nil {
		return types.Summary{}, apperr.Model(op, err, "gemini returned an empty summary")
	}
	return types.Summary{Text: text, KeyPoints: points, Provider: ProviderName, Model: a.model}, nil
}

func responseText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}
