package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/forPelevin/vidscope/internal/apperr"
	"github.com/forPelevin/vidscope/internal/domain/summary"
	"github.com/forPelevin/vidscope/internal/types"
)

const (
	ProviderName = "ollama"

	defaultHost       = "http://localhost:11434"
	defaultModel      = "llama2"
	maxRetries        = 3
	initialBackoff    = 2 * time.Second
	maxBackoff        = 30 * time.Second
	backoffFactor     = 2.0
	requestTimeout    = 10 * time.Minute
	maxErrorBodyRunes = 400
)

type Config struct {
	Host              string
	Model             string
	RequestsPerMinute int
	// Backoff overrides the first retry delay.
	Backoff time.Duration
	Log     logrus.FieldLogger
}

type Adapter struct {
	host    string
	model   string
	backoff time.Duration
	limiter *rate.Limiter
	client  *http.Client
	log     logrus.FieldLogger
}

func New(cfg Config) *Adapter {
	host := strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	if host == "" {
		host = defaultHost
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = initialBackoff
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Adapter{
		host:    host,
		model:   model,
		backoff: backoff,
		limiter: rate.NewLimiter(rate.Limit(rpm)/60, 1),
		client:  &http.Client{Timeout: requestTimeout},
		log:     log.WithFields(logrus.Fields{"provider": ProviderName, "model": model}),
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Format string `json:"format"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

func (a *Adapter) Summarize(ctx context.Context, tr types.Transcript, moments []types.Moment) (types.Summary, error) {
	const op = "ollama.Summarize"

	body, err := json.Marshal(generateRequest{
		Model:  a.model,
		Prompt: summary.BuildPrompt(tr, moments),
		Format: "json",
		Stream: false,
	})
	if err != nil {
		return types.Summary{}, apperr.Internal(op, err, "marshal ollama request")
	}

	var content string
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := a.limiter.Wait(ctx); err != nil {
			return types.Summary{}, apperr.Model(op, err, "ollama rate limiter")
		}

		var retry bool
		content, retry, err = a.generate(ctx, body)
		if err == nil {
			break
		}
		if !retry || attempt == maxRetries || ctx.Err() != nil {
			return types.Summary{}, apperr.Model(op, err, fmt.Sprintf("ollama request failed after %d attempt(s) (host=%s)", attempt, a.host))
		}

		wait := backoffFor(a.backoff, attempt)
		a.log.WithFields(logrus.Fields{
			"error":            err,
			"backoff_duration": wait,
			"next_attempt":     attempt + 1,
		}).Warn("Summary attempt failed, retrying")

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return types.Summary{}, apperr.Model(op, ctx.Err(), "ollama request cancelled")
		}
	}

	text, points, err := summary.ParseResponse(content)
	if err != nil {
		return types.Summary{}, apperr.Model(op, err, "ollama returned an empty summary")
	}
	return types.Summary{Text: text, KeyPoints: points, Provider: ProviderName, Model: a.model}, nil
}

// generate performs one request. retry reports whether the failure was a
// transport error or a 5xx reply.
func (a *Adapter) generate(ctx context.Context, body []byte) (content string, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := truncate(strings.TrimSpace(string(rb)), maxErrorBodyRunes)
		return "", resp.StatusCode >= 500, fmt.Errorf("ollama status %d: %s", resp.StatusCode, msg)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", false, fmt.Errorf("decode ollama response: %w", err)
	}
	if out.Error != "" {
		return "", false, fmt.Errorf("ollama: %s", out.Error)
	}
	return out.Response, false, nil
}

func backoffFor(initial time.Duration, attempt int) time.Duration {
	backoff := time.Duration(float64(initial) * math.Pow(backoffFactor, float64(attempt-1)))
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	if half := int64(backoff / 2); half > 0 {
		backoff += time.Duration(rand.Int63n(half))
	}
	return backoff
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
