// Package genclient calls the chat-completion endpoint once per section and
// classifies the answer. It never retries.
package genclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"report-workers/internal/common/config"
	apperrors "report-workers/internal/common/errors"
	commonhttp "report-workers/internal/common/http"
	"report-workers/internal/common/logger"
	"report-workers/internal/common/metrics"
)

// SystemRole is sent as the system message of every request.
const SystemRole = "Tu es un expert en ingénierie maritime et rédaction de rapports techniques pour TME " +
	"(Tanger Med Engineering). Réponds uniquement avec le contenu demandé, sans préambule. " +
	"Inspire-toi des exemples fournis pour le style."

// MinAcceptedLength is the trimmed length a text must exceed to count as generated.
const MinAcceptedLength = 20

var ErrDisabled = errors.New("generation disabled")

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// SleepFunc waits d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration)

type Client struct {
	http          *commonhttp.Client
	enabled       bool
	endpoint      string
	model         string
	apiKey        string
	maxTokens     int
	temperature   float64
	timeout       time.Duration
	rateLimitWait time.Duration
	sleep         SleepFunc
	cache         ResponseCache
	log           logger.Logger
}

type Option func(*Client)

// WithDoer replaces the HTTP transport.
func WithDoer(d commonhttp.Doer) Option {
	return func(c *Client) { c.http = commonhttp.NewClientWithDoer(d) }
}

func WithSleep(fn SleepFunc) Option {
	return func(c *Client) { c.sleep = fn }
}

func WithCache(cache ResponseCache) Option {
	return func(c *Client) { c.cache = cache }
}

// NewClient builds a client from the generation settings. The key named by APIKeyEnv
// wins over api_key; a missing key is not an error.
func NewClient(cfg config.GenerationConfig, log logger.Logger, opts ...Option) *Client {
	timeout := config.GetDuration(cfg.Timeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	key := cfg.APIKey
	if cfg.APIKeyEnv != "" {
		if v := os.Getenv(cfg.APIKeyEnv); v != "" {
			key = v
		}
	}

	c := &Client{
		http:          commonhttp.NewClient(timeout),
		enabled:       cfg.Enabled,
		endpoint:      orDefault(cfg.Endpoint, config.DefaultEndpoint),
		model:         orDefault(cfg.Model, config.DefaultModel),
		apiKey:        strings.TrimSpace(key),
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
		timeout:       timeout,
		rateLimitWait: config.GetDuration(cfg.RateLimitWait),
		sleep:         sleepContext,
		log:           logger.OrNoOp(log),
	}
	if c.maxTokens <= 0 {
		c.maxTokens = 1500
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Model() string { return c.model }

func (c *Client) Enabled() bool { return c.enabled }

// Generate performs a single request for section.
func (c *Client) Generate(ctx context.Context, section, prompt string) Outcome {
	if !c.enabled {
		return Outcome{Status: StatusFatal, Kind: KindDisabled, Err: apperrors.NewGenerationFailedError(section, ErrDisabled)}
	}

	var cacheKey string
	if c.cache != nil {
		cacheKey = CacheKey(c.model, prompt)
		if text, ok := c.cache.Get(ctx, cacheKey); ok {
			metrics.GenerationCacheHits.Inc()
			return Outcome{Status: StatusSuccess, Text: text, Cached: true}
		}
	}

	out := c.call(ctx, section, prompt)
	if out.Accepted() && c.cache != nil {
		c.cache.Set(ctx, cacheKey, out.Text)
	}
	return out
}

func (c *Client) call(ctx context.Context, section, prompt string) Outcome {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemRole},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}

	start := time.Now()
	resp, err := c.http.PostJSON(ctx, c.endpoint, headers, req)
	log := c.log.With(map[string]interface{}{"section": section, "model": c.model})
	if err != nil {
		if isTimeout(ctx, err) {
			log.Warn("Generation request timed out", map[string]interface{}{"timeout": c.timeout.String()})
			return Outcome{Status: StatusFatal, Kind: KindTimeout, Err: apperrors.NewGenerationTimeoutError(section, err)}
		}
		log.Warn("Generation request failed", map[string]interface{}{"error": err.Error()})
		return Outcome{Status: StatusFatal, Kind: KindTransport, Err: apperrors.NewGenerationFailedError(section, err)}
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		log.Warn("Generation rate limited", map[string]interface{}{"wait": c.rateLimitWait.String()})
		if c.rateLimitWait > 0 {
			c.sleep(ctx, c.rateLimitWait)
		}
		return Outcome{Status: StatusTransient, Kind: KindRateLimited, Err: apperrors.NewGenerationRateLimitedError(section)}
	default:
		err := fmt.Errorf("status %d", resp.StatusCode)
		log.Warn("Generation endpoint error", map[string]interface{}{"status": resp.StatusCode})
		return Outcome{Status: StatusFatal, Kind: KindHTTPStatus, Err: apperrors.NewGenerationFailedError(section, err)}
	}

	var body chatResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		log.Warn("Generation response undecodable", map[string]interface{}{"error": err.Error()})
		return Outcome{Status: StatusFatal, Kind: KindDecode, Err: apperrors.NewGenerationFailedError(section, err)}
	}

	var text string
	if len(body.Choices) > 0 {
		text = strings.TrimSpace(body.Choices[0].Message.Content)
	}
	if len([]rune(text)) <= MinAcceptedLength {
		log.Info("Generation returned too little text", map[string]interface{}{"length": len([]rune(text))})
		return Outcome{Status: StatusEmpty, Err: apperrors.NewGenerationEmptyError(section)}
	}

	log.Debug("Generation succeeded", map[string]interface{}{
		"chars":    len([]rune(text)),
		"duration": time.Since(start).String(),
	})
	return Outcome{Status: StatusSuccess, Text: text}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
