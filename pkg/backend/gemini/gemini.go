// Package gemini implements backend.Generator for Google's Generative
// Language API (generateContent).
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"

	"github.com/harrisonrobin/taskboard/pkg/backend"
)

const (
	DefaultBaseURL     = "https://generativelanguage.googleapis.com"
	DefaultModel       = "gemini-2.5-flash"
	DefaultSpeechModel = "gemini-2.5-flash-preview-tts"
	DefaultVoice       = "Kore"

	// SpeechSampleRate is the PCM rate the TTS models return.
	SpeechSampleRate = 24000

	defaultTimeout = 2 * time.Minute
	defaultRPM     = 60
	maxAttempts    = 3

	scope = "https://www.googleapis.com/auth/generative-language"
)

// Backend talks to the Generative Language REST API.
type Backend struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	backoff time.Duration
	logger  *slog.Logger
}

// Option configures the backend.
type Option func(*Backend)

// WithAPIKey authenticates with an API key. Without one, Application
// Default Credentials are used.
func WithAPIKey(key string) Option {
	return func(b *Backend) {
		b.apiKey = key
	}
}

// WithBaseURL sets a custom base URL (for testing or proxies).
func WithBaseURL(url string) Option {
	return func(b *Backend) {
		if url != "" {
			b.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(b *Backend) {
		b.client = client
	}
}

// WithRateLimit sets the rate limit in requests per minute.
func WithRateLimit(rpm int) Option {
	return func(b *Backend) {
		if rpm > 0 {
			b.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm)
		}
	}
}

// WithBackoff sets the base delay between retries.
func WithBackoff(d time.Duration) Option {
	return func(b *Backend) {
		b.backoff = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		b.logger = l
	}
}

// New creates a backend. If no API key is given the HTTP client is built
// from Application Default Credentials.
func New(ctx context.Context, opts ...Option) (*Backend, error) {
	b := &Backend{
		baseURL: DefaultBaseURL,
		backoff: time.Second,
		logger:  slog.Default(),
	}
	WithRateLimit(defaultRPM)(b)
	for _, opt := range opts {
		opt(b)
	}

	if b.client == nil {
		if b.apiKey != "" {
			b.client = &http.Client{Timeout: defaultTimeout}
		} else {
			ts, err := google.DefaultTokenSource(ctx, scope)
			if err != nil {
				return nil, fmt.Errorf("no API key configured and no application default credentials: %w", err)
			}
			b.client = oauth2.NewClient(ctx, ts)
			b.client.Timeout = defaultTimeout
		}
	}
	return b, nil
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return "gemini" }

// DefaultModel returns the default model.
func (b *Backend) DefaultModel() string { return DefaultModel }

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type speechConfig struct {
	VoiceConfig struct {
		PrebuiltVoiceConfig struct {
			VoiceName string `json:"voiceName"`
		} `json:"prebuiltVoiceConfig"`
	} `json:"voiceConfig"`
}

type generationConfig struct {
	MaxOutputTokens    int           `json:"maxOutputTokens,omitempty"`
	Temperature        *float64      `json:"temperature,omitempty"`
	ResponseMIMEType   string        `json:"responseMimeType,omitempty"`
	ResponseSchema     any           `json:"responseSchema,omitempty"`
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type apiRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type apiResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Invoke sends messages to generateContent and returns the text parts.
func (b *Backend) Invoke(ctx context.Context, messages []backend.Message, opts backend.InvokeOptions) (*backend.InvokeResult, error) {
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}

	req := apiRequest{}
	systemMsg := opts.SystemMsg
	for _, msg := range messages {
		switch msg.Role {
		case backend.RoleSystem:
			if systemMsg == "" {
				systemMsg = msg.Content
			}
			continue
		case backend.RoleModel:
			req.Contents = append(req.Contents, content{Role: "model", Parts: []part{{Text: msg.Content}}})
		default:
			req.Contents = append(req.Contents, content{Role: "user", Parts: []part{{Text: msg.Content}}})
		}
	}
	if systemMsg != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: systemMsg}}}
	}
	if opts.MaxTokens > 0 || opts.Temperature != nil || opts.ResponseMIMEType != "" || opts.ResponseSchema != nil {
		req.GenerationConfig = &generationConfig{
			MaxOutputTokens:  opts.MaxTokens,
			Temperature:      opts.Temperature,
			ResponseMIMEType: opts.ResponseMIMEType,
			ResponseSchema:   opts.ResponseSchema,
		}
	}

	resp, err := b.generate(ctx, model, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 {
		return nil, errors.New("response has no candidates")
	}

	cand := resp.Candidates[0]
	var text strings.Builder
	for _, p := range cand.Content.Parts {
		text.WriteString(p.Text)
	}
	if resp.ModelVersion != "" {
		model = resp.ModelVersion
	}
	return &backend.InvokeResult{
		Content:      text.String(),
		Model:        model,
		InputTokens:  resp.UsageMetadata.PromptTokenCount,
		OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
		FinishReason: cand.FinishReason,
	}, nil
}

// Synthesize asks a TTS model for audio and decodes the inline PCM.
func (b *Backend) Synthesize(ctx context.Context, text string, opts backend.SpeechOptions) (*backend.Audio, error) {
	model := opts.Model
	if model == "" {
		model = DefaultSpeechModel
	}
	voice := opts.Voice
	if voice == "" {
		voice = DefaultVoice
	}

	sc := &speechConfig{}
	sc.VoiceConfig.PrebuiltVoiceConfig.VoiceName = voice
	req := apiRequest{
		Contents: []content{{Parts: []part{{Text: text}}}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig:       sc,
		},
	}

	resp, err := b.generate(ctx, model, req)
	if err != nil {
		return nil, err
	}
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("decoding audio: %w", err)
			}
			return &backend.Audio{
				Data:       data,
				MIMEType:   p.InlineData.MIMEType,
				SampleRate: sampleRate(p.InlineData.MIMEType),
			}, nil
		}
	}
	return nil, errors.New("no audio data received")
}

// Healthy checks that the default model is reachable with the configured credentials.
func (b *Backend) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/v1beta/models/"+DefaultModel, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if b.apiKey != "" {
		req.Header.Set("x-goog-api-key", b.apiKey)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("reaching %s: %w", b.baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check: status %d", resp.StatusCode)
	}
	return nil
}

func (b *Backend) generate(ctx context.Context, model string, body apiRequest) (*apiResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", b.baseURL, model)

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}

		resp, wait, err := b.do(ctx, url, payload)
		if err == nil {
			return resp, nil
		}
		if !backend.IsTransient(err) {
			return nil, err
		}
		lastErr = err
		if attempt == maxAttempts-1 {
			break
		}
		if wait == 0 {
			wait = time.Duration(attempt+1) * b.backoff
		}
		b.logger.Warn("retrying gemini request",
			slog.String("model", model),
			slog.Int("attempt", attempt+1),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", maxAttempts, lastErr)
}

// do performs one attempt. The returned duration is the server's
// Retry-After hint, if any.
func (b *Backend) do(ctx context.Context, url string, payload []byte) (*apiResponse, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("x-goog-api-key", b.apiKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, backend.NewTransientError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, backend.NewTransientError(fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		err := statusError(resp.StatusCode, body)
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, retryAfter(resp.Header.Get("Retry-After")), backend.NewTransientError(err)
		case resp.StatusCode >= 500:
			return nil, 0, backend.NewTransientError(err)
		}
		return nil, 0, err
	}

	var out apiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, 0, fmt.Errorf("parsing response: %w", err)
	}
	return &out, 0, nil
}

func statusError(code int, body []byte) error {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("API error (%s): %s", apiErr.Error.Status, apiErr.Error.Message)
	}
	return fmt.Errorf("API error (status %d): %s", code, strings.TrimSpace(string(body)))
}

// retryAfter reads a Retry-After header in seconds. Zero means no hint.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// sampleRate reads the rate parameter of an audio/L16 MIME type.
func sampleRate(mimeType string) int {
	for _, param := range strings.Split(mimeType, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
		if ok && strings.EqualFold(k, "rate") {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				return n
			}
		}
	}
	return SpeechSampleRate
}
