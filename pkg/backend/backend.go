// Package backend defines the boundary to hosted generative-model APIs.
// The assistant talks to a Generator; provider packages (gemini) implement it.
package backend

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Roles used in Message.Role.
const (
	RoleUser   = "user"
	RoleModel  = "model"
	RoleSystem = "system"
)

// Message is one turn of a conversation sent to a backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// InvokeOptions configures a text generation call.
type InvokeOptions struct {
	// Model overrides the backend's default model.
	Model string `json:"model,omitempty"`

	// MaxTokens caps the response length. Zero uses the backend default.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness. Nil uses the backend default.
	Temperature *float64 `json:"temperature,omitempty"`

	// SystemMsg is a system instruction sent apart from the messages.
	SystemMsg string `json:"system_msg,omitempty"`

	// ResponseMIMEType asks for structured output, e.g. "application/json".
	ResponseMIMEType string `json:"response_mime_type,omitempty"`

	// ResponseSchema constrains structured output. Marshalled as JSON.
	ResponseSchema any `json:"response_schema,omitempty"`
}

// InvokeResult is a text generation response.
type InvokeResult struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	FinishReason string `json:"finish_reason"`
}

// SpeechOptions configures a speech synthesis call.
type SpeechOptions struct {
	Model string
	Voice string
}

// Audio is synthesized speech.
type Audio struct {
	// Data is raw PCM, signed 16-bit little endian.
	Data       []byte
	MIMEType   string
	SampleRate int
}

// Generator is the interface every model provider implements.
type Generator interface {
	// Name returns the backend identifier, e.g. "gemini".
	Name() string

	// DefaultModel returns the model used when InvokeOptions.Model is empty.
	DefaultModel() string

	// Invoke sends messages and returns the generated text.
	Invoke(ctx context.Context, messages []Message, opts InvokeOptions) (*InvokeResult, error)

	// Synthesize turns text into speech.
	Synthesize(ctx context.Context, text string, opts SpeechOptions) (*Audio, error)

	// Healthy checks whether the backend is usable.
	Healthy(ctx context.Context) error
}

// Registry holds the configured backends by name.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Generator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Generator)}
}

// Register adds or replaces a backend.
func (r *Registry) Register(g Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[g.Name()] = g
}

// Get retrieves a backend by name.
func (r *Registry) Get(name string) (Generator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("backend %q not registered", name)
	}
	return g, nil
}

// List returns registered backend names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
