package assistant

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/harrisonrobin/taskboard/pkg/markdown"
	"github.com/harrisonrobin/taskboard/pkg/model"
)

// Fallback texts shown when the backend fails.
const (
	SummaryFallback  = "Failed to generate summary."
	OptimizeFallback = "Failed to generate suggestions."
	ChatFallback     = "Sorry, I encountered an error. Please try again."
	ChatGreeting     = "Hello! How can I help you with your tasks today?"
)

// Reply is what a panel shows. Degraded replies carry the fallback text
// and the underlying error.
type Reply struct {
	Markdown string
	HTML     string
	Degraded bool
	Err      error
}

// Panel runs summary and optimization requests one at a time.
type Panel struct {
	c    Collaborator
	busy atomic.Bool
}

// NewPanel wraps c.
func NewPanel(c Collaborator) *Panel {
	return &Panel{c: c}
}

// Busy reports whether a request is in flight.
func (p *Panel) Busy() bool { return p.busy.Load() }

// Summary returns a summary reply. The only error is ErrBusy.
func (p *Panel) Summary(ctx context.Context, tasks []model.Task, period Period) (Reply, error) {
	return p.run(SummaryFallback, func() (string, error) {
		return p.c.Summarize(ctx, tasks, period)
	})
}

// Optimize returns an optimization reply. The only error is ErrBusy.
func (p *Panel) Optimize(ctx context.Context, tasks []model.Task, members []model.User, actor model.User) (Reply, error) {
	return p.run(OptimizeFallback, func() (string, error) {
		return p.c.Optimize(ctx, tasks, members, actor)
	})
}

func (p *Panel) run(fallback string, call func() (string, error)) (Reply, error) {
	if !p.busy.CompareAndSwap(false, true) {
		return Reply{}, ErrBusy
	}
	defer p.busy.Store(false)

	text, err := call()
	if err != nil {
		return Reply{Markdown: fallback, HTML: markdown.ToSafeHTML(fallback), Degraded: true, Err: err}, nil
	}
	return Reply{Markdown: text, HTML: markdown.ToSafeHTML(text)}, nil
}

// Conversation is the chat history for the process lifetime.
type Conversation struct {
	c    Collaborator
	busy atomic.Bool

	mu      sync.Mutex
	history []model.ChatMessage
}

// NewConversation starts a conversation with the greeting.
func NewConversation(c Collaborator) *Conversation {
	return &Conversation{
		c:       c,
		history: []model.ChatMessage{{Role: model.ChatModel, Text: ChatGreeting}},
	}
}

// History returns a copy of the messages so far.
func (c *Conversation) History() []model.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.ChatMessage(nil), c.history...)
}

// Send appends message and the model's answer. A backend failure appends
// the fallback text instead. The only error is ErrBusy.
func (c *Conversation) Send(ctx context.Context, message string) (Reply, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return Reply{}, ErrBusy
	}
	defer c.busy.Store(false)

	prior := c.History()
	c.append(model.ChatMessage{Role: model.ChatUser, Text: message})

	reply := Reply{}
	text, err := c.c.Chat(ctx, prior, message)
	if err != nil {
		text = ChatFallback
		reply.Degraded = true
		reply.Err = err
	}
	c.append(model.ChatMessage{Role: model.ChatModel, Text: text})
	reply.Markdown = text
	reply.HTML = markdown.ToSafeHTML(text)
	return reply, nil
}

func (c *Conversation) append(m model.ChatMessage) {
	c.mu.Lock()
	c.history = append(c.history, m)
	c.mu.Unlock()
}
