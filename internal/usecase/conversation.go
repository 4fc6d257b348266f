package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"scoutchat/internal/domain"
	"scoutchat/internal/infra/tracer"
)

const (
	defaultSearchTimeout = 60 * time.Second
	unknownErrorText     = "未知错误"
)

// Phase is the step an in-flight turn is on.
type Phase string

const (
	PhaseSearching Phase = "searching"
	PhaseThinking  Phase = "thinking"
)

// FailureRenderer turns a failed model call into the assistant message text
// shown in the transcript.
type FailureRenderer func(err error) string

// DefaultFailureRenderer renders "Error: <detail>".
func DefaultFailureRenderer(err error) string {
	detail := domain.DetailOf(err)
	if detail == "" {
		detail = unknownErrorText
	}
	return "Error: " + detail
}

// ConversationDeps holds injected dependencies for a Conversation.
type ConversationDeps struct {
	LLM           domain.LLMProvider
	Searcher      domain.Searcher // optional, nil = every web search fails
	Prompts       *PromptBuilder
	Logger        *slog.Logger
	RenderFailure FailureRenderer // optional, nil = DefaultFailureRenderer
	SearchTimeout time.Duration
	Web           bool // initial web mode
}

// Conversation is a single-user chat transcript with at most one turn in
// flight. Messages are only ever appended.
type Conversation struct {
	deps ConversationDeps

	mu      sync.Mutex
	msgs    []domain.Message
	busy    bool
	web     bool
	onPhase func(Phase)
}

// NewConversation creates an empty conversation.
func NewConversation(deps ConversationDeps) *Conversation {
	if deps.RenderFailure == nil {
		deps.RenderFailure = DefaultFailureRenderer
	}
	if deps.SearchTimeout <= 0 {
		deps.SearchTimeout = defaultSearchTimeout
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Conversation{deps: deps, web: deps.Web}
}

// PendingTurn is a submitted turn whose user message is already in the
// transcript. Complete runs the network half.
type PendingTurn struct {
	c       *Conversation
	user    domain.Message
	history []domain.Message
	web     bool

	once sync.Once
	turn *domain.Turn
}

// Begin validates input, appends the user message and marks the
// conversation busy. It does no I/O.
func (c *Conversation) Begin(input string, web bool) (*PendingTurn, error) {
	if strings.TrimSpace(input) == "" {
		return nil, domain.ErrEmptyInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return nil, domain.ErrBusy
	}

	history := make([]domain.Message, len(c.msgs))
	copy(history, c.msgs)

	user := domain.Message{Role: domain.RoleUser, Content: input, Timestamp: time.Now()}
	c.msgs = append(c.msgs, user)
	c.busy = true

	return &PendingTurn{c: c, user: user, history: history, web: web}, nil
}

// Submit runs a whole turn: Begin then Complete.
func (c *Conversation) Submit(ctx context.Context, input string, web bool) (*domain.Turn, error) {
	p, err := c.Begin(input, web)
	if err != nil {
		return nil, err
	}
	return p.Complete(ctx), nil
}

// User returns the message appended by Begin.
func (p *PendingTurn) User() domain.Message { return p.user }

// Web reports whether this turn searches before calling the model.
func (p *PendingTurn) Web() bool { return p.web }

// Complete searches (in web mode), calls the model and appends exactly one
// assistant message. The conversation is idle again when it returns. Later
// calls return the same Turn.
func (p *PendingTurn) Complete(ctx context.Context) *domain.Turn {
	p.once.Do(func() {
		defer p.c.finish()
		p.turn = p.c.run(ctx, p)
	})
	return p.turn
}

func (c *Conversation) run(ctx context.Context, p *PendingTurn) *domain.Turn {
	ctx, span := tracer.StartSpan(ctx, tracer.SpanChatTurn,
		trace.WithAttributes(
			tracer.IntAttr("chat.history", len(p.history)),
			attribute.Bool("chat.web", p.web),
		),
	)
	defer span.End()

	turn := &domain.Turn{User: p.user}
	if p.web {
		c.phase(PhaseSearching)
	}
	prompt, err := c.buildPrompt(ctx, p, &turn.Search)
	if err != nil {
		c.deps.Logger.Error("prompt render failed", "error", err)
		prompt = p.user.Content
	}
	turn.Prompt = prompt

	req := domain.ChatRequest{Messages: make([]domain.Message, 0, len(p.history)+1)}
	for _, m := range p.history {
		role := domain.RoleAssistant
		if m.Role == domain.RoleUser {
			role = domain.RoleUser
		}
		req.Messages = append(req.Messages, domain.Message{Role: role, Content: m.Content})
	}
	req.Messages = append(req.Messages, domain.Message{Role: domain.RoleUser, Content: prompt})

	c.phase(PhaseThinking)
	resp, err := c.deps.LLM.Chat(ctx, req)
	if err != nil {
		tracer.RecordError(span, err)
		turn.Failure = &domain.TurnFailure{Kind: domain.ClassifyFailure(err), Err: err}
		turn.Reply = domain.Message{Role: domain.RoleAssistant, Content: c.deps.RenderFailure(err), Timestamp: time.Now()}
		c.deps.Logger.Warn("chat turn failed", "kind", turn.Failure.Kind, "error", err)
	} else {
		tracer.SetOK(span)
		turn.Reply = domain.Message{Role: domain.RoleAssistant, Content: resp.Message.Content, Timestamp: time.Now()}
	}

	c.append(turn.Reply)
	return turn
}

// buildPrompt fills out as the search step proceeds.
func (c *Conversation) buildPrompt(ctx context.Context, p *PendingTurn, out *domain.SearchOutcome) (string, error) {
	query := p.user.Content
	if !p.web {
		return query, nil
	}
	out.Requested = true

	content, err := c.search(ctx, query)
	if err != nil {
		out.Err = err
		c.deps.Logger.Warn("web search failed, answering without results", "error", err)
		return c.deps.Prompts.Fallback(query)
	}
	out.OK = true
	out.Content = content
	return c.deps.Prompts.Augmented(query, content)
}

func (c *Conversation) search(ctx context.Context, query string) (string, error) {
	if c.deps.Searcher == nil {
		return "", domain.NewDomainError("chat.search", domain.ErrSearchUnreachable, "no searcher configured")
	}
	ctx, cancel := context.WithTimeout(ctx, c.deps.SearchTimeout)
	defer cancel()

	resp, err := c.deps.Searcher.Search(ctx, domain.SearchRequest{Query: query})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// OnPhase registers fn to be called from the turn goroutine as each turn
// moves between phases. nil clears it.
func (c *Conversation) OnPhase(fn func(Phase)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onPhase = fn
}

func (c *Conversation) phase(p Phase) {
	c.mu.Lock()
	fn := c.onPhase
	c.mu.Unlock()
	if fn != nil {
		fn(p)
	}
}

func (c *Conversation) append(m domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
}

func (c *Conversation) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
}

// Messages returns a copy of the transcript.
func (c *Conversation) Messages() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]domain.Message, len(c.msgs))
	copy(cp, c.msgs)
	return cp
}

// Busy reports whether a turn is in flight.
func (c *Conversation) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Reset clears the transcript. It is refused while a turn is in flight.
func (c *Conversation) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return domain.ErrBusy
	}
	c.msgs = nil
	return nil
}

func (c *Conversation) Web() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.web
}

func (c *Conversation) SetWeb(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.web = on
}

// ToggleWeb flips web mode and returns the new value.
func (c *Conversation) ToggleWeb() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.web = !c.web
	return c.web
}
