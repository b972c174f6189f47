// Package chat implements the conversational QA session: retrieval against one
// or more session indices plus conversational memory, dispatched to a hosted
// generative model.
package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hyperjump/kotae/internal/apperr"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/registry"
	"github.com/hyperjump/kotae/internal/vector"
	"go.uber.org/zap"
)

// Answerer generates free text for an assembled prompt.
type Answerer interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Turn is one completed (question, answer) exchange.
type Turn struct {
	Question string
	Answer   string
}

// Config holds retrieval and external-call budgets.
type Config struct {
	TopK            int           // default chunks retrieved per question
	MaxTopK         int           // upper bound on caller-requested k
	EmbedTimeout    time.Duration // budget for one embedding call
	GenerateTimeout time.Duration // budget for one generation call
	RetryBackoff    time.Duration // pause before the single retry of a retryable failure
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.MaxTopK <= 0 {
		c.MaxTopK = 20
	}
	if c.EmbedTimeout == 0 {
		c.EmbedTimeout = 15 * time.Second
	}
	if c.GenerateTimeout == 0 {
		c.GenerateTimeout = 60 * time.Second
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
}

// Manager opens QA sessions over the registry's indices.
type Manager struct {
	registry *registry.Registry
	embedder embedding.Embedder
	answerer Answerer
	cfg      Config
	logger   *zap.Logger // optional
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a session manager over reg.
func NewManager(reg *registry.Registry, embedder embedding.Embedder, answerer Answerer, cfg Config, opts ...ManagerOption) *Manager {
	cfg.ApplyDefaults()
	m := &Manager{registry: reg, embedder: embedder, answerer: answerer, cfg: cfg}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Session answers questions against one index view and owns the conversational
// memory for one conversation. Ask calls on the same Session are serialized so
// turn order in memory matches dispatch order.
type Session struct {
	manager *Manager
	index   *vector.Index
	k       int
	mu      sync.Mutex
	memory  []Turn
}

// Open returns a session over the index for sessionID. When the id was never
// ingested it fails with a not-found error before any provider call is made.
// k <= 0 uses the configured default.
func (m *Manager) Open(sessionID string, k int) (*Session, error) {
	if sessionID == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "session id cannot be empty")
	}
	idx, ok := m.registry.Get(sessionID)
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, fmt.Sprintf("session %q has no ingested documents", sessionID))
	}
	return m.newSession(idx, k), nil
}

// OpenCombined returns a session over the union of every registered index.
// A single registered index is queried directly; with more than one, indices
// are merged non-destructively in registry insertion order, so per-session
// indices are never polluted by the combined view. Fails with not-found when
// nothing has been ingested yet.
func (m *Manager) OpenCombined(k int) (*Session, error) {
	indices := m.registry.All()
	if len(indices) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "no sessions have been ingested yet")
	}
	combined := indices[0]
	for _, idx := range indices[1:] {
		merged, err := combined.Merge(idx)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "merge session indices", err)
		}
		combined = merged
	}
	return m.newSession(combined, k), nil
}

func (m *Manager) newSession(idx *vector.Index, k int) *Session {
	if k <= 0 {
		k = m.cfg.TopK
	}
	if k > m.cfg.MaxTopK {
		k = m.cfg.MaxTopK
	}
	return &Session{manager: m, index: idx, k: k}
}

// Ask answers question using top-k retrieval plus the conversation so far.
// aux is optional auxiliary caller context (e.g. the user's registered
// sessions); it is prepended to the prompt only when the personalization
// predicate triggers. The (question, answer) turn is appended to memory only
// after a successful generation, so a failed turn can be retried with an
// identical prompt.
func (s *Session) Ask(ctx context.Context, question string, aux []string) (*models.Answer, error) {
	if question == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "question cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.manager
	var queryVec []float32
	err := m.callWithRetry(ctx, m.cfg.EmbedTimeout, func(cctx context.Context) error {
		vec, embErr := m.embedder.Embed(cctx, question)
		if embErr != nil {
			return embErr
		}
		queryVec = vec
		return nil
	})
	if err != nil {
		return nil, err
	}

	hits, err := s.index.Search(ctx, queryVec, s.k)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "vector search", err)
	}
	chunks := make([]*models.Chunk, len(hits))
	for i, h := range hits {
		chunks[i] = h.Chunk
	}

	var preamble string
	if Personalize(aux, question) {
		preamble = BuildPreamble(aux)
	}
	prompt := BuildPrompt(preamble, s.memory, chunks, question)
	if m.logger != nil {
		m.logger.Debug("dispatching prompt",
			zap.Int("retrieved", len(chunks)),
			zap.Int("history_turns", len(s.memory)),
			zap.Bool("personalized", preamble != ""),
		)
	}

	var text string
	err = m.callWithRetry(ctx, m.cfg.GenerateTimeout, func(cctx context.Context) error {
		out, genErr := m.answerer.Generate(cctx, prompt)
		if genErr != nil {
			return genErr
		}
		text = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.memory = append(s.memory, Turn{Question: question, Answer: text})
	return &models.Answer{Text: text, Sources: chunks}, nil
}

// History returns a copy of the conversation memory, oldest first.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.memory))
	copy(out, s.memory)
	return out
}

// TopK returns the session's retrieval depth.
func (s *Session) TopK() int { return s.k }

// callWithRetry runs fn under a timeout derived from ctx, retrying exactly
// once with backoff when the failure is retryable (rate limit, transient
// network, timeout). Non-retryable failures surface immediately.
func (m *Manager) callWithRetry(ctx context.Context, budget time.Duration, fn func(context.Context) error) error {
	run := func() error {
		cctx, cancel := context.WithTimeout(ctx, budget)
		defer cancel()
		return fn(cctx)
	}
	err := run()
	if err == nil || !apperr.IsRetryable(err) {
		return err
	}
	select {
	case <-time.After(m.cfg.RetryBackoff):
	case <-ctx.Done():
		return apperr.Wrap(apperr.KindTimeout, "cancelled while backing off", ctx.Err())
	}
	return run()
}
