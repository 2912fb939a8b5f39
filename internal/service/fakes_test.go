package service

import (
	"context"
	"feedbacklens/internal/config"
	"feedbacklens/internal/llm"
	"feedbacklens/internal/model"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeBackend answers by matching prompt substrings; the first match wins
type fakeBackend struct {
	mu       sync.Mutex
	replies  []fakeReply
	fallback string
	err      error
	calls    []llm.Request
}

type fakeReply struct {
	contains string
	text     string
	err      error
}

func (f *fakeBackend) on(contains, text string) *fakeBackend {
	f.replies = append(f.replies, fakeReply{contains: contains, text: text})
	return f
}

func (f *fakeBackend) onErr(contains string, err error) *fakeBackend {
	f.replies = append(f.replies, fakeReply{contains: contains, err: err})
	return f
}

func (f *fakeBackend) Generate(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return "", f.err
	}
	for _, r := range f.replies {
		if strings.Contains(req.Prompt, r.contains) {
			return r.text, r.err
		}
	}
	return f.fallback, nil
}

func (f *fakeBackend) Calls() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Request(nil), f.calls...)
}

type fakeFactory struct {
	backend llm.Backend
	err     error
}

func (f fakeFactory) Backend(config.Provider) (llm.Backend, error) {
	return f.backend, f.err
}

type memoryCache struct {
	mu    sync.Mutex
	items map[string]*model.Generation
}

func (c *memoryCache) Get(_ context.Context, key string) (*model.Generation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items[key], nil
}

func (c *memoryCache) Set(_ context.Context, key string, gen *model.Generation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = make(map[string]*model.Generation)
	}
	c.items[key] = gen
	return nil
}

const (
	classJSON   = `{"overall_trends":{"summary":"steady"},"group_comparisons":{},"topic_analysis":{},"assessment_alignment":{},"attention_needed":{},"challenge_needed":{}}`
	groupJSON   = `{"group_dynamics":{"note":"good"},"contributions":{},"topic_mastery":{},"improvement_areas":{},"achievements":{}}`
	studentJSON = `{"framework_analysis":{"level":"active"},"strengths":["clear"],"improvement_areas":[],"recommendations":[],"patterns":{}}`
	evalJSON    = `{"score":82,"justification":"specific","criterion_scores":{"specificity":90,"constructiveness":80,"actionability":75,"alignment":85,"evidence":80}}`
)

// scriptedBackend answers every prompt kind with valid JSON
func scriptedBackend() *fakeBackend {
	return (&fakeBackend{}).
		on("from multiple student groups", classJSON).
		on("for a specific group", groupJSON).
		on("for a specific student", studentJSON).
		on("assess the quality", evalJSON)
}

func newTestModelService(t *testing.T, backend llm.Backend) *ModelService {
	t.Helper()
	svc, err := NewModelService(config.DefaultAIConfig(), "llama-3.1-8b", fakeFactory{backend: backend}, zap.NewNop())
	require.NoError(t, err)
	return svc
}
