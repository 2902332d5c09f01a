package llm

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
)

// ResponseFunc produces a deterministic completion for a prompt.
type ResponseFunc func(system, prompt string) (string, error)

// StubClient is an in-process Completer for tests and dry runs.
type StubClient struct {
	respond ResponseFunc

	// BatchErr, when set, is consulted before each batch; a non-nil return
	// fails the batch without touching respond.
	BatchErr func(prompts []string) error

	mu         sync.Mutex
	calls      int
	batchCalls int
	prompts    []string
}

// NewStubClient wraps respond. A nil respond yields DirectionalResponse.
func NewStubClient(respond ResponseFunc) *StubClient {
	if respond == nil {
		respond = DirectionalResponse
	}
	return &StubClient{respond: respond}
}

// Complete records the call and returns respond's output.
func (s *StubClient) Complete(ctx context.Context, system, prompt string) Result {
	if err := ctx.Err(); err != nil {
		return Failed(err)
	}

	s.mu.Lock()
	s.calls++
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()

	text, err := s.respond(system, prompt)
	if err != nil {
		return Failed(err)
	}
	return Result{Text: text, Usage: Usage{InputTokens: EstimateTokens(system + prompt), OutputTokens: EstimateTokens(text)}}
}

// CompleteBatch answers prompts in order, failing as a unit.
func (s *StubClient) CompleteBatch(ctx context.Context, system string, prompts []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.batchCalls++
	s.mu.Unlock()

	if s.BatchErr != nil {
		if err := s.BatchErr(prompts); err != nil {
			return nil, err
		}
	}

	out := make([]string, len(prompts))
	for i, prompt := range prompts {
		text, err := s.respond(system, prompt)
		if err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
		out[i] = text
	}
	return out, nil
}

// Calls returns the number of single completions served.
func (s *StubClient) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// BatchCalls returns the number of batch requests received.
func (s *StubClient) BatchCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batchCalls
}

// Prompts returns the prompts of single completions in call order.
func (s *StubClient) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// DirectionalResponse answers every prompt with a forecast-shaped line whose
// direction is a stable function of the prompt text.
func DirectionalResponse(_, prompt string) (string, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(prompt))
	if h.Sum32()%2 == 0 {
		return "Summary: stub\nKeywords: stub\nStock Return: 0.5% (up)", nil
	}
	return "Summary: stub\nKeywords: stub\nStock Return: -0.5% (down)", nil
}
