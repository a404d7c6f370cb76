package llm

import "context"

// MockLLM serves queued responses in order, falling back to Response.
type MockLLM struct {
	Response      string
	ResponseQueue []string
	Err           error
	Prompts       []string
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.ResponseQueue) > 0 {
		resp := m.ResponseQueue[0]
		m.ResponseQueue = m.ResponseQueue[1:]
		return resp, nil
	}
	return m.Response, nil
}

type MockEmbedder struct {
	Vector []float32
	Err    error
	Texts  []string
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.Texts = append(m.Texts, text)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Vector, nil
}
