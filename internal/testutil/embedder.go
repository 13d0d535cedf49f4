// Package testutil provides shared testing utilities: a deterministic mock
// embedder, quiet loggers, and a disposable PostgreSQL container with
// pgvector for integration tests.
package testutil

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
)

// MockEmbedder implements ai.Embedder with deterministic output: the vector
// for a given text is a function of its content, so equal texts embed
// identically and different texts (almost always) differ. Safe for
// concurrent use.
type MockEmbedder struct {
	// Dimension is the width of returned vectors. Defaults to 768 when zero.
	Dimension int
	// Err, when set, is returned from every Embed call.
	Err error
	// ShortResponse drops the last embedding from each response to
	// simulate a partial provider reply.
	ShortResponse bool

	mu     sync.Mutex
	calls  int
	inputs []string
}

func (m *MockEmbedder) Name() string { return "mock-embedder" }

func (m *MockEmbedder) Register(r api.Registry) {}

func (m *MockEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls++
	for _, doc := range req.Input {
		m.inputs = append(m.inputs, docText(doc))
	}
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	resp := &ai.EmbedResponse{}
	for _, doc := range req.Input {
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{
			Embedding: m.vectorFor(docText(doc)),
		})
	}
	if m.ShortResponse && len(resp.Embeddings) > 0 {
		resp.Embeddings = resp.Embeddings[:len(resp.Embeddings)-1]
	}
	return resp, nil
}

// Calls returns the number of Embed invocations so far.
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Inputs returns every text received, in arrival order.
func (m *MockEmbedder) Inputs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.inputs))
	copy(out, m.inputs)
	return out
}

func (m *MockEmbedder) dimension() int {
	if m.Dimension > 0 {
		return m.Dimension
	}
	return 768
}

// vectorFor seeds the vector from an FNV hash of the text, giving stable,
// content-dependent values in [0, 1).
func (m *MockEmbedder) vectorFor(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, m.dimension())
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(seed%1000) / 1000
	}
	return vec
}

func docText(doc *ai.Document) string {
	var out string
	for _, part := range doc.Content {
		out += part.Text
	}
	return out
}
