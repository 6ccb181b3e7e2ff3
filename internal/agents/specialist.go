// Package agents routes patient questions to specialists that answer from
// their own retrieved corpus.
package agents

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"medrag/internal/domain"
	"medrag/internal/retrieval"
)

var tracer = otel.Tracer("medrag/agents")

// Specialist answers questions within one medical domain.
type Specialist interface {
	Name() string
	Answer(ctx context.Context, question string) (string, error)
}

// Retriever ranks a specialist's corpus against a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]domain.SearchResult, error)
}

// RAGSpecialist answers from the top-k chunks of its collection.
type RAGSpecialist struct {
	name      string
	role      string
	retriever Retriever
	generator domain.Generator
	topK      int
}

// NewRAGSpecialist creates a specialist. topK <= 0 uses retrieval.DefaultTopK.
func NewRAGSpecialist(name, role string, r Retriever, g domain.Generator, topK int) *RAGSpecialist {
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}
	return &RAGSpecialist{name: name, role: role, retriever: r, generator: g, topK: topK}
}

func (s *RAGSpecialist) Name() string { return s.name }

// Answer retrieves context for question and asks the generator to answer in
// the specialist's role.
func (s *RAGSpecialist) Answer(ctx context.Context, question string) (string, error) {
	ctx, span := tracer.Start(ctx, "specialist.answer")
	defer span.End()
	span.SetAttributes(attribute.String("specialist", s.name))

	results, err := s.retriever.Retrieve(ctx, question, s.topK)
	if err != nil {
		span.SetAttributes(attribute.Bool("error", true))
		return "", fmt.Errorf("%s: retrieve: %w", s.name, err)
	}
	span.SetAttributes(attribute.Int("retrieval.results", len(results)))

	answer, err := s.generator.Generate(ctx, s.role, retrieval.Context(results), question)
	if err != nil {
		span.SetAttributes(attribute.Bool("error", true))
		return "", fmt.Errorf("%s: %w", s.name, err)
	}
	return answer, nil
}
