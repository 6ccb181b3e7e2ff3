// Package llm adapts chat-completion backends to the routing (Classifier) and
// answer-generation (Generator) collaborators.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Completer sends one system + user exchange to a chat model.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

const routerSystem = "You are a medical orchestrator."

// Router asks the model which specialist should handle a question.
type Router struct {
	model       Completer
	specialists []string
}

// NewRouter creates a Router choosing among the named specialists.
func NewRouter(model Completer, specialists []string) *Router {
	return &Router{model: model, specialists: append([]string(nil), specialists...)}
}

// Classify returns the model's one-word label, trimmed and lower-cased. The
// label is not checked against the specialist list.
func (r *Router) Classify(ctx context.Context, question string) (string, error) {
	out, err := r.model.Complete(ctx, routerSystem, RouterPrompt(r.specialists, question))
	if err != nil {
		return "", fmt.Errorf("route question: %w", err)
	}
	return NormalizeLabel(out), nil
}

// RouterPrompt renders the routing request.
func RouterPrompt(specialists []string, question string) string {
	var b strings.Builder
	b.WriteString("Determine which specialist should handle the following request:\n")
	for _, s := range specialists {
		b.WriteString("- ")
		b.WriteString(s)
		b.WriteString("\n")
	}
	b.WriteString("\nRespond strictly in one word.\n\nPatient request:\n")
	b.WriteString(question)
	return b.String()
}

// NormalizeLabel trims whitespace and trailing punctuation and lower-cases.
func NormalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimRight(s, ".!?,;:\"'` ")
}

// Answerer drafts specialist answers from retrieved context.
type Answerer struct {
	model Completer
}

// NewAnswerer creates an Answerer.
func NewAnswerer(model Completer) *Answerer { return &Answerer{model: model} }

// Generate answers question in the given role using only ctxText.
func (a *Answerer) Generate(ctx context.Context, role, ctxText, question string) (string, error) {
	out, err := a.model.Complete(ctx, role, AnswerPrompt(ctxText, question))
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// AnswerPrompt renders the answer request.
func AnswerPrompt(ctxText, question string) string {
	return "Answer the patient's question using the context below.\n" +
		"If the answer is not in the context, reply that more information is needed.\n\n" +
		"Context:\n" + ctxText + "\n\nPatient question:\n" + question
}
