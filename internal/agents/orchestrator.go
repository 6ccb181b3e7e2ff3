package agents

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"medrag/internal/domain"
)

// UndeterminedMessage is the answer given when routing names no known specialist.
const UndeterminedMessage = "Could not determine the specialist."

// Answer is the outcome of one routed question.
type Answer struct {
	// Specialist is the specialist that answered, empty when none matched.
	Specialist string
	// Label is the classifier output as received.
	Label string
	Text  string
}

// Err returns domain.ErrSpecialistUndetermined for an unrouted answer.
func (a Answer) Err() error {
	if a.Specialist == "" {
		return domain.ErrSpecialistUndetermined
	}
	return nil
}

// Orchestrator picks one specialist per question via a classifier.
type Orchestrator struct {
	router      domain.Classifier
	specialists map[string]Specialist
	timeout     time.Duration
	logger      *slog.Logger
}

// NewOrchestrator registers specialists under their lower-cased names. A
// positive timeout bounds the routing call and the specialist answer separately.
func NewOrchestrator(router domain.Classifier, specialists []Specialist, timeout time.Duration, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	m := make(map[string]Specialist, len(specialists))
	for _, s := range specialists {
		m[strings.ToLower(s.Name())] = s
	}
	return &Orchestrator{router: router, specialists: m, timeout: timeout, logger: logger}
}

// Specialists returns the registered names in sorted order.
func (o *Orchestrator) Specialists() []string {
	names := make([]string, 0, len(o.specialists))
	for n := range o.specialists {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Ask routes question and returns the chosen specialist's answer. A label
// matching no specialist is not an error: the returned Answer carries
// UndeterminedMessage and nothing is retrieved.
func (o *Orchestrator) Ask(ctx context.Context, question string) (Answer, error) {
	ctx, span := tracer.Start(ctx, "orchestrator.ask")
	defer span.End()

	label, err := o.classify(ctx, question)
	if err != nil {
		span.SetAttributes(attribute.Bool("error", true))
		return Answer{}, err
	}
	span.SetAttributes(attribute.String("router.label", label))

	key := strings.ToLower(strings.TrimSpace(label))
	spec, ok := o.specialists[key]
	if !ok {
		o.logger.Info("routing failed", "label", label, "error", domain.ErrSpecialistUndetermined)
		span.SetAttributes(attribute.Bool("router.undetermined", true))
		return Answer{Label: label, Text: UndeterminedMessage}, nil
	}
	o.logger.Debug("question routed", "specialist", key)

	actx, cancel := o.bound(ctx)
	defer cancel()
	text, err := spec.Answer(actx, question)
	if err != nil {
		return Answer{}, err
	}
	return Answer{Specialist: key, Label: label, Text: text}, nil
}

func (o *Orchestrator) classify(ctx context.Context, question string) (string, error) {
	ctx, cancel := o.bound(ctx)
	defer cancel()
	label, err := o.router.Classify(ctx, question)
	if err != nil {
		return "", fmt.Errorf("route: %w", err)
	}
	return label, nil
}

func (o *Orchestrator) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeout > 0 {
		return context.WithTimeout(ctx, o.timeout)
	}
	return context.WithCancel(ctx)
}
