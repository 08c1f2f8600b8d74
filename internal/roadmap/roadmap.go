// Package roadmap runs the generate, review and finalize workflow on a
// session's state. It calls the prompt builder and completion client
// directly; there is no tool-selection layer in between.
package roadmap

import (
	"context"
	"strings"

	"github.com/hpungsan/roadmap/internal/completion"
	"github.com/hpungsan/roadmap/internal/errors"
	"github.com/hpungsan/roadmap/internal/logger"
	"github.com/hpungsan/roadmap/internal/profile"
	"github.com/hpungsan/roadmap/internal/prompt"
	"github.com/hpungsan/roadmap/internal/session"
)

// Service drives the roadmap workflow for one prompt variant.
type Service struct {
	client  completion.Client
	variant prompt.Variant
	log     *logger.Logger
}

// NewService creates a Service. A nil logger discards output.
func NewService(client completion.Client, variant prompt.Variant, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{client: client, variant: variant, log: log.With("component", "roadmap")}
}

// Variant returns the prompt variant the service generates with.
func (s *Service) Variant() prompt.Variant {
	return s.variant
}

// Draft builds the generation prompt for p and returns the model's roadmap.
// It does not touch any session.
func (s *Service) Draft(ctx context.Context, p profile.PreparationProfile) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	r := s.client.Complete(ctx, prompt.Build(s.variant, p))
	if !r.OK() {
		return "", errors.NewCompletionFailed(r.Err())
	}
	return r.Text(), nil
}

// Revise asks the model to change oldRoadmap according to feedback.
// It does not touch any session.
func (s *Service) Revise(ctx context.Context, oldRoadmap, feedback string) (string, error) {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return "", errors.NewInvalidRequest("feedback is required")
	}
	r := s.client.Complete(ctx, prompt.Regenerate(oldRoadmap, feedback))
	if !r.OK() {
		return "", errors.NewCompletionFailed(r.Err())
	}
	return r.Text(), nil
}

// Generate creates the first roadmap for a session.
// On failure st is left unchanged.
func (s *Service) Generate(ctx context.Context, st *session.State, p profile.PreparationProfile) (string, error) {
	if stage := st.Stage(); stage != session.StageNoRoadmap {
		return "", errors.NewInvalidTransition("generate", stage.Label())
	}

	text, err := s.Draft(ctx, p)
	if err != nil {
		return "", err
	}
	// Stored even when empty
	st.SetRoadmap(text)
	s.log.Info("roadmap generated", "variant", s.variant.String(), "chars", len(text))
	return text, nil
}

// MakeChanges opens the roadmap for reviewer feedback.
func (s *Service) MakeChanges(st *session.State) error {
	switch stage := st.Stage(); stage {
	case session.StagePendingReview, session.StageEditing:
		st.Editing = true
		return nil
	default:
		return errors.NewInvalidTransition("make changes", stage.Label())
	}
}

// Regenerate revises the stored roadmap with reviewer feedback and
// overwrites it with whatever the model returns.
// On failure st is left unchanged.
func (s *Service) Regenerate(ctx context.Context, st *session.State, feedback string) (string, error) {
	if stage := st.Stage(); stage != session.StageEditing {
		return "", errors.NewInvalidTransition("regenerate", stage.Label())
	}

	text, err := s.Revise(ctx, st.RoadmapText(), feedback)
	if err != nil {
		return "", err
	}
	st.SetRoadmap(text)
	s.log.Info("roadmap regenerated", "chars", len(text), "feedback_chars", len(feedback))
	return text, nil
}

// Finalize locks the roadmap. Finalizing twice is a no-op.
func (s *Service) Finalize(st *session.State) error {
	switch stage := st.Stage(); stage {
	case session.StagePendingReview, session.StageEditing:
		st.Editing = false
		st.Final = true
		s.log.Info("roadmap finalized")
		return nil
	case session.StageFinalized:
		return nil
	default:
		return errors.NewInvalidTransition("finalize", stage.Label())
	}
}
