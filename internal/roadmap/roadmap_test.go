package roadmap

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/roadmap/internal/completion"
	"github.com/hpungsan/roadmap/internal/errors"
	"github.com/hpungsan/roadmap/internal/profile"
	"github.com/hpungsan/roadmap/internal/prompt"
	"github.com/hpungsan/roadmap/internal/session"
)

// fakeClient records prompts and replies with the queued results in order.
type fakeClient struct {
	prompts []string
	replies []completion.Result
}

func (f *fakeClient) Complete(_ context.Context, p string) completion.Result {
	f.prompts = append(f.prompts, p)
	if len(f.replies) == 0 {
		return completion.Failure(stderrors.New("no reply queued"))
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r
}

func newService(replies ...completion.Result) (*Service, *fakeClient) {
	fc := &fakeClient{replies: replies}
	return NewService(fc, prompt.VariantJEE, nil), fc
}

func stateWith(text string, editing, final bool) *session.State {
	st := &session.State{Editing: editing, Final: final}
	st.SetRoadmap(text)
	return st
}

func TestGenerate_Scenario(t *testing.T) {
	svc, fc := newService(completion.Success("ROADMAP_TEXT"))
	st := &session.State{}

	p := profile.Default()
	text, err := svc.Generate(context.Background(), st, p)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "ROADMAP_TEXT" || st.RoadmapText() != "ROADMAP_TEXT" {
		t.Errorf("roadmap = %q, want ROADMAP_TEXT", st.RoadmapText())
	}
	if st.Stage() != session.StagePendingReview {
		t.Errorf("Stage() = %q, want pending_review", st.Stage())
	}

	if len(fc.prompts) != 1 {
		t.Fatalf("client called %d times, want 1", len(fc.prompts))
	}
	for _, want := range []string{"6", "80", "70", "65", "69"} {
		if !strings.Contains(fc.prompts[0], want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestGenerate_FailureLeavesStateUnchanged(t *testing.T) {
	svc, _ := newService(completion.Failure(stderrors.New("401 unauthorized")))
	st := &session.State{}

	_, err := svc.Generate(context.Background(), st, profile.Default())
	if !errors.Is(err, errors.ErrCompletionFailed) {
		t.Fatalf("Generate() error = %v, want COMPLETION_FAILED", err)
	}
	if st.Roadmap != nil {
		t.Errorf("Roadmap = %q, want nil", *st.Roadmap)
	}
	if msg := errors.As(err).Message; strings.Contains(msg, "401") {
		t.Errorf("user-visible message leaks cause: %q", msg)
	}
}

func TestGenerate_EmptyReplyIsStored(t *testing.T) {
	svc, _ := newService(completion.Success("   "))
	st := &session.State{}

	if _, err := svc.Generate(context.Background(), st, profile.Default()); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !st.HasRoadmap() || st.RoadmapText() != "" {
		t.Errorf("Roadmap = %v, want stored empty string", st.Roadmap)
	}
}

func TestGenerate_InvalidProfile(t *testing.T) {
	svc, fc := newService(completion.Success("x"))
	p := profile.Default()
	p.MonthsRemaining = 0

	_, err := svc.Generate(context.Background(), &session.State{}, p)
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Fatalf("Generate() error = %v, want INVALID_REQUEST", err)
	}
	if len(fc.prompts) != 0 {
		t.Error("client called for an invalid profile")
	}
}

func TestGenerate_OnlyFromNoRoadmap(t *testing.T) {
	for _, st := range []*session.State{
		stateWith("OLD", false, false),
		stateWith("OLD", true, false),
		stateWith("OLD", false, true),
	} {
		svc, fc := newService(completion.Success("NEW"))
		before := st.Stage()

		_, err := svc.Generate(context.Background(), st, profile.Default())
		if !errors.Is(err, errors.ErrInvalidTransition) {
			t.Errorf("%s: Generate() error = %v, want INVALID_TRANSITION", before, err)
		}
		if st.RoadmapText() != "OLD" || st.Stage() != before {
			t.Errorf("%s: state changed to %+v", before, st)
		}
		if len(fc.prompts) != 0 {
			t.Errorf("%s: client called", before)
		}
	}
}

func TestRegenerate_Scenario(t *testing.T) {
	svc, fc := newService(completion.Success("NEW"))
	st := stateWith("OLD", true, false)

	text, err := svc.Regenerate(context.Background(), st, "add more physics")
	if err != nil {
		t.Fatalf("Regenerate() error = %v", err)
	}
	if text != "NEW" || st.RoadmapText() != "NEW" {
		t.Errorf("roadmap = %q, want NEW", st.RoadmapText())
	}
	if st.Stage() != session.StageEditing {
		t.Errorf("Stage() = %q, want editing", st.Stage())
	}
	if !strings.Contains(fc.prompts[0], "OLD") || !strings.Contains(fc.prompts[0], "add more physics") {
		t.Errorf("revision prompt = %q", fc.prompts[0])
	}
}

func TestRegenerate_OverwritesWithEmpty(t *testing.T) {
	svc, _ := newService(completion.Success(""))
	st := stateWith("OLD", true, false)

	if _, err := svc.Regenerate(context.Background(), st, "shorter"); err != nil {
		t.Fatalf("Regenerate() error = %v", err)
	}
	if !st.HasRoadmap() || st.RoadmapText() != "" {
		t.Errorf("roadmap = %v, want empty string", st.Roadmap)
	}
}

func TestRegenerate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		state    *session.State
		feedback string
		reply    completion.Result
		wantCode errors.ErrorCode
	}{
		{"blank feedback", stateWith("OLD", true, false), "  \n", completion.Success("NEW"), errors.ErrInvalidRequest},
		{"not editing", stateWith("OLD", false, false), "more", completion.Success("NEW"), errors.ErrInvalidTransition},
		{"finalized", stateWith("OLD", false, true), "more", completion.Success("NEW"), errors.ErrInvalidTransition},
		{"no roadmap", &session.State{Editing: true}, "more", completion.Success("NEW"), errors.ErrInvalidTransition},
		{"client failure", stateWith("OLD", true, false), "more", completion.Failure(stderrors.New("timeout")), errors.ErrCompletionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(tt.reply)
			before := tt.state.Clone()

			_, err := svc.Regenerate(context.Background(), tt.state, tt.feedback)
			if !errors.Is(err, tt.wantCode) {
				t.Fatalf("Regenerate() error = %v, want %s", err, tt.wantCode)
			}
			if tt.state.RoadmapText() != before.RoadmapText() || tt.state.Stage() != before.Stage() {
				t.Errorf("state changed: %+v", tt.state)
			}
		})
	}
}

func TestMakeChanges(t *testing.T) {
	svc, _ := newService()

	st := stateWith("OLD", false, false)
	if err := svc.MakeChanges(st); err != nil {
		t.Fatalf("MakeChanges() error = %v", err)
	}
	if st.Stage() != session.StageEditing {
		t.Errorf("Stage() = %q, want editing", st.Stage())
	}
	// Editing stays Editing
	if err := svc.MakeChanges(st); err != nil {
		t.Errorf("second MakeChanges() error = %v", err)
	}

	for _, blocked := range []*session.State{{}, stateWith("OLD", false, true)} {
		before := blocked.Stage()
		if err := svc.MakeChanges(blocked); !errors.Is(err, errors.ErrInvalidTransition) {
			t.Errorf("%s: MakeChanges() error = %v, want INVALID_TRANSITION", before, err)
		}
		if blocked.Stage() != before {
			t.Errorf("%s: stage changed to %s", before, blocked.Stage())
		}
	}
}

func TestFinalize(t *testing.T) {
	svc, _ := newService()

	for _, st := range []*session.State{stateWith("OLD", false, false), stateWith("OLD", true, false)} {
		if err := svc.Finalize(st); err != nil {
			t.Fatalf("Finalize() error = %v", err)
		}
		if st.Stage() != session.StageFinalized || st.Editing {
			t.Errorf("after Finalize: %+v", st)
		}
		// Idempotent
		if err := svc.Finalize(st); err != nil {
			t.Errorf("second Finalize() error = %v", err)
		}
	}

	if err := svc.Finalize(&session.State{}); !errors.Is(err, errors.ErrInvalidTransition) {
		t.Errorf("Finalize(no roadmap) error = %v, want INVALID_TRANSITION", err)
	}
}

func TestRevise_Stateless(t *testing.T) {
	svc, fc := newService(completion.Success("NEW"))

	text, err := svc.Revise(context.Background(), "OLD", "add more physics")
	if err != nil {
		t.Fatalf("Revise() error = %v", err)
	}
	if text != "NEW" || len(fc.prompts) != 1 {
		t.Errorf("Revise() = %q after %d calls", text, len(fc.prompts))
	}
}

// TestFullWorkflow walks a session through every stage:
// generate → make changes → regenerate → finalize → nothing reopens it
func TestFullWorkflow(t *testing.T) {
	svc, _ := newService(completion.Success("v1"), completion.Success("v2"))
	ctx := context.Background()
	st := &session.State{}

	// From NoRoadmap only Generate moves
	require.Error(t, svc.MakeChanges(st))
	require.Error(t, svc.Finalize(st))
	_, err := svc.Regenerate(ctx, st, "x")
	require.Error(t, err)
	require.Equal(t, session.StageNoRoadmap, st.Stage())

	_, err = svc.Generate(ctx, st, profile.Default())
	require.NoError(t, err)
	require.Equal(t, session.StagePendingReview, st.Stage())

	require.NoError(t, svc.MakeChanges(st))
	require.Equal(t, session.StageEditing, st.Stage())

	text, err := svc.Regenerate(ctx, st, "more mock tests")
	require.NoError(t, err)
	require.Equal(t, "v2", text)
	require.Equal(t, session.StageEditing, st.Stage())

	require.NoError(t, svc.Finalize(st))
	require.Equal(t, session.StageFinalized, st.Stage())

	// Nothing leaves Finalized
	require.Error(t, svc.MakeChanges(st))
	_, err = svc.Regenerate(ctx, st, "again")
	require.Error(t, err)
	_, err = svc.Generate(ctx, st, profile.Default())
	require.Error(t, err)
	require.Equal(t, session.StageFinalized, st.Stage())
	require.Equal(t, "v2", st.RoadmapText())
}

func TestServices_CachesPerVariant(t *testing.T) {
	builds := map[prompt.Variant]int{}
	svcs := NewServices(func(v prompt.Variant) (completion.Client, error) {
		builds[v]++
		return completion.Echo(), nil
	}, nil)

	a, err := svcs.For(prompt.VariantSWOT)
	require.NoError(t, err)
	b, err := svcs.For(prompt.VariantSWOT)
	require.NoError(t, err)
	require.Same(t, a, b)
	require.Equal(t, prompt.VariantSWOT, a.Variant())

	_, err = svcs.For(prompt.VariantJEE)
	require.NoError(t, err)
	require.Equal(t, 1, builds[prompt.VariantSWOT])
	require.Equal(t, 1, builds[prompt.VariantJEE])
}

func TestServices_BuildError(t *testing.T) {
	svcs := NewServices(func(prompt.Variant) (completion.Client, error) {
		return nil, errors.NewMissingCredential("GROQ_API_KEY")
	}, nil)

	_, err := svcs.For(prompt.VariantJEE)
	require.True(t, errors.Is(err, errors.ErrMissingCredential))
}
