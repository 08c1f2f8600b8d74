package profile

import (
	"net/url"
	"strings"
	"testing"

	"github.com/hpungsan/roadmap/internal/errors"
)

func intPtr(v int) *int { return &v }

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(p *PreparationProfile)
		wantField string
	}{
		{"months too low", func(p *PreparationProfile) { p.MonthsRemaining = 0 }, "months_remaining"},
		{"months too high", func(p *PreparationProfile) { p.MonthsRemaining = 25 }, "months_remaining"},
		{"negative marks", func(p *PreparationProfile) { p.ChemistryMarks = -1 }, "chemistry_marks"},
		{"syllabus over 100", func(p *PreparationProfile) { p.MathSyllabus = 101 }, "math_syllabus"},
		{"percentile over 100", func(p *PreparationProfile) { p.TargetPercentile = intPtr(120) }, "target_percentile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Default()
			tt.mutate(&p)
			err := p.Validate()
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Fatalf("Validate() = %v, want INVALID_REQUEST", err)
			}
			if got := errors.As(err).Details["field"]; got != tt.wantField {
				t.Errorf("field = %v, want %q", got, tt.wantField)
			}
		})
	}
}

func TestValidate_Boundaries(t *testing.T) {
	p := Default()
	p.MonthsRemaining = 24
	p.PhysicsMarks = 0
	p.MathSyllabus = 100
	p.TargetPercentile = intPtr(0)
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil at boundaries", err)
	}
}

func TestDetails_ContainsEveryValue(t *testing.T) {
	p := PreparationProfile{
		MonthsRemaining:   6,
		PhysicsMarks:      80,
		ChemistryMarks:    70,
		MathMarks:         65,
		PhysicsSyllabus:   69,
		ChemistrySyllabus: 80,
		MathSyllabus:      70,
	}

	got := p.Details()
	for _, want := range []string{"6 months", "Physics = 80", "Chemistry = 70", "Mathematics = 65", "Physics = 69%", "Chemistry = 80%", "Mathematics = 70%"} {
		if !strings.Contains(got, want) {
			t.Errorf("Details() missing %q in %q", want, got)
		}
	}
	if strings.Contains(got, "percentile") || strings.Contains(got, "SWOT") {
		t.Errorf("Details() should omit empty optional sections: %q", got)
	}
	if !strings.HasSuffix(got, "Generate a roadmap accordingly.") {
		t.Errorf("Details() should end with the closing instruction: %q", got)
	}
}

func TestDetails_OptionalSections(t *testing.T) {
	p := Default()
	p.TargetPercentile = intPtr(99)
	p.Habits = "study late at night"
	p.Strengths = "calculus"
	p.Threats = "board exams overlap"

	got := p.Details()
	for _, want := range []string{"target percentile is 99", "study late at night", "Strengths = calculus", "Weaknesses = none given", "Threats = board exams overlap"} {
		if !strings.Contains(got, want) {
			t.Errorf("Details() missing %q in %q", want, got)
		}
	}
}

func TestFromForm(t *testing.T) {
	form := url.Values{
		"months_remaining":  {"12"},
		"physics_marks":     {" 55 "},
		"target_percentile": {"95"},
		"habits":            {"  pomodoro  "},
		"weaknesses":        {"organic chemistry"},
	}

	p, err := FromForm(form)
	if err != nil {
		t.Fatalf("FromForm() error = %v", err)
	}
	if p.MonthsRemaining != 12 {
		t.Errorf("MonthsRemaining = %d, want 12", p.MonthsRemaining)
	}
	if p.PhysicsMarks != 55 {
		t.Errorf("PhysicsMarks = %d, want 55", p.PhysicsMarks)
	}
	if p.ChemistryMarks != Default().ChemistryMarks {
		t.Errorf("ChemistryMarks = %d, want default", p.ChemistryMarks)
	}
	if p.TargetPercentile == nil || *p.TargetPercentile != 95 {
		t.Errorf("TargetPercentile = %v, want 95", p.TargetPercentile)
	}
	if p.Habits != "pomodoro" {
		t.Errorf("Habits = %q, want trimmed", p.Habits)
	}
	if !p.HasSWOT() {
		t.Error("HasSWOT() = false, want true")
	}
}

func TestFromForm_Errors(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
	}{
		{"non numeric", url.Values{"math_marks": {"abc"}}},
		{"out of range", url.Values{"months_remaining": {"48"}}},
		{"bad percentile", url.Values{"target_percentile": {"high"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromForm(tt.form)
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Fatalf("FromForm() = %v, want INVALID_REQUEST", err)
			}
		})
	}
}
