package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/hpungsan/roadmap/internal/errors"
	"github.com/hpungsan/roadmap/internal/profile"
)

func TestBuild_ScenarioValues(t *testing.T) {
	p := profile.PreparationProfile{
		MonthsRemaining:   6,
		PhysicsMarks:      80,
		ChemistryMarks:    70,
		MathMarks:         65,
		PhysicsSyllabus:   69,
		ChemistrySyllabus: 80,
		MathSyllabus:      70,
	}

	got := Build(VariantJEE, p)
	for _, want := range []string{"6", "80", "70", "65", "69"} {
		if !strings.Contains(got, want) {
			t.Errorf("Build() missing %q", want)
		}
	}
	if !strings.Contains(got, "I am a JEE aspirant") {
		t.Error("Build() should use the JEE template")
	}
}

func TestBuild_EveryVariantEmbedsEveryField(t *testing.T) {
	target := 97
	p := profile.PreparationProfile{
		MonthsRemaining:   17,
		PhysicsMarks:      41,
		ChemistryMarks:    52,
		MathMarks:         63,
		PhysicsSyllabus:   74,
		ChemistrySyllabus: 85,
		MathSyllabus:      96,
		TargetPercentile:  &target,
		Habits:            "revises on weekends",
		Strengths:         "mechanics",
		Weaknesses:        "inorganic",
		Opportunities:     "crash course",
		Threats:           "phone",
	}
	literals := []string{"17", "41", "52", "63", "74", "85", "96", "97",
		"revises on weekends", "mechanics", "inorganic", "crash course", "phone"}

	for _, v := range Variants {
		t.Run(string(v), func(t *testing.T) {
			got := Build(v, p)
			if strings.TrimSpace(got) == "" {
				t.Fatal("Build() returned empty prompt")
			}
			for _, want := range literals {
				if !strings.Contains(got, want) {
					t.Errorf("Build(%s) missing %q", v, want)
				}
			}
		})
	}
}

func TestBuild_AllValidMonthValues(t *testing.T) {
	for m := profile.MinMonths; m <= profile.MaxMonths; m++ {
		p := profile.Default()
		p.MonthsRemaining = m
		if got := Build(VariantJEE, p); !strings.Contains(got, fmt.Sprintf("I have %d months", m)) {
			t.Errorf("months=%d not embedded", m)
		}
	}
}

func TestBuild_UnknownVariantFallsBack(t *testing.T) {
	got := Build(Variant("nope"), profile.Default())
	if got != Build(VariantJEE, profile.Default()) {
		t.Error("unknown variant should fall back to the JEE template")
	}
}

func TestRegenerate(t *testing.T) {
	got := Regenerate("OLD", "add more physics")

	for _, want := range []string{"OLD", "add more physics", "Do not include any formality lines", "same format as the original roadmap"} {
		if !strings.Contains(got, want) {
			t.Errorf("Regenerate() missing %q", want)
		}
	}
	if strings.Index(got, "OLD") > strings.Index(got, "add more physics") {
		t.Error("old roadmap should precede the requested changes")
	}
}

func TestParseVariant(t *testing.T) {
	tests := []struct {
		in      string
		want    Variant
		wantErr bool
	}{
		{"", VariantJEE, false},
		{"jee", VariantJEE, false},
		{" SWOT ", VariantSWOT, false},
		{"percentile", VariantPercentile, false},
		{"neet", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVariant(tt.in)
			if tt.wantErr {
				if !errors.Is(err, errors.ErrInvalidRequest) {
					t.Fatalf("ParseVariant(%q) error = %v, want INVALID_REQUEST", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseVariant(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseVariant(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDefaultModel(t *testing.T) {
	if VariantJEE.DefaultModel() != "gemma2-9b-it" {
		t.Errorf("jee model = %q", VariantJEE.DefaultModel())
	}
	seen := map[string]bool{}
	for _, v := range Variants {
		seen[v.DefaultModel()] = true
	}
	if len(seen) != len(Variants) {
		t.Error("each variant should have a distinct default model")
	}
}
