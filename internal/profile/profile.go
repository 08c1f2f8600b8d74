// Package profile holds the student's preparation metrics collected from the
// form, CLI flags or tool arguments. Profiles live for one request only.
package profile

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/hpungsan/roadmap/internal/errors"
)

// Field bounds enforced by the input widgets.
const (
	MinMonths  = 1
	MaxMonths  = 24
	MinPercent = 0
	MaxPercent = 100
)

// PreparationProfile describes where a student stands in their preparation.
type PreparationProfile struct {
	MonthsRemaining int `json:"months_remaining" jsonschema:"minimum=1,maximum=24,description=Months left until the exam"`

	PhysicsMarks   int `json:"physics_marks" jsonschema:"minimum=0,maximum=100,description=Latest Physics marks out of 100"`
	ChemistryMarks int `json:"chemistry_marks" jsonschema:"minimum=0,maximum=100,description=Latest Chemistry marks out of 100"`
	MathMarks      int `json:"math_marks" jsonschema:"minimum=0,maximum=100,description=Latest Mathematics marks out of 100"`

	PhysicsSyllabus   int `json:"physics_syllabus" jsonschema:"minimum=0,maximum=100,description=Physics syllabus completed (percent)"`
	ChemistrySyllabus int `json:"chemistry_syllabus" jsonschema:"minimum=0,maximum=100,description=Chemistry syllabus completed (percent)"`
	MathSyllabus      int `json:"math_syllabus" jsonschema:"minimum=0,maximum=100,description=Mathematics syllabus completed (percent)"`

	TargetPercentile *int   `json:"target_percentile,omitempty" jsonschema:"minimum=0,maximum=100,description=Percentile the student is aiming for"`
	Habits           string `json:"habits,omitempty" jsonschema:"description=Current study habits in free text"`

	Strengths     string `json:"strengths,omitempty" jsonschema:"description=SWOT: strengths"`
	Weaknesses    string `json:"weaknesses,omitempty" jsonschema:"description=SWOT: weaknesses"`
	Opportunities string `json:"opportunities,omitempty" jsonschema:"description=SWOT: opportunities"`
	Threats       string `json:"threats,omitempty" jsonschema:"description=SWOT: threats"`
}

// Default returns the values the input widgets start with.
func Default() PreparationProfile {
	return PreparationProfile{
		MonthsRemaining:   6,
		PhysicsMarks:      80,
		ChemistryMarks:    70,
		MathMarks:         65,
		PhysicsSyllabus:   69,
		ChemistrySyllabus: 80,
		MathSyllabus:      70,
	}
}

// Validate checks every numeric field against its widget range.
func (p PreparationProfile) Validate() error {
	if p.MonthsRemaining < MinMonths || p.MonthsRemaining > MaxMonths {
		return errors.NewOutOfRange("months_remaining", p.MonthsRemaining, MinMonths, MaxMonths)
	}
	for _, f := range p.percentFields() {
		if f.value < MinPercent || f.value > MaxPercent {
			return errors.NewOutOfRange(f.name, f.value, MinPercent, MaxPercent)
		}
	}
	if p.TargetPercentile != nil && (*p.TargetPercentile < MinPercent || *p.TargetPercentile > MaxPercent) {
		return errors.NewOutOfRange("target_percentile", *p.TargetPercentile, MinPercent, MaxPercent)
	}
	return nil
}

type intField struct {
	name  string
	value int
}

func (p PreparationProfile) percentFields() []intField {
	return []intField{
		{"physics_marks", p.PhysicsMarks},
		{"chemistry_marks", p.ChemistryMarks},
		{"math_marks", p.MathMarks},
		{"physics_syllabus", p.PhysicsSyllabus},
		{"chemistry_syllabus", p.ChemistrySyllabus},
		{"math_syllabus", p.MathSyllabus},
	}
}

// HasSWOT reports whether any SWOT field was filled in.
func (p PreparationProfile) HasSWOT() bool {
	return p.Strengths != "" || p.Weaknesses != "" || p.Opportunities != "" || p.Threats != ""
}

// Details renders the profile as the first-person description sent to the model.
func (p PreparationProfile) Details() string {
	var b strings.Builder
	fmt.Fprintf(&b, "I have %d months for preparation. My marks are: ", p.MonthsRemaining)
	fmt.Fprintf(&b, "Physics = %d, Chemistry = %d, Mathematics = %d. ", p.PhysicsMarks, p.ChemistryMarks, p.MathMarks)
	fmt.Fprintf(&b, "My syllabus completion is: Physics = %d%%, Chemistry = %d%%, Mathematics = %d%%. ",
		p.PhysicsSyllabus, p.ChemistrySyllabus, p.MathSyllabus)

	if p.TargetPercentile != nil {
		fmt.Fprintf(&b, "My target percentile is %d. ", *p.TargetPercentile)
	}
	if p.Habits != "" {
		fmt.Fprintf(&b, "My current study habits: %s. ", p.Habits)
	}
	if p.HasSWOT() {
		b.WriteString("My SWOT analysis is: ")
		fmt.Fprintf(&b, "Strengths = %s; Weaknesses = %s; Opportunities = %s; Threats = %s. ",
			orNone(p.Strengths), orNone(p.Weaknesses), orNone(p.Opportunities), orNone(p.Threats))
	}

	b.WriteString("Generate a roadmap accordingly.")
	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return "none given"
	}
	return s
}

// FromForm builds a profile from submitted form values.
// Missing numeric fields keep their default; malformed or out-of-range
// values are rejected.
func FromForm(form url.Values) (PreparationProfile, error) {
	p := Default()

	ints := []struct {
		name string
		dst  *int
	}{
		{"months_remaining", &p.MonthsRemaining},
		{"physics_marks", &p.PhysicsMarks},
		{"chemistry_marks", &p.ChemistryMarks},
		{"math_marks", &p.MathMarks},
		{"physics_syllabus", &p.PhysicsSyllabus},
		{"chemistry_syllabus", &p.ChemistrySyllabus},
		{"math_syllabus", &p.MathSyllabus},
	}
	for _, f := range ints {
		raw := strings.TrimSpace(form.Get(f.name))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return p, errors.NewInvalidRequest(fmt.Sprintf("%s must be an integer", f.name))
		}
		*f.dst = v
	}

	if raw := strings.TrimSpace(form.Get("target_percentile")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return p, errors.NewInvalidRequest("target_percentile must be an integer")
		}
		p.TargetPercentile = &v
	}

	p.Habits = strings.TrimSpace(form.Get("habits"))
	p.Strengths = strings.TrimSpace(form.Get("strengths"))
	p.Weaknesses = strings.TrimSpace(form.Get("weaknesses"))
	p.Opportunities = strings.TrimSpace(form.Get("opportunities"))
	p.Threats = strings.TrimSpace(form.Get("threats"))

	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}
