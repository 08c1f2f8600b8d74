// Package prompt turns preparation profiles and reviewer feedback into the
// instruction strings sent to the completion endpoint.
package prompt

import (
	"fmt"
	"strings"

	"github.com/hpungsan/roadmap/internal/errors"
	"github.com/hpungsan/roadmap/internal/profile"
)

// Variant selects one of the fixed generation templates.
type Variant string

const (
	VariantJEE        Variant = "jee"
	VariantPercentile Variant = "percentile"
	VariantSWOT       Variant = "swot"
)

// Variants lists every known variant in display order.
var Variants = []Variant{VariantJEE, VariantPercentile, VariantSWOT}

// defaultModels maps each variant to the model it was tuned against.
var defaultModels = map[Variant]string{
	VariantJEE:        "gemma2-9b-it",
	VariantPercentile: "llama-3.3-70b-versatile",
	VariantSWOT:       "llama-3.1-8b-instant",
}

// ParseVariant validates a variant name. Empty means VariantJEE.
func ParseVariant(s string) (Variant, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return VariantJEE, nil
	}
	v := Variant(s)
	if _, ok := defaultModels[v]; !ok {
		return "", errors.NewInvalidRequest(fmt.Sprintf("unknown variant %q (want jee, percentile or swot)", s))
	}
	return v, nil
}

// DefaultModel returns the model identifier the variant uses unless configured otherwise.
func (v Variant) DefaultModel() string {
	if m, ok := defaultModels[v]; ok {
		return m
	}
	return defaultModels[VariantJEE]
}

func (v Variant) String() string { return string(v) }

const jeeTemplate = `
I am a JEE aspirant. Prepare a roadmap for my study based on my provided content.
The roadmap should include:
1. Subject-wise information: How much time should I spend daily on each subject.
2. Focus area: Which subject should I focus on more.
3. Revision and mock tests: Include time for revision and mock tests.
4. Daily and weekly routines: Include daily and weekly routines.

My current details are: %s

Prepare the best roadmap using your full potential.
Generate detailed pointwise roadmap.
Display in proper format and include all aspects in roadmap that I have specified earlier.
Also give your suggestions at last.
`

const percentileTemplate = `
I am a JEE aspirant with a specific percentile goal. Prepare a study roadmap that gets me there from where I am now.
The roadmap should include:
1. Subject-wise daily hours, weighted towards the subjects pulling my percentile down.
2. Week-by-week milestones until the exam, with the syllabus share to finish each week.
3. Revision cycles and full-length mock tests, with how to analyse each mock.
4. Corrections to my current study habits and a realistic daily timetable.

My current details are: %s

Be concrete and pointwise. Use headings for each part of the roadmap.
End with the three most important changes I should make this week.
`

const swotTemplate = `
I am a JEE aspirant. Using my SWOT analysis and scores below, prepare a study roadmap.
The roadmap should include:
1. How to use my strengths to secure marks quickly.
2. A plan to close each weakness, subject by subject, with daily time allocation.
3. Opportunities to exploit (topics with high weightage, remaining months) and threats to guard against.
4. Revision, mock tests, and daily and weekly routines.

My current details are: %s

Generate a detailed pointwise roadmap in proper format covering every item above.
Also give your suggestions at last.
`

var templates = map[Variant]string{
	VariantJEE:        jeeTemplate,
	VariantPercentile: percentileTemplate,
	VariantSWOT:       swotTemplate,
}

// Build returns the generation instruction for a profile. It never fails;
// unknown variants fall back to the JEE template.
func Build(v Variant, p profile.PreparationProfile) string {
	tmpl, ok := templates[v]
	if !ok {
		tmpl = jeeTemplate
	}
	return fmt.Sprintf(tmpl, p.Details())
}

// Regenerate returns the instruction asking the model to revise an existing
// roadmap according to reviewer feedback.
func Regenerate(oldRoadmap, feedback string) string {
	return fmt.Sprintf(`
I am giving some changes to your old roadmap. Change it according to my suggestions.

Old Roadmap: %s
----------------------------------------------------
Changes: %s

Do not include any formality lines or introduction by your side.
Give the changed roadmap in the same format as the original roadmap.
`, oldRoadmap, feedback)
}
