package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/samh164/ptappv3/config"
	"github.com/samh164/ptappv3/models"
)

// ViolationKind separates hard safety failures from formatting problems. Both
// block persistence, but only safety violations are unrecoverable for a given
// text: a structure problem can be fixed by the model on the next attempt.
type ViolationKind string

const (
	Structure ViolationKind = "structure"
	Safety    ViolationKind = "safety"
)

// Violation is one concrete finding in a generated plan.
type Violation struct {
	Code    string        `json:"code"`
	Kind    ViolationKind `json:"kind"`
	Message string        `json:"message"`
}

// ValidationResult carries every violation found, not just the first, so the
// orchestrator can name all of them in its corrective prompt.
type ValidationResult struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations,omitempty"`
}

func (r ValidationResult) Messages() []string {
	out := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		out = append(out, v.Message)
	}
	return out
}

func (r ValidationResult) HasSafetyViolation() bool {
	for _, v := range r.Violations {
		if v.Kind == Safety {
			return true
		}
	}
	return false
}

// PlanValidator checks generated plan text against structural rules and the
// user's declared restrictions. Term matching is word-bounded so "nut" does
// not flag "nutrition", and otherwise errs on the side of flagging too much.
type PlanValidator struct {
	vocab    *config.Vocabulary
	patterns map[string]*regexp.Regexp
}

func NewPlanValidator(vocab *config.Vocabulary) *PlanValidator {
	pv := &PlanValidator{
		vocab:    vocab,
		patterns: make(map[string]*regexp.Regexp),
	}
	for name := range vocab.AllergyGroups {
		for _, term := range vocab.GroupTerms(name) {
			pv.compile(term)
		}
	}
	for _, terms := range vocab.DietExclusions {
		for _, term := range terms {
			pv.compile(term)
		}
	}
	return pv
}

func (pv *PlanValidator) compile(term string) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return
	}
	if _, ok := pv.patterns[term]; ok {
		return
	}
	pv.patterns[term] = regexp.MustCompile(`\b` + regexp.QuoteMeta(term) + `\b`)
}

func (pv *PlanValidator) matches(text, term string) bool {
	p, ok := pv.patterns[strings.ToLower(term)]
	if !ok {
		// Term not seen at construction (vocabulary edited at runtime in
		// tests); fall back to a plain substring check, the conservative side.
		return strings.Contains(text, strings.ToLower(term))
	}
	return p.MatchString(text)
}

// Validate runs the full structural and safety check over both plan sections.
func (pv *PlanValidator) Validate(workout, meals string, user *models.User) ValidationResult {
	var vs []Violation
	vs = append(vs, pv.ValidateWorkout(workout)...)
	vs = append(vs, pv.ValidateMeals(meals, user)...)
	return ValidationResult{Valid: len(vs) == 0, Violations: vs}
}

var exerciseLine = regexp.MustCompile(`(?m)^\s*[1-9]\.\s+.+:\s*$`)

// ValidateWorkout checks the workout section: three labelled days, numbered
// exercises ending in a colon, the per-exercise detail fields filled in, and
// no leftover template placeholders.
func (pv *PlanValidator) ValidateWorkout(text string) []Violation {
	var vs []Violation

	if len(strings.TrimSpace(text)) < 100 {
		return []Violation{{
			Code:    "workout_too_short",
			Kind:    Structure,
			Message: "workout section is empty or too short",
		}}
	}

	vs = append(vs, pv.placeholderViolations(text, "workout")...)

	for _, day := range []string{"Day 1", "Day 2", "Day 3"} {
		if !strings.Contains(text, day) {
			vs = append(vs, Violation{
				Code:    "workout_missing_day",
				Kind:    Structure,
				Message: fmt.Sprintf("missing %s section in workout plan", day),
			})
		}
	}

	days := splitSections(text, []string{"Day 1", "Day 2", "Day 3"})
	for label, section := range days {
		lines := exerciseLine.FindAllString(section, -1)
		if len(lines) < 3 {
			vs = append(vs, Violation{
				Code: "workout_too_few_exercises",
				Kind: Structure,
				Message: fmt.Sprintf("%s lists %d numbered exercises, expected at least 3",
					label, len(lines)),
			})
			continue
		}
		for _, field := range []string{"* Sets:", "* Reps:", "* Form:"} {
			vs = append(vs, checkField(section, label, field)...)
		}
	}

	return vs
}

// ValidateMeals checks the meal section: all seven days with breakfast, lunch
// and dinner, no placeholders, and — the safety-critical part — no term from
// any allergy group the user declared and no food excluded by their diet.
func (pv *PlanValidator) ValidateMeals(text string, user *models.User) []Violation {
	var vs []Violation

	if len(strings.TrimSpace(text)) < 100 {
		return []Violation{{
			Code:    "meals_too_short",
			Kind:    Structure,
			Message: "meal section is empty or too short",
		}}
	}

	vs = append(vs, pv.placeholderViolations(text, "meal")...)

	weekdays := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	for _, day := range weekdays {
		if !strings.Contains(text, day) {
			vs = append(vs, Violation{
				Code:    "meals_missing_day",
				Kind:    Structure,
				Message: fmt.Sprintf("missing %s in meal plan", day),
			})
		}
	}
	for label, section := range splitSections(text, weekdays) {
		lower := strings.ToLower(section)
		for _, meal := range []string{"breakfast", "lunch", "dinner"} {
			if !strings.Contains(lower, meal) {
				vs = append(vs, Violation{
					Code:    "meals_missing_meal",
					Kind:    Structure,
					Message: fmt.Sprintf("%s has no %s entry", label, meal),
				})
			}
		}
	}

	vs = append(vs, pv.SafetyViolations(text, user)...)
	return vs
}

// SafetyViolations scans text for declared-allergen and diet-excluded terms.
// A profile with no declared allergies never produces allergen findings.
func (pv *PlanValidator) SafetyViolations(text string, user *models.User) []Violation {
	var vs []Violation
	lower := strings.ToLower(text)

	seen := map[string]bool{}
	for _, group := range pv.vocab.GroupsFor(user.Allergies) {
		for _, term := range pv.vocab.GroupTerms(group) {
			term = strings.ToLower(term)
			if seen[term] || !pv.matches(lower, term) {
				continue
			}
			seen[term] = true
			vs = append(vs, Violation{
				Code:    "allergen_match",
				Kind:    Safety,
				Message: fmt.Sprintf("contains %q, excluded by the %s allergy", term, group),
			})
		}
	}

	for _, term := range pv.vocab.ExclusionsFor(user.DietType) {
		term = strings.ToLower(term)
		if seen[term] || !pv.matches(lower, term) {
			continue
		}
		seen[term] = true
		vs = append(vs, Violation{
			Code:    "diet_violation",
			Kind:    Safety,
			Message: fmt.Sprintf("contains %q, not allowed on a %s diet", term, strings.ToLower(user.DietType)),
		})
	}

	return vs
}

func (pv *PlanValidator) placeholderViolations(text, section string) []Violation {
	var vs []Violation
	lower := strings.ToLower(text)
	for _, ph := range pv.vocab.Placeholders {
		if strings.Contains(lower, strings.ToLower(ph)) {
			vs = append(vs, Violation{
				Code:    "placeholder_text",
				Kind:    Structure,
				Message: fmt.Sprintf("%s plan contains unresolved placeholder %q", section, ph),
			})
		}
	}
	return vs
}

// splitSections slices text into the chunks that follow each marker, keyed by
// marker. A chunk runs until the next marker or end of text.
func splitSections(text string, markers []string) map[string]string {
	type pos struct {
		label string
		at    int
	}
	var found []pos
	for _, m := range markers {
		if i := strings.Index(text, m); i >= 0 {
			found = append(found, pos{m, i})
		}
	}
	out := make(map[string]string, len(found))
	for _, p := range found {
		end := len(text)
		for _, q := range found {
			if q.at > p.at && q.at < end {
				end = q.at
			}
		}
		out[p.label] = text[p.at:end]
	}
	return out
}

func checkField(section, label, field string) []Violation {
	if !strings.Contains(section, field) {
		return []Violation{{
			Code:    "workout_missing_field",
			Kind:    Structure,
			Message: fmt.Sprintf("%s is missing the %q field", label, strings.Trim(field, "* :")),
		}}
	}
	for _, line := range strings.Split(section, "\n") {
		if idx := strings.Index(line, field); idx >= 0 {
			value := strings.TrimSpace(line[idx+len(field):])
			if value == "" {
				return []Violation{{
					Code:    "workout_empty_field",
					Kind:    Structure,
					Message: fmt.Sprintf("%s has an empty %q value", label, strings.Trim(field, "* :")),
				}}
			}
		}
	}
	return nil
}
