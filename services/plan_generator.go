package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samh164/ptappv3/models"
	"github.com/samh164/ptappv3/utils"
)

// GenerationMode selects the prompt template set.
type GenerationMode string

const (
	ModeFirst      GenerationMode = "first"
	ModeRegenerate GenerationMode = "regenerate"
)

// Outcome statuses. Only StatusSuccess carries plan text worth persisting.
const (
	StatusSuccess             = "success"
	StatusInFlight            = "in_flight"
	StatusAuthFailed          = "auth_failed"
	StatusQuotaExceeded       = "quota_exceeded"
	StatusValidationExhausted = "validation_exhausted"
)

// Outcome is the result of one generation run. The generator never writes to
// the database; persisting a successful outcome is the caller's job.
type Outcome struct {
	Status      string
	WorkoutPlan string
	MealPlan    string
	Source      string // models.PlanSourceModel | models.PlanSourceFallback
	ModelName   string
	Warnings    []string
}

type completionClient interface {
	Complete(ctx context.Context, system, prompt string, temperature float64, maxTokens int) (string, error)
	Model() string
}

type catalogSource interface {
	ByBodyPart(ctx context.Context, bodyPart string) ([]models.Exercise, error)
}

// historySource feeds regeneration prompts with what already happened.
type historySource interface {
	PreviousPlanSummary(ctx context.Context, userID uint) (string, error)
	RecentTrendSummary(ctx context.Context, userID uint) (string, error)
}

// PlanGeneratorService runs the full pipeline for one plan: build prompts,
// call the model with bounded retries and corrective feedback, fall back to
// the static templates when the model cannot deliver, and validate everything
// before handing it back.
type PlanGeneratorService struct {
	llm       completionClient
	catalog   catalogSource
	history   historySource
	validator *utils.PlanValidator

	maxAttempts int
	backoffBase time.Duration
	sleep       func(time.Duration)

	mu       sync.Mutex
	inFlight map[uint]struct{}
}

func NewPlanGeneratorService(llm completionClient, catalog catalogSource, history historySource, validator *utils.PlanValidator, maxAttempts int, backoffBase time.Duration) *PlanGeneratorService {
	return &PlanGeneratorService{
		llm:         llm,
		catalog:     catalog,
		history:     history,
		validator:   validator,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		sleep:       time.Sleep,
		inFlight:    make(map[uint]struct{}),
	}
}

// Generate runs one generation for the user. A second call for the same user
// while one is running returns StatusInFlight immediately.
func (g *PlanGeneratorService) Generate(ctx context.Context, user *models.User, mode GenerationMode) (*Outcome, error) {
	g.mu.Lock()
	if _, busy := g.inFlight[user.ID]; busy {
		g.mu.Unlock()
		return &Outcome{Status: StatusInFlight}, nil
	}
	g.inFlight[user.ID] = struct{}{}
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		delete(g.inFlight, user.ID)
		g.mu.Unlock()
	}()

	profile := g.profileBlock(user)
	historyBlock := ""
	if mode == ModeRegenerate && g.history != nil {
		historyBlock = g.historyBlock(ctx, user.ID)
	}

	var warnings []string

	workout, src1, err := g.generateSection(ctx, sectionWorkout, user, profile, historyBlock, mode)
	if err != nil {
		return g.failureOutcome(err)
	}
	meals, src2, err := g.generateSection(ctx, sectionMeals, user, profile, historyBlock, mode)
	if err != nil {
		return g.failureOutcome(err)
	}

	source := models.PlanSourceModel
	if src1 == models.PlanSourceFallback || src2 == models.PlanSourceFallback {
		source = models.PlanSourceFallback
		warnings = append(warnings, "one or more sections use the pre-approved fallback template")
	}

	// Final gate over the combined document. The per-section loops already
	// validated each part; this catches a fallback that somehow conflicts
	// with the profile, which must never be persisted.
	result := g.validator.Validate(workout, meals, user)
	if result.HasSafetyViolation() {
		return &Outcome{Status: StatusValidationExhausted, Warnings: result.Messages()}, nil
	}

	modelName := ""
	if source == models.PlanSourceModel {
		modelName = g.llm.Model()
	}
	return &Outcome{
		Status:      StatusSuccess,
		WorkoutPlan: workout,
		MealPlan:    meals,
		Source:      source,
		ModelName:   modelName,
		Warnings:    warnings,
	}, nil
}

func (g *PlanGeneratorService) failureOutcome(err error) (*Outcome, error) {
	switch {
	case errors.Is(err, ErrAuthFailed):
		return &Outcome{Status: StatusAuthFailed}, err
	case errors.Is(err, ErrQuotaExceeded):
		return &Outcome{Status: StatusQuotaExceeded}, err
	default:
		return nil, err
	}
}

type section struct {
	name     string
	system   string
	validate func(g *PlanGeneratorService, text string, user *models.User) []utils.Violation
	fallback func(user *models.User) string
}

var sectionWorkout = section{
	name: "workout",
	system: "You are a certified personal trainer. Produce exactly the format requested, " +
		"fully written out for every day and every exercise. Never abbreviate with placeholders.",
	validate: func(g *PlanGeneratorService, text string, _ *models.User) []utils.Violation {
		return g.validator.ValidateWorkout(text)
	},
	fallback: func(u *models.User) string { return utils.FallbackWorkout(u.Goal) },
}

var sectionMeals = section{
	name: "meals",
	system: "You are a registered dietitian. Produce exactly the format requested for all seven days. " +
		"Strictly avoid every listed allergen and restricted food. Never abbreviate with placeholders.",
	validate: func(g *PlanGeneratorService, text string, u *models.User) []utils.Violation {
		return g.validator.ValidateMeals(text, u)
	},
	fallback: func(u *models.User) string { return utils.FallbackMeals(u.DietType, u.Goal) },
}

// generateSection runs the bounded attempt loop for one plan section. Model
// output that fails validation feeds the violation list back into the next
// prompt. Transient transport errors burn an attempt after a backoff. When
// attempts run out the static fallback takes over.
func (g *PlanGeneratorService) generateSection(ctx context.Context, sec section, user *models.User, profile, history string, mode GenerationMode) (string, string, error) {
	base := g.buildPrompt(ctx, sec, user, profile, history, mode)

	var feedback []string
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		prompt := base
		if len(feedback) > 0 {
			prompt += "\n\nPREVIOUS ATTEMPT ERRORS (fix every one of these):\n- " +
				strings.Join(feedback, "\n- ")
		}

		text, err := g.llm.Complete(ctx, sec.system, prompt, 0.7, 3000)
		if err != nil {
			if errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrQuotaExceeded) {
				return "", "", err
			}
			// Timeout, rate limit, server error or garbage response: wait
			// and burn the attempt.
			if attempt < g.maxAttempts {
				g.sleep(g.backoff(attempt))
			}
			continue
		}

		violations := sec.validate(g, text, user)
		if len(violations) == 0 {
			return text, models.PlanSourceModel, nil
		}
		for _, v := range violations {
			feedback = append(feedback, v.Message)
		}
	}

	fb := sec.fallback(user)
	return fb, models.PlanSourceFallback, nil
}

func (g *PlanGeneratorService) backoff(attempt int) time.Duration {
	d := g.backoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

var workoutBodyParts = map[string][]string{
	"bodyweight":   {"chest", "back", "upper legs"},
	"calisthenics": {"chest", "back", "upper legs"},
	"home":         {"chest", "back", "upper legs"},
	"gym":          {"chest", "back", "upper legs", "shoulders"},
	"strength":     {"chest", "back", "upper legs", "shoulders"},
}

func (g *PlanGeneratorService) buildPrompt(ctx context.Context, sec section, user *models.User, profile, history string, mode GenerationMode) string {
	var b strings.Builder
	b.WriteString(profile)
	if history != "" {
		b.WriteString("\n" + history)
	}

	switch sec.name {
	case "workout":
		if names := g.catalogNames(ctx, user.TrainingStyle); names != "" {
			b.WriteString("\nPrefer drawing exercises from this catalog selection: " + names + "\n")
		}
		b.WriteString(workoutTemplate(mode))
	case "meals":
		b.WriteString(mealTemplate(mode, user))
	}
	return b.String()
}

// catalogNames samples a handful of catalog exercises per relevant body part.
// The catalog is advisory; any failure just leaves the prompt unenriched.
func (g *PlanGeneratorService) catalogNames(ctx context.Context, trainingStyle string) string {
	if g.catalog == nil {
		return ""
	}
	parts, ok := workoutBodyParts[strings.ToLower(trainingStyle)]
	if !ok {
		parts = []string{"chest", "back", "upper legs"}
	}
	var names []string
	for _, p := range parts {
		items, err := g.catalog.ByBodyPart(ctx, p)
		if err != nil {
			continue
		}
		for i, it := range items {
			if i >= 4 {
				break
			}
			names = append(names, it.Name)
		}
	}
	return strings.Join(names, ", ")
}

func (g *PlanGeneratorService) profileBlock(user *models.User) string {
	var b strings.Builder
	b.WriteString("CLIENT PROFILE:\n")
	fmt.Fprintf(&b, "- Sex: %s, Age: %d\n", orUnknown(user.Sex), user.Age)
	fmt.Fprintf(&b, "- Height: %.0f cm, Weight: %.1f kg\n", user.HeightCm, user.WeightKg)
	if bmi, err := utils.CalculateBMI(user.HeightCm, user.WeightKg); err == nil {
		fmt.Fprintf(&b, "- BMI: %.1f (%s)\n", bmi, utils.BMICategory(bmi))
	}
	fmt.Fprintf(&b, "- Goal: %s\n", orUnknown(user.Goal))
	fmt.Fprintf(&b, "- Activity level: %s\n", orUnknown(user.ActivityLevel))
	fmt.Fprintf(&b, "- Training style: %s\n", orUnknown(user.TrainingStyle))
	fmt.Fprintf(&b, "- Diet type: %s\n", orUnknown(user.DietType))
	if user.Allergies != "" {
		fmt.Fprintf(&b, "- ALLERGIES (must never appear in any meal): %s\n", user.Allergies)
	}
	if user.DislikedFoods != "" {
		fmt.Fprintf(&b, "- Disliked foods (avoid): %s\n", user.DislikedFoods)
	}
	if user.Injuries != "" {
		fmt.Fprintf(&b, "- Injuries/limitations (work around these): %s\n", user.Injuries)
	}
	return b.String()
}

func (g *PlanGeneratorService) historyBlock(ctx context.Context, userID uint) string {
	var b strings.Builder
	if prev, err := g.history.PreviousPlanSummary(ctx, userID); err == nil && prev != "" {
		b.WriteString("PREVIOUS PLAN SUMMARY:\n" + prev + "\n")
	}
	if trend, err := g.history.RecentTrendSummary(ctx, userID); err == nil && trend != "" {
		b.WriteString("RECENT PROGRESS:\n" + trend + "\n")
	}
	if b.Len() > 0 {
		b.WriteString("Adjust the new plan based on this history: progress what went well, change what did not.\n")
	}
	return b.String()
}

func workoutTemplate(mode GenerationMode) string {
	intro := "\nCreate a 3-day workout plan for this client."
	if mode == ModeRegenerate {
		intro = "\nCreate the NEXT week's 3-day workout plan for this client, progressing from the history above."
	}
	return intro + `

FORMAT (follow exactly, write out every day in full):

Day 1 - <focus>
--------------
1. <Exercise Name>:
   * Sets: <number> sets
   * Reps: <rep range>
   * Rest: <rest period>
   * Weight/Intensity: <guidance>
   * Form: <2-3 sentence description>
   * Common Mistakes: <list>
   * Cues: <short coaching cues>

Repeat the numbered block for at least 5 exercises per day, and produce
Day 1, Day 2 and Day 3 sections. Write every exercise out in full.`
}

func mealTemplate(mode GenerationMode, user *models.User) string {
	intro := "\nCreate a 7-day meal plan for this client."
	if mode == ModeRegenerate {
		intro = "\nCreate the NEXT week's 7-day meal plan for this client, varied from the previous week."
	}
	restrictions := ""
	if user.Allergies != "" {
		restrictions = fmt.Sprintf("\nABSOLUTE RULE: no meal may contain or be derived from: %s.", user.Allergies)
	}
	return intro + restrictions + `

FORMAT (follow exactly, all seven days written out in full):

## Monday

### Breakfast (<calories> calories)
- <meal description>

### Morning Snack (<calories> calories)
- <snack>

### Lunch (<calories> calories)
- <meal description>

### Afternoon Snack (<calories> calories)
- <snack>

### Dinner (<calories> calories)
- <meal description>

### Daily Totals
- Calories: ~<total>

Repeat for Monday through Sunday. Never write "repeat" or use placeholders.`
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unspecified"
	}
	return s
}
