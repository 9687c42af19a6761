package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samh164/ptappv3/config"
	"github.com/samh164/ptappv3/models"
	"github.com/samh164/ptappv3/utils"
)

type scriptedLLM struct {
	mu      sync.Mutex
	replies []scriptedReply
	calls   int
	prompts []string
	block   chan struct{} // when set, Complete waits until closed
}

type scriptedReply struct {
	text string
	err  error
}

func (s *scriptedLLM) Complete(ctx context.Context, system, prompt string, temperature float64, maxTokens int) (string, error) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	i := s.calls
	s.calls++
	if i >= len(s.replies) {
		return "", ErrServerError
	}
	return s.replies[i].text, s.replies[i].err
}

func (s *scriptedLLM) Model() string { return "gpt-test" }

func generatorVocab() *config.Vocabulary {
	return &config.Vocabulary{
		AllergyGroups: map[string]config.AllergyGroup{
			"nuts":   {Terms: []string{"peanut", "almond", "nut"}, Related: []string{"nut butter"}},
			"peanut": {Terms: []string{"peanut"}, Related: []string{"peanut butter"}},
			"dairy":  {Terms: []string{"milk", "cheese", "butter"}},
		},
		DietExclusions: map[string][]string{
			"vegetarian": {"chicken", "turkey", "beef", "fish"},
		},
		Placeholders: []string{"[repeat format]", "etc. for remaining days"},
	}
}

func newTestGenerator(llm completionClient) *PlanGeneratorService {
	validator := utils.NewPlanValidator(generatorVocab())
	g := NewPlanGeneratorService(llm, nil, nil, validator, 3, 10*time.Millisecond)
	g.sleep = func(time.Duration) {}
	return g
}

func testUser() *models.User {
	u := &models.User{
		Username: "sam", Email: "sam@example.com",
		Sex: "male", Age: 30, HeightCm: 180, WeightKg: 82,
		Goal: "build muscle", ActivityLevel: "moderate",
		TrainingStyle: "gym", DietType: "omnivore",
		Onboarded: true,
	}
	u.ID = 7
	return u
}

// Model output that passes every structural check. The static templates are
// convenient valid documents.
func goodWorkout() string { return utils.FallbackWorkout("build muscle") }
func goodMeals() string   { return utils.FallbackMeals("omnivore", "build muscle") }

func TestGenerate_FirstAttemptSucceeds(t *testing.T) {
	llm := &scriptedLLM{replies: []scriptedReply{
		{text: goodWorkout()},
		{text: goodMeals()},
	}}
	g := newTestGenerator(llm)

	out, err := g.Generate(context.Background(), testUser(), ModeFirst)
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, models.PlanSourceModel, out.Source)
	assert.Equal(t, "gpt-test", out.ModelName)
	assert.Equal(t, 2, llm.calls)
	assert.Empty(t, out.Warnings)
}

func TestGenerate_CorrectiveFeedbackOnAllergen(t *testing.T) {
	user := testUser()
	user.Allergies = "peanut"

	unsafeMeals := strings.ReplaceAll(goodMeals(), "Grilled chicken", "Peanut chicken")
	llm := &scriptedLLM{replies: []scriptedReply{
		{text: goodWorkout()},
		{text: unsafeMeals}, // attempt 1: contains the allergen
		{text: goodMeals()}, // attempt 2: clean after feedback
	}}
	g := newTestGenerator(llm)

	out, err := g.Generate(context.Background(), user, ModeFirst)
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, models.PlanSourceModel, out.Source)
	require.Equal(t, 3, llm.calls)

	// The retry prompt names what went wrong.
	retry := llm.prompts[2]
	assert.Contains(t, retry, "PREVIOUS ATTEMPT ERRORS")
	assert.Contains(t, retry, "peanut")
}

// A peanut-allergic user gets "peanut butter toast" on the first try and
// "almond butter toast" on the second. Against the shipped vocabulary the
// first is rejected citing peanut and the second is accepted: a peanut
// allergy must not exclude almond.
func TestGenerate_PeanutRejectedAlmondAccepted(t *testing.T) {
	vocab, err := config.LoadVocabulary("../config/vocabulary.yaml")
	require.NoError(t, err)
	validator := utils.NewPlanValidator(vocab)

	user := testUser()
	user.Allergies = "peanut"

	base := goodMeals()
	llm := &scriptedLLM{replies: []scriptedReply{
		{text: goodWorkout()},
		{text: strings.ReplaceAll(base, "An apple with carrot sticks", "Peanut butter toast")},
		{text: strings.ReplaceAll(base, "An apple with carrot sticks", "Almond butter toast")},
	}}
	g := NewPlanGeneratorService(llm, nil, nil, validator, 3, time.Millisecond)
	g.sleep = func(time.Duration) {}

	out, err := g.Generate(context.Background(), user, ModeFirst)
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, models.PlanSourceModel, out.Source)
	assert.Contains(t, out.MealPlan, "Almond butter toast")
	assert.NotContains(t, strings.ToLower(out.MealPlan), "peanut")
	assert.Contains(t, llm.prompts[2], "peanut", "retry prompt names the violation")
}

func TestGenerate_TransientErrorsFallBack(t *testing.T) {
	llm := &scriptedLLM{replies: []scriptedReply{
		{err: ErrTimeout}, {err: ErrServerError}, {err: ErrRateLimited}, // workout attempts
		{err: ErrTimeout}, {err: ErrTimeout}, {err: ErrMalformedResponse}, // meal attempts
	}}
	validator := utils.NewPlanValidator(generatorVocab())
	g := NewPlanGeneratorService(llm, nil, nil, validator, 3, 10*time.Millisecond)

	var slept []time.Duration
	g.sleep = func(d time.Duration) { slept = append(slept, d) }

	out, err := g.Generate(context.Background(), testUser(), ModeFirst)
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, models.PlanSourceFallback, out.Source)
	assert.Empty(t, out.ModelName)
	assert.NotEmpty(t, out.Warnings)
	assert.NotEmpty(t, out.WorkoutPlan)
	assert.NotEmpty(t, out.MealPlan)

	// Exponential backoff between retries, none after the last attempt.
	assert.Equal(t, []time.Duration{
		10 * time.Millisecond, 20 * time.Millisecond,
		10 * time.Millisecond, 20 * time.Millisecond,
	}, slept)
}

func TestGenerate_ValidationExhaustionFallsBack(t *testing.T) {
	llm := &scriptedLLM{replies: []scriptedReply{
		{text: "too short"}, {text: "still bad"}, {text: "nope"}, // workout attempts
		{text: goodMeals()},
	}}
	g := newTestGenerator(llm)

	out, err := g.Generate(context.Background(), testUser(), ModeFirst)
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, out.Status)
	assert.Equal(t, models.PlanSourceFallback, out.Source)
	assert.Contains(t, out.WorkoutPlan, "Day 1")
}

func TestGenerate_AuthFailureSurfaces(t *testing.T) {
	llm := &scriptedLLM{replies: []scriptedReply{{err: ErrAuthFailed}}}
	g := newTestGenerator(llm)

	out, err := g.Generate(context.Background(), testUser(), ModeFirst)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.Equal(t, StatusAuthFailed, out.Status)
	assert.Equal(t, 1, llm.calls) // no retries on auth failures
}

func TestGenerate_QuotaExceededSurfaces(t *testing.T) {
	llm := &scriptedLLM{replies: []scriptedReply{{err: ErrQuotaExceeded}}}
	g := newTestGenerator(llm)

	out, err := g.Generate(context.Background(), testUser(), ModeFirst)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, StatusQuotaExceeded, out.Status)
}

func TestGenerate_InFlightGuard(t *testing.T) {
	block := make(chan struct{})
	llm := &scriptedLLM{
		replies: []scriptedReply{{text: goodWorkout()}, {text: goodMeals()}},
		block:   block,
	}
	g := newTestGenerator(llm)
	user := testUser()

	done := make(chan *Outcome, 1)
	go func() {
		out, _ := g.Generate(context.Background(), user, ModeFirst)
		done <- out
	}()

	// Wait for the first run to take the slot.
	require.Eventually(t, func() bool {
		g.mu.Lock()
		defer g.mu.Unlock()
		_, busy := g.inFlight[user.ID]
		return busy
	}, time.Second, 5*time.Millisecond)

	second, err := g.Generate(context.Background(), user, ModeFirst)
	require.NoError(t, err)
	assert.Equal(t, StatusInFlight, second.Status)

	close(block)
	first := <-done
	assert.Equal(t, StatusSuccess, first.Status)

	// Slot released; a new run is allowed again.
	llm.mu.Lock()
	llm.replies = append(llm.replies, scriptedReply{text: goodWorkout()}, scriptedReply{text: goodMeals()})
	llm.mu.Unlock()
	third, err := g.Generate(context.Background(), user, ModeFirst)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, third.Status)
}

type fakeHistory struct {
	plan  string
	trend string
}

func (f *fakeHistory) PreviousPlanSummary(ctx context.Context, userID uint) (string, error) {
	return f.plan, nil
}
func (f *fakeHistory) RecentTrendSummary(ctx context.Context, userID uint) (string, error) {
	return f.trend, nil
}

func TestGenerate_RegenerateIncludesHistory(t *testing.T) {
	llm := &scriptedLLM{replies: []scriptedReply{
		{text: goodWorkout()},
		{text: goodMeals()},
	}}
	validator := utils.NewPlanValidator(generatorVocab())
	history := &fakeHistory{plan: "- Week 1, source model", trend: "- Latest weight: 81.0 kg"}
	g := NewPlanGeneratorService(llm, nil, history, validator, 3, time.Millisecond)
	g.sleep = func(time.Duration) {}

	out, err := g.Generate(context.Background(), testUser(), ModeRegenerate)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, out.Status)

	assert.Contains(t, llm.prompts[0], "PREVIOUS PLAN SUMMARY")
	assert.Contains(t, llm.prompts[0], "Week 1")
	assert.Contains(t, llm.prompts[0], "RECENT PROGRESS")
	assert.Contains(t, llm.prompts[0], "NEXT week")
}

func TestGenerate_PromptCarriesProfile(t *testing.T) {
	llm := &scriptedLLM{replies: []scriptedReply{
		{text: goodWorkout()},
		{text: goodMeals()},
	}}
	g := newTestGenerator(llm)
	user := testUser()
	user.Allergies = "peanut,dairy"
	user.Injuries = "bad left knee"

	_, err := g.Generate(context.Background(), user, ModeFirst)
	require.NoError(t, err)

	workoutPrompt := llm.prompts[0]
	assert.Contains(t, workoutPrompt, "CLIENT PROFILE")
	assert.Contains(t, workoutPrompt, "build muscle")
	assert.Contains(t, workoutPrompt, "bad left knee")
	assert.Contains(t, workoutPrompt, "BMI")

	mealPrompt := llm.prompts[1]
	assert.Contains(t, mealPrompt, "peanut,dairy")
	assert.Contains(t, mealPrompt, "ABSOLUTE RULE")
}
