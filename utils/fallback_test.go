package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samh164/ptappv3/config"
	"github.com/samh164/ptappv3/models"
)

func TestGoalCategory(t *testing.T) {
	tests := []struct {
		goal string
		want string
	}{
		{"lose weight", GoalWeightLoss},
		{"Fat Loss", GoalWeightLoss},
		{"build muscle", GoalMuscleGain},
		{"Strength", GoalMuscleGain},
		{"stay healthy", GoalGeneral},
		{"", GoalGeneral},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GoalCategory(tt.goal), "goal %q", tt.goal)
	}
}

// The fallback is the last line of defense, so it must pass the validator with
// the production vocabulary for every combination of goal, diet and declared
// allergy.
func TestFallback_AlwaysPassesValidation(t *testing.T) {
	vocab, err := config.LoadVocabulary("../config/vocabulary.yaml")
	require.NoError(t, err)
	pv := NewPlanValidator(vocab)

	goals := []string{"lose weight", "build muscle", "general fitness"}
	diets := []string{"", "omnivore", "vegetarian", "vegan"}
	allergies := []string{"", "peanut", "nuts", "dairy", "gluten", "shellfish", "eggs", "soy",
		"peanut, dairy, gluten"}

	for _, goal := range goals {
		for _, diet := range diets {
			for _, allergy := range allergies {
				user := &models.User{Goal: goal, DietType: diet, Allergies: allergy}
				workout := FallbackWorkout(goal)
				meals := FallbackMeals(diet, goal)

				res := pv.Validate(workout, meals, user)
				assert.True(t, res.Valid,
					"goal=%q diet=%q allergy=%q: %v", goal, diet, allergy, res.Messages())
			}
		}
	}
}

func TestFallbackWorkout_GoalScaling(t *testing.T) {
	loss := FallbackWorkout("lose weight")
	gain := FallbackWorkout("build muscle")

	assert.Contains(t, loss, "12-15 reps")
	assert.Contains(t, gain, "8-12 reps")
	assert.NotEqual(t, loss, gain)
}

func TestFallbackMeals_DietSelection(t *testing.T) {
	vegan := FallbackMeals("vegan", "general")
	omni := FallbackMeals("", "general")

	assert.NotContains(t, vegan, "chicken")
	assert.NotContains(t, vegan, "turkey")
	assert.Contains(t, omni, "chicken")
}
