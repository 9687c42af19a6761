package utils

import (
	"fmt"
	"strings"
)

// Goal categories for fallback parameterization.
const (
	GoalWeightLoss = "weight_loss"
	GoalMuscleGain = "muscle_gain"
	GoalGeneral    = "general"
)

// GoalCategory buckets a free-text goal into the three fallback categories.
func GoalCategory(goal string) string {
	g := strings.ToLower(goal)
	switch {
	case containsAnyOf(g, "loss", "lose", "cut", "lean", "slim"):
		return GoalWeightLoss
	case containsAnyOf(g, "muscle", "gain", "strength", "bulk", "hypertrophy"):
		return GoalMuscleGain
	default:
		return GoalGeneral
	}
}

func containsAnyOf(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

type fallbackExercise struct {
	name, weight, form, mistakes, cues string
}

// Static push/pull/legs selection. Rep and rest schemes come from the goal
// category; everything else is fixed, pre-vetted text.
var fallbackDays = []struct {
	title     string
	underline string
	exercises []fallbackExercise
}{
	{
		title:     "Day 1 - Push (Chest, Shoulders, Triceps)",
		underline: "--------------------------------------",
		exercises: []fallbackExercise{
			{"Barbell Press", "Moderate weight (60-70% of max)",
				"Lie on the bench, feet flat on the floor. Grip the bar slightly wider than shoulders, lower to the chest and press up.",
				"Arching the back, bouncing the bar off the chest, flaring the elbows.",
				"Drive through the chest, keep the shoulders pinned back."},
			{"Push-Ups", "Bodyweight",
				"Start in a plank, hands under shoulders. Lower the chest to the floor and push back up.",
				"Sagging hips, elbows flaring wide, half range of motion.",
				"Straight line from head to heels, brace the core."},
			{"Shoulder Press", "Moderate weight",
				"Seated or standing, press the dumbbells overhead to full extension.",
				"Arching the back, using leg drive, stopping short of lockout.",
				"Brace the core, feel the shoulders do the work."},
			{"Tricep Dips", "Bodyweight",
				"Hands on a bench behind you, lower by bending the elbows, then extend.",
				"Shoulders rising to the ears, shallow depth, flaring elbows.",
				"Elbows point straight back, keep tension on the triceps."},
			{"Incline Press", "Moderate weight",
				"Lie on an incline bench and press the dumbbells up from shoulder width.",
				"Bouncing the weights, uneven pressing, excessive arching.",
				"Squeeze at the top, control the descent."},
			{"Lateral Raises", "Light to moderate weight",
				"Stand with dumbbells at your sides and raise the arms to shoulder height.",
				"Swinging, raising above shoulder height, shrugging.",
				"Lead with the elbows, pour-the-pitcher wrist position."},
		},
	},
	{
		title:     "Day 2 - Pull (Back, Biceps)",
		underline: "--------------------------",
		exercises: []fallbackExercise{
			{"Pull-Ups", "Bodyweight, assisted if needed",
				"Hang from the bar with an overhand grip and pull until the chin clears the bar.",
				"Swinging, half reps, shrugged shoulders.",
				"Start the pull from the lats, elbows toward the floor."},
			{"Bent-Over Rows", "Moderate weight",
				"Hinge at the hips with a flat back and pull the weight to the lower ribs.",
				"Rounding the back, jerking the weight, no shoulder-blade squeeze.",
				"Squeeze the shoulder blades together, elbows close to the body."},
			{"Lat Pulldowns", "Moderate weight",
				"Seated, grip wider than shoulders and pull the bar to the upper chest.",
				"Leaning far back, pulling to the stomach, lifting the shoulders.",
				"Depress the shoulder blades before pulling."},
			{"Face Pulls", "Light to moderate weight",
				"Pull the rope attachment toward the face with external rotation.",
				"Too heavy, no external rotation, poor posture.",
				"Finish with thumbs pointing behind you."},
			{"Bicep Curls", "Moderate weight",
				"Stand with weights at the sides and curl with stationary elbows.",
				"Swinging, drifting elbows, half reps.",
				"Squeeze at the top, lower under control."},
			{"Rear Delt Flyes", "Light weight",
				"Bend at the waist and raise the weights out to the sides with a slight elbow bend.",
				"Too heavy, momentum, rounded upper back.",
				"Lead with the elbows, chest stays up."},
		},
	},
	{
		title:     "Day 3 - Legs",
		underline: "-----------",
		exercises: []fallbackExercise{
			{"Squats", "Moderate to heavy weight",
				"Feet shoulder-width apart, sit the hips down until the thighs are parallel, drive up through the heels.",
				"Knees collapsing inward, rising onto the toes, cutting depth.",
				"Chest up, knees tracking over the toes."},
			{"Romanian Deadlifts", "Moderate to heavy weight",
				"Stand tall, hinge at the hips with a slight knee bend and lower the weight along the legs.",
				"Rounding the back, squatting the movement, no hip hinge.",
				"Push the hips back, feel the hamstrings stretch."},
			{"Lunges", "Moderate weight or bodyweight",
				"Step forward, lower the back knee toward the floor, push through the front heel to return.",
				"Leaning forward, knee past the toes, wobbling.",
				"Torso upright, controlled tempo."},
			{"Leg Press", "Moderate to heavy weight",
				"Sit in the machine and press the platform away by extending knees and hips.",
				"Locking the knees, hips lifting off the seat, shallow reps.",
				"Press through the heels, back stays on the pad."},
			{"Calf Raises", "Moderate weight",
				"Stand on the edge of a platform, rise as high as possible, lower with control.",
				"Bouncing, short range of motion, leaning forward.",
				"Pause at the top, full stretch at the bottom."},
			{"Hamstring Curls", "Moderate weight",
				"Lie face down on the machine and curl the legs by bending the knees.",
				"Lifting the hips, swinging, incomplete flexion.",
				"Squeeze at peak contraction, slow negative."},
		},
	},
}

type repScheme struct {
	sets, reps, rest string
}

var fallbackSchemes = map[string]repScheme{
	GoalWeightLoss: {"3", "12-15 reps", "45-60 seconds"},
	GoalMuscleGain: {"4", "8-12 reps", "60-90 seconds"},
	GoalGeneral:    {"3", "10-12 reps", "60 seconds"},
}

// FallbackWorkout renders the deterministic workout template for a goal. It
// never calls a remote service and always satisfies the structural rules.
func FallbackWorkout(goal string) string {
	scheme := fallbackSchemes[GoalCategory(goal)]

	var b strings.Builder
	for _, day := range fallbackDays {
		b.WriteString(day.title + "\n")
		b.WriteString(day.underline + "\n")
		for i, ex := range day.exercises {
			fmt.Fprintf(&b, "%d. %s:\n", i+1, ex.name)
			fmt.Fprintf(&b, "   * Sets: %s sets\n", scheme.sets)
			fmt.Fprintf(&b, "   * Reps: %s\n", scheme.reps)
			fmt.Fprintf(&b, "   * Rest: %s\n", scheme.rest)
			fmt.Fprintf(&b, "   * Weight/Intensity: %s\n", ex.weight)
			fmt.Fprintf(&b, "   * Form: %s\n", ex.form)
			fmt.Fprintf(&b, "   * Common Mistakes: %s\n", ex.mistakes)
			fmt.Fprintf(&b, "   * Cues: %s\n", ex.cues)
			b.WriteString("\n")
		}
	}
	return b.String()
}

type fallbackMenu struct {
	breakfast, snack1, lunch, snack2, dinner string
}

// Both menus stay clear of every configured allergy group (no dairy, grains
// with gluten, seafood, eggs, soy or any nut product), so the rendered plan
// passes the safety check for any declared allergy set. The plant menu also
// satisfies the vegetarian and vegan exclusion lists.
var omnivoreMenu = fallbackMenu{
	breakfast: "Rice porridge with banana and cinnamon, plus sliced turkey",
	snack1:    "An apple with carrot sticks",
	lunch:     "Grilled chicken with rice and steamed broccoli, side salad with olive oil",
	snack2:    "Orange segments and a small portion of roasted chickpeas",
	dinner:    "Baked turkey with sweet potatoes and roasted zucchini",
}

var plantMenu = fallbackMenu{
	breakfast: "Quinoa porridge with banana and berries",
	snack1:    "An apple with carrot sticks",
	lunch:     "Lentil and vegetable stew with rice",
	snack2:    "Orange segments and a small portion of roasted chickpeas",
	dinner:    "Chickpea curry with potatoes and spinach, side salad with olive oil",
}

type calorieBand struct {
	breakfast, snack, lunch, dinner, total string
}

var fallbackCalories = map[string]calorieBand{
	GoalWeightLoss: {"300-400", "100-150", "400-500", "400-500", "1500-1700"},
	GoalMuscleGain: {"500-600", "200-250", "600-700", "600-700", "2400-2700"},
	GoalGeneral:    {"400-500", "150-200", "500-600", "500-600", "1800-2000"},
}

// FallbackMeals renders the deterministic meal template for a diet type and
// goal. Vegetarian and vegan diets get the plant menu; everyone else gets the
// omnivore menu.
func FallbackMeals(dietType, goal string) string {
	menu := omnivoreMenu
	diet := strings.ToLower(dietType)
	if strings.Contains(diet, "vegetarian") || strings.Contains(diet, "vegan") {
		menu = plantMenu
	}
	cal := fallbackCalories[GoalCategory(goal)]

	days := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	var b strings.Builder
	b.WriteString("# WEEKLY MEAL PLAN (PRE-APPROVED VERSION)\n\n")
	for _, day := range days {
		fmt.Fprintf(&b, "## %s\n\n", day)
		fmt.Fprintf(&b, "### Breakfast (%s calories)\n- %s\n\n", cal.breakfast, menu.breakfast)
		fmt.Fprintf(&b, "### Morning Snack (%s calories)\n- %s\n\n", cal.snack, menu.snack1)
		fmt.Fprintf(&b, "### Lunch (%s calories)\n- %s\n\n", cal.lunch, menu.lunch)
		fmt.Fprintf(&b, "### Afternoon Snack (%s calories)\n- %s\n\n", cal.snack, menu.snack2)
		fmt.Fprintf(&b, "### Dinner (%s calories)\n- %s\n\n", cal.dinner, menu.dinner)
		fmt.Fprintf(&b, "### Daily Totals\n- Calories: ~%s\n\n", cal.total)
	}
	return b.String()
}
