package models

import (
	"gorm.io/gorm"
)

// Plan source values.
const (
	PlanSourceModel    = "model"
	PlanSourceFallback = "fallback"
)

// Plan is one generated workout+meal document. Plans are immutable once saved;
// regeneration inserts a new row and "latest" is the one with the newest
// CreatedAt (ties broken by ID).
type Plan struct {
	gorm.Model
	UserID    uint `gorm:"index;not null"`
	WeekIndex int  `gorm:"not null"`

	WorkoutPlan string `gorm:"type:text;not null"`
	MealPlan    string `gorm:"type:text;not null"`

	Source    string `gorm:"size:20;not null"` // "model" | "fallback"
	ModelName string `gorm:"size:64"`

	// Profile snapshot at generation time, for prompt context on later
	// regenerations even if the profile has changed since.
	Goal          string
	WeightKg      float64
	TrainingStyle string
	DietType      string
}
