package models

import (
	"gorm.io/gorm"
)

// User is the root aggregate: plans and journal entries belong to exactly one
// user and are removed with it.
type User struct {
	gorm.Model
	PublicID string `gorm:"type:varchar(36);uniqueIndex;not null"`
	Username string `gorm:"uniqueIndex;not null"`
	Email    string `gorm:"uniqueIndex;not null"`
	Password string `gorm:"not null"`

	Sex           string
	Age           int
	HeightCm      float64
	WeightKg      float64
	Goal          string
	ActivityLevel string
	TrainingStyle string
	DietType      string

	Allergies     string `gorm:"type:text"` // comma-separated allergy tags
	DislikedFoods string `gorm:"type:text"` // comma-separated food tags
	Injuries      string `gorm:"type:text"` // comma-separated limitation tags

	Onboarded bool

	Plans   []Plan         `gorm:"constraint:OnDelete:CASCADE"`
	Journal []JournalEntry `gorm:"constraint:OnDelete:CASCADE"`
}
