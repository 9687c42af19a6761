package models

import (
	"time"

	"gorm.io/gorm"
)

// JournalEntry is a weekly check-in: weight plus adherence and mood notes.
type JournalEntry struct {
	gorm.Model
	UserID    uint      `gorm:"index;not null"`
	EntryDate time.Time `gorm:"index;not null"`

	WeightKg         float64
	Mood             string
	Energy           string
	WorkoutAdherence int // percent
	DietAdherence    int // percent
	Notes            string `gorm:"type:text"`
}
