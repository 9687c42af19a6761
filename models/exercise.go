package models

import "gorm.io/gorm"

// Exercise is a cached descriptor from the remote exercise catalog.
type Exercise struct {
	gorm.Model
	ExternalID       string `gorm:"type:varchar(64);uniqueIndex;not null"`
	Name             string `gorm:"not null"`
	BodyPart         string `gorm:"index"`
	Target           string
	Equipment        string
	SecondaryMuscles string // comma-separated
	GifURL           string
}
