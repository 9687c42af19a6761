package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/samh164/ptappv3/config"
	"github.com/samh164/ptappv3/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// one connection so every query hits the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.Migrate(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, mutate func(*models.User)) *models.User {
	t.Helper()
	u := &models.User{
		PublicID: uuid.NewString(),
		Username: "sam-" + uuid.NewString()[:8],
		Email:    uuid.NewString()[:8] + "@example.com",
		Password: "hashed",
		HeightCm: 180, WeightKg: 82,
		Goal: "build muscle", TrainingStyle: "gym", DietType: "omnivore",
		Onboarded: true,
	}
	if mutate != nil {
		mutate(u)
	}
	require.NoError(t, db.Create(u).Error)
	return u
}
