package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samh164/ptappv3/models"
)

func entryOn(userID uint, date time.Time, weight float64) *models.JournalEntry {
	return &models.JournalEntry{
		UserID:    userID,
		EntryDate: date,
		WeightKg:  weight,
	}
}

func TestAddEntry(t *testing.T) {
	db := newTestDB(t)
	svc := NewJournalService(db)
	ctx := context.Background()
	user := seedUser(t, db, nil)

	monday := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

	t.Run("first entry of the week saves without warning", func(t *testing.T) {
		warning, err := svc.AddEntry(ctx, entryOn(user.ID, monday, 82))
		require.NoError(t, err)
		assert.Empty(t, warning)
	})

	t.Run("second entry same week saves with warning", func(t *testing.T) {
		warning, err := svc.AddEntry(ctx, entryOn(user.ID, monday.AddDate(0, 0, 3), 81.5))
		require.NoError(t, err)
		assert.NotEmpty(t, warning)

		entries, err := svc.History(ctx, user.ID, 0)
		require.NoError(t, err)
		assert.Len(t, entries, 2, "warning must not block the write")
	})

	t.Run("next week is clean again", func(t *testing.T) {
		warning, err := svc.AddEntry(ctx, entryOn(user.ID, monday.AddDate(0, 0, 7), 81))
		require.NoError(t, err)
		assert.Empty(t, warning)
	})

	t.Run("zero date defaults to now", func(t *testing.T) {
		e := &models.JournalEntry{UserID: user.ID, WeightKg: 80}
		_, err := svc.AddEntry(ctx, e)
		require.NoError(t, err)
		assert.False(t, e.EntryDate.IsZero())
	})
}

func TestStartOfWeek_UsesEntryLocation(t *testing.T) {
	loc := time.FixedZone("UTC+13", 13*60*60)
	// Monday just after local midnight; in UTC this is still Sunday.
	monday := time.Date(2026, 8, 31, 0, 30, 0, 0, loc)

	got := startOfWeek(monday)
	assert.True(t, time.Date(2026, 8, 31, 0, 0, 0, 0, loc).Equal(got),
		"want Monday 00:00 local, got %s", got)
	assert.Equal(t, time.Monday, got.Weekday())
}

func TestAddEntry_WeekBoundaryInLocalTime(t *testing.T) {
	db := newTestDB(t)
	svc := NewJournalService(db)
	ctx := context.Background()
	user := seedUser(t, db, nil)

	loc := time.FixedZone("UTC+13", 13*60*60)
	sunday := time.Date(2026, 8, 30, 23, 50, 0, 0, loc)
	monday := time.Date(2026, 8, 31, 0, 10, 0, 0, loc)

	warning, err := svc.AddEntry(ctx, entryOn(user.ID, sunday, 82))
	require.NoError(t, err)
	assert.Empty(t, warning)

	// Twenty minutes later but a new calendar week locally.
	warning, err = svc.AddEntry(ctx, entryOn(user.ID, monday, 81.8))
	require.NoError(t, err)
	assert.Empty(t, warning)
}

func TestHistory(t *testing.T) {
	db := newTestDB(t)
	svc := NewJournalService(db)
	ctx := context.Background()
	user := seedUser(t, db, nil)
	other := seedUser(t, db, nil)

	base := time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		_, err := svc.AddEntry(ctx, entryOn(user.ID, base.AddDate(0, 0, i*7), 84-float64(i)))
		require.NoError(t, err)
	}
	_, err := svc.AddEntry(ctx, entryOn(other.ID, base, 70))
	require.NoError(t, err)

	t.Run("newest first and scoped to the user", func(t *testing.T) {
		entries, err := svc.History(ctx, user.ID, 0)
		require.NoError(t, err)
		require.Len(t, entries, 4)
		assert.Equal(t, 81.0, entries[0].WeightKg)
		assert.Equal(t, 84.0, entries[3].WeightKg)
	})

	t.Run("limit respected", func(t *testing.T) {
		entries, err := svc.History(ctx, user.ID, 2)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})
}

func TestWeightProgress(t *testing.T) {
	db := newTestDB(t)
	svc := NewJournalService(db)
	ctx := context.Background()
	user := seedUser(t, db, nil)

	base := time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC)
	_, err := svc.AddEntry(ctx, entryOn(user.ID, base, 84))
	require.NoError(t, err)
	_, err = svc.AddEntry(ctx, entryOn(user.ID, base.AddDate(0, 0, 7), 83))
	require.NoError(t, err)
	// mood-only entry, no weight
	_, err = svc.AddEntry(ctx, &models.JournalEntry{
		UserID: user.ID, EntryDate: base.AddDate(0, 0, 14), Mood: "good",
	})
	require.NoError(t, err)

	points, err := svc.WeightProgress(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, points, 2, "entries without weight are skipped")
	assert.Equal(t, 84.0, points[0].WeightKg, "chronological order")
	assert.Equal(t, 83.0, points[1].WeightKg)
}

func TestRecentTrendSummary(t *testing.T) {
	db := newTestDB(t)
	svc := NewJournalService(db)
	ctx := context.Background()
	user := seedUser(t, db, nil)

	t.Run("empty without entries", func(t *testing.T) {
		s, err := svc.RecentTrendSummary(ctx, user.ID)
		require.NoError(t, err)
		assert.Empty(t, s)
	})

	t.Run("summarizes weight change and adherence", func(t *testing.T) {
		base := time.Date(2026, 7, 6, 0, 0, 0, 0, time.UTC)
		_, err := svc.AddEntry(ctx, entryOn(user.ID, base, 84))
		require.NoError(t, err)
		_, err = svc.AddEntry(ctx, &models.JournalEntry{
			UserID: user.ID, EntryDate: base.AddDate(0, 0, 7),
			WeightKg: 82.5, WorkoutAdherence: 90, DietAdherence: 70, Mood: "tired",
		})
		require.NoError(t, err)

		s, err := svc.RecentTrendSummary(ctx, user.ID)
		require.NoError(t, err)
		assert.Contains(t, s, "82.5 kg")
		assert.Contains(t, s, "-1.5 kg")
		assert.Contains(t, s, "workouts 90%")
		assert.Contains(t, s, "tired")
	})
}
