package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/samh164/ptappv3/models"
)

// JournalService owns weekly check-in entries and the progress views built
// from them.
type JournalService struct {
	db *gorm.DB
}

func NewJournalService(db *gorm.DB) *JournalService {
	return &JournalService{db: db}
}

// AddEntry records a check-in. A second entry inside the same calendar week is
// allowed but flagged with a warning, so the client can surface it without the
// write being blocked.
func (s *JournalService) AddEntry(ctx context.Context, entry *models.JournalEntry) (warning string, err error) {
	if entry.EntryDate.IsZero() {
		entry.EntryDate = time.Now()
	}

	weekStart := startOfWeek(entry.EntryDate)
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.JournalEntry{}).
		Where("user_id = ? AND entry_date >= ? AND entry_date < ?",
			entry.UserID, weekStart, weekStart.AddDate(0, 0, 7)).
		Count(&count).Error; err != nil {
		return "", fmt.Errorf("check weekly entries: %w", err)
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return "", fmt.Errorf("save journal entry: %w", err)
	}

	if count > 0 {
		warning = "you already logged a check-in this week; this entry was saved as an extra"
	}
	return warning, nil
}

// History returns the user's entries, newest first.
func (s *JournalService) History(ctx context.Context, userID uint, limit int) ([]models.JournalEntry, error) {
	q := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("entry_date DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var entries []models.JournalEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("load journal history: %w", err)
	}
	return entries, nil
}

// WeightPoint is one sample in the weight progress series.
type WeightPoint struct {
	Date     time.Time `json:"date"`
	WeightKg float64   `json:"weight_kg"`
}

// WeightProgress returns the weight series in chronological order, skipping
// entries without a weight.
func (s *JournalService) WeightProgress(ctx context.Context, userID uint) ([]WeightPoint, error) {
	var entries []models.JournalEntry
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND weight_kg > 0", userID).
		Order("entry_date ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("load weight progress: %w", err)
	}
	points := make([]WeightPoint, 0, len(entries))
	for _, e := range entries {
		points = append(points, WeightPoint{Date: e.EntryDate, WeightKg: e.WeightKg})
	}
	return points, nil
}

// RecentTrendSummary condenses the last few check-ins into a short prompt
// block for plan regeneration. Empty string when there is nothing to say.
func (s *JournalService) RecentTrendSummary(ctx context.Context, userID uint) (string, error) {
	entries, err := s.History(ctx, userID, 4)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", nil
	}

	var b strings.Builder
	latest := entries[0]
	if latest.WeightKg > 0 {
		fmt.Fprintf(&b, "- Latest weight: %.1f kg", latest.WeightKg)
		oldest := entries[len(entries)-1]
		if oldest.WeightKg > 0 && oldest.ID != latest.ID {
			fmt.Fprintf(&b, " (%+.1f kg over the last %d check-ins)", latest.WeightKg-oldest.WeightKg, len(entries))
		}
		b.WriteString("\n")
	}
	if latest.WorkoutAdherence > 0 || latest.DietAdherence > 0 {
		fmt.Fprintf(&b, "- Last reported adherence: workouts %d%%, diet %d%%\n",
			latest.WorkoutAdherence, latest.DietAdherence)
	}
	if latest.Mood != "" || latest.Energy != "" {
		fmt.Fprintf(&b, "- Mood: %s, energy: %s\n", orDash(latest.Mood), orDash(latest.Energy))
	}
	if latest.Notes != "" {
		fmt.Fprintf(&b, "- Client notes: %s\n", latest.Notes)
	}
	return b.String(), nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// startOfWeek truncates to the Monday 00:00 of the date's week, in the date's
// own location. Truncate would round on UTC days and shift entries near
// midnight into the neighboring week.
func startOfWeek(t time.Time) time.Time {
	year, month, day := t.Date()
	t = time.Date(year, month, day, 0, 0, 0, 0, t.Location())
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return t.AddDate(0, 0, -(weekday - 1))
}
