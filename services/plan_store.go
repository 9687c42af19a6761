package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/samh164/ptappv3/models"
	"github.com/samh164/ptappv3/utils"
)

var (
	ErrNoPlan     = errors.New("no plan found")
	ErrUnsafePlan = errors.New("plan failed safety validation")
)

// PlanStoreService owns every read and write on the plans table. Writes go
// through one gate: SaveValidatedPlan re-checks safety against the profile, so
// an unsafe document cannot reach the table no matter who calls.
type PlanStoreService struct {
	db        *gorm.DB
	validator *utils.PlanValidator
}

func NewPlanStoreService(db *gorm.DB, validator *utils.PlanValidator) *PlanStoreService {
	return &PlanStoreService{db: db, validator: validator}
}

// SaveValidatedPlan inserts a new immutable plan row for the user. The week
// index is assigned inside the transaction as max+1, so concurrent saves do
// not race to the same index.
func (s *PlanStoreService) SaveValidatedPlan(ctx context.Context, user *models.User, out *Outcome) (*models.Plan, error) {
	if out == nil || out.Status != StatusSuccess {
		return nil, fmt.Errorf("refusing to save a non-successful outcome")
	}

	if vs := s.validator.SafetyViolations(out.MealPlan, user); len(vs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsafePlan, strings.Join(violationMessages(vs), "; "))
	}

	plan := &models.Plan{
		UserID:        user.ID,
		WorkoutPlan:   out.WorkoutPlan,
		MealPlan:      out.MealPlan,
		Source:        out.Source,
		ModelName:     out.ModelName,
		Goal:          user.Goal,
		WeightKg:      user.WeightKg,
		TrainingStyle: user.TrainingStyle,
		DietType:      user.DietType,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxWeek int
		if err := tx.Model(&models.Plan{}).
			Where("user_id = ?", user.ID).
			Select("COALESCE(MAX(week_index), 0)").
			Scan(&maxWeek).Error; err != nil {
			return err
		}
		plan.WeekIndex = maxWeek + 1
		return tx.Create(plan).Error
	})
	if err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}
	return plan, nil
}

// LatestPlan returns the user's newest plan, ties on CreatedAt broken by ID.
func (s *PlanStoreService) LatestPlan(ctx context.Context, userID uint) (*models.Plan, error) {
	var plan models.Plan
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoPlan
	}
	if err != nil {
		return nil, fmt.Errorf("load latest plan: %w", err)
	}
	return &plan, nil
}

// ListPlans returns all of the user's plans, newest first.
func (s *PlanStoreService) ListPlans(ctx context.Context, userID uint) ([]models.Plan, error) {
	var plans []models.Plan
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&plans).Error
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

// PreviousPlanSummary condenses the latest plan into a short prompt block.
func (s *PlanStoreService) PreviousPlanSummary(ctx context.Context, userID uint) (string, error) {
	plan, err := s.LatestPlan(ctx, userID)
	if errors.Is(err, ErrNoPlan) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "- Week %d, source %s", plan.WeekIndex, plan.Source)
	if plan.Goal != "" {
		fmt.Fprintf(&b, ", goal at the time: %s", plan.Goal)
	}
	if plan.WeightKg > 0 {
		fmt.Fprintf(&b, ", weight at the time: %.1f kg", plan.WeightKg)
	}
	b.WriteString("\n")
	if head := firstLines(plan.WorkoutPlan, 6); head != "" {
		b.WriteString("- Workout opened with:\n" + head + "\n")
	}
	return b.String(), nil
}

func firstLines(text string, n int) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for i := range lines {
		lines[i] = "  " + strings.TrimSpace(lines[i])
	}
	return strings.Join(lines, "\n")
}

func violationMessages(vs []utils.Violation) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Message)
	}
	return out
}

// PlanHistory combines the plan and journal stores into the single history
// view the generator consumes for regeneration prompts.
type PlanHistory struct {
	Plans   *PlanStoreService
	Journal *JournalService
}

func (h *PlanHistory) PreviousPlanSummary(ctx context.Context, userID uint) (string, error) {
	return h.Plans.PreviousPlanSummary(ctx, userID)
}

func (h *PlanHistory) RecentTrendSummary(ctx context.Context, userID uint) (string, error) {
	return h.Journal.RecentTrendSummary(ctx, userID)
}
