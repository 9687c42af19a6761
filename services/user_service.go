package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/samh164/ptappv3/models"
	"github.com/samh164/ptappv3/utils"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrBadLogin     = errors.New("incorrect username or password")
	ErrUserExists   = errors.New("username or email already taken")
)

// UserService owns accounts and profiles.
type UserService struct {
	db        *gorm.DB
	jwtSecret string
}

func NewUserService(db *gorm.DB, jwtSecret string) *UserService {
	return &UserService{db: db, jwtSecret: jwtSecret}
}

// RegisterInput is the payload for account creation.
type RegisterInput struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	var count int64
	s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", in.Username, strings.ToLower(in.Email)).
		Count(&count)
	if count > 0 {
		return nil, ErrUserExists
	}

	hashed, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		PublicID: uuid.NewString(),
		Username: in.Username,
		Email:    strings.ToLower(in.Email),
		Password: hashed,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate checks credentials and returns a signed token. Username and
// email are both accepted as the login identifier.
func (s *UserService) Authenticate(ctx context.Context, login, password string) (string, *models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", login, strings.ToLower(login)).
		First(&user).Error
	if err != nil {
		return "", nil, ErrBadLogin
	}
	if !utils.CheckPasswordHash(password, user.Password) {
		return "", nil, ErrBadLogin
	}

	token, err := utils.GenerateJWT(s.jwtSecret, user.ID, user.Email)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, &user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

// ProfileInput carries the editable profile fields. Zero values mean "leave
// unchanged"; the restriction lists can be emptied explicitly via the Clear
// flags since an empty string there is indistinguishable from "not sent".
type ProfileInput struct {
	Sex           string  `json:"sex"`
	Age           int     `json:"age"`
	HeightCm      float64 `json:"height_cm"`
	WeightKg      float64 `json:"weight_kg"`
	Goal          string  `json:"goal"`
	ActivityLevel string  `json:"activity_level"`
	TrainingStyle string  `json:"training_style"`
	DietType      string  `json:"diet_type"`

	Allergies     string `json:"allergies"`
	DislikedFoods string `json:"disliked_foods"`
	Injuries      string `json:"injuries"`

	ClearAllergies     bool `json:"clear_allergies"`
	ClearDislikedFoods bool `json:"clear_disliked_foods"`
	ClearInjuries      bool `json:"clear_injuries"`
}

func (s *UserService) UpdateProfile(ctx context.Context, id uint, in ProfileInput) (*models.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Sex != "" {
		user.Sex = in.Sex
	}
	if in.Age > 0 {
		user.Age = in.Age
	}
	if in.HeightCm > 0 {
		user.HeightCm = in.HeightCm
	}
	if in.WeightKg > 0 {
		user.WeightKg = in.WeightKg
	}
	if in.Goal != "" {
		user.Goal = in.Goal
	}
	if in.ActivityLevel != "" {
		user.ActivityLevel = in.ActivityLevel
	}
	if in.TrainingStyle != "" {
		user.TrainingStyle = in.TrainingStyle
	}
	if in.DietType != "" {
		user.DietType = in.DietType
	}

	if in.ClearAllergies {
		user.Allergies = ""
	} else if in.Allergies != "" {
		user.Allergies = normalizeList(in.Allergies)
	}
	if in.ClearDislikedFoods {
		user.DislikedFoods = ""
	} else if in.DislikedFoods != "" {
		user.DislikedFoods = normalizeList(in.DislikedFoods)
	}
	if in.ClearInjuries {
		user.Injuries = ""
	} else if in.Injuries != "" {
		user.Injuries = normalizeList(in.Injuries)
	}

	if !user.Onboarded && user.Goal != "" && user.HeightCm > 0 && user.WeightKg > 0 {
		user.Onboarded = true
	}

	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

// Delete removes the account and everything hanging off it in one
// transaction: plans, journal entries and alerts.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("user_id = ?", id).Delete(&models.Plan{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("user_id = ?", id).Delete(&models.JournalEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Alert{}).Error; err != nil {
			return err
		}
		res := tx.Unscoped().Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

func normalizeList(csv string) string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}
