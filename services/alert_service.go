package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/samh164/ptappv3/models"
)

// AlertService stores per-user alerts and pushes them out over the realtime
// hub. Used for generation outcomes the client should see immediately, e.g.
// "your plan used the fallback template".
type AlertService struct {
	db  *gorm.DB
	hub *RealtimeHub
}

func NewAlertService(db *gorm.DB, hub *RealtimeHub) *AlertService {
	return &AlertService{db: db, hub: hub}
}

// Emit saves an alert and broadcasts it to the user's open connections. The
// broadcast is best effort; the saved row is what matters.
func (s *AlertService) Emit(ctx context.Context, userID uint, typ, message string) {
	a := &models.Alert{UserID: userID, Type: typ, Message: message, CreatedAt: time.Now()}
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return
	}
	if s.hub != nil {
		s.hub.Broadcast(userID, map[string]any{
			"kind":  "alert.created",
			"alert": a,
		})
	}
}

// Recent returns the user's latest alerts, newest first.
func (s *AlertService) Recent(ctx context.Context, userID uint, limit int) ([]models.Alert, error) {
	if limit <= 0 {
		limit = 20
	}
	var alerts []models.Alert
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("load alerts: %w", err)
	}
	return alerts, nil
}
