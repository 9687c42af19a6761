package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/samh164/ptappv3/config"
	"github.com/samh164/ptappv3/models"
)

// ExerciseDBService talks to the ExerciseDB catalog over RapidAPI. Responses
// are cached in memory per body part for the configured TTL, and also upserted
// into the exercises table so a catalog outage degrades to stale data instead
// of an empty plan.
type ExerciseDBService struct {
	client  *http.Client
	apiKey  string
	baseURL string
	host    string
	ttl     time.Duration
	db      *gorm.DB

	mu    sync.Mutex
	cache map[string]cachedExercises
}

type cachedExercises struct {
	items   []models.Exercise
	fetched time.Time
}

func NewExerciseDBService(cfg *config.Config, db *gorm.DB) *ExerciseDBService {
	base := strings.TrimRight(cfg.ExerciseDBBaseURL, "/")
	host := base
	if u, err := url.Parse(base); err == nil && u.Host != "" {
		host = u.Host
	}
	return &ExerciseDBService{
		client:  &http.Client{Timeout: cfg.ExerciseDBTimeout},
		apiKey:  cfg.ExerciseDBAPIKey,
		baseURL: base,
		host:    host,
		ttl:     cfg.ExerciseCacheTTL,
		db:      db,
		cache:   make(map[string]cachedExercises),
	}
}

type exerciseDTO struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	BodyPart         string   `json:"bodyPart"`
	Target           string   `json:"target"`
	Equipment        string   `json:"equipment"`
	SecondaryMuscles []string `json:"secondaryMuscles"`
	GifURL           string   `json:"gifUrl"`
}

// ByBodyPart returns catalog entries for one body part tag. Cache first, then
// the remote API, then whatever the exercises table holds from earlier runs.
func (s *ExerciseDBService) ByBodyPart(ctx context.Context, bodyPart string) ([]models.Exercise, error) {
	key := strings.ToLower(strings.TrimSpace(bodyPart))
	if key == "" {
		return nil, fmt.Errorf("body part is required")
	}

	s.mu.Lock()
	if c, ok := s.cache[key]; ok && time.Since(c.fetched) < s.ttl {
		items := c.items
		s.mu.Unlock()
		return items, nil
	}
	s.mu.Unlock()

	items, err := s.fetch(ctx, key)
	if err != nil {
		// Remote failed; serve from the table if we have anything.
		var stored []models.Exercise
		if dbErr := s.db.WithContext(ctx).Where("body_part = ?", key).Find(&stored).Error; dbErr == nil && len(stored) > 0 {
			return stored, nil
		}
		return nil, err
	}

	s.mu.Lock()
	s.cache[key] = cachedExercises{items: items, fetched: time.Now()}
	s.mu.Unlock()

	s.persist(ctx, items)
	return items, nil
}

func (s *ExerciseDBService) fetch(ctx context.Context, bodyPart string) ([]models.Exercise, error) {
	u := fmt.Sprintf("%s/exercises/bodyPart/%s", s.baseURL, url.PathEscape(bodyPart))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build exercisedb request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", s.apiKey)
	req.Header.Set("X-RapidAPI-Host", s.host)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exercisedb request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read exercisedb response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exercisedb API error %d: %s", resp.StatusCode, string(body))
	}

	var dtos []exerciseDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, fmt.Errorf("parse exercisedb JSON: %w", err)
	}

	items := make([]models.Exercise, 0, len(dtos))
	for _, d := range dtos {
		items = append(items, models.Exercise{
			ExternalID:       d.ID,
			Name:             d.Name,
			BodyPart:         strings.ToLower(d.BodyPart),
			Target:           d.Target,
			Equipment:        d.Equipment,
			SecondaryMuscles: strings.Join(d.SecondaryMuscles, ","),
			GifURL:           d.GifURL,
		})
	}
	return items, nil
}

// persist upserts fetched entries keyed by external ID. Failures here are not
// surfaced; the caller already has the fresh data.
func (s *ExerciseDBService) persist(ctx context.Context, items []models.Exercise) {
	if len(items) == 0 {
		return
	}
	s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "body_part", "target", "equipment", "secondary_muscles", "gif_url", "updated_at"}),
	}).Create(&items)
}

// InvalidateCache drops the in-memory cache. Used when the TTL should not be
// waited out, e.g. after a manual catalog refresh.
func (s *ExerciseDBService) InvalidateCache() {
	s.mu.Lock()
	s.cache = make(map[string]cachedExercises)
	s.mu.Unlock()
}
