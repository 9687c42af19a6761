package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/samh164/ptappv3/models"
	"github.com/samh164/ptappv3/services"
)

type JournalController struct {
	Journal *services.JournalService
	Alerts  *services.AlertService
}

func NewJournalController(journal *services.JournalService, alerts *services.AlertService) *JournalController {
	return &JournalController{Journal: journal, Alerts: alerts}
}

type journalInput struct {
	EntryDate        string  `json:"entry_date"` // YYYY-MM-DD, defaults to today
	WeightKg         float64 `json:"weight_kg"`
	Mood             string  `json:"mood"`
	Energy           string  `json:"energy"`
	WorkoutAdherence int     `json:"workout_adherence"`
	DietAdherence    int     `json:"diet_adherence"`
	Notes            string  `json:"notes"`
}

func (h *JournalController) Create(c *gin.Context) {
	userID, ok := userIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var in journalInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if in.WorkoutAdherence < 0 || in.WorkoutAdherence > 100 ||
		in.DietAdherence < 0 || in.DietAdherence > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "adherence values must be 0-100"})
		return
	}

	entry := &models.JournalEntry{
		UserID:           userID,
		WeightKg:         in.WeightKg,
		Mood:             in.Mood,
		Energy:           in.Energy,
		WorkoutAdherence: in.WorkoutAdherence,
		DietAdherence:    in.DietAdherence,
		Notes:            in.Notes,
	}
	if in.EntryDate != "" {
		d, err := time.ParseInLocation("2006-01-02", in.EntryDate, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry_date, expected YYYY-MM-DD"})
			return
		}
		entry.EntryDate = d
	}

	warning, err := h.Journal.AddEntry(c.Request.Context(), entry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save entry"})
		return
	}

	resp := gin.H{"id": entry.ID, "entry_date": entry.EntryDate}
	if warning != "" {
		resp["warning"] = warning
		if h.Alerts != nil {
			h.Alerts.Emit(c.Request.Context(), userID, "warning", warning)
		}
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *JournalController) List(c *gin.Context) {
	userID, ok := userIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	entries, err := h.Journal.History(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load journal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *JournalController) Progress(c *gin.Context) {
	userID, ok := userIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	points, err := h.Journal.WeightProgress(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load progress"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"weight": points})
}
