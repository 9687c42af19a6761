package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/samh164/ptappv3/models"
	"github.com/samh164/ptappv3/services"
)

type PlanController struct {
	Users     *services.UserService
	Generator *services.PlanGeneratorService
	Plans     *services.PlanStoreService
	Alerts    *services.AlertService
}

func NewPlanController(users *services.UserService, gen *services.PlanGeneratorService, plans *services.PlanStoreService, alerts *services.AlertService) *PlanController {
	return &PlanController{Users: users, Generator: gen, Plans: plans, Alerts: alerts}
}

type generateInput struct {
	Mode string `json:"mode"`
}

// Generate runs the full pipeline and persists the result on success. One
// generation per user at a time; a concurrent request gets 409.
func (h *PlanController) Generate(c *gin.Context) {
	userID, ok := userIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var in generateInput
	if err := c.ShouldBindJSON(&in); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mode := services.ModeFirst
	switch in.Mode {
	case "", "first":
	case "regenerate":
		mode = services.ModeRegenerate
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be \"first\" or \"regenerate\""})
		return
	}

	user, err := h.Users.GetByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if !user.Onboarded {
		c.JSON(http.StatusBadRequest, gin.H{"error": "complete your profile before generating a plan"})
		return
	}

	out, err := h.Generator.Generate(c.Request.Context(), user, mode)
	if err != nil && out == nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "plan generation failed, try again later"})
		return
	}

	switch out.Status {
	case services.StatusInFlight:
		c.JSON(http.StatusConflict, gin.H{"error": "a plan is already being generated for this account"})
		return
	case services.StatusAuthFailed:
		c.JSON(http.StatusBadGateway, gin.H{"error": "generation service rejected our credentials"})
		return
	case services.StatusQuotaExceeded:
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "generation quota exhausted, try again later"})
		return
	case services.StatusValidationExhausted:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":    "could not produce a plan that passes safety checks",
			"warnings": out.Warnings,
		})
		return
	}

	plan, err := h.Plans.SaveValidatedPlan(c.Request.Context(), user, out)
	if err != nil {
		if errors.Is(err, services.ErrUnsafePlan) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not produce a plan that passes safety checks"})
			return
		}
		// The plan was generated and validated; only the save failed. Hand the
		// content back so the client can keep it and retry without a fresh
		// generation run.
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "plan generated but could not be saved, retry later",
			"plan": gin.H{
				"workout_plan": out.WorkoutPlan,
				"meal_plan":    out.MealPlan,
				"source":       out.Source,
				"model":        out.ModelName,
			},
			"warnings": out.Warnings,
		})
		return
	}

	if h.Alerts != nil {
		if plan.Source == models.PlanSourceFallback {
			h.Alerts.Emit(c.Request.Context(), userID, "warning",
				"your new plan uses our pre-approved template; regenerate later for a personalized one")
		} else {
			h.Alerts.Emit(c.Request.Context(), userID, "info", "your new plan is ready")
		}
	}

	c.JSON(http.StatusOK, planResponse(plan, out.Warnings))
}

func (h *PlanController) Latest(c *gin.Context) {
	userID, ok := userIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	plan, err := h.Plans.LatestPlan(c.Request.Context(), userID)
	if err != nil {
		// having no plan yet is a normal state, not a failure
		if errors.Is(err, services.ErrNoPlan) {
			c.JSON(http.StatusOK, gin.H{"plan": nil})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load plan"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": planResponse(plan, nil)})
}

func (h *PlanController) List(c *gin.Context) {
	userID, ok := userIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	plans, err := h.Plans.ListPlans(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load plans"})
		return
	}
	out := make([]gin.H, 0, len(plans))
	for i := range plans {
		out = append(out, planResponse(&plans[i], nil))
	}
	c.JSON(http.StatusOK, gin.H{"plans": out})
}

func planResponse(p *models.Plan, warnings []string) gin.H {
	resp := gin.H{
		"id":           p.ID,
		"week_index":   p.WeekIndex,
		"workout_plan": p.WorkoutPlan,
		"meal_plan":    p.MealPlan,
		"source":       p.Source,
		"created_at":   p.CreatedAt,
	}
	if p.ModelName != "" {
		resp["model"] = p.ModelName
	}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	return resp
}
