package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/samh164/ptappv3/models"
	"github.com/samh164/ptappv3/services"
	"github.com/samh164/ptappv3/utils"
)

type UserController struct {
	Users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{Users: users}
}

func (h *UserController) GetProfile(c *gin.Context) {
	userID, ok := userIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := h.Users.GetByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, profileResponse(user))
}

func (h *UserController) UpdateProfile(c *gin.Context) {
	userID, ok := userIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var in services.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.Users.UpdateProfile(c.Request.Context(), userID, in)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile update failed"})
		return
	}
	c.JSON(http.StatusOK, profileResponse(user))
}

func (h *UserController) DeleteAccount(c *gin.Context) {
	userID, ok := userIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.Users.Delete(c.Request.Context(), userID); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "account deletion failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func profileResponse(user *models.User) gin.H {
	resp := gin.H{
		"id":             user.PublicID,
		"username":       user.Username,
		"email":          user.Email,
		"sex":            user.Sex,
		"age":            user.Age,
		"height_cm":      user.HeightCm,
		"weight_kg":      user.WeightKg,
		"goal":           user.Goal,
		"activity_level": user.ActivityLevel,
		"training_style": user.TrainingStyle,
		"diet_type":      user.DietType,
		"allergies":      splitList(user.Allergies),
		"disliked_foods": splitList(user.DislikedFoods),
		"injuries":       splitList(user.Injuries),
		"onboarded":      user.Onboarded,
	}
	if bmi, err := utils.CalculateBMI(user.HeightCm, user.WeightKg); err == nil {
		resp["bmi"] = bmi
		resp["bmi_category"] = utils.BMICategory(bmi)
	}
	return resp
}

func splitList(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return []string{}
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
