package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/samh164/ptappv3/services"
)

type ExerciseController struct {
	Catalog *services.ExerciseDBService
}

func NewExerciseController(catalog *services.ExerciseDBService) *ExerciseController {
	return &ExerciseController{Catalog: catalog}
}

func (h *ExerciseController) ByBodyPart(c *gin.Context) {
	bodyPart := c.Query("body_part")
	if bodyPart == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body_part query parameter is required"})
		return
	}

	items, err := h.Catalog.ByBodyPart(c.Request.Context(), bodyPart)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "exercise catalog unavailable"})
		return
	}

	out := make([]gin.H, 0, len(items))
	for _, e := range items {
		out = append(out, gin.H{
			"id":        e.ExternalID,
			"name":      e.Name,
			"body_part": e.BodyPart,
			"target":    e.Target,
			"equipment": e.Equipment,
			"gif_url":   e.GifURL,
		})
	}
	c.JSON(http.StatusOK, gin.H{"exercises": out})
}
