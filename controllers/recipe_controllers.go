package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cafe-pos/hub"
	"github.com/yeremiapane/cafe-pos/services"
	"github.com/yeremiapane/cafe-pos/utils"
)

type RecipeController struct {
	Recipes *services.RecipeService
}

func NewRecipeController(recipes *services.RecipeService) *RecipeController {
	return &RecipeController{Recipes: recipes}
}

type recipeRequest struct {
	Lines       []services.RecipeLineInput `json:"lines" binding:"dive"`
	ActualPrice float64                    `json:"actual_price"`
}

func (rc *RecipeController) GetRecipeSummary(c *gin.Context) {
	summary, err := rc.Recipes.Summary(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Recipe summary", summary)
}

func (rc *RecipeController) GetRecipe(c *gin.Context) {
	drinkID, ok := parseID(c, "drink_id")
	if !ok {
		return
	}
	lines, err := rc.Recipes.Lines(c.Request.Context(), drinkID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Recipe", lines)
}

// SaveRecipe replaces the drink's recipe and sets its selling price.
func (rc *RecipeController) SaveRecipe(c *gin.Context) {
	drinkID, ok := parseID(c, "drink_id")
	if !ok {
		return
	}
	var req recipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	cost, err := rc.Recipes.Save(c.Request.Context(), drinkID, req.Lines, req.ActualPrice)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	hub.BroadcastMessage(hub.Message{Event: hub.EventMenuUpdate, Data: gin.H{"drink_id": drinkID}})
	utils.RespondJSON(c, http.StatusOK, "Recipe saved", gin.H{
		"drink_id":     drinkID,
		"recipe_cost":  cost,
		"actual_price": req.ActualPrice,
	})
}

func (rc *RecipeController) DeleteRecipe(c *gin.Context) {
	drinkID, ok := parseID(c, "drink_id")
	if !ok {
		return
	}
	if err := rc.Recipes.Delete(c.Request.Context(), drinkID); err != nil {
		respondServiceError(c, err)
		return
	}
	hub.BroadcastMessage(hub.Message{Event: hub.EventMenuUpdate, Data: gin.H{"drink_id": drinkID}})
	utils.RespondJSON(c, http.StatusOK, "Recipe deleted", gin.H{"drink_id": drinkID})
}

func (rc *RecipeController) SetRecipeActive(c *gin.Context) {
	drinkID, ok := parseID(c, "drink_id")
	if !ok {
		return
	}
	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := rc.Recipes.SetActive(c.Request.Context(), drinkID, *req.Active); err != nil {
		respondServiceError(c, err)
		return
	}
	hub.BroadcastMessage(hub.Message{Event: hub.EventMenuUpdate, Data: gin.H{"drink_id": drinkID}})
	utils.RespondJSON(c, http.StatusOK, "Recipe status updated", gin.H{"drink_id": drinkID, "active": *req.Active})
}

// CalculateCost previews a recipe's cost without saving it.
func (rc *RecipeController) CalculateCost(c *gin.Context) {
	var req recipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	cost, err := rc.Recipes.Cost(c.Request.Context(), req.Lines)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Recipe cost", gin.H{"total_cost": cost})
}
