// internal/handlers/wine.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/agnarsw/cellar-backend/internal/i18n"
	"github.com/agnarsw/cellar-backend/internal/services"
	"github.com/agnarsw/cellar-backend/internal/utils"
)

type WineHandler struct {
	wineService *services.WineService
}

func NewWineHandler(wineService *services.WineService) *WineHandler {
	return &WineHandler{
		wineService: wineService,
	}
}

// GET /api/wines
func (h *WineHandler) GetWines(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filters := services.WineFilters{
		PaginationParams: params,
		Country:          c.Query("country"),
		Region:           c.Query("region"),
		Style:            c.Query("style"),
		DrinkingNow:      c.Query("drinking_now") == "true",
		Search:           c.Query("search"),
	}

	if v := c.Query("vintage_min"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filters.VintageMin = &n
		}
	}
	if v := c.Query("vintage_max"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filters.VintageMax = &n
		}
	}

	wines, total, err := h.wineService.List(filters)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(wines, total, params)
	utils.PaginatedResponse(c, result)
}

// POST /api/wines
func (h *WineHandler) CreateWine(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.CreateWineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyWineNoDataProvided), err.Error())
		return
	}

	if req.Name == "" {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyWineNameRequired), nil)
		return
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	wine, err := h.wineService.Create(&req)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyWineCreated),
		"wine":    wine,
	})
}

// GET /api/wines/:id
func (h *WineHandler) GetWine(c *gin.Context) {
	id, ok := parseWineID(c)
	if !ok {
		return
	}

	wine, err := h.wineService.GetByID(id)
	if err != nil {
		if errors.Is(err, services.ErrWineNotFound) {
			utils.NotFoundResponse(c, "wine")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"wine": wine})
}

// PUT /api/wines/:id
func (h *WineHandler) UpdateWine(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, ok := parseWineID(c)
	if !ok {
		return
	}

	var req services.UpdateWineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyWineNoDataProvided), err.Error())
		return
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	wine, err := h.wineService.Update(id, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrWineNotFound), errors.Is(err, services.ErrNoUpdates):
			utils.ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", i18n.T(lang, i18n.KeyWineNoChanges), nil)
		default:
			utils.InternalErrorResponse(c, err.Error())
		}
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyWineUpdated),
		"wine":    wine,
	})
}

// DELETE /api/wines/:id
func (h *WineHandler) DeleteWine(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, ok := parseWineID(c)
	if !ok {
		return
	}

	if err := h.wineService.Delete(id); err != nil {
		if errors.Is(err, services.ErrWineNotFound) {
			utils.NotFoundResponse(c, "wine")
			return
		}
		utils.InternalErrorResponse(c, i18n.T(lang, i18n.KeyWineDeleteFailed))
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyWineDeleted),
	})
}

// GET /api/stats
func (h *WineHandler) GetStats(c *gin.Context) {
	stats, err := h.wineService.Stats()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, stats)
}

func parseWineID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid wine ID", nil)
		return 0, false
	}
	return uint(id), true
}
