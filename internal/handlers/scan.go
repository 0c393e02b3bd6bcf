// internal/handlers/scan.go
package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agnarsw/cellar-backend/internal/config"
	"github.com/agnarsw/cellar-backend/internal/i18n"
	"github.com/agnarsw/cellar-backend/internal/services"
	"github.com/agnarsw/cellar-backend/internal/utils"
)

type ScanHandler struct {
	cellarService  *services.CellarService
	storageService *services.StorageService
	maxUploadSize  int64
}

func NewScanHandler(cellarService *services.CellarService, storageService *services.StorageService, cfg *config.Config) *ScanHandler {
	return &ScanHandler{
		cellarService:  cellarService,
		storageService: storageService,
		maxUploadSize:  cfg.Upload.MaxSize,
	}
}

// POST /api/analyze
//
// Runs the label photo through analysis and reports the extracted data.
// Extraction failures are part of the result payload, not HTTP errors.
func (h *ScanHandler) AnalyzeImage(c *gin.Context) {
	content, filename, ok := h.readImageUpload(c)
	if !ok {
		return
	}

	result, err := h.cellarService.AnalyzeBottle(c.Request.Context(), content, filename)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, result)
}

// POST /api/drink
func (h *ScanHandler) DrinkWine(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	content, filename, ok := h.readImageUpload(c)
	if !ok {
		return
	}

	result, err := h.cellarService.DrinkBottle(c.Request.Context(), content, filename)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	switch result.Outcome {
	case services.DrinkIdentifyFailed:
		msg, _ := result.Identified.ErrorMessage()
		utils.ErrorResponse(c, http.StatusBadRequest, "IDENTIFY_FAILED", msg, gin.H{
			"identified": result.Identified,
		})
	case services.DrinkNotFound:
		utils.ErrorResponse(c, http.StatusNotFound, "WINE_NOT_FOUND", i18n.T(lang, i18n.KeyScanNotInCollection), gin.H{
			"identified": result.Identified,
		})
	case services.DrinkNoBottlesLeft:
		utils.ErrorResponse(c, http.StatusBadRequest, "NO_BOTTLES_LEFT", i18n.T(lang, i18n.KeyScanNoBottlesLeft), gin.H{
			"wine": result.Wine,
		})
	default:
		utils.SuccessResponse(c, gin.H{
			"message":           i18n.T(lang, i18n.KeyScanBottleEnjoyed, result.Wine.Name),
			"wine":              result.Wine,
			"previous_quantity": result.PreviousQuantity,
			"new_quantity":      result.NewQuantity,
		})
	}
}

// readImageUpload pulls the "image" form file, enforcing type and size
// limits before handing the bytes back. Writes the error response itself
// when the upload is unusable.
func (h *ScanHandler) readImageUpload(c *gin.Context) ([]byte, string, bool) {
	lang := utils.GetLangFromContext(c)

	header, err := c.FormFile("image")
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyScanNoImage), nil)
		return nil, "", false
	}

	if header.Filename == "" {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyScanNoFileSelected), nil)
		return nil, "", false
	}

	if !h.storageService.AllowedFile(header.Filename) {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyScanInvalidFileType), nil)
		return nil, "", false
	}

	if h.maxUploadSize > 0 && header.Size > h.maxUploadSize {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyScanFileTooLarge, h.maxUploadSize/(1024*1024)), nil)
		return nil, "", false
	}

	file, err := header.Open()
	if err != nil {
		utils.InternalErrorResponse(c, i18n.T(lang, i18n.KeyScanProcessFailed))
		return nil, "", false
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		utils.InternalErrorResponse(c, i18n.T(lang, i18n.KeyScanProcessFailed))
		return nil, "", false
	}

	return content, header.Filename, true
}
