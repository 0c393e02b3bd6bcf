// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/agnarsw/cellar-backend/internal/config"
	"github.com/agnarsw/cellar-backend/internal/handlers"
	"github.com/agnarsw/cellar-backend/internal/middleware"
	"github.com/agnarsw/cellar-backend/internal/services"
	"github.com/agnarsw/cellar-backend/internal/utils"
)

func Initialize(db *gorm.DB, analyzer services.LabelAnalyzer, cfg *config.Config) *gin.Engine {
	// Initialize services
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize image storage")
	}
	wineService := services.NewWineService(db, storageService)
	cellarService := services.NewCellarService(analyzer, wineService, storageService)

	// Initialize handlers
	wineHandler := handlers.NewWineHandler(wineService)
	scanHandler := handlers.NewScanHandler(cellarService, storageService, cfg)

	// Initialize Gin router
	r := gin.New()
	r.MaxMultipartMemory = cfg.Upload.MaxSize

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Wine collection routes
		wines := api.Group("/wines")
		{
			wines.GET("", wineHandler.GetWines)
			wines.POST("", wineHandler.CreateWine)
			wines.GET("/:id", wineHandler.GetWine)
			wines.PUT("/:id", wineHandler.UpdateWine)
			wines.DELETE("/:id", wineHandler.DeleteWine)
		}

		api.GET("/stats", wineHandler.GetStats)
		api.GET("/debug", debugHandler(storageService, cfg))

		// Label scanning routes spend a vision API call each, so they
		// get their own, tighter limit.
		scan := api.Group("")
		scan.Use(middleware.ScanRateLimit())
		{
			scan.POST("/analyze", scanHandler.AnalyzeImage)
			scan.POST("/drink", scanHandler.DrinkWine)
		}
	}

	// Serve label images from disk when S3 is not configured
	if !storageService.UsesS3() {
		r.Static("/static/uploads", cfg.Upload.Dir)
	}

	return r
}

// debugHandler reports which external pieces are wired up, for checking
// a deployment without reading its logs.
func debugHandler(storageService *services.StorageService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		utils.SuccessResponse(c, gin.H{
			"api_key_set":   cfg.Anthropic.APIKey != "",
			"s3_configured": storageService.UsesS3(),
			"database_type": cfg.Database.Driver,
		})
	}
}
