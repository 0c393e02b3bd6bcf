// internal/services/wine_service.go
package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"github.com/agnarsw/cellar-backend/internal/models"
	"github.com/agnarsw/cellar-backend/internal/utils"
)

var (
	ErrWineNotFound = errors.New("wine not found")
	ErrNoUpdates    = errors.New("no updatable fields provided")
)

const statsCacheKey = "collection_stats"

// WineService owns the wines table: CRUD, filtered listing, the tiered label
// matcher, and collection statistics.
type WineService struct {
	db             *gorm.DB
	storageService *StorageService
	cache          *cache.Cache
}

func NewWineService(db *gorm.DB, storageService *StorageService) *WineService {
	return &WineService{
		db:             db,
		storageService: storageService,
		cache:          cache.New(time.Minute, 5*time.Minute),
	}
}

type CreateWineRequest struct {
	Name                string                 `json:"name" validate:"required,max=255"`
	Producer            *string                `json:"producer,omitempty" validate:"omitempty,max=255"`
	Vintage             *int                   `json:"vintage,omitempty" validate:"omitempty,gte=1800,lte=2100"`
	Country             *string                `json:"country,omitempty" validate:"omitempty,max=100"`
	Region              *string                `json:"region,omitempty" validate:"omitempty,max=100"`
	Appellation         *string                `json:"appellation,omitempty" validate:"omitempty,max=150"`
	Style               *string                `json:"style,omitempty" validate:"omitempty,wine_style"`
	GrapeVarieties      []string               `json:"grape_varieties,omitempty"`
	AlcoholPercentage   *float64               `json:"alcohol_percentage,omitempty" validate:"omitempty,gte=0,lte=100"`
	Quantity            *int                   `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	DrinkingWindowStart *int                   `json:"drinking_window_start,omitempty" validate:"omitempty,gte=1900,lte=2200"`
	DrinkingWindowEnd   *int                   `json:"drinking_window_end,omitempty" validate:"omitempty,gte=1900,lte=2200"`
	Score               *int                   `json:"score,omitempty" validate:"omitempty,gte=0,lte=100"`
	Description         *string                `json:"description,omitempty"`
	TastingNotes        map[string]interface{} `json:"tasting_notes,omitempty"`
	ImagePath           *string                `json:"image_path,omitempty"`
	StorageKey          *string                `json:"storage_key,omitempty"`
}

type UpdateWineRequest struct {
	Name                *string                `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Producer            *string                `json:"producer,omitempty" validate:"omitempty,max=255"`
	Vintage             *int                   `json:"vintage,omitempty" validate:"omitempty,gte=1800,lte=2100"`
	Country             *string                `json:"country,omitempty" validate:"omitempty,max=100"`
	Region              *string                `json:"region,omitempty" validate:"omitempty,max=100"`
	Appellation         *string                `json:"appellation,omitempty" validate:"omitempty,max=150"`
	Style               *string                `json:"style,omitempty" validate:"omitempty,wine_style"`
	GrapeVarieties      []string               `json:"grape_varieties,omitempty"`
	AlcoholPercentage   *float64               `json:"alcohol_percentage,omitempty" validate:"omitempty,gte=0,lte=100"`
	Quantity            *int                   `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	DrinkingWindowStart *int                   `json:"drinking_window_start,omitempty" validate:"omitempty,gte=1900,lte=2200"`
	DrinkingWindowEnd   *int                   `json:"drinking_window_end,omitempty" validate:"omitempty,gte=1900,lte=2200"`
	Score               *int                   `json:"score,omitempty" validate:"omitempty,gte=0,lte=100"`
	Description         *string                `json:"description,omitempty"`
	TastingNotes        map[string]interface{} `json:"tasting_notes,omitempty"`
	ImagePath           *string                `json:"image_path,omitempty"`
	StorageKey          *string                `json:"storage_key,omitempty"`
}

type WineFilters struct {
	utils.PaginationParams
	Country     string
	Region      string
	Style       string
	VintageMin  *int
	VintageMax  *int
	DrinkingNow bool
	Search      string
}

func (s *WineService) Create(req *CreateWineRequest) (*models.Wine, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	wine := &models.Wine{
		Name:                req.Name,
		Producer:            req.Producer,
		Vintage:             req.Vintage,
		Country:             req.Country,
		Region:              req.Region,
		Appellation:         req.Appellation,
		Style:               toWineStyle(req.Style),
		GrapeVarieties:      models.StringList(req.GrapeVarieties),
		AlcoholPercentage:   req.AlcoholPercentage,
		Quantity:            quantity,
		DrinkingWindowStart: req.DrinkingWindowStart,
		DrinkingWindowEnd:   req.DrinkingWindowEnd,
		Score:               req.Score,
		Description:         req.Description,
		TastingNotes:        models.JSONMap(req.TastingNotes),
		ImagePath:           req.ImagePath,
		StorageKey:          req.StorageKey,
	}

	if err := s.db.Create(wine).Error; err != nil {
		return nil, fmt.Errorf("failed to create wine: %w", err)
	}

	s.invalidateStats()
	return wine, nil
}

func (s *WineService) GetByID(id uint) (*models.Wine, error) {
	var wine models.Wine
	if err := s.db.First(&wine, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWineNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &wine, nil
}

func (s *WineService) Update(id uint, req *UpdateWineRequest) (*models.Wine, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	wine, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	// Update fields that were actually sent
	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Producer != nil {
		updates["producer"] = *req.Producer
	}
	if req.Vintage != nil {
		updates["vintage"] = *req.Vintage
	}
	if req.Country != nil {
		updates["country"] = *req.Country
	}
	if req.Region != nil {
		updates["region"] = *req.Region
	}
	if req.Appellation != nil {
		updates["appellation"] = *req.Appellation
	}
	if req.Style != nil {
		updates["style"] = *req.Style
	}
	if req.GrapeVarieties != nil {
		updates["grape_varieties"] = models.StringList(req.GrapeVarieties)
	}
	if req.AlcoholPercentage != nil {
		updates["alcohol_percentage"] = *req.AlcoholPercentage
	}
	if req.Quantity != nil {
		updates["quantity"] = *req.Quantity
	}
	if req.DrinkingWindowStart != nil {
		updates["drinking_window_start"] = *req.DrinkingWindowStart
	}
	if req.DrinkingWindowEnd != nil {
		updates["drinking_window_end"] = *req.DrinkingWindowEnd
	}
	if req.Score != nil {
		updates["score"] = *req.Score
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.TastingNotes != nil {
		updates["tasting_notes"] = models.JSONMap(req.TastingNotes)
	}
	if req.ImagePath != nil {
		updates["image_path"] = *req.ImagePath
	}
	if req.StorageKey != nil {
		updates["storage_key"] = *req.StorageKey
	}

	if len(updates) == 0 {
		return nil, ErrNoUpdates
	}

	if err := s.db.Model(wine).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update wine: %w", err)
	}

	s.invalidateStats()
	return s.GetByID(id)
}

func (s *WineService) Delete(id uint) error {
	wine, err := s.GetByID(id)
	if err != nil {
		return err
	}

	// Remove the stored label image; losing it is not worth failing the delete
	if wine.ImagePath != nil && s.storageService != nil {
		key := ""
		if wine.StorageKey != nil {
			key = *wine.StorageKey
		}
		s.storageService.DeleteLabelImage(*wine.ImagePath, key)
	}

	if err := s.db.Delete(&models.Wine{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete wine: %w", err)
	}

	s.invalidateStats()
	return nil
}

func (s *WineService) List(filters WineFilters) ([]models.Wine, int64, error) {
	query := s.db.Model(&models.Wine{})

	// Apply filters
	if filters.Country != "" {
		query = query.Where("country = ?", filters.Country)
	}
	if filters.Region != "" {
		query = query.Where("region = ?", filters.Region)
	}
	if filters.Style != "" {
		query = query.Where("style = ?", filters.Style)
	}
	if filters.VintageMin != nil {
		query = query.Where("vintage >= ?", *filters.VintageMin)
	}
	if filters.VintageMax != nil {
		query = query.Where("vintage <= ?", *filters.VintageMax)
	}
	if filters.DrinkingNow {
		year := time.Now().Year()
		query = query.Where("drinking_window_start <= ? AND drinking_window_end >= ?", year, year)
	}
	if filters.Search != "" {
		searchTerm := "%" + strings.ToLower(filters.Search) + "%"
		query = query.Where(
			"LOWER(name) LIKE ? OR LOWER(producer) LIKE ? OR LOWER(grape_varieties) LIKE ?",
			searchTerm, searchTerm, searchTerm,
		)
	}

	// Get total count
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count wines: %w", err)
	}

	// Apply sorting and pagination
	allowedSortFields := []string{"name", "vintage", "score", "quantity", "drinking_window_start", "created_at"}
	query = utils.ApplySort(query, filters.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, filters.PaginationParams)

	var wines []models.Wine
	if err := query.Find(&wines).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch wines: %w", err)
	}

	return wines, total, nil
}

// FindMatching resolves an extracted (name, producer, vintage) triple to a
// cellar entry, trying the most specific combination first and degrading one
// tier at a time:
//
//  1. name + producer + vintage
//  2. name + vintage
//  3. name + producer
//  4. substring match on name, preferring rows with the requested vintage,
//     then the most recently added
//
// All comparisons are case-insensitive. A miss on every tier returns
// (nil, nil); errors are real database failures only.
func (s *WineService) FindMatching(name string, producer *string, vintage *int) (*models.Wine, error) {
	// Exact match first
	if producer != nil && vintage != nil {
		wine, err := s.matchOne(
			s.db.Where("LOWER(name) = LOWER(?) AND LOWER(producer) = LOWER(?) AND vintage = ?",
				name, *producer, *vintage))
		if wine != nil || err != nil {
			return wine, err
		}
	}

	// Try name + vintage
	if vintage != nil {
		wine, err := s.matchOne(
			s.db.Where("LOWER(name) = LOWER(?) AND vintage = ?", name, *vintage))
		if wine != nil || err != nil {
			return wine, err
		}
	}

	// Try name + producer
	if producer != nil {
		wine, err := s.matchOne(
			s.db.Where("LOWER(name) = LOWER(?) AND LOWER(producer) = LOWER(?)", name, *producer))
		if wine != nil || err != nil {
			return wine, err
		}
	}

	// Fuzzy match on name containing the extracted name
	fuzzyVintage := 0
	if vintage != nil {
		fuzzyVintage = *vintage
	}
	return s.matchOne(
		s.db.Where("LOWER(name) LIKE LOWER(?)", "%"+name+"%").
			Order(fmt.Sprintf("CASE WHEN vintage = %d THEN 0 ELSE 1 END", fuzzyVintage)).
			Order("created_at DESC"))
}

func (s *WineService) matchOne(query *gorm.DB) (*models.Wine, error) {
	var wine models.Wine
	if err := query.First(&wine).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &wine, nil
}

// IncrementQuantity applies delta to a wine's bottle count as a single UPDATE
// statement, so concurrent callers cannot interleave a read-modify-write.
// Returns false when no row has that id.
func (s *WineService) IncrementQuantity(id uint, delta int) (bool, error) {
	result := s.db.Model(&models.Wine{}).Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", delta),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to update quantity: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return false, nil
	}

	s.invalidateStats()
	return true, nil
}

type CountryCount struct {
	Country string `json:"country"`
	Count   int64  `json:"count"`
}

type StyleCount struct {
	Style string `json:"style"`
	Count int64  `json:"count"`
}

type CollectionStats struct {
	TotalBottles   int64          `json:"total_bottles"`
	TotalWines     int64          `json:"total_wines"`
	ByCountry      []CountryCount `json:"by_country"`
	ByStyle        []StyleCount   `json:"by_style"`
	ReadyToDrink   int64          `json:"ready_to_drink"`
	NeedsCellaring int64          `json:"needs_cellaring"`
}

// Stats aggregates the collection. Results are cached briefly and the cache
// is dropped on every mutation, so the figures are at most one minute stale.
func (s *WineService) Stats() (*CollectionStats, error) {
	if cached, found := s.cache.Get(statsCacheKey); found {
		if stats, ok := cached.(*CollectionStats); ok {
			return stats, nil
		}
	}

	stats := &CollectionStats{
		ByCountry: []CountryCount{},
		ByStyle:   []StyleCount{},
	}
	currentYear := time.Now().Year()

	// Total bottles
	if err := s.db.Model(&models.Wine{}).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&stats.TotalBottles).Error; err != nil {
		return nil, fmt.Errorf("failed to count bottles: %w", err)
	}

	// Total unique wines
	if err := s.db.Model(&models.Wine{}).Count(&stats.TotalWines).Error; err != nil {
		return nil, fmt.Errorf("failed to count wines: %w", err)
	}

	// Bottles by country
	if err := s.db.Model(&models.Wine{}).
		Select("country, SUM(quantity) as count").
		Where("country IS NOT NULL").
		Group("country").
		Order("count DESC").
		Scan(&stats.ByCountry).Error; err != nil {
		return nil, fmt.Errorf("failed to group by country: %w", err)
	}

	// Bottles by style
	if err := s.db.Model(&models.Wine{}).
		Select("style, SUM(quantity) as count").
		Where("style IS NOT NULL").
		Group("style").
		Order("count DESC").
		Scan(&stats.ByStyle).Error; err != nil {
		return nil, fmt.Errorf("failed to group by style: %w", err)
	}

	// Ready to drink
	if err := s.db.Model(&models.Wine{}).
		Where("drinking_window_start <= ? AND drinking_window_end >= ?", currentYear, currentYear).
		Count(&stats.ReadyToDrink).Error; err != nil {
		return nil, fmt.Errorf("failed to count ready to drink: %w", err)
	}

	// Needs cellaring
	if err := s.db.Model(&models.Wine{}).
		Where("drinking_window_start > ?", currentYear).
		Count(&stats.NeedsCellaring).Error; err != nil {
		return nil, fmt.Errorf("failed to count needs cellaring: %w", err)
	}

	s.cache.Set(statsCacheKey, stats, cache.DefaultExpiration)
	return stats, nil
}

func (s *WineService) invalidateStats() {
	s.cache.Delete(statsCacheKey)
}

func toWineStyle(s *string) *models.WineStyle {
	if s == nil {
		return nil
	}
	style := models.WineStyle(*s)
	return &style
}
