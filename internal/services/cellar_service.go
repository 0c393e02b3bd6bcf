// internal/services/cellar_service.go
package services

import (
	"context"
	"encoding/base64"

	"github.com/sirupsen/logrus"

	"github.com/agnarsw/cellar-backend/internal/models"
)

// DrinkOutcome says how a drink-a-bottle request resolved. Only
// DrinkSuccess mutates the cellar.
type DrinkOutcome string

const (
	DrinkSuccess        DrinkOutcome = "success"
	DrinkIdentifyFailed DrinkOutcome = "identify_failed"
	DrinkNotFound       DrinkOutcome = "not_found"
	DrinkNoBottlesLeft  DrinkOutcome = "no_bottles_left"
)

type DrinkResult struct {
	Outcome          DrinkOutcome
	Identified       Analysis
	Wine             *models.Wine
	PreviousQuantity int
	NewQuantity      int
}

// CellarService orchestrates the two photo-driven flows: analyzing a label
// into a draft record and drinking a bottle of an existing wine. It composes
// the extraction oracle, the validator, the wine store, and image storage.
type CellarService struct {
	analyzer       LabelAnalyzer
	wineService    *WineService
	storageService *StorageService
}

func NewCellarService(analyzer LabelAnalyzer, wineService *WineService, storageService *StorageService) *CellarService {
	return &CellarService{
		analyzer:       analyzer,
		wineService:    wineService,
		storageService: storageService,
	}
}

// AnalyzeBottle runs the full extraction on a label photo and returns the
// validated result, annotated with the stored image reference and, when a
// cellar entry already matches, the duplicate it found. An error-shaped
// extraction comes back as-is (plus the image reference): the caller decides
// what to tell the user, the transport never sees it as a failure.
func (s *CellarService) AnalyzeBottle(ctx context.Context, content []byte, filename string) (Analysis, error) {
	raw := s.analyzer.AnalyzeImage(ctx, imageFromUpload(content, filename))
	cleaned := ValidateWineData(raw)

	// Keep the photo regardless of what the oracle said; failed scans are
	// still worth a second look.
	saved, err := s.storageService.SaveLabelImage(content, filename)
	if err != nil {
		logrus.WithError(err).Warn("Failed to persist label image")
	} else if saved != nil {
		cleaned["image_path"] = saved.Path
		if saved.Key != "" {
			cleaned["storage_key"] = saved.Key
		}
	}

	// Probe for an existing entry unless the extraction failed or wants
	// clarification first
	if _, failed := cleaned.ErrorMessage(); !failed && !cleaned.NeedsClarification() {
		name, _ := cleaned.StringField("name")
		producer, vintage := matchFields(cleaned)

		existing, err := s.wineService.FindMatching(name, producer, vintage)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			cleaned["existing_wine"] = existing
			cleaned["is_duplicate"] = true
		}
	}

	return cleaned, nil
}

// DrinkBottle identifies the wine on a photo and, when it matches a cellar
// entry with bottles on hand, decrements the quantity by exactly one.
func (s *CellarService) DrinkBottle(ctx context.Context, content []byte, filename string) (*DrinkResult, error) {
	identified := s.analyzer.IdentifyImage(ctx, imageFromUpload(content, filename))
	if _, failed := identified.ErrorMessage(); failed {
		return &DrinkResult{Outcome: DrinkIdentifyFailed, Identified: identified}, nil
	}

	name, ok := identified.StringField("name")
	if !ok {
		// No name and no in-band error; nothing sane to match against
		return &DrinkResult{Outcome: DrinkNotFound, Identified: identified}, nil
	}
	producer, vintage := matchFields(identified)

	existing, err := s.wineService.FindMatching(name, producer, vintage)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return &DrinkResult{Outcome: DrinkNotFound, Identified: identified}, nil
	}

	if existing.Quantity <= 0 {
		return &DrinkResult{Outcome: DrinkNoBottlesLeft, Identified: identified, Wine: existing}, nil
	}

	if _, err := s.wineService.IncrementQuantity(existing.ID, -1); err != nil {
		return nil, err
	}

	updated, err := s.wineService.GetByID(existing.ID)
	if err != nil {
		return nil, err
	}

	return &DrinkResult{
		Outcome:          DrinkSuccess,
		Identified:       identified,
		Wine:             updated,
		PreviousQuantity: existing.Quantity,
		NewQuantity:      updated.Quantity,
	}, nil
}

func imageFromUpload(content []byte, filename string) ImageInput {
	return ImageInput{
		Base64:    base64.StdEncoding.EncodeToString(content),
		MediaType: MediaTypeForFilename(filename),
	}
}

// matchFields pulls the matcher inputs out of an extraction result. A zero
// vintage counts as absent so a non-vintage wine never pins the vintage
// tiers.
func matchFields(a Analysis) (producer *string, vintage *int) {
	if p, ok := a.StringField("producer"); ok {
		producer = &p
	}
	if v, ok := a.IntField("vintage"); ok && v != 0 {
		vintage = &v
	}
	return producer, vintage
}
