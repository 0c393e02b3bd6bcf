// internal/services/cellar_service_test.go
package services

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agnarsw/cellar-backend/internal/models"
)

// stubAnalyzer returns canned extraction results. Each test sets fresh maps
// because the analyze flow annotates the result it is given.
type stubAnalyzer struct {
	analysis Analysis
	identity Analysis
}

func (s *stubAnalyzer) AnalyzeImage(ctx context.Context, img ImageInput) Analysis {
	return s.analysis
}

func (s *stubAnalyzer) IdentifyImage(ctx context.Context, img ImageInput) Analysis {
	return s.identity
}

func newCellarFixture(t *testing.T) (*CellarService, *WineService, *stubAnalyzer, string) {
	t.Helper()
	storage, dir := newTestStorage(t)
	wines := NewWineService(newTestDB(t), storage)
	stub := &stubAnalyzer{}
	return NewCellarService(stub, wines, storage), wines, stub, dir
}

func dirEntryCount(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestAnalyzeBottleReturnsValidatedExtraction(t *testing.T) {
	svc, _, stub, dir := newCellarFixture(t)
	stub.analysis = Analysis{
		"name":     "Barolo Riserva",
		"producer": "Conterno",
		"vintage":  float64(2015),
		"style":    "Red",
		"score":    float64(300), // out of range, must degrade to null
	}

	result, err := svc.AnalyzeBottle(context.Background(), []byte("fake-image"), "label.jpg")
	require.NoError(t, err)

	assert.Equal(t, "Barolo Riserva", result["name"])
	assert.Equal(t, "Red", result["style"])
	assert.Nil(t, result["score"])

	// The photo is stored and referenced on the result
	path, ok := result["image_path"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(path, "uploads/"))
	assert.True(t, strings.HasSuffix(path, ".jpg"))
	assert.Equal(t, 1, dirEntryCount(t, dir))

	// Nothing in the cellar yet, so no duplicate annotation
	assert.NotContains(t, result, "existing_wine")
	assert.NotContains(t, result, "is_duplicate")
}

func TestAnalyzeBottleFlagsDuplicate(t *testing.T) {
	svc, wines, stub, _ := newCellarFixture(t)
	seeded := seedWine(t, wines, models.Wine{
		Name:     "Barolo Riserva",
		Producer: ptr("Conterno"),
		Vintage:  ptr(2015),
		Quantity: 3,
	})

	stub.analysis = Analysis{
		"name":     "barolo riserva", // matcher is case-insensitive
		"producer": "Conterno",
		"vintage":  float64(2015),
	}

	result, err := svc.AnalyzeBottle(context.Background(), []byte("fake-image"), "label.jpg")
	require.NoError(t, err)

	assert.Equal(t, true, result["is_duplicate"])
	existing, ok := result["existing_wine"].(*models.Wine)
	require.True(t, ok)
	assert.Equal(t, seeded.ID, existing.ID)
}

func TestAnalyzeBottleKeepsImageOnExtractionError(t *testing.T) {
	svc, _, stub, dir := newCellarFixture(t)
	stub.analysis = Analysis{"error": "API error: overloaded"}

	result, err := svc.AnalyzeBottle(context.Background(), []byte("fake-image"), "label.png")
	require.NoError(t, err)

	msg, failed := result.ErrorMessage()
	assert.True(t, failed)
	assert.Equal(t, "API error: overloaded", msg)

	// Failed scans still keep their photo around
	assert.Contains(t, result, "image_path")
	assert.Equal(t, 1, dirEntryCount(t, dir))
	assert.NotContains(t, result, "is_duplicate")
}

func TestAnalyzeBottleAnyErrorKeySkipsMatching(t *testing.T) {
	svc, wines, stub, _ := newCellarFixture(t)
	seedWine(t, wines, models.Wine{Name: "Rioja", Quantity: 1})

	// An error key with an empty value still marks the extraction failed;
	// without a name, matching would fuzzy-hit the whole cellar
	stub.analysis = Analysis{"error": ""}

	result, err := svc.AnalyzeBottle(context.Background(), []byte("fake-image"), "label.jpg")
	require.NoError(t, err)

	assert.NotContains(t, result, "is_duplicate")
	assert.NotContains(t, result, "existing_wine")
}

func TestAnalyzeBottleSkipsMatchingWhenClarificationNeeded(t *testing.T) {
	svc, wines, stub, _ := newCellarFixture(t)
	seedWine(t, wines, models.Wine{Name: "Santenay", Producer: ptr("Dujac"), Quantity: 1})

	stub.analysis = Analysis{
		"name":                    "Santenay",
		"producer":                "Dujac",
		"needs_clarification":     true,
		"clarification_questions": []interface{}{"Is this wine red or white?"},
	}

	result, err := svc.AnalyzeBottle(context.Background(), []byte("fake-image"), "label.jpg")
	require.NoError(t, err)

	// An uncertain extraction must not be presented as a duplicate
	assert.NotContains(t, result, "existing_wine")
	assert.Equal(t, true, result["needs_clarification"])
}

func TestAnalyzeBottleSkipsMatchingOnTruthyClarificationFlag(t *testing.T) {
	svc, wines, stub, _ := newCellarFixture(t)
	seedWine(t, wines, models.Wine{Name: "Santenay", Producer: ptr("Dujac"), Quantity: 1})

	// Models sometimes flag clarification with 1 instead of true
	stub.analysis = Analysis{
		"name":                "Santenay",
		"producer":            "Dujac",
		"needs_clarification": float64(1),
	}

	result, err := svc.AnalyzeBottle(context.Background(), []byte("fake-image"), "label.jpg")
	require.NoError(t, err)

	assert.NotContains(t, result, "existing_wine")
	assert.Equal(t, true, result["needs_clarification"])
}

func TestDrinkBottleSuccess(t *testing.T) {
	svc, wines, stub, dir := newCellarFixture(t)
	seeded := seedWine(t, wines, models.Wine{
		Name:     "Chablis Les Clos",
		Producer: ptr("Dauvissat"),
		Vintage:  ptr(2020),
		Quantity: 2,
	})

	stub.identity = Analysis{
		"name":     "Chablis Les Clos",
		"producer": "Dauvissat",
		"vintage":  float64(2020),
	}

	result, err := svc.DrinkBottle(context.Background(), []byte("fake-image"), "bottle.jpg")
	require.NoError(t, err)

	assert.Equal(t, DrinkSuccess, result.Outcome)
	assert.Equal(t, 2, result.PreviousQuantity)
	assert.Equal(t, 1, result.NewQuantity)
	assert.Equal(t, seeded.ID, result.Wine.ID)

	stored, err := wines.GetByID(seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Quantity)

	// Drinking does not archive the photo
	assert.Equal(t, 0, dirEntryCount(t, dir))
}

func TestDrinkBottleIdentifyFailure(t *testing.T) {
	svc, _, stub, _ := newCellarFixture(t)
	stub.identity = Analysis{"error": "Cannot identify wine"}

	result, err := svc.DrinkBottle(context.Background(), []byte("fake-image"), "bottle.jpg")
	require.NoError(t, err)

	assert.Equal(t, DrinkIdentifyFailed, result.Outcome)
	msg, _ := result.Identified.ErrorMessage()
	assert.Equal(t, "Cannot identify wine", msg)
	assert.Nil(t, result.Wine)
}

func TestDrinkBottleNonStringErrorFailsIdentify(t *testing.T) {
	svc, wines, stub, _ := newCellarFixture(t)
	seeded := seedWine(t, wines, models.Wine{Name: "Rioja", Quantity: 2})

	stub.identity = Analysis{"error": float64(500)}

	result, err := svc.DrinkBottle(context.Background(), []byte("fake-image"), "bottle.jpg")
	require.NoError(t, err)

	assert.Equal(t, DrinkIdentifyFailed, result.Outcome)

	// No bottle is decremented on a failed identification
	stored, err := wines.GetByID(seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Quantity)
}

func TestDrinkBottleUnknownWine(t *testing.T) {
	svc, wines, stub, _ := newCellarFixture(t)
	seedWine(t, wines, models.Wine{Name: "Rioja", Quantity: 5})

	stub.identity = Analysis{"name": "Screaming Eagle", "vintage": float64(2019)}

	result, err := svc.DrinkBottle(context.Background(), []byte("fake-image"), "bottle.jpg")
	require.NoError(t, err)

	assert.Equal(t, DrinkNotFound, result.Outcome)
	assert.Equal(t, "Screaming Eagle", result.Identified["name"])
	assert.Nil(t, result.Wine)
}

func TestDrinkBottleWithoutName(t *testing.T) {
	svc, _, stub, _ := newCellarFixture(t)
	stub.identity = Analysis{"producer": "Someone"}

	result, err := svc.DrinkBottle(context.Background(), []byte("fake-image"), "bottle.jpg")
	require.NoError(t, err)

	assert.Equal(t, DrinkNotFound, result.Outcome)
}

func TestDrinkBottleNoBottlesLeft(t *testing.T) {
	svc, wines, stub, _ := newCellarFixture(t)
	seeded := seedWine(t, wines, models.Wine{Name: "Empty Red", Quantity: 0})

	stub.identity = Analysis{"name": "Empty Red"}

	result, err := svc.DrinkBottle(context.Background(), []byte("fake-image"), "bottle.jpg")
	require.NoError(t, err)

	assert.Equal(t, DrinkNoBottlesLeft, result.Outcome)
	require.NotNil(t, result.Wine)
	assert.Equal(t, seeded.ID, result.Wine.ID)

	stored, err := wines.GetByID(seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Quantity)
}

func TestDrinkBottleZeroVintageDoesNotPinMatch(t *testing.T) {
	svc, wines, stub, _ := newCellarFixture(t)
	seeded := seedWine(t, wines, models.Wine{
		Name:     "House Red",
		Producer: ptr("Somebody"),
		Quantity: 1,
	})

	// A zero vintage means "non-vintage", so matching proceeds on
	// name + producer instead of failing the vintage tiers
	stub.identity = Analysis{
		"name":     "House Red",
		"producer": "Somebody",
		"vintage":  float64(0),
	}

	result, err := svc.DrinkBottle(context.Background(), []byte("fake-image"), "bottle.jpg")
	require.NoError(t, err)

	assert.Equal(t, DrinkSuccess, result.Outcome)
	assert.Equal(t, seeded.ID, result.Wine.ID)
}
