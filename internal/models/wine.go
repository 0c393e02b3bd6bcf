// internal/models/wine.go
package models

// Wine is one label in the cellar. Quantity tracks bottles on hand; a wine
// stays in the collection at quantity 0 so its history survives the last
// bottle. Optional columns are pointers so absent values serialize as null.
type Wine struct {
	BaseModel
	Name                string     `json:"name" gorm:"size:255;not null;index"`
	Producer            *string    `json:"producer" gorm:"size:255;index"`
	Vintage             *int       `json:"vintage" gorm:"index"`
	Country             *string    `json:"country" gorm:"size:100;index"`
	Region              *string    `json:"region" gorm:"size:100"`
	Appellation         *string    `json:"appellation" gorm:"size:150"`
	Style               *WineStyle `json:"style" gorm:"type:varchar(20);index"`
	GrapeVarieties      StringList `json:"grape_varieties" gorm:"type:text"`
	AlcoholPercentage   *float64   `json:"alcohol_percentage"`
	Quantity            int        `json:"quantity" gorm:"not null;default:1"`
	DrinkingWindowStart *int       `json:"drinking_window_start"`
	DrinkingWindowEnd   *int       `json:"drinking_window_end"`
	Score               *int       `json:"score"`
	Description         *string    `json:"description" gorm:"type:text"`
	TastingNotes        JSONMap    `json:"tasting_notes" gorm:"type:text"`
	ImagePath           *string    `json:"image_path" gorm:"size:512"`
	StorageKey          *string    `json:"storage_key,omitempty" gorm:"size:512"`
}
