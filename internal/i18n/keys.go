// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Wines
	KeyWineCreated        = "wine.created"
	KeyWineUpdated        = "wine.updated"
	KeyWineDeleted        = "wine.deleted"
	KeyWineNotFound       = "wine.not_found"
	KeyWineNoChanges      = "wine.no_changes"
	KeyWineNameRequired   = "wine.name_required"
	KeyWineDeleteFailed   = "wine.delete_failed"
	KeyWineNoDataProvided = "wine.no_data_provided"

	// Label scanning
	KeyScanNoImage         = "scan.no_image"
	KeyScanNoFileSelected  = "scan.no_file_selected"
	KeyScanInvalidFileType = "scan.invalid_file_type"
	KeyScanFileTooLarge    = "scan.file_too_large"
	KeyScanProcessFailed   = "scan.process_failed"
	KeyScanNotInCollection = "scan.not_in_collection"
	KeyScanNoBottlesLeft   = "scan.no_bottles_left"
	KeyScanBottleEnjoyed   = "scan.bottle_enjoyed"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"
	KeyValidationFailed   = "validation.failed"

	// Rate limiting
	KeyRateLimitExceeded = "rate_limit.exceeded"
)
