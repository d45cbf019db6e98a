package marketplace

import "context"

// ListingService abstracts the marketplace listing API operations used by
// the sell flow. This interface allows for easy mocking in tests.
type ListingService interface {
	// CreateDraftListing creates a server-side draft listing and returns its id.
	CreateDraftListing(ctx context.Context, req CreateDraftRequest) (int64, error)

	// UploadListingImages uploads a batch of images to the draft listing.
	UploadListingImages(ctx context.Context, listingID int64, images []ImageUpload) (*UploadImagesResponse, error)

	// DeleteListingImage removes a single uploaded image from the listing.
	DeleteListingImage(ctx context.Context, listingID, imageID int64) error

	// DetectCarVision detects make/model from image payloads.
	DetectCarVision(ctx context.Context, images []ImageUpload) (*VisionResult, error)

	// GetListing fetches a listing by id.
	GetListing(ctx context.Context, listingID int64) (*Listing, error)

	// UpdateDraftListing PATCHes partial fields onto the draft listing.
	UpdateDraftListing(ctx context.Context, listingID int64, fields map[string]any) error

	// UpdateUserOverrides records user-changed AI prefills.
	UpdateUserOverrides(ctx context.Context, listingID int64, overrides UserOverrides) error

	// PublishListing moves the draft to published state.
	PublishListing(ctx context.Context, listingID int64) error

	// GetMakes returns the known car makes.
	GetMakes(ctx context.Context) ([]string, error)

	// GetModels returns the known models for a make.
	GetModels(ctx context.Context, makeName string) ([]string, error)
}

// Ensure Client implements ListingService
var _ ListingService = (*Client)(nil)
