package draft

import (
	"sync"

	"github.com/google/uuid"
	"github.com/hawraz/carsell-flow/internal/marketplace"
	"github.com/rs/zerolog/log"
)

// Image count bounds for the photo step. Fewer than MinImages gives the
// vision model too little to work with; more than MaxImages is rejected
// by the backend.
const (
	MinImages = 4
	MaxImages = 10
)

// Confidence labels for AI detection results.
const (
	ConfidenceHigh   = "HIGH"
	ConfidenceMedium = "MEDIUM"
	ConfidenceLow    = "LOW"
)

// ConfidenceLabel maps a raw confidence score to its label.
// 0.7 and above is HIGH, 0.4 up to 0.7 is MEDIUM, below 0.4 is LOW.
func ConfidenceLabel(confidence float64) string {
	switch {
	case confidence >= 0.7:
		return ConfidenceHigh
	case confidence >= 0.4:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// AIDetection is a committed vision detection result.
type AIDetection struct {
	Make            string         `json:"make,omitempty"`
	Model           string         `json:"model,omitempty"`
	Confidence      float64        `json:"confidence"`
	ConfidenceLabel string         `json:"confidence_label"`
	Raw             map[string]any `json:"raw,omitempty"`
}

// LocalImage is a file selected by the seller but not yet uploaded.
// PreviewPath points at a temporary preview copy and is released when the
// image is removed.
type LocalImage struct {
	ID          string
	FileName    string
	Data        []byte
	MIMEType    string
	PreviewPath string
	IsVideo     bool
}

// Draft is the single source of truth for an in-progress car listing.
//
// Every mutation synchronously writes the persistable subset to the store.
// Local images are excluded from persistence: they hold raw file bytes and
// always start empty after a restart. Once any upload succeeds, images is
// cleared and uploadedImages becomes the source of truth for the grid.
type Draft struct {
	mu      sync.Mutex
	store   Store
	profile string

	draftID        string
	listingID      int64
	images         []LocalImage
	uploadedImages []marketplace.ListingImage
	aiDetection    *AIDetection
	location       *marketplace.Location
	phone          string
	carDetails     map[string]any
}

// New creates a draft container for the given profile, hydrating the
// persisted subset from the store. A nil store disables persistence.
func New(store Store, profile string) *Draft {
	d := &Draft{store: store, profile: profile}

	if store == nil {
		return d
	}
	loaded, err := store.Load(profile)
	if err != nil {
		log.Warn().Err(err).Str("profile", profile).Msg("failed to load persisted draft")
		return d
	}
	if loaded != nil {
		d.draftID = loaded.DraftID
		d.listingID = loaded.ListingID
		d.uploadedImages = loaded.UploadedImages
		d.aiDetection = loaded.AIDetection
		d.location = loaded.Location
		d.phone = loaded.Phone
		d.carDetails = loaded.CarDetails
	}
	return d
}

// persistLocked writes the persistable subset to the store. Caller holds mu.
// Persistence failures are logged, not propagated: the in-memory state is
// still authoritative for the rest of the flow.
func (d *Draft) persistLocked() {
	if d.store == nil {
		return
	}
	err := d.store.Save(d.profile, &PersistedDraft{
		DraftID:        d.draftID,
		ListingID:      d.listingID,
		UploadedImages: d.uploadedImages,
		AIDetection:    d.aiDetection,
		Location:       d.location,
		Phone:          d.phone,
		CarDetails:     d.carDetails,
	})
	if err != nil {
		log.Warn().Err(err).Str("profile", d.profile).Msg("failed to persist draft")
	}
}

// DraftID returns the client-side correlation id, or empty if not minted.
func (d *Draft) DraftID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draftID
}

// EnsureDraftID returns the existing draft id, minting one on first use.
// The existing-value short-circuit guarantees at most one id per draft
// lifetime. The id is never used as a server key; it is superseded by the
// listing id as soon as one exists.
func (d *Draft) EnsureDraftID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.draftID != "" {
		return d.draftID
	}
	d.draftID = "draft-" + uuid.New().String()
	d.persistLocked()
	return d.draftID
}

// ListingID returns the server-assigned listing id, or 0 if none exists.
func (d *Draft) ListingID() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.listingID
}

// SetListingID records the server-assigned listing id.
func (d *Draft) SetListingID(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listingID = id
	d.persistLocked()
}

// Images returns a copy of the local (not yet uploaded) images.
func (d *Draft) Images() []LocalImage {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]LocalImage, len(d.images))
	copy(out, d.images)
	return out
}

// AddImage appends a local image. It is a silent no-op when the draft
// already holds MaxImages local images or an image with the same id.
func (d *Draft) AddImage(img LocalImage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.images) >= MaxImages {
		return
	}
	for _, existing := range d.images {
		if existing.ID == img.ID {
			return
		}
	}
	d.images = append(d.images, img)
	d.persistLocked()
}

// RemoveImage drops a local image by id. No-op if absent.
// Returns the removed image so the caller can release its preview.
func (d *Draft) RemoveImage(id string) (LocalImage, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, img := range d.images {
		if img.ID == id {
			d.images = append(d.images[:i], d.images[i+1:]...)
			d.persistLocked()
			return img, true
		}
	}
	return LocalImage{}, false
}

// UploadedImages returns a copy of the server-confirmed images.
func (d *Draft) UploadedImages() []marketplace.ListingImage {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]marketplace.ListingImage, len(d.uploadedImages))
	copy(out, d.uploadedImages)
	return out
}

// SetUploadedImages replaces the uploaded set wholesale and clears the
// local images. This is the single point where uploaded supersedes local.
func (d *Draft) SetUploadedImages(imgs []marketplace.ListingImage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.uploadedImages = imgs
	d.images = nil
	d.persistLocked()
}

// RemoveUploadedImage drops an uploaded image by server id. No-op if absent.
func (d *Draft) RemoveUploadedImage(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, img := range d.uploadedImages {
		if img.ID == id {
			d.uploadedImages = append(d.uploadedImages[:i], d.uploadedImages[i+1:]...)
			d.persistLocked()
			return
		}
	}
}

// AIDetection returns the committed detection result, or nil.
func (d *Draft) AIDetectionResult() *AIDetection {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.aiDetection
}

// SetAIDetection records (or clears, with nil) the detection result.
func (d *Draft) SetAIDetection(det *AIDetection) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.aiDetection = det
	d.persistLocked()
}

// Location returns the draft's location, or nil.
func (d *Draft) Location() *marketplace.Location {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.location
}

// SetLocation records the draft's location.
func (d *Draft) SetLocation(loc *marketplace.Location) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.location = loc
	d.persistLocked()
}

// Phone returns the seller's phone number.
func (d *Draft) Phone() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phone
}

// SetPhone records the seller's phone number.
func (d *Draft) SetPhone(phone string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.phone = phone
	d.persistLocked()
}

// CarDetails returns the accumulated details form data, or nil.
func (d *Draft) CarDetails() map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.carDetails
}

// SetCarDetails records the details form data.
func (d *Draft) SetCarDetails(details map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.carDetails = details
	d.persistLocked()
}

// VisibleCount returns the grid item count: uploaded images when any
// exist, local images otherwise. The two groups are never summed.
func (d *Draft) VisibleCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.uploadedImages) > 0 {
		return len(d.uploadedImages)
	}
	return len(d.images)
}

// Clear resets all fields except the draft id and removes the persisted
// row. Called after publish or explicit abandonment.
func (d *Draft) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listingID = 0
	d.images = nil
	d.uploadedImages = nil
	d.aiDetection = nil
	d.location = nil
	d.phone = ""
	d.carDetails = nil
	if d.store != nil {
		if err := d.store.Delete(d.profile); err != nil {
			log.Warn().Err(err).Str("profile", d.profile).Msg("failed to delete persisted draft")
		}
	}
	log.Info().Str("profile", d.profile).Msg("draft cleared")
}
