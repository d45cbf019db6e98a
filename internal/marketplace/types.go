package marketplace

// Location is the place a car is listed from. Country and state come from
// the static lookup tables, city is free text.
type Location struct {
	Country string `json:"country"`
	State   string `json:"state"`
	City    string `json:"city"`
}

// CreateDraftRequest is the body for creating a draft listing.
type CreateDraftRequest struct {
	LocationCountry string `json:"location_country,omitempty"`
	LocationState   string `json:"location_state,omitempty"`
	LocationCity    string `json:"location_city,omitempty"`
}

// CreateDraftResponse is the response from creating a draft listing.
type CreateDraftResponse struct {
	ListingID int64 `json:"listing_id"`
	Success   bool  `json:"success"`
}

// UploadImagesResponse contains the server-assigned ids and URLs for a
// batch of uploaded images. The two slices are parallel arrays.
type UploadImagesResponse struct {
	Success   bool     `json:"success"`
	ImageIDs  []int64  `json:"image_ids"`
	ImageURLs []string `json:"image_urls"`
}

// VisionImage is a single image payload for the vision detection endpoint.
type VisionImage struct {
	Data      string `json:"data"`       // base64-encoded image bytes
	MediaType string `json:"media_type"` // e.g. image/jpeg
}

// VisionRequest is the body for the vision detection endpoint.
type VisionRequest struct {
	Images []VisionImage `json:"images"`
}

// VisionResult is the response from vision-based make/model detection.
// A response with neither make nor model means detection failed; Error
// may carry a server-supplied reason.
type VisionResult struct {
	Make       string  `json:"make,omitempty"`
	Model      string  `json:"model,omitempty"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error,omitempty"`
}

// ListingImage is an image attached to a listing, as returned by GetListing.
type ListingImage struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

// Listing is the listing object returned by GetListing. Only the fields
// the sell flow reads are modeled; the backend returns more.
type Listing struct {
	ID               int64          `json:"id"`
	Make             string         `json:"make"`
	Model            string         `json:"model"`
	Year             int            `json:"year"`
	Trim             string         `json:"trim"`
	Price            float64        `json:"price"`
	Mileage          float64        `json:"mileage"`
	MileageUnit      string         `json:"mileage_unit"`
	Condition        string         `json:"condition"`
	Transmission     string         `json:"transmission"`
	FuelType         string         `json:"fuel_type"`
	Color            string         `json:"color"`
	Features         []string       `json:"features"`
	Description      string         `json:"description"`
	LocationCountry  string         `json:"location_country"`
	LocationState    string         `json:"location_state"`
	LocationCity     string         `json:"location_city"`
	Phone            string         `json:"phone"`
	PhoneCountryCode string         `json:"phone_country_code"`
	ShowPhoneOnly    *bool          `json:"show_phone_to_buyers_only"`
	ContactMethods   []string       `json:"preferred_contact_methods"`
	Availability     string         `json:"availability"`
	ExactAddress     string         `json:"exact_address"`
	Images           []ListingImage `json:"images"`
	Status           string         `json:"status"`
}

// UpdateResponse is the response from PATCH / publish style operations.
type UpdateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// UserOverrides records fields where the seller replaced an AI-prefilled
// value with their own.
type UserOverrides struct {
	Make  string `json:"make,omitempty"`
	Model string `json:"model,omitempty"`
	Color string `json:"color,omitempty"`
	Year  string `json:"year,omitempty"`
}
