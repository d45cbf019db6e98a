package marketplace

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL = "http://localhost:8000"

	// defaultTimeout covers normal CRUD calls. Vision inference goes
	// through a separate client with visionTimeout, matching the backend's
	// model loading latency.
	defaultTimeout = 10 * time.Second
	visionTimeout  = 120 * time.Second
)

// ClientOpts configures a marketplace API client.
type ClientOpts struct {
	BaseURL string
	Auth    string // bearer token, optional
}

// Client talks to the marketplace backend API.
type Client struct {
	httpClient   *resty.Client
	visionClient *resty.Client
	baseURL      string
	auth         string
}

// NewClient creates a marketplace API client.
func NewClient(opts ClientOpts) *Client {
	c := Client{baseURL: DefaultBaseURL}
	if opts.BaseURL != "" {
		c.baseURL = opts.BaseURL
	}
	if opts.Auth != "" {
		c.auth = opts.Auth
	}

	headers := map[string]string{
		"Accept": "application/json",
	}
	c.httpClient = resty.New().
		SetBaseURL(c.baseURL).
		SetTimeout(defaultTimeout).
		SetHeaders(headers)
	c.visionClient = resty.New().
		SetBaseURL(c.baseURL).
		SetTimeout(visionTimeout).
		SetHeaders(headers)

	return &c
}

func (c *Client) req(ctx context.Context, client *resty.Client, result any) *resty.Request {
	request := client.
		NewRequest().
		SetContext(ctx)

	if c.auth != "" {
		request.SetHeader("Authorization", "Bearer "+c.auth)
	}
	if result != nil {
		request.SetResult(result)
	}

	return request
}

// CreateDraftListing creates a server-side draft listing for the given
// location and returns its id. The id is the authoritative key for all
// later image and detail updates.
func (c *Client) CreateDraftListing(ctx context.Context, req CreateDraftRequest) (int64, error) {
	result := &CreateDraftResponse{}

	_, err := handleError(c.req(ctx, c.httpClient, result).
		SetBody(req).
		Post("/api/marketplace/listings/draft"))
	if err != nil {
		return 0, fmt.Errorf("create draft listing: %w", err)
	}

	log.Info().Int64("listingId", result.ListingID).Msg("draft listing created")
	return result.ListingID, nil
}

// ImageUpload is one file in an image upload batch.
type ImageUpload struct {
	FileName string
	Data     []byte
}

// UploadListingImages uploads a batch of images to the draft listing as a
// single multipart request. The response carries parallel arrays of
// server-assigned ids and URLs.
func (c *Client) UploadListingImages(ctx context.Context, listingID int64, images []ImageUpload) (*UploadImagesResponse, error) {
	result := &UploadImagesResponse{}

	request := c.req(ctx, c.httpClient, result).
		SetPathParams(map[string]string{"listingId": strconv.FormatInt(listingID, 10)})
	for _, img := range images {
		request.SetMultipartField("images", img.FileName, "application/octet-stream", bytes.NewReader(img.Data))
	}

	_, err := handleError(request.Post("/api/marketplace/listings/{listingId}/images"))
	if err != nil {
		return nil, fmt.Errorf("upload listing images: %w", err)
	}

	log.Info().
		Int64("listingId", listingID).
		Int("count", len(result.ImageIDs)).
		Msg("images uploaded")
	return result, nil
}

// DeleteListingImage removes a single uploaded image from the listing.
func (c *Client) DeleteListingImage(ctx context.Context, listingID, imageID int64) error {
	_, err := handleError(c.req(ctx, c.httpClient, nil).
		SetPathParams(map[string]string{
			"listingId": strconv.FormatInt(listingID, 10),
			"imageId":   strconv.FormatInt(imageID, 10),
		}).
		Delete("/api/marketplace/listings/{listingId}/images/{imageId}"))
	if err != nil {
		return fmt.Errorf("delete listing image: %w", err)
	}
	return nil
}

// DetectCarVision sends image payloads to the vision detection endpoint.
// Transport failures and timeouts are converted to an in-band error result
// so callers handle every failed detection the same way.
func (c *Client) DetectCarVision(ctx context.Context, images []ImageUpload) (*VisionResult, error) {
	req := VisionRequest{Images: make([]VisionImage, 0, len(images))}
	for _, img := range images {
		req.Images = append(req.Images, VisionImage{
			Data:      base64.StdEncoding.EncodeToString(img.Data),
			MediaType: sniffImageMediaType(img.Data),
		})
	}

	result := &VisionResult{}
	_, err := handleError(c.req(ctx, c.visionClient, result).
		SetBody(req).
		Post("/api/ai/detect-car-vision"))
	if err != nil {
		log.Warn().Err(err).Msg("vision detection failed")
		msg := err.Error()
		var netErr net.Error
		if (errors.As(err, &netErr) && netErr.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
			msg = "Detection timed out. Please try again."
		}
		return &VisionResult{Error: msg}, nil
	}

	log.Info().
		Str("make", result.Make).
		Str("model", result.Model).
		Float64("confidence", result.Confidence).
		Msg("vision detection response")
	return result, nil
}

// GetListing fetches a listing by id, including its images and contact
// fields. Used for edit-mode prefill.
func (c *Client) GetListing(ctx context.Context, listingID int64) (*Listing, error) {
	result := &Listing{}

	_, err := handleError(c.req(ctx, c.httpClient, result).
		SetPathParams(map[string]string{"listingId": strconv.FormatInt(listingID, 10)}).
		Get("/api/marketplace/listings/{listingId}"))
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}

	return result, nil
}

// UpdateDraftListing PATCHes partial fields onto the draft listing.
func (c *Client) UpdateDraftListing(ctx context.Context, listingID int64, fields map[string]any) error {
	_, err := handleError(c.req(ctx, c.httpClient, nil).
		SetPathParams(map[string]string{"listingId": strconv.FormatInt(listingID, 10)}).
		SetBody(fields).
		Patch("/api/marketplace/listings/{listingId}"))
	if err != nil {
		return fmt.Errorf("update draft listing: %w", err)
	}
	return nil
}

// UpdateUserOverrides records which AI-prefilled fields the seller changed.
func (c *Client) UpdateUserOverrides(ctx context.Context, listingID int64, overrides UserOverrides) error {
	body := map[string]any{
		"selected_by_user": overrides,
		"user_overrode":    true,
	}
	_, err := handleError(c.req(ctx, c.httpClient, nil).
		SetPathParams(map[string]string{"listingId": strconv.FormatInt(listingID, 10)}).
		SetBody(body).
		Put("/api/marketplace/listings/{listingId}/user-overrides"))
	if err != nil {
		return fmt.Errorf("update user overrides: %w", err)
	}
	return nil
}

// PublishListing moves the draft to published state.
func (c *Client) PublishListing(ctx context.Context, listingID int64) error {
	_, err := handleError(c.req(ctx, c.httpClient, nil).
		SetPathParams(map[string]string{"listingId": strconv.FormatInt(listingID, 10)}).
		Put("/api/marketplace/listings/{listingId}/publish"))
	if err != nil {
		return fmt.Errorf("publish listing: %w", err)
	}

	log.Info().Int64("listingId", listingID).Msg("listing published")
	return nil
}

// GetMakes returns the known car makes for the details form.
func (c *Client) GetMakes(ctx context.Context) ([]string, error) {
	var result []string

	_, err := handleError(c.req(ctx, c.httpClient, &result).
		Get("/api/makes"))
	if err != nil {
		return nil, fmt.Errorf("get makes: %w", err)
	}

	return result, nil
}

// GetModels returns the known models for a make.
func (c *Client) GetModels(ctx context.Context, makeName string) ([]string, error) {
	var result []string

	_, err := handleError(c.req(ctx, c.httpClient, &result).
		SetPathParam("make", makeName).
		Get("/api/makes/{make}/models"))
	if err != nil {
		return nil, fmt.Errorf("get models: %w", err)
	}

	return result, nil
}

// sniffImageMediaType returns the media type for image bytes, falling back
// to image/jpeg for anything unrecognized (the backend does the same).
func sniffImageMediaType(data []byte) string {
	switch {
	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}):
		return "image/png"
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "image/webp"
	case len(data) >= 3 && bytes.Equal(data[:3], []byte{0xff, 0xd8, 0xff}):
		return "image/jpeg"
	default:
		return "image/jpeg"
	}
}

// handleError is a generic error handler for failing responses (>399
// status code). Without this, failing responses would have nil error.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if res.IsError() {
		return res, fmt.Errorf("request failed: %s %s (status: %d)", res.Request.Method, res.Request.URL, res.StatusCode())
	}

	return res, nil
}
