// Package vision runs the photo upload and car detection pipeline for a
// draft listing.
package vision

import (
	"context"

	"github.com/hawraz/carsell-flow/internal/marketplace"
)

// Detector identifies a car's make and model from listing photos.
type Detector interface {
	DetectCar(ctx context.Context, images []marketplace.ImageUpload) (*marketplace.VisionResult, error)
}

// BackendDetector detects via the marketplace backend's vision endpoint.
type BackendDetector struct {
	svc marketplace.ListingService
}

func NewBackendDetector(svc marketplace.ListingService) *BackendDetector {
	return &BackendDetector{svc: svc}
}

func (b *BackendDetector) DetectCar(ctx context.Context, images []marketplace.ImageUpload) (*marketplace.VisionResult, error) {
	return b.svc.DetectCarVision(ctx, images)
}
