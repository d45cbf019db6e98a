package flow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hawraz/carsell-flow/internal/draft"
	"github.com/hawraz/carsell-flow/internal/marketplace"
	"github.com/hawraz/carsell-flow/internal/vision"
	"github.com/rs/zerolog/log"
)

// EnsureListing creates the server-side draft listing once per flow.
//
// A guard flag keeps concurrent or repeated calls from creating duplicate
// listings; the flag is reset when creation fails so the step can retry.
func (f *Flow) EnsureListing(ctx context.Context) error {
	f.mu.Lock()
	if f.creating || f.draft.ListingID() != 0 {
		f.mu.Unlock()
		return nil
	}
	loc := f.draft.Location()
	if loc == nil || loc.Country == "" || loc.State == "" || loc.City == "" {
		f.mu.Unlock()
		return errors.New(MsgLocationRequired)
	}
	f.creating = true
	f.mu.Unlock()

	id, err := f.svc.CreateDraftListing(ctx, marketplace.CreateDraftRequest{
		LocationCountry: loc.Country,
		LocationState:   loc.State,
		LocationCity:    loc.City,
	})
	if err != nil {
		f.mu.Lock()
		f.creating = false
		f.mu.Unlock()
		return fmt.Errorf("create draft listing: %w", err)
	}

	f.draft.SetListingID(id)
	f.mirrorString(draft.KeyListingID, strconv.FormatInt(id, 10))
	log.Info().Int64("listingId", id).Msg("draft listing created")
	return nil
}

// SubmitPhotos is the photo step's Next action: it validates the visible
// count, then uploads the local images and runs car detection. When the
// images were already uploaded in an earlier pass the step just advances.
func (f *Flow) SubmitPhotos(ctx context.Context) error {
	count := f.grid.Count()
	if count < draft.MinImages {
		return errors.New(MsgMinImages)
	}
	if count > draft.MaxImages {
		return errors.New(MsgMaxImages)
	}
	if f.draft.ListingID() == 0 {
		return errors.New(MsgDraftNotReady)
	}

	if len(f.draft.UploadedImages()) > 0 {
		return nil
	}

	f.notify(MsgAnalyzing)

	locals := f.draft.Images()
	p := vision.NewPipeline(f.draft, f.svc, f.detector, f.store, f.profile)
	if err := p.Run(ctx); err != nil {
		return err
	}

	// The upload succeeded, so the preview copies of the now superseded
	// local images can go.
	f.grid.ReleasePreviews(locals)

	if p.State() == vision.StateError {
		f.notify(p.Failure())
		return nil
	}

	det := f.draft.AIDetectionResult()
	if det != nil {
		f.notify(formatMessage(MsgDetected, det.Make, det.Model, strings.ToLower(det.ConfidenceLabel)))
	}
	return nil
}
