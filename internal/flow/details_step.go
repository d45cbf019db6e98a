package flow

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/hawraz/carsell-flow/internal/draft"
	"github.com/hawraz/carsell-flow/internal/marketplace"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DetailsForm is the prefilled state for the car details step. Values
// holds the prefill keyed by field name (make, model, color, year).
type DetailsForm struct {
	Makes  []string
	Models []string
	Values map[string]string

	// AIDetected reports whether the prefill came from vision detection;
	// ConfidenceLabel carries its confidence then.
	AIDetected      bool
	ConfidenceLabel string
}

// LoadDetailsForm fetches the selectable makes and the prefill for the
// details step. The vision detection result wins; without one the current
// server-side listing fields are used (this covers edit mode and resumed
// drafts). Fetch failures degrade to an empty form rather than blocking
// manual entry.
func (f *Flow) LoadDetailsForm(ctx context.Context) (*DetailsForm, error) {
	form := &DetailsForm{Values: make(map[string]string)}

	det := f.draft.AIDetectionResult()
	listingID := f.draft.ListingID()

	var listing *marketplace.Listing
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		makes, err := f.svc.GetMakes(gctx)
		if err != nil {
			log.Warn().Err(err).Msg("failed to load makes")
			return nil
		}
		form.Makes = makes
		return nil
	})
	if det == nil && listingID != 0 {
		g.Go(func() error {
			l, err := f.svc.GetListing(gctx, listingID)
			if err != nil {
				log.Warn().Err(err).Int64("listingId", listingID).Msg("failed to load listing for prefill")
				return nil
			}
			listing = l
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	switch {
	case det != nil:
		setIfPresent(form.Values, "make", det.Make)
		setIfPresent(form.Values, "model", det.Model)
		form.AIDetected = det.Make != "" || det.Model != ""
		form.ConfidenceLabel = det.ConfidenceLabel
	case listing != nil:
		setIfPresent(form.Values, "make", listing.Make)
		setIfPresent(form.Values, "model", listing.Model)
		setIfPresent(form.Values, "color", listing.Color)
		if listing.Year != 0 {
			form.Values["year"] = strconv.Itoa(listing.Year)
		}
	}

	f.mu.Lock()
	for k, v := range form.Values {
		f.aiPrefilled[k] = v
	}
	f.mu.Unlock()

	if makeName := form.Values["make"]; makeName != "" && slices.Contains(form.Makes, makeName) {
		models, err := f.svc.GetModels(ctx, makeName)
		if err != nil {
			log.Warn().Err(err).Str("make", makeName).Msg("failed to load models")
		} else {
			form.Models = models
		}
	}

	return form, nil
}

// Models fetches the selectable models for a make. Failures degrade to an
// empty list so the caller can fall back to free-form entry.
func (f *Flow) Models(ctx context.Context, makeName string) []string {
	if makeName == "" {
		return nil
	}
	models, err := f.svc.GetModels(ctx, makeName)
	if err != nil {
		log.Warn().Err(err).Str("make", makeName).Msg("failed to load models")
		return nil
	}
	return models
}

func setIfPresent(values map[string]string, key, value string) {
	if value != "" {
		values[key] = value
	}
}

// RecordOverride notes that the seller changed a prefilled field and saves
// the accumulated override set server-side. Fields the seller typed from
// scratch are not overrides. Save failures are logged only.
func (f *Flow) RecordOverride(ctx context.Context, field, value string) {
	f.mu.Lock()
	prefilled, ok := f.aiPrefilled[field]
	if !ok || prefilled == value {
		f.mu.Unlock()
		return
	}
	f.overrides[field] = value
	overrides := marketplace.UserOverrides{
		Make:  f.overrides["make"],
		Model: f.overrides["model"],
		Color: f.overrides["color"],
		Year:  f.overrides["year"],
	}
	f.mu.Unlock()

	listingID := f.draft.ListingID()
	if listingID == 0 {
		return
	}
	if err := f.svc.UpdateUserOverrides(ctx, listingID, overrides); err != nil {
		log.Warn().Err(err).Int64("listingId", listingID).Str("field", field).Msg("failed to save user overrides")
	}
}

// SubmitDetails commits the car details and patches the server-side draft
// with them plus the location.
func (f *Flow) SubmitDetails(ctx context.Context, details map[string]any) error {
	f.draft.SetCarDetails(details)
	f.mirror(draft.KeyCarDetails, details)

	listingID := f.draft.ListingID()
	loc := f.draft.Location()
	if listingID == 0 || loc == nil {
		return nil
	}

	fields := make(map[string]any, len(details)+3)
	for k, v := range details {
		fields[k] = v
	}
	fields["location_country"] = loc.Country
	fields["location_state"] = loc.State
	fields["location_city"] = loc.City

	if err := f.svc.UpdateDraftListing(ctx, listingID, fields); err != nil {
		return fmt.Errorf("save car details: %w", err)
	}
	return nil
}
