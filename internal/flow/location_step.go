package flow

import (
	"errors"

	"github.com/hawraz/carsell-flow/internal/draft"
	"github.com/hawraz/carsell-flow/internal/marketplace"
	"github.com/rs/zerolog/log"
)

// SubmitLocation commits the seller's location and moves the flow to the
// photos step.
//
// In a fresh sell flow, choosing a location invalidates any previously
// created listing: the listing id and uploaded images are reset so the
// photos step starts over. Edit mode keeps the existing listing.
func (f *Flow) SubmitLocation(country, state, city string) error {
	if country == "" || state == "" || city == "" {
		return errors.New(MsgLocationRequired)
	}

	loc := &marketplace.Location{Country: country, State: state, City: city}
	f.draft.SetLocation(loc)
	f.mirror(draft.KeyLocation, loc)

	if !f.editMode() {
		f.draft.SetListingID(0)
		f.draft.SetUploadedImages(nil)
		f.unmirror(draft.KeyListingID)
		f.unmirror(draft.KeyImages)
		f.mu.Lock()
		f.creating = false
		f.mu.Unlock()
	}

	log.Info().
		Str("country", country).
		Str("state", state).
		Str("city", city).
		Bool("edit", f.editMode()).
		Msg("location selected")
	return nil
}
