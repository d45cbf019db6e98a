package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/hawraz/carsell-flow/internal/draft"
	"github.com/hawraz/carsell-flow/internal/intake"
	"github.com/hawraz/carsell-flow/internal/marketplace"
	"github.com/hawraz/carsell-flow/internal/vision"
	"github.com/rs/zerolog/log"
)

// Config wires a Flow's collaborators.
type Config struct {
	Draft    *draft.Draft
	Service  marketplace.ListingService
	Detector vision.Detector
	Store    draft.Store
	Profile  string
	Notifier Notifier

	// PreviewDir receives temporary preview copies of selected files.
	// Empty disables previews.
	PreviewDir string

	// EditListingID switches the flow into edit mode for an existing
	// listing. Zero means a fresh sell flow.
	EditListingID int64
}

// Flow runs the sell workflow over a draft. Steps are methods; the caller
// (CLI or test) sequences them.
type Flow struct {
	draft    *draft.Draft
	grid     *intake.Grid
	svc      marketplace.ListingService
	detector vision.Detector
	store    draft.Store
	profile  string
	notifier Notifier

	editListingID int64

	mu          sync.Mutex
	creating    bool
	aiPrefilled map[string]string
	overrides   map[string]string
}

// New creates a flow. In edit mode the existing listing id is adopted into
// the draft so the later steps patch it instead of a fresh listing.
func New(cfg Config) *Flow {
	f := &Flow{
		draft:         cfg.Draft,
		grid:          intake.NewGrid(cfg.Draft, cfg.PreviewDir),
		svc:           cfg.Service,
		detector:      cfg.Detector,
		store:         cfg.Store,
		profile:       cfg.Profile,
		notifier:      cfg.Notifier,
		editListingID: cfg.EditListingID,
		aiPrefilled:   make(map[string]string),
		overrides:     make(map[string]string),
	}
	if cfg.EditListingID != 0 {
		f.draft.SetListingID(cfg.EditListingID)
		f.mirrorString(draft.KeyEditListingID, strconv.FormatInt(cfg.EditListingID, 10))
	}
	return f
}

// LoadEditListing fetches the listing being edited and overlays its saved
// location and uploaded images onto the draft, so the steps resume from the
// listing's current state. Fields the listing does not carry keep whatever
// the draft already holds. No-op outside edit mode.
func (f *Flow) LoadEditListing(ctx context.Context) error {
	if !f.editMode() {
		return nil
	}

	listing, err := f.svc.GetListing(ctx, f.editListingID)
	if err != nil {
		return fmt.Errorf("load listing %d: %w", f.editListingID, err)
	}

	if listing.LocationCountry != "" {
		loc := &marketplace.Location{
			Country: listing.LocationCountry,
			State:   listing.LocationState,
			City:    listing.LocationCity,
		}
		f.draft.SetLocation(loc)
		f.mirror(draft.KeyLocation, loc)
	}
	if len(listing.Images) > 0 {
		f.draft.SetUploadedImages(listing.Images)
		f.mirror(draft.KeyImages, listing.Images)
	}

	log.Info().
		Int64("listingId", listing.ID).
		Int("images", len(listing.Images)).
		Msg("edit listing loaded")
	return nil
}

// Grid exposes the photo intake grid for the photos step UI.
func (f *Flow) Grid() *intake.Grid {
	return f.grid
}

func (f *Flow) editMode() bool {
	return f.editListingID != 0
}

func (f *Flow) notify(text string) {
	if f.notifier != nil {
		f.notifier.Notify(text)
	}
}

// mirror writes a JSON-encoded session value copy. Failures are logged
// only, the draft container remains authoritative.
func (f *Flow) mirror(key string, v any) {
	if f.store == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to encode session value")
		return
	}
	f.mirrorString(key, string(data))
}

func (f *Flow) mirrorString(key, value string) {
	if f.store == nil {
		return
	}
	if err := f.store.SetValue(f.profile, key, value); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to mirror session value")
	}
}

func (f *Flow) unmirror(key string) {
	if f.store == nil {
		return
	}
	if err := f.store.DeleteValue(f.profile, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to delete session value")
	}
}
