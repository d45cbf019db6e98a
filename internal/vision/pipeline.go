package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hawraz/carsell-flow/internal/draft"
	"github.com/hawraz/carsell-flow/internal/marketplace"
	"github.com/rs/zerolog/log"
)

// State is the pipeline's lifecycle phase. The pipeline moves from idle to
// analyzing when started, then settles on done or error.
type State string

const (
	StateIdle      State = "idle"
	StateAnalyzing State = "analyzing"
	StateDone      State = "done"
	StateError     State = "error"
)

// ManualEntryMessage is shown when detection fails and the seller has to
// fill in the car details by hand.
const ManualEntryMessage = "AI couldn't detect car details. Please enter manually."

// Pipeline uploads a draft's local images to the listing and runs car
// detection on them. Upload and detection are separate phases: a detection
// failure never rolls back a completed upload.
type Pipeline struct {
	draft    *draft.Draft
	svc      marketplace.ListingService
	detector Detector
	store    draft.Store
	profile  string

	mu      sync.Mutex
	state   State
	failure string
}

// NewPipeline creates an idle pipeline. store may be nil to skip session
// value mirroring.
func NewPipeline(d *draft.Draft, svc marketplace.ListingService, detector Detector, store draft.Store, profile string) *Pipeline {
	return &Pipeline{
		draft:    d,
		svc:      svc,
		detector: detector,
		store:    store,
		profile:  profile,
		state:    StateIdle,
	}
}

// State returns the current pipeline state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Failure returns the user-facing failure message, or empty when the
// pipeline is not in the error state.
func (p *Pipeline) Failure() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failure
}

func (p *Pipeline) setState(state State, failure string) {
	p.mu.Lock()
	p.state = state
	p.failure = failure
	p.mu.Unlock()
}

// Run executes the upload phase then the detection phase.
//
// An upload failure aborts with an error and leaves the local images in
// place so the seller can retry. A detection failure is soft: the upload
// result is kept, the pipeline ends in the error state with
// ManualEntryMessage, and Run returns nil so the flow can continue to
// manual entry.
func (p *Pipeline) Run(ctx context.Context) error {
	p.setState(StateAnalyzing, "")

	listingID := p.draft.ListingID()
	if listingID == 0 {
		p.setState(StateError, "no draft listing")
		return fmt.Errorf("pipeline requires a draft listing")
	}

	locals := p.draft.Images()

	var detectInputs []marketplace.ImageUpload
	for _, img := range locals {
		if img.IsVideo {
			continue
		}
		detectInputs = append(detectInputs, marketplace.ImageUpload{
			FileName: img.FileName,
			Data:     img.Data,
		})
	}

	if len(locals) > 0 {
		if err := p.upload(ctx, listingID, locals); err != nil {
			p.setState(StateError, "upload failed")
			return err
		}
	}

	if len(detectInputs) == 0 {
		log.Info().Int64("listingId", listingID).Msg("no photo inputs for detection")
		p.setState(StateError, ManualEntryMessage)
		return nil
	}

	res, err := p.detector.DetectCar(ctx, detectInputs)
	if err != nil || res == nil || (res.Make == "" && res.Model == "") {
		log.Warn().Err(err).Int64("listingId", listingID).Msg("car detection failed")
		// Any earlier detection no longer matches the uploaded photos.
		p.draft.SetAIDetection(nil)
		msg := ManualEntryMessage
		if res != nil && res.Error != "" {
			msg = res.Error
		} else if err != nil {
			msg = err.Error()
		}
		p.setState(StateError, msg)
		return nil
	}

	detection := &draft.AIDetection{
		Make:            res.Make,
		Model:           res.Model,
		Confidence:      res.Confidence,
		ConfidenceLabel: draft.ConfidenceLabel(res.Confidence),
		Raw:             rawResult(res),
	}
	p.draft.SetAIDetection(detection)

	log.Info().
		Int64("listingId", listingID).
		Str("make", res.Make).
		Str("model", res.Model).
		Float64("confidence", res.Confidence).
		Str("label", detection.ConfidenceLabel).
		Msg("car detected")

	p.setState(StateDone, "")
	return nil
}

// upload sends the local images and commits the server's view to the
// draft. Entries the server returned without a URL are dropped.
func (p *Pipeline) upload(ctx context.Context, listingID int64, locals []draft.LocalImage) error {
	uploads := make([]marketplace.ImageUpload, 0, len(locals))
	for _, img := range locals {
		uploads = append(uploads, marketplace.ImageUpload{
			FileName: img.FileName,
			Data:     img.Data,
		})
	}

	resp, err := p.svc.UploadListingImages(ctx, listingID, uploads)
	if err != nil {
		return fmt.Errorf("upload images: %w", err)
	}

	n := len(resp.ImageIDs)
	if len(resp.ImageURLs) < n {
		n = len(resp.ImageURLs)
	}
	uploaded := make([]marketplace.ListingImage, 0, n)
	for i := 0; i < n; i++ {
		if resp.ImageURLs[i] == "" {
			continue
		}
		uploaded = append(uploaded, marketplace.ListingImage{
			ID:  resp.ImageIDs[i],
			URL: resp.ImageURLs[i],
		})
	}

	p.draft.SetUploadedImages(uploaded)

	urls := make([]string, len(uploaded))
	for i, img := range uploaded {
		urls[i] = img.URL
	}
	p.mirror(draft.KeyImages, urls)

	log.Info().Int64("listingId", listingID).Int("count", len(uploaded)).Msg("images uploaded")
	return nil
}

// rawResult keeps the detector's full response alongside the committed
// fields, for debugging and for the override audit trail.
func rawResult(res *marketplace.VisionResult) map[string]any {
	data, err := json.Marshal(res)
	if err != nil {
		return nil
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	return raw
}

// mirror writes a session value copy of v, for quick reads outside the
// draft container. Failures are logged only.
func (p *Pipeline) mirror(key string, v any) {
	if p.store == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to encode session value")
		return
	}
	if err := p.store.SetValue(p.profile, key, string(data)); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to mirror session value")
	}
}
