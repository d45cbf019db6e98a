package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hawraz/carsell-flow/internal/draft"
	"github.com/hawraz/carsell-flow/internal/marketplace"
	"github.com/rs/zerolog/log"
)

// Summary aggregates the draft for the review step.
type Summary struct {
	Location   *marketplace.Location
	Images     []marketplace.ListingImage
	CarDetails map[string]any
	Contact    *Contact
	Detection  *draft.AIDetection
}

// Agreement records the seller's consent checkboxes. Training is optional.
type Agreement struct {
	Terms    bool
	Accurate bool
	Training bool
}

// Review assembles everything collected so far. Contact details live only
// in the session mirror, the rest comes from the draft container.
func (f *Flow) Review() *Summary {
	s := &Summary{
		Location:   f.draft.Location(),
		Images:     f.draft.UploadedImages(),
		CarDetails: f.draft.CarDetails(),
		Detection:  f.draft.AIDetectionResult(),
	}
	if f.store != nil {
		raw, err := f.store.GetValue(f.profile, draft.KeyContact)
		if err == nil && raw != "" {
			var c Contact
			if err := json.Unmarshal([]byte(raw), &c); err == nil {
				s.Contact = &c
			}
		}
	}
	return s
}

// Publish validates the assembled draft and publishes the listing. On
// success the draft and its session mirrors are cleared; the draft id
// survives for correlation.
func (f *Flow) Publish(ctx context.Context, ag Agreement) error {
	if !ag.Terms || !ag.Accurate {
		return errors.New(MsgAgreementRequired)
	}
	listingID := f.draft.ListingID()
	if listingID == 0 {
		return errors.New(MsgMissingDraft)
	}

	s := f.Review()
	if detailString(s.CarDetails, "make") == "" ||
		detailString(s.CarDetails, "model") == "" ||
		detailString(s.CarDetails, "year") == "" {
		return errors.New(MsgMissingCarDetails)
	}
	if s.Location == nil || s.Location.Country == "" || s.Location.State == "" || s.Location.City == "" {
		return errors.New(MsgMissingLocation)
	}
	if f.draft.Phone() == "" && (s.Contact == nil || s.Contact.Phone == "") {
		return errors.New(MsgMissingContactInfo)
	}

	if err := f.svc.PublishListing(ctx, listingID); err != nil {
		return fmt.Errorf("publish listing: %w", err)
	}

	log.Info().Int64("listingId", listingID).Msg("listing published")
	f.notify(MsgPublished)
	f.cleanup()
	return nil
}

// SaveDraft writes the full assembled state to the server-side draft and
// ends the flow without publishing.
func (f *Flow) SaveDraft(ctx context.Context) error {
	listingID := f.draft.ListingID()
	if listingID == 0 {
		return errors.New(MsgMissingDraft)
	}

	s := f.Review()
	fields := make(map[string]any)
	for k, v := range s.CarDetails {
		fields[k] = v
	}
	if s.Location != nil {
		fields["location_country"] = s.Location.Country
		fields["location_state"] = s.Location.State
		fields["location_city"] = s.Location.City
	}
	if s.Contact != nil {
		fields["phone"] = s.Contact.Phone
		fields["phone_country_code"] = s.Contact.PhoneCountryCode
		fields["show_phone_to_buyers_only"] = s.Contact.ShowPhoneOnly
		fields["preferred_contact_methods"] = s.Contact.ContactMethods
		fields["availability"] = s.Contact.Availability
		fields["exact_address"] = s.Contact.ExactAddress
	}

	if err := f.svc.UpdateDraftListing(ctx, listingID, fields); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}

	log.Info().Int64("listingId", listingID).Msg("draft saved")
	f.notify(MsgDraftSaved)
	f.cleanup()
	return nil
}

// cleanup drops the session mirrors and resets the draft container. The
// listing now lives server-side only.
func (f *Flow) cleanup() {
	if f.store != nil {
		if err := f.store.ClearValues(f.profile); err != nil {
			log.Warn().Err(err).Str("profile", f.profile).Msg("failed to clear session values")
		}
	}
	f.draft.Clear()
	f.mu.Lock()
	f.creating = false
	f.aiPrefilled = make(map[string]string)
	f.overrides = make(map[string]string)
	f.mu.Unlock()
}

// detailString reads a car details field as text regardless of how the
// form stored it.
func detailString(details map[string]any, key string) string {
	if details == nil {
		return ""
	}
	v, ok := details[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
